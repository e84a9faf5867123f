package accounts

import (
	"context"
	"sync"

	"github.com/1Crazymoney/ilp-backend-crypto/model"
	"github.com/1Crazymoney/ilp-backend-crypto/storage"
	"github.com/rs/zerolog/log"
)

// Registry is an in-memory account registry.
// It resolves account ids into their unit of account.
type Registry struct {
	lock     sync.RWMutex                 // rw lock guards accounts
	accounts map[string]model.AccountInfo // lookup by account id
}

// New returns a registry seeded with given accounts
func New(accounts ...model.Account) *Registry {
	r := &Registry{accounts: make(map[string]model.AccountInfo, len(accounts))}
	r.Add(accounts...)

	return r
}

// Add registers accounts, replacing
// previously registered accounts with the same id
func (r *Registry) Add(accounts ...model.Account) {
	r.lock.Lock()
	defer r.lock.Unlock()

	for _, a := range accounts {
		r.accounts[a.ID] = a.AccountInfo
	}
}

// LoadFrom adds all accounts found in the storage
func (r *Registry) LoadFrom(ctx context.Context, s storage.Storage) error {
	accounts, err := s.Load(ctx)
	if err != nil {
		return err
	}

	r.Add(accounts...)
	log.Debug().Int("count", len(accounts)).Msg("loaded accounts from storage")

	return nil
}

// GetInfo returns the unit of account for
// the account id, ok is false for unknown accounts
func (r *Registry) GetInfo(accountID string) (model.AccountInfo, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	info, ok := r.accounts[accountID]
	return info, ok
}
