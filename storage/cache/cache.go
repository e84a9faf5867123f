package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/1Crazymoney/ilp-backend-crypto/model"
	"github.com/1Crazymoney/ilp-backend-crypto/service"
	"github.com/1Crazymoney/ilp-backend-crypto/storage"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	defaultRefreshInterval = time.Minute
	refreshTimeout         = time.Second * 10
)

type MCache struct {
	lock     sync.RWMutex           // rw lock guards store
	bySymbol map[string]model.Price // lookup by upper cased symbol
	idToSym  map[string]string      // provider id of each listed price to symbol
	ticker   *time.Ticker           // ticker to update cache every X interval
	quoter   service.Quoter         // quoter to fetch snapshots from
	doneC    chan struct{}          // chan to signal ticker stoppage
	once     sync.Once              // guards doneC close
}

// New loads the initial snapshot and
// refreshes it every interval until Close is called.
// A non-positive interval uses the default of one minute.
func New(ctx context.Context, quoter service.Quoter, interval time.Duration) (*MCache, error) {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}

	c := &MCache{
		bySymbol: make(map[string]model.Price),
		idToSym:  make(map[string]string),
		quoter:   quoter,
		doneC:    make(chan struct{}),
	}

	return c, c.init(ctx, interval)
}

// Get implements storage.Cache.
func (m *MCache) Get(symbol string) (model.Price, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	symbol = strings.ToUpper(symbol)

	price, ok := m.bySymbol[symbol]
	if !ok || price.PriceUSD.IsZero() {
		return model.Price{}, fmt.Errorf("%w: %s", storage.ErrUnknownAsset, symbol)
	}

	return price, nil
}

// Lookup implements storage.Cache.
func (m *MCache) Lookup(symbol string) (string, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	price, ok := m.bySymbol[strings.ToUpper(symbol)]
	if !ok || price.ID == "" {
		return "", false
	}

	return price.ID, true
}

// Set implements storage.Cache.
func (m *MCache) Set(price model.Price) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.set(price)
}

// UpdateByID implements storage.Cache.
func (m *MCache) UpdateByID(id string, priceUSD decimal.Decimal) bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	symbol, ok := m.idToSym[id]
	if !ok {
		return false
	}

	price := m.bySymbol[symbol]
	price.PriceUSD = priceUSD
	m.bySymbol[symbol] = price

	return true
}

// Close implements storage.Cache.
func (m *MCache) Close() {
	m.once.Do(func() {
		close(m.doneC)
		if m.ticker != nil {
			m.ticker.Stop()
		}
	})
}

func (m *MCache) set(price model.Price) {
	price.Symbol = strings.ToUpper(price.Symbol)

	if prev, ok := m.bySymbol[price.Symbol]; ok && prev.ID != price.ID {
		delete(m.idToSym, prev.ID)
	}

	m.bySymbol[price.Symbol] = price
	if price.ID != "" {
		m.idToSym[price.ID] = price.Symbol
	}
}

// resolve picks one price per symbol out of a snapshot.
// Fiat rates take precedence over crypto assets sharing the
// symbol, otherwise the first entry wins since assets are
// listed by rank.
func resolve(prices []model.Price) (map[string]model.Price, map[string]string) {
	bySymbol := make(map[string]model.Price, len(prices))
	for _, p := range prices {
		p.Symbol = strings.ToUpper(p.Symbol)

		if prev, ok := bySymbol[p.Symbol]; ok && !outranks(p, prev) {
			continue
		}
		bySymbol[p.Symbol] = p
	}

	idToSym := make(map[string]string, len(bySymbol))
	for symbol, p := range bySymbol {
		if p.ID != "" {
			idToSym[p.ID] = symbol
		}
	}

	return bySymbol, idToSym
}

func outranks(p, prev model.Price) bool {
	return p.Type == model.Fiat && prev.Type != model.Fiat
}

func (m *MCache) init(ctx context.Context, interval time.Duration) error {
	// initialize cache
	if err := m.loadAndCache(ctx); err != nil {
		return err
	}

	m.ticker = time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-m.doneC:
				return

			case t := <-m.ticker.C:
				if err := m.loadAndCache(context.Background()); err != nil {
					log.Error().Err(err).Str("time", t.String()).Msg("unable to update price cache, retry on next tick")
				}
			}
		}
	}()

	return nil
}

func (m *MCache) loadAndCache(ctx context.Context) error {
	ctx, cancelFn := context.WithTimeout(ctx, refreshTimeout)
	defer cancelFn()

	prices, err := m.quoter.Snapshot(ctx)
	if err != nil {
		return err
	}

	bySymbol, idToSym := resolve(prices)

	m.lock.Lock()
	m.bySymbol = bySymbol
	m.idToSym = idToSym
	m.lock.Unlock()

	log.Debug().Int("count", len(prices)).Msg("price cache refreshed")

	return nil
}
