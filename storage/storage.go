package storage

import (
	"context"
	"errors"

	"github.com/1Crazymoney/ilp-backend-crypto/model"
	"github.com/shopspring/decimal"
)

// ErrUnknownAsset is returned when no price
// is known for the requested asset
var ErrUnknownAsset = errors.New("unknown asset")

// Storage interface describes methods of
// persistence storage
type Storage interface {
	// Load loads all configured accounts
	// from the storage
	Load(ctx context.Context) ([]model.Account, error)
}

// Cache interface describes non-persistent cache
// storage for asset prices
type Cache interface {
	// Get retrives latest price
	// for given asset symbol
	Get(symbol string) (model.Price, error)

	// Lookup resolves a symbol into
	// the price source asset id
	Lookup(symbol string) (string, bool)

	// Set stores the price, replacing
	// any previous asset listed under the symbol
	Set(price model.Price)

	// UpdateByID updates the price of the asset
	// listed under its symbol, by provider id.
	// Ids of assets shadowed by another one are ignored.
	UpdateByID(id string, priceUSD decimal.Decimal) bool

	// Close stops background refreshes
	Close()
}
