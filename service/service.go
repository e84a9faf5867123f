package service

import (
	"context"

	"github.com/1Crazymoney/ilp-backend-crypto/model"
	"github.com/shopspring/decimal"
)

// PriceSource describes a connected session
// against a market price provider
//
//go:generate mockgen -package=backend_test -destination=../backend/mock_price_source_test.go -source=service.go -exclude_interfaces=Quoter
type PriceSource interface {
	// GetPrice returns the current unit price
	// of the asset in the reference currency
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)

	// Disconnect releases the session
	Disconnect() error
}

// Connector opens a new PriceSource session
type Connector func(ctx context.Context) (PriceSource, error)

// Quoter interface describes
// methods for obtaining prices over REST
type Quoter interface {
	// Snapshot returns prices for
	// all assets and fiat rates known to the provider
	Snapshot(ctx context.Context) ([]model.Price, error)

	// GetAsset returns the latest price
	// for the asset with given provider id
	GetAsset(ctx context.Context, id string) (model.Price, error)
}
