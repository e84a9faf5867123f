package model

import "github.com/shopspring/decimal"

// unexported type to disable any new types
type assetType string

const (
	Fiat   assetType = assetType("fiat")   // Fiat represents physical currency
	Crypto assetType = assetType("crypto") // Crypto represents crypto currency
)

// ParseAssetType maps a price source type
// label onto a known asset type.
// Anything that is not fiat is treated as crypto.
func ParseAssetType(s string) assetType {
	if s == string(Fiat) {
		return Fiat
	}
	return Crypto
}

// Price holds the unit price of a single asset
// quoted in the common reference currency (USD)
type Price struct {
	ID       string          // Price source identifier of the asset (e.g. "bitcoin")
	Symbol   string          // Asset code (e.g. "BTC")
	Type     assetType       // Asset type
	PriceUSD decimal.Decimal // Price of one whole unit in USD
}
