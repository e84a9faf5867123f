package model

// AccountInfo describes the unit of account
// of a single account.
// AssetScale is the number of fractional digits
// used to express amounts, e.g. USD with scale 2
// is expressed in cents.
type AccountInfo struct {
	AssetCode  string `yaml:"assetCode"`
	AssetScale int    `yaml:"assetScale"`
}

// Account binds an account identifier
// to its unit of account
type Account struct {
	ID          string `yaml:"id"`
	AccountInfo `yaml:",inline"`
}
