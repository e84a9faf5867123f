package coincap

import "time"

const defaultStreamURL = "wss://wss.coincap.io/prices?assets=ALL"

// Config of the CoinCap price source
type Config struct {
	RESTURL           string        `yaml:"restURL" env:"COINCAP_REST_URL"`
	StreamURL         string        `yaml:"streamURL" env:"COINCAP_STREAM_URL"`
	APIKey            string        `yaml:"apiKey" env:"COINCAP_API_KEY"`
	RefreshInterval   time.Duration `yaml:"refreshInterval" env:"COINCAP_REFRESH_INTERVAL"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond" env:"COINCAP_RPS"`
	AssetLimit        int           `yaml:"assetLimit"`
	DisableStream     bool          `yaml:"disableStream" env:"COINCAP_DISABLE_STREAM"`
}

func (c Config) withDefaults() Config {
	if c.RESTURL == "" {
		c.RESTURL = defaultRESTURL
	}
	if c.StreamURL == "" {
		c.StreamURL = defaultStreamURL
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = defaultRPS
	}
	if c.AssetLimit <= 0 {
		c.AssetLimit = defaultAssetLimit
	}
	return c
}
