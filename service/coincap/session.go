package coincap

import (
	"context"
	"fmt"
	"sync"

	"github.com/1Crazymoney/ilp-backend-crypto/service"
	"github.com/1Crazymoney/ilp-backend-crypto/storage"
	"github.com/1Crazymoney/ilp-backend-crypto/storage/cache"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"
)

// max concurrent REST lookups for assets missing from the cache
const maxLookups = 4

var _ service.PriceSource = (*Session)(nil)

// Session is a connected CoinCap price source
type Session struct {
	quoter service.Quoter      // REST fallback for cache misses
	cache  storage.Cache       // prices refreshed by snapshot and stream
	stream *Stream             // live updates, nil when disabled
	sem    *semaphore.Weighted // bounds fallback lookups
	once   sync.Once           // guards Disconnect
}

// Connect returns a connector opening CoinCap sessions.
// It is the default price source of the backend.
func Connect(cfg Config) service.Connector {
	return func(ctx context.Context) (service.PriceSource, error) {
		cfg := cfg.withDefaults()

		client, err := NewClient(cfg)
		if err != nil {
			return nil, err
		}

		return NewSession(ctx, cfg, client)
	}
}

// NewSession loads the initial price snapshot
// and starts the live price stream
func NewSession(ctx context.Context, cfg Config, quoter service.Quoter) (*Session, error) {
	cfg = cfg.withDefaults()

	c, err := cache.New(ctx, quoter, cfg.RefreshInterval)
	if err != nil {
		return nil, fmt.Errorf("load price snapshot: %w", err)
	}

	s := &Session{
		quoter: quoter,
		cache:  c,
		sem:    semaphore.NewWeighted(maxLookups),
	}

	if !cfg.DisableStream {
		stream, err := NewStream(cfg.StreamURL, cfg.APIKey, c)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("create price stream: %w", err)
		}
		stream.Start()
		s.stream = stream
	}

	return s, nil
}

// GetPrice implements service.PriceSource.
func (s *Session) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	price, err := s.cache.Get(symbol)
	if err == nil {
		return price.PriceUSD, nil
	}

	// known asset without a usable price yet
	id, ok := s.cache.Lookup(symbol)
	if !ok {
		return decimal.Zero, err
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return decimal.Zero, err
	}
	defer s.sem.Release(1)

	price, err = s.quoter.GetAsset(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}

	if price.PriceUSD.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: %s", storage.ErrUnknownAsset, symbol)
	}

	s.cache.Set(price)

	return price.PriceUSD, nil
}

// Disconnect implements service.PriceSource.
func (s *Session) Disconnect() error {
	s.once.Do(func() {
		if s.stream != nil {
			s.stream.Stop()
		}
		s.cache.Close()
	})

	return nil
}
