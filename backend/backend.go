// Package backend implements the rate backend consumed by a payment
// connector: it resolves both accounts, prices their assets against a
// common reference currency and derives the exchange rate between them,
// net of the configured spread.
package backend

import (
	"context"
	"sync"
	"time"

	"github.com/1Crazymoney/ilp-backend-crypto/metrics"
	"github.com/1Crazymoney/ilp-backend-crypto/model"
	"github.com/1Crazymoney/ilp-backend-crypto/service"
	"github.com/1Crazymoney/ilp-backend-crypto/service/coincap"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Opts configures the backend
type Opts struct {
	Spread    decimal.Decimal      // margin subtracted from the rate as (1 - spread)
	CreateAPI service.Connector    // price source factory, defaults to CoinCap
	Metrics   *metrics.RateMetrics // optional
}

// Services are provided by the host runtime
type Services struct {
	GetInfo func(accountID string) (model.AccountInfo, bool)
}

// Payment is reported by the host runtime
// after a packet has been forwarded
type Payment struct {
	SourceAccount      string
	SourceAmount       string
	DestinationAccount string
	DestinationAmount  string
}

type Backend struct {
	spread    decimal.Decimal      // margin applied to every rate
	createAPI service.Connector    // price source factory
	metrics   *metrics.RateMetrics // rate metrics, may be nil
	getInfo   func(accountID string) (model.AccountInfo, bool)
	log       zerolog.Logger

	lock sync.RWMutex        // guards api
	api  service.PriceSource // nil while disconnected
}

func New(opts Opts, services Services) *Backend {
	createAPI := opts.CreateAPI
	if createAPI == nil {
		createAPI = coincap.Connect(coincap.Config{})
	}

	return &Backend{
		spread:    opts.Spread,
		createAPI: createAPI,
		metrics:   opts.Metrics,
		getInfo:   services.GetInfo,
		log:       zlog.With().Str("component", "crypto-backend").Logger(),
	}
}

// Connect opens a price source session.
// A session opened by a previous call is disconnected first.
func (b *Backend) Connect(ctx context.Context) error {
	api, err := b.createAPI(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("unable to connect to backend api")
		return err
	}

	b.lock.Lock()
	prev := b.api
	b.api = api
	b.lock.Unlock()

	if prev != nil {
		if err := prev.Disconnect(); err != nil {
			b.log.Error().Err(err).Msg("unable to disconnect replaced backend api session")
		}
	}

	return nil
}

// GetRate returns the rate between the minimum units
// of the source and destination accounts' assets
func (b *Backend) GetRate(ctx context.Context, sourceAccount, destinationAccount string) (float64, error) {
	b.lock.RLock()
	api := b.api
	b.lock.RUnlock()

	if api == nil {
		b.log.Error().Msg("not connected to backend api")
		b.metrics.Observe(metrics.ResultNotConnected)
		return 0, ErrNotConnected
	}

	sourceInfo, ok := b.getInfo(sourceAccount)
	if !ok {
		b.log.Error().Str("accountId", sourceAccount).Msg("unable to fetch account info for source account")
		b.metrics.Observe(metrics.ResultUnknownAccount)
		return 0, &UnknownAccountError{Role: "source", AccountID: sourceAccount}
	}

	destInfo, ok := b.getInfo(destinationAccount)
	if !ok {
		b.log.Error().Str("accountId", destinationAccount).Msg("unable to fetch account info for destination account")
		b.metrics.Observe(metrics.ResultUnknownAccount)
		return 0, &UnknownAccountError{Role: "destination", AccountID: destinationAccount}
	}

	start := time.Now()
	sourcePrice, destPrice, err := fetchPrices(ctx, api, sourceInfo.AssetCode, destInfo.AssetCode)
	b.metrics.ObservePriceQuery(time.Since(start).Seconds())
	if err != nil {
		b.log.Error().Err(err).
			Str("sourceAsset", sourceInfo.AssetCode).
			Str("destinationAsset", destInfo.AssetCode).
			Msg("unable to fetch asset prices")
		b.metrics.Observe(metrics.ResultPriceError)
		return 0, err
	}

	rate, err := deriveRate(sourcePrice, destPrice, sourceInfo.AssetScale, destInfo.AssetScale, b.spread)
	if err != nil {
		b.log.Error().Err(err).Str("destinationAsset", destInfo.AssetCode).Msg("unable to derive rate")
		b.metrics.Observe(metrics.ResultPriceError)
		return 0, err
	}

	result, _ := rate.Float64()
	b.metrics.Observe(metrics.ResultOK)
	b.metrics.SetRate(sourceAccount, destinationAccount, result)

	return result, nil
}

// SubmitPayment is a no-op, no statistics are collected yet
func (b *Backend) SubmitPayment(ctx context.Context, payment Payment) error {
	return nil
}

// Disconnect closes the price source session, if any.
// Calling it while disconnected is a no-op.
func (b *Backend) Disconnect() error {
	b.lock.Lock()
	api := b.api
	b.api = nil
	b.lock.Unlock()

	if api == nil {
		return nil
	}

	if err := api.Disconnect(); err != nil {
		b.log.Error().Err(err).Msg("unable to disconnect from backend api")
		return err
	}

	return nil
}

// fetchPrices queries both prices concurrently and returns
// as soon as both succeeded or either of them failed
func fetchPrices(ctx context.Context, api service.PriceSource, sourceSymbol, destSymbol string) (decimal.Decimal, decimal.Decimal, error) {
	ctx, cancelFn := context.WithCancel(ctx)
	defer cancelFn()

	type result struct {
		idx   int
		price decimal.Decimal
		err   error
	}

	var (
		symbols  = [2]string{sourceSymbol, destSymbol}
		prices   [2]decimal.Decimal
		resultsC = make(chan result, len(symbols))
	)

	for i, symbol := range symbols {
		go func(i int, symbol string) {
			price, err := api.GetPrice(ctx, symbol)
			resultsC <- result{idx: i, price: price, err: err}
		}(i, symbol)
	}

	for range symbols {
		select {
		case <-ctx.Done():
			return decimal.Zero, decimal.Zero, ctx.Err()

		case r := <-resultsC:
			if r.err != nil {
				return decimal.Zero, decimal.Zero, r.err
			}
			prices[r.idx] = r.price
		}
	}

	return prices[0], prices[1], nil
}
