package backend_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/1Crazymoney/ilp-backend-crypto/backend"
	"github.com/1Crazymoney/ilp-backend-crypto/metrics"
	"github.com/1Crazymoney/ilp-backend-crypto/model"
	"github.com/1Crazymoney/ilp-backend-crypto/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var testAccounts = map[string]model.AccountInfo{
	"xrp":  {AssetCode: "XRP", AssetScale: 9},
	"usd":  {AssetCode: "USD", AssetScale: 2},
	"btc":  {AssetCode: "BTC", AssetScale: 8},
	"eth":  {AssetCode: "ETH", AssetScale: 9},
	"shib": {AssetCode: "SHIB", AssetScale: 0},
}

func getInfo(accountID string) (model.AccountInfo, bool) {
	info, ok := testAccounts[accountID]
	return info, ok
}

func connector(api service.PriceSource) service.Connector {
	return func(context.Context) (service.PriceSource, error) {
		return api, nil
	}
}

func newConnected(t *testing.T, spread string, api service.PriceSource) *backend.Backend {
	t.Helper()

	b := backend.New(backend.Opts{
		Spread:    decimal.RequireFromString(spread),
		CreateAPI: connector(api),
	}, backend.Services{GetInfo: getInfo})

	require.NoError(t, b.Connect(context.Background()))
	return b
}

func expectPrice(api *MockPriceSource, symbol, price string) {
	api.EXPECT().
		GetPrice(gomock.Any(), symbol).
		Return(decimal.RequireFromString(price), nil).
		Times(1)
}

func TestGetRate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		spread      string
		source      string
		destination string
		prices      map[string]string
		want        float64
	}{
		{
			name:   "scale shift and spread",
			spread: "0.01", source: "xrp", destination: "usd",
			prices: map[string]string{"XRP": "1", "USD": "100"},
			want:   9.9e-10,
		},
		{
			name:   "same asset without spread",
			spread: "0", source: "eth", destination: "eth",
			prices: map[string]string{"ETH": "3000"},
			want:   1,
		},
		{
			name:   "truncates toward zero",
			spread: "0", source: "eth", destination: "xrp",
			prices: map[string]string{"ETH": "2", "XRP": "3"},
			want:   0.666666666666666,
		},
		{
			name:   "crypto to fiat",
			spread: "0.02", source: "btc", destination: "usd",
			prices: map[string]string{"BTC": "50000", "USD": "1"},
			want:   0.049,
		},
		{
			name:   "positive scale shift",
			spread: "0.005", source: "usd", destination: "eth",
			prices: map[string]string{"USD": "1", "ETH": "7"},
			want:   1421428.57142857,
		},
		{
			name:   "tiny price ratio keeps 15 digits",
			spread: "0", source: "shib", destination: "btc",
			prices: map[string]string{"SHIB": "0.00001", "BTC": "65000"},
			want:   0.0153846153846153,
		},
		{
			name:   "spread above one is not validated",
			spread: "1.5", source: "eth", destination: "eth",
			prices: map[string]string{"ETH": "1"},
			want:   -0.5,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Arrange: a connected backend with stubbed prices
			ctrl := gomock.NewController(t)
			api := NewMockPriceSource(ctrl)
			for symbol, price := range tt.prices {
				api.EXPECT().
					GetPrice(gomock.Any(), symbol).
					Return(decimal.RequireFromString(price), nil).
					AnyTimes()
			}
			b := newConnected(t, tt.spread, api)

			// Act
			rate, err := b.GetRate(context.Background(), tt.source, tt.destination)

			// Assert
			require.NoError(t, err)
			require.Equal(t, tt.want, rate)
		})
	}
}

func TestGetRateNotConnected(t *testing.T) {
	t.Parallel()

	lookups := 0
	b := backend.New(backend.Opts{CreateAPI: connector(nil)}, backend.Services{
		GetInfo: func(id string) (model.AccountInfo, bool) {
			lookups++
			return getInfo(id)
		},
	})

	_, err := b.GetRate(context.Background(), "xrp", "usd")
	require.ErrorIs(t, err, backend.ErrNotConnected)
	require.EqualError(t, err, "not connected to the backend api")
	require.Zero(t, lookups, "accounts must not be resolved while disconnected")
}

func TestGetRateAfterDisconnect(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	api := NewMockPriceSource(ctrl)
	api.EXPECT().Disconnect().Return(nil).Times(1)

	b := newConnected(t, "0", api)
	require.NoError(t, b.Disconnect())

	_, err := b.GetRate(context.Background(), "xrp", "usd")
	require.ErrorIs(t, err, backend.ErrNotConnected)
}

func TestGetRateUnknownSourceCheckedFirst(t *testing.T) {
	t.Parallel()

	// Arrange: no price query is expected
	ctrl := gomock.NewController(t)
	b := newConnected(t, "0", NewMockPriceSource(ctrl))

	// Act: both accounts are unknown
	_, err := b.GetRate(context.Background(), "nobody", "nowhere")

	// Assert: the source account is reported
	require.ErrorIs(t, err, backend.ErrUnknownAccount)

	var unknown *backend.UnknownAccountError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, "source", unknown.Role)
	require.Equal(t, "nobody", unknown.AccountID)
	require.EqualError(t, err, "unable to fetch account info for source account. accountId=nobody")
}

func TestGetRateUnknownDestination(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	b := newConnected(t, "0", NewMockPriceSource(ctrl))

	_, err := b.GetRate(context.Background(), "xrp", "nowhere")

	var unknown *backend.UnknownAccountError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, "destination", unknown.Role)
	require.Equal(t, "nowhere", unknown.AccountID)
}

func TestGetRatePriceErrorPropagatedUnchanged(t *testing.T) {
	t.Parallel()

	priceErr := errors.New("asset unavailable")

	ctrl := gomock.NewController(t)
	api := NewMockPriceSource(ctrl)
	// the source query may still be in flight when the call fails
	api.EXPECT().GetPrice(gomock.Any(), "XRP").Return(decimal.RequireFromString("0.5"), nil).AnyTimes()
	api.EXPECT().GetPrice(gomock.Any(), "USD").Return(decimal.Zero, priceErr).Times(1)

	b := newConnected(t, "0", api)

	_, err := b.GetRate(context.Background(), "xrp", "usd")
	require.Same(t, priceErr, err)
}

func TestGetRateFailsFast(t *testing.T) {
	t.Parallel()

	// Arrange: the source price fails while the destination
	// price only returns once its context is cancelled
	priceErr := errors.New("rate limited")
	cancelledC := make(chan struct{})

	ctrl := gomock.NewController(t)
	api := NewMockPriceSource(ctrl)
	api.EXPECT().GetPrice(gomock.Any(), "XRP").Return(decimal.Zero, priceErr).Times(1)
	api.EXPECT().
		GetPrice(gomock.Any(), "USD").
		DoAndReturn(func(ctx context.Context, _ string) (decimal.Decimal, error) {
			<-ctx.Done()
			close(cancelledC)
			return decimal.Zero, ctx.Err()
		}).
		Times(1)

	b := newConnected(t, "0", api)

	// Act
	_, err := b.GetRate(context.Background(), "xrp", "usd")

	// Assert: the first failure is returned without waiting
	// and the pending query is cancelled
	require.Same(t, priceErr, err)

	select {
	case <-cancelledC:
	case <-time.After(time.Second):
		t.Fatal("pending price query was not cancelled")
	}
}

func TestGetRateQueriesConcurrently(t *testing.T) {
	t.Parallel()

	// Arrange: each query waits for the other one to start
	started := make(chan struct{}, 2)
	wait := func(ctx context.Context, _ string) (decimal.Decimal, error) {
		started <- struct{}{}
		for len(started) < 2 {
			select {
			case <-ctx.Done():
				return decimal.Zero, ctx.Err()
			case <-time.After(time.Millisecond):
			}
		}
		return decimal.NewFromInt(1), nil
	}

	ctrl := gomock.NewController(t)
	api := NewMockPriceSource(ctrl)
	api.EXPECT().GetPrice(gomock.Any(), "ETH").DoAndReturn(wait).Times(1)
	api.EXPECT().GetPrice(gomock.Any(), "BTC").DoAndReturn(wait).Times(1)

	b := newConnected(t, "0", api)

	ctx, cancelFn := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancelFn()

	// Act
	rate, err := b.GetRate(ctx, "eth", "btc")

	// Assert
	require.NoError(t, err)
	require.Equal(t, 0.1, rate)
}

func TestGetRateZeroDestinationPrice(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	api := NewMockPriceSource(ctrl)
	expectPrice(api, "XRP", "0.5")
	expectPrice(api, "USD", "0")

	b := newConnected(t, "0", api)

	_, err := b.GetRate(context.Background(), "xrp", "usd")
	require.ErrorIs(t, err, backend.ErrZeroPrice)
}

func TestConnectFailureStaysDisconnected(t *testing.T) {
	t.Parallel()

	connectErr := errors.New("dial tcp: connection refused")
	b := backend.New(backend.Opts{
		CreateAPI: func(context.Context) (service.PriceSource, error) {
			return nil, connectErr
		},
	}, backend.Services{GetInfo: getInfo})

	require.Same(t, connectErr, b.Connect(context.Background()))

	_, err := b.GetRate(context.Background(), "xrp", "usd")
	require.ErrorIs(t, err, backend.ErrNotConnected)
	require.NoError(t, b.Disconnect())
}

func TestConnectReplacesPreviousSession(t *testing.T) {
	t.Parallel()

	// Arrange: two sessions handed out in order
	ctrl := gomock.NewController(t)
	first := NewMockPriceSource(ctrl)
	second := NewMockPriceSource(ctrl)

	first.EXPECT().Disconnect().Return(nil).Times(1)
	second.EXPECT().GetPrice(gomock.Any(), "ETH").Return(decimal.NewFromInt(10), nil).Times(2)
	second.EXPECT().Disconnect().Return(nil).Times(1)

	sessions := []service.PriceSource{first, second}
	b := backend.New(backend.Opts{
		CreateAPI: func(context.Context) (service.PriceSource, error) {
			api := sessions[0]
			sessions = sessions[1:]
			return api, nil
		},
	}, backend.Services{GetInfo: getInfo})

	// Act: connect twice
	require.NoError(t, b.Connect(context.Background()))
	require.NoError(t, b.Connect(context.Background()))

	// Assert: the second session serves rates
	rate, err := b.GetRate(context.Background(), "eth", "eth")
	require.NoError(t, err)
	require.Equal(t, 1.0, rate)
	require.NoError(t, b.Disconnect())
}

func TestDisconnectIsIdempotent(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	api := NewMockPriceSource(ctrl)
	api.EXPECT().Disconnect().Return(nil).Times(1)

	b := newConnected(t, "0", api)

	require.NoError(t, b.Disconnect())
	require.NoError(t, b.Disconnect())
}

func TestDisconnectErrorStillDisconnects(t *testing.T) {
	t.Parallel()

	disconnectErr := errors.New("close: broken pipe")

	ctrl := gomock.NewController(t)
	api := NewMockPriceSource(ctrl)
	api.EXPECT().Disconnect().Return(disconnectErr).Times(1)

	b := newConnected(t, "0", api)

	require.Same(t, disconnectErr, b.Disconnect())
	require.NoError(t, b.Disconnect())

	_, err := b.GetRate(context.Background(), "xrp", "usd")
	require.ErrorIs(t, err, backend.ErrNotConnected)
}

func TestSubmitPaymentAlwaysSucceeds(t *testing.T) {
	t.Parallel()

	b := backend.New(backend.Opts{CreateAPI: connector(nil)}, backend.Services{GetInfo: getInfo})

	require.NoError(t, b.SubmitPayment(context.Background(), backend.Payment{}))
	require.NoError(t, b.SubmitPayment(context.Background(), backend.Payment{
		SourceAccount:      "unknown",
		SourceAmount:       "-1",
		DestinationAccount: "",
	}))
}

func TestGetRateRecordsMetrics(t *testing.T) {
	t.Parallel()

	// Arrange
	ctrl := gomock.NewController(t)
	api := NewMockPriceSource(ctrl)
	expectPrice(api, "XRP", "1")
	expectPrice(api, "USD", "100")

	m := metrics.NewRateMetrics(prometheus.NewRegistry())
	b := backend.New(backend.Opts{
		Spread:    decimal.RequireFromString("0.01"),
		CreateAPI: connector(api),
		Metrics:   m,
	}, backend.Services{GetInfo: getInfo})

	// Act: one failure before connecting, one success after
	_, err := b.GetRate(context.Background(), "xrp", "usd")
	require.ErrorIs(t, err, backend.ErrNotConnected)

	require.NoError(t, b.Connect(context.Background()))
	_, err = b.GetRate(context.Background(), "xrp", "usd")
	require.NoError(t, err)

	// Assert
	require.Equal(t, 1.0, testutil.ToFloat64(m.RateRequestsTotal.WithLabelValues(metrics.ResultNotConnected)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.RateRequestsTotal.WithLabelValues(metrics.ResultOK)))
	require.Equal(t, 9.9e-10, testutil.ToFloat64(m.LastRate.WithLabelValues("xrp", "usd")))
}

func TestGetRateConcurrentCallers(t *testing.T) {
	t.Parallel()

	// Arrange: one session shared by every caller
	ctrl := gomock.NewController(t)
	api := NewMockPriceSource(ctrl)
	prices := map[string]string{"XRP": "0.5", "USD": "1", "BTC": "50000", "ETH": "2500"}
	for symbol, price := range prices {
		api.EXPECT().
			GetPrice(gomock.Any(), symbol).
			Return(decimal.RequireFromString(price), nil).
			AnyTimes()
	}
	b := newConnected(t, "0", api)

	pairs := []struct {
		source      string
		destination string
		want        float64
	}{
		{source: "xrp", destination: "usd", want: 5e-08},
		{source: "btc", destination: "eth", want: 200},
		{source: "usd", destination: "btc", want: 20},
		{source: "eth", destination: "xrp", want: 5000},
	}

	const callsPerPair = 25
	var (
		wg      sync.WaitGroup
		results = make([][]float64, len(pairs))
		errs    = make([][]error, len(pairs))
	)
	for i := range pairs {
		results[i] = make([]float64, callsPerPair)
		errs[i] = make([]error, callsPerPair)
	}

	// Act
	for i, p := range pairs {
		for n := 0; n < callsPerPair; n++ {
			i, p, n := i, p, n
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i][n], errs[i][n] = b.GetRate(context.Background(), p.source, p.destination)
			}()
		}
	}
	wg.Wait()

	// Assert
	for i, p := range pairs {
		for n := 0; n < callsPerPair; n++ {
			require.NoError(t, errs[i][n])
			require.Equalf(t, p.want, results[i][n], "%s -> %s", p.source, p.destination)
		}
	}
}
