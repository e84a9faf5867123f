package coincap

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/1Crazymoney/ilp-backend-crypto/storage"
	"github.com/eapache/go-resiliency/retrier"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	redialAttempts = 6
	redialBackoff  = 200 * time.Millisecond
)

// Stream applies live price updates
// pushed over websocket to the price cache.
// Messages are objects of asset id to USD price,
// e.g. {"bitcoin":"6929.82"}.
type Stream struct {
	url      string             // prices endpoint
	cache    storage.Cache      // cache receiving updates
	dialer   *websocket.Dialer  // websocket dialer
	retrier  *retrier.Retrier   // redial policy
	cancelFn context.CancelFunc // stops the read loop
	doneC    chan struct{}      // closed once the read loop exits
}

func NewStream(streamURL, apiKey string, cache storage.Cache) (*Stream, error) {
	u, err := url.Parse(streamURL)
	if err != nil {
		return nil, err
	}

	if apiKey != "" {
		query := u.Query()
		query.Set("apiKey", apiKey)
		u.RawQuery = query.Encode()
	}

	r := retrier.New(retrier.ExponentialBackoff(redialAttempts, redialBackoff), nil)
	r.SetJitter(0.25)

	return &Stream{
		url:     u.String(),
		cache:   cache,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		retrier: r,
		doneC:   make(chan struct{}),
	}, nil
}

// Start runs the read loop in the background
// until Stop is called
func (s *Stream) Start() {
	ctx, cancelFn := context.WithCancel(context.Background())
	s.cancelFn = cancelFn

	go s.run(ctx)
}

// Stop closes the connection and
// waits for the read loop to exit
func (s *Stream) Stop() {
	if s.cancelFn == nil {
		return
	}

	s.cancelFn()
	<-s.doneC
}

func (s *Stream) run(ctx context.Context) {
	defer close(s.doneC)

	for ctx.Err() == nil {
		err := s.retrier.RunCtx(ctx, s.consume)
		if err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("price stream unavailable, redialing")
		}
	}

	log.Debug().Msg("price stream stopped")
}

func (s *Stream) consume(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// unblock ReadMessage on shutdown
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	log.Debug().Msg("price stream connected")

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		updates := map[string]decimal.Decimal{}
		if err := json.Unmarshal(msg, &updates); err != nil {
			log.Warn().Err(err).Msg("skipping malformed price update")
			continue
		}

		for id, price := range updates {
			s.cache.UpdateByID(id, price)
		}
	}
}
