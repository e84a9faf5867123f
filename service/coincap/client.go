package coincap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/1Crazymoney/ilp-backend-crypto/model"
	"github.com/1Crazymoney/ilp-backend-crypto/service"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	defaultRESTURL    = "https://rest.coincap.io/v3/" // base URL of CoinCap API
	defaultAssetLimit = 2000                          // max assets per snapshot
	defaultRPS        = 1                             // requests per second
	defaultBurst      = 10
)

var _ service.Quoter = (*Client)(nil)

type asset struct {
	ID       string          `json:"id"`
	Symbol   string          `json:"symbol"`
	PriceUSD decimal.Decimal `json:"priceUsd"`
}

type fxRate struct {
	ID      string          `json:"id"`
	Symbol  string          `json:"symbol"`
	Type    string          `json:"type"`
	RateUSD decimal.Decimal `json:"rateUsd"`
}

type Client struct {
	baseURL     *url.URL      // Base URL for API requests
	httpClient  *http.Client  // HTTP client used to communicate with the API.
	rateLimiter *rate.Limiter // Rate limiter for coincap api
	assetLimit  int           // Number of assets loaded per snapshot
}

func NewClient(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()

	base, err := url.Parse(cfg.RESTURL)
	if err != nil {
		return nil, fmt.Errorf("parse rest url: %w", err)
	}

	apiKey := cfg.APIKey
	c := &Client{
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), defaultBurst),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: roundTripperFn(
				func(req *http.Request) (*http.Response, error) {
					if apiKey != "" {
						params := req.URL.Query()
						params.Set("apiKey", apiKey)
						req.URL.RawQuery = params.Encode()
					}

					return http.DefaultTransport.RoundTrip(req)
				},
			),
		},
		baseURL:    base,
		assetLimit: cfg.AssetLimit,
	}

	return c, nil
}

func (c *Client) Do(ctx context.Context, req *http.Request, v interface{}) error {
	err := c.rateLimiter.Wait(ctx)
	if err != nil {
		return err
	}

	log.Debug().Str("url", req.URL.Path).Msg("fetching information from API")

	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unable to fetch prices due to code: %d", resp.StatusCode)
	}

	switch v := v.(type) {
	case nil:
	case io.Writer:
		_, err = io.Copy(v, resp.Body)
	default:
		decErr := json.NewDecoder(resp.Body).Decode(v)
		if decErr == io.EOF {
			decErr = nil // ignore EOF errors caused by empty response body
		}
		if decErr != nil {
			err = decErr
		}
	}

	return err
}

// GetAssets returns USD prices of crypto assets.
// GET /assets?limit=2000
func (c *Client) GetAssets(ctx context.Context) ([]model.Price, error) {
	req, err := c.newRequest(ctx, "assets")
	if err != nil {
		return nil, err
	}

	query := req.URL.Query()
	query.Add("limit", strconv.Itoa(c.assetLimit))
	req.URL.RawQuery = query.Encode()

	resp := struct {
		Data []asset `json:"data"`
	}{}

	if err := c.Do(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("get assets: %w", err)
	}

	result := make([]model.Price, 0, len(resp.Data))
	for _, a := range resp.Data {
		result = append(result, a.toPrice())
	}

	return result, nil
}

// GetRates returns USD rates of fiat and crypto currencies.
// GET /rates
func (c *Client) GetRates(ctx context.Context) ([]model.Price, error) {
	req, err := c.newRequest(ctx, "rates")
	if err != nil {
		return nil, err
	}

	resp := struct {
		Data []fxRate `json:"data"`
	}{}

	if err := c.Do(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("get rates: %w", err)
	}

	result := make([]model.Price, 0, len(resp.Data))
	for _, r := range resp.Data {
		result = append(result, model.Price{
			ID:       r.ID,
			Symbol:   r.Symbol,
			Type:     model.ParseAssetType(r.Type),
			PriceUSD: r.RateUSD,
		})
	}

	return result, nil
}

// GetAsset implements service.Quoter.
// GET /assets/{id}
func (c *Client) GetAsset(ctx context.Context, id string) (model.Price, error) {
	req, err := c.newRequest(ctx, "assets/"+url.PathEscape(id))
	if err != nil {
		return model.Price{}, err
	}

	resp := struct {
		Data asset `json:"data"`
	}{}

	if err := c.Do(ctx, req, &resp); err != nil {
		return model.Price{}, fmt.Errorf("get asset %s: %w", id, err)
	}

	return resp.Data.toPrice(), nil
}

// Snapshot implements service.Quoter.
// Rates and assets are loaded concurrently.
// Assets come first in rank order, followed by rates.
func (c *Client) Snapshot(ctx context.Context) ([]model.Price, error) {
	var rates, assets []model.Price

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		rates, err = c.GetRates(gctx)
		return err
	})
	g.Go(func() (err error) {
		assets, err = c.GetAssets(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Debug().Int("rates", len(rates)).Int("assets", len(assets)).Msg("obtained prices for symbols")

	return append(assets, rates...), nil
}

func (c *Client) newRequest(ctx context.Context, path string) (*http.Request, error) {
	u, err := c.baseURL.Parse(path)
	if err != nil {
		return nil, err
	}

	return http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
}

func (a asset) toPrice() model.Price {
	return model.Price{
		ID:       a.ID,
		Symbol:   a.Symbol,
		Type:     model.Crypto,
		PriceUSD: a.PriceUSD,
	}
}

type roundTripperFn func(*http.Request) (*http.Response, error)

func (fn roundTripperFn) RoundTrip(r *http.Request) (*http.Response, error) {
	return fn(r)
}
