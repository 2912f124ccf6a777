package collaborator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mpapenbr/f1-race-predictor/log"
	"github.com/mpapenbr/f1-race-predictor/pkg/model"
	"github.com/mpapenbr/f1-race-predictor/pkg/utils/cache"
	"github.com/mpapenbr/f1-race-predictor/pkg/utils/cache/loadercache"
)

var ErrPredictionFailed = errors.New("prediction server reported failure")

// StatusError is returned for non-2xx responses
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

type Option func(*Client)

func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithCacheExpiration(d time.Duration) Option {
	return func(c *Client) {
		c.cacheExpiration = d
	}
}

// Client talks to the prediction server
type Client struct {
	baseURL         string
	http            *http.Client
	timeout         time.Duration
	cacheExpiration time.Duration
	log             *log.Logger
	teams           cache.Cache[string, model.Teams]
	circuits        cache.Cache[string, []model.Circuit]
}

const cacheKey = "all"

func New(opts ...Option) *Client {
	ret := &Client{
		baseURL:         "http://localhost:8000",
		timeout:         30 * time.Second,
		cacheExpiration: 5 * time.Minute,
		log:             log.Default().Named("collaborator"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.http == nil {
		ret.http = &http.Client{
			Timeout:   ret.timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	ret.teams = loadercache.New(
		loadercache.WithExpiration[string, model.Teams](ret.cacheExpiration),
		loadercache.WithLogger[string, model.Teams](ret.log.Named("cache")),
		loadercache.WithLoader[string, model.Teams](
			func(ctx context.Context, _ string) (*model.Teams, error) {
				var teams model.Teams
				if err := ret.get(ctx, "/api/teams", &teams); err != nil {
					return nil, err
				}
				return &teams, nil
			}),
	)
	ret.circuits = loadercache.New(
		loadercache.WithExpiration[string, []model.Circuit](ret.cacheExpiration),
		loadercache.WithLogger[string, []model.Circuit](ret.log.Named("cache")),
		loadercache.WithLoader[string, []model.Circuit](
			func(ctx context.Context, _ string) (*[]model.Circuit, error) {
				var circuits []model.Circuit
				if err := ret.get(ctx, "/api/circuits", &circuits); err != nil {
					return nil, err
				}
				return &circuits, nil
			}),
	)
	return ret
}

// Teams returns the constructor map. Results are cached.
func (c *Client) Teams(ctx context.Context) (model.Teams, error) {
	teams, err := c.teams.Get(ctx, cacheKey)
	if err != nil {
		return nil, err
	}
	return *teams, nil
}

// Circuits returns the season calendar. Results are cached.
func (c *Client) Circuits(ctx context.Context) ([]model.Circuit, error) {
	circuits, err := c.circuits.Get(ctx, cacheKey)
	if err != nil {
		return nil, err
	}
	return *circuits, nil
}

func (c *Client) DriverStats(ctx context.Context) (map[string]model.DriverStats, error) {
	ret := map[string]model.DriverStats{}
	if err := c.get(ctx, "/api/driver-stats", &ret); err != nil {
		return nil, err
	}
	return ret, nil
}

//nolint:whitespace // editor/linter issue
func (c *Client) ConstructorStandings(ctx context.Context) (
	[]model.ConstructorStanding, error,
) {
	ret := []model.ConstructorStanding{}
	if err := c.get(ctx, "/api/constructor-standings", &ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// Predict sends the race entries to the prediction server.
// A response with success=false is reported as ErrPredictionFailed.
//
//nolint:whitespace // editor/linter issue
func (c *Client) Predict(ctx context.Context, req *model.PredictionRequest) (
	*model.PredictionResult, error,
) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	var res model.PredictionResult
	if err := c.do(ctx, http.MethodPost, "/api/predict", body, &res); err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, ErrPredictionFailed
	}
	return &res, nil
}

// InvalidateLookups drops cached teams and circuits
func (c *Client) InvalidateLookups(ctx context.Context) {
	c.teams.InvalidateAll(ctx)
	c.circuits.InvalidateAll(ctx)
}

func (c *Client) get(ctx context.Context, path string, target any) error {
	return c.do(ctx, http.MethodGet, path, nil, target)
}

//nolint:whitespace // editor/linter issue
func (c *Client) do(
	ctx context.Context, method, path string, body []byte, target any,
) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed",
			log.String("method", method), log.String("path", path), log.ErrorField(err))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.log.Debug("request done",
		log.String("method", method),
		log.String("path", path),
		log.Int("status", resp.StatusCode),
		log.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
