package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrUpstreamUnavailable matches every *UpstreamError via errors.Is.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// UpstreamError is returned for transport failures, timeouts, open circuit
// breakers and non-2xx responses.
type UpstreamError struct {
	Provider string
	// StatusCode is zero when no HTTP response was received.
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: upstream returned HTTP %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s: upstream unavailable: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstreamUnavailable }

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Observer receives one event per upstream call.
type Observer interface {
	ObserveUpstream(provider, outcome string, d time.Duration)
}

type ClientConfig struct {
	Timeout        time.Duration
	Threshold      int
	BreakerTimeout time.Duration
	// HTTPClient overrides the default http.Client built from Timeout.
	HTTPClient HTTPClient
	Observer   Observer
}

type BaseClient struct {
	name           string
	client         HTTPClient
	logger         *zap.Logger
	circuitBreaker *gobreaker.CircuitBreaker
	observer       Observer
}

const maxBodySize = 8 << 20

func NewBaseClient(name string, config ClientConfig, logger *zap.Logger) *BaseClient {
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: config.Timeout,
		}
	}

	threshold := uint32(5)
	if config.Threshold > 0 {
		threshold = uint32(config.Threshold)
	}

	// Circuit breaker settings
	breakerSettings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				zap.String("client", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &BaseClient{
		name:           name,
		client:         httpClient,
		logger:         logger,
		circuitBreaker: gobreaker.NewCircuitBreaker(breakerSettings),
		observer:       config.Observer,
	}
}

// breakerResult carries a response body or a client-side (4xx) rejection
// that must not count against the breaker.
type breakerResult struct {
	body   []byte
	reject *UpstreamError
}

// Get issues a single GET. There are no retries: any failure is returned as
// an *UpstreamError and the caller decides how to degrade.
func (c *BaseClient) Get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	started := time.Now()

	result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return c.doGet(ctx, endpoint, params)
	})

	if err != nil {
		c.observe("error", started)
		var upstreamErr *UpstreamError
		if errors.As(err, &upstreamErr) {
			return nil, upstreamErr
		}
		// breaker rejected the call
		return nil, &UpstreamError{Provider: c.name, Err: err}
	}

	res := result.(breakerResult)
	if res.reject != nil {
		c.observe("rejected", started)
		return nil, res.reject
	}
	c.observe("success", started)
	return res.body, nil
}

func (c *BaseClient) doGet(ctx context.Context, endpoint string, params url.Values) (breakerResult, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return breakerResult{}, &UpstreamError{Provider: c.name, Err: fmt.Errorf("parsing endpoint: %w", err)}
	}
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return breakerResult{}, &UpstreamError{Provider: c.name, Err: fmt.Errorf("creating request failed: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("HTTP request failed",
			zap.String("client", c.name),
			zap.String("host", u.Host),
			zap.Error(err))
		return breakerResult{}, &UpstreamError{Provider: c.name, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		c.logger.Warn("Upstream returned non-success status",
			zap.String("client", c.name),
			zap.String("host", u.Host),
			zap.Int("status", resp.StatusCode))

		upstreamErr := &UpstreamError{Provider: c.name, StatusCode: resp.StatusCode, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
		// Client errors say nothing about upstream health, except 429.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return breakerResult{reject: upstreamErr}, nil
		}
		return breakerResult{}, upstreamErr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return breakerResult{}, &UpstreamError{Provider: c.name, Err: fmt.Errorf("reading body: %w", err)}
	}

	c.logger.Debug("Request successful",
		zap.String("client", c.name),
		zap.Int("status", resp.StatusCode),
		zap.Int("body_size", len(body)))

	return breakerResult{body: body}, nil
}

func (c *BaseClient) observe(outcome string, started time.Time) {
	if c.observer != nil {
		c.observer.ObserveUpstream(c.name, outcome, time.Since(started))
	}
}
