// Package fetch issues the dashboard's outbound GET requests. Every call goes
// through Client, which applies the request timeout, an optional per-endpoint
// circuit breaker and maps non-2xx answers to StatusError. There are no
// retries: a failed read waits for the next poll cycle.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 1 << 20

// DefaultTimeout bounds a single request when none is configured.
const DefaultTimeout = 4 * time.Second

// ErrBreakerOpen is returned without issuing a request while an endpoint's
// breaker is open.
var ErrBreakerOpen = errors.New("circuit breaker open")

// StatusError is returned for a response outside the 2xx range.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// Client performs GET requests against named endpoints.
type Client struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string

	// breakerFailures is the number of consecutive failures that opens an
	// endpoint's breaker; 0 disables breaking.
	breakerFailures uint32
	breakerTimeout  time.Duration
	onBreakerChange func(endpoint string, from, to gobreaker.State)

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[[]byte]
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithBreaker enables a circuit breaker per endpoint that opens after
// failures consecutive errors and half-opens again after cooldown.
func WithBreaker(failures uint32, cooldown time.Duration) Option {
	return func(c *Client) {
		c.breakerFailures = failures
		if cooldown > 0 {
			c.breakerTimeout = cooldown
		}
	}
}

// WithBreakerObserver registers a callback for breaker state transitions.
func WithBreakerObserver(fn func(endpoint string, from, to gobreaker.State)) Option {
	return func(c *Client) {
		c.onBreakerChange = fn
	}
}

// New creates a Client. A nil httpClient uses a fresh http.Client.
func New(httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	c := &Client{
		client:         httpClient,
		timeout:        DefaultTimeout,
		userAgent:      "SmartHome-Dashboard/1.0",
		breakerTimeout: 30 * time.Second,
		breakers:       make(map[string]*gobreaker.CircuitBreaker[[]byte]),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get requests url on behalf of endpoint and returns the response body.
// The endpoint name keys the circuit breaker.
func (c *Client) Get(ctx context.Context, endpoint, url string) ([]byte, error) {
	cb := c.breaker(endpoint)
	if cb == nil {
		return c.do(ctx, url)
	}

	body, err := cb.Execute(func() ([]byte, error) {
		return c.do(ctx, url)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s: %w", endpoint, ErrBreakerOpen)
	}
	return body, err
}

func (c *Client) do(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// url.Error repeats the URL, which carries the device token.
		var ue *neturl.Error
		if errors.As(err, &ue) {
			return nil, fmt.Errorf("%s request: %w", ue.Op, ue.Err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func (c *Client) breaker(endpoint string) *gobreaker.CircuitBreaker[[]byte] {
	if c.breakerFailures == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if cb, ok := c.breakers[endpoint]; ok {
		return cb
	}

	threshold := c.breakerFailures
	settings := gobreaker.Settings{
		Name:        endpoint,
		MaxRequests: 1,
		Timeout:     c.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	}
	if c.onBreakerChange != nil {
		observer := c.onBreakerChange
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			observer(name, from, to)
		}
	}

	cb := gobreaker.NewCircuitBreaker[[]byte](settings)
	c.breakers[endpoint] = cb
	return cb
}
