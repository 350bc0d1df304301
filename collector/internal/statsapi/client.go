package statsapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/jonboulle/clockwork"

	"github.com/startingnine/startingnine/collector/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrMalformed marks a response that decoded but lacked the fields the
// caller needs. Callers treat it like any other transient provider failure.
var ErrMalformed = errors.New("statsapi: malformed response")

// APIError is a non-2xx response from the Stats API.
type APIError struct {
	StatusCode int
	Path       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("statsapi: %s: unexpected status %d", e.Path, e.StatusCode)
}

// Observer is notified after every outbound call with the endpoint name and
// the call's error (nil on success).
type Observer func(endpoint string, err error)

// Client talks to the MLB Stats API. Every call goes through one Throttle,
// so calls are strictly sequential and spaced by StatsAPIConfig.MinInterval.
type Client struct {
	baseURL         string
	httpClient      *http.Client
	throttle        *Throttle
	clock           clockwork.Clock
	timeout         time.Duration
	scheduleTimeout time.Duration
	logger          *slog.Logger
	observe         Observer

	calls atomic.Int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. The User-Agent transport
// is not applied to a caller-supplied client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithClock sets the clock used by the throttle and for season resolution.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithObserver registers a per-call callback (metrics).
func WithObserver(fn Observer) Option {
	return func(c *Client) { c.observe = fn }
}

// New builds a Client from the stats_api config section.
func New(cfg config.StatsAPIConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		clock:           clockwork.NewRealClock(),
		timeout:         cfg.Timeout,
		scheduleTimeout: cfg.ScheduleTimeout,
		logger:          slog.Default(),
	}
	c.httpClient = &http.Client{
		Transport: &userAgentRoundTripper{base: http.DefaultTransport, agent: cfg.UserAgent},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.throttle = NewThrottle(cfg.MinInterval, c.clock)
	return c
}

// Calls returns how many outbound calls the client has made.
func (c *Client) Calls() int64 { return c.calls.Load() }

// userAgentRoundTripper stamps every request with the bot's User-Agent.
type userAgentRoundTripper struct {
	base  http.RoundTripper
	agent string
}

func (t *userAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.agent != "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.agent)
	}
	return t.base.RoundTrip(req)
}

// get performs one throttled GET and decodes the JSON body into out.
// timeout bounds this call alone, including the body read.
func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values, timeout time.Duration, out any) (err error) {
	release, err := c.throttle.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	c.calls.Add(1)
	defer func() {
		if c.observe != nil {
			c.observe(endpoint, err)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("statsapi: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("statsapi: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Path: path}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("statsapi: %s: decode JSON: %w", path, err)
	}
	c.logger.Debug("statsapi: fetched", "endpoint", endpoint, "path", path)
	return nil
}
