package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/lysyi3m/tube-comb/app/metrics"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

const maxBodySize = 10 << 20

// errNotSent marks a call rejected before it reached upstream.
var errNotSent = errors.New("request not sent")

// KeySource hands out upstream credentials and is told how each request went.
type KeySource interface {
	Next() (string, error)
	RecordResult(key string, success bool)
}

type Config struct {
	BaseURL         string
	UserAgent       string
	MinInterval     time.Duration
	RetryDelay      time.Duration
	Timeout         time.Duration
	BreakerFailures int
}

// Client performs outbound calls to the data API and the public feed endpoint.
// All calls share one pacing gate. Failures other than key exhaustion are
// logged and reported as "no data".
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	keys       KeySource
	limiter    *rate.Limiter
	retryDelay time.Duration
	breaker    *gobreaker.CircuitBreaker[*response]
}

type response struct {
	status int
	body   []byte
}

type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.status)
}

func New(cfg Config, keys KeySource, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}

	c := &Client{
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		httpClient: httpClient,
		keys:       keys,
		limiter:    rate.NewLimiter(limit, 1),
		retryDelay: cfg.RetryDelay,
	}

	if cfg.BreakerFailures > 0 {
		threshold := uint32(cfg.BreakerFailures)
		c.breaker = gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
			Name:        "upstream",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("Circuit breaker state changed", "component", "upstream", "breaker", name, "from", from.String(), "to", to.String())
			},
		})
	}

	return c
}

// CallJSON issues GET {base}/{path} with params and the current key attached.
// It returns nil data for transient failures; the only error it returns is
// key pool exhaustion. A 429 answer is retried once after the retry delay.
func (c *Client) CallJSON(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	for attempt := 0; ; attempt++ {
		key, err := c.keys.Next()
		if err != nil {
			return nil, err
		}

		query := url.Values{}
		for k, v := range params {
			query[k] = v
		}
		query.Set("key", key)

		endpoint := c.baseURL + "/" + path + "?" + query.Encode()
		resp, err := c.do(ctx, "json", endpoint)
		if errors.Is(err, errNotSent) {
			slog.Warn("Upstream request not sent", "component", "upstream", "path", path, "error", err)
			return nil, nil
		}
		if err != nil {
			c.keys.RecordResult(key, false)
			slog.Error("Upstream request failed", "component", "upstream", "path", path, "error", err)
			return nil, nil
		}

		if resp.status == http.StatusTooManyRequests && attempt == 0 {
			c.keys.RecordResult(key, false)
			metrics.UpstreamRetries.Inc()
			slog.Warn("Upstream rate limit hit, retrying", "component", "upstream", "path", path, "delay", c.retryDelay.String())
			if err := sleep(ctx, c.retryDelay); err != nil {
				return nil, nil
			}
			continue
		}

		if resp.status != http.StatusOK {
			c.keys.RecordResult(key, false)
			slog.Error("Upstream HTTP error", "component", "upstream", "path", path, "status", resp.status)
			return nil, nil
		}

		if !json.Valid(resp.body) {
			c.keys.RecordResult(key, false)
			slog.Error("Upstream returned malformed JSON", "component", "upstream", "path", path, "bytes", len(resp.body))
			return nil, nil
		}

		c.keys.RecordResult(key, true)
		return json.RawMessage(resp.body), nil
	}
}

// CallXML fetches a feed document. The feed endpoint is public, so no key is
// attached. ok is false when nothing usable came back.
func (c *Client) CallXML(ctx context.Context, feedURL string) ([]byte, bool) {
	resp, err := c.do(ctx, "xml", feedURL)
	if err != nil {
		slog.Error("Feed request failed", "component", "upstream", "url", feedURL, "error", err)
		return nil, false
	}
	if resp.status != http.StatusOK {
		slog.Error("Feed HTTP error", "component", "upstream", "url", feedURL, "status", resp.status)
		return nil, false
	}
	return resp.body, true
}

func (c *Client) do(ctx context.Context, kind, endpoint string) (*response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		metrics.RecordUpstream(kind, "cancelled", 0)
		return nil, fmt.Errorf("%w: rate gate: %w", errNotSent, err)
	}

	start := time.Now()
	exchange := func() (*response, error) {
		return c.exchange(ctx, endpoint)
	}

	var resp *response
	var err error
	if c.breaker != nil {
		resp, err = c.breaker.Execute(exchange)
	} else {
		resp, err = exchange()
	}

	var se *statusError
	switch {
	case errors.As(err, &se):
		err = nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordUpstream(kind, "breaker_open", time.Since(start))
		return nil, fmt.Errorf("%w: %w", errNotSent, err)
	}

	if err != nil {
		metrics.RecordUpstream(kind, "error", time.Since(start))
		return nil, err
	}

	metrics.RecordUpstream(kind, outcome(resp.status), time.Since(start))
	return resp, nil
}

// exchange performs one HTTP round trip. 5xx answers come back as a
// statusError alongside the response so the breaker counts them as failures.
func (c *Client) exchange(ctx context.Context, endpoint string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	resp := &response{status: httpResp.StatusCode, body: body}
	if resp.status >= http.StatusInternalServerError {
		return resp, &statusError{status: resp.status}
	}
	return resp, nil
}

func outcome(status int) string {
	switch {
	case status == http.StatusOK:
		return "ok"
	case status == http.StatusTooManyRequests:
		return "rate_limited"
	case status >= http.StatusInternalServerError:
		return "server_error"
	default:
		return "client_error"
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
