// package fetch provides the resilient GET primitive every upstream call in
// the pipeline goes through.
//
// Transient failures (throttling, upstream 5xx, transport errors) are retried
// on a fixed ascending wait schedule; anything else fails immediately. The
// retry policy lives in a [backoff.BackOff] so it can be tested without a
// network.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
)

// DefaultSchedule is the wait applied before each retry. The first attempt
// has zero wait, so total attempts = len(schedule) + 1.
var DefaultSchedule = []time.Duration{
	10 * time.Second,
	30 * time.Second,
	2 * time.Minute,
	5 * time.Minute,
	10 * time.Minute,
	15 * time.Minute,
}

const defaultTimeout = 20 * time.Second

// TransportConfig configures a [Client]. It replaces any process-wide
// networking toggles: a caller that needs IPv4-only resolution sets ForceIPv4
// here instead of mutating global state.
type TransportConfig struct {
	Timeout   time.Duration   // per-attempt timeout; defaults to 20s
	UserAgent string          // sent on every request
	ForceIPv4 bool            // dial tcp4 only
	Schedule  []time.Duration // retry waits; defaults to DefaultSchedule
}

// Response is a completed HTTP response with the body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// DecodeJSON unmarshals the response body into v.
func (r *Response) DecodeJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// FetchError reports a request that failed for good: either a fatal HTTP
// status or an exhausted retry schedule. Err carries the last observed cause.
type FetchError struct {
	URL        string
	LastStatus int // 0 when the last failure was a transport error
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether an HTTP status should consume a retry slot.
// Transport-level errors are always retryable.
func Retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Client is a resilient HTTP GET client. It has no knowledge of payload
// shape; service clients layer their decoding on top of it.
type Client struct {
	httpClient *http.Client
	schedule   []time.Duration
	userAgent  string
	logger     *log.Logger
}

// NewClient builds a Client from the given transport configuration.
func NewClient(cfg TransportConfig, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	schedule := cfg.Schedule
	if schedule == nil {
		schedule = DefaultSchedule
	}

	httpClient := &http.Client{Timeout: timeout}
	if cfg.ForceIPv4 {
		dialer := &net.Dialer{Timeout: timeout}
		httpClient.Transport = &http.Transport{
			DialContext: func(ctx context.Context, _, addr string) (net.Conn, error) {
				return dialer.DialContext(ctx, "tcp4", addr)
			},
		}
	}

	return &Client{
		httpClient: httpClient,
		schedule:   schedule,
		userAgent:  cfg.UserAgent,
		logger:     logger,
	}
}

// Get performs a GET with the retry schedule applied. Any status < 400 is a
// success (a 204 with an empty body is a normal response, not an error).
// Retryable failures consume schedule slots; other HTTP errors fail
// immediately. The returned error is always a *FetchError on failure.
func (c *Client) Get(ctx context.Context, rawURL string, headers map[string]string, params url.Values) (*Response, error) {
	fullURL := rawURL
	if len(params) > 0 {
		fullURL = rawURL + "?" + params.Encode()
	}

	var (
		resp       *Response
		attempts   int
		lastStatus int
	)

	op := func() error {
		attempts++
		r, err := c.do(ctx, fullURL, headers)
		if err != nil {
			lastStatus = 0
			c.logger.Debug("fetch attempt failed", "url", fullURL, "attempt", attempts, "err", err)
			return err
		}

		lastStatus = r.StatusCode
		if r.StatusCode < http.StatusBadRequest {
			resp = r
			return nil
		}

		if Retryable(r.StatusCode) {
			c.logger.Debug("fetch attempt failed", "url", fullURL, "attempt", attempts, "status", r.StatusCode)
			return fmt.Errorf("%s returned status %d", rawURL, r.StatusCode)
		}

		return backoff.Permanent(fmt.Errorf("%s returned fatal status %d", rawURL, r.StatusCode))
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("retrying fetch", "url", rawURL, "wait", wait, "err", err)
	}

	sched := &scheduleBackOff{waits: c.schedule}
	if err := backoff.RetryNotify(op, backoff.WithContext(sched, ctx), notify); err != nil {
		return nil, &FetchError{URL: fullURL, LastStatus: lastStatus, Attempts: attempts, Err: err}
	}

	return resp, nil
}

func (c *Client) do(ctx context.Context, fullURL string, headers map[string]string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		// A malformed URL will never succeed on retry.
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Response{StatusCode: res.StatusCode, Header: res.Header, Body: body}, nil
}

// scheduleBackOff walks a fixed list of waits and stops when it runs out.
type scheduleBackOff struct {
	waits []time.Duration
	idx   int
}

func (s *scheduleBackOff) NextBackOff() time.Duration {
	if s.idx >= len(s.waits) {
		return backoff.Stop
	}
	d := s.waits[s.idx]
	s.idx++
	return d
}

func (s *scheduleBackOff) Reset() { s.idx = 0 }
