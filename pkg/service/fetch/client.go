// Package fetch is the rate-limited HTTP layer shared by the marketplace and
// inventory clients. Expected upstream failures never escape it as errors from
// Fetch: they end in "no data".
package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/time/rate"

	"github.com/secmon-lab/tradescout/pkg/utils/logging"
	"github.com/secmon-lab/tradescout/pkg/utils/safe"
)

// DefaultUserAgent is a desktop browser signature. Some upstreams block
// non-browser agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const (
	DefaultMaxAttempts     = 4
	DefaultThrottleBackoff = 15 * time.Second
	DefaultErrorBackoff    = 5 * time.Second
	DefaultRequestTimeout  = 15 * time.Second
)

var (
	// ErrThrottled is returned by Get when upstream answers 429
	ErrThrottled = goerr.New("upstream throttled the request")
	// ErrUnexpectedStatus is returned by Get for any other non-2xx answer
	ErrUnexpectedStatus = goerr.New("unexpected upstream status")
	// ErrSkipEndpoint is returned by a decoder to move on to the next sibling
	// endpoint without counting a failure
	ErrSkipEndpoint = goerr.New("endpoint has no usable data")
)

// Client issues paced GET requests
type Client struct {
	httpClient      *http.Client
	limiter         *rate.Limiter
	maxAttempts     int
	throttleBackoff time.Duration
	errorBackoff    time.Duration
	userAgent       string
	sleep           func(ctx context.Context, d time.Duration) error
}

// Option configures a Client
type Option func(*Client)

// WithMinInterval enforces a minimum spacing between request starts. Zero
// disables pacing.
func WithMinInterval(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithMaxAttempts sets how many rounds over the endpoint list Fetch makes
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithThrottleBackoff sets the wait after a round that was throttled
func WithThrottleBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.throttleBackoff = d
	}
}

// WithErrorBackoff sets the wait after a round that failed for another reason.
// Zero means such failures are not retried.
func WithErrorBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.errorBackoff = d
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserAgent replaces the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithSleeper replaces how the client waits between attempts
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		c.sleep = sleep
	}
}

// New creates a Client. Without options it does not pace requests.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient:      &http.Client{Timeout: DefaultRequestTimeout},
		limiter:         rate.NewLimiter(rate.Inf, 1),
		maxAttempts:     DefaultMaxAttempts,
		throttleBackoff: DefaultThrottleBackoff,
		errorBackoff:    DefaultErrorBackoff,
		userAgent:       DefaultUserAgent,
		sleep:           sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs one paced request and returns the body of a 2xx response
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, goerr.Wrap(err, "pacing wait aborted", goerr.V("url", url))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build request", goerr.V("url", url))
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "request failed", goerr.V("url", url))
	}
	defer safe.DrainClose(ctx, resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read body", goerr.V("url", url))
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, goerr.Wrap(ErrThrottled, "throttled", goerr.V("url", url))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, goerr.Wrap(ErrUnexpectedStatus, "non-2xx response",
			goerr.V("url", url), goerr.V("status", resp.StatusCode))
	}
	return body, nil
}

// Fetch tries each endpoint in order, up to the client's attempt limit, and
// returns the first decoded value. A throttled request ends the round at once.
// Between rounds it waits the throttle backoff if the round was throttled, the
// error backoff otherwise; there is no wait after the final round. It returns nil
// when every round fails.
func Fetch[T any](ctx context.Context, c *Client, endpoints []string, decode func([]byte) (*T, error)) *T {
	logger := logging.From(ctx)

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		throttled := false
		failed := false

		for _, url := range endpoints {
			body, err := c.Get(ctx, url)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				if errors.Is(err, ErrThrottled) {
					logger.Warn("upstream throttled", "url", url, "attempt", attempt)
					throttled = true
					break
				}
				logger.Debug("fetch failed", "url", url, "attempt", attempt, "error", err)
				failed = true
				continue
			}

			v, err := decode(body)
			if err != nil {
				if !errors.Is(err, ErrSkipEndpoint) {
					logger.Debug("malformed response", "url", url, "error", err)
					failed = true
				}
				continue
			}
			if v != nil {
				return v
			}
		}

		if attempt == c.maxAttempts {
			break
		}

		backoff := c.errorBackoff
		if throttled {
			backoff = c.throttleBackoff
		} else if failed && c.errorBackoff <= 0 {
			return nil
		}

		logger.Debug("backing off", "duration", backoff, "attempt", attempt, "throttled", throttled)
		if err := c.sleep(ctx, backoff); err != nil {
			return nil
		}
	}

	return nil
}

// Paginate follows continuation cursors. pageURL builds the URL for a cursor (the
// first page has an empty cursor); handle consumes one page and returns the next
// cursor, empty when done. A throttled page is retried with the throttle backoff
// up to the client's attempt limit. A failure on the first page is returned. A
// later failure stops the walk and keeps what was already handled, except for
// throttling: a walk cut short by a 429 returns ErrThrottled with the page count,
// since its partial result is not a complete answer.
func Paginate(ctx context.Context, c *Client, pageURL func(cursor string) string, handle func(body []byte) (string, error)) (int, error) {
	cursor := ""
	pages := 0

	for {
		body, err := c.getPage(ctx, pageURL(cursor))
		if err == nil {
			var next string
			next, err = handle(body)
			if err == nil {
				pages++
				if next == "" {
					return pages, nil
				}
				cursor = next
				continue
			}
		}

		if pages == 0 || errors.Is(err, ErrThrottled) {
			return pages, err
		}
		logging.From(ctx).Debug("pagination stopped early", "pages", pages, "error", err)
		return pages, nil
	}
}

// getPage retries a throttled request until it succeeds, fails otherwise or the
// attempt limit is reached
func (c *Client) getPage(ctx context.Context, url string) ([]byte, error) {
	for attempt := 1; ; attempt++ {
		body, err := c.Get(ctx, url)
		if err == nil || !errors.Is(err, ErrThrottled) || attempt >= c.maxAttempts {
			return body, err
		}

		logging.From(ctx).Warn("upstream throttled", "url", url, "attempt", attempt)
		if err := c.sleep(ctx, c.throttleBackoff); err != nil {
			return nil, goerr.Wrap(err, "interrupted during throttle backoff", goerr.V("url", url))
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
