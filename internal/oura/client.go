// Package oura is the HTTP client for the ring's v2 usercollection API:
// request construction, response classification, retry and pagination.
package oura

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/spiffcs/vitals/internal/constants"
	"github.com/spiffcs/vitals/internal/log"
	"github.com/spiffcs/vitals/internal/metrics"
	"github.com/spiffcs/vitals/internal/model"
	"github.com/spiffcs/vitals/internal/retry"
)

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// RequestsPerSecond paces outgoing requests. Zero disables pacing.
	RequestsPerSecond float64
	// MaxPages fails a drain after this many pages. Zero disables the limit.
	MaxPages int
	Retry    retry.Policy
	// HTTPClient overrides the transport (for testing).
	HTTPClient *http.Client
	// Sleep and Jitter override backoff timing (for testing).
	Sleep  func(ctx context.Context, d time.Duration) error
	Jitter func() float64
}

// DefaultOptions returns the production API settings.
func DefaultOptions() Options {
	return Options{
		BaseURL:  constants.DefaultBaseURL,
		Timeout:  constants.DefaultRequestTimeout,
		MaxPages: constants.DefaultMaxPages,
		Retry:    retry.DefaultPolicy(),
	}
}

// Response is a raw HTTP response with the body already read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client issues authenticated GET requests against collection endpoints.
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	retrier  *Retrier
	maxPages int
}

// pacingTransport spaces requests so a wide fan-out does not trip the
// server's rate limit.
type pacingTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *pacingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

// NewClient creates a client for the given options.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = constants.DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid API base URL %q: scheme must be http or https", opts.BaseURL)
	}
	if err := opts.Retry.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry policy: %w", err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = constants.DefaultRequestTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	transport := httpClient.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	paced := *httpClient
	paced.Transport = &pacingTransport{
		base:    transport,
		limiter: rate.NewLimiter(limit, 1),
	}

	return &Client{
		baseURL: base,
		http:    &paced,
		retrier: &Retrier{
			Policy: opts.Retry,
			Sleep:  opts.Sleep,
			Jitter: opts.Jitter,
		},
		maxPages: opts.MaxPages,
	}, nil
}

// Get issues one GET to endpoint for the date range, continuing from cursor
// when non-empty. Transport failures are returned as KindNetwork, or
// KindCancelled when ctx ended. Non-2xx responses are returned unclassified.
func (c *Client) Get(ctx context.Context, endpoint string, rng model.DateRange, cursor string, tok *oauth2.Token) (*Response, error) {
	q := url.Values{}
	q.Set("start_date", rng.StartDate())
	q.Set("end_date", rng.EndDate())
	if cursor != "" {
		q.Set("next_token", cursor)
	}

	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + endpoint
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &Error{Kind: KindHTTP, Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if tok != nil {
		tok.SetAuthHeader(req)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordAPIRequest(endpoint, 0, time.Since(start))
		if ctx.Err() != nil {
			return nil, cancelled(endpoint, ctx.Err())
		}
		return nil, &Error{Kind: KindNetwork, Endpoint: endpoint, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	var reader io.Reader = resp.Body
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reader = io.LimitReader(resp.Body, constants.MaxErrorBodyBytes)
	}
	body, err := io.ReadAll(reader)
	metrics.RecordAPIRequest(endpoint, resp.StatusCode, time.Since(start))
	if err != nil {
		if ctx.Err() != nil {
			return nil, cancelled(endpoint, ctx.Err())
		}
		return nil, &Error{Kind: KindNetwork, Endpoint: endpoint, Err: fmt.Errorf("reading body: %w", err)}
	}

	log.Trace("api response", "endpoint", endpoint, "status", resp.StatusCode, "bytes", len(body), "cursor", cursor != "")

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}
