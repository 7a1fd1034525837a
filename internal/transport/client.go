package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 10 << 20

// Client executes JSON requests against one remote API.
type Client struct {
	service    string
	base       *url.URL
	http       *http.Client
	auth       AuthFunc
	headers    http.Header
	logger     *slog.Logger
	newBackoff func() backoff.BackOff
}

// Option configures a Client.
type Option func(*Client)

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers.Set(key, value) }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithBackoff overrides the retry policy. The function must return a fresh
// BackOff on every call.
func WithBackoff(fn func() backoff.BackOff) Option {
	return func(c *Client) { c.newBackoff = fn }
}

// DefaultBackoff retries up to three times within thirty seconds.
func DefaultBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = 30 * time.Second
	return backoff.WithMaxRetries(bo, 3)
}

// New returns a Client for service rooted at baseURL.
func New(service, baseURL string, httpClient *http.Client, auth AuthFunc, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("%s: missing base URL", service)
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid base URL: %w", service, err)
	}
	if httpClient == nil {
		httpClient = NewHTTPClient(DefaultTimeout, false)
	}
	if auth == nil {
		auth = NoAuth
	}

	c := &Client{
		service:    service,
		base:       u,
		http:       httpClient,
		auth:       auth,
		headers:    http.Header{},
		logger:     slog.New(slog.DiscardHandler),
		newBackoff: DefaultBackoff,
	}
	c.headers.Set("Accept", "application/json")
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Service returns the name used in errors and logs.
func (c *Client) Service() string { return c.service }

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() *url.URL { return c.base }

// Request describes one API call. Body, when set, is JSON encoded.
type Request struct {
	Method string
	Path   string
	Query  map[string]string
	Body   any
}

// Response is a successful (2xx) reply.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Do executes req. Non-2xx replies become *APIError. Idempotent methods are
// retried on network errors and transient statuses; POST is only retried
// when the remote rate limited it, since a timed out create may have
// succeeded.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	u, err := resolveURL(c.base, req.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: build url: %w", errRequest, c.service, err)
	}
	mergeQuery(u, req.Query)

	var payload []byte
	if req.Body != nil {
		payload, err = json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: marshal request body: %w", errRequest, c.service, err)
		}
	}

	retryAny := isIdempotent(method)
	var out *Response
	attempt := 0

	op := func() error {
		attempt++
		resp, err := c.once(ctx, method, u, payload)
		if err != nil {
			if retryAny && ctx.Err() == nil {
				return err
			}
			return backoff.Permanent(err)
		}

		c.logger.Debug("remote request",
			"service", c.service,
			"method", method,
			"path", u.Path,
			"status", resp.StatusCode,
			"attempt", attempt,
		)

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			out = resp
			return nil
		}

		apiErr := &APIError{
			Service:     c.service,
			Method:      method,
			Path:        u.Path,
			StatusCode:  resp.StatusCode,
			Body:        string(trim(resp.Body, maxErrorBody)),
			RateLimited: rateLimited(resp),
		}
		if apiErr.RateLimited || (retryAny && apiErr.Transient()) {
			return apiErr
		}
		return backoff.Permanent(apiErr)
	}

	if err := backoff.Retry(op, backoff.WithContext(c.newBackoff(), ctx)); err != nil {
		return nil, err
	}
	return out, nil
}

// JSON executes req and decodes a non-empty response body into out.
func (c *Client) JSON(ctx context.Context, req Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.service, err)
	}
	return nil
}

func (c *Client) once(ctx context.Context, method string, u *url.URL, payload []byte) (*Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: build request: %w", errRequest, c.service, err)
	}
	req.Header = c.headers.Clone()
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.auth(req)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", c.service, err)
	}
	defer res.Body.Close() // nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", c.service, err)
	}
	return &Response{StatusCode: res.StatusCode, Header: res.Header, Body: raw}, nil
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// rateLimited detects 429 and GitHub's 403 with an exhausted quota.
func rateLimited(resp *Response) bool {
	if resp.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0"
}
