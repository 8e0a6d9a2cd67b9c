// pkg/jira/client.go
package jira

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/danexplore/JiraSQL/pkg/config"
)

const searchPath = "/rest/api/2/search"

// ErrMalformedResponse marks a page whose body is not a search result
var ErrMalformedResponse = errors.New("malformed search response")

// HTTPError carries status and body of a non-2xx response
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("jira request %s %s failed with status %d: %s", e.Method, e.URL, e.StatusCode, snippet(e.Body, 300))
}

// RetryError is returned once every attempt of a request has failed
type RetryError struct {
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("jira request failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

// Client talks to the Jira REST API
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	username   string
	apiToken   string
	cookie     string

	retryAttempts    int
	retryDelay       time.Duration
	strictPagination bool
	limiter          *rate.Limiter

	logger *zap.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the client logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Jira client from configuration
func NewClient(cfg *config.JiraConfig, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("jira configuration cannot be nil")
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse jira base URL: %w", err)
	}

	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	c := &Client{
		baseURL:          base,
		httpClient:       &http.Client{Timeout: cfg.RequestTimeout},
		username:         cfg.Username,
		apiToken:         cfg.APIToken,
		cookie:           cfg.Cookie,
		retryAttempts:    attempts,
		retryDelay:       cfg.RetryDelay,
		strictPagination: cfg.StrictPagination,
		limiter:          rate.NewLimiter(rate.Inf, 1),
		logger:           zap.L().Named("jira-client"),
	}

	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// BrowseURL returns the web link of an issue
func (c *Client) BrowseURL(key string) string {
	return c.baseURL.String() + "/browse/" + key
}

// searchPage fetches one page of a search starting at startAt
func (c *Client) searchPage(ctx context.Context, q Query, startAt int) (*SearchResult, error) {
	params := url.Values{}
	params.Set("jql", q.JQL)
	if len(q.Fields) > 0 {
		params.Set("fields", strings.Join(q.Fields, ","))
	}
	params.Set("startAt", strconv.Itoa(startAt))
	params.Set("maxResults", strconv.Itoa(q.PageSize))

	body, err := c.get(ctx, searchPath, params)
	if err != nil {
		return nil, err
	}

	return decodeSearchResult(body)
}

func decodeSearchResult(body []byte) (*SearchResult, error) {
	var page struct {
		StartAt    int      `json:"startAt"`
		MaxResults int      `json:"maxResults"`
		Total      int      `json:"total"`
		Issues     *[]Issue `json:"issues"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if page.Issues == nil {
		return nil, fmt.Errorf("%w: missing issues", ErrMalformedResponse)
	}

	return &SearchResult{
		StartAt:    page.StartAt,
		MaxResults: page.MaxResults,
		Total:      page.Total,
		Issues:     *page.Issues,
	}, nil
}

// get performs a GET with a fixed delay between attempts. Transport errors
// and non-2xx responses are retried; cancellation is not.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := c.baseURL.String() + path + "?" + params.Encode()

	var lastErr error
	for attempt := 1; attempt <= c.retryAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, err := c.do(ctx, endpoint)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err

		fields := []zap.Field{
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", c.retryAttempts),
			zap.Error(err),
		}
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			fields = append(fields, zap.Int("statusCode", httpErr.StatusCode))
		}

		if attempt == c.retryAttempts {
			c.logger.Error("Jira request failed, giving up", fields...)
			break
		}
		c.logger.Warn("Jira request failed, retrying", append(fields, zap.Duration("delay", c.retryDelay))...)

		if err := sleep(ctx, c.retryDelay); err != nil {
			return nil, err
		}
	}

	return nil, &RetryError{Attempts: c.retryAttempts, Err: lastErr}
}

func (c *Client) do(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	} else if c.username != "" {
		req.SetBasicAuth(c.username, c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{
			Method:     req.Method,
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Body:       body,
		}
	}

	return body, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func snippet(b []byte, max int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
