package gurunavi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stopover-food/internal/logging"
	"stopover-food/internal/venue"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.gnavi.co.jp"
	searchPath     = "/RestSearchAPI/v3/"
	hitPerPage     = 100

	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
	defaultRetryWait  = time.Second
)

// Client queries the Gurunavi RestSearchAPI v3.
type Client struct {
	httpClient *http.Client
	baseURL    string
	key        string
	maxRetries int
	retryWait  time.Duration
	limiter    *rate.Limiter
	cache      *cache.Cache
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithBaseURL points the client at another host, e.g. a test server
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the HTTP client timeout
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetry sets how many attempts a request gets on a 500 and the wait
// between them.
func WithRetry(attempts int, wait time.Duration) ClientOption {
	return func(c *Client) {
		if attempts > 0 {
			c.maxRetries = attempts
		}
		if wait >= 0 {
			c.retryWait = wait
		}
	}
}

// WithRateLimit paces outbound requests. Zero or less leaves them unpaced.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithCacheTTL keeps successful answers for ttl, keyed by request URL.
// Zero disables caching.
func WithCacheTTL(ttl time.Duration) ClientOption {
	return func(c *Client) {
		if ttl <= 0 {
			c.cache = nil
			return
		}
		c.cache = cache.New(ttl, 2*ttl)
	}
}

// NewClient creates a client authenticating with key.
func NewClient(key string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    DefaultBaseURL,
		key:        key,
		maxRetries: defaultMaxRetries,
		retryWait:  defaultRetryWait,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search implements venue.Searcher. A 404 from the API means nothing was
// found and yields an empty slice.
func (c *Client) Search(ctx context.Context, q venue.Query) ([]venue.Raw, error) {
	reqURL := c.searchURL(q)

	if c.cache != nil {
		if v, ok := c.cache.Get(reqURL); ok {
			return v.([]venue.Raw), nil
		}
	}

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return []venue.Raw{}, nil
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	out := make([]venue.Raw, 0, len(resp.Rest))
	for _, r := range resp.Rest {
		out = append(out, r.toRaw())
	}

	if c.cache != nil {
		c.cache.Set(reqURL, out, cache.DefaultExpiration)
	}
	return out, nil
}

func (c *Client) searchURL(q venue.Query) string {
	params := url.Values{}
	params.Set("keyid", c.key)
	params.Set("latitude", strconv.FormatFloat(q.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(q.Longitude, 'f', -1, 64))
	params.Set("range", strconv.Itoa(q.Range))
	params.Set("freeword", q.Keyword)
	params.Set("hit_per_page", strconv.Itoa(hitPerPage))
	return c.baseURL + searchPath + "?" + params.Encode()
}

// get returns the body of a 200 answer, nil for a 404, and retries 500s.
func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	logger := logging.FromContext(ctx)
	var lastStatus string
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
			}
		}

		status, statusText, body, err := c.do(ctx, reqURL)
		if err != nil {
			return nil, err
		}
		switch {
		case status == http.StatusOK:
			return body, nil
		case status == http.StatusNotFound:
			return nil, nil
		case status == http.StatusInternalServerError:
			lastStatus = statusText
			logger.Warn("gurunavi server error, retrying",
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", c.maxRetries))
			if attempt == c.maxRetries {
				break
			}
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
			case <-time.After(c.retryWait):
			}
		default:
			return nil, &APIError{StatusCode: status, Status: statusText, Attempts: attempt}
		}
	}
	return nil, &APIError{StatusCode: http.StatusInternalServerError, Status: lastStatus, Attempts: c.maxRetries}
}

func (c *Client) do(ctx context.Context, reqURL string) (int, string, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, "", nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, "", nil, fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
		}
		return 0, "", nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, resp.Status, nil, nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, resp.Status, body, nil
}
