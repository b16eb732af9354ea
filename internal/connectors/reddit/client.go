package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/oliverbatey/forager/internal/core/domain"
	"github.com/oliverbatey/forager/internal/logger"
)

const (
	// DefaultAPIURL is the OAuth API host.
	DefaultAPIURL = "https://oauth.reddit.com"

	// DefaultTokenURL is the application-only token endpoint.
	DefaultTokenURL = "https://www.reddit.com/api/v1/access_token"

	// DefaultUserAgent identifies the client as Reddit's API rules require.
	DefaultUserAgent = "go:forager:v0.3"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second
)

// Config holds connection settings for the Reddit API.
type Config struct {
	// ClientID and ClientSecret identify the Reddit "script" or "web" app (required).
	ClientID     string
	ClientSecret string

	// UserAgent is sent on every request (default: go:forager:v0.3).
	UserAgent string

	// APIURL and TokenURL can be overridden for testing.
	APIURL   string
	TokenURL string

	// RequestsPerSecond is the proactive throttle (default: 1).
	RequestsPerSecond float64

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// Client performs authenticated, rate-limited GET requests against the API.
type Client struct {
	http        *http.Client
	apiURL      string
	userAgent   string
	rateLimiter *RateLimiter
}

// userAgentTransport sets the User-Agent header, including on token requests.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}

// NewClient creates a client that authenticates with client credentials.
func NewClient(cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	base := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &userAgentTransport{base: http.DefaultTransport, userAgent: cfg.UserAgent},
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	// The token source keeps this context for refreshes, so it must outlive any request.
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	httpClient := cc.Client(tokenCtx)
	httpClient.Timeout = cfg.Timeout

	return &Client{
		http:        httpClient,
		apiURL:      strings.TrimRight(cfg.APIURL, "/"),
		userAgent:   cfg.UserAgent,
		rateLimiter: NewRateLimiter(cfg.RequestsPerSecond),
	}, nil
}

// RateLimiter returns the client's rate limiter.
func (c *Client) RateLimiter() *RateLimiter {
	return c.rateLimiter
}

// get fetches path with query and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("raw_json", "1")
	endpoint := c.apiURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("reddit: create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	logger.Debug("reddit: GET %s", path)
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("reddit: GET %s: %w: %w", path, domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if err := c.rateLimiter.CheckRateLimit(resp); err != nil {
		return err
	}

	// Unknown subreddits redirect to the search page instead of returning 404.
	if strings.HasPrefix(resp.Request.URL.Path, "/subreddits/search") {
		return &APIError{StatusCode: http.StatusNotFound, Message: "subreddit not found", URL: endpoint}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reddit: read response: %w: %w", domain.ErrUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: truncate(string(body), 200), URL: endpoint}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("reddit: decode %s: %w: %w", path, domain.ErrUpstream, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
