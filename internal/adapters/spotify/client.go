package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/ewilliams-labs/song-bot/internal/core/ports"
	"github.com/ewilliams-labs/song-bot/internal/metrics"
)

const (
	DefaultBaseURL  = "https://api.spotify.com/v1"
	DefaultTokenURL = "https://accounts.spotify.com/api/token"

	defaultTimeout = 10 * time.Second
	defaultMarket  = "US"
)

// Config holds what New needs to talk to the Web API.
type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	TokenURL     string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	// RequestsPerSecond caps outgoing calls. Zero disables the limiter.
	RequestsPerSecond float64
	Burst             int
}

// Client is an HTTP client for the Spotify adapter.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	market      string
	maxRetries  int
	baseBackoff time.Duration
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker[*http.Response]
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// compile-time interface assertions
var (
	_ ports.MusicLookup   = (*Client)(nil)
	_ ports.CatalogSource = (*Client)(nil)
)

// Option configures a Client.
type Option func(*Client)

// WithMetrics records per-call latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRetry overrides the retry policy.
func WithRetry(maxRetries int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.baseBackoff = backoff
	}
}

// WithRateLimit installs a token bucket in front of every request.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// New builds a client that authenticates with the client-credentials flow.
// The token is fetched lazily on the first request and refreshed as needed.
func New(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("spotify adapter: client id and secret are required")
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
	}
	httpClient := cc.Client(ctx)
	httpClient.Timeout = timeout

	base := []Option{WithRetry(cfg.MaxRetries, cfg.RetryBackoff), WithRateLimit(cfg.RequestsPerSecond, cfg.Burst)}
	return NewClientWithBaseURL(httpClient, baseURL, append(base, opts...)...), nil
}

// NewClientWithBaseURL constructs a client around an already authorized
// httpClient. Tests point baseURL at an httptest server.
func NewClientWithBaseURL(httpClient *http.Client, baseURL string, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	maxRetries, backoff := retryFromEnv()
	c := &Client{
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(baseURL, "/"),
		market:      defaultMarket,
		maxRetries:  maxRetries,
		baseBackoff: backoff,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = newBreaker(c.logger)
	return c
}

func newBreaker(logger *zap.Logger) *gobreaker.CircuitBreaker[*http.Response] {
	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "spotify-api",
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		IsSuccessful: breakerSuccess,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("spotify adapter: circuit breaker state change",
				zap.String("breaker", name), zap.Stringer("from", from), zap.Stringer("to", to))
		},
	})
}

// getJSON issues GET baseURL+path?query through the breaker and decodes a 200
// body into out. Every failure, including an open breaker, comes back as
// *ports.LookupError.
func (c *Client) getJSON(ctx context.Context, op, path string, query url.Values, out any) (err error) {
	start := time.Now()
	defer func() { c.metrics.ObserveLookup(op, time.Since(start), err) }()

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	c.logger.Debug("spotify adapter: request", zap.String("op", op), zap.String("url", endpoint))
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		return c.fetch(ctx, op, endpoint)
	})
	if err != nil {
		var le *ports.LookupError
		if errors.As(err, &le) {
			return le
		}
		return &ports.LookupError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &ports.LookupError{Op: op, Status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ports.LookupError{Op: op, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}
