package upstream

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultStatusTimeout bounds package status lookups. Short on
	// purpose: an unreachable backend must not stall broadcasts.
	DefaultStatusTimeout = 1500 * time.Millisecond

	// DefaultStoreTimeout bounds position persistence calls.
	DefaultStoreTimeout = 2 * time.Second
)

// Client talks to the external delivery backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	statusTimeout time.Duration
	storeTimeout  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// NewClient creates a backend client.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    &http.Client{},
		logger:        slog.Default(),
		statusTimeout: DefaultStatusTimeout,
		storeTimeout:  DefaultStoreTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithStatusTimeout sets the package status lookup deadline.
func WithStatusTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.statusTimeout = d
	}
}

// WithStoreTimeout sets the position persistence deadline.
func WithStoreTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.storeTimeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// APIError represents a non-success response from the backend.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream error %d: %s", e.StatusCode, e.Message)
}
