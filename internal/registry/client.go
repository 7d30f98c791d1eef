package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/rs/dnscache"
)

var (
	ErrNotFound     = errors.New("registry resource not found")
	ErrRateLimited  = errors.New("rate limited by registry")
	ErrUpstreamDown = errors.New("registry unavailable")
)

// maxDocumentSize bounds registry documents read into memory.
const maxDocumentSize = 64 << 20

// Client issues GET requests against a registry and decodes JSON documents.
// Rate limited and server errors are retried with exponential backoff.
type Client struct {
	client     *http.Client
	userAgent  string
	maxRetries int
	baseDelay  time.Duration
	authFn     func(url string) (headerName, headerValue string)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.client = c
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// WithMaxRetries sets the maximum retry attempts.
func WithMaxRetries(n int) Option {
	return func(cl *Client) {
		cl.maxRetries = n
	}
}

// WithBaseDelay sets the base delay for exponential backoff.
func WithBaseDelay(d time.Duration) Option {
	return func(cl *Client) {
		cl.baseDelay = d
	}
}

// WithTimeout sets the overall timeout of a single HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.client.Timeout = d
		}
	}
}

// WithBearerToken authenticates every request with the given token.
func WithBearerToken(token string) Option {
	return func(cl *Client) {
		if token == "" {
			return
		}
		cl.authFn = func(string) (string, string) {
			return "Authorization", "Bearer " + token
		}
	}
}

// NewClient creates a Client whose transport resolves hosts through a DNS cache.
func NewClient(opts ...Option) *Client {
	resolver := &dnscache.Resolver{}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			resolver.Refresh(true)
		}
	}()

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	cl := &Client{
		client: &http.Client{
			Timeout: time.Minute,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
					host, port, err := net.SplitHostPort(addr)
					if err != nil {
						return nil, err
					}
					ips, err := resolver.LookupHost(ctx, host)
					if err != nil {
						return nil, err
					}
					for _, ip := range ips {
						conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
						if err == nil {
							return conn, nil
						}
					}
					return nil, fmt.Errorf("failed to dial any resolved IP")
				},
				MaxIdleConns:          20,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		userAgent:  "launcher/1.0",
		maxRetries: 3,
		baseDelay:  500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

// GetJSON fetches url and decodes the JSON body into v.
func (cl *Client) GetJSON(ctx context.Context, url string, v any) error {
	var lastErr error

	for attempt := 0; attempt <= cl.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff with 10% jitter
			delay := cl.baseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			jitter := time.Duration(float64(delay) * (rand.Float64() * 0.1))
			delay += jitter

			getLogger("client").Debug("retrying registry request",
				"url", url,
				"attempt", attempt,
				"delay", delay,
				"error", lastErr,
			)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := cl.doGet(ctx, url, v)
		if err == nil {
			return nil
		}

		lastErr = err

		if errors.Is(err, ErrNotFound) {
			return err
		}

		if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUpstreamDown) {
			continue
		}

		return err
	}

	return lastErr
}

func (cl *Client) doGet(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", cl.userAgent)
	req.Header.Set("Accept", "application/json")

	if cl.authFn != nil {
		if name, value := cl.authFn(url); name != "" && value != "" {
			req.Header.Set(name, value)
		}
	}

	resp, err := cl.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxDocumentSize)).Decode(v); err != nil {
			return fmt.Errorf("decoding %s: %w", url, err)
		}
		return nil

	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", url, ErrNotFound)

	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited

	case resp.StatusCode >= 500:
		return ErrUpstreamDown

	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
}
