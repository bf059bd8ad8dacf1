package api

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

	"github.com/example/shiporbit-client/internal/logging"
)

// TokenSource supplies the current auth token, or "" when unauthenticated.
type TokenSource interface {
	Token() string
}

// Options configures a Client.
type Options struct {
	BaseURL        string
	RequestTimeout time.Duration
	HTTPClient     *http.Client
	Logger         *slog.Logger
}

// Client is the typed REST client for the ShipOrbit backend. Once a token
// source is attached every request carries the Authorization header, and any
// 401 response triggers the unauthorized hook regardless of which call
// produced it.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	requestTimeout time.Duration
	tokens         TokenSource
	onUnauthorized func()
	logger         *slog.Logger
}

// New constructs a Client from the supplied options.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		httpClient:     httpClient,
		requestTimeout: timeout,
		logger:         logging.Default(opts.Logger),
	}
}

// SetTokenSource attaches the session token supplier.
func (c *Client) SetTokenSource(tokens TokenSource) {
	c.tokens = tokens
}

// OnUnauthorized registers the fail-safe invoked on any 401 response.
func (c *Client) OnUnauthorized(fn func()) {
	c.onUnauthorized = fn
}

func (c *Client) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return logging.ServiceLogger(ctx, c.logger, "APIClient", operation, attrs...)
}

type requestSpec struct {
	method  string
	path    string
	query   url.Values
	body    any
	headers map[string]string
}

// do executes a request against the backend and decodes the JSON response
// into out when out is non-nil. Every call runs under the client's request
// timeout so a hung backend cannot park the caller forever.
func (c *Client) do(ctx context.Context, spec requestSpec, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var bodyReader io.Reader
	if spec.body != nil {
		encoded, err := json.Marshal(spec.body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	target := c.baseURL + spec.path
	if len(spec.query) > 0 {
		target += "?" + spec.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, spec.method, target, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Token "+token)
		}
	}
	for key, value := range spec.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", spec.method, spec.path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.log(ctx, "do", "path", spec.path).WarnContext(ctx, "session rejected by backend")
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return fmt.Errorf("%s %s: %w", spec.method, spec.path, ErrUnauthorized)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", spec.method, spec.path, ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, payload)
	}

	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
