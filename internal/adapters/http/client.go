package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"ctbadmin/internal/adapters/http/middleware"
	"ctbadmin/internal/adapters/http/perf"
	"ctbadmin/internal/domain/catalog"
)

// Defaults
const (
	DefaultBaseURL = "https://api.centrebienetre.ca"
	DefaultTimeout = 15 * time.Second
)

// maxErrorBody bounds how much of an error response is read for its message.
const maxErrorBody = 64 << 10

// Options configures a Client.
type Options struct {
	BaseURL       string
	Timeout       time.Duration
	Limiter       *rate.Limiter
	Collector     *perf.Collector
	SlowRequestMs int
	// Transport is the innermost round tripper; nil means http.DefaultTransport.
	Transport http.RoundTripper
}

// Client is the single entry point to the backend REST API. Every call goes
// through the same interceptor chain: pacing, timing, bearer token and the
// unauthorized hook.
type Client struct {
	baseURL string
	http    *http.Client

	mu             sync.RWMutex
	token          func() string
	onUnauthorized func()
}

// New builds a client. Authentication hooks are attached later with AttachAuth.
// PRE: none
// POST: Returns a client with defaults applied for empty options
func New(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{baseURL: base}
	transport := middleware.Chain(opts.Transport,
		middleware.RateLimit(opts.Limiter),
		middleware.Timing(opts.Collector, opts.SlowRequestMs),
		middleware.Unauthorized(c.unauthorized, middleware.IsLoginRequest),
		middleware.Bearer(c.currentToken),
	)
	c.http = &http.Client{Transport: transport, Timeout: timeout}
	return c
}

// AttachAuth installs the token source and the callback run when the backend
// rejects the session. It may be called once at startup, after the session
// store that depends on this client has been built.
func (c *Client) AttachAuth(token func() string, onUnauthorized func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.onUnauthorized = onUnauthorized
}

// BaseURL returns the API root without trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) currentToken() string {
	c.mu.RLock()
	fn := c.token
	c.mu.RUnlock()
	if fn == nil {
		return ""
	}
	return fn()
}

func (c *Client) unauthorized() {
	c.mu.RLock()
	fn := c.onUnauthorized
	c.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// send performs one call and returns the raw 2xx response body.
func (c *Client) send(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %w", method, path, ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{
			Status:  resp.StatusCode,
			Method:  method,
			Path:    stripQuery(path),
			Message: errorMessage(raw),
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w: %w", method, path, ErrNetwork, err)
	}
	return raw, nil
}

// do performs a call and decodes the JSON answer into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	raw, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, stripQuery(path), err)
	}
	return nil
}

// create performs a POST and extracts the new id from the answer.
func (c *Client) create(ctx context.Context, path string, body any) (catalog.ID, error) {
	raw, err := c.send(ctx, http.MethodPost, path, body)
	if err != nil {
		return "", err
	}
	id, err := decodeID(raw)
	if err != nil {
		return "", fmt.Errorf("POST %s: %w", path, err)
	}
	return id, nil
}

// decodeID accepts {"id":…} and {"data":{"id":…}}; ids may be numbers or strings.
func decodeID(raw []byte) (catalog.ID, error) {
	var envelope struct {
		ID   catalog.ID `json:"id"`
		Data *struct {
			ID catalog.ID `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", fmt.Errorf("decode id: %w", err)
	}
	if !envelope.ID.IsZero() {
		return envelope.ID, nil
	}
	if envelope.Data != nil && !envelope.Data.ID.IsZero() {
		return envelope.Data.ID, nil
	}
	return "", ErrNoID
}

// errorMessage extracts a human message from an error body.
func errorMessage(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
		return ""
	}
	msg := string(raw)
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

func stripQuery(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}

func seg(id catalog.ID) string {
	return url.PathEscape(id.String())
}
