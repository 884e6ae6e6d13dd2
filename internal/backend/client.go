package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/humanizer/internal/model"
	"golang.org/x/net/proxy"
)

const (
	// DefaultTimeout bounds one HTTP exchange with the backend. Model calls
	// carry their own, usually shorter, deadline.
	DefaultTimeout = 5 * time.Minute

	// maxResponseBytes caps decoded response bodies.
	maxResponseBytes = 8 << 20

	// maxErrorBytes caps the part of an error body quoted in errors.
	maxErrorBytes = 4 << 10
)

// Client is an HTTP+JSON client for remote inference servers.
// It is safe for concurrent use.
type Client struct {
	// baseURL serves every model without an entry in endpoints.
	baseURL string

	// endpoints maps model ids to the base URL of a dedicated server.
	endpoints map[string]string

	proxyAddress string
	apiKey       string
	timeout      time.Duration
	httpClient   *http.Client
	logger       *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithProxy routes all requests through the SOCKS5 proxy at address
// ("host:port").
func WithProxy(address string) Option {
	return func(c *Client) {
		c.proxyAddress = address
	}
}

// WithAPIKey sends key as a bearer token with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithTimeout sets the HTTP timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithEndpoints serves the given model ids from their own base URLs.
func WithEndpoints(endpoints map[string]string) Option {
	return func(c *Client) {
		for id, u := range endpoints {
			c.endpoints[id] = u
		}
	}
}

// WithHTTPClient replaces the HTTP client. Proxy and API key options are
// applied on top of its transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the server at baseURL. baseURL may be
// empty when every remote model has its own endpoint.
//
// No connection is made here; call Ping to check the server.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		endpoints: make(map[string]string),
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	var err error
	if baseURL != "" {
		if c.baseURL, err = normalizeBaseURL(baseURL); err != nil {
			return nil, err
		}
	}
	for id, u := range c.endpoints {
		if c.endpoints[id], err = normalizeBaseURL(u); err != nil {
			return nil, fmt.Errorf("endpoint for %s: %w", id, err)
		}
	}
	if c.proxyAddress != "" && !isValidProxyAddress(c.proxyAddress) {
		return nil, ErrInvalidProxyAddress
	}

	if c.httpClient, err = c.newHTTPClient(); err != nil {
		return nil, err
	}
	return c, nil
}

// normalizeBaseURL checks u and drops any trailing slash.
func normalizeBaseURL(u string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(u))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidBaseURL, u)
	}
	return strings.TrimRight(parsed.String(), "/"), nil
}

// isValidProxyAddress reports whether address is "host:port" with a
// non-empty host and a port in 1..65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// newHTTPClient builds the HTTP client, dialing through the SOCKS5 proxy
// when one is configured.
func (c *Client) newHTTPClient() (*http.Client, error) {
	hc := c.httpClient
	if hc == nil {
		hc = &http.Client{}
	} else {
		clone := *hc
		hc = &clone
	}
	if hc.Timeout == 0 {
		hc.Timeout = c.timeout
	}

	base := hc.Transport
	if c.proxyAddress != "" {
		dialer, err := proxy.SOCKS5("tcp", c.proxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport := &http.Transport{
			DialContext:         dialContext(dialer),
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		}
		base = transport
	}
	if base == nil {
		base = http.DefaultTransport
	}
	if c.apiKey != "" {
		base = &authTransport{base: base, token: c.apiKey}
	}
	hc.Transport = base
	return hc, nil
}

// dialContext adapts a proxy.Dialer to http.Transport.DialContext. Dialers
// without context support are raced against ctx.
func dialContext(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		type dialResult struct {
			conn net.Conn
			err  error
		}
		ch := make(chan dialResult, 1)
		go func() {
			conn, err := d.Dial(network, addr)
			ch <- dialResult{conn, err}
		}()
		select {
		case r := <-ch:
			return r.conn, r.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// authTransport adds a bearer token to every request.
type authTransport struct {
	base  http.RoundTripper
	token string
}

// RoundTrip implements http.RoundTripper.
func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(clone)
}

// BaseURL returns the default server URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ProxyAddress returns the configured proxy address, or "".
func (c *Client) ProxyAddress() string {
	return c.proxyAddress
}

// Endpoint returns the base URL serving modelID.
func (c *Client) Endpoint(modelID string) (string, error) {
	if u, ok := c.endpoints[modelID]; ok {
		return u, nil
	}
	if c.baseURL == "" {
		return "", ErrNoBackend
	}
	return c.baseURL, nil
}

type scoreRequest struct {
	Model string `json:"model"`
	Text  string `json:"text"`
}

type scoreResponse struct {
	AIProbability *float64 `json:"ai_probability"`
}

type generateRequest struct {
	Model   string                  `json:"model"`
	Text    string                  `json:"text"`
	Options model.GenerationOptions `json:"options"`
}

type generateResponse struct {
	Text *string `json:"text"`
}

type loadRequest struct {
	Model string `json:"model"`
}

// Score asks the server for the AI probability of text under modelID.
func (c *Client) Score(ctx context.Context, modelID, text string) (float64, error) {
	var resp scoreResponse
	if err := c.post(ctx, modelID, "/v1/score", scoreRequest{Model: modelID, Text: text}, &resp); err != nil {
		return 0, err
	}
	if resp.AIProbability == nil {
		return 0, fmt.Errorf("%w: missing ai_probability", ErrBadResponse)
	}
	p := *resp.AIProbability
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, fmt.Errorf("%w: ai_probability %v out of range", ErrBadResponse, p)
	}
	return p, nil
}

// Generate asks the server to generate from text with modelID.
func (c *Client) Generate(ctx context.Context, modelID, text string, opts model.GenerationOptions) (string, error) {
	var resp generateResponse
	req := generateRequest{Model: modelID, Text: text, Options: opts}
	if err := c.post(ctx, modelID, "/v1/generate", req, &resp); err != nil {
		return "", err
	}
	if resp.Text == nil {
		return "", fmt.Errorf("%w: missing text", ErrBadResponse)
	}
	return *resp.Text, nil
}

// Load asks the server to make modelID resident.
func (c *Client) Load(ctx context.Context, modelID string) error {
	return c.post(ctx, modelID, "/v1/load", loadRequest{Model: modelID}, nil)
}

// Ping checks that the default server answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	if c.baseURL == "" {
		return ErrNoBackend
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach inference backend: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus(resp, "/healthz")
}

// post sends body as JSON to path on the server of modelID and decodes the
// response into out, unless out is nil.
func (c *Client) post(ctx context.Context, modelID, path string, body, out any) error {
	base, err := c.Endpoint(modelID)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("inference backend call",
		"path", path,
		"model", modelID,
		"status", resp.StatusCode,
		"elapsed", time.Since(start),
	)

	if err := checkStatus(resp, path); err != nil {
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes)) //nolint:errcheck // draining for connection reuse
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return nil
}

// checkStatus turns a non-2xx response into ErrUnexpectedStatus, quoting
// the server's error message when it sent one.
func checkStatus(resp *http.Response, path string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes)) //nolint:errcheck // best effort detail

	msg := strings.TrimSpace(string(body))
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		msg = e.Error
	}
	if msg == "" {
		return fmt.Errorf("%w: %s %s", ErrUnexpectedStatus, path, resp.Status)
	}
	return fmt.Errorf("%w: %s %s: %s", ErrUnexpectedStatus, path, resp.Status, msg)
}
