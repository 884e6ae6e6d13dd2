package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/nao1215/humanizer/internal/model"
)

// fakeServer is an in-memory inference server.
type fakeServer struct {
	mu      sync.Mutex
	loaded  []string
	auth    []string
	request map[string]any
}

func (f *fakeServer) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/score", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		var req scoreRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		switch req.Model {
		case "broken":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"CUDA out of memory"}`))
		case "liar":
			_, _ = w.Write([]byte(`{"ai_probability": 1.5}`))
		default:
			_, _ = w.Write([]byte(`{"ai_probability": 0.25}`))
		}
	})
	mux.HandleFunc("POST /v1/generate", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.request = map[string]any{"model": req.Model, "prefix": req.Options.Prefix, "beams": req.Options.NumBeams}
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{"text": strings.ToUpper(req.Text)})
	})
	mux.HandleFunc("POST /v1/load", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		var req loadRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model == "huge" {
			http.Error(w, "not enough memory", http.StatusServiceUnavailable)
			return
		}
		f.mu.Lock()
		f.loaded = append(f.loaded, req.Model)
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (f *fakeServer) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auth = append(f.auth, r.Header.Get("Authorization"))
}

func newTestClient(t *testing.T, opts ...Option) (*Client, *fakeServer) {
	t.Helper()
	fake := &fakeServer{}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL+"/", opts...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c, fake
}

func TestClientScore(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t)
	ctx := context.Background()

	p, err := c.Score(ctx, "chatgpt-detector", "some text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != 0.25 {
		t.Errorf("got %v, expected 0.25", p)
	}

	_, err = c.Score(ctx, "broken", "some text")
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Errorf("expected ErrUnexpectedStatus, got %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), "CUDA out of memory") {
		t.Errorf("error should quote the server message: %v", err)
	}

	if _, err := c.Score(ctx, "liar", "some text"); !errors.Is(err, ErrBadResponse) {
		t.Errorf("expected ErrBadResponse for out of range probability, got %v", err)
	}
}

func TestClientGenerate(t *testing.T) {
	t.Parallel()

	c, fake := newTestClient(t)

	out, err := c.Generate(context.Background(), "t5-small", "hello", model.GenerationOptions{Prefix: "paraphrase: ", NumBeams: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "HELLO" {
		t.Errorf("got %q, expected HELLO", out)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.request["prefix"] != "paraphrase: " || fake.request["beams"] != 4 {
		t.Errorf("generation options not sent: %v", fake.request)
	}
}

func TestClientLoad(t *testing.T) {
	t.Parallel()

	c, fake := newTestClient(t)
	ctx := context.Background()

	if err := c.Load(ctx, "t5-base"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Load(ctx, "huge"); !errors.Is(err, ErrUnexpectedStatus) {
		t.Errorf("expected ErrUnexpectedStatus, got %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.loaded) != 1 || fake.loaded[0] != "t5-base" {
		t.Errorf("got loaded %v", fake.loaded)
	}
}

func TestClientAPIKey(t *testing.T) {
	t.Parallel()

	c, fake := newTestClient(t, WithAPIKey("s3cret"))
	if _, err := c.Score(context.Background(), "chatgpt-detector", "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.auth) != 1 || fake.auth[0] != "Bearer s3cret" {
		t.Errorf("got Authorization headers %v", fake.auth)
	}
}

func TestClientEndpoints(t *testing.T) {
	t.Parallel()

	dedicated := &fakeServer{}
	srv := httptest.NewServer(dedicated.handler(t))
	t.Cleanup(srv.Close)

	c, err := NewClient("", WithEndpoints(map[string]string{"t5-small": srv.URL}))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := c.Generate(context.Background(), "t5-small", "a", model.GenerationOptions{}); err != nil {
		t.Errorf("dedicated endpoint should serve t5-small: %v", err)
	}
	if _, err := c.Generate(context.Background(), "t5-base", "a", model.GenerationOptions{}); !errors.Is(err, ErrNoBackend) {
		t.Errorf("expected ErrNoBackend without a default URL, got %v", err)
	}
	if err := c.Ping(context.Background()); !errors.Is(err, ErrNoBackend) {
		t.Errorf("expected ErrNoBackend from Ping, got %v", err)
	}
}

func TestClientPing(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t)
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		baseURL  string
		opts     []Option
		expected error
	}{
		{name: "no scheme", baseURL: "localhost:8000", expected: ErrInvalidBaseURL},
		{name: "ftp scheme", baseURL: "ftp://models.local", expected: ErrInvalidBaseURL},
		{name: "bad endpoint", baseURL: "http://localhost:8000", opts: []Option{WithEndpoints(map[string]string{"x": "nope"})}, expected: ErrInvalidBaseURL},
		{name: "bad proxy", baseURL: "http://localhost:8000", opts: []Option{WithProxy("127.0.0.1")}, expected: ErrInvalidProxyAddress},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewClient(tc.baseURL, tc.opts...)
			if !errors.Is(err, tc.expected) {
				t.Errorf("got %v, expected %v", err, tc.expected)
			}
		})
	}

	c, err := NewClient("http://localhost:8000", WithProxy("127.0.0.1:1080"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ProxyAddress() != "127.0.0.1:1080" || c.BaseURL() != "http://localhost:8000" {
		t.Errorf("unexpected client %q via %q", c.BaseURL(), c.ProxyAddress())
	}
}

func TestIsValidProxyAddress(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		address  string
		expected bool
	}{
		{"valid IPv4 with port", "127.0.0.1:1080", true},
		{"valid hostname with port", "proxy.example.com:9050", true},
		{"valid IPv6 with port", "[::1]:1080", true},
		{"empty string", "", false},
		{"no port", "127.0.0.1", false},
		{"empty host", ":1080", false},
		{"empty port", "127.0.0.1:", false},
		{"port out of range", "127.0.0.1:70000", false},
		{"port zero", "127.0.0.1:0", false},
		{"multiple colons", "127.0.0.1:9050:extra", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := isValidProxyAddress(tc.address); got != tc.expected {
				t.Errorf("isValidProxyAddress(%q) = %v, expected %v", tc.address, got, tc.expected)
			}
		})
	}
}
