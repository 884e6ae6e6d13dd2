package observability

import (
	"context"
	"errors"
	"testing"
)

func TestNormalizeEndpoint(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		raw      string
		endpoint string
		insecure bool
	}{
		{"collector:4318", "collector:4318", true},
		{"http://collector:4318/", "collector:4318", true},
		{"https://otel.example.com", "otel.example.com", false},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			t.Parallel()
			endpoint, insecure := normalizeEndpoint(tc.raw)
			if endpoint != tc.endpoint || insecure != tc.insecure {
				t.Errorf("got (%q, %v), expected (%q, %v)", endpoint, insecure, tc.endpoint, tc.insecure)
			}
		})
	}
}

func TestParseHeaders(t *testing.T) {
	t.Parallel()

	got := parseHeaders("authorization=Bearer x, empty=, broken ,x-team = nlp")
	if len(got) != 2 {
		t.Fatalf("expected 2 headers, got %v", got)
	}
	if got["authorization"] != "Bearer x" || got["x-team"] != "nlp" {
		t.Errorf("unexpected headers: %v", got)
	}
}

func TestSetupWithoutEndpoint(t *testing.T) {
	// Not parallel: Setup replaces the global tracer provider.
	shutdown, err := Setup(context.Background(), Options{Version: "test"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, span := StartSpan(context.Background(), "test", AttrModelID.String("m"))
	if TraceID(ctx) == "" {
		t.Error("expected a valid trace id from the sdk provider")
	}
	RecordError(span, errors.New("boom"))
	RecordError(span, nil)
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}
