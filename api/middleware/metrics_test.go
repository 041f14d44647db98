package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/angelmondragon/wholesale-storefront/pkg/logger"
)

type observation struct {
	route  string
	method string
	status int
}

type fakeObserver struct {
	seen []observation
}

func (f *fakeObserver) Observe(route, method string, status int, _ time.Duration) {
	f.seen = append(f.seen, observation{route: route, method: method, status: status})
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	observer := &fakeObserver{}
	r := chi.NewRouter()
	r.Use(Metrics(observer))
	r.Get("/api/v1/orders/{orderId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/orders/123", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	if len(observer.seen) != 2 {
		t.Fatalf("expected two observations, got %d", len(observer.seen))
	}
	if got := observer.seen[0]; got.route != "/api/v1/orders/{orderId}" || got.status != http.StatusNotFound {
		t.Fatalf("unexpected observation %+v", got)
	}
	if got := observer.seen[1]; got.route != "unmatched" {
		t.Fatalf("expected unmatched route label, got %+v", got)
	}
}

func TestRecovererWritesInternalError(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestRequestIDEchoesOrMints(t *testing.T) {
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get(requestIDHeader) != "abc-123" {
		t.Fatalf("expected caller id to be echoed")
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected a minted request id")
	}
}

func TestRequestIDReplacesUnsafeIDs(t *testing.T) {
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	for _, id := range []string{"has space", "line\nbreak", `quote"d`, strings.Repeat("a", maxRequestIDLength+1)} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(requestIDHeader, id)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if got := rec.Header().Get(requestIDHeader); got == id || uuid.Validate(got) != nil {
			t.Fatalf("expected %q to be replaced by a uuid, got %q", id, got)
		}
	}
}

func TestLoggingLevelsByRouteAndStatus(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: &buf})

	r := chi.NewRouter()
	r.Use(Logging(logg))
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {})
	r.Get("/api/v1/orders/{orderId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	cases := []struct {
		path  string
		level string
		route string
	}{
		{path: "/health/live", level: "debug", route: "/health/live"},
		{path: "/api/v1/orders/" + uuid.NewString(), level: "warn", route: "/api/v1/orders/{orderId}"},
		{path: "/nope", level: "info", route: "unmatched"},
	}
	for _, tc := range cases {
		buf.Reset()
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tc.path, nil))

		var line map[string]any
		if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
			t.Fatalf("decode log line for %s: %v (%s)", tc.path, err, buf.String())
		}
		if line["level"] != tc.level || line["route"] != tc.route {
			t.Fatalf("%s: expected level %s route %s, got %v", tc.path, tc.level, tc.route, line)
		}
	}
}
