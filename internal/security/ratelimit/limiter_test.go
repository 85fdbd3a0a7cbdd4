package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestLocalLimiterBudget(t *testing.T) {
	l := NewLocalLimiter(3)
	defer l.Stop()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !l.Allow(ctx, "10.0.0.1") {
			t.Fatalf("request %d should be within the budget", i+1)
		}
	}
	if l.Allow(ctx, "10.0.0.1") {
		t.Fatalf("request over the budget should be denied")
	}

	// A different client has its own budget.
	if !l.Allow(ctx, "10.0.0.2") {
		t.Fatalf("other client should not share the budget")
	}

	// Empty keys are never limited.
	if !l.Allow(ctx, "") {
		t.Fatalf("empty key should always pass")
	}
}

type fakeCounter struct {
	count int64
	err   error
}

func (f *fakeCounter) IncrWindow(_ context.Context, _ string, _ time.Duration) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.count++
	return f.count, nil
}

func TestRedisLimiterFixedWindow(t *testing.T) {
	counter := &fakeCounter{}
	l := NewRedisLimiter(counter, 2, nil)
	ctx := context.Background()

	if !l.Allow(ctx, "10.0.0.1") || !l.Allow(ctx, "10.0.0.1") {
		t.Fatalf("requests within the window budget should pass")
	}
	if l.Allow(ctx, "10.0.0.1") {
		t.Fatalf("third request in the window should be denied")
	}
}

func TestRedisLimiterFailsOpen(t *testing.T) {
	l := NewRedisLimiter(&fakeCounter{err: errors.New("connection refused")}, 1, nil)
	if !l.Allow(context.Background(), "10.0.0.1") {
		t.Fatalf("limiter should allow requests when the counter is down")
	}
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string) bool { return false }

type allowAll struct{}

func (allowAll) Allow(context.Context, string) bool { return true }

func TestMiddlewareRejectsOverBudget(t *testing.T) {
	handler := Middleware(denyAll{}, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/livres", nil)
	req.RemoteAddr = "10.0.0.1:34567"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("missing Retry-After header")
	}
	if !strings.Contains(rr.Body.String(), "Trop de requêtes") {
		t.Fatalf("unexpected body %q", rr.Body.String())
	}
}

func TestMiddlewareExemptsOperationalEndpoints(t *testing.T) {
	handler := Middleware(denyAll{}, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s should bypass the limiter, got %d", path, rr.Code)
		}
	}
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/livres", nil)
	req.RemoteAddr = "192.0.2.10:52341"
	if got := clientKey(req); got != "192.0.2.10" {
		t.Fatalf("expected remote host, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 192.0.2.10")
	if got := clientKey(req); got != "203.0.113.7" {
		t.Fatalf("expected first forwarded hop, got %q", got)
	}
}
