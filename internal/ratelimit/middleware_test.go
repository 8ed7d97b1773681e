package ratelimit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/draftly-app/draftly/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMiddleware_AllowsRequest(t *testing.T) {
	limiter := NewMemoryLimiter(time.Minute, 30)
	mw := Middleware(limiter, 30, nil)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/generate", nil)
	req.RemoteAddr = "10.0.0.1:51234"
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if h := rec.Header().Get(headerRateLimitRequests); h != "30" {
		t.Errorf("expected X-RateLimit-Limit-Requests=30, got %s", h)
	}
	if h := rec.Header().Get(headerRateLimitRemainingRequests); h != "29" {
		t.Errorf("expected X-RateLimit-Remaining-Requests=29, got %s", h)
	}
	if h := rec.Header().Get(headerRateLimitReset); h == "" {
		t.Error("expected X-RateLimit-Reset-Requests header")
	}
}

func TestMiddleware_DeniesExcessTraffic(t *testing.T) {
	limiter := NewMemoryLimiter(time.Minute, 2)
	metrics := telemetry.NewMetricsWith(prometheus.NewRegistry())
	mw := Middleware(limiter, 2, metrics)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/generate", nil)
		req.RemoteAddr = "10.0.0.2:2000"
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/generate", nil)
	req.RemoteAddr = "10.0.0.2:2000"
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if h := rec.Header().Get(headerRetryAfter); h == "" {
		t.Error("expected Retry-After header on deny")
	}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body.Error == "" {
		t.Error("expected error message in body")
	}

	var metric dto.Metric
	if err := metrics.RateLimitHitTotal.Write(&metric); err != nil {
		t.Fatal(err)
	}
	if got := metric.GetCounter().GetValue(); got != 1 {
		t.Errorf("expected 1 recorded rate limit hit, got %f", got)
	}
}

func TestMiddleware_SeparatesClients(t *testing.T) {
	limiter := NewMemoryLimiter(time.Minute, 1)
	mw := Middleware(limiter, 1, nil)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	reqA := httptest.NewRequest(http.MethodPost, "/generate", nil)
	reqA.RemoteAddr = "10.0.0.3:1000"
	handler.ServeHTTP(first, reqA)

	second := httptest.NewRecorder()
	reqB := httptest.NewRequest(http.MethodPost, "/generate", nil)
	reqB.RemoteAddr = "10.0.0.4:1000"
	handler.ServeHTTP(second, reqB)

	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Errorf("distinct clients must not share a window: %d, %d", first.Code, second.Code)
	}
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:43210"
	if got := ClientKey(req); got != "192.0.2.7" {
		t.Errorf("ClientKey = %q, want %q", got, "192.0.2.7")
	}

	req.RemoteAddr = "192.0.2.8"
	if got := ClientKey(req); got != "192.0.2.8" {
		t.Errorf("ClientKey without port = %q, want %q", got, "192.0.2.8")
	}
}

func TestRedisLimiter_NilClientFailOpen(t *testing.T) {
	l := NewRedisLimiter(nil, time.Minute, 30)
	for i := 0; i < 100; i++ {
		d, err := l.Allow(context.Background(), "any")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !d.Allowed {
			t.Fatalf("expected fail-open allow on check %d", i)
		}
	}
}
