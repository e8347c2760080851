package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type memoryCounters struct {
	mu     sync.Mutex
	err    error
	counts map[string]int64
	ttls   map[string]time.Duration
}

func newMemoryCounters() *memoryCounters {
	return &memoryCounters{counts: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCounters) RateLimitKey(scope string) string { return "rl:" + scope }

func (m *memoryCounters) IncrWithTTL(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.counts[key]++
	m.ttls[key] = ttl
	return m.counts[key], nil
}

func throttled(t Throttle, store *memoryCounters) http.Handler {
	return RateLimit(t, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func post(h http.Handler, addr, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader(body))
	req.RemoteAddr = addr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitPassesBodyThrough(t *testing.T) {
	var seen string
	h := RateLimit(Throttle{Name: "login", Window: time.Minute, PerIP: 2, PerEmail: 2}, newMemoryCounters(), nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, _ := io.ReadAll(r.Body)
			seen = string(raw)
		}))

	body := `{"email":"tester@example.com","password":"secret"}`
	rec := post(h, "1.2.3.4:5678", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen != body {
		t.Fatalf("handler saw %q", seen)
	}
}

func TestRateLimitPerEmail(t *testing.T) {
	store := newMemoryCounters()
	h := throttled(Throttle{Name: "Login", Window: time.Minute, PerEmail: 2}, store)

	bodies := []string{`{"email":"Case@Example.com"}`, `{"email":" case@example.com "}`, `{"email":"case@example.com"}`}
	for i, body := range bodies {
		rec := post(h, "10.0.0.1:1000", body)
		if i < 2 {
			if rec.Code != http.StatusOK {
				t.Fatalf("attempt %d: expected 200, got %d", i+1, rec.Code)
			}
			continue
		}
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429 once the budget is spent, got %d", rec.Code)
		}
		if rec.Header().Get("Retry-After") != "60" {
			t.Fatalf("unexpected Retry-After %q", rec.Header().Get("Retry-After"))
		}
		var payload struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode error: %v", err)
		}
		if payload.Error.Code != string(pkgerrors.CodeRateLimit) {
			t.Fatalf("unexpected code %s", payload.Error.Code)
		}
	}

	for key, ttl := range store.ttls {
		if !strings.HasPrefix(key, "rl:email:login:") {
			t.Fatalf("unexpected counter %q", key)
		}
		if ttl != time.Minute {
			t.Fatalf("counter ttl %s", ttl)
		}
	}
}

func TestRateLimitPerIP(t *testing.T) {
	h := throttled(Throttle{Name: "register", Window: time.Minute, PerIP: 1}, newMemoryCounters())

	if rec := post(h, "5.6.7.8:1234", `{"email":"a@example.com"}`); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := post(h, "5.6.7.8:4321", `{"email":"b@example.com"}`); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for the same address, got %d", rec.Code)
	}
	if rec := post(h, "9.9.9.9:1234", `{"email":"c@example.com"}`); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for another address, got %d", rec.Code)
	}
}

func TestRateLimitCounterFailure(t *testing.T) {
	store := newMemoryCounters()
	store.err = errors.New("redis down")
	rec := post(throttled(Throttle{Window: time.Minute, PerIP: 5}, store), "1.1.1.1:1", `{}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	h := throttled(Throttle{Name: "login", PerIP: 1, PerEmail: 1}, newMemoryCounters())
	for range 3 {
		if rec := post(h, "1.2.3.4:1", `{"email":"x@example.com"}`); rec.Code != http.StatusOK {
			t.Fatalf("expected pass-through, got %d", rec.Code)
		}
	}
}

func TestRemoteIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:4000"
	if got := remoteIP(req); got != "192.0.2.1" {
		t.Fatalf("socket address: got %q", got)
	}
	req.Header.Set("X-Real-IP", "198.51.100.7")
	if got := remoteIP(req); got != "198.51.100.7" {
		t.Fatalf("x-real-ip: got %q", got)
	}
	req.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.0.0.1")
	if got := remoteIP(req); got != "203.0.113.9" {
		t.Fatalf("x-forwarded-for: got %q", got)
	}
}
