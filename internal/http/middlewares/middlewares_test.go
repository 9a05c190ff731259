package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"surplus-relay.com/surplus-relay/pkg/constants"
)

func newServer(mw ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.Use(ActorIdentity())
	e.GET("/", func(c echo.Context) error {
		if actor, ok := ActorFrom(c); ok {
			return c.String(http.StatusOK, actor.ID)
		}
		return c.String(http.StatusOK, "anonymous")
	}, mw...)
	return e
}

func do(e *echo.Echo, id, role string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id != "" {
		req.Header.Set(HeaderActorID, id)
	}
	if role != "" {
		req.Header.Set(HeaderActorRole, role)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestActorIdentity(t *testing.T) {
	e := newServer()

	tests := []struct {
		name     string
		id, role string
		status   int
		body     string
	}{
		{"anonymous", "", "", http.StatusOK, "anonymous"},
		{"identified", "donor-1", "donor", http.StatusOK, "donor-1"},
		{"unknown role", "donor-1", "admin", http.StatusUnauthorized, ""},
		{"role without id", "", "carrier", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, tt.id, tt.role)
			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, rec.Code)
			}
			if tt.body != "" && rec.Body.String() != tt.body {
				t.Errorf("expected body %q, got %q", tt.body, rec.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	e := newServer(RequireRole(constants.RoleCarrier))

	if rec := do(e, "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for anonymous caller, got %d", rec.Code)
	}
	if rec := do(e, "ngo-1", "recipient"); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for wrong role, got %d", rec.Code)
	}
	if rec := do(e, "carrier-1", "carrier"); rec.Code != http.StatusOK {
		t.Errorf("expected 200 for carrier, got %d", rec.Code)
	}
}

func doFrom(e *echo.Echo, addr, id, role string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = addr
	if id != "" {
		req.Header.Set(HeaderActorID, id)
	}
	if role != "" {
		req.Header.Set(HeaderActorRole, role)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_PerActor(t *testing.T) {
	e := newServer(RateLimiter(2, time.Minute))

	for i := 0; i < 2; i++ {
		if rec := doFrom(e, "192.0.2.1:1000", "donor-1", "donor"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
	if rec := doFrom(e, "192.0.2.1:1000", "donor-1", "donor"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 once the limit is spent, got %d", rec.Code)
	}
	if rec := doFrom(e, "192.0.2.2:1000", "donor-1", "donor"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected the actor bucket to follow donor-1 to a new address, got %d", rec.Code)
	}
	if rec := doFrom(e, "192.0.2.3:1000", "donor-2", "donor"); rec.Code != http.StatusOK {
		t.Errorf("expected a separate bucket for another actor, got %d", rec.Code)
	}
}

func TestRateLimiter_RotatingActorsShareAddress(t *testing.T) {
	e := newServer(RateLimiter(3, time.Minute))

	for i, id := range []string{"donor-1", "donor-2", "donor-3"} {
		if rec := doFrom(e, "192.0.2.1:1000", id, "donor"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
	if rec := doFrom(e, "192.0.2.1:1000", "donor-4", "donor"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected a fresh actor id from the same address to be limited, got %d", rec.Code)
	}
	if rec := doFrom(e, "192.0.2.1:1000", "", ""); rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected anonymous requests from the same address to be limited, got %d", rec.Code)
	}
}

func TestRateLimiter_EvictsExpiredBuckets(t *testing.T) {
	limiter := newRateLimiter(1, time.Minute)
	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	for i, key := range []string{"ip:192.0.2.1", "ip:192.0.2.2", "ip:192.0.2.3"} {
		if !limiter.allow(start.Add(time.Duration(i)*time.Second), key) {
			t.Fatalf("expected first request for %s to pass", key)
		}
	}
	if got := limiter.size(); got != 3 {
		t.Fatalf("expected 3 buckets, got %d", got)
	}
	if limiter.allow(start.Add(5*time.Second), "ip:192.0.2.1") {
		t.Error("expected second request inside the window to be limited")
	}

	if !limiter.allow(start.Add(2*time.Minute), "ip:192.0.2.4") {
		t.Fatal("expected request from a new address to pass")
	}
	if got := limiter.size(); got != 1 {
		t.Errorf("expected expired buckets evicted, got %d buckets", got)
	}
}
