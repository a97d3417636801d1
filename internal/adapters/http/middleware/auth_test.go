package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestBearer tests header injection.
func TestBearer(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{name: "with token", token: "abc", want: "Bearer abc"},
		{name: "without token", token: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			base := RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
				got = req.Header.Get("Authorization")
				return stubTransport(http.StatusOK, nil).RoundTrip(req)
			})
			rt := Chain(base, Bearer(func() string { return tt.token }))

			req := httptest.NewRequest(http.MethodGet, "https://api.test/admin/quotes", nil)
			resp, err := rt.RoundTrip(req)
			if err != nil {
				t.Fatalf("RoundTrip: %v", err)
			}
			resp.Body.Close()
			if got != tt.want {
				t.Errorf("Authorization = %q, want %q", got, tt.want)
			}
			if req.Header.Get("Authorization") != "" {
				t.Error("caller request must not be mutated")
			}
		})
	}
}

// TestUnauthorized tests which responses trigger the session callback.
func TestUnauthorized(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		status    int
		err       error
		wantCalls int
	}{
		{name: "401 on admin call", path: "/admin/catalog", status: 401, wantCalls: 1},
		{name: "403 on admin call", path: "/admin/capsules", status: 403, wantCalls: 1},
		{name: "401 on login is exempt", path: "/auth/login", status: 401, wantCalls: 0},
		{name: "403 on login is exempt", path: "/auth/login", status: 403, wantCalls: 0},
		{name: "404 is not auth", path: "/admin/catalog", status: 404, wantCalls: 0},
		{name: "500 is not auth", path: "/auth/me", status: 500, wantCalls: 0},
		{name: "network failure", path: "/admin/catalog", err: errors.New("connection reset"), wantCalls: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			rt := Chain(stubTransport(tt.status, tt.err), Unauthorized(func() { calls++ }, IsLoginRequest))

			req := httptest.NewRequest(http.MethodGet, "https://api.test"+tt.path, nil)
			resp, err := rt.RoundTrip(req)
			if resp != nil {
				resp.Body.Close()
			}
			if (err != nil) != (tt.err != nil) {
				t.Fatalf("RoundTrip error = %v, want %v", err, tt.err)
			}
			if calls != tt.wantCalls {
				t.Errorf("callback calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

// TestRateLimit_HonoursContext verifies a cancelled context stops waiting.
func TestRateLimit_HonoursContext(t *testing.T) {
	limiter := NewLimiter(0.001)
	rt := Chain(stubTransport(http.StatusOK, nil), RateLimit(limiter))

	first := httptest.NewRequest(http.MethodGet, "https://api.test/a", nil)
	resp, err := rt.RoundTrip(first)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	second := httptest.NewRequest(http.MethodGet, "https://api.test/b", nil).WithContext(ctx)
	if _, err := rt.RoundTrip(second); err == nil {
		t.Error("second call must fail once the context expires")
	}
}

// TestNewLimiter_Disabled verifies non-positive rates disable pacing.
func TestNewLimiter_Disabled(t *testing.T) {
	if NewLimiter(0) != nil || NewLimiter(-1) != nil {
		t.Error("limiter must be nil for rps <= 0")
	}
}

// TestChain_Order verifies the first middleware is outermost.
func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.RoundTripper) http.RoundTripper {
			return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
				order = append(order, name)
				return next.RoundTrip(req)
			})
		}
	}
	rt := Chain(stubTransport(http.StatusOK, nil), mark("outer"), mark("inner"))
	resp, err := rt.RoundTrip(httptest.NewRequest(http.MethodGet, "https://api.test/", nil))
	if err != nil {
		t.Fatalf("RoundTrip: %v", err)
	}
	resp.Body.Close()
	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Errorf("order = %v, want [outer inner]", order)
	}
}
