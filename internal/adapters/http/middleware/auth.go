package middleware

import (
	"log/slog"
	"net/http"
	"strings"
)

// LoginPath is the only endpoint whose 401/403 means bad credentials rather
// than an expired session.
const LoginPath = "/auth/login"

// IsLoginRequest reports whether req targets the login endpoint.
func IsLoginRequest(req *http.Request) bool {
	return strings.Contains(req.URL.Path, LoginPath)
}

// Bearer sets "Authorization: Bearer <token>" when token returns a non-empty
// value. The caller's request is never mutated.
func Bearer(token func() string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			t := ""
			if token != nil {
				t = token()
			}
			if t == "" {
				return next.RoundTrip(req)
			}
			r := req.Clone(req.Context())
			r.Header.Set("Authorization", "Bearer "+t)
			return next.RoundTrip(r)
		})
	}
}

// Unauthorized calls onUnauthorized after any 401 or 403 response, except for
// requests matched by exempt. A transport error carries no status and never
// triggers it. The response is passed through unchanged.
func Unauthorized(onUnauthorized func(), exempt func(*http.Request) bool) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(req)
			if err != nil || resp == nil {
				return resp, err
			}
			if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden {
				return resp, nil
			}
			if exempt != nil && exempt(req) {
				return resp, nil
			}
			slog.Info("auth_event", "event", "session_rejected", "status", resp.StatusCode, "path", req.URL.Path)
			if onUnauthorized != nil {
				onUnauthorized()
			}
			return resp, nil
		})
	}
}
