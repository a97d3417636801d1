package middleware

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"ctbadmin/internal/adapters/http/perf"
)

// DefaultSlowRequestMs is the default threshold for slow request warnings.
const DefaultSlowRequestMs = 800

var requestIDCounter uint64

// Timing logs every backend call. Normal calls log at DEBUG, calls slower than
// slowMs log at WARN. Entries are recorded to collector when non-nil.
func Timing(collector *perf.Collector, slowMs int) Middleware {
	if slowMs <= 0 {
		slowMs = DefaultSlowRequestMs
	}
	threshold := float64(slowMs)

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			reqID := atomic.AddUint64(&requestIDCounter, 1)

			resp, err := next.RoundTrip(req)

			durationMs := float64(time.Since(start).Microseconds()) / 1000.0
			status := 0
			if resp != nil {
				status = resp.StatusCode
			}
			attrs := []any{
				"request_id", reqID,
				"method", req.Method,
				"path", req.URL.Path,
				"status", status,
				"duration_ms", durationMs,
			}
			switch {
			case err != nil:
				slog.Warn("request_failed", append(attrs, "error", err)...)
			case durationMs >= threshold:
				slog.Warn("slow_request", attrs...)
			default:
				slog.Debug("request", attrs...)
			}

			collector.Record(perf.Entry{
				Kind:       perf.KindRequest,
				Path:       req.Method + " " + req.URL.Path,
				StatusCode: status,
				DurationMs: durationMs,
				Timestamp:  start,
			})
			return resp, err
		})
	}
}
