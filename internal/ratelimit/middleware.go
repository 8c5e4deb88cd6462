package ratelimit

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"cryptids/internal/models"
)

const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderScope      = "X-RateLimit-Scope"
	HeaderWarning    = "X-RateLimit-Warning"
	HeaderRetryAfter = "Retry-After"
)

// Middleware returns HTTP middleware that runs every request through guard.
// Client addresses are taken from the named forwarding headers only when the
// guard's identifier trusts the proxy.
func Middleware(guard *Guard, forwardedForHeader, realIPHeader string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := guard.Admit(r.Context(), NewRequestInfo(r, forwardedForHeader, realIPHeader))

			if d.Limited() {
				writeLimitHeaders(w, d)
			}

			if d.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			trace.SpanFromContext(r.Context()).AddEvent("ratelimit.denied",
				trace.WithAttributes(
					attribute.String("ratelimit.scope", string(d.Policy.Scope)),
					attribute.String("ratelimit.reason", string(d.Reason)),
					attribute.Int("ratelimit.retry_after", d.RetryAfterSeconds()),
				),
			)
			writeDenial(w, d)
		})
	}
}

func writeLimitHeaders(w http.ResponseWriter, d Decision) {
	h := w.Header()
	h.Set(HeaderLimit, strconv.Itoa(d.Policy.MaxRequests))
	h.Set(HeaderRemaining, strconv.Itoa(d.Remaining))
	h.Set(HeaderReset, strconv.FormatInt(d.ResetAt.Unix(), 10))
	h.Set(HeaderScope, string(d.Policy.Scope))

	if d.Allowed && d.NearLimit {
		if d.Policy.Scope == ScopeSearch {
			h.Set(HeaderWarning, "Search rate limit nearing exhaustion")
		} else {
			h.Set(HeaderWarning, "Approaching rate limit")
		}
	}
}

func writeDenial(w http.ResponseWriter, d Decision) {
	retryAfter := d.RetryAfterSeconds()
	w.Header().Set(HeaderRetryAfter, strconv.Itoa(retryAfter))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	resp := models.NewErrorResponse(denialMessage(d.Reason), string(d.Reason)).
		WithRequestID(w.Header().Get("X-Request-ID"))
	resp.RateLimit = &models.RateLimitDetails{
		Limit:      d.Policy.MaxRequests,
		Window:     d.Policy.WindowDescription(),
		RetryAfter: retryAfter,
		Scope:      string(d.Policy.Scope),
	}
	json.NewEncoder(w).Encode(resp)
}

func denialMessage(reason Reason) string {
	switch reason {
	case ReasonSearchAbuse:
		return "Search rate limit exceeded. Please reduce request frequency."
	case ReasonBlocked:
		return "Too many search requests. Access to search is temporarily blocked."
	default:
		return "Rate limit exceeded. Please retry after the specified interval."
	}
}
