package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptids/internal/models"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func newTestHandler(t *testing.T, cfg models.RateLimitConfig, trustProxy bool) (http.Handler, *guardFixture) {
	t.Helper()

	f := newGuardFixture(t, cfg)
	if trustProxy {
		f.guard.identifier = NewClientIdentifier(true, cfg.Whitelist)
	}
	return Middleware(f.guard, "X-Forwarded-For", "X-Real-IP")(http.HandlerFunc(okHandler)), f
}

func serve(h http.Handler, path, remoteAddr string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestMiddleware_AllowedRequest(t *testing.T) {
	h, _ := newTestHandler(t, testRateLimitConfig(), false)

	rr := serve(h, listPath, clientAddr, nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "3", rr.Header().Get(HeaderLimit))
	assert.Equal(t, "2", rr.Header().Get(HeaderRemaining))
	assert.Equal(t, strconv.FormatInt(t0.Add(time.Minute).Unix(), 10), rr.Header().Get(HeaderReset))
	assert.Equal(t, "list", rr.Header().Get(HeaderScope))
	assert.Empty(t, rr.Header().Get(HeaderRetryAfter))
	assert.Empty(t, rr.Header().Get(HeaderWarning))
}

func TestMiddleware_DeniedRequest(t *testing.T) {
	h, _ := newTestHandler(t, testRateLimitConfig(), false)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, serve(h, listPath, clientAddr, nil).Code)
	}

	rr := serve(h, listPath, clientAddr, nil)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get(HeaderRetryAfter))
	assert.Equal(t, "0", rr.Header().Get(HeaderRemaining))
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp models.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, models.ErrorCodeRateLimitExceeded, resp.Code)
	require.NotNil(t, resp.RateLimit)
	assert.Equal(t, 3, resp.RateLimit.Limit)
	assert.Equal(t, "60s", resp.RateLimit.Window)
	assert.Equal(t, 60, resp.RateLimit.RetryAfter)
	assert.Equal(t, "list", resp.RateLimit.Scope)
}

func TestMiddleware_SearchDenialAndBlock(t *testing.T) {
	h, f := newTestHandler(t, testRateLimitConfig(), false)

	for i := 0; i < 3; i++ {
		serve(h, searchPath, clientAddr, nil)
	}

	rr := serve(h, searchPath, clientAddr, nil)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	var resp models.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, models.ErrorCodeSearchRateLimitExceeded, resp.Code)

	f.violations.Block(Key(clientIP, ScopeSearch), 10*time.Minute)
	f.clock.Advance(2 * time.Minute)

	rr = serve(h, searchPath, clientAddr, nil)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "480", rr.Header().Get(HeaderRetryAfter))

	resp = models.ErrorResponse{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, models.ErrorCodeTemporarilyBlocked, resp.Code)
	assert.Equal(t, 480, resp.RateLimit.RetryAfter)
}

func TestMiddleware_WarningHeader(t *testing.T) {
	cfg := models.NewDefaultConfig().Security.RateLimit
	cfg.Plans.List = models.PlanConfig{MaxRequests: 10, Window: time.Minute}
	h, _ := newTestHandler(t, cfg, false)

	var rr *httptest.ResponseRecorder
	for i := 0; i < 8; i++ {
		rr = serve(h, listPath, clientAddr, nil)
	}
	assert.Equal(t, "Approaching rate limit", rr.Header().Get(HeaderWarning))

	for i := 0; i < 24; i++ {
		rr = serve(h, searchPath, clientAddr, nil)
	}
	assert.Equal(t, "Search rate limit nearing exhaustion", rr.Header().Get(HeaderWarning))
}

func TestMiddleware_WhitelistedRequestHasNoHeaders(t *testing.T) {
	h, f := newTestHandler(t, testRateLimitConfig(), false)

	for i := 0; i < 10; i++ {
		rr := serve(h, searchPath, "127.0.0.1:5555", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, rr.Header().Get(HeaderLimit))
		assert.Empty(t, rr.Header().Get(HeaderRemaining))
	}
	assert.Equal(t, 0, f.windows.Len())
}

func TestMiddleware_ForwardedFor(t *testing.T) {
	h, f := newTestHandler(t, testRateLimitConfig(), true)

	rr := serve(h, listPath, "10.0.0.1:12345", map[string]string{
		"X-Forwarded-For": "203.0.113.50, 70.41.3.18",
	})
	assert.Equal(t, http.StatusOK, rr.Code)

	_, ok := f.windows.Get(Key("203.0.113.50", ScopeList))
	assert.True(t, ok)
	_, ok = f.windows.Get(Key("10.0.0.1", ScopeList))
	assert.False(t, ok)
}

func TestMiddleware_ForwardedForIgnoredWithoutTrust(t *testing.T) {
	h, f := newTestHandler(t, testRateLimitConfig(), false)

	// A spoofed loopback address must not bypass limiting.
	for i := 0; i < 4; i++ {
		serve(h, listPath, "10.0.0.1:12345", map[string]string{"X-Forwarded-For": "127.0.0.1"})
	}
	rr := serve(h, listPath, "10.0.0.1:12345", map[string]string{"X-Real-IP": "127.0.0.1"})
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	_, ok := f.windows.Get(Key("10.0.0.1", ScopeList))
	assert.True(t, ok)
}

func TestMiddleware_EchoesRequestID(t *testing.T) {
	f := newGuardFixture(t, testRateLimitConfig())
	withID := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Request-ID", "req-42")
			next.ServeHTTP(w, r)
		})
	}
	h := withID(Middleware(f.guard, "", "")(http.HandlerFunc(okHandler)))

	var rr *httptest.ResponseRecorder
	for i := 0; i < 4; i++ {
		rr = serve(h, listPath, clientAddr, nil)
	}
	require.Equal(t, http.StatusTooManyRequests, rr.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "req-42", resp.RequestID)
}
