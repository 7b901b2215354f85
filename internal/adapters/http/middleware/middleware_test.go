package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"coachdesk/internal/domain/user"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func echoCaller(t *testing.T, got *Identity) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if ok {
			*got = id
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

// TestAuth_BearerAndCookie verifies both token carriers yield the caller and record
// which one was used.
func TestAuth_BearerAndCookie(t *testing.T) {
	v := NewTokenVerifier(testSecret)
	token, err := v.Sign(user.Caller{ID: "u1", Role: user.RoleClient}, time.Hour)
	require.NoError(t, err)

	var got Identity
	h := Auth(v)(echoCaller(t, &got))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, user.Caller{ID: "u1", Role: user.RoleClient}, got.Caller)
	require.False(t, got.ViaCookie)

	got = Identity{}
	req = httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "u1", got.Caller.ID)
	require.True(t, got.ViaCookie)
}

// TestTokenVerifier_Rejects covers tokens that must not produce a caller.
func TestTokenVerifier_Rejects(t *testing.T) {
	v := NewTokenVerifier(testSecret)
	sign := func(method jwt.SigningMethod, key any, claims Claims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	valid := jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", sign(jwt.SigningMethodHS256, []byte("other-secret-other-secret-other!"), Claims{Role: "COACH", RegisteredClaims: valid})},
		{"alg none", sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, Claims{Role: "COACH", RegisteredClaims: valid})},
		{"expired", sign(jwt.SigningMethodHS256, testSecret, Claims{Role: "COACH", RegisteredClaims: jwt.RegisteredClaims{
			Subject: "u1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}})},
		{"no subject", sign(jwt.SigningMethodHS256, testSecret, Claims{Role: "COACH"})},
		{"unknown role", sign(jwt.SigningMethodHS256, testSecret, Claims{Role: "ADMIN", RegisteredClaims: valid})},
		{"garbage", "not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.Verify(tt.token); err == nil {
				t.Error("expected rejection")
			}
		})
	}
}

// TestRequireAuth blocks anonymous requests with a JSON 401.
func TestRequireAuth(t *testing.T) {
	h := Auth(NewTokenVerifier(testSecret))(RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest("GET", "/api/clients", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.JSONEq(t, `{"error":"authentication required"}`, rr.Body.String())
}

// TestCSRF_OnlyCookieIdentities verifies bearer requests skip the token check while
// cookie-authenticated writes need one.
func TestCSRF_OnlyCookieIdentities(t *testing.T) {
	h := CSRF(testSecret, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	caller := user.Caller{ID: "c1", Role: user.RoleCoach}

	bearer := httptest.NewRequest("PUT", "/api/clients/u1/approve", nil)
	bearer = bearer.WithContext(ContextWithIdentity(bearer.Context(), Identity{Caller: caller}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, bearer)
	require.Equal(t, http.StatusOK, rr.Code)

	cookie := httptest.NewRequest("PUT", "/api/clients/u1/approve", nil)
	cookie = cookie.WithContext(ContextWithIdentity(cookie.Context(), Identity{Caller: caller, ViaCookie: true}))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, cookie)
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Contains(t, rr.Body.String(), "invalid CSRF token")
}

// TestRateLimiter_RefillsPerInterval exhausts a bucket and refills it with a fake clock.
func TestRateLimiter_RefillsPerInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := NewRateLimiter(ctx, 2, time.Second)
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	require.True(t, rl.Allow("1.2.3.4"))
	require.True(t, rl.Allow("1.2.3.4"))
	require.False(t, rl.Allow("1.2.3.4"))
	require.True(t, rl.Allow("5.6.7.8"), "buckets are per IP")

	now = now.Add(time.Second)
	require.True(t, rl.Allow("1.2.3.4"))

	now = now.Add(10 * time.Minute)
	rl.sweep(5 * time.Minute)
	require.Empty(t, rl.visitors)
}

// TestRateLimit_SharesBucketAcrossPorts verifies the port is not part of the key.
func TestRateLimit_SharesBucketAcrossPorts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := RateLimit(NewRateLimiter(ctx, 1, time.Hour))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	first := httptest.NewRequest("GET", "/health", nil)
	first.RemoteAddr = "10.0.0.1:5000"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, first)
	require.Equal(t, http.StatusOK, rr.Code)

	second := httptest.NewRequest("GET", "/health", nil)
	second.RemoteAddr = "10.0.0.1:5001"
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, second)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
}

// TestSecurityHeaders verifies the API hardening headers.
func TestSecurityHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).
		ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	require.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
}
