package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"coachdesk/internal/domain/user"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const identityContextKey contextKey = "identity"

// AccessTokenCookie carries the identity token for browser clients.
const AccessTokenCookie = "access_token"

// Identity is the verified caller of a request and how it proved itself.
type Identity struct {
	Caller user.Caller
	// ViaCookie is true when the token came from AccessTokenCookie rather than a bearer
	// header. Only cookie-authenticated requests are exposed to CSRF.
	ViaCookie bool
}

// Claims is the token payload issued by the identity provider: the subject is the user ID.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenVerifier checks HMAC-signed identity tokens.
type TokenVerifier struct {
	secret []byte
	now    func() time.Time
}

// NewTokenVerifier creates a verifier for tokens signed with secret.
// PRE: secret is non-empty
func NewTokenVerifier(secret []byte) *TokenVerifier {
	return &TokenVerifier{secret: secret, now: time.Now}
}

// Verify parses token and returns the caller it vouches for.
// PRE: none
// POST: returns a caller with a non-empty ID and a valid role, or an error
func (v *TokenVerifier) Verify(token string) (user.Caller, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithTimeFunc(v.now))
	if err != nil {
		return user.Caller{}, err
	}
	if !parsed.Valid || claims.Subject == "" {
		return user.Caller{}, errors.New("token has no subject")
	}
	role, err := user.ParseRole(claims.Role)
	if err != nil {
		return user.Caller{}, err
	}
	return user.Caller{ID: claims.Subject, Role: role}, nil
}

// Sign issues a token for c that expires after ttl. Used by seeding tools and tests.
func (v *TokenVerifier) Sign(c user.Caller, ttl time.Duration) (string, error) {
	now := v.now()
	claims := Claims{
		Role: c.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// tokenFromRequest returns the bearer token, falling back to the access token cookie.
func tokenFromRequest(r *http.Request) (token string, viaCookie bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1]), false
		}
		return "", false
	}
	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value, true
	}
	return "", false
}

// Auth returns middleware that verifies the identity token and sets the identity in context.
// Unauthenticated requests pass through; RequireAuth blocks them.
func Auth(verifier *TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, viaCookie := tokenFromRequest(r)
			if token != "" {
				caller, err := verifier.Verify(token)
				if err != nil {
					slog.Debug("auth_event", "event", "token_rejected", "path", r.URL.Path, "error", err)
				} else {
					r = r.WithContext(ContextWithIdentity(r.Context(), Identity{Caller: caller, ViaCookie: viaCookie}))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth blocks requests without a verified identity.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			writeJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IdentityFromContext extracts the verified identity from the request context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(Identity)
	return id, ok
}

// CallerFromContext returns the verified caller, or the zero Caller which may access nothing.
func CallerFromContext(ctx context.Context) user.Caller {
	id, _ := IdentityFromContext(ctx)
	return id.Caller
}

// ContextWithIdentity returns a context with the given identity set.
// Intended for use in tests.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}
