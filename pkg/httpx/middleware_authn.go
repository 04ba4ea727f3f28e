package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/keywarden/keywarden/pkg/jwtx"
	"github.com/keywarden/keywarden/pkg/slogx"
)

// AuthnMiddleware authenticates requests carrying a bearer access
// credential. Expired credentials are refused with a Token-Expired header
// so clients know to go through the rotation flow instead of retrying.
func AuthnMiddleware(v *jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerToken(r)
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}

			claims, err := v.Verify(raw, jwtx.VerifyOptions{
				EnforceExpiry: true,
				ExpectType:    jwtx.TokenTypeAccess,
			})
			if err != nil {
				if errors.Is(err, jwtx.ErrExpired) {
					w.Header().Set("Token-Expired", "true")
					writeBearerError(w, "token expired")
					return
				}
				log.Warn("jwt verify failed", "err", err)
				writeBearerError(w, "token verification failed")
				return
			}

			ctx = contextWithAuth(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the bearer credential from the Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer")), true
}

func contextWithAuth(ctx context.Context, c jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyAccountID, c.Identity.First(jwtx.ClaimAccountID))
	ctx = context.WithValue(ctx, CtxKeyUsername, c.Identity.First(jwtx.ClaimSubject))
	ctx = context.WithValue(ctx, CtxKeyRoles, c.Identity.Values(jwtx.ClaimRole))
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	return ctx
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, "invalid_token", desc)
}
