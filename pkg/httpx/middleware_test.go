package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/keywarden/keywarden/pkg/httpx"
	"github.com/keywarden/keywarden/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func testSigningContext() jwtx.SigningContext {
	return jwtx.SigningContext{
		Key:        []byte("0123456789abcdef0123456789abcdef"),
		Issuer:     "svc",
		Audience:   "clients",
		AccessTTL:  5 * time.Minute,
		RefreshTTL: time.Hour,
	}
}

func TestAuthnMiddleware(t *testing.T) {
	ctx := testSigningContext()
	issuer, err := jwtx.NewIssuer(ctx)
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifier(ctx)
	require.NoError(t, err)

	identity := jwtx.ClaimSet{
		{Type: jwtx.ClaimSubject, Value: "alice"},
		{Type: jwtx.ClaimAccountID, Value: "acct-1"},
		{Type: jwtx.ClaimRole, Value: "User"},
	}

	protected := httpx.Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, _ := httpx.UsernameFromContext(r.Context())
			w.Header().Set("X-Test-Username", username)
			w.WriteHeader(http.StatusOK)
		}),
		httpx.AuthnMiddleware(verifier),
	)

	t.Run("valid bearer credential passes and fills context", func(t *testing.T) {
		token, _, err := issuer.IssueAccess(identity)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		protected.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "alice", rec.Header().Get("X-Test-Username"))
	})

	t.Run("missing header is unauthorized", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("expired credential sets Token-Expired", func(t *testing.T) {
		past := time.Now().Add(-time.Hour)
		staleIssuer, err := jwtx.NewIssuer(ctx, jwtx.WithClock(func() time.Time { return past }))
		require.NoError(t, err)

		token, _, err := staleIssuer.IssueAccess(identity)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		protected.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "true", rec.Header().Get("Token-Expired"))
	})

	t.Run("refresh credential is not accepted for requests", func(t *testing.T) {
		token, _, err := issuer.IssueRefresh()
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		protected.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Empty(t, rec.Header().Get("Token-Expired"))
	})
}

func TestRequireAnyRole(t *testing.T) {
	ctx := testSigningContext()
	issuer, err := jwtx.NewIssuer(ctx)
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifier(ctx)
	require.NoError(t, err)

	adminOnly := httpx.Chain(
		okHandler(),
		httpx.AuthnMiddleware(verifier),
		httpx.RequireRole("Admin"),
	)

	request := func(identity jwtx.ClaimSet) *httptest.ResponseRecorder {
		token, _, err := issuer.IssueAccess(identity)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		adminOnly.ServeHTTP(rec, req)
		return rec
	}

	t.Run("admin passes", func(t *testing.T) {
		rec := request(jwtx.ClaimSet{
			{Type: jwtx.ClaimSubject, Value: "root"},
			{Type: jwtx.ClaimRole, Value: "Admin"},
		})
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("plain user is forbidden", func(t *testing.T) {
		rec := request(jwtx.ClaimSet{
			{Type: jwtx.ClaimSubject, Value: "alice"},
			{Type: jwtx.ClaimRole, Value: "User"},
		})
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "insufficient_scope")
	})

	t.Run("multi-role caller passes on any match", func(t *testing.T) {
		rec := request(jwtx.ClaimSet{
			{Type: jwtx.ClaimSubject, Value: "bob"},
			{Type: jwtx.ClaimRole, Value: "User"},
			{Type: jwtx.ClaimRole, Value: "Admin"},
		})
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(okHandler(), tag("outer"), tag("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, []string{"outer", "inner"}, order)
}
