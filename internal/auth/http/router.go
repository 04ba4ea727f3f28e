package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/keywarden/keywarden/internal/auth/domain"
	"github.com/keywarden/keywarden/internal/auth/service"
	"github.com/keywarden/keywarden/internal/auth/store"
	"github.com/keywarden/keywarden/pkg/httpx"
	"github.com/keywarden/keywarden/pkg/jwtx"
	"github.com/keywarden/keywarden/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/keywarden/keywarden/api" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     *jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store    store.Store
	registry *prometheus.Registry

	AuthService    *service.AuthService
	AccountService *service.AccountService
	RolesService   *service.RolesService
}

func NewRouter(
	verifier *jwtx.Verifier,
	buildVersion string,
	st store.Store,
	registry *prometheus.Registry,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		registry:     registry,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerTokens()
	r.registerAccounts()
	r.registerRoles()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
//
//	@title			Keywarden Credential Service API
//	@version		0.1.0
//	@description	Bearer-credential service issuing HMAC-signed access and refresh tokens
//	@description	with single-slot refresh rotation per account.
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access credential. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerTokens() {
	// POST /v1/accounts/token - strict rate limit by IP (password attempts)
	loginHandler := &LoginHandler{AuthService: r.AuthService}
	r.Mux.Handle("POST /v1/accounts/token",
		httpx.Chain(loginHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /v1/token/refresh - strict rate limit by IP. Deliberately not
	// behind AuthnMiddleware: the presented access credential may be expired.
	refreshHandler := &RefreshHandler{AuthService: r.AuthService}
	r.Mux.Handle("POST /v1/token/refresh",
		httpx.Chain(refreshHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /v1/token/revoke - authenticated, moderate rate limit
	revokeHandler := &RevokeHandler{AuthService: r.AuthService}
	r.Mux.Handle("POST /v1/token/revoke",
		httpx.Chain(revokeHandler,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByAccount(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerAccounts() {
	h := &AccountsHandler{
		AccountService: r.AccountService,
		RolesService:   r.RolesService,
	}

	// POST /v1/accounts - public signup, strict rate limit by IP
	r.Mux.Handle("POST /v1/accounts",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// GET /v1/accounts - directory listing, Admin only
	r.Mux.Handle("GET /v1/accounts",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireRole(domain.RoleAdmin),
			httpx.RateLimitByAccount(httpx.ModerateLimit),
		),
	)

	// Authenticated lookups - lenient rate limit by account
	lookup := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByAccount(httpx.LenientLimit),
		)
	}
	r.Mux.Handle("GET /v1/accounts/email", lookup(h.HandleGetByEmail))
	r.Mux.Handle("GET /v1/accounts/username/{username}", lookup(h.HandleGetByUsername))
	r.Mux.Handle("GET /v1/accounts/{id}", lookup(h.HandleGetByID))

	// Self-service profile and password updates - moderate rate limit
	p := &ProfileHandler{AccountService: r.AccountService}
	r.Mux.Handle("PUT /v1/accounts/{username}",
		httpx.Chain(http.HandlerFunc(p.HandleUpdateProfile),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByAccount(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("PUT /v1/accounts/{username}/password",
		httpx.Chain(http.HandlerFunc(p.HandleChangePassword),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByAccount(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerRoles() {
	h := &RolesHandler{RolesService: r.RolesService}

	secured := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireRole(domain.RoleAdmin),
			httpx.RateLimitByAccount(httpx.ModerateLimit),
		)
	}
	r.Mux.Handle("POST /v1/accounts/{id}/roles", secured(h.HandleAdd))
	r.Mux.Handle("DELETE /v1/accounts/{id}/roles", secured(h.HandleRemove))

	// Role directory is readable by any authenticated account.
	directory := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByAccount(httpx.LenientLimit),
		)
	}
	r.Mux.Handle("GET /v1/roles", directory(h.HandleList))
	r.Mux.Handle("GET /v1/roles/{id}", directory(h.HandleGet))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	if r.registry != nil {
		r.Mux.Handle("GET /metrics",
			promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	}
}
