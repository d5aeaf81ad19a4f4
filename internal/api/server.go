package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nats-io/nats.go"

	"github.com/numgate/numgate-server/internal/auth"
	"github.com/numgate/numgate-server/internal/config"
	"github.com/numgate/numgate-server/internal/pages"
	"github.com/numgate/numgate-server/internal/proxy"
	"github.com/numgate/numgate-server/internal/ratelimit"
	"github.com/numgate/numgate-server/internal/storage"
	"github.com/numgate/numgate-server/internal/tenant"
	"github.com/numgate/numgate-server/internal/validation"
)

// Deps carries the process-wide singletons constructed at startup. They are
// injected rather than created here so their lifetime is owned by main.
type Deps struct {
	TenantCache *tenant.Cache
	TokenCache  *auth.TokenCache
	Limiter     *ratelimit.Limiter
	NATS        *nats.Conn // optional, nil when running standalone
}

// GatewayServer represents the multi-tenant gateway HTTP server
type GatewayServer struct {
	config    *config.Config
	store     storage.Store
	auth      *auth.JWTManager
	tokens    *auth.TokenCache
	cache     *tenant.Cache
	resolver  *tenant.Resolver
	limiter   *ratelimit.Limiter
	proxy     *proxy.Engine
	pages     *pages.Server
	validator *validation.Validator
	nc        *nats.Conn
	router    chi.Router
	server    *http.Server
}

// NewGatewayServer creates a new gateway server
func NewGatewayServer(cfg *config.Config, store storage.Store, deps Deps) *GatewayServer {
	s := &GatewayServer{
		config:    cfg,
		store:     store,
		auth:      auth.NewJWTManager(&cfg.JWT),
		tokens:    deps.TokenCache,
		cache:     deps.TenantCache,
		resolver:  tenant.NewResolver(cfg.Platform, store, deps.TenantCache),
		limiter:   deps.Limiter,
		proxy:     proxy.NewEngine(cfg.Proxy.Timeout),
		pages:     pages.NewServer(store),
		validator: validation.NewValidator(),
		nc:        deps.NATS,
		router:    chi.NewRouter(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all routes
func (s *GatewayServer) setupRoutes() {
	// Middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	s.router.Use(s.hostMiddleware)
	s.router.Use(s.sessionMiddleware)

	// CORS for the admin API
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://" + s.config.Platform.RootDomain, "https://www." + s.config.Platform.RootDomain},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.setupAPIRoutes()
}

// ListenAndServe starts the server
func (s *GatewayServer) ListenAndServe(addr string) error {
	s.server.Addr = addr
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *GatewayServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Router exposes the handler for tests
func (s *GatewayServer) Router() http.Handler {
	return s.router
}

// contextKey is a type-safe key for request context values
type contextKey string

const (
	resolutionKey  contextKey = "resolution"
	authContextKey contextKey = "auth_context"
)

// ResolutionFromContext returns the host resolution attached by the host
// middleware.
func ResolutionFromContext(ctx context.Context) tenant.Resolution {
	if res, ok := ctx.Value(resolutionKey).(tenant.Resolution); ok {
		return res
	}
	return tenant.Resolution{Mode: tenant.ModeUnresolved}
}

// AuthFromContext returns the authorization context attached by requireAuth
func AuthFromContext(ctx context.Context) *auth.AuthContext {
	ac, _ := ctx.Value(authContextKey).(*auth.AuthContext)
	return ac
}
