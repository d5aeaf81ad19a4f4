package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/numgate/numgate-server/internal/auth"
)

// setupAPIRoutes sets up the gateway routes
func (s *GatewayServer) setupAPIRoutes() {
	s.router.Get("/healthz", s.HandleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Auth routes (public, rate limited)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.HandleLogin)
		})

		// Tenants
		r.Route("/tenants", func(r chi.Router) {
			// Registration runs on the platform domain before any tenant
			// identity exists.
			r.Post("/", s.HandleRegisterTenant)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth(auth.Options{RequireUserID: true, AllowPlatformMode: true}))
				r.Get("/{id}", s.HandleGetTenant)
			})

			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth(auth.Options{RequireUserID: true, RequireSuperAdmin: true, AllowPlatformMode: true}))
				r.Get("/", s.HandleListTenants)
				r.Post("/{id}/suspend", s.HandleSuspendTenant)
			})
		})

		// Custom domains, managed from the platform admin surface
		r.Route("/domains", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth(auth.Options{RequireUserID: true, AllowPlatformMode: true}))
				r.Get("/", s.HandleListDomains)
				r.Post("/", s.HandleClaimDomain)
				r.Post("/verify", s.HandleVerifyDomain)
				r.Post("/primary", s.HandleSetPrimaryDomain)
				r.Delete("/{domain}", s.HandleDeleteDomain)
			})

			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth(auth.Options{RequireUserID: true, RequireSuperAdmin: true, AllowPlatformMode: true}))
				r.Post("/transfer", s.HandleTransferDomain)
			})
		})
	})

	// Proxy mounts to downstream applications
	s.router.Route(s.config.Proxy.MountPath+"/{app}", func(r chi.Router) {
		r.Use(s.requireAuth(auth.Options{AllowPlatformMode: true}))
		r.HandleFunc("/*", s.HandleProxyApp)
		r.HandleFunc("/", s.HandleProxyApp)
	})

	// Everything else is tenant-authored content
	s.router.NotFound(s.HandleTenantContent)
}
