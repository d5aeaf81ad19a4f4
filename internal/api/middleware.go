package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/numgate/numgate-server/internal/auth"
	"github.com/numgate/numgate-server/internal/tenant"
)

const authCookieName = "auth-token"

// hostMiddleware resolves the inbound host to platform or tenant mode and
// attaches the resolution to the request context. Suspension is enforced
// where tenant content and proxying are served, not here, so /healthz and
// the platform API stay reachable through a suspended tenant's host.
func (s *GatewayServer) hostMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := s.resolver.Resolve(r.Context(), r.Host)

		ctx := context.WithValue(r.Context(), resolutionKey, res)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionMiddleware is the single pipeline stage that turns credentials into
// forwarded identity headers. It strips any externally supplied identity
// headers first, then re-stamps them from verified claims, so handlers and
// the proxy only ever see values this stage produced.
func (s *GatewayServer) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.StripIdentityHeaders(r)

		res := ResolutionFromContext(r.Context())
		if res.Mode == tenant.ModePlatform {
			r.Header.Set(auth.HeaderPlatformMode, "true")
		}
		// A suspended tenant's host confers no identity.
		if res.Mode == tenant.ModeTenant && res.Tenant.IsActive {
			r.Header.Set(auth.HeaderTenantID, res.Tenant.ID.String())
		}

		raw := rawToken(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims := s.tokens.GetOrVerify(raw, s.auth.VerifyToken)
		if claims == nil {
			// Invalid token is treated as anonymous, not rejected here;
			// route guards decide what identity they demand.
			next.ServeHTTP(w, r)
			return
		}

		r.Header.Set(auth.HeaderUserID, claims.UserID.String())
		r.Header.Set(auth.HeaderUserEmail, claims.Email)
		r.Header.Set(auth.HeaderUserRole, claims.Role)
		if claims.IsSuperAdmin {
			r.Header.Set(auth.HeaderIsSuperAdmin, "true")
		}
		// A claim-bound tenant overrides the host-derived one.
		if claims.TenantID != nil {
			r.Header.Set(auth.HeaderTenantID, claims.TenantID.String())
		}

		next.ServeHTTP(w, r)
	})
}

// requireAuth builds the authorization context for a request and rejects it
// when the route's demands are not met.
func (s *GatewayServer) requireAuth(opts auth.Options) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, err := auth.Extract(r, opts)
			if err != nil {
				status := http.StatusUnauthorized
				if errors.Is(err, auth.ErrPlatformModeDisallowed) || errors.Is(err, auth.ErrNotSuperAdmin) {
					status = http.StatusForbidden
				}
				s.respondError(w, status, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), authContextKey, ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// rawToken pulls the session credential from the auth cookie or a bearer
// header.
func rawToken(r *http.Request) string {
	if cookie, err := r.Cookie(authCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}

	return ""
}
