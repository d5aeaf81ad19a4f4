package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/numgate/numgate-server/internal/pages"
	"github.com/numgate/numgate-server/internal/tenant"
)

// ========== Proxy and content handlers ==========

// HandleProxyApp forwards a request to a configured downstream application.
// The session middleware has already stamped the identity headers the
// downstream relies on.
func (s *GatewayServer) HandleProxyApp(w http.ResponseWriter, r *http.Request) {
	res := ResolutionFromContext(r.Context())
	if res.Mode == tenant.ModeTenant && !res.Tenant.IsActive {
		s.respondError(w, http.StatusNotFound, "site not available")
		return
	}

	appName := chi.URLParam(r, "app")

	app, ok := s.config.Apps[appName]
	if !ok {
		s.respondError(w, http.StatusNotFound, "unknown application")
		return
	}

	mount := s.config.Proxy.MountPath + "/" + appName

	var extra []string
	if rest := chi.URLParam(r, "*"); rest != "" {
		extra = strings.Split(rest, "/")
	}

	s.proxy.Forward(w, r, app.BaseURL, mount, extra...)
}

// platformLandingHTML is served on the platform domain root
const platformLandingHTML = `<!DOCTYPE html>
<html>
<head><title>NumGate</title></head>
<body>
<h1>NumGate</h1>
<p>Multi-tenant gateway is running.</p>
</body>
</html>`

// HandleTenantContent serves tenant-authored pages for any path not claimed
// by the API or a proxy mount.
func (s *GatewayServer) HandleTenantContent(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	// API and proxy paths that fell through routing are plain 404s, never
	// tenant content.
	if strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, s.config.Proxy.MountPath+"/") {
		s.respondError(w, http.StatusNotFound, "not found")
		return
	}

	res := ResolutionFromContext(r.Context())

	switch res.Mode {
	case tenant.ModePlatform:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(platformLandingHTML))

	case tenant.ModeTenant:
		if !res.Tenant.IsActive {
			s.respondError(w, http.StatusNotFound, "site not available")
			return
		}

		content, err := s.pages.Resolve(r.Context(), res.Tenant.ID, path)
		if err != nil {
			if err == pages.ErrNotFound {
				s.respondError(w, http.StatusNotFound, "page not found")
				return
			}
			log.Error().Err(err).
				Str("tenant", res.Tenant.ID.String()).
				Str("path", path).
				Msg("Failed to load tenant page")
			s.respondError(w, http.StatusInternalServerError, "internal error")
			return
		}

		w.Header().Set("Content-Type", content.ContentType)
		w.WriteHeader(http.StatusOK)
		w.Write(content.Body)

	default:
		s.respondError(w, http.StatusNotFound, "site not configured")
	}
}
