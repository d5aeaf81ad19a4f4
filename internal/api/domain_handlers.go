package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/numgate/numgate-server/internal/models"
	"github.com/numgate/numgate-server/internal/server"
	"github.com/numgate/numgate-server/internal/storage"
	"github.com/numgate/numgate-server/internal/tenant"
	"github.com/numgate/numgate-server/pkg/crypto"
)

// ========== Custom domain handlers ==========

// HandleListDomains lists the caller's claimed domains
func (s *GatewayServer) HandleListDomains(w http.ResponseWriter, r *http.Request) {
	ac := AuthFromContext(r.Context())

	domains, err := s.store.ListCustomDomains(r.Context(), ac.TenantID)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"domains": domains,
	})
}

// HandleClaimDomain claims a custom domain for the caller's tenant
func (s *GatewayServer) HandleClaimDomain(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Domain string `json:"domain" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	domain := tenant.NormalizeHost(req.Domain)
	if domain == "" || !strings.Contains(domain, ".") {
		s.respondError(w, http.StatusBadRequest, "invalid domain")
		return
	}

	token, err := crypto.GenerateRandomString(24)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	ac := AuthFromContext(r.Context())
	d := &models.CustomDomain{
		TenantID:          ac.TenantID,
		Domain:            domain,
		VerificationToken: token,
	}

	if err := s.store.CreateCustomDomain(r.Context(), d); err != nil {
		if err == storage.ErrDuplicateKey {
			s.respondError(w, http.StatusConflict, "domain already claimed")
			return
		}
		s.respondStoreError(w, err)
		return
	}

	s.invalidateMapping(domain)

	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"domain":             d,
		"verification_token": token,
	})
}

// HandleVerifyDomain marks a claimed domain verified once the DNS challenge
// (checked by the provisioning surface) presented the right token.
func (s *GatewayServer) HandleVerifyDomain(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Domain string `json:"domain" validate:"required"`
		Token  string `json:"token" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	domain := tenant.NormalizeHost(req.Domain)

	d, err := s.store.GetCustomDomain(r.Context(), domain)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	ac := AuthFromContext(r.Context())
	if d.TenantID != ac.TenantID {
		s.respondError(w, http.StatusForbidden, "access denied")
		return
	}

	if req.Token != d.VerificationToken {
		s.respondError(w, http.StatusBadRequest, "verification failed")
		return
	}

	d.Verified = true
	d.SSLStatus = models.SSLStatusActive

	if err := s.store.UpdateCustomDomain(r.Context(), d); err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.invalidateMapping(domain)

	log.Info().Str("domain", domain).Str("tenant", d.TenantID.String()).Msg("Custom domain verified")
	s.respondJSON(w, http.StatusOK, d)
}

// HandleSetPrimaryDomain marks one of the caller's verified domains primary
func (s *GatewayServer) HandleSetPrimaryDomain(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Domain string `json:"domain" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	domain := tenant.NormalizeHost(req.Domain)

	d, err := s.store.GetCustomDomain(r.Context(), domain)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	ac := AuthFromContext(r.Context())
	if d.TenantID != ac.TenantID {
		s.respondError(w, http.StatusForbidden, "access denied")
		return
	}
	if !d.Verified {
		s.respondError(w, http.StatusBadRequest, "domain is not verified")
		return
	}

	if err := s.store.SetPrimaryDomain(r.Context(), ac.TenantID, domain); err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "primary", "domain": domain})
}

// HandleTransferDomain moves a claimed domain to another tenant (super
// admin only). The external claim/verify protocol decides who the rightful
// owner is; this applies its outcome to the mapping.
func (s *GatewayServer) HandleTransferDomain(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Domain   string `json:"domain" validate:"required"`
		TenantID string `json:"tenant_id" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	target, err := uuid.Parse(req.TenantID)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant ID")
		return
	}

	if _, err := s.store.GetTenant(r.Context(), target); err != nil {
		s.respondStoreError(w, err)
		return
	}

	domain := tenant.NormalizeHost(req.Domain)
	if err := s.store.ReassignCustomDomain(r.Context(), domain, target); err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.invalidateMapping(domain)

	log.Info().Str("domain", domain).Str("tenant", target.String()).Msg("Custom domain transferred")
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "transferred", "domain": domain})
}

// HandleDeleteDomain releases a claimed domain
func (s *GatewayServer) HandleDeleteDomain(w http.ResponseWriter, r *http.Request) {
	domain := tenant.NormalizeHost(chi.URLParam(r, "domain"))

	d, err := s.store.GetCustomDomain(r.Context(), domain)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	ac := AuthFromContext(r.Context())
	if d.TenantID != ac.TenantID && !ac.IsSuperAdmin {
		s.respondError(w, http.StatusForbidden, "access denied")
		return
	}

	if err := s.store.DeleteCustomDomain(r.Context(), domain); err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.invalidateMapping(domain)

	log.Info().Str("domain", domain).Msg("Custom domain released")
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ========== Cache invalidation ==========

// invalidateMapping drops a single hostname from the local resolution cache
// and notifies sibling instances. Must run immediately after any operation
// that changes the domain-to-tenant mapping.
func (s *GatewayServer) invalidateMapping(domain string) {
	s.cache.Invalidate(domain)
	s.publishInvalidation(domain)
}

// invalidateAllMappings clears the local resolution cache and notifies
// sibling instances. Used when a change affects an unknown set of hostnames,
// e.g. tenant suspension.
func (s *GatewayServer) invalidateAllMappings() {
	s.cache.InvalidateAll()
	s.publishInvalidation("")
}

func (s *GatewayServer) publishInvalidation(domain string) {
	if s.nc == nil {
		return
	}

	payload, _ := json.Marshal(map[string]string{"domain": domain})
	if err := s.nc.Publish(server.DomainChangedSubject, payload); err != nil {
		log.Warn().Err(err).Str("domain", domain).Msg("Failed to publish cache invalidation")
	}
}
