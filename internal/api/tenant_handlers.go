package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/numgate/numgate-server/internal/models"
	"github.com/numgate/numgate-server/internal/storage"
	"github.com/numgate/numgate-server/pkg/crypto"
)

// ========== Tenant handlers ==========

// HandleRegisterTenant registers a new tenant with its owner account
func (s *GatewayServer) HandleRegisterTenant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name" validate:"required,min=2,max=100"`
		Email    string `json:"email" validate:"required,email"`
		Slug     string `json:"slug" validate:"required,slug"`
		Plan     string `json:"plan"`
		Password string `json:"password" validate:"required,min=8"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Plan == "" {
		req.Plan = "free"
	}

	t := &models.Tenant{
		Name:     req.Name,
		Email:    req.Email,
		Slug:     req.Slug,
		Plan:     req.Plan,
		Settings: models.Variables{},
		IsActive: true,
	}

	if err := s.store.CreateTenant(r.Context(), t); err != nil {
		if err == storage.ErrDuplicateKey {
			s.respondError(w, http.StatusConflict, "slug already taken")
			return
		}
		s.respondStoreError(w, err)
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		log.Error().Err(err).Str("slug", t.Slug).Msg("Failed to hash owner password")
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	owner := &models.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         "owner",
		IsActive:     true,
		TenantID:     &t.ID,
		Settings:     models.Variables{},
	}

	if err := s.store.CreateUser(r.Context(), owner); err != nil {
		log.Error().Err(err).Str("slug", t.Slug).Msg("Failed to create owner user")
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, t)
}

// HandleGetTenant gets a tenant. Non-super-admins can only read their own.
func (s *GatewayServer) HandleGetTenant(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant ID")
		return
	}

	ac := AuthFromContext(r.Context())
	if !ac.IsSuperAdmin && ac.TenantID != id {
		s.respondError(w, http.StatusForbidden, "access denied")
		return
	}

	t, err := s.store.GetTenant(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, t)
}

// HandleListTenants lists tenants (super admin only)
func (s *GatewayServer) HandleListTenants(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	tenants, total, err := s.store.ListTenants(r.Context(), limit, offset)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"tenants": tenants,
		"total":   total,
	})
}

// HandleSuspendTenant soft-disables a tenant (super admin only). The tenant
// cache is cleared so the suspension takes effect without waiting out the TTL.
func (s *GatewayServer) HandleSuspendTenant(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant ID")
		return
	}

	if err := s.store.SuspendTenant(r.Context(), id); err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.invalidateAllMappings()

	log.Info().Str("tenant", id.String()).Msg("Tenant suspended")
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "suspended"})
}
