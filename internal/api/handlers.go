package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/numgate/numgate-server/internal/storage"
	"github.com/numgate/numgate-server/pkg/crypto"
)

// ========== Health ==========

// HandleHealth reports liveness
func (s *GatewayServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"name":    s.config.Server.Name,
		"version": s.config.Server.Version,
	})
}

// ========== Auth handlers ==========

// HandleLogin handles user login. Failures return a generic message: the
// response never distinguishes a wrong password from an unknown email.
func (s *GatewayServer) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	limitID := strings.ToLower(req.Email)
	if s.limiter.IsRateLimited(limitID) {
		retryAfter := int(s.limiter.RetryAfter(limitID).Seconds()) + 1
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		s.respondError(w, http.StatusTooManyRequests, "too many login attempts, try again later")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), limitID)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if !crypto.VerifyPassword(req.Password, user.PasswordHash) {
		s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if !user.IsActive {
		s.respondError(w, http.StatusForbidden, "account is disabled")
		return
	}

	token, err := s.auth.IssueToken(user)
	if err != nil {
		log.Error().Err(err).Msg("Failed to issue token")
		s.respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	s.limiter.Reset(limitID)

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		log.Warn().Err(err).Str("email", user.Email).Msg("Failed to record login time")
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.config.JWT.AccessTokenTTL.Seconds()),
	})

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": token,
		"expires_in":   int(s.config.JWT.AccessTokenTTL.Seconds()),
		"token_type":   "Bearer",
	})
}

// ========== Response helpers ==========

// respondJSON writes a JSON response
func (s *GatewayServer) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Error().Err(err).Msg("Failed to encode response")
		}
	}
}

// respondError writes a JSON error response
func (s *GatewayServer) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondStoreError maps storage errors to HTTP statuses
func (s *GatewayServer) respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrDuplicateKey):
		s.respondError(w, http.StatusConflict, "already exists")
	default:
		log.Error().Err(err).Msg("Storage error")
		s.respondError(w, http.StatusInternalServerError, "internal error")
	}
}
