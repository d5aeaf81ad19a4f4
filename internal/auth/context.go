package auth

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
)

// Forwarded identity headers. These are stamped by the session middleware
// after credential verification and must never be accepted directly from the
// public internet.
const (
	HeaderTenantID     = "x-tenant-id"
	HeaderUserID       = "x-user-id"
	HeaderUserEmail    = "x-user-email"
	HeaderUserRole     = "x-user-role"
	HeaderIsSuperAdmin = "x-is-super-admin"
	HeaderPlatformMode = "x-platform-mode"
)

// Extraction failure reasons
var (
	ErrNoTenant               = errors.New("missing tenant identity")
	ErrInvalidTenant          = errors.New("malformed tenant identity")
	ErrPlatformModeDisallowed = errors.New("platform mode not allowed")
	ErrNoUser                 = errors.New("user identity required")
	ErrNotSuperAdmin          = errors.New("super admin required")
)

// AuthContext is the per-request authorization context, built from
// already-verified credentials. It lives for one request and is never stored.
type AuthContext struct {
	TenantID     uuid.UUID
	UserID       *uuid.UUID
	Email        string
	Role         string
	IsSuperAdmin bool
	PlatformMode bool
}

// Options configures what Extract demands of a request
type Options struct {
	// RequireUserID demands a resolved user identity, not just a tenant.
	RequireUserID bool
	// RequireSuperAdmin demands the super-admin flag.
	RequireSuperAdmin bool
	// AllowPlatformMode permits requests flagged platform-mode. When false
	// such requests are rejected regardless of other credentials.
	AllowPlatformMode bool
}

// Extract validates the forwarded identity on a request and builds a typed
// authorization context. Checks are fail-fast in a fixed order: tenant
// presence, platform mode, user requirement, super-admin requirement.
func Extract(r *http.Request, opts Options) (*AuthContext, error) {
	rawTenant := r.Header.Get(HeaderTenantID)
	if rawTenant == "" {
		return nil, ErrNoTenant
	}

	tenantID, err := uuid.Parse(rawTenant)
	if err != nil {
		return nil, ErrInvalidTenant
	}

	ac := &AuthContext{
		TenantID:     tenantID,
		Email:        r.Header.Get(HeaderUserEmail),
		Role:         r.Header.Get(HeaderUserRole),
		IsSuperAdmin: r.Header.Get(HeaderIsSuperAdmin) == "true",
		PlatformMode: r.Header.Get(HeaderPlatformMode) == "true",
	}

	if raw := r.Header.Get(HeaderUserID); raw != "" {
		if userID, err := uuid.Parse(raw); err == nil {
			ac.UserID = &userID
		}
	}

	if ac.PlatformMode && !opts.AllowPlatformMode {
		return nil, ErrPlatformModeDisallowed
	}

	if opts.RequireUserID && ac.UserID == nil {
		return nil, ErrNoUser
	}

	if opts.RequireSuperAdmin && !ac.IsSuperAdmin {
		return nil, ErrNotSuperAdmin
	}

	return ac, nil
}

// StripIdentityHeaders removes all forwarded identity headers from a request.
// The session middleware calls this before re-stamping verified values, so
// externally supplied identity never reaches a handler.
func StripIdentityHeaders(r *http.Request) {
	for _, h := range []string{
		HeaderTenantID, HeaderUserID, HeaderUserEmail,
		HeaderUserRole, HeaderIsSuperAdmin, HeaderPlatformMode,
	} {
		r.Header.Del(h)
	}
}
