package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant represents an isolated customer organization
type Tenant struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`

	// Slug is the subdomain label. Unique, immutable once assigned.
	Slug string `json:"slug" db:"slug"`

	Plan     string    `json:"plan" db:"plan"`
	Settings Variables `json:"settings" db:"settings"`

	// Status. Tenants are never physically deleted, only suspended.
	IsActive    bool       `json:"isActive" db:"is_active"`
	SuspendedAt *time.Time `json:"suspendedAt,omitempty" db:"suspended_at"`
}

// CustomDomain represents a second-level domain claimed by a tenant
type CustomDomain struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	TenantID uuid.UUID `json:"tenantId" db:"tenant_id"`

	// Domain is normalized: lowercase, no scheme, no www, no trailing slash.
	Domain string `json:"domain" db:"domain"`

	Verified          bool   `json:"verified" db:"verified"`
	IsPrimary         bool   `json:"isPrimary" db:"is_primary"`
	VerificationToken string `json:"-" db:"verification_token"`
	SSLStatus         string `json:"sslStatus" db:"ssl_status"`
}

// SSL status values for CustomDomain
const (
	SSLStatusPending = "pending"
	SSLStatusActive  = "active"
	SSLStatusFailed  = "failed"
)
