package models

import (
	"time"

	"github.com/google/uuid"
)

// TenantPage represents a stored HTML artifact served for a tenant path.
// Content is written by the admin surface and read-only for the gateway.
type TenantPage struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	TenantID uuid.UUID `json:"tenantId" db:"tenant_id"`

	// Path is the storage key within the tenant, e.g. "about.html".
	Path string `json:"path" db:"path"`

	Content     []byte `json:"-" db:"content"`
	ContentType string `json:"contentType" db:"content_type"`

	Published bool `json:"published" db:"published"`
}
