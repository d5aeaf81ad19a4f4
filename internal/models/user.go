package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a platform or tenant user
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	Email string `json:"email" db:"email"`
	Name  string `json:"name" db:"name"`

	PasswordHash string `json:"-" db:"password_hash"`

	Role         string `json:"role" db:"role"`
	IsSuperAdmin bool   `json:"isSuperAdmin" db:"is_super_admin"`
	IsActive     bool   `json:"isActive" db:"is_active"`

	LastLoginAt *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`

	TenantID *uuid.UUID `json:"tenantId,omitempty" db:"tenant_id"`

	Settings Variables `json:"settings" db:"settings"`
}
