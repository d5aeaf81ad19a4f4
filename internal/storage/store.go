package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/numgate/numgate-server/internal/models"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidData  = errors.New("invalid data")
)

// Store defines the storage interface
type Store interface {
	// Transaction support
	BeginTx(ctx context.Context) (Store, error)
	Commit() error
	Rollback() error

	// Tenant methods
	CreateTenant(ctx context.Context, tenant *models.Tenant) error
	GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	UpdateTenant(ctx context.Context, tenant *models.Tenant) error
	SuspendTenant(ctx context.Context, id uuid.UUID) error
	ListTenants(ctx context.Context, limit, offset int) ([]*models.Tenant, int64, error)

	// Custom domain methods
	CreateCustomDomain(ctx context.Context, domain *models.CustomDomain) error
	GetCustomDomain(ctx context.Context, domain string) (*models.CustomDomain, error)
	GetTenantByDomain(ctx context.Context, domain string) (*models.Tenant, error)
	ListCustomDomains(ctx context.Context, tenantID uuid.UUID) ([]*models.CustomDomain, error)
	UpdateCustomDomain(ctx context.Context, domain *models.CustomDomain) error
	ReassignCustomDomain(ctx context.Context, domain string, tenantID uuid.UUID) error
	DeleteCustomDomain(ctx context.Context, domain string) error
	SetPrimaryDomain(ctx context.Context, tenantID uuid.UUID, domain string) error

	// User methods
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error

	// Tenant page methods
	GetPage(ctx context.Context, tenantID uuid.UUID, path string) (*models.TenantPage, error)
	UpsertPage(ctx context.Context, page *models.TenantPage) error
	DeletePage(ctx context.Context, tenantID uuid.UUID, path string) error

	// Close the store
	Close() error
}
