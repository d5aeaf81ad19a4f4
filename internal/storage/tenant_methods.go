package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/numgate/numgate-server/internal/models"
)

// ========== Tenant Methods ==========

// CreateTenant creates a new tenant
func (s *PostgresStore) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}

	now := time.Now()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now

	query := `
        INSERT INTO tenants (
            id, created_at, updated_at, name, email, slug, plan, settings, is_active
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9
        )`

	_, err := s.getDB().ExecContext(ctx, query,
		tenant.ID, tenant.CreatedAt, tenant.UpdatedAt, tenant.Name, tenant.Email,
		tenant.Slug, tenant.Plan, tenant.Settings, tenant.IsActive,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetTenant gets a tenant by ID
func (s *PostgresStore) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	query := `
        SELECT id, created_at, updated_at, name, email, slug, plan, settings,
               is_active, suspended_at
        FROM tenants
        WHERE id = $1`

	tenant := &models.Tenant{}
	err := s.getDB().QueryRowContext(ctx, query, id).Scan(
		&tenant.ID, &tenant.CreatedAt, &tenant.UpdatedAt, &tenant.Name, &tenant.Email,
		&tenant.Slug, &tenant.Plan, &tenant.Settings, &tenant.IsActive, &tenant.SuspendedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return tenant, err
}

// GetTenantBySlug gets a tenant by its subdomain slug
func (s *PostgresStore) GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	query := `
        SELECT id, created_at, updated_at, name, email, slug, plan, settings,
               is_active, suspended_at
        FROM tenants
        WHERE slug = $1`

	tenant := &models.Tenant{}
	err := s.getDB().QueryRowContext(ctx, query, slug).Scan(
		&tenant.ID, &tenant.CreatedAt, &tenant.UpdatedAt, &tenant.Name, &tenant.Email,
		&tenant.Slug, &tenant.Plan, &tenant.Settings, &tenant.IsActive, &tenant.SuspendedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return tenant, err
}

// UpdateTenant updates a tenant. The slug is immutable and never written.
func (s *PostgresStore) UpdateTenant(ctx context.Context, tenant *models.Tenant) error {
	tenant.UpdatedAt = time.Now()

	query := `
        UPDATE tenants SET
            updated_at = $2, name = $3, email = $4, plan = $5, settings = $6,
            is_active = $7, suspended_at = $8
        WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		tenant.ID, tenant.UpdatedAt, tenant.Name, tenant.Email, tenant.Plan,
		tenant.Settings, tenant.IsActive, tenant.SuspendedAt,
	)

	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// SuspendTenant soft-disables a tenant
func (s *PostgresStore) SuspendTenant(ctx context.Context, id uuid.UUID) error {
	now := time.Now()

	query := `
        UPDATE tenants SET
            updated_at = $2, is_active = false, suspended_at = $2
        WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query, id, now)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ListTenants lists tenants with pagination
func (s *PostgresStore) ListTenants(ctx context.Context, limit, offset int) ([]*models.Tenant, int64, error) {
	var total int64
	if err := s.getDB().QueryRowContext(ctx, `SELECT COUNT(*) FROM tenants`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
        SELECT id, created_at, updated_at, name, email, slug, plan, settings,
               is_active, suspended_at
        FROM tenants
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2`

	rows, err := s.getDB().QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tenants := make([]*models.Tenant, 0)
	for rows.Next() {
		tenant := &models.Tenant{}
		if err := rows.Scan(
			&tenant.ID, &tenant.CreatedAt, &tenant.UpdatedAt, &tenant.Name, &tenant.Email,
			&tenant.Slug, &tenant.Plan, &tenant.Settings, &tenant.IsActive, &tenant.SuspendedAt,
		); err != nil {
			return nil, 0, err
		}
		tenants = append(tenants, tenant)
	}

	return tenants, total, rows.Err()
}
