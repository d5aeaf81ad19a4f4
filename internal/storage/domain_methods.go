package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/numgate/numgate-server/internal/models"
)

// ========== Custom Domain Methods ==========

// CreateCustomDomain claims a domain for a tenant
func (s *PostgresStore) CreateCustomDomain(ctx context.Context, domain *models.CustomDomain) error {
	if domain.ID == uuid.Nil {
		domain.ID = uuid.New()
	}

	now := time.Now()
	domain.CreatedAt = now
	domain.UpdatedAt = now

	if domain.SSLStatus == "" {
		domain.SSLStatus = models.SSLStatusPending
	}

	query := `
        INSERT INTO custom_domains (
            id, created_at, updated_at, tenant_id, domain, verified, is_primary,
            verification_token, ssl_status
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9
        )`

	_, err := s.getDB().ExecContext(ctx, query,
		domain.ID, domain.CreatedAt, domain.UpdatedAt, domain.TenantID, domain.Domain,
		domain.Verified, domain.IsPrimary, domain.VerificationToken, domain.SSLStatus,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetCustomDomain gets a custom domain by its domain string
func (s *PostgresStore) GetCustomDomain(ctx context.Context, domain string) (*models.CustomDomain, error) {
	query := `
        SELECT id, created_at, updated_at, tenant_id, domain, verified, is_primary,
               verification_token, ssl_status
        FROM custom_domains
        WHERE domain = $1`

	d := &models.CustomDomain{}
	err := s.getDB().QueryRowContext(ctx, query, domain).Scan(
		&d.ID, &d.CreatedAt, &d.UpdatedAt, &d.TenantID, &d.Domain,
		&d.Verified, &d.IsPrimary, &d.VerificationToken, &d.SSLStatus,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return d, err
}

// GetTenantByDomain gets the tenant owning a verified custom domain
func (s *PostgresStore) GetTenantByDomain(ctx context.Context, domain string) (*models.Tenant, error) {
	query := `
        SELECT t.id, t.created_at, t.updated_at, t.name, t.email, t.slug, t.plan,
               t.settings, t.is_active, t.suspended_at
        FROM tenants t
        JOIN custom_domains d ON d.tenant_id = t.id
        WHERE d.domain = $1 AND d.verified = true`

	tenant := &models.Tenant{}
	err := s.getDB().QueryRowContext(ctx, query, domain).Scan(
		&tenant.ID, &tenant.CreatedAt, &tenant.UpdatedAt, &tenant.Name, &tenant.Email,
		&tenant.Slug, &tenant.Plan, &tenant.Settings, &tenant.IsActive, &tenant.SuspendedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return tenant, err
}

// ListCustomDomains lists domains claimed by a tenant
func (s *PostgresStore) ListCustomDomains(ctx context.Context, tenantID uuid.UUID) ([]*models.CustomDomain, error) {
	query := `
        SELECT id, created_at, updated_at, tenant_id, domain, verified, is_primary,
               verification_token, ssl_status
        FROM custom_domains
        WHERE tenant_id = $1
        ORDER BY created_at`

	rows, err := s.getDB().QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	domains := make([]*models.CustomDomain, 0)
	for rows.Next() {
		d := &models.CustomDomain{}
		if err := rows.Scan(
			&d.ID, &d.CreatedAt, &d.UpdatedAt, &d.TenantID, &d.Domain,
			&d.Verified, &d.IsPrimary, &d.VerificationToken, &d.SSLStatus,
		); err != nil {
			return nil, err
		}
		domains = append(domains, d)
	}

	return domains, rows.Err()
}

// UpdateCustomDomain updates a custom domain record
func (s *PostgresStore) UpdateCustomDomain(ctx context.Context, domain *models.CustomDomain) error {
	domain.UpdatedAt = time.Now()

	query := `
        UPDATE custom_domains SET
            updated_at = $2, verified = $3, is_primary = $4, verification_token = $5,
            ssl_status = $6
        WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		domain.ID, domain.UpdatedAt, domain.Verified, domain.IsPrimary,
		domain.VerificationToken, domain.SSLStatus,
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

// ReassignCustomDomain transfers a claimed domain to another tenant.
// The claim/verify protocol runs outside the gateway; its output is this
// tenant_id reassignment.
func (s *PostgresStore) ReassignCustomDomain(ctx context.Context, domain string, tenantID uuid.UUID) error {
	query := `
        UPDATE custom_domains SET
            updated_at = $3, tenant_id = $2, is_primary = false
        WHERE domain = $1`

	result, err := s.getDB().ExecContext(ctx, query, domain, tenantID, time.Now())
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteCustomDomain releases a claimed domain
func (s *PostgresStore) DeleteCustomDomain(ctx context.Context, domain string) error {
	result, err := s.getDB().ExecContext(ctx,
		`DELETE FROM custom_domains WHERE domain = $1`, domain)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// SetPrimaryDomain marks one of a tenant's domains as primary.
// At most one domain per tenant may be primary, so the previous primary
// is cleared in the same transaction.
func (s *PostgresStore) SetPrimaryDomain(ctx context.Context, tenantID uuid.UUID, domain string) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	pgTx := tx.(*PostgresStore)

	if _, err := pgTx.getDB().ExecContext(ctx,
		`UPDATE custom_domains SET is_primary = false, updated_at = $2 WHERE tenant_id = $1 AND is_primary = true`,
		tenantID, time.Now()); err != nil {
		return err
	}

	result, err := pgTx.getDB().ExecContext(ctx,
		`UPDATE custom_domains SET is_primary = true, updated_at = $3 WHERE tenant_id = $1 AND domain = $2`,
		tenantID, domain, time.Now())
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}
