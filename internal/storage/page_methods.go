package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/numgate/numgate-server/internal/models"
)

// ========== Tenant Page Methods ==========

// GetPage gets a stored page by tenant and storage key
func (s *PostgresStore) GetPage(ctx context.Context, tenantID uuid.UUID, path string) (*models.TenantPage, error) {
	query := `
        SELECT id, created_at, updated_at, tenant_id, path, content, content_type, published
        FROM tenant_pages
        WHERE tenant_id = $1 AND path = $2`

	page := &models.TenantPage{}
	err := s.getDB().QueryRowContext(ctx, query, tenantID, path).Scan(
		&page.ID, &page.CreatedAt, &page.UpdatedAt, &page.TenantID, &page.Path,
		&page.Content, &page.ContentType, &page.Published,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return page, err
}

// UpsertPage creates or replaces a stored page
func (s *PostgresStore) UpsertPage(ctx context.Context, page *models.TenantPage) error {
	if page.ID == uuid.Nil {
		page.ID = uuid.New()
	}

	now := time.Now()
	if page.CreatedAt.IsZero() {
		page.CreatedAt = now
	}
	page.UpdatedAt = now

	if page.ContentType == "" {
		page.ContentType = "text/html; charset=utf-8"
	}

	query := `
        INSERT INTO tenant_pages (
            id, created_at, updated_at, tenant_id, path, content, content_type, published
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8
        )
        ON CONFLICT (tenant_id, path) DO UPDATE SET
            updated_at = EXCLUDED.updated_at,
            content = EXCLUDED.content,
            content_type = EXCLUDED.content_type,
            published = EXCLUDED.published`

	_, err := s.getDB().ExecContext(ctx, query,
		page.ID, page.CreatedAt, page.UpdatedAt, page.TenantID, page.Path,
		page.Content, page.ContentType, page.Published,
	)

	return err
}

// DeletePage removes a stored page
func (s *PostgresStore) DeletePage(ctx context.Context, tenantID uuid.UUID, path string) error {
	result, err := s.getDB().ExecContext(ctx,
		`DELETE FROM tenant_pages WHERE tenant_id = $1 AND path = $2`, tenantID, path)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}
