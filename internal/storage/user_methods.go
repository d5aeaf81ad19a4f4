package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/numgate/numgate-server/internal/models"
)

// ========== User Methods ==========

// CreateUser creates a new user
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
        INSERT INTO users (
            id, created_at, updated_at, email, name, password_hash, role,
            is_super_admin, is_active, tenant_id, settings
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
        )`

	_, err := s.getDB().ExecContext(ctx, query,
		user.ID, user.CreatedAt, user.UpdatedAt, user.Email, user.Name,
		user.PasswordHash, user.Role, user.IsSuperAdmin, user.IsActive,
		user.TenantID, user.Settings,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetUser gets a user by ID
func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `
        SELECT id, created_at, updated_at, email, name, password_hash, role,
               is_super_admin, is_active, last_login_at, tenant_id, settings
        FROM users
        WHERE id = $1`

	user := &models.User{}
	err := s.getDB().QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.CreatedAt, &user.UpdatedAt, &user.Email, &user.Name,
		&user.PasswordHash, &user.Role, &user.IsSuperAdmin, &user.IsActive,
		&user.LastLoginAt, &user.TenantID, &user.Settings,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return user, err
}

// GetUserByEmail gets a user by email
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
        SELECT id, created_at, updated_at, email, name, password_hash, role,
               is_super_admin, is_active, last_login_at, tenant_id, settings
        FROM users
        WHERE email = $1`

	user := &models.User{}
	err := s.getDB().QueryRowContext(ctx, query, email).Scan(
		&user.ID, &user.CreatedAt, &user.UpdatedAt, &user.Email, &user.Name,
		&user.PasswordHash, &user.Role, &user.IsSuperAdmin, &user.IsActive,
		&user.LastLoginAt, &user.TenantID, &user.Settings,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return user, err
}

// UpdateUser updates a user
func (s *PostgresStore) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()

	query := `
        UPDATE users SET
            updated_at = $2, email = $3, name = $4, role = $5, is_super_admin = $6,
            is_active = $7, last_login_at = $8, tenant_id = $9, settings = $10
        WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		user.ID, user.UpdatedAt, user.Email, user.Name, user.Role,
		user.IsSuperAdmin, user.IsActive, user.LastLoginAt, user.TenantID, user.Settings,
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
