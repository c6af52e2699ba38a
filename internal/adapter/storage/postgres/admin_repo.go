package postgres

import (
	"context"
	"errors"
	"fmt"

	"thirdplace-webhooks/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AdminRepo implements ports.AdminRepository.
type AdminRepo struct {
	pool Pool
}

// NewAdminRepo creates a new AdminRepo.
func NewAdminRepo(pool Pool) *AdminRepo {
	return &AdminRepo{pool: pool}
}

// Create inserts a new administrator account.
func (r *AdminRepo) Create(ctx context.Context, a *domain.AdminUser) error {
	query := `INSERT INTO admin_users (id, username, password_hash, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.Username, a.PasswordHash, a.Status, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}

// GetByID fetches an admin by UUID.
func (r *AdminRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.AdminUser, error) {
	query := `SELECT id, username, password_hash, status, created_at, updated_at
		FROM admin_users WHERE id = $1`

	return r.scanAdmin(r.pool.QueryRow(ctx, query, id))
}

// GetByUsername fetches an admin by username.
func (r *AdminRepo) GetByUsername(ctx context.Context, username string) (*domain.AdminUser, error) {
	query := `SELECT id, username, password_hash, status, created_at, updated_at
		FROM admin_users WHERE username = $1`

	return r.scanAdmin(r.pool.QueryRow(ctx, query, username))
}

func (r *AdminRepo) scanAdmin(row pgx.Row) (*domain.AdminUser, error) {
	a := &domain.AdminUser{}
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan admin: %w", err)
	}
	return a, nil
}
