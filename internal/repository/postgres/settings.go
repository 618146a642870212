package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/insider-one/order-confirmation-service/internal/domain"
)

// SettingRepository implements domain.SettingRepository using PostgreSQL
type SettingRepository struct {
	db *DB
}

// NewSettingRepository creates a new SettingRepository
func NewSettingRepository(db *DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// GetByKey retrieves a store setting by key
func (r *SettingRepository) GetByKey(ctx context.Context, key string) (*domain.Setting, error) {
	s := &domain.Setting{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT key, value, updated_at
		FROM store_settings
		WHERE key = $1
	`, key).Scan(&s.Key, &s.Value, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan setting: %w", err)
	}
	return s, nil
}
