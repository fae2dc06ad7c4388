package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulse-fitness/notifier/internal/domain"
)

type pgConfigRepository struct {
	pool pgxIface
}

// NewPgConfigRepository returns a ConfigRepository reading app_config.
func NewPgConfigRepository(pool *pgxpool.Pool) ConfigRepository {
	return &pgConfigRepository{pool: pool}
}

func (r *pgConfigRepository) GetValue(ctx context.Context, key string) (string, error) {
	var value *string
	err := r.pool.QueryRow(ctx, `SELECT value FROM app_config WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", key, domain.ErrConfigMissing)
	}
	if err != nil {
		return "", fmt.Errorf("read app_config %s: %w", key, err)
	}
	if value == nil || strings.TrimSpace(*value) == "" {
		return "", fmt.Errorf("%s: %w", key, domain.ErrConfigMissing)
	}
	return strings.TrimSpace(*value), nil
}
