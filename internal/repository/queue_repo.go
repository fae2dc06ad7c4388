package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pulse-fitness/notifier/internal/domain"
)

// pgxIface is the part of *pgxpool.Pool the PostgreSQL repositories use.
// Tests substitute pgxmock's pool.
type pgxIface interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ConfigRepository reads the externally managed app_config key/value table.
type ConfigRepository interface {
	// GetValue returns domain.ErrConfigMissing when the key is absent or empty.
	GetValue(ctx context.Context, key string) (string, error)
}

// QueueRepository defines all persistence operations on notification_queue.
// The pgx implementation is in pg_queue_repo.go.
// Tests use a hand-written mock (mock_queue_repo.go).
type QueueRepository interface {
	// ClaimPending atomically selects up to limit pending rows, oldest first,
	// skipping rows leased by another run within the last lease duration, and
	// stamps them with claimToken.
	ClaimPending(ctx context.Context, limit int, lease time.Duration, claimToken string) ([]*domain.QueueItem, error)

	// Complete records the terminal outcome of a row. errMsg nil means the
	// send succeeded. A row that is already terminal is never changed and
	// yields domain.ErrAlreadyProcessed.
	Complete(ctx context.Context, id string, processedAt time.Time, errMsg *string) error

	Enqueue(ctx context.Context, item *domain.QueueItem) error
	GetByID(ctx context.Context, id string) (*domain.QueueItem, error)
	ListPendingByUser(ctx context.Context, userID string) ([]*domain.QueueItem, error)
}
