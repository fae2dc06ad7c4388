package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulse-fitness/notifier/internal/domain"
)

const queueColumns = `id, user_id, email, subject, is_new_user, has_worked_out,
	       pulse_level, active_users, created_at, processed_at, error,
	       claimed_at, claimed_by`

type pgQueueRepository struct {
	pool pgxIface
}

// NewPgQueueRepository returns a QueueRepository backed by PostgreSQL.
func NewPgQueueRepository(pool *pgxpool.Pool) QueueRepository {
	return &pgQueueRepository{pool: pool}
}

// ClaimPending locks candidate rows with FOR UPDATE SKIP LOCKED so that two
// overlapping runs never see the same row, then stamps the lease inside the
// same transaction.
func (r *pgQueueRepository) ClaimPending(ctx context.Context, limit int, lease time.Duration, claimToken string) ([]*domain.QueueItem, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()

	rows, err := tx.Query(ctx, `
		SELECT `+queueColumns+`
		FROM notification_queue
		WHERE processed_at IS NULL
		  AND (claimed_at IS NULL OR claimed_at <= $1)
		ORDER BY created_at ASC, id ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED`, now.Add(-lease), limit)
	if err != nil {
		return nil, fmt.Errorf("select pending notifications: %w", err)
	}
	items, err := scanQueueItems(rows)
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("scan pending notifications: %w", err)
	}

	if len(items) == 0 {
		return items, tx.Commit(ctx)
	}

	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
		it.ClaimedAt = &now
		it.ClaimedBy = &claimToken
	}

	if _, err := tx.Exec(ctx, `
		UPDATE notification_queue
		SET claimed_at = $1, claimed_by = $2
		WHERE id = ANY($3::uuid[])`, now, claimToken, ids); err != nil {
		return nil, fmt.Errorf("claim notifications: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	return items, nil
}

func (r *pgQueueRepository) Complete(ctx context.Context, id string, processedAt time.Time, errMsg *string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notification_queue
		SET processed_at = $1, error = $2
		WHERE id = $3 AND processed_at IS NULL`, processedAt, errMsg, id)
	if err != nil {
		return fmt.Errorf("complete notification: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Distinguish a missing row from one that is already terminal.
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM notification_queue WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check notification: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrAlreadyProcessed
}

func (r *pgQueueRepository) Enqueue(ctx context.Context, it *domain.QueueItem) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notification_queue
			(id, user_id, email, subject, is_new_user, has_worked_out,
			 pulse_level, active_users, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		it.ID, it.UserID, it.Email, it.Subject, it.IsNewUser, it.HasWorkedOut,
		it.PulseLevel, it.ActiveUsers, it.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *pgQueueRepository) GetByID(ctx context.Context, id string) (*domain.QueueItem, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+queueColumns+`
		FROM notification_queue WHERE id = $1`, id)

	it, err := scanQueueItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return it, err
}

func (r *pgQueueRepository) ListPendingByUser(ctx context.Context, userID string) ([]*domain.QueueItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+queueColumns+`
		FROM notification_queue
		WHERE user_id = $1 AND processed_at IS NULL
		ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list pending notifications: %w", err)
	}
	defer rows.Close()
	return scanQueueItems(rows)
}

// ---- helpers ----

// scanQueueItem reads a single queue row from any pgx row type.
func scanQueueItem(row pgx.Row) (*domain.QueueItem, error) {
	var it domain.QueueItem
	err := row.Scan(
		&it.ID, &it.UserID, &it.Email, &it.Subject, &it.IsNewUser, &it.HasWorkedOut,
		&it.PulseLevel, &it.ActiveUsers, &it.CreatedAt, &it.ProcessedAt, &it.Error,
		&it.ClaimedAt, &it.ClaimedBy,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func scanQueueItems(rows pgx.Rows) ([]*domain.QueueItem, error) {
	result := []*domain.QueueItem{}
	for rows.Next() {
		it, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, it)
	}
	return result, rows.Err()
}
