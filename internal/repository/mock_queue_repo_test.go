package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulse-fitness/notifier/internal/domain"
	"github.com/pulse-fitness/notifier/internal/repository"
)

func seedRows(repo *repository.MockQueueRepository, n int, base time.Time) {
	for i := 0; i < n; i++ {
		repo.Seed(&domain.QueueItem{
			ID:        fmt.Sprintf("row-%02d", i),
			Email:     fmt.Sprintf("u%d@x.com", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}
}

func TestMockQueueRepository_ClaimOrderAndLimit(t *testing.T) {
	repo := repository.NewMockQueueRepository()
	seedRows(repo, 7, time.Now().Add(-time.Hour))

	items, err := repo.ClaimPending(context.Background(), 5, time.Minute, "run-1")
	require.NoError(t, err)
	require.Len(t, items, 5)
	for i, it := range items {
		assert.Equal(t, fmt.Sprintf("row-%02d", i), it.ID)
		require.NotNil(t, it.ClaimedBy)
		assert.Equal(t, "run-1", *it.ClaimedBy)
	}
}

func TestMockQueueRepository_TiesBrokenByID(t *testing.T) {
	repo := repository.NewMockQueueRepository()
	ts := time.Now()
	repo.Seed(
		&domain.QueueItem{ID: "b", CreatedAt: ts},
		&domain.QueueItem{ID: "a", CreatedAt: ts},
		&domain.QueueItem{ID: "c", CreatedAt: ts.Add(-time.Second)},
	)

	items, err := repo.ClaimPending(context.Background(), 10, time.Minute, "run")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{items[0].ID, items[1].ID, items[2].ID})
}

func TestMockQueueRepository_LeaseExcludesClaimedRows(t *testing.T) {
	repo := repository.NewMockQueueRepository()
	seedRows(repo, 4, time.Now().Add(-time.Hour))
	ctx := context.Background()

	first, err := repo.ClaimPending(ctx, 3, time.Minute, "run-1")
	require.NoError(t, err)
	second, err := repo.ClaimPending(ctx, 3, time.Minute, "run-2")
	require.NoError(t, err)

	require.Len(t, first, 3)
	require.Len(t, second, 1)
	assert.Equal(t, "row-03", second[0].ID)

	// A zero lease means every claim has already expired.
	third, err := repo.ClaimPending(ctx, 10, 0, "run-3")
	require.NoError(t, err)
	assert.Len(t, third, 4)
}

func TestMockQueueRepository_CompleteIsTerminal(t *testing.T) {
	repo := repository.NewMockQueueRepository()
	seedRows(repo, 1, time.Now())
	ctx := context.Background()

	require.NoError(t, repo.Complete(ctx, "row-00", time.Now(), nil))

	msg := "late failure"
	err := repo.Complete(ctx, "row-00", time.Now(), &msg)
	assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)

	it, err := repo.GetByID(ctx, "row-00")
	require.NoError(t, err)
	assert.NotNil(t, it.ProcessedAt)
	assert.Nil(t, it.Error)

	items, err := repo.ClaimPending(ctx, 10, 0, "again")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMockQueueRepository_CompleteUnknown(t *testing.T) {
	repo := repository.NewMockQueueRepository()
	err := repo.Complete(context.Background(), "missing", time.Now(), nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMockQueueRepository_ListPendingByUser(t *testing.T) {
	repo := repository.NewMockQueueRepository()
	u1, u2 := "user-1", "user-2"
	now := time.Now()
	repo.Seed(
		&domain.QueueItem{ID: "1", UserID: &u1, CreatedAt: now},
		&domain.QueueItem{ID: "2", UserID: &u2, CreatedAt: now},
		&domain.QueueItem{ID: "3", UserID: &u1, CreatedAt: now.Add(time.Second), ProcessedAt: &now},
	)

	items, err := repo.ListPendingByUser(context.Background(), u1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "1", items[0].ID)
}

func TestMockConfigRepository(t *testing.T) {
	repo := repository.NewMockConfigRepository(map[string]string{domain.WebappURLKey: "https://pulse.app"})

	v, err := repo.GetValue(context.Background(), domain.WebappURLKey)
	require.NoError(t, err)
	assert.Equal(t, "https://pulse.app", v)

	_, err = repo.GetValue(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrConfigMissing)
	assert.Equal(t, 2, repo.Calls())
}
