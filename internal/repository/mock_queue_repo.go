package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pulse-fitness/notifier/internal/domain"
)

// MockQueueRepository is a hand-written, in-memory implementation of
// QueueRepository used in unit tests. It keeps the same ordering, lease and
// terminal-state rules as the PostgreSQL implementation.
type MockQueueRepository struct {
	mu    sync.Mutex
	items map[string]*domain.QueueItem

	// Optional error overrides, set in tests to simulate failure paths.
	ClaimErr   error
	EnqueueErr error
	// CompleteErr, when set, is consulted for every Complete call; a non-nil
	// return is reported without touching the row.
	CompleteErr func(id string) error

	claimCalls    int
	completeCalls int
}

func NewMockQueueRepository() *MockQueueRepository {
	return &MockQueueRepository{items: make(map[string]*domain.QueueItem)}
}

// Seed inserts rows as-is, bypassing validation.
func (m *MockQueueRepository) Seed(items ...*domain.QueueItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		clone := cloneItem(it)
		m.items[it.ID] = clone
	}
}

func (m *MockQueueRepository) ClaimPending(_ context.Context, limit int, lease time.Duration, claimToken string) ([]*domain.QueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claimCalls++
	if m.ClaimErr != nil {
		return nil, m.ClaimErr
	}

	now := time.Now().UTC()
	cutoff := now.Add(-lease)

	var candidates []*domain.QueueItem
	for _, it := range m.items {
		if it.ProcessedAt != nil {
			continue
		}
		if it.ClaimedAt != nil && it.ClaimedAt.After(cutoff) {
			continue
		}
		candidates = append(candidates, it)
	}
	sortItems(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	result := make([]*domain.QueueItem, 0, len(candidates))
	for _, it := range candidates {
		claimedAt := now
		token := claimToken
		it.ClaimedAt = &claimedAt
		it.ClaimedBy = &token
		result = append(result, cloneItem(it))
	}
	return result, nil
}

func (m *MockQueueRepository) Complete(_ context.Context, id string, processedAt time.Time, errMsg *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeCalls++
	if m.CompleteErr != nil {
		if err := m.CompleteErr(id); err != nil {
			return err
		}
	}
	it, ok := m.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	if it.ProcessedAt != nil {
		return domain.ErrAlreadyProcessed
	}
	ts := processedAt
	it.ProcessedAt = &ts
	if errMsg != nil {
		msg := *errMsg
		it.Error = &msg
	} else {
		it.Error = nil
	}
	return nil
}

func (m *MockQueueRepository) Enqueue(_ context.Context, it *domain.QueueItem) error {
	if m.EnqueueErr != nil {
		return m.EnqueueErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[it.ID] = cloneItem(it)
	return nil
}

func (m *MockQueueRepository) GetByID(_ context.Context, id string) (*domain.QueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneItem(it), nil
}

func (m *MockQueueRepository) ListPendingByUser(_ context.Context, userID string) ([]*domain.QueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []*domain.QueueItem{}
	for _, it := range m.items {
		if it.ProcessedAt == nil && it.UserID != nil && *it.UserID == userID {
			result = append(result, cloneItem(it))
		}
	}
	sortItems(result)
	return result, nil
}

// All returns a snapshot of every row, oldest first.
func (m *MockQueueRepository) All() []*domain.QueueItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.QueueItem, 0, len(m.items))
	for _, it := range m.items {
		result = append(result, cloneItem(it))
	}
	sortItems(result)
	return result
}

// ClaimCalls returns how many times ClaimPending was invoked.
func (m *MockQueueRepository) ClaimCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.claimCalls
}

// CompleteCalls returns how many times Complete was invoked.
func (m *MockQueueRepository) CompleteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completeCalls
}

func sortItems(items []*domain.QueueItem) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
}

func cloneItem(it *domain.QueueItem) *domain.QueueItem {
	c := *it
	if it.UserID != nil {
		v := *it.UserID
		c.UserID = &v
	}
	if it.ProcessedAt != nil {
		v := *it.ProcessedAt
		c.ProcessedAt = &v
	}
	if it.Error != nil {
		v := *it.Error
		c.Error = &v
	}
	if it.ClaimedAt != nil {
		v := *it.ClaimedAt
		c.ClaimedAt = &v
	}
	if it.ClaimedBy != nil {
		v := *it.ClaimedBy
		c.ClaimedBy = &v
	}
	return &c
}

// MockConfigRepository is an in-memory ConfigRepository.
type MockConfigRepository struct {
	mu     sync.Mutex
	values map[string]string
	calls  int

	GetErr error
}

func NewMockConfigRepository(values map[string]string) *MockConfigRepository {
	if values == nil {
		values = map[string]string{}
	}
	return &MockConfigRepository{values: values}
}

func (m *MockConfigRepository) GetValue(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.GetErr != nil {
		return "", m.GetErr
	}
	v, ok := m.values[key]
	if !ok || strings.TrimSpace(v) == "" {
		return "", domain.ErrConfigMissing
	}
	return v, nil
}

// Calls returns how many lookups were made.
func (m *MockConfigRepository) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
