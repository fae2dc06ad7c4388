package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pulse-fitness/notifier/internal/domain"
	"github.com/pulse-fitness/notifier/internal/repository"
)

// NotificationService covers the producer and operator side of the queue:
// placing rows on it, looking them up and requeueing failures.
// Sending is the dispatcher's job; nothing here talks to the mail relay.
type NotificationService struct {
	repo   repository.QueueRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewNotificationService(repo repository.QueueRepository, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Enqueue validates req and inserts a new pending row.
func (s *NotificationService) Enqueue(ctx context.Context, req domain.EnqueueRequest) (*domain.QueueItem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.UserID != nil {
		if _, err := uuid.Parse(*req.UserID); err != nil {
			return nil, domain.ErrInvalidUserID
		}
	}

	item := &domain.QueueItem{
		ID:           uuid.NewString(),
		UserID:       req.UserID,
		Email:        strings.TrimSpace(req.Email),
		Subject:      strings.TrimSpace(req.Subject),
		IsNewUser:    req.IsNewUser,
		HasWorkedOut: req.HasWorkedOut,
		PulseLevel:   req.PulseLevel,
		ActiveUsers:  req.ActiveUsers,
		CreatedAt:    s.now(),
	}

	if err := s.repo.Enqueue(ctx, item); err != nil {
		return nil, fmt.Errorf("persist notification: %w", err)
	}

	s.logger.Info("notification enqueued",
		zap.String("notification_id", item.ID),
		zap.String("variant", string(domain.SelectVariant(item))),
	)
	return item, nil
}

// Get returns a single row. Malformed ids are reported as not found.
func (s *NotificationService) Get(ctx context.Context, id string) (*domain.QueueItem, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// Pending lists a user's rows that have not been processed yet, oldest first.
func (s *NotificationService) Pending(ctx context.Context, userID string) ([]*domain.QueueItem, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, domain.ErrInvalidUserID
	}
	return s.repo.ListPendingByUser(ctx, userID)
}

// Requeue inserts a fresh pending copy of a failed row. The failed row keeps
// its processed_at and error untouched.
func (s *NotificationService) Requeue(ctx context.Context, id string) (*domain.QueueItem, error) {
	src, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !src.IsFailed() {
		return nil, domain.ErrNotFailed
	}

	item := &domain.QueueItem{
		ID:           uuid.NewString(),
		UserID:       src.UserID,
		Email:        src.Email,
		Subject:      src.Subject,
		IsNewUser:    src.IsNewUser,
		HasWorkedOut: src.HasWorkedOut,
		PulseLevel:   src.PulseLevel,
		ActiveUsers:  src.ActiveUsers,
		CreatedAt:    s.now(),
	}
	if err := s.repo.Enqueue(ctx, item); err != nil {
		return nil, fmt.Errorf("persist requeued notification: %w", err)
	}

	s.logger.Info("notification requeued",
		zap.String("notification_id", item.ID),
		zap.String("source_id", src.ID),
		zap.String("previous_error", *src.Error),
	)
	return item, nil
}
