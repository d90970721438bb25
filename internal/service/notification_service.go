package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unidesk/uniportal-api/internal/models"
	appErrors "github.com/unidesk/uniportal-api/pkg/errors"
	"github.com/unidesk/uniportal-api/pkg/jobs"
)

type notificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string, readAt time.Time) error
	MarkAllRead(ctx context.Context, userID string, readAt time.Time) error
}

// NotificationService delivers in-app notifications through a background
// queue. Dispatch is fire-and-forget: a delivery failure never fails the
// operation that triggered it.
type NotificationService struct {
	repo   notificationRepository
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService constructs a NotificationService. Call Start before
// dispatching and Stop on shutdown.
func NewNotificationService(repo notificationRepository, cfg jobs.QueueConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{repo: repo, logger: logger}
	s.queue = jobs.NewQueue("notifications", s.handleJob, cfg)
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the delivery workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Dispatch queues a notification for delivery. Errors are logged, not
// returned.
func (s *NotificationService) Dispatch(n models.Notification) {
	if n.Severity == "" {
		n.Severity = models.NotificationSeverityInfo
	}
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    "notification.deliver",
		Payload: n,
	})
	if err != nil {
		s.logger.Warn("failed to enqueue notification", zap.String("user_id", n.UserID), zap.Error(err))
	}
}

func (s *NotificationService) handleJob(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(models.Notification)
	if !ok {
		s.logger.Error("notification job carried unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.repo.Create(ctx, &n)
}

// List returns notifications for the requesting user.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]models.Notification, int, error) {
	notifications, total, err := s.repo.List(ctx, models.NotificationFilter{
		UserID:     userID,
		UnreadOnly: unreadOnly,
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, total, nil
}

// UnreadCount returns the number of unread notifications for a user.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count notifications")
	}
	return count, nil
}

// MarkRead marks one of the user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	if err := s.repo.MarkRead(ctx, notificationID, userID, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}

// MarkAllRead marks every unread notification of the user as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	if err := s.repo.MarkAllRead(ctx, userID, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications read")
	}
	return nil
}
