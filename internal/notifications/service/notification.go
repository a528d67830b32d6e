package service

import (
	"context"
	"errors"
	"sync"

	"booktable/internal/notifications/repository"
	notificationserrors "booktable/internal/notifications/errors"
	"booktable/pkg/auth"
	"booktable/pkg/config"
	apperrors "booktable/pkg/errors"
	"booktable/pkg/logger"
	"booktable/pkg/model"
)

// NotificationService is the diner's inbox. Every operation is scoped to the
// calling principal.
type NotificationService interface {
	List(ctx context.Context, principal auth.Principal, limit int, offset int64) (*model.NotificationInbox, error)
	MarkRead(ctx context.Context, principal auth.Principal, id string) (*model.Notification, error)
	MarkAllRead(ctx context.Context, principal auth.Principal) (int64, error)
}

type notificationService struct {
	repo repository.NotificationRepository
	log  *logger.Logger
}

func NewNotificationService(repo repository.NotificationRepository, log *logger.Logger) NotificationService {
	return &notificationService{repo: repo, log: log}
}

func (s *notificationService) List(ctx context.Context, principal auth.Principal, limit int, offset int64) (*model.NotificationInbox, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	inbox := &model.NotificationInbox{Limit: limit, Offset: offset}
	var errList, errTotal, errUnread error
	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		inbox.Notifications, errList = s.repo.ListByUser(ctx, principal.UserID, limit, offset)
	}()
	go func() {
		defer wg.Done()
		inbox.TotalCount, errTotal = s.repo.CountByUser(ctx, principal.UserID)
	}()
	go func() {
		defer wg.Done()
		inbox.UnreadCount, errUnread = s.repo.CountUnread(ctx, principal.UserID)
	}()
	wg.Wait()

	if err := errors.Join(errList, errTotal, errUnread); err != nil {
		s.log.Error("Failed to load notifications", "user_id", principal.UserID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve notifications", err)
	}
	return inbox, nil
}

func (s *notificationService) MarkRead(ctx context.Context, principal auth.Principal, id string) (*model.Notification, error) {
	n, err := s.repo.MarkRead(ctx, id, principal.UserID)
	if err != nil {
		switch {
		case errors.Is(err, notificationserrors.ErrInvalidID):
			return nil, apperrors.InvalidField("id", "Invalid notification ID format")
		case errors.Is(err, notificationserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Notification", id)
		}
		return nil, apperrors.Internal("Failed to update notification", err)
	}
	return n, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, principal auth.Principal) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, principal.UserID)
	if err != nil {
		return 0, apperrors.Internal("Failed to update notifications", err)
	}
	return n, nil
}
