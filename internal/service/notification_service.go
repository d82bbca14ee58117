package service

import (
	"context"
	"fmt"
	"sync"

	"recs/internal/models"
	"recs/internal/mutation"
	"recs/internal/observability"
	"recs/internal/remote"
)

// NotificationService fetches notifications and marks them read once per visit.
type NotificationService struct {
	api    remote.API
	queue  *mutation.Queue
	logger *observability.SyncLogger

	mu       sync.Mutex
	done     bool
	captured []models.Notification
	unread   int
}

func NewNotificationService(api remote.API, queue *mutation.Queue) *NotificationService {
	return &NotificationService{
		api:    api,
		queue:  queue,
		logger: observability.NewSyncLogger("notifications"),
	}
}

// StartVisit begins a new visit to the notifications view.
func (s *NotificationService) StartVisit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = false
	s.captured = nil
}

// UnreadCount is the badge count as of the last reconcile.
func (s *NotificationService) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// Reconcile returns the notifications as fetched, unread ones still marked
// unread, and then marks everything read on the server. Within one visit only
// the first successful call talks to the server; later calls return the
// captured list.
func (s *NotificationService) Reconcile(ctx context.Context) ([]models.Notification, error) {
	if list, ok := s.visited(); ok {
		return list, nil
	}

	var out []models.Notification
	err := s.queue.Run(ctx, mutation.NotificationsReadKey(), func(ctx context.Context) error {
		if list, ok := s.visited(); ok {
			out = list
			return nil
		}

		list, err := s.api.FetchNotifications(ctx)
		if err != nil {
			return fmt.Errorf("fetch notifications: %w", err)
		}
		unread := models.CountUnread(list)
		out = append([]models.Notification(nil), list...)

		s.mu.Lock()
		s.captured = out
		s.unread = unread
		s.mu.Unlock()

		if unread == 0 {
			s.finish()
			return nil
		}

		if err := s.api.MarkNotificationsRead(ctx); err != nil {
			s.logger.LogError(ctx, err, "mark_read")
			return models.NewSyncError("mark notifications read", err)
		}
		observability.RecordMutation(string(mutation.KindNotificationsRead), observability.OutcomeConfirmed)
		s.finish()
		return nil
	})
	// A failed mark-read still returns the captured list.
	return out, err
}

func (s *NotificationService) visited() ([]models.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.done {
		return nil, false
	}
	return append([]models.Notification(nil), s.captured...), true
}

func (s *NotificationService) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	s.unread = 0
}
