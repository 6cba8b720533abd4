package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Thykp/SPM-Team2-sub002/internal/email"
	"github.com/Thykp/SPM-Team2-sub002/internal/model"
	"github.com/Thykp/SPM-Team2-sub002/internal/repository"
	"github.com/Thykp/SPM-Team2-sub002/internal/ws"
	"github.com/Thykp/SPM-Team2-sub002/pkg/logger"
	"github.com/Thykp/SPM-Team2-sub002/pkg/messaging"
	"github.com/Thykp/SPM-Team2-sub002/pkg/metrics"
)

const (
	userCacheTTL     = 15 * time.Minute
	userCacheCleanup = time.Hour
)

// Registry is the connection lookup the worker fans out through.
type Registry interface {
	Get(userID uuid.UUID) []ws.Conn
}

// Service is the delivery worker: it consumes bus events and due scheduled
// items, persists, enriches and pushes them.
type Service struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	preferences   repository.PreferencesRepository
	registry      Registry
	emailSvc      email.Service
	broker        messaging.Broker
	channel       string
	userCache     *cache.Cache
	logger        *logger.Logger
	metrics       *metrics.Metrics
}

func NewService(
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	preferences repository.PreferencesRepository,
	registry Registry,
	emailSvc email.Service,
	broker messaging.Broker,
	channel string,
	l *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		notifications: notifications,
		users:         users,
		preferences:   preferences,
		registry:      registry,
		emailSvc:      emailSvc,
		broker:        broker,
		channel:       channel,
		userCache:     cache.New(userCacheTTL, userCacheCleanup),
		logger:        l.WithComponent("delivery"),
		metrics:       m,
	}
}

// Run subscribes to the notification channel and delivers every message until
// ctx is cancelled. A subscribe failure is returned to the caller; the
// service cannot function without its input feed.
func (s *Service) Run(ctx context.Context) error {
	msgs, err := s.broker.Subscribe(ctx, s.channel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.channel, err)
	}

	s.logger.Info("subscribed", "channel", s.channel)

	for {
		select {
		case <-ctx.Done():
			return nil
		case payload, ok := <-msgs:
			if !ok {
				return nil
			}

			var event model.NotificationEvent
			if err := json.Unmarshal(payload, &event); err != nil {
				s.logger.Error(err, "skipping malformed message")
				continue
			}

			// One bad message must not halt future delivery.
			if err := s.Deliver(ctx, &event); err != nil {
				s.logger.Error(err, "delivery failed", "to_user", event.ToUser.String())
			}
		}
	}
}

// Deliver persists the event, enriches it and pushes it to every open
// connection of the recipient. A store failure aborts delivery entirely; the
// event is dropped and counted.
func (s *Service) Deliver(ctx context.Context, event *model.NotificationEvent) error {
	timer := prometheus.NewTimer(s.metrics.DeliveryLatency)
	defer timer.ObserveDuration()

	if event.ToUser == uuid.Nil {
		s.metrics.NotificationsDropped.Inc()
		return fmt.Errorf("notification has no recipient")
	}

	record, err := s.notifications.Create(ctx, event)
	if err != nil {
		s.metrics.NotificationsDropped.Inc()
		s.metrics.DatabaseOperations.WithLabelValues("insert_notification", "error").Inc()
		return fmt.Errorf("failed to persist notification: %w", err)
	}
	s.metrics.DatabaseOperations.WithLabelValues("insert_notification", "success").Inc()

	enriched := &model.EnrichedNotification{
		Notification: *record,
		FromUsername: s.resolveSender(ctx, record.FromUser),
	}

	s.push(enriched)
	s.metrics.NotificationsDelivered.Inc()

	s.sendEmailIfPreferred(ctx, enriched)

	return nil
}

// resolveSender degrades to the Unknown sentinel on a nil sender or a failed
// lookup; enrichment never fails delivery.
func (s *Service) resolveSender(ctx context.Context, from *uuid.UUID) string {
	if from == nil {
		return model.UnknownSender
	}

	user, err := s.getUser(ctx, *from)
	if err != nil {
		s.logger.Warn("sender lookup failed", "from_user", from.String())
		return model.UnknownSender
	}
	return user.Username
}

func (s *Service) getUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if cached, ok := s.userCache.Get(id.String()); ok {
		return cached.(*model.User), nil
	}

	user, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.userCache.Set(id.String(), user, cache.DefaultExpiration)
	return user, nil
}

// push fans out to all live connections of the recipient. Per-connection send
// errors are isolated; a closed socket never aborts the siblings.
func (s *Service) push(enriched *model.EnrichedNotification) {
	conns := s.registry.Get(enriched.ToUser)
	if len(conns) == 0 {
		return
	}

	payload, err := json.Marshal(enriched)
	if err != nil {
		s.logger.Error(err, "failed to marshal push payload")
		return
	}

	for _, conn := range conns {
		if err := conn.Send(payload); err != nil {
			s.metrics.PushFailures.Inc()
			s.logger.Warn("push failed", "to_user", enriched.ToUser.String())
			continue
		}
		s.metrics.PushesSent.Inc()
	}
}

// sendEmailIfPreferred is the best-effort email side path.
func (s *Service) sendEmailIfPreferred(ctx context.Context, enriched *model.EnrichedNotification) {
	prefs, err := s.preferences.Get(ctx, enriched.ToUser)
	if err != nil {
		s.logger.Warn("preferences lookup failed", "to_user", enriched.ToUser.String())
		return
	}

	wantsEmail := false
	for _, method := range prefs.DeliveryMethods {
		if method == model.DeliveryMethodEmail {
			wantsEmail = true
			break
		}
	}
	if !wantsEmail {
		return
	}

	user, err := s.getUser(ctx, enriched.ToUser)
	if err != nil {
		s.logger.Warn("recipient lookup failed", "to_user", enriched.ToUser.String())
		return
	}

	if err := s.emailSvc.SendNotification(ctx, user.Email, enriched); err != nil {
		s.logger.Error(err, "email send failed", "to_user", enriched.ToUser.String())
	}
}
