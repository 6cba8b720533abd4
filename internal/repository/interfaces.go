package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Thykp/SPM-Team2-sub002/internal/model"
)

// NotificationRepository owns persisted notification records.
type NotificationRepository interface {
	Create(ctx context.Context, event *model.NotificationEvent) (*model.Notification, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.EnrichedNotification, error)
	MarkRead(ctx context.Context, ids []uuid.UUID) ([]*model.Notification, error)
	DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// UserRepository resolves display names and email addresses.
type UserRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// PreferencesRepository stores delivery-method preferences.
type PreferencesRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*model.NotificationPreferences, error)
	Update(ctx context.Context, userID uuid.UUID, methods []string) (*model.NotificationPreferences, error)
}

// ScheduleRepository is the time-ordered durable set of deferred notifications.
type ScheduleRepository interface {
	Add(ctx context.Context, entry *model.ScheduledEntry) error
	Due(ctx context.Context, now time.Time) ([]*model.ScheduledEntry, error)
	Remove(ctx context.Context, entry *model.ScheduledEntry) error
}
