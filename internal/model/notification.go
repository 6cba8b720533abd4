package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Notification types published on the bus.
const (
	NotifTypeDeadlineReminder = "deadline_reminder"
	NotifTypeTaskUpdate       = "task_update"
	NotifTypeAddedToProject   = "added_to_project"
)

// UnknownSender is substituted when the sender cannot be resolved.
const UnknownSender = "Unknown"

// NotificationEvent is the producer-supplied payload published on the
// "notifications" channel. It has no identity until persisted.
type NotificationEvent struct {
	Text         string     `json:"text" db:"text"`
	Type         string     `json:"type" db:"type"`
	FromUser     *uuid.UUID `json:"from_user" db:"from_user"`
	ToUser       uuid.UUID  `json:"to_user" db:"to_user"`
	ResourceType string     `json:"resource_type,omitempty" db:"resource_type"`
	ResourceID   string     `json:"resource_id,omitempty" db:"resource_id"`
	ProjectID    string     `json:"project_id,omitempty" db:"project_id"`
	Priority     int        `json:"priority,omitempty" db:"priority"`
	Read         bool       `json:"read" db:"read"`
}

// Notification is the persisted record, owned by the notification store.
// Read only ever transitions false to true.
type Notification struct {
	ID uuid.UUID `json:"id" db:"id"`
	NotificationEvent
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// EnrichedNotification is the wire shape pushed to clients. Constructed per
// delivery, never persisted.
type EnrichedNotification struct {
	Notification
	FromUsername string `json:"from_username" db:"from_username"`
}

// ScheduledEntry is a deferred notification held in the scheduled-delivery
// store until its fire time passes. Raw carries the exact stored member so
// removal matches byte for byte.
type ScheduledEntry struct {
	SendAt int64             `json:"send_at"` // epoch milliseconds
	Event  NotificationEvent `json:"notification"`
	Raw    json.RawMessage   `json:"-"`
}

// Delivery methods a user can opt into.
const (
	DeliveryMethodInApp = "in-app"
	DeliveryMethodEmail = "email"
)

// NotificationPreferences holds a user's delivery-method choices.
type NotificationPreferences struct {
	UserID          uuid.UUID `json:"user_id" db:"user_id"`
	DeliveryMethods []string  `json:"delivery_methods" db:"delivery_methods"`
}
