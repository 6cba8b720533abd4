package model

import "github.com/google/uuid"

// MarkReadRequest marks a batch of notifications as read.
type MarkReadRequest struct {
	IDs []uuid.UUID `json:"ids" binding:"required,min=1"`
}

// ScheduleRequest defers a notification until SendAt (epoch milliseconds).
type ScheduleRequest struct {
	Notification NotificationEvent `json:"notification" binding:"required"`
	SendAt       int64             `json:"sendAt" binding:"required"`
}

// NotifyCollaboratorsRequest publishes one added-to-project notification per
// collaborator, skipping the owner.
type NotifyCollaboratorsRequest struct {
	ProjectID     string      `json:"projectId" binding:"required"`
	Collaborators []uuid.UUID `json:"collaborators" binding:"required"`
	Owner         uuid.UUID   `json:"owner" binding:"required"`
	Title         string      `json:"title" binding:"required"`
}

// UpdatePreferencesRequest replaces a user's delivery-method preferences.
type UpdatePreferencesRequest struct {
	DeliveryMethods []string `json:"delivery_methods" binding:"required,min=1,dive,deliverymethod"`
}
