package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Thykp/SPM-Team2-sub002/internal/model"
	"github.com/Thykp/SPM-Team2-sub002/internal/repository"
	"github.com/Thykp/SPM-Team2-sub002/pkg/errors"
	"github.com/Thykp/SPM-Team2-sub002/pkg/messaging"
)

// Service backs the read REST API and the producer-side endpoints.
type Service interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.EnrichedNotification, error)
	MarkRead(ctx context.Context, ids []uuid.UUID) ([]*model.Notification, error)
	DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Publish(ctx context.Context, event *model.NotificationEvent) error
	Schedule(ctx context.Context, event *model.NotificationEvent, sendAt int64) error
	NotifyCollaborators(ctx context.Context, req *model.NotifyCollaboratorsRequest) (int, error)
	GetPreferences(ctx context.Context, userID uuid.UUID) (*model.NotificationPreferences, error)
	UpdatePreferences(ctx context.Context, userID uuid.UUID, methods []string) (*model.NotificationPreferences, error)
}

type service struct {
	repo        repository.NotificationRepository
	preferences repository.PreferencesRepository
	schedule    repository.ScheduleRepository
	broker      messaging.Broker
	channel     string
}

func NewService(
	repo repository.NotificationRepository,
	preferences repository.PreferencesRepository,
	schedule repository.ScheduleRepository,
	broker messaging.Broker,
	channel string,
) Service {
	return &service{
		repo:        repo,
		preferences: preferences,
		schedule:    schedule,
		broker:      broker,
		channel:     channel,
	}
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.EnrichedNotification, error) {
	rows, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return rows, nil
}

func (s *service) MarkRead(ctx context.Context, ids []uuid.UUID) ([]*model.Notification, error) {
	if len(ids) == 0 {
		return nil, errors.BadRequest("no notification IDs provided", nil)
	}

	rows, err := s.repo.MarkRead(ctx, ids)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return rows, nil
}

func (s *service) DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	deleted, err := s.repo.DeleteAll(ctx, userID)
	if err != nil {
		return 0, errors.Internal(err)
	}
	return deleted, nil
}

func (s *service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return errors.NotFound("notification", err)
	}
	return nil
}

// Publish validates the event and hands it to the bus; persistence happens in
// the delivery worker, not here.
func (s *service) Publish(ctx context.Context, event *model.NotificationEvent) error {
	if err := validateEvent(event); err != nil {
		return err
	}

	event.Read = false
	if err := s.broker.Publish(ctx, s.channel, event); err != nil {
		return errors.Internal(fmt.Errorf("failed to publish notification: %w", err))
	}
	return nil
}

func (s *service) Schedule(ctx context.Context, event *model.NotificationEvent, sendAt int64) error {
	if err := validateEvent(event); err != nil {
		return err
	}
	if sendAt <= 0 {
		return errors.BadRequest("sendAt is required", nil)
	}

	entry := &model.ScheduledEntry{SendAt: sendAt, Event: *event}
	if err := s.schedule.Add(ctx, entry); err != nil {
		return errors.Internal(err)
	}
	return nil
}

// NotifyCollaborators publishes one added-to-project event per collaborator,
// skipping the owner. Returns the number of events published.
func (s *service) NotifyCollaborators(ctx context.Context, req *model.NotifyCollaboratorsRequest) (int, error) {
	published := 0
	for _, collaborator := range req.Collaborators {
		if collaborator == req.Owner {
			continue
		}

		owner := req.Owner
		event := &model.NotificationEvent{
			Text:         fmt.Sprintf("You were added to project %q.", req.Title),
			Type:         model.NotifTypeAddedToProject,
			FromUser:     &owner,
			ToUser:       collaborator,
			ResourceType: "project",
			ResourceID:   req.ProjectID,
			ProjectID:    req.ProjectID,
		}

		if err := s.broker.Publish(ctx, s.channel, event); err != nil {
			return published, errors.Internal(fmt.Errorf("failed to publish collaborator notification: %w", err))
		}
		published++
	}

	return published, nil
}

func (s *service) GetPreferences(ctx context.Context, userID uuid.UUID) (*model.NotificationPreferences, error) {
	prefs, err := s.preferences.Get(ctx, userID)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return prefs, nil
}

func (s *service) UpdatePreferences(ctx context.Context, userID uuid.UUID, methods []string) (*model.NotificationPreferences, error) {
	if len(methods) == 0 {
		return nil, errors.BadRequest("no delivery methods provided", nil)
	}

	prefs, err := s.preferences.Update(ctx, userID, methods)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return prefs, nil
}

func validateEvent(event *model.NotificationEvent) error {
	if event.ToUser == uuid.Nil {
		return errors.BadRequest("to_user is required", nil)
	}
	if event.Text == "" {
		return errors.BadRequest("text is required", nil)
	}
	if event.Type == "" {
		return errors.BadRequest("type is required", nil)
	}
	return nil
}
