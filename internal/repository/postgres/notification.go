package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Thykp/SPM-Team2-sub002/internal/model"
	"github.com/Thykp/SPM-Team2-sub002/internal/repository"
)

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) repository.NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, event *model.NotificationEvent) (*model.Notification, error) {
	record := &model.Notification{
		ID:                uuid.New(),
		NotificationEvent: *event,
		CreatedAt:         time.Now().UTC(),
	}
	record.Read = false

	query := `
		INSERT INTO notifications (
			id, text, type, from_user, to_user, resource_type,
			resource_id, project_id, priority, read, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.Text,
		record.Type,
		record.FromUser,
		record.ToUser,
		record.ResourceType,
		record.ResourceID,
		record.ProjectID,
		record.Priority,
		record.Read,
		record.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert notification: %w", err)
	}

	return record, nil
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.EnrichedNotification, error) {
	query := `
		SELECT n.id, n.text, n.type, n.from_user, n.to_user,
		       n.resource_type, n.resource_id, n.project_id, n.priority,
		       n.read, n.created_at,
		       COALESCE(u.username, 'Unknown') AS from_username
		FROM notifications n
		LEFT JOIN users u ON u.id = n.from_user
		WHERE n.to_user = $1
		ORDER BY n.created_at DESC
	`

	var rows []*model.EnrichedNotification
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	return rows, nil
}

// MarkRead is idempotent: rows already read stay read and are still returned.
func (r *notificationRepository) MarkRead(ctx context.Context, ids []uuid.UUID) ([]*model.Notification, error) {
	query := `
		UPDATE notifications SET read = true
		WHERE id = ANY($1)
		RETURNING id, text, type, from_user, to_user, resource_type,
		          resource_id, project_id, priority, read, created_at
	`

	var rows []*model.Notification
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to mark notifications read: %w", err)
	}

	return rows, nil
}

func (r *notificationRepository) DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE to_user = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete notifications: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (r *notificationRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE to_user = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return fmt.Errorf("notification not found")
	}
	return nil
}
