package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Thykp/SPM-Team2-sub002/internal/model"
	"github.com/Thykp/SPM-Team2-sub002/internal/repository"
)

type preferencesRepository struct {
	db *sqlx.DB
}

func NewPreferencesRepository(db *sqlx.DB) repository.PreferencesRepository {
	return &preferencesRepository{db: db}
}

// Get falls back to in-app only when the user has no stored preferences.
func (r *preferencesRepository) Get(ctx context.Context, userID uuid.UUID) (*model.NotificationPreferences, error) {
	prefs := &model.NotificationPreferences{UserID: userID}

	var methods pq.StringArray
	err := r.db.GetContext(ctx, &methods,
		`SELECT delivery_methods FROM notification_preferences WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		prefs.DeliveryMethods = []string{model.DeliveryMethodInApp}
		return prefs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}

	prefs.DeliveryMethods = []string(methods)
	return prefs, nil
}

func (r *preferencesRepository) Update(ctx context.Context, userID uuid.UUID, methods []string) (*model.NotificationPreferences, error) {
	query := `
		INSERT INTO notification_preferences (user_id, delivery_methods)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET delivery_methods = EXCLUDED.delivery_methods
	`

	if _, err := r.db.ExecContext(ctx, query, userID, pq.Array(methods)); err != nil {
		return nil, fmt.Errorf("failed to update preferences: %w", err)
	}

	return &model.NotificationPreferences{UserID: userID, DeliveryMethods: methods}, nil
}
