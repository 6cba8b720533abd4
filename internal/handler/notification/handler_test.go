package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thykp/SPM-Team2-sub002/internal/model"
	"github.com/Thykp/SPM-Team2-sub002/pkg/errors"
)

type stubService struct {
	listed       []*model.EnrichedNotification
	marked       [][]uuid.UUID
	published    []*model.NotificationEvent
	scheduled    []*model.ScheduledEntry
	notifyCalls  int
	listErr      error
	scheduleErr  error
	deleteCalled bool
}

func (s *stubService) ListForUser(_ context.Context, _ uuid.UUID) ([]*model.EnrichedNotification, error) {
	return s.listed, s.listErr
}

func (s *stubService) MarkRead(_ context.Context, ids []uuid.UUID) ([]*model.Notification, error) {
	s.marked = append(s.marked, ids)
	rows := make([]*model.Notification, len(ids))
	for i, id := range ids {
		rows[i] = &model.Notification{ID: id}
		rows[i].Read = true
	}
	return rows, nil
}

func (s *stubService) DeleteAll(_ context.Context, _ uuid.UUID) (int64, error) {
	s.deleteCalled = true
	return 3, nil
}

func (s *stubService) Delete(_ context.Context, _, _ uuid.UUID) error {
	return errors.NotFound("notification", nil)
}

func (s *stubService) Publish(_ context.Context, event *model.NotificationEvent) error {
	if event.ToUser == uuid.Nil {
		return errors.BadRequest("to_user is required", nil)
	}
	s.published = append(s.published, event)
	return nil
}

func (s *stubService) Schedule(_ context.Context, event *model.NotificationEvent, sendAt int64) error {
	if s.scheduleErr != nil {
		return s.scheduleErr
	}
	s.scheduled = append(s.scheduled, &model.ScheduledEntry{SendAt: sendAt, Event: *event})
	return nil
}

func (s *stubService) NotifyCollaborators(_ context.Context, req *model.NotifyCollaboratorsRequest) (int, error) {
	s.notifyCalls++
	return len(req.Collaborators) - 1, nil
}

func (s *stubService) GetPreferences(_ context.Context, userID uuid.UUID) (*model.NotificationPreferences, error) {
	return &model.NotificationPreferences{UserID: userID, DeliveryMethods: []string{model.DeliveryMethodInApp}}, nil
}

func (s *stubService) UpdatePreferences(_ context.Context, userID uuid.UUID, methods []string) (*model.NotificationPreferences, error) {
	return &model.NotificationPreferences{UserID: userID, DeliveryMethods: methods}, nil
}

func newTestRouter(svc *stubService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	NewHandler(svc).RegisterRoutes(engine.Group("/"))
	return engine
}

func performJSON(t *testing.T, engine *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestListNotifications(t *testing.T) {
	svc := &stubService{
		listed: []*model.EnrichedNotification{
			{Notification: model.Notification{ID: uuid.New()}, FromUsername: "alice"},
		},
	}
	engine := newTestRouter(svc)

	w := performJSON(t, engine, http.MethodGet, "/notifications/"+uuid.New().String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice")
}

func TestListNotificationsInvalidUserID(t *testing.T) {
	engine := newTestRouter(&stubService{})

	w := performJSON(t, engine, http.MethodGet, "/notifications/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "error")
}

func TestMarkReadEmptyIDsReturns400(t *testing.T) {
	svc := &stubService{}
	engine := newTestRouter(svc)

	w := performJSON(t, engine, http.MethodPost, "/notifications/read", map[string]interface{}{
		"ids": []string{},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.marked, "store must not be touched")
}

func TestMarkReadMissingIDsReturns400(t *testing.T) {
	svc := &stubService{}
	engine := newTestRouter(svc)

	w := performJSON(t, engine, http.MethodPost, "/notifications/read", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.marked)
}

func TestMarkRead(t *testing.T) {
	svc := &stubService{}
	engine := newTestRouter(svc)
	ids := []string{uuid.New().String(), uuid.New().String()}

	w := performJSON(t, engine, http.MethodPost, "/notifications/read", map[string]interface{}{
		"ids": ids,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.marked, 1)
	assert.Len(t, svc.marked[0], 2)
	assert.Contains(t, w.Body.String(), `"success":true`)
}

func TestPublishNotification(t *testing.T) {
	svc := &stubService{}
	engine := newTestRouter(svc)

	w := performJSON(t, engine, http.MethodPost, "/notifications", model.NotificationEvent{
		Text:   "hi",
		Type:   model.NotifTypeTaskUpdate,
		ToUser: uuid.New(),
	})
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Len(t, svc.published, 1)
}

func TestPublishNotificationMissingRecipient(t *testing.T) {
	svc := &stubService{}
	engine := newTestRouter(svc)

	w := performJSON(t, engine, http.MethodPost, "/notifications", map[string]interface{}{
		"text": "hi",
		"type": "task_update",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.published)
}

func TestScheduleNotification(t *testing.T) {
	svc := &stubService{}
	engine := newTestRouter(svc)
	sendAt := time.Now().Add(10 * time.Second).UnixMilli()

	w := performJSON(t, engine, http.MethodPost, "/schedule", map[string]interface{}{
		"notification": model.NotificationEvent{
			Text:   "later",
			Type:   model.NotifTypeDeadlineReminder,
			ToUser: uuid.New(),
		},
		"sendAt": sendAt,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.scheduled, 1)
	assert.Equal(t, sendAt, svc.scheduled[0].SendAt)
}

func TestScheduleNotificationMissingSendAt(t *testing.T) {
	svc := &stubService{}
	engine := newTestRouter(svc)

	w := performJSON(t, engine, http.MethodPost, "/schedule", map[string]interface{}{
		"notification": model.NotificationEvent{
			Text:   "later",
			Type:   model.NotifTypeDeadlineReminder,
			ToUser: uuid.New(),
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.scheduled)
}

func TestNotifyCollaborators(t *testing.T) {
	svc := &stubService{}
	engine := newTestRouter(svc)

	w := performJSON(t, engine, http.MethodPost, "/projects/notify-collaborators", map[string]interface{}{
		"projectId":     "proj-1",
		"collaborators": []string{uuid.New().String(), uuid.New().String()},
		"owner":         uuid.New().String(),
		"title":         "Roadmap",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, svc.notifyCalls)
}

func TestDeleteNotificationNotFound(t *testing.T) {
	engine := newTestRouter(&stubService{})

	path := fmt.Sprintf("/notifications/%s/%s", uuid.New(), uuid.New())
	w := performJSON(t, engine, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetPreferences(t *testing.T) {
	engine := newTestRouter(&stubService{})

	w := performJSON(t, engine, http.MethodGet, "/notifications/preferences/"+uuid.New().String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), model.DeliveryMethodInApp)
}
