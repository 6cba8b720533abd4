package notification

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Thykp/SPM-Team2-sub002/internal/model"
	"github.com/Thykp/SPM-Team2-sub002/internal/service/notification"
	"github.com/Thykp/SPM-Team2-sub002/pkg/errors"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("deliverymethod", func(fl validator.FieldLevel) bool {
			switch fl.Field().String() {
			case model.DeliveryMethodInApp, model.DeliveryMethodEmail:
				return true
			}
			return false
		})
	}
}

type Handler struct {
	service notification.Service
}

func NewHandler(service notification.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications")
	{
		notifications.GET("/:userId", h.ListNotifications)
		notifications.POST("/read", h.MarkRead)
		notifications.POST("", h.PublishNotification)
		notifications.DELETE("/all/:userId", h.DeleteAll)
		notifications.DELETE("/:userId/:notificationId", h.DeleteNotification)
		notifications.GET("/preferences/:userId", h.GetPreferences)
		notifications.PUT("/preferences/:userId", h.UpdatePreferences)
	}

	r.POST("/schedule", h.ScheduleNotification)
	r.POST("/projects/notify-collaborators", h.NotifyCollaborators)
}

func (h *Handler) ListNotifications(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	rows, err := h.service.ListForUser(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (h *Handler) MarkRead(c *gin.Context) {
	var req model.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ids are required"})
		return
	}

	rows, err := h.service.MarkRead(c.Request.Context(), req.IDs)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "updated": rows})
}

func (h *Handler) PublishNotification(c *gin.Context) {
	var event model.NotificationEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.Publish(c.Request.Context(), &event); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"success": true})
}

func (h *Handler) DeleteAll(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	deleted, err := h.service.DeleteAll(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": deleted})
}

func (h *Handler) DeleteNotification(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	notificationID, err := uuid.Parse(c.Param("notificationId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification ID"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, notificationID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) ScheduleNotification(c *gin.Context) {
	var req model.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields: notification, sendAt"})
		return
	}

	if err := h.service.Schedule(c.Request.Context(), &req.Notification, req.SendAt); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"scheduled": true, "notification": req.Notification, "sendAt": req.SendAt})
}

func (h *Handler) NotifyCollaborators(c *gin.Context) {
	var req model.NotifyCollaboratorsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	published, err := h.service.NotifyCollaborators(c.Request.Context(), &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "published": published})
}

func (h *Handler) GetPreferences(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	prefs, err := h.service.GetPreferences(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"preferences": prefs.DeliveryMethods})
}

func (h *Handler) UpdatePreferences(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	var req model.UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prefs, err := h.service.UpdatePreferences(c.Request.Context(), userID, req.DeliveryMethods)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"preferences": prefs.DeliveryMethods})
}

func respondWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if appErr, ok := err.(*errors.AppError); ok {
		switch appErr.Code {
		case errors.ErrBadRequest:
			status = http.StatusBadRequest
		case errors.ErrNotFound:
			status = http.StatusNotFound
		}
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
