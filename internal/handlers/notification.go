package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/flasker/internal/handlers/dto"
	"github.com/thereayou/flasker/internal/middleware"
	"github.com/thereayou/flasker/internal/services"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	notifications *services.NotificationService
	log           *zap.Logger
}

func NewNotificationHandler(notifications *services.NotificationService, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, log: log}
}

// ListNotifications returns notifications newer than ?since= (unix seconds,
// fractional allowed), oldest first.
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	var since float64
	if raw := c.Query("since"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request", "message": "since must be a number"})
			return
		}
		since = v
	}

	list, err := h.notifications.Since(c.Request.Context(), middleware.CurrentUser(c).ID, since)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	out := make([]dto.NotificationResponse, 0, len(list))
	for i := range list {
		out = append(out, dto.NewNotificationResponse(&list[i]))
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}
