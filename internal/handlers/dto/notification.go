package dto

import "github.com/thereayou/flasker/internal/models"

type NotificationResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Data      any     `json:"data"`
	Timestamp float64 `json:"timestamp"`
}

func NewNotificationResponse(n *models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.PublicID,
		Name:      n.Name,
		Data:      n.Data(),
		Timestamp: n.Timestamp,
	}
}
