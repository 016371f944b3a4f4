package dto

import (
	"time"

	"github.com/thereayou/flasker/internal/models"
)

type TaskResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Complete    bool      `json:"complete"`
	Progress    int       `json:"progress"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewTaskResponse(t *models.Task, progress int) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Complete:    t.Complete,
		Progress:    progress,
		CreatedAt:   t.CreatedAt,
	}
}
