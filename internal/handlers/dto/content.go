package dto

import (
	"time"

	"github.com/thereayou/flasker/internal/models"
)

type ContentLinks struct {
	Self string `json:"self"`
}

type ContentResponse struct {
	PublicID  string       `json:"public_id"`
	Title     string       `json:"title"`
	Body      string       `json:"body"`
	Phase     int          `json:"phase"`
	Section   int          `json:"section"`
	Status    bool         `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	Links     ContentLinks `json:"_links"`
}

func ContentPath(publicID string) string { return "/v1/content/" + publicID }

func NewContentResponse(c *models.Content) ContentResponse {
	return ContentResponse{
		PublicID:  c.PublicID,
		Title:     c.Title,
		Body:      c.Body,
		Phase:     c.Phase,
		Section:   c.Section,
		Status:    c.Status,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Links:     ContentLinks{Self: ContentPath(c.PublicID)},
	}
}
