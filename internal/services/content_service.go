package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/thereayou/flasker/internal/database"
	"github.com/thereayou/flasker/internal/models"
	"github.com/thereayou/flasker/internal/pagination"
	"go.uber.org/zap"
)

// ContentInput creates or edits a content section. Nil fields are left
// unchanged on edit.
type ContentInput struct {
	Title   *string `json:"title"`
	Body    *string `json:"body"`
	Phase   *int    `json:"phase"`
	Section *int    `json:"section"`
	Status  *bool   `json:"status"`
}

// ContentService serves site copy. Anyone may read published sections;
// only admins see drafts or write.
type ContentService struct {
	db  *database.Database
	log *zap.Logger
}

func NewContentService(db *database.Database, log *zap.Logger) *ContentService {
	return &ContentService{db: db, log: log}
}

func canEdit(actor *models.User) bool { return actor != nil && actor.IsAdmin() }

// List pages through content ordered by phase then section. actor may be nil.
func (s *ContentService) List(ctx context.Context, actor *models.User, page, perPage int, endpoint pagination.Endpoint) (*pagination.Page[models.Content], error) {
	publishedOnly := !canEdit(actor)
	src := pagination.Query[models.Content]{
		CountFn: func(ctx context.Context) (int64, error) { return s.db.CountContent(ctx, publishedOnly) },
		FetchFn: func(ctx context.Context, offset, limit int) ([]models.Content, error) {
			return s.db.ListContent(ctx, publishedOnly, offset, limit)
		},
	}
	return pagination.Paginate[models.Content](ctx, src, page, perPage, endpoint)
}

// Get returns a section. Drafts are hidden from non-admins.
func (s *ContentService) Get(ctx context.Context, actor *models.User, publicID string) (*models.Content, error) {
	c, err := s.db.GetContentByPublicID(ctx, publicID)
	if err != nil {
		return nil, notFound(err)
	}
	if !c.Status && !canEdit(actor) {
		return nil, ErrNotFound
	}
	return c, nil
}

func (s *ContentService) Create(ctx context.Context, actor *models.User, in ContentInput) (*models.Content, error) {
	if !canEdit(actor) {
		return nil, ErrForbidden
	}
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" || in.Phase == nil || in.Section == nil {
		return nil, invalid("must include title, phase, and section fields")
	}

	c := &models.Content{PublicID: uuid.NewString()}
	apply(c, in)
	if err := s.db.SaveContent(ctx, c); err != nil {
		return nil, contentConflict(err)
	}
	return c, nil
}

func (s *ContentService) Update(ctx context.Context, actor *models.User, publicID string, in ContentInput) (*models.Content, error) {
	if !canEdit(actor) {
		return nil, ErrForbidden
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, invalid("title must not be empty")
	}

	c, err := s.db.GetContentByPublicID(ctx, publicID)
	if err != nil {
		return nil, notFound(err)
	}
	apply(c, in)
	if err := s.db.UpdateContent(ctx, c); err != nil {
		return nil, contentConflict(err)
	}
	return c, nil
}

func (s *ContentService) Delete(ctx context.Context, actor *models.User, publicID string) error {
	if !canEdit(actor) {
		return ErrForbidden
	}
	c, err := s.db.GetContentByPublicID(ctx, publicID)
	if err != nil {
		return notFound(err)
	}
	return notFound(s.db.DeleteContent(ctx, c.ID))
}

func apply(c *models.Content, in ContentInput) {
	if in.Title != nil {
		c.Title = strings.TrimSpace(*in.Title)
	}
	if in.Body != nil {
		c.Body = *in.Body
	}
	if in.Phase != nil {
		c.Phase = *in.Phase
	}
	if in.Section != nil {
		c.Section = *in.Section
	}
	if in.Status != nil {
		c.Status = *in.Status
	}
}

func contentConflict(err error) error {
	if errors.Is(err, database.ErrConflict) {
		return invalid("phase and section already in use")
	}
	return err
}
