package database

import (
	"context"

	"github.com/thereayou/flasker/internal/models"
	"gorm.io/gorm"
)

func (d *Database) SaveContent(ctx context.Context, c *models.Content) error {
	return mapError(d.db.WithContext(ctx).Create(c).Error)
}

func (d *Database) UpdateContent(ctx context.Context, c *models.Content) error {
	err := d.db.WithContext(ctx).
		Model(c).
		Select("title", "body", "phase", "section", "status", "updated_at").
		Updates(c).Error
	return mapError(err)
}

func (d *Database) GetContentByPublicID(ctx context.Context, publicID string) (*models.Content, error) {
	var c models.Content
	if err := d.db.WithContext(ctx).Where("public_id = ?", publicID).First(&c).Error; err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

func (d *Database) DeleteContent(ctx context.Context, id uint) error {
	res := d.db.WithContext(ctx).Delete(&models.Content{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *Database) contentScope(publishedOnly bool) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if publishedOnly {
			return q.Where("status = ?", true)
		}
		return q
	}
}

func (d *Database) CountContent(ctx context.Context, publishedOnly bool) (int64, error) {
	var n int64
	err := d.db.WithContext(ctx).Model(&models.Content{}).Scopes(d.contentScope(publishedOnly)).Count(&n).Error
	return n, err
}

// ListContent returns content ordered by phase then section.
func (d *Database) ListContent(ctx context.Context, publishedOnly bool, offset, limit int) ([]models.Content, error) {
	var out []models.Content
	err := d.db.WithContext(ctx).
		Scopes(d.contentScope(publishedOnly)).
		Order("phase ASC").
		Order("section ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
