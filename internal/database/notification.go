package database

import (
	"context"

	"github.com/thereayou/flasker/internal/models"
	"gorm.io/gorm"
)

// ReplaceNotification stores n, dropping any earlier notification with the
// same name for the same user.
func (d *Database) ReplaceNotification(ctx context.Context, n *models.Notification) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND name = ?", n.UserID, n.Name).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		return mapError(tx.Create(n).Error)
	})
}

// NotificationsSince returns notifications newer than since, oldest first.
func (d *Database) NotificationsSince(ctx context.Context, userID uint, since float64) ([]models.Notification, error) {
	var out []models.Notification
	err := d.db.WithContext(ctx).
		Where("user_id = ? AND timestamp > ?", userID, since).
		Order("timestamp ASC").
		Find(&out).Error
	return out, err
}
