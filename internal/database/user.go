package database

import (
	"context"
	"time"

	"github.com/thereayou/flasker/internal/models"
	"gorm.io/gorm"
)

func (d *Database) SaveUser(ctx context.Context, user *models.User) error {
	return mapError(d.db.WithContext(ctx).Create(user).Error)
}

// UpdateUser writes every profile column of user. Token columns are owned by
// UpdateToken and are left untouched.
func (d *Database) UpdateUser(ctx context.Context, user *models.User) error {
	err := d.db.WithContext(ctx).
		Model(user).
		Select("username", "email", "email_confirmed_at", "password_hash", "group",
			"name", "about_me", "points", "privacy", "updated_at").
		Updates(user).Error
	return mapError(err)
}

func (d *Database) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := d.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func (d *Database) GetUserByPublicID(ctx context.Context, publicID string) (*models.User, error) {
	return d.findUser(ctx, "public_id = ?", publicID)
}

func (d *Database) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return d.findUser(ctx, "username = ?", username)
}

func (d *Database) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return d.findUser(ctx, "email = ?", email)
}

func (d *Database) FindUserByToken(ctx context.Context, token string) (*models.User, error) {
	return d.findUser(ctx, "token = ?", token)
}

func (d *Database) findUser(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	if err := d.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

// UpdateToken overwrites the token columns only, so concurrent profile
// edits are never clobbered by a login.
func (d *Database) UpdateToken(ctx context.Context, userID uint, token *string, expiration *time.Time) error {
	res := d.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"token": token, "token_expiration": expiration})
	if res.Error != nil {
		return mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *Database) UpdateLastSeen(ctx context.Context, id uint, at time.Time) error {
	return d.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("last_seen", at).Error
}

func (d *Database) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := d.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}

// ListUsers returns users ordered by id.
func (d *Database) ListUsers(ctx context.Context, offset, limit int) ([]models.User, error) {
	var users []models.User
	err := d.db.WithContext(ctx).Order("id ASC").Offset(offset).Limit(limit).Find(&users).Error
	return users, err
}

// DeleteUser removes the user together with its follow edges, tasks and
// notifications.
func (d *Database) DeleteUser(ctx context.Context, id uint) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("follower_id = ? OR followed_id = ?", id, id).Delete(&models.Follow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Task{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Notification{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&models.User{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
