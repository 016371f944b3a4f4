package database

import (
	"context"

	"github.com/thereayou/flasker/internal/models"
	"gorm.io/gorm/clause"
)

func (d *Database) IsFollowing(ctx context.Context, followerID, followedID uint) (bool, error) {
	var n int64
	err := d.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&n).Error
	return n > 0, err
}

// AddFollow inserts the edge unless it exists. The insert ignores a
// conflicting row, so two racing calls for the same pair both succeed.
// created reports whether this call inserted the edge.
func (d *Database) AddFollow(ctx context.Context, followerID, followedID uint) (created bool, err error) {
	res := d.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Follow{FollowerID: followerID, FollowedID: followedID})
	if res.Error != nil {
		return false, mapError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// RemoveFollow deletes the edge if present. removed reports whether a row
// was deleted.
func (d *Database) RemoveFollow(ctx context.Context, followerID, followedID uint) (removed bool, err error) {
	res := d.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&models.Follow{})
	return res.RowsAffected > 0, res.Error
}

func (d *Database) CountFollowers(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := d.db.WithContext(ctx).Model(&models.Follow{}).Where("followed_id = ?", userID).Count(&n).Error
	return n, err
}

func (d *Database) CountFollowed(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := d.db.WithContext(ctx).Model(&models.Follow{}).Where("follower_id = ?", userID).Count(&n).Error
	return n, err
}

// ListFollowers returns users following userID, ordered by user id.
func (d *Database) ListFollowers(ctx context.Context, userID uint, offset, limit int) ([]models.User, error) {
	var users []models.User
	err := d.db.WithContext(ctx).
		Joins("JOIN followers ON followers.follower_id = users.id").
		Where("followers.followed_id = ?", userID).
		Order("users.id ASC").
		Offset(offset).
		Limit(limit).
		Find(&users).Error
	return users, err
}

// ListFollowed returns users followed by userID, ordered by user id.
func (d *Database) ListFollowed(ctx context.Context, userID uint, offset, limit int) ([]models.User, error) {
	var users []models.User
	err := d.db.WithContext(ctx).
		Joins("JOIN followers ON followers.followed_id = users.id").
		Where("followers.follower_id = ?", userID).
		Order("users.id ASC").
		Offset(offset).
		Limit(limit).
		Find(&users).Error
	return users, err
}
