package services

import (
	"context"
	"errors"

	"github.com/thereayou/flasker/internal/database"
	"github.com/thereayou/flasker/internal/models"
	"github.com/thereayou/flasker/internal/pagination"
	"go.uber.org/zap"
)

// FollowService maintains the directed follow graph. Both mutations are
// idempotent.
type FollowService struct {
	db            *database.Database
	notifications *NotificationService
	log           *zap.Logger
}

func NewFollowService(db *database.Database, notifications *NotificationService, log *zap.Logger) *FollowService {
	return &FollowService{db: db, notifications: notifications, log: log}
}

func (s *FollowService) IsFollowing(ctx context.Context, follower, followed *models.User) (bool, error) {
	return s.db.IsFollowing(ctx, follower.ID, followed.ID)
}

// Follow adds the edge follower -> followed if missing and notifies the
// followed user about a new edge.
func (s *FollowService) Follow(ctx context.Context, follower, followed *models.User) error {
	if follower.ID == followed.ID {
		return ErrSelfFollow
	}

	var note *models.Notification
	err := s.db.Transaction(ctx, func(tx *database.Database) error {
		created, err := tx.AddFollow(ctx, follower.ID, followed.ID)
		if err != nil || !created {
			return err
		}

		note, err = s.notifications.add(ctx, tx, followed.ID, NotificationNewFollower, map[string]string{
			"public_id": follower.PublicID,
			"username":  follower.Username,
		})
		return err
	})
	if errors.Is(err, database.ErrConflict) {
		// lost a race with an identical follow
		return nil
	}
	if err != nil {
		return err
	}

	if note != nil {
		s.notifications.publish(ctx, note)
		s.log.Debug("follow created", zap.Uint("follower_id", follower.ID), zap.Uint("followed_id", followed.ID))
	}
	return nil
}

// Unfollow removes the edge if present.
func (s *FollowService) Unfollow(ctx context.Context, follower, followed *models.User) error {
	_, err := s.db.RemoveFollow(ctx, follower.ID, followed.ID)
	return err
}

// Followers pages through users following user, ordered by user id.
func (s *FollowService) Followers(ctx context.Context, user *models.User, page, perPage int, endpoint pagination.Endpoint) (*pagination.Page[models.User], error) {
	src := pagination.Query[models.User]{
		CountFn: func(ctx context.Context) (int64, error) { return s.db.CountFollowers(ctx, user.ID) },
		FetchFn: func(ctx context.Context, offset, limit int) ([]models.User, error) {
			return s.db.ListFollowers(ctx, user.ID, offset, limit)
		},
	}
	return pagination.Paginate[models.User](ctx, src, page, perPage, endpoint)
}

// Followed pages through users that user follows, ordered by user id.
func (s *FollowService) Followed(ctx context.Context, user *models.User, page, perPage int, endpoint pagination.Endpoint) (*pagination.Page[models.User], error) {
	src := pagination.Query[models.User]{
		CountFn: func(ctx context.Context) (int64, error) { return s.db.CountFollowed(ctx, user.ID) },
		FetchFn: func(ctx context.Context, offset, limit int) ([]models.User, error) {
			return s.db.ListFollowed(ctx, user.ID, offset, limit)
		},
	}
	return pagination.Paginate[models.User](ctx, src, page, perPage, endpoint)
}

// Counts returns how many users follow user and how many it follows.
func (s *FollowService) Counts(ctx context.Context, user *models.User) (followers, followed int64, err error) {
	if followers, err = s.db.CountFollowers(ctx, user.ID); err != nil {
		return 0, 0, err
	}
	if followed, err = s.db.CountFollowed(ctx, user.ID); err != nil {
		return 0, 0, err
	}
	return followers, followed, nil
}
