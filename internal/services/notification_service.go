package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/thereayou/flasker/internal/database"
	"github.com/thereayou/flasker/internal/models"
	"github.com/thereayou/flasker/internal/websocket"
	"go.uber.org/zap"
)

const (
	NotificationNewFollower  = "new_follower"
	NotificationTaskProgress = "task_progress"
)

// NotificationService stores per-user notifications and fans them out to
// live websocket connections through Redis pub/sub.
type NotificationService struct {
	db      *database.Database
	rdb     *redis.Client
	channel string
	log     *zap.Logger

	Now func() time.Time
}

// NewNotificationService publishes on channel when rdb is non-nil.
func NewNotificationService(db *database.Database, rdb *redis.Client, channel string, log *zap.Logger) *NotificationService {
	return &NotificationService{
		db:      db,
		rdb:     rdb,
		channel: channel,
		log:     log,
		Now:     time.Now,
	}
}

// Add replaces the user's notification called name with a new one.
func (s *NotificationService) Add(ctx context.Context, userID uint, name string, data any) (*models.Notification, error) {
	n, err := s.add(ctx, s.db, userID, name, data)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, n)
	return n, nil
}

// add writes through db, which may be a transaction. Publishing is left to
// the caller so nothing goes out before commit.
func (s *NotificationService) add(ctx context.Context, db *database.Database, userID uint, name string, data any) (*models.Notification, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode notification: %w", err)
	}

	n := &models.Notification{
		PublicID:    uuid.NewString(),
		Name:        name,
		UserID:      userID,
		Timestamp:   float64(s.Now().UnixNano()) / 1e9,
		PayloadJSON: string(payload),
	}
	if err := db.ReplaceNotification(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *NotificationService) publish(ctx context.Context, n *models.Notification) {
	if s.rdb == nil {
		return
	}

	ev := websocket.Event{
		UserID:    n.UserID,
		Name:      n.Name,
		Data:      json.RawMessage(n.PayloadJSON),
		Timestamp: n.Timestamp,
	}
	if err := websocket.Publish(ctx, s.rdb, s.channel, ev); err != nil {
		s.log.Warn("publish notification", zap.String("name", n.Name), zap.Uint("user_id", n.UserID), zap.Error(err))
	}
}

// Since returns the user's notifications newer than since (unix seconds).
func (s *NotificationService) Since(ctx context.Context, userID uint, since float64) ([]models.Notification, error) {
	return s.db.NotificationsSince(ctx, userID, since)
}
