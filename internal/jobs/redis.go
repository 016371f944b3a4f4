package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RedisQueue keeps each job in a hash <prefix>:job:<id> and pending ids in
// the list <prefix>:queue.
type RedisQueue struct {
	rdb       *redis.Client
	prefix    string
	resultTTL time.Duration
	now       func() time.Time
}

func NewRedisQueue(rdb *redis.Client, prefix string, resultTTL time.Duration) *RedisQueue {
	return &RedisQueue{
		rdb:       rdb,
		prefix:    prefix,
		resultTTL: resultTTL,
		now:       time.Now,
	}
}

func (q *RedisQueue) jobKey(id string) string { return q.prefix + ":job:" + id }

func (q *RedisQueue) queueKey() string { return q.prefix + ":queue" }

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrQueueUnavailable, err)
}

func (q *RedisQueue) Enqueue(ctx context.Context, name string, userID uint, payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode job payload: %w", err)
	}

	id := uuid.NewString()
	_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, q.jobKey(id), map[string]any{
			"name":        name,
			"args":        string(raw),
			"status":      StatusQueued,
			"user_id":     userID,
			"enqueued_at": q.now().UTC().Format(time.RFC3339Nano),
		})
		pipe.LPush(ctx, q.queueKey(), id)
		return nil
	})
	if err != nil {
		return "", unavailable(err)
	}
	return id, nil
}

func (q *RedisQueue) Progress(ctx context.Context, jobID string) (int, bool, error) {
	fields, err := q.rdb.HGetAll(ctx, q.jobKey(jobID)).Result()
	if err != nil {
		return 0, false, unavailable(err)
	}
	if len(fields) == 0 {
		return 0, false, nil
	}

	raw, ok := fields["progress"]
	if !ok {
		return 0, true, nil
	}
	progress, err := strconv.Atoi(raw)
	if err != nil {
		return 0, true, nil
	}
	return progress, true, nil
}

// Dequeue blocks up to timeout for the next job. It returns nil, nil when
// nothing arrived in time.
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.queueKey()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable(err)
	}
	id := res[1]

	fields, err := q.rdb.HGetAll(ctx, q.jobKey(id)).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	if len(fields) == 0 {
		// hash expired or was removed while the id sat in the list
		return nil, nil
	}

	job := &Job{
		ID:      id,
		Name:    fields["name"],
		Payload: json.RawMessage(fields["args"]),
		Status:  StatusStarted,
	}
	if uid, err := strconv.ParseUint(fields["user_id"], 10, 64); err == nil {
		job.UserID = uint(uid)
	}
	if ts, err := time.Parse(time.RFC3339Nano, fields["enqueued_at"]); err == nil {
		job.EnqueuedAt = ts
	}

	if err := q.rdb.HSet(ctx, q.jobKey(id), "status", StatusStarted).Err(); err != nil {
		return nil, unavailable(err)
	}
	return job, nil
}

// SetProgress records progress (0-100) for a running job.
func (q *RedisQueue) SetProgress(ctx context.Context, jobID string, progress int) error {
	progress = max(0, min(progress, 100))
	if err := q.rdb.HSet(ctx, q.jobKey(jobID), "progress", progress).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// Finish marks the job done and lets its hash expire after the result TTL.
// A non-nil jobErr marks it failed.
func (q *RedisQueue) Finish(ctx context.Context, jobID string, jobErr error) error {
	values := map[string]any{
		"status":   StatusFinished,
		"ended_at": q.now().UTC().Format(time.RFC3339Nano),
	}
	if jobErr != nil {
		values["status"] = StatusFailed
		values["error"] = jobErr.Error()
	}

	_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, q.jobKey(jobID), values)
		pipe.Expire(ctx, q.jobKey(jobID), q.resultTTL)
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}
