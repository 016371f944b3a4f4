package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/thereayou/flasker/internal/jobs"
	"github.com/thereayou/flasker/internal/testutil"
)

func TestRedisQueue_Lifecycle(t *testing.T) {
	ctx := context.Background()
	rdb, mr := testutil.NewRedis(t)
	q := jobs.NewRedisQueue(rdb, "flasker", 500*time.Second)

	id, err := q.Enqueue(ctx, "export_followers", 7, map[string]string{"format": "json"})
	require.NoError(t, err)
	require.Len(t, id, 36)

	progress, found, err := q.Progress(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	require.Zero(t, progress)

	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)
	require.Equal(t, id, job.ID)
	require.Equal(t, "export_followers", job.Name)
	require.Equal(t, uint(7), job.UserID)

	var payload map[string]string
	require.NoError(t, job.Decode(&payload))
	require.Equal(t, "json", payload["format"])

	require.NoError(t, q.SetProgress(ctx, id, 40))
	progress, found, err = q.Progress(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 40, progress)

	require.NoError(t, q.Finish(ctx, id, nil))
	require.Equal(t, "finished", mr.HGet("flasker:job:"+id, "status"))

	mr.FastForward(501 * time.Second)
	_, found, err = q.Progress(ctx, id)
	require.NoError(t, err)
	require.False(t, found)
}

func TestRedisQueue_ProgressUnknownJob(t *testing.T) {
	rdb, _ := testutil.NewRedis(t)
	q := jobs.NewRedisQueue(rdb, "flasker", time.Minute)

	_, found, err := q.Progress(context.Background(), "does-not-exist")
	require.NoError(t, err)
	require.False(t, found)
}

func TestRedisQueue_Unavailable(t *testing.T) {
	ctx := context.Background()
	rdb, mr := testutil.NewRedis(t)
	q := jobs.NewRedisQueue(rdb, "flasker", time.Minute)

	mr.Close()

	_, _, err := q.Progress(ctx, "any")
	require.ErrorIs(t, err, jobs.ErrQueueUnavailable)

	_, err = q.Enqueue(ctx, "send_email", 1, nil)
	require.ErrorIs(t, err, jobs.ErrQueueUnavailable)
}

func TestRedisQueue_FinishFailed(t *testing.T) {
	ctx := context.Background()
	rdb, mr := testutil.NewRedis(t)
	q := jobs.NewRedisQueue(rdb, "flasker", time.Minute)

	id, err := q.Enqueue(ctx, "send_email", 1, nil)
	require.NoError(t, err)
	require.NoError(t, q.Finish(ctx, id, errors.New("smtp down")))

	require.Equal(t, "failed", mr.HGet("flasker:job:"+id, "status"))
	require.Equal(t, "smtp down", mr.HGet("flasker:job:"+id, "error"))
	require.Greater(t, mr.TTL("flasker:job:"+id), time.Duration(0))
}

func TestRedisQueue_DequeueEmpty(t *testing.T) {
	rdb, _ := testutil.NewRedis(t)
	q := jobs.NewRedisQueue(rdb, "flasker", time.Minute)

	job, err := q.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)
	require.Nil(t, job)
}
