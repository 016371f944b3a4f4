package jobs_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/thereayou/flasker/internal/jobs"
	"github.com/thereayou/flasker/internal/testutil"
	"go.uber.org/zap"
)

type recordingReporter struct {
	mu      sync.Mutex
	updates []int
}

func (r *recordingReporter) ReportProgress(_ context.Context, _ *jobs.Job, progress int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, progress)
	return nil
}

func (r *recordingReporter) seen() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.updates...)
}

func TestWorker_Process(t *testing.T) {
	ctx := context.Background()
	rdb, mr := testutil.NewRedis(t)
	q := jobs.NewRedisQueue(rdb, "flasker", time.Minute)
	rep := &recordingReporter{}

	w := jobs.NewWorker(q, rep, zap.NewNop())
	w.Handle("count", func(ctx context.Context, job *jobs.Job, progress jobs.ProgressFunc) error {
		return progress(ctx, 50)
	})

	id, err := q.Enqueue(ctx, "count", 1, nil)
	require.NoError(t, err)
	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)

	w.Process(ctx, job)

	require.Equal(t, []int{50, 100}, rep.seen())
	require.Equal(t, "finished", mr.HGet("flasker:job:"+id, "status"))
	require.Equal(t, "100", mr.HGet("flasker:job:"+id, "progress"))
}

func TestWorker_ProcessFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler jobs.HandlerFunc
		job     string
	}{
		{"error", func(context.Context, *jobs.Job, jobs.ProgressFunc) error { return errors.New("boom") }, "work"},
		{"panic", func(context.Context, *jobs.Job, jobs.ProgressFunc) error { panic("bad") }, "work"},
		{"unknown job", nil, "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			rdb, mr := testutil.NewRedis(t)
			q := jobs.NewRedisQueue(rdb, "flasker", time.Minute)
			rep := &recordingReporter{}

			w := jobs.NewWorker(q, rep, zap.NewNop())
			if tt.handler != nil {
				w.Handle("work", tt.handler)
			}

			id, err := q.Enqueue(ctx, tt.job, 1, nil)
			require.NoError(t, err)
			job, err := q.Dequeue(ctx, time.Second)
			require.NoError(t, err)

			w.Process(ctx, job)

			require.Equal(t, []int{100}, rep.seen())
			require.Equal(t, "failed", mr.HGet("flasker:job:"+id, "status"))
		})
	}
}

func TestWorker_Run(t *testing.T) {
	rdb, _ := testutil.NewRedis(t)
	q := jobs.NewRedisQueue(rdb, "flasker", time.Minute)

	done := make(chan string, 1)
	w := jobs.NewWorker(q, nil, zap.NewNop())
	w.Handle("ping", func(_ context.Context, job *jobs.Job, _ jobs.ProgressFunc) error {
		done <- job.ID
		return nil
	})

	id, err := q.Enqueue(context.Background(), "ping", 1, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(stopped)
	}()

	select {
	case got := <-done:
		require.Equal(t, id, got)
	case <-time.After(5 * time.Second):
		t.Fatal("job was not processed")
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(10 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWorker_ProcessAfterShutdown(t *testing.T) {
	rdb, mr := testutil.NewRedis(t)
	q := jobs.NewRedisQueue(rdb, "flasker", time.Minute)
	rep := &recordingReporter{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := jobs.NewWorker(q, rep, zap.NewNop())
	w.Handle("export", func(ctx context.Context, _ *jobs.Job, progress jobs.ProgressFunc) error {
		if err := progress(ctx, 30); err != nil {
			return err
		}
		cancel()
		return ctx.Err()
	})

	id, err := q.Enqueue(ctx, "export", 1, nil)
	require.NoError(t, err)
	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)

	w.Process(ctx, job)

	require.Equal(t, []int{30, 100}, rep.seen())
	require.Equal(t, "failed", mr.HGet("flasker:job:"+id, "status"))
	require.Equal(t, "100", mr.HGet("flasker:job:"+id, "progress"))
	require.Equal(t, time.Minute, mr.TTL("flasker:job:"+id))

	mr.FastForward(time.Minute + time.Second)
	require.False(t, mr.Exists("flasker:job:"+id))
}
