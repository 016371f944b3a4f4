package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ProgressFunc records progress (0-100) of the running job.
type ProgressFunc func(ctx context.Context, progress int) error

// HandlerFunc runs one job.
type HandlerFunc func(ctx context.Context, job *Job, progress ProgressFunc) error

// ProgressReporter is told about every progress update, so the application
// can mirror it into its own records (notifications, task completion).
type ProgressReporter interface {
	ReportProgress(ctx context.Context, job *Job, progress int) error
}

type Worker struct {
	queue       *RedisQueue
	reporter    ProgressReporter
	handlers    map[string]HandlerFunc
	log         *zap.Logger
	pollTimeout time.Duration
	retryDelay  time.Duration

	finishTimeout time.Duration
}

func NewWorker(queue *RedisQueue, reporter ProgressReporter, log *zap.Logger) *Worker {
	return &Worker{
		queue:       queue,
		reporter:    reporter,
		handlers:    make(map[string]HandlerFunc),
		log:         log,
		pollTimeout: 5 * time.Second,
		retryDelay:  time.Second,

		finishTimeout: 5 * time.Second,
	}
}

// Handle registers fn for jobs named name.
func (w *Worker) Handle(name string, fn HandlerFunc) {
	w.handlers[name] = fn
}

// Run processes jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("worker started", zap.Int("handlers", len(w.handlers)))

	for {
		if ctx.Err() != nil {
			w.log.Info("worker stopped")
			return nil
		}

		job, err := w.queue.Dequeue(ctx, w.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.log.Error("dequeue failed", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(w.retryDelay):
			}
			continue
		}
		if job == nil {
			continue
		}

		w.Process(ctx, job)
	}
}

// Process runs a single job and records its outcome. Progress always ends at
// 100, failed or not, so the owning task never stays pending.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With(zap.String("job_id", job.ID), zap.String("job", job.Name))
	start := time.Now()

	progress := func(ctx context.Context, p int) error {
		if err := w.queue.SetProgress(ctx, job.ID, p); err != nil {
			return err
		}
		if w.reporter != nil {
			return w.reporter.ReportProgress(ctx, job, p)
		}
		return nil
	}

	jobErr := w.run(ctx, job, progress)
	if jobErr != nil {
		log.Error("job failed", zap.Error(jobErr))
	}

	// ctx may already be cancelled by shutdown; the outcome is recorded anyway
	finalCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.finishTimeout)
	defer cancel()

	if err := progress(finalCtx, 100); err != nil {
		log.Error("final progress update failed", zap.Error(err))
	}
	if err := w.queue.Finish(finalCtx, job.ID, jobErr); err != nil {
		log.Error("finish job failed", zap.Error(err))
		return
	}

	log.Info("job done", zap.Duration("took", time.Since(start)), zap.Bool("ok", jobErr == nil))
}

func (w *Worker) run(ctx context.Context, job *Job, progress ProgressFunc) (err error) {
	fn, ok := w.handlers[job.Name]
	if !ok {
		return fmt.Errorf("no handler registered for %q", job.Name)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return fn(ctx, job, progress)
}
