package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/thereayou/flasker/internal/database"
	"github.com/thereayou/flasker/internal/jobs"
	"github.com/thereayou/flasker/internal/models"
	"go.uber.org/zap"
)

const (
	TaskExportFollowers = "export_followers"
	TaskSendEmail       = "send_email"
)

// TaskService correlates jobs in the external queue with Task rows owned by
// users. It never waits for a job to finish.
type TaskService struct {
	db            *database.Database
	queue         jobs.Queue
	notifications *NotificationService
	log           *zap.Logger
}

func NewTaskService(db *database.Database, queue jobs.Queue, notifications *NotificationService, log *zap.Logger) *TaskService {
	return &TaskService{db: db, queue: queue, notifications: notifications, log: log}
}

// Launch enqueues the job and records a Task keyed by the job id.
func (s *TaskService) Launch(ctx context.Context, user *models.User, name, description string, payload any) (*models.Task, error) {
	jobID, err := s.queue.Enqueue(ctx, name, user.ID, payload)
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		ID:          jobID,
		UserID:      user.ID,
		Name:        name,
		Description: description,
	}
	if err := s.db.SaveTask(ctx, task); err != nil {
		// the job still runs; its progress reports find no task to complete
		s.log.Error("save task", zap.String("job_id", jobID), zap.String("task", name), zap.Error(err))
		return nil, err
	}

	s.log.Info("task launched", zap.String("task_id", task.ID), zap.String("task", name), zap.Uint("user_id", user.ID))
	return task, nil
}

// ExportFollowers launches the follower export unless one is already
// running for the user.
func (s *TaskService) ExportFollowers(ctx context.Context, user *models.User) (*models.Task, error) {
	if _, err := s.InProgressByName(ctx, user, TaskExportFollowers); err == nil {
		return nil, ErrTaskInProgress
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return s.Launch(ctx, user, TaskExportFollowers, "Exporting followers...", nil)
}

// InProgress lists the user's incomplete tasks. Rows whose job already
// finished, or is gone from the job store, are completed on the way.
func (s *TaskService) InProgress(ctx context.Context, user *models.User) ([]models.Task, error) {
	tasks, err := s.db.IncompleteTasks(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return s.running(ctx, tasks), nil
}

// InProgressByName returns the user's oldest running task called name,
// or ErrNotFound.
func (s *TaskService) InProgressByName(ctx context.Context, user *models.User, name string) (*models.Task, error) {
	tasks, err := s.db.IncompleteTasksByName(ctx, user.ID, name)
	if err != nil {
		return nil, err
	}
	if tasks = s.running(ctx, tasks); len(tasks) == 0 {
		return nil, ErrNotFound
	}
	return &tasks[0], nil
}

// running drops tasks whose job has completed. A task whose progress cannot
// be read stays running.
func (s *TaskService) running(ctx context.Context, tasks []models.Task) []models.Task {
	out := tasks[:0]
	for i := range tasks {
		progress, err := s.Progress(ctx, &tasks[i])
		if err != nil {
			s.log.Warn("task progress unavailable", zap.String("task_id", tasks[i].ID), zap.Error(err))
		}
		if err != nil || progress < 100 {
			out = append(out, tasks[i])
		}
	}
	return out
}

// Get returns one of the user's tasks. Tasks of other users are reported as
// missing.
func (s *TaskService) Get(ctx context.Context, user *models.User, id string) (*models.Task, error) {
	task, err := s.db.GetTask(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if task.UserID != user.ID {
		return nil, ErrNotFound
	}
	return task, nil
}

// Progress reports the task's progress in percent. A job the store no
// longer knows about has finished and had its bookkeeping expire, so it
// counts as 100. Reaching 100 completes the task row. Store failures are
// returned, never guessed.
func (s *TaskService) Progress(ctx context.Context, task *models.Task) (int, error) {
	if task.Complete {
		return 100, nil
	}

	progress, found, err := s.queue.Progress(ctx, task.ID)
	if err != nil {
		return 0, fmt.Errorf("task %s progress: %w", task.ID, err)
	}
	if found && progress < 100 {
		return progress, nil
	}

	if err := s.db.MarkTaskComplete(ctx, task.ID); err != nil && !errors.Is(err, database.ErrNotFound) {
		s.log.Warn("complete task", zap.String("task_id", task.ID), zap.Error(err))
	} else {
		task.Complete = true
	}
	return 100, nil
}

// ReportProgress mirrors worker progress into a task_progress notification
// and completes the task at 100.
func (s *TaskService) ReportProgress(ctx context.Context, job *jobs.Job, progress int) error {
	data := map[string]any{
		"task_id":  job.ID,
		"name":     job.Name,
		"progress": progress,
	}
	if _, err := s.notifications.Add(ctx, job.UserID, NotificationTaskProgress, data); err != nil {
		return err
	}

	if progress >= 100 {
		err := s.db.MarkTaskComplete(ctx, job.ID)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return err
		}
	}
	return nil
}
