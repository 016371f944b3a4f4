package database

import (
	"context"

	"github.com/thereayou/flasker/internal/models"
)

func (d *Database) SaveTask(ctx context.Context, task *models.Task) error {
	return mapError(d.db.WithContext(ctx).Create(task).Error)
}

func (d *Database) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	if err := d.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		return nil, mapError(err)
	}
	return &task, nil
}

// IncompleteTasks returns the user's unfinished tasks, oldest first.
func (d *Database) IncompleteTasks(ctx context.Context, userID uint) ([]models.Task, error) {
	var tasks []models.Task
	err := d.db.WithContext(ctx).
		Where("user_id = ? AND complete = ?", userID, false).
		Order("created_at ASC").
		Find(&tasks).Error
	return tasks, err
}

// IncompleteTasksByName returns the user's unfinished tasks called name,
// oldest first.
func (d *Database) IncompleteTasksByName(ctx context.Context, userID uint, name string) ([]models.Task, error) {
	var tasks []models.Task
	err := d.db.WithContext(ctx).
		Where("user_id = ? AND name = ? AND complete = ?", userID, name, false).
		Order("created_at ASC").
		Find(&tasks).Error
	return tasks, err
}

func (d *Database) MarkTaskComplete(ctx context.Context, id string) error {
	res := d.db.WithContext(ctx).Model(&models.Task{}).Where("id = ?", id).Update("complete", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
