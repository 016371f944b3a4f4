package models

import "time"

// Task tracks a unit of background work. ID is the job id assigned by the
// queue at enqueue time.
type Task struct {
	ID          string `gorm:"size:36;primaryKey"`
	UserID      uint   `gorm:"not null;index"`
	Name        string `gorm:"size:128;index;not null"`
	Description string `gorm:"size:128"`
	Complete    bool   `gorm:"default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
