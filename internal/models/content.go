package models

import "time"

// Content is a published section of site copy, ordered by phase then section.
type Content struct {
	ID        uint   `gorm:"primaryKey"`
	PublicID  string `gorm:"size:36;uniqueIndex;not null"`
	Title     string `gorm:"size:200;not null"`
	Body      string `gorm:"type:text"`
	Phase     int    `gorm:"uniqueIndex:idx_content_phase_section;not null"`
	Section   int    `gorm:"uniqueIndex:idx_content_phase_section;not null"`
	Status    bool   `gorm:"default:false;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
