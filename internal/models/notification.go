package models

import "encoding/json"

type Notification struct {
	ID          uint    `gorm:"primaryKey"`
	PublicID    string  `gorm:"size:36;uniqueIndex;not null"`
	Name        string  `gorm:"size:128;index;not null"`
	UserID      uint    `gorm:"not null;index"`
	Timestamp   float64 `gorm:"index"`
	PayloadJSON string  `gorm:"type:text"`
}

// Data decodes the stored payload. A payload that is not valid JSON is
// returned as nil.
func (n *Notification) Data() any {
	var v any
	if err := json.Unmarshal([]byte(n.PayloadJSON), &v); err != nil {
		return nil
	}
	return v
}
