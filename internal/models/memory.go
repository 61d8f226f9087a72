package models

import "github.com/google/uuid"

// Memory is one assistant memory item. Memories are replaced wholesale
// per user on each memory sync (delete-and-reinsert), never merged.
type Memory struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	Category  string    `gorm:"size:50;not null" json:"-"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt int64     `gorm:"autoCreateTime:false" json:"timestamp"`
}
