package models

import (
	"time"

	"github.com/google/uuid"
)

// Task priority levels.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Task categories.
const (
	CategoryWork     = "work"
	CategoryPersonal = "personal"
	CategoryStudy    = "study"
	CategoryHealth   = "health"
	CategoryOther    = "other"
)

// Recurring cadences. Completing a recurring task spawns a successor on
// the client; the server treats the field as opaque.
const (
	RecurringDaily   = "daily"
	RecurringWeekly  = "weekly"
	RecurringMonthly = "monthly"
)

// Task is the unit of synchronization. Exactly one row exists per
// (id, user_id); merges overwrite in place.
//
// CreatedAt and UpdatedAt are epoch milliseconds and are managed by the
// merge logic, never by gorm: UpdatedAt is the sole arbiter of merge
// precedence and the server stamps it with its own clock on every
// accepted write. Deleted rows are tombstones, excluded from reads but
// retained so stale re-pushes from other devices are rejected instead of
// resurrecting the task.
type Task struct {
	ID        string    `gorm:"size:64;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	Notes     string    `gorm:"type:text" json:"notes"`
	Completed bool      `gorm:"default:false" json:"completed"`
	Priority  string    `gorm:"size:10;default:'medium'" json:"priority"`
	Category  string    `gorm:"size:20;default:'personal'" json:"category"`
	DueDate   *string   `gorm:"size:30" json:"dueDate,omitempty"`
	Recurring string    `gorm:"size:10" json:"recurring,omitempty"`
	CreatedAt int64     `gorm:"autoCreateTime:false" json:"createdAt"`
	UpdatedAt int64     `gorm:"autoUpdateTime:false" json:"updatedAt"`
	Deleted   bool      `gorm:"default:false;index" json:"-"`
}

func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

func ValidCategory(c string) bool {
	switch c {
	case CategoryWork, CategoryPersonal, CategoryStudy, CategoryHealth, CategoryOther:
		return true
	}
	return false
}

func ValidRecurring(r string) bool {
	return r == "" || r == RecurringDaily || r == RecurringWeekly || r == RecurringMonthly
}

// NowMillis returns the current time as epoch milliseconds, the unit all
// task timestamps are expressed in.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
