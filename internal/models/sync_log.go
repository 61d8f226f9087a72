package models

import "github.com/google/uuid"

// SyncLog is an audit record of one sync request. Device IDs identify
// installations for observability only and carry no merge authority.
type SyncLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	DeviceID  string    `gorm:"size:64" json:"device_id"`
	Action    string    `gorm:"size:20" json:"action"`
	Timestamp int64     `json:"timestamp"`
}

// SyncLog actions.
const (
	SyncActionTasks = "sync"
	SyncActionFull  = "full_sync"
)
