package dto

import (
	"encoding/json"

	"github.com/smarttodo/sync/internal/models"
)

type SuccessResponse struct {
	Success bool `json:"success"`
}

type TasksResponse struct {
	Success bool          `json:"success"`
	Tasks   []models.Task `json:"tasks"`
}

type SyncTasksRequest struct {
	Tasks    []models.Task `json:"tasks"`
	DeviceID string        `json:"deviceId"`
}

type SyncTasksResponse struct {
	Success  bool          `json:"success"`
	Tasks    []models.Task `json:"tasks"`
	Updated  int           `json:"updated"`
	Created  int           `json:"created"`
	SyncTime int64         `json:"syncTime"`
}

// MemoryItem is one assistant memory entry on the wire, grouped by
// category in a map.
type MemoryItem struct {
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

type FullSyncRequest struct {
	Tasks    []models.Task           `json:"tasks"`
	Profile  *models.Profile         `json:"profile,omitempty"`
	Memories map[string][]MemoryItem `json:"memories,omitempty"`
	Settings json.RawMessage         `json:"settings,omitempty"`
	DeviceID string                  `json:"deviceId"`
}

type FullSyncData struct {
	Tasks    []models.Task           `json:"tasks"`
	Profile  models.Profile          `json:"profile"`
	Memories map[string][]MemoryItem `json:"memories"`
	Settings json.RawMessage         `json:"settings"`
}

type FullSyncResponse struct {
	Success  bool         `json:"success"`
	Data     FullSyncData `json:"data"`
	SyncTime int64        `json:"syncTime"`
}

type ProfileResponse struct {
	Success bool           `json:"success"`
	Profile models.Profile `json:"profile"`
}

type UpdateProfileRequest struct {
	Name       string `json:"name"`
	Occupation string `json:"occupation"`
	Background string `json:"background"`
	Goals      string `json:"goals"`
	Challenges string `json:"challenges"`
}

type MemoriesResponse struct {
	Success  bool                    `json:"success"`
	Memories map[string][]MemoryItem `json:"memories"`
}

type MemorySyncRequest struct {
	Memories map[string][]MemoryItem `json:"memories"`
}

type SettingsResponse struct {
	Success  bool            `json:"success"`
	Settings json.RawMessage `json:"settings"`
}

type UpdateSettingsRequest struct {
	Settings json.RawMessage `json:"settings"`
}
