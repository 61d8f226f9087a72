package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/smarttodo/sync/internal/dto"
	"github.com/smarttodo/sync/internal/models"
	"gorm.io/gorm"
)

var (
	ErrTaskInvalid = errors.New("invalid task")
)

// SyncService owns the server-side merge: last-writer-wins per task on
// the client's claimed updatedAt, with the stored value always stamped
// from the server clock. All state lives in the store; nothing is cached
// across requests, so multiple server instances stay consistent.
type SyncService struct {
	db  *gorm.DB
	now func() int64
}

func NewSyncService(db *gorm.DB) *SyncService {
	return &SyncService{db: db, now: models.NowMillis}
}

// SyncResult reports the outcome of one merge batch.
type SyncResult struct {
	Tasks    []models.Task
	Updated  int
	Created  int
	SyncTime int64
}

// SyncTasks reconciles a device's task set against the store. The whole
// batch commits or rolls back as one unit; a validation failure on any
// task leaves every row untouched and the client retries later with its
// full local state.
func (s *SyncService) SyncTasks(userID uuid.UUID, incoming []models.Task, deviceID string) (*SyncResult, error) {
	var result SyncResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.mergeTasks(tx, userID, incoming, &result); err != nil {
			return err
		}

		if err := tx.Where("user_id = ? AND deleted = ?", userID, false).
			Order("created_at DESC").
			Find(&result.Tasks).Error; err != nil {
			return fmt.Errorf("load tasks: %w", err)
		}

		return s.logSync(tx, userID, deviceID, models.SyncActionTasks)
	})
	if err != nil {
		return nil, err
	}

	result.SyncTime = s.now()
	return &result, nil
}

// mergeTasks applies the per-task arbitration rule inside tx:
//
//   - unknown id: insert, keeping the claimed createdAt (or now) and
//     stamping updatedAt from the server clock;
//   - known id, incoming claimed updatedAt strictly greater than stored:
//     overwrite every mutable field, updatedAt = server now;
//   - otherwise: drop the incoming copy, stored row untouched;
//   - tombstoned rows win unconditionally: a deleted task is never
//     resurrected by a re-push, whatever timestamp it claims.
func (s *SyncService) mergeTasks(tx *gorm.DB, userID uuid.UUID, incoming []models.Task, result *SyncResult) error {
	for _, in := range incoming {
		if err := validateTask(&in); err != nil {
			return err
		}

		var stored models.Task
		err := tx.Where("id = ? AND user_id = ?", in.ID, userID).First(&stored).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			now := s.now()
			task := in
			task.UserID = userID
			if task.CreatedAt == 0 {
				task.CreatedAt = now
			}
			task.UpdatedAt = now
			task.Deleted = false
			if err := tx.Create(&task).Error; err != nil {
				return fmt.Errorf("create task %s: %w", task.ID, err)
			}
			result.Created++
			continue
		}
		if err != nil {
			return fmt.Errorf("lookup task %s: %w", in.ID, err)
		}

		if stored.Deleted {
			continue
		}

		if in.UpdatedAt > stored.UpdatedAt {
			updates := map[string]interface{}{
				"text":       in.Text,
				"notes":      in.Notes,
				"completed":  in.Completed,
				"priority":   in.Priority,
				"category":   in.Category,
				"due_date":   in.DueDate,
				"recurring":  in.Recurring,
				"updated_at": s.now(),
			}
			if err := tx.Model(&models.Task{}).
				Where("id = ? AND user_id = ?", in.ID, userID).
				Updates(updates).Error; err != nil {
				return fmt.Errorf("update task %s: %w", in.ID, err)
			}
			result.Updated++
		}
	}
	return nil
}

// ListTasks returns every non-deleted task for the user, newest first.
func (s *SyncService) ListTasks(userID uuid.UUID) ([]models.Task, error) {
	var tasks []models.Task
	err := s.db.Where("user_id = ? AND deleted = ?", userID, false).
		Order("created_at DESC").
		Find(&tasks).Error
	return tasks, err
}

// DeleteTask tombstones a task: the row stays, flagged deleted with a
// fresh updatedAt, so other devices re-pushing the same id are evaluated
// against the tombstone instead of recreating the task. Deleting an
// unknown id is a no-op.
func (s *SyncService) DeleteTask(userID uuid.UUID, taskID string) error {
	return s.db.Model(&models.Task{}).
		Where("id = ? AND user_id = ?", taskID, userID).
		Updates(map[string]interface{}{
			"deleted":    true,
			"updated_at": s.now(),
		}).Error
}

// FullSync runs the same per-task merge and additionally folds in the
// profile (overwrite), memories (replace wholesale) and settings blob
// (overwrite). Those side channels are single-owner and low-stakes, so
// they skip timestamp arbitration.
func (s *SyncService) FullSync(userID uuid.UUID, req *dto.FullSyncRequest) (*dto.FullSyncData, int64, error) {
	var data dto.FullSyncData
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var result SyncResult
		if err := s.mergeTasks(tx, userID, req.Tasks, &result); err != nil {
			return err
		}

		now := s.now()
		if req.Profile != nil {
			if err := upsertProfile(tx, userID, req.Profile, now); err != nil {
				return err
			}
		}
		if req.Memories != nil {
			if err := replaceMemories(tx, userID, req.Memories, now); err != nil {
				return err
			}
		}
		if len(req.Settings) > 0 {
			if err := upsertSettings(tx, userID, req.Settings, now); err != nil {
				return err
			}
		}

		if err := s.logSync(tx, userID, req.DeviceID, models.SyncActionFull); err != nil {
			return err
		}

		if err := tx.Where("user_id = ? AND deleted = ?", userID, false).
			Order("created_at DESC").
			Find(&data.Tasks).Error; err != nil {
			return fmt.Errorf("load tasks: %w", err)
		}
		if err := tx.Where("user_id = ?", userID).Limit(1).Find(&data.Profile).Error; err != nil {
			return fmt.Errorf("load profile: %w", err)
		}

		var memories []models.Memory
		if err := tx.Where("user_id = ?", userID).Order("created_at DESC").Find(&memories).Error; err != nil {
			return fmt.Errorf("load memories: %w", err)
		}
		data.Memories = groupMemories(memories)

		var setting models.Setting
		if err := tx.Where("user_id = ?", userID).Limit(1).Find(&setting).Error; err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		data.Settings = settingPayload(&setting)

		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return &data, s.now(), nil
}

func (s *SyncService) logSync(tx *gorm.DB, userID uuid.UUID, deviceID, action string) error {
	if deviceID == "" {
		deviceID = "unknown"
	}
	entry := models.SyncLog{
		UserID:    userID,
		DeviceID:  deviceID,
		Action:    action,
		Timestamp: s.now(),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("record sync log: %w", err)
	}
	return nil
}

// validateTask rejects tasks that can never be stored and normalizes
// empty enum fields to their defaults.
func validateTask(t *models.Task) error {
	if t.ID == "" {
		return fmt.Errorf("%w: missing id", ErrTaskInvalid)
	}
	if strings.TrimSpace(t.Text) == "" {
		return fmt.Errorf("%w: task %s has empty text", ErrTaskInvalid, t.ID)
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	} else if !models.ValidPriority(t.Priority) {
		return fmt.Errorf("%w: task %s has unknown priority %q", ErrTaskInvalid, t.ID, t.Priority)
	}
	if t.Category == "" {
		t.Category = models.CategoryPersonal
	} else if !models.ValidCategory(t.Category) {
		return fmt.Errorf("%w: task %s has unknown category %q", ErrTaskInvalid, t.ID, t.Category)
	}
	if !models.ValidRecurring(t.Recurring) {
		return fmt.Errorf("%w: task %s has unknown recurrence %q", ErrTaskInvalid, t.ID, t.Recurring)
	}
	return nil
}
