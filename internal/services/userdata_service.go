package services

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/smarttodo/sync/internal/dto"
	"github.com/smarttodo/sync/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserDataService serves the assistant side channels: profile, memories
// and the settings blob. All three are last-write-wins-unconditionally;
// only tasks get timestamp arbitration.
type UserDataService struct {
	db  *gorm.DB
	now func() int64
}

func NewUserDataService(db *gorm.DB) *UserDataService {
	return &UserDataService{db: db, now: models.NowMillis}
}

func (s *UserDataService) GetProfile(userID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.Where("user_id = ?", userID).Limit(1).Find(&profile).Error; err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return &profile, nil
}

func (s *UserDataService) UpdateProfile(userID uuid.UUID, req *dto.UpdateProfileRequest) error {
	profile := models.Profile{
		Name:       req.Name,
		Occupation: req.Occupation,
		Background: req.Background,
		Goals:      req.Goals,
		Challenges: req.Challenges,
	}
	return upsertProfile(s.db, userID, &profile, s.now())
}

func (s *UserDataService) GetMemories(userID uuid.UUID) (map[string][]dto.MemoryItem, error) {
	var memories []models.Memory
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&memories).Error; err != nil {
		return nil, fmt.Errorf("load memories: %w", err)
	}
	return groupMemories(memories), nil
}

// SyncMemories replaces the user's whole memory set in one transaction.
func (s *UserDataService) SyncMemories(userID uuid.UUID, memories map[string][]dto.MemoryItem) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return replaceMemories(tx, userID, memories, s.now())
	})
}

func (s *UserDataService) GetSettings(userID uuid.UUID) (json.RawMessage, error) {
	var setting models.Setting
	if err := s.db.Where("user_id = ?", userID).Limit(1).Find(&setting).Error; err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return settingPayload(&setting), nil
}

func (s *UserDataService) UpdateSettings(userID uuid.UUID, raw json.RawMessage) error {
	return upsertSettings(s.db, userID, raw, s.now())
}

func upsertProfile(tx *gorm.DB, userID uuid.UUID, profile *models.Profile, now int64) error {
	row := *profile
	row.UserID = userID
	row.UpdatedAt = now
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func replaceMemories(tx *gorm.DB, userID uuid.UUID, memories map[string][]dto.MemoryItem, now int64) error {
	if err := tx.Where("user_id = ?", userID).Delete(&models.Memory{}).Error; err != nil {
		return fmt.Errorf("clear memories: %w", err)
	}
	for category, items := range memories {
		for _, item := range items {
			ts := item.Timestamp
			if ts == 0 {
				ts = now
			}
			row := models.Memory{
				UserID:    userID,
				Category:  category,
				Content:   item.Content,
				CreatedAt: ts,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("insert memory: %w", err)
			}
		}
	}
	return nil
}

func upsertSettings(tx *gorm.DB, userID uuid.UUID, raw json.RawMessage, now int64) error {
	row := models.Setting{
		UserID:    userID,
		Data:      datatypes.JSON(raw),
		UpdatedAt: now,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

func groupMemories(memories []models.Memory) map[string][]dto.MemoryItem {
	grouped := make(map[string][]dto.MemoryItem)
	for _, m := range memories {
		grouped[m.Category] = append(grouped[m.Category], dto.MemoryItem{
			Content:   m.Content,
			Timestamp: m.CreatedAt,
		})
	}
	return grouped
}

func settingPayload(setting *models.Setting) json.RawMessage {
	if len(setting.Data) == 0 {
		return json.RawMessage("{}")
	}
	return json.RawMessage(setting.Data)
}
