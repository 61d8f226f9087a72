package store

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/smarttodo/sync/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// KV is the get/set key-value abstraction for device-local state:
// device id, session, settings, last-sync time.
type KV struct {
	Key   string `gorm:"primaryKey;size:64"`
	Value string `gorm:"type:text"`
}

// Store is the device-local persistence layer over SQLite. It holds the
// local task set plus the KV table; it knows nothing about merging;
// the orchestrator decides what to write.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the local database at path and migrates it.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir %q: %w", dir, err)
		}
	}

	dbLogger := logger.New(
		log.New(os.Stderr, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: dbLogger})
	if err != nil {
		return nil, fmt.Errorf("open local db: %w", err)
	}

	if err := db.AutoMigrate(&models.Task{}, &KV{}); err != nil {
		return nil, fmt.Errorf("migrate local db: %w", err)
	}

	return &Store{db: db}, nil
}

// ListTasks returns every local task, newest first.
func (s *Store) ListTasks() ([]models.Task, error) {
	var tasks []models.Task
	err := s.db.Order("created_at DESC").Find(&tasks).Error
	return tasks, err
}

// GetTask looks up one task by id. Returns (nil, nil) when absent.
func (s *Store) GetTask(id string) (*models.Task, error) {
	var task models.Task
	err := s.db.Where("id = ?", id).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// SaveTask inserts or overwrites a task row.
func (s *Store) SaveTask(task *models.Task) error {
	return s.db.Save(task).Error
}

// DeleteTask removes a task from local storage.
func (s *Store) DeleteTask(id string) error {
	return s.db.Where("id = ?", id).Delete(&models.Task{}).Error
}

// ReplaceAll swaps the entire local task set for the given one, in one
// transaction. Used by pull, where local edits are knowingly discarded.
func (s *Store) ReplaceAll(tasks []models.Task) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.Task{}).Error; err != nil {
			return err
		}
		for i := range tasks {
			if err := tx.Save(&tasks[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Get returns the KV value for key, or "" when unset.
func (s *Store) Get(key string) (string, error) {
	var kv KV
	err := s.db.Where("key = ?", key).First(&kv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return kv.Value, nil
}

// Set stores a KV value, overwriting any previous one.
func (s *Store) Set(key, value string) error {
	return s.db.Save(&KV{Key: key, Value: value}).Error
}

// Delete removes a KV entry.
func (s *Store) Delete(key string) error {
	return s.db.Where("key = ?", key).Delete(&KV{}).Error
}
