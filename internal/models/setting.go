package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Setting holds the opaque per-user settings blob. Full overwrite on
// every write; the server never inspects the contents.
type Setting struct {
	UserID    uuid.UUID      `gorm:"type:uuid;primaryKey" json:"-"`
	Data      datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"data"`
	UpdatedAt int64          `gorm:"autoUpdateTime:false" json:"updatedAt"`
}
