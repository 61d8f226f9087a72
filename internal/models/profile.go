package models

import "github.com/google/uuid"

// Profile is a single-row-per-user record with plain overwrite
// semantics: the last full sync to touch it wins unconditionally.
type Profile struct {
	UserID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	Name       string    `gorm:"size:255" json:"name"`
	Occupation string    `gorm:"type:text" json:"occupation"`
	Background string    `gorm:"type:text" json:"background"`
	Goals      string    `gorm:"type:text" json:"goals"`
	Challenges string    `gorm:"type:text" json:"challenges"`
	UpdatedAt  int64     `gorm:"autoUpdateTime:false" json:"updatedAt"`
}
