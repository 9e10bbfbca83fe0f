package models

import (
	"time"

	"gorm.io/gorm"
)

// UserProgress is the persisted XP total for each user. CurrentLevel is
// denormalized from TotalXP through the level table on every write.
type UserProgress struct {
	ID             string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // links to profile service

	TotalXP      int64 `json:"total_xp" gorm:"not null;default:0"`
	CurrentLevel int   `json:"current_level" gorm:"not null;default:1"`

	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
