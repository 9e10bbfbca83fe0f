package models

import (
	"time"
)

// UserAchievement is one unlocked catalog entry. The (user_id, achievement_type)
// pair is unique so a second unlock is a no-op at the database.
type UserAchievement struct {
	ID              string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID          string    `gorm:"not null;uniqueIndex:idx_user_achievement" json:"user_id"`
	AchievementType string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_user_achievement" json:"achievement_type"`
	UnlockedAt      time.Time `gorm:"not null" json:"unlocked_at"`
}
