package services

import (
	"context"
	"fmt"

	"useless-progression/gamification"
	"useless-progression/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AchievementService struct {
	DB          *gorm.DB
	Registry    *gamification.Registry
	Progression *ProgressionService
	Clock       clockwork.Clock
	Log         *zap.SugaredLogger
}

func NewAchievementService(db *gorm.DB, progression *ProgressionService, clock clockwork.Clock, log *zap.SugaredLogger) *AchievementService {
	return &AchievementService{
		DB:          db,
		Registry:    gamification.DefaultRegistry(),
		Progression: progression,
		Clock:       clock,
		Log:         log,
	}
}

// Unlock records the achievement for the user. The first unlock grants the
// catalog XP and UselessBucks; later calls return false and change nothing.
// When tx is nil the unlock runs in its own transaction.
func (s *AchievementService) Unlock(ctx context.Context, tx *gorm.DB, userID string, id gamification.AchievementType) (bool, error) {
	def, err := s.Registry.Get(id)
	if err != nil {
		return false, err
	}
	if tx == nil {
		var unlocked bool
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			unlocked, err = s.unlock(ctx, tx, userID, def)
			return err
		})
		return unlocked, err
	}
	return s.unlock(ctx, tx, userID, def)
}

// UnlockMany validates every id before recording any of them and returns the
// ids that were newly unlocked.
func (s *AchievementService) UnlockMany(ctx context.Context, userID string, ids []gamification.AchievementType) ([]gamification.AchievementType, error) {
	defs := make([]gamification.AchievementDefinition, 0, len(ids))
	for _, id := range ids {
		def, err := s.Registry.Get(id)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	var fresh []gamification.AchievementType
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, def := range defs {
			ok, err := s.unlock(ctx, tx, userID, def)
			if err != nil {
				return err
			}
			if ok {
				fresh = append(fresh, def.ID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fresh, nil
}

func (s *AchievementService) unlock(ctx context.Context, tx *gorm.DB, userID string, def gamification.AchievementDefinition) (bool, error) {
	row := models.UserAchievement{
		ID:              uuid.NewString(),
		UserID:          userID,
		AchievementType: string(def.ID),
		UnlockedAt:      s.Clock.Now(),
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "achievement_type"}},
		DoNothing: true,
	}).Create(&row)
	if res.Error != nil {
		return false, fmt.Errorf("unlock %s for %s: %w", def.ID, userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	if def.XPReward > 0 {
		if _, _, err := s.Progression.AwardXP(ctx, tx, userID, def.XPReward, "Achievement: "+def.Title); err != nil {
			return false, err
		}
	}
	if def.UselessBucksReward > 0 {
		amount := decimal.NewFromInt(def.UselessBucksReward)
		if err := creditWallet(tx, userID, amount, models.TransactionAchievement,
			fmt.Sprintf("Achievement unlocked: %s", def.Title)); err != nil {
			return false, err
		}
	}

	s.Log.Infow("🎖️ Achievement unlocked", "user_id", userID, "achievement", def.ID, "xp", def.XPReward)
	return true, nil
}

// ListForUser returns the user's unlocked achievements, oldest first.
func (s *AchievementService) ListForUser(ctx context.Context, userID string) ([]models.UserAchievement, error) {
	var rows []models.UserAchievement
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("unlocked_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list achievements for %s: %w", userID, err)
	}
	return rows, nil
}
