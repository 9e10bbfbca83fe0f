package services

import (
	"context"
	"errors"
	"fmt"

	"useless-progression/gamification"
	"useless-progression/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressionService struct {
	DB     *gorm.DB
	Levels *gamification.LevelTable
	Clock  clockwork.Clock
	Log    *zap.SugaredLogger
}

func NewProgressionService(db *gorm.DB, clock clockwork.Clock, log *zap.SugaredLogger) *ProgressionService {
	return &ProgressionService{
		DB:     db,
		Levels: gamification.NewLevelTable(),
		Clock:  clock,
		Log:    log,
	}
}

// EnsureProgressRecord ensures a UserProgress row exists (idempotent)
func (s *ProgressionService) EnsureProgressRecord(ctx context.Context, externalUserID string) (*models.UserProgress, error) {
	return s.ensureProgress(s.DB.WithContext(ctx), externalUserID)
}

func (s *ProgressionService) ensureProgress(tx *gorm.DB, externalUserID string) (*models.UserProgress, error) {
	prog := models.UserProgress{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		CurrentLevel:   1,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_user_id"}},
		DoNothing: true,
	}).Create(&prog).Error; err != nil {
		return nil, fmt.Errorf("create progress for %s: %w", externalUserID, err)
	}

	var stored models.UserProgress
	if err := tx.Where("external_user_id = ?", externalUserID).First(&stored).Error; err != nil {
		return nil, fmt.Errorf("load progress for %s: %w", externalUserID, err)
	}
	return &stored, nil
}

// AwardXP adds xp to the user's total, recomputes the stored level and
// returns the level-ups crossed in ascending order. When tx is nil the award
// runs in its own transaction.
func (s *ProgressionService) AwardXP(ctx context.Context, tx *gorm.DB, externalUserID string, xp int64, reason string) (*models.UserProgress, []gamification.LevelUp, error) {
	if xp <= 0 {
		return nil, nil, fmt.Errorf("xp must be positive, got %d", xp)
	}
	if tx == nil {
		var (
			prog *models.UserProgress
			ups  []gamification.LevelUp
		)
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			prog, ups, err = s.AwardXP(ctx, tx, externalUserID, xp, reason)
			return err
		})
		return prog, ups, err
	}

	if _, err := s.ensureProgress(tx, externalUserID); err != nil {
		return nil, nil, err
	}

	var prog models.UserProgress
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("external_user_id = ?", externalUserID).
		First(&prog).Error; err != nil {
		return nil, nil, fmt.Errorf("progress record not found for %s: %w", externalUserID, err)
	}

	info, ups := s.Levels.AddXP(prog.TotalXP, xp)
	prog.TotalXP += xp
	if err := s.Levels.Validate(prog.TotalXP, info); err != nil {
		return nil, nil, err
	}
	prog.CurrentLevel = info.Level
	if len(ups) > 0 {
		now := s.Clock.Now()
		prog.LastLevelUpAt = &now
	}

	if err := tx.Save(&prog).Error; err != nil {
		return nil, nil, fmt.Errorf("save progress for %s: %w", externalUserID, err)
	}

	s.Log.Infow("🎮 XP awarded",
		"user_id", externalUserID, "xp", xp, "total_xp", prog.TotalXP, "level", prog.CurrentLevel, "reason", reason)
	for _, up := range ups {
		s.Log.Infow("⬆️ Level up", "user_id", externalUserID, "level", up.Level, "title", up.Title)
	}
	return &prog, ups, nil
}

// GetLevelInfo returns the stored progress and its derived level view.
// Users without a row are reported at level 1 with no XP.
func (s *ProgressionService) GetLevelInfo(ctx context.Context, externalUserID string) (*models.UserProgress, gamification.LevelInfo, error) {
	var prog models.UserProgress
	err := s.DB.WithContext(ctx).Where("external_user_id = ?", externalUserID).First(&prog).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		prog = models.UserProgress{ExternalUserID: externalUserID, CurrentLevel: 1}
	} else if err != nil {
		return nil, gamification.LevelInfo{}, fmt.Errorf("load progress for %s: %w", externalUserID, err)
	}
	return &prog, s.Levels.LevelInfo(prog.TotalXP), nil
}
