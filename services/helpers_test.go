package services

import (
	"fmt"
	"testing"
	"time"

	"useless-progression/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var refNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

var nopLog = zap.NewNop().Sugar()

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.Wallet{},
		&models.WalletTransaction{},
		&models.UserProgress{},
		&models.UserAchievement{},
	))
	return db
}

type testStack struct {
	DB           *gorm.DB
	Clock        *clockwork.FakeClock
	Progression  *ProgressionService
	Achievements *AchievementService
	Wallets      *WalletService
}

func newTestStack(t *testing.T, lock ClaimLock) *testStack {
	t.Helper()
	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(refNow)
	prog := NewProgressionService(db, clock, nopLog)
	ach := NewAchievementService(db, prog, clock, nopLog)
	return &testStack{
		DB:           db,
		Clock:        clock,
		Progression:  prog,
		Achievements: ach,
		Wallets:      NewWalletService(db, prog, ach, lock, clock, nopLog),
	}
}

func (s *testStack) wallet(t *testing.T, userID string) models.Wallet {
	t.Helper()
	var w models.Wallet
	require.NoError(t, s.DB.Where("user_id = ?", userID).First(&w).Error)
	return w
}

func (s *testStack) progress(t *testing.T, userID string) models.UserProgress {
	t.Helper()
	var p models.UserProgress
	require.NoError(t, s.DB.Where("external_user_id = ?", userID).First(&p).Error)
	return p
}

// seedStreak puts the user's wallet at streak days with the last claim ago.
func (s *testStack) seedStreak(t *testing.T, userID string, streak int, ago time.Duration) {
	t.Helper()
	_, err := s.Wallets.EnsureWallet(testContext(t), userID)
	require.NoError(t, err)
	last := s.Clock.Now().Add(-ago)
	require.NoError(t, s.DB.Model(&models.Wallet{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{"current_streak": streak, "last_claim_at": last}).Error)
}
