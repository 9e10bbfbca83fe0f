package services

import (
	"errors"
	"testing"
	"time"

	"useless-progression/gamification"
	"useless-progression/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletService_EnsureWallet(t *testing.T) {
	s := newTestStack(t, nil)

	w, err := s.Wallets.EnsureWallet(testContext(t), "u1")
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(decimal.NewFromInt(1000)))

	_, err = s.Wallets.EnsureWallet(testContext(t), "u1")
	require.NoError(t, err)

	var bonuses int64
	s.DB.Model(&models.WalletTransaction{}).
		Where("user_id = ? AND type = ?", "u1", models.TransactionSignupBonus).
		Count(&bonuses)
	assert.Equal(t, int64(1), bonuses)
}

func TestWalletService_FirstClaim(t *testing.T) {
	s := newTestStack(t, nil)

	res, err := s.Wallets.ClaimDaily(testContext(t), "u1")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Streak)
	assert.Equal(t, int64(10), res.Amount)
	assert.Equal(t, 1.0, res.Multiplier)
	assert.Nil(t, res.MilestoneHit)
	assert.True(t, res.NewBalance.Equal(decimal.NewFromInt(1010)))

	w := s.wallet(t, "u1")
	assert.Equal(t, 1, w.CurrentStreak)
	require.NotNil(t, w.LastClaimAt)
	assert.True(t, w.LastClaimAt.Equal(refNow))
	assert.Equal(t, gamification.DailyClaimXP, s.progress(t, "u1").TotalXP)

	txs, err := s.Wallets.Transactions(testContext(t), "u1", 10)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	var claim models.WalletTransaction
	for _, tx := range txs {
		if tx.Type == models.TransactionDailyClaim {
			claim = tx
		}
	}
	assert.Equal(t, "Day 1 streak claim", claim.Description)
}

func TestWalletService_ClaimWindow(t *testing.T) {
	s := newTestStack(t, nil)

	_, err := s.Wallets.ClaimDaily(testContext(t), "u1")
	require.NoError(t, err)

	t.Run("second claim inside cooldown is rejected", func(t *testing.T) {
		s.Clock.Advance(5 * time.Hour)
		_, err := s.Wallets.ClaimDaily(testContext(t), "u1")

		var window *gamification.InvalidWindowStateError
		require.ErrorAs(t, err, &window)
		assert.True(t, window.NextClaimAt.Equal(refNow.Add(24*time.Hour)))
		assert.True(t, s.wallet(t, "u1").Balance.Equal(decimal.NewFromInt(1010)))
	})

	t.Run("claim inside the open window continues the streak", func(t *testing.T) {
		s.Clock.Advance(20 * time.Hour)
		res, err := s.Wallets.ClaimDaily(testContext(t), "u1")
		require.NoError(t, err)
		assert.Equal(t, 2, res.Streak)
	})

	t.Run("claim after the deadline restarts at one", func(t *testing.T) {
		s.Clock.Advance(49 * time.Hour)
		res, err := s.Wallets.ClaimDaily(testContext(t), "u1")
		require.NoError(t, err)
		assert.Equal(t, 1, res.Streak)
		assert.Equal(t, 1, s.wallet(t, "u1").CurrentStreak)
	})
}

func TestWalletService_MilestoneClaim(t *testing.T) {
	s := newTestStack(t, nil)
	s.seedStreak(t, "u1", 6, 30*time.Hour)

	res, err := s.Wallets.ClaimDaily(testContext(t), "u1")
	require.NoError(t, err)
	assert.Equal(t, 7, res.Streak)
	assert.Equal(t, int64(70), res.Amount)
	assert.Equal(t, 2.0, res.Multiplier)
	require.NotNil(t, res.MilestoneHit)
	assert.Equal(t, gamification.AchievementStreak7, res.MilestoneHit.AchievementType)
	assert.True(t, res.NewBalance.Equal(decimal.NewFromInt(1070)))

	rows, err := s.Achievements.ListForUser(testContext(t), "u1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, string(gamification.AchievementStreak7), rows[0].AchievementType)
	assert.Equal(t, gamification.DailyClaimXP+50, s.progress(t, "u1").TotalXP)

	var claim models.WalletTransaction
	require.NoError(t, s.DB.Where("user_id = ? AND type = ?", "u1", models.TransactionDailyClaim).First(&claim).Error)
	assert.Equal(t, "Day 7 streak claim (2x bonus) - Week Warrior milestone!", claim.Description)
}

func TestWalletService_StreakCapsAtMax(t *testing.T) {
	s := newTestStack(t, nil)
	s.seedStreak(t, "u1", gamification.MaxStreak, 25*time.Hour)

	res, err := s.Wallets.ClaimDaily(testContext(t), "u1")
	require.NoError(t, err)
	assert.Equal(t, gamification.MaxStreak, res.Streak)
}

func TestWalletService_Status(t *testing.T) {
	s := newTestStack(t, nil)

	st, err := s.Wallets.Status(testContext(t), "u1")
	require.NoError(t, err)
	assert.True(t, st.CanClaim)
	assert.Equal(t, 0, st.CurrentStreak)
	assert.Equal(t, int64(10), st.PotentialReward)
	assert.Nil(t, st.LastClaimAt)

	s.seedStreak(t, "u1", 2, 30*time.Hour)
	st, err = s.Wallets.Status(testContext(t), "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, st.CurrentStreak)
	assert.Equal(t, 1.5, st.Multiplier)
	assert.Equal(t, int64(15), st.PotentialReward)

	s.seedStreak(t, "u1", 2, time.Hour)
	st, err = s.Wallets.Status(testContext(t), "u1")
	require.NoError(t, err)
	assert.False(t, st.CanClaim)
	require.NotNil(t, st.NextClaimAt)
	assert.True(t, st.NextClaimAt.Equal(refNow.Add(23*time.Hour)))
}

func TestWalletService_ClaimLockContention(t *testing.T) {
	lock := &heldLock{}
	s := newTestStack(t, lock)

	_, err := s.Wallets.ClaimDaily(testContext(t), "u1")
	assert.True(t, errors.Is(err, gamification.ErrClaimInFlight))

	var wallets int64
	s.DB.Model(&models.Wallet{}).Count(&wallets)
	assert.Zero(t, wallets)
}

func TestWalletService_CountLapsedStreaks(t *testing.T) {
	s := newTestStack(t, nil)
	s.seedStreak(t, "lapsed", 12, 72*time.Hour)
	s.seedStreak(t, "active", 4, 30*time.Hour)

	n, err := s.Wallets.CountLapsedStreaks(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// Counting never touches the stored streak; the read side projects it.
	assert.Equal(t, 12, s.wallet(t, "lapsed").CurrentStreak)
	assert.Equal(t, 4, s.wallet(t, "active").CurrentStreak)
	st, err := s.Wallets.Status(testContext(t), "lapsed")
	require.NoError(t, err)
	assert.Equal(t, 0, st.CurrentStreak)
	assert.True(t, st.CanClaim)
}
