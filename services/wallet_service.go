package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"useless-progression/gamification"
	"useless-progression/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WalletService is the authoritative daily-claim endpoint. It also satisfies
// gamification.ClaimEndpoint so session coordinators can claim in-process.
type WalletService struct {
	DB           *gorm.DB
	Progression  *ProgressionService
	Achievements *AchievementService
	Lock         ClaimLock
	Rewards      *gamification.RewardCalculator
	Clock        clockwork.Clock
	Log          *zap.SugaredLogger
}

var _ gamification.ClaimEndpoint = (*WalletService)(nil)

func NewWalletService(db *gorm.DB, progression *ProgressionService, achievements *AchievementService, lock ClaimLock, clock clockwork.Clock, log *zap.SugaredLogger) *WalletService {
	if lock == nil {
		lock = NoopClaimLock{}
	}
	return &WalletService{
		DB:           db,
		Progression:  progression,
		Achievements: achievements,
		Lock:         lock,
		Rewards:      gamification.NewRewardCalculator(nil),
		Clock:        clock,
		Log:          log,
	}
}

// ClaimStatus is the read-only view served by GET /wallet/claim-daily.
type ClaimStatus struct {
	Balance         decimal.Decimal `json:"balance"`
	CurrentStreak   int             `json:"currentStreak"`
	CanClaim        bool            `json:"canClaim"`
	NextClaimAt     *time.Time      `json:"nextClaimAt"`
	HoursUntilReset float64         `json:"hoursUntilReset"`
	PotentialReward int64           `json:"potentialReward"`
	Multiplier      float64         `json:"multiplier"`
	LastClaimAt     *time.Time      `json:"lastClaimAt"`
}

// EnsureWallet creates the user's wallet with the signup balance if missing.
func (s *WalletService) EnsureWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	var w *models.Wallet
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		w, err = ensureWallet(tx, userID)
		return err
	})
	return w, err
}

func ensureWallet(tx *gorm.DB, userID string) (*models.Wallet, error) {
	w := models.Wallet{
		ID:      uuid.NewString(),
		UserID:  userID,
		Balance: models.DefaultWalletBalance,
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&w)
	if res.Error != nil {
		return nil, fmt.Errorf("create wallet for %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 1 {
		if err := tx.Create(&models.WalletTransaction{
			ID:          uuid.NewString(),
			UserID:      userID,
			Amount:      models.DefaultWalletBalance,
			Type:        models.TransactionSignupBonus,
			Description: "Welcome bonus",
		}).Error; err != nil {
			return nil, fmt.Errorf("record signup bonus for %s: %w", userID, err)
		}
	}

	var stored models.Wallet
	if err := tx.Where("user_id = ?", userID).First(&stored).Error; err != nil {
		return nil, fmt.Errorf("load wallet for %s: %w", userID, err)
	}
	return &stored, nil
}

// creditWallet adds amount to the balance and appends a ledger row.
func creditWallet(tx *gorm.DB, userID string, amount decimal.Decimal, typ models.TransactionType, description string) error {
	if _, err := ensureWallet(tx, userID); err != nil {
		return err
	}
	if err := tx.Model(&models.Wallet{}).
		Where("user_id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", amount)).Error; err != nil {
		return fmt.Errorf("credit wallet for %s: %w", userID, err)
	}
	return tx.Create(&models.WalletTransaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      amount,
		Type:        typ,
		Description: description,
	}).Error
}

// Status reports the claim window and the reward the next claim would pay.
func (s *WalletService) Status(ctx context.Context, userID string) (*ClaimStatus, error) {
	w, err := s.EnsureWallet(ctx, userID)
	if err != nil {
		return nil, err
	}

	st := gamification.GetStreakStatus(w.LastClaimAt, w.CurrentStreak, s.Clock.Now())
	next := st.CurrentStreak
	if st.CanClaim {
		next = gamification.NextStreak(st)
	}
	potential := s.Rewards.Calculate(next)

	return &ClaimStatus{
		Balance:         w.Balance,
		CurrentStreak:   st.CurrentStreak,
		CanClaim:        st.CanClaim,
		NextClaimAt:     st.NextClaimAt,
		HoursUntilReset: st.HoursUntilReset,
		PotentialReward: potential.TotalReward,
		Multiplier:      potential.Multiplier,
		LastClaimAt:     w.LastClaimAt,
	}, nil
}

// ClaimDaily validates the claim window, credits the streak reward and
// records it. A claim inside the 24h cooldown returns
// *gamification.InvalidWindowStateError and changes nothing.
func (s *WalletService) ClaimDaily(ctx context.Context, userID string) (*gamification.ClaimResult, error) {
	release, err := s.Lock.Acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.Log.Warnw("⚠️ [CLAIM] failed to release claim lock", "user_id", userID, "error", err)
		}
	}()

	var result *gamification.ClaimResult
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ensureWallet(tx, userID); err != nil {
			return err
		}

		var w models.Wallet
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			First(&w).Error; err != nil {
			return fmt.Errorf("load wallet for %s: %w", userID, err)
		}

		now := s.Clock.Now()
		status := gamification.GetStreakStatus(w.LastClaimAt, w.CurrentStreak, now)
		if !status.CanClaim {
			return &gamification.InvalidWindowStateError{NextClaimAt: *status.NextClaimAt}
		}

		newStreak := gamification.NextStreak(status)
		reward := s.Rewards.Calculate(newStreak)
		amount := decimal.NewFromInt(reward.TotalReward)

		w.Balance = w.Balance.Add(amount)
		w.CurrentStreak = newStreak
		w.LastClaimAt = &now
		if err := tx.Save(&w).Error; err != nil {
			return fmt.Errorf("update wallet for %s: %w", userID, err)
		}

		if err := tx.Create(&models.WalletTransaction{
			ID:          uuid.NewString(),
			UserID:      userID,
			Amount:      amount,
			Type:        models.TransactionDailyClaim,
			Description: claimDescription(newStreak, reward),
		}).Error; err != nil {
			return fmt.Errorf("record claim for %s: %w", userID, err)
		}

		if m := reward.MilestoneHit; m != nil {
			if _, err := s.Achievements.Unlock(ctx, tx, userID, m.AchievementType); err != nil {
				return err
			}
		}
		if _, _, err := s.Progression.AwardXP(ctx, tx, userID, gamification.DailyClaimXP, "Daily claim"); err != nil {
			return err
		}

		if err := tx.Where("user_id = ?", userID).First(&w).Error; err != nil {
			return fmt.Errorf("reload wallet for %s: %w", userID, err)
		}

		result = &gamification.ClaimResult{
			Success:      true,
			NewBalance:   w.Balance,
			Amount:       reward.TotalReward,
			Streak:       newStreak,
			Multiplier:   reward.Multiplier,
			Message:      reward.Message,
			MilestoneHit: reward.MilestoneHit,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Log.Infow("💰 [CLAIM] daily reward claimed",
		"user_id", userID, "streak", result.Streak, "amount", result.Amount, "balance", result.NewBalance.StringFixed(2))
	return result, nil
}

func claimDescription(streak int, reward gamification.RewardOutcome) string {
	desc := fmt.Sprintf("Day %d streak claim", streak)
	if reward.Multiplier > 1 {
		desc += " (" + strconv.FormatFloat(reward.Multiplier, 'f', -1, 64) + "x bonus)"
	}
	if reward.MilestoneHit != nil {
		desc += " - " + reward.MilestoneHit.Name + " milestone!"
	}
	return desc
}

// CountLapsedStreaks returns how many wallets hold a streak whose last claim
// is past the 48h deadline. Stored streaks are left alone: only a claim resets
// one, and reads already project a lapsed streak to 0.
func (s *WalletService) CountLapsedStreaks(ctx context.Context) (int64, error) {
	cutoff := s.Clock.Now().Add(-48 * time.Hour)
	var n int64
	err := s.DB.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("current_streak > 0 AND last_claim_at < ?", cutoff).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count lapsed streaks: %w", err)
	}
	return n, nil
}

// Transactions returns the user's most recent ledger rows.
func (s *WalletService) Transactions(ctx context.Context, userID string, limit int) ([]models.WalletTransaction, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var rows []models.WalletTransaction
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
