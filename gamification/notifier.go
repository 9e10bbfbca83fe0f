package gamification

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// AchievementToast is the payload shown when an achievement unlocks.
type AchievementToast struct {
	ID                 AchievementType     `json:"id"`
	Title              string              `json:"title"`
	Description        string              `json:"description"`
	Emoji              string              `json:"emoji"`
	Rarity             int                 `json:"rarity"`
	XPReward           int64               `json:"xp_reward"`
	UselessBucksReward int64               `json:"useless_bucks_reward"`
	Category           AchievementCategory `json:"category"`
	SharePath          string              `json:"share_path"`
}

func ToastFor(d AchievementDefinition) AchievementToast {
	return AchievementToast{
		ID:                 d.ID,
		Title:              d.Title,
		Description:        d.Description,
		Emoji:              d.Emoji,
		Rarity:             d.Rarity,
		XPReward:           d.XPReward,
		UselessBucksReward: d.UselessBucksReward,
		Category:           d.Category,
		SharePath:          d.SharePath(),
	}
}

// Notifier receives one call per unlock event. Implementations must not block.
type Notifier interface {
	ShowAchievementToast(userID string, toast AchievementToast)
	ShowMultipleAchievementsToast(userID string, toasts []AchievementToast)
	LevelUpShown(userID string, up LevelUp)
}

// NopNotifier discards everything.
type NopNotifier struct{}

func (NopNotifier) ShowAchievementToast(string, AchievementToast)            {}
func (NopNotifier) ShowMultipleAchievementsToast(string, []AchievementToast) {}
func (NopNotifier) LevelUpShown(string, LevelUp)                             {}

// ClaimResult is what the claim endpoint reports back. The endpoint is the
// authority on balance and streak.
type ClaimResult struct {
	Success      bool            `json:"success"`
	NewBalance   decimal.Decimal `json:"newBalance"`
	Amount       int64           `json:"amount"`
	Streak       int             `json:"streak"`
	Multiplier   float64         `json:"multiplier"`
	Message      string          `json:"message,omitempty"`
	MilestoneHit *Milestone      `json:"milestoneHit,omitempty"`
	Error        string          `json:"error,omitempty"`
	NextClaimAt  *time.Time      `json:"nextClaimAt,omitempty"`
}

// ClaimEndpoint performs the daily claim for userID.
type ClaimEndpoint interface {
	ClaimDaily(ctx context.Context, userID string) (*ClaimResult, error)
}
