package gamification

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// UserProgress is the level view the UI renders. Everything except TotalXP is
// derived from TotalXP through the LevelTable.
type UserProgress struct {
	TotalXP        int64  `json:"total_xp"`
	CurrentLevel   int    `json:"current_level"`
	CurrentLevelXP int64  `json:"current_level_xp"`
	XPToNextLevel  int64  `json:"xp_to_next_level"`
	Title          string `json:"title"`
	NextTitle      string `json:"next_title"`
}

// WalletInfo combines the stored streak with the balance.
type WalletInfo struct {
	Balance       decimal.Decimal `json:"balance"`
	LastClaimAt   *time.Time      `json:"last_claim_at"`
	CurrentStreak int             `json:"current_streak"`
	CanClaim      bool            `json:"can_claim"`
}

type UnlockedAchievement struct {
	AchievementType AchievementType `json:"achievement_type"`
	UnlockedAt      time.Time       `json:"unlocked_at"`
}

// Snapshot seeds a Coordinator from stored state.
type Snapshot struct {
	UserID        string
	TotalXP       int64
	Balance       decimal.Decimal
	LastClaimAt   *time.Time
	CurrentStreak int
	Unlocked      []UnlockedAchievement
}

// LevelUpState is the sticky celebration overlay. Data holds the highest level
// reached since the last dismissal.
type LevelUpState struct {
	Show bool     `json:"show"`
	Data *LevelUp `json:"data"`
}

type CoordinatorConfig struct {
	Clock    clockwork.Clock
	Endpoint ClaimEndpoint
	Notifier Notifier
	Levels   *LevelTable
	Registry *Registry
	Logger   *zap.SugaredLogger
}

// Coordinator is the session-scoped owner of one user's progress, wallet and
// unlocked achievements. A claim is at-most-once: a second claim while the
// first is still out is rejected locally.
type Coordinator struct {
	userID   string
	clock    clockwork.Clock
	endpoint ClaimEndpoint
	notifier Notifier
	levels   *LevelTable
	registry *Registry
	log      *zap.SugaredLogger

	mu            sync.Mutex
	totalXP       int64
	level         LevelInfo
	balance       decimal.Decimal
	lastClaimAt   *time.Time
	currentStreak int
	unlocked      []UnlockedAchievement
	unlockedSet   map[AchievementType]struct{}
	showLevelUp   bool
	levelUpData   *LevelUp
	claimInFlight bool
	closed        bool
}

func NewCoordinator(cfg CoordinatorConfig, snap Snapshot) *Coordinator {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = NopNotifier{}
	}
	if cfg.Levels == nil {
		cfg.Levels = NewLevelTable()
	}
	if cfg.Registry == nil {
		cfg.Registry = DefaultRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}

	c := &Coordinator{
		userID:        snap.UserID,
		clock:         cfg.Clock,
		endpoint:      cfg.Endpoint,
		notifier:      cfg.Notifier,
		levels:        cfg.Levels,
		registry:      cfg.Registry,
		log:           cfg.Logger.With("user_id", snap.UserID),
		totalXP:       max(0, snap.TotalXP),
		balance:       snap.Balance,
		lastClaimAt:   snap.LastClaimAt,
		currentStreak: snap.CurrentStreak,
		unlockedSet:   make(map[AchievementType]struct{}, len(snap.Unlocked)),
	}
	c.level = c.levels.LevelInfo(c.totalXP)
	for _, u := range snap.Unlocked {
		if _, dup := c.unlockedSet[u.AchievementType]; dup {
			continue
		}
		c.unlockedSet[u.AchievementType] = struct{}{}
		c.unlocked = append(c.unlocked, u)
	}
	return c
}

func (c *Coordinator) UserID() string { return c.userID }

func (c *Coordinator) Progress() UserProgress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progressLocked()
}

func (c *Coordinator) progressLocked() UserProgress {
	return UserProgress{
		TotalXP:        c.totalXP,
		CurrentLevel:   c.level.Level,
		CurrentLevelXP: c.level.CurrentLevelXP,
		XPToNextLevel:  c.level.XPToNextLevel,
		Title:          c.level.Title,
		NextTitle:      c.level.NextTitle,
	}
}

// Wallet projects the stored streak onto the current time.
func (c *Coordinator) Wallet() WalletInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.walletLocked()
}

func (c *Coordinator) walletLocked() WalletInfo {
	status := GetStreakStatus(c.lastClaimAt, c.currentStreak, c.clock.Now())
	return WalletInfo{
		Balance:       c.balance,
		LastClaimAt:   c.lastClaimAt,
		CurrentStreak: status.CurrentStreak,
		CanClaim:      status.CanClaim && !c.claimInFlight,
	}
}

func (c *Coordinator) StreakStatus() StreakStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return GetStreakStatus(c.lastClaimAt, c.currentStreak, c.clock.Now())
}

func (c *Coordinator) Unlocked() []UnlockedAchievement {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.unlocked)
}

func (c *Coordinator) IsUnlocked(id AchievementType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.unlockedSet[id]
	return ok
}

func (c *Coordinator) LevelUpState() LevelUpState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := LevelUpState{Show: c.showLevelUp}
	if c.levelUpData != nil {
		d := *c.levelUpData
		st.Data = &d
	}
	return st
}

// DismissLevelUp clears the celebration overlay. It is the only way to clear it.
func (c *Coordinator) DismissLevelUp() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showLevelUp = false
	c.levelUpData = nil
}

// AddXP grants amount XP and returns the level-ups it caused.
func (c *Coordinator) AddXP(amount int64, source string) []LevelUp {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addXPLocked(amount, source)
}

func (c *Coordinator) addXPLocked(amount int64, source string) []LevelUp {
	if amount <= 0 || c.closed {
		return nil
	}

	newTotal := c.totalXP + amount
	info, ups := c.levels.AddXP(c.totalXP, amount)
	if err := c.levels.Validate(newTotal, info); err != nil {
		panic(err)
	}

	c.totalXP = newTotal
	c.level = info
	c.log.Debugw("🎮 XP added", "amount", amount, "source", source, "total_xp", newTotal, "level", info.Level)

	if len(ups) == 0 {
		return nil
	}
	last := ups[len(ups)-1]
	c.showLevelUp = true
	c.levelUpData = &last
	for _, up := range ups {
		c.log.Infow("⬆️ Level up", "level", up.Level, "title", up.Title)
		c.notifier.LevelUpShown(c.userID, up)
	}
	return ups
}

// UnlockAchievement records id and grants its XP and UselessBucks. Unlocking
// an id that is already unlocked is a no-op and returns false.
func (c *Coordinator) UnlockAchievement(id AchievementType) (bool, error) {
	def, err := c.registry.Get(id)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, ErrCoordinatorClosed
	}
	if !c.recordUnlockLocked(def.ID) {
		return false, nil
	}
	c.notifier.ShowAchievementToast(c.userID, ToastFor(def))
	c.creditLocked(def.UselessBucksReward)
	if def.XPReward > 0 {
		c.addXPLocked(def.XPReward, "Achievement: "+def.Title)
	}
	return true, nil
}

// UnlockMultipleAchievements applies UnlockAchievement's idempotency per item
// and shows a single batched toast. Unknown ids fail the whole batch before
// anything is recorded. It returns the ids that were newly unlocked.
func (c *Coordinator) UnlockMultipleAchievements(ids []AchievementType) ([]AchievementType, error) {
	defs := make([]AchievementDefinition, 0, len(ids))
	for _, id := range ids {
		def, err := c.registry.Get(id)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrCoordinatorClosed
	}

	var (
		fresh  []AchievementType
		toasts []AchievementToast
		xp     int64
		bucks  int64
	)
	for _, def := range defs {
		if !c.recordUnlockLocked(def.ID) {
			continue
		}
		fresh = append(fresh, def.ID)
		toasts = append(toasts, ToastFor(def))
		xp += def.XPReward
		bucks += def.UselessBucksReward
	}
	if len(toasts) > 0 {
		c.notifier.ShowMultipleAchievementsToast(c.userID, toasts)
	}
	c.creditLocked(bucks)
	if xp > 0 {
		c.addXPLocked(xp, "Multiple achievements unlocked")
	}
	return fresh, nil
}

func (c *Coordinator) creditLocked(bucks int64) {
	if bucks > 0 {
		c.balance = c.balance.Add(decimal.NewFromInt(bucks))
	}
}

func (c *Coordinator) recordUnlockLocked(id AchievementType) bool {
	if _, ok := c.unlockedSet[id]; ok {
		return false
	}
	c.unlockedSet[id] = struct{}{}
	c.unlocked = append(c.unlocked, UnlockedAchievement{AchievementType: id, UnlockedAt: c.clock.Now()})
	return true
}

// ClaimDailyReward performs the daily claim through the endpoint. Local state
// changes only after the endpoint confirms success; on any failure it is left
// as it was.
func (c *Coordinator) ClaimDailyReward(ctx context.Context) (*ClaimResult, error) {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return nil, ErrCoordinatorClosed
	case c.claimInFlight:
		c.mu.Unlock()
		return nil, ErrClaimInFlight
	case c.endpoint == nil:
		c.mu.Unlock()
		return nil, &RemoteClaimError{Message: "no claim endpoint configured"}
	}
	status := GetStreakStatus(c.lastClaimAt, c.currentStreak, c.clock.Now())
	if !status.CanClaim {
		c.mu.Unlock()
		return nil, &InvalidWindowStateError{NextClaimAt: *status.NextClaimAt}
	}
	c.claimInFlight = true
	c.mu.Unlock()

	result, err := c.endpoint.ClaimDaily(ctx, c.userID)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.claimInFlight = false

	if err != nil {
		c.log.Warnw("❌ [CLAIM] endpoint call failed", "error", err)
		var windowErr *InvalidWindowStateError
		if errors.As(err, &windowErr) {
			return nil, err
		}
		var remoteErr *RemoteClaimError
		if errors.As(err, &remoteErr) {
			return nil, err
		}
		return nil, &RemoteClaimError{Cause: err}
	}
	if result == nil || !result.Success {
		msg := "claim rejected"
		if result != nil && result.Error != "" {
			msg = result.Error
		}
		if result != nil && result.NextClaimAt != nil {
			return nil, &InvalidWindowStateError{NextClaimAt: *result.NextClaimAt}
		}
		return nil, &RemoteClaimError{Message: msg}
	}
	if c.closed {
		c.log.Infow("session closed before claim completed, discarding result", "streak", result.Streak)
		return nil, ErrCoordinatorClosed
	}

	now := c.clock.Now()
	c.balance = result.NewBalance
	c.lastClaimAt = &now
	c.currentStreak = result.Streak
	c.log.Infow("💰 Daily reward claimed", "streak", result.Streak, "amount", result.Amount, "balance", result.NewBalance.StringFixed(2))

	c.addXPLocked(DailyClaimXP, "Daily claim")

	if m := result.MilestoneHit; m != nil {
		if def, err := c.registry.Get(m.AchievementType); err == nil && c.recordUnlockLocked(def.ID) {
			c.notifier.ShowAchievementToast(c.userID, ToastFor(def))
			if def.XPReward > 0 {
				c.addXPLocked(def.XPReward, fmt.Sprintf("Milestone: %s", m.Name))
			}
		}
	}
	return result, nil
}

// Close marks the session dead. In-flight claims still complete remotely but
// their results are not applied.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *Coordinator) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
