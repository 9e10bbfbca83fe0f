package gamification

import (
	"fmt"
	"math/rand"

	"github.com/shopspring/decimal"
)

// levelBand: every level from the previous band's end+1 up to UpTo costs
// XPPerLevel to complete. The last band is open-ended (UpTo == 0).
type levelBand struct {
	UpTo       int
	XPPerLevel int64
}

var defaultBands = []levelBand{
	{UpTo: 10, XPPerLevel: 100},
	{UpTo: 25, XPPerLevel: 250},
	{UpTo: 50, XPPerLevel: 500},
	{UpTo: 0, XPPerLevel: 1000},
}

// titleBand: levels >= MinLevel carry Title, ordered descending by MinLevel.
type titleBand struct {
	MinLevel int
	Title    string
}

var defaultTitles = []titleBand{
	{100, "The Useless One"},
	{91, "Interdimensional Impulse Buyer"},
	{76, "Cosmic Collector"},
	{61, "Transcendent Shopper"},
	{51, "Mythical Money Pit"},
	{41, "Legendary Consumer"},
	{31, "Grand Waster of Resources"},
	{21, "Master of Bad Decisions"},
	{16, "Impulse Champion"},
	{11, "Certified Spender"},
	{6, "Aspiring Hoarder"},
	{1, "Useless Novice"},
}

// TopTitleLevel is the level at which the title table is exhausted.
const TopTitleLevel = 100

// MilestoneLevels get special visual treatment in the UI.
var MilestoneLevels = []int{10, 25, 50, 75, 100}

// LevelInfo is the derived view of a total XP value.
type LevelInfo struct {
	Level          int     `json:"level"`
	CurrentLevelXP int64   `json:"current_level_xp"`
	XPToNextLevel  int64   `json:"xp_to_next_level"`
	Progress       float64 `json:"progress"`
	Title          string  `json:"title"`
	NextTitle      string  `json:"next_title"`
}

// LevelUp is fired once per level threshold crossed.
type LevelUp struct {
	Level int    `json:"new_level"`
	Title string `json:"new_title"`
}

// LevelTable maps XP to levels and titles. Levels are uncapped: past the last
// band each level costs the same, so there is always a next threshold.
type LevelTable struct {
	bands  []levelBand
	titles []titleBand
}

func NewLevelTable() *LevelTable {
	return &LevelTable{bands: defaultBands, titles: defaultTitles}
}

// XPForLevel is the XP needed to complete level (go from level to level+1).
func (t *LevelTable) XPForLevel(level int) int64 {
	if level < 1 {
		level = 1
	}
	for _, b := range t.bands {
		if b.UpTo == 0 || level <= b.UpTo {
			return b.XPPerLevel
		}
	}
	return t.bands[len(t.bands)-1].XPPerLevel
}

// TotalXPForLevel is the cumulative XP at which level starts.
func (t *LevelTable) TotalXPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	var total int64
	from := 1
	for _, b := range t.bands {
		to := level - 1
		if b.UpTo != 0 && b.UpTo < to {
			to = b.UpTo
		}
		if to >= from {
			total += int64(to-from+1) * b.XPPerLevel
		}
		if b.UpTo == 0 || b.UpTo >= level-1 {
			break
		}
		from = b.UpTo + 1
	}
	return total
}

// LevelFromXP walks the bands instead of the levels so very large totals stay cheap.
func (t *LevelTable) LevelFromXP(totalXP int64) int {
	if totalXP <= 0 {
		return 1
	}
	level := 1
	remaining := totalXP
	for _, b := range t.bands {
		if b.UpTo == 0 {
			return level + int(remaining/b.XPPerLevel)
		}
		span := int64(b.UpTo-level+1) * b.XPPerLevel
		if remaining < span {
			return level + int(remaining/b.XPPerLevel)
		}
		remaining -= span
		level = b.UpTo + 1
	}
	return level
}

func (t *LevelTable) Title(level int) string {
	for _, tb := range t.titles {
		if level >= tb.MinLevel {
			return tb.Title
		}
	}
	return t.titles[len(t.titles)-1].Title
}

// LevelInfo derives the full level view. At the top title band NextTitle
// equals Title.
func (t *LevelTable) LevelInfo(totalXP int64) LevelInfo {
	if totalXP < 0 {
		totalXP = 0
	}
	level := t.LevelFromXP(totalXP)
	current := totalXP - t.TotalXPForLevel(level)
	need := t.XPForLevel(level)

	return LevelInfo{
		Level:          level,
		CurrentLevelXP: current,
		XPToNextLevel:  need,
		Progress:       min(100, float64(current)/float64(need)*100),
		Title:          t.Title(level),
		NextTitle:      t.Title(level + 1),
	}
}

// AddXP returns the level view after adding amount and one LevelUp per
// threshold crossed, in ascending order.
func (t *LevelTable) AddXP(totalXP, amount int64) (LevelInfo, []LevelUp) {
	before := t.LevelFromXP(totalXP)
	if amount < 0 {
		amount = 0
	}
	info := t.LevelInfo(totalXP + amount)

	var ups []LevelUp
	for lvl := before + 1; lvl <= info.Level; lvl++ {
		ups = append(ups, LevelUp{Level: lvl, Title: t.Title(lvl)})
	}
	return info, ups
}

// Validate checks the invariants a LevelInfo must satisfy for totalXP. A
// failure means the table itself is wrong.
func (t *LevelTable) Validate(totalXP int64, info LevelInfo) error {
	switch {
	case info.Level < 1:
		return fmt.Errorf("%w: level %d below 1", ErrInconsistentXPState, info.Level)
	case info.XPToNextLevel <= 0:
		return fmt.Errorf("%w: non-positive xp to next level at level %d", ErrInconsistentXPState, info.Level)
	case info.CurrentLevelXP < 0 || info.CurrentLevelXP >= info.XPToNextLevel:
		return fmt.Errorf("%w: current level xp %d outside [0,%d)", ErrInconsistentXPState, info.CurrentLevelXP, info.XPToNextLevel)
	}
	if got := t.TotalXPForLevel(info.Level) + info.CurrentLevelXP; got != totalXP {
		return fmt.Errorf("%w: reconstructed %d xp, want %d", ErrInconsistentXPState, got, totalXP)
	}
	return nil
}

func IsMilestoneLevel(level int) bool {
	for _, l := range MilestoneLevels {
		if l == level {
			return true
		}
	}
	return false
}

// XPSource describes an XP-granting action for display.
type XPSource struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Amount      any    `json:"amount"` // int64 or a descriptive string
}

const (
	DailyClaimXP        int64 = 15
	ReviewXP            int64 = 25
	ReferralXP          int64 = 100
	ProfileCompletionXP int64 = 50
)

func XPSources() []XPSource {
	return []XPSource{
		{ID: "purchase", Name: "Purchase", Description: "Earn XP for every dollar spent on useless products", Amount: "10 XP per $1 spent"},
		{ID: "review", Name: "Write a Review", Description: "Share your thoughts on your useless purchases", Amount: ReviewXP},
		{ID: "daily_claim", Name: "Daily Claim", Description: "Log in daily to claim your free UselessBucks", Amount: DailyClaimXP},
		{ID: "achievement", Name: "Achievement Unlock", Description: "Unlock achievements for bonus XP", Amount: "10-500 XP (varies)"},
		{ID: "referral", Name: "Referral", Description: "Invite a friend to join the uselessness", Amount: ReferralXP},
		{ID: "profile_completion", Name: "Profile Completion", Description: "Complete your profile to earn bonus XP", Amount: ProfileCompletionXP},
	}
}

// PurchaseXP is 10 XP per whole unit spent, rounded down.
func PurchaseXP(amountSpent decimal.Decimal) int64 {
	if amountSpent.IsNegative() {
		return 0
	}
	return amountSpent.Mul(decimal.NewFromInt(10)).Floor().IntPart()
}

var levelUpMessages = []string{
	"You've achieved a new level of uselessness!",
	"Your commitment to wasting money is inspiring!",
	"Another step on your journey to financial ruin!",
	"Your shopping addiction is truly legendary!",
	"You've unlocked new heights of consumerism!",
	"Your wallet weeps, but your XP bar rejoices!",
	"Peak uselessness achieved! Or is there more?",
	"You're making progress! Progress towards what? We don't know!",
	"Your dedication to buying things you don't need is unmatched!",
	"Level up! Your bank account levels down!",
	"Congratulations! You've gotten better at being worse with money!",
	"New level unlocked! New regrets incoming!",
}

func LevelUpMessages() []string {
	return append([]string(nil), levelUpMessages...)
}

func LevelUpMessage(rng *rand.Rand) string {
	return levelUpMessages[rng.Intn(len(levelUpMessages))]
}
