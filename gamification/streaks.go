// Package gamification holds the progression engine: the daily claim window,
// streak rewards and milestones, the level table, the achievement catalog and
// the session-scoped Coordinator that ties them together.
package gamification

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"sync"
	"time"
)

const (
	// BaseReward is the UselessBucks paid for any daily claim before multipliers.
	BaseReward = 10
	// MaxStreak caps stored streaks at one full year.
	MaxStreak = 365

	claimCooldown = 24 * time.Hour
	claimDeadline = 48 * time.Hour
)

// ClaimState is the position of a user inside the daily claim cycle.
type ClaimState string

const (
	ClaimStateFresh   ClaimState = "fresh"   // never claimed
	ClaimStateLocked  ClaimState = "locked"  // claimed less than 24h ago
	ClaimStateOpen    ClaimState = "open"    // 24h..48h, streak continues
	ClaimStateExpired ClaimState = "expired" // over 48h, streak resets
)

// StreakStatus is the projection of a stored streak at a given instant.
type StreakStatus struct {
	State           ClaimState `json:"state"`
	CurrentStreak   int        `json:"current_streak"`
	CanClaim        bool       `json:"can_claim"`
	NextClaimAt     *time.Time `json:"next_claim_at"`
	HoursUntilReset float64    `json:"hours_until_reset"`
}

// GetStreakStatus decides whether a claim is allowed at now. It is read-only:
// an Expired status reports a zero streak but nothing is persisted until a
// claim is actually made.
func GetStreakStatus(lastClaimAt *time.Time, currentStreak int, now time.Time) StreakStatus {
	if lastClaimAt == nil {
		return StreakStatus{
			State:           ClaimStateFresh,
			CurrentStreak:   0,
			CanClaim:        true,
			HoursUntilReset: claimDeadline.Hours(),
		}
	}

	elapsed := now.Sub(*lastClaimAt)
	untilReset := math.Max(0, (claimDeadline - elapsed).Hours())

	if elapsed < claimCooldown {
		next := lastClaimAt.Add(claimCooldown)
		return StreakStatus{
			State:           ClaimStateLocked,
			CurrentStreak:   currentStreak,
			CanClaim:        false,
			NextClaimAt:     &next,
			HoursUntilReset: untilReset,
		}
	}

	if elapsed <= claimDeadline {
		return StreakStatus{
			State:           ClaimStateOpen,
			CurrentStreak:   currentStreak,
			CanClaim:        true,
			HoursUntilReset: untilReset,
		}
	}

	return StreakStatus{
		State:           ClaimStateExpired,
		CurrentStreak:   0,
		CanClaim:        true,
		HoursUntilReset: claimDeadline.Hours(),
	}
}

// NextStreak is the streak value stored after a successful claim made while
// status was observed.
func NextStreak(status StreakStatus) int {
	next := status.CurrentStreak + 1
	if next > MaxStreak {
		return MaxStreak
	}
	return next
}

// multiplierTiers is ordered descending by threshold.
var multiplierTiers = []struct {
	threshold  int
	multiplier float64
}{
	{100, 5},
	{60, 4},
	{30, 3},
	{14, 2.5},
	{7, 2},
	{3, 1.5},
}

// StreakMultiplier returns the multiplier of the largest tier at or below streak.
func StreakMultiplier(streak int) float64 {
	for _, tier := range multiplierTiers {
		if streak >= tier.threshold {
			return tier.multiplier
		}
	}
	return 1
}

// Milestone is a fixed streak length that pays a one-time bonus.
type Milestone struct {
	Days            int             `json:"days"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	BonusReward     int64           `json:"bonus_reward"`
	AchievementType AchievementType `json:"achievement_type"`
}

// Milestones are ordered ascending by Days.
var Milestones = []Milestone{
	{Days: 7, Name: "Week Warrior", Description: "You've wasted a whole week!", BonusReward: 50, AchievementType: AchievementStreak7},
	{Days: 30, Name: "Monthly Menace", Description: "A month of mayhem", BonusReward: 200, AchievementType: AchievementStreak30},
	{Days: 60, Name: "Bi-Monthly Beast", Description: "Two months of dedication to nothing", BonusReward: 500, AchievementType: AchievementStreak60},
	{Days: 100, Name: "Centurion of Chaos", Description: "100 days. No turning back.", BonusReward: 1000, AchievementType: AchievementStreak100},
	{Days: 365, Name: "Annual Anomaly", Description: "A full year?! Touch grass.", BonusReward: 5000, AchievementType: AchievementStreak365},
}

var streakMessages = map[int]string{
	1:   "Showing up is half the battle. The other half is spending money.",
	2:   "Back for more? Your dedication to uselessness is admirable.",
	3:   "Three days! You're building habits. Bad ones, but habits nonetheless.",
	4:   "Four days of commitment. Your future therapist will hear about this.",
	5:   "Five days! Almost a work week of pure nonsense.",
	6:   "Six days strong. Tomorrow is the big one!",
	7:   "A week of dedication! Your wallet weeps.",
	14:  "Two weeks! You could have learned a new skill. Instead, you're here.",
	21:  "Three weeks! Science says habits form in 21 days. You're officially addicted.",
	30:  "30 days?! You might have a problem. Here's more fake money.",
	45:  "45 days. Your commitment to nothing is genuinely impressive.",
	60:  "Two months! You've outlasted most New Year's resolutions.",
	75:  "75 days! You're three-quarters of the way to absolute madness.",
	90:  "90 days! A full quarter of the year spent clicking a button.",
	100: "100 days. You're officially obsessed. Seek help. But first, here's a bonus.",
	150: "150 days! You've spent almost half a year doing this. Incredible.",
	200: "200 days! Your persistence is both impressive and concerning.",
	250: "250 days! You can see the finish line. It's just as meaningless as the start.",
	300: "300 days! 65 more days until you've achieved absolutely nothing for a year.",
	365: "365 DAYS! A FULL YEAR! You've peaked. It's all downhill from here. Touch grass.",
}

// FallbackMessages are used for streak days without a canned message.
var FallbackMessages = []string{
	"Another day, another fake dollar. Living the dream!",
	"You came back! The void acknowledges your presence.",
	"Consistency is key. Key to what? Who knows!",
	"Your streak grows stronger. Your bank account? Not so much.",
	"The UselessBucks flow through you. Feel their worthlessness.",
	"Impressive! Your commitment to meaninglessness is unmatched.",
	"Day after day, you return. The algorithm is pleased.",
	"Your streak is your legacy. A legacy of clicking buttons.",
	"The more you claim, the more meaningless it becomes. Keep going!",
	"You're not just a user. You're a streak machine.",
}

// RewardOutcome is produced once per claim and never stored as-is.
type RewardOutcome struct {
	BaseReward   int64      `json:"base_reward"`
	Multiplier   float64    `json:"multiplier"`
	TotalReward  int64      `json:"total_reward"`
	Message      string     `json:"message"`
	MilestoneHit *Milestone `json:"milestone_hit,omitempty"`
}

// RewardCalculator computes streak rewards. The random source only picks
// fallback messages.
type RewardCalculator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRewardCalculator(src rand.Source) *RewardCalculator {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &RewardCalculator{rng: rand.New(src)}
}

// Calculate returns the reward for a claim that brings the stored streak to
// streak.
func (c *RewardCalculator) Calculate(streak int) RewardOutcome {
	multiplier := StreakMultiplier(streak)
	total := int64(math.Round(BaseReward * multiplier))

	message, ok := streakMessages[streak]
	if !ok {
		c.mu.Lock()
		message = FallbackMessages[c.rng.Intn(len(FallbackMessages))]
		c.mu.Unlock()
	}
	if multiplier > 1 {
		message += fmt.Sprintf(" (%sx streak bonus!)", strconv.FormatFloat(multiplier, 'f', -1, 64))
	}

	out := RewardOutcome{
		BaseReward:  BaseReward,
		Multiplier:  multiplier,
		TotalReward: total,
		Message:     message,
	}
	if m := milestoneAt(streak); m != nil {
		out.TotalReward += m.BonusReward
		out.MilestoneHit = m
	}
	return out
}

var defaultCalculator = NewRewardCalculator(nil)

// CalculateStreakReward uses a process-wide calculator.
func CalculateStreakReward(streak int) RewardOutcome {
	return defaultCalculator.Calculate(streak)
}

func milestoneAt(streak int) *Milestone {
	for i := range Milestones {
		if Milestones[i].Days == streak {
			m := Milestones[i]
			return &m
		}
	}
	return nil
}

// NextMilestone returns the first milestone strictly beyond streak, or nil.
func NextMilestone(streak int) *Milestone {
	for i := range Milestones {
		if Milestones[i].Days > streak {
			m := Milestones[i]
			return &m
		}
	}
	return nil
}

// MilestoneProgress reports how far a streak is through its current
// milestone window (previous.Days, next.Days]. On the milestone day itself the
// window is complete (100); the day after, the basis moves to the next window.
type MilestoneProgress struct {
	Progress          int        `json:"progress"`
	DaysToNext        int        `json:"days_to_next"`
	NextMilestone     *Milestone `json:"next_milestone"`
	PreviousMilestone *Milestone `json:"previous_milestone"`
}

func GetMilestoneProgress(streak int) MilestoneProgress {
	idx := -1
	for i := range Milestones {
		if Milestones[i].Days >= streak {
			idx = i
			break
		}
	}
	// Reaching the last milestone leaves none remaining.
	if last := len(Milestones) - 1; idx == last && streak == Milestones[last].Days {
		idx = -1
	}

	if idx < 0 {
		out := MilestoneProgress{Progress: 100}
		if n := len(Milestones); n > 0 {
			last := Milestones[n-1]
			out.PreviousMilestone = &last
		}
		return out
	}

	next := Milestones[idx]
	start := 0
	var prev *Milestone
	if idx > 0 {
		p := Milestones[idx-1]
		prev = &p
		start = p.Days
	}

	progress := int(math.Round(float64(streak-start) / float64(next.Days-start) * 100))
	progress = max(0, min(100, progress))

	return MilestoneProgress{
		Progress:          progress,
		DaysToNext:        next.Days - streak,
		NextMilestone:     &next,
		PreviousMilestone: prev,
	}
}

// FormatTimeUntilClaim renders the countdown shown next to a locked claim button.
func FormatTimeUntilClaim(nextClaimAt, now time.Time) string {
	diff := nextClaimAt.Sub(now)
	if diff <= 0 {
		return "Available now!"
	}

	hours := int(diff / time.Hour)
	minutes := int(diff % time.Hour / time.Minute)
	seconds := int(diff % time.Minute / time.Second)

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
