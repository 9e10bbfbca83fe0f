package gamification

import (
	"slices"
	"sort"

	"github.com/gosimple/slug"
)

// AchievementType identifies an entry in the achievement catalog. The set of
// valid values is closed: it is exactly the constants below.
type AchievementType string

const (
	AchievementFirstPurchase              AchievementType = "first_purchase"
	AchievementBigSpender                 AchievementType = "big_spender"
	AchievementReviewKing                 AchievementType = "review_king"
	AchievementEarlyAdopter               AchievementType = "early_adopter"
	AchievementCollector                  AchievementType = "collector"
	AchievementLoyalCustomer              AchievementType = "loyal_customer"
	AchievementCommitmentIssues           AchievementType = "commitment_issues"
	AchievementWindowShopper              AchievementType = "window_shopper"
	AchievementImpulseControl             AchievementType = "impulse_control"
	AchievementProfessionalProcrastinator AchievementType = "professional_procrastinator"
	AchievementWhaleWatcher               AchievementType = "whale_watcher"
	AchievementMidnightShopper            AchievementType = "midnight_shopper"
	AchievementSerialReturner             AchievementType = "serial_returner"
	AchievementReviewNovelist             AchievementType = "review_novelist"
	AchievementNitpicker                  AchievementType = "nitpicker"
	AchievementHypeBeast                  AchievementType = "hype_beast"
	AchievementIndecisive                 AchievementType = "indecisive"
	AchievementCompletionist              AchievementType = "completionist"
	AchievementGhost                      AchievementType = "ghost"
	AchievementSocialButterfly            AchievementType = "social_butterfly"
	AchievementBargainHunter              AchievementType = "bargain_hunter"
	AchievementStreak7                    AchievementType = "streak_7"
	AchievementStreak30                   AchievementType = "streak_30"
	AchievementStreak60                   AchievementType = "streak_60"
	AchievementStreak100                  AchievementType = "streak_100"
	AchievementStreak365                  AchievementType = "streak_365"
)

type AchievementCategory string

const (
	CategoryShopping   AchievementCategory = "shopping"
	CategoryEngagement AchievementCategory = "engagement"
	CategorySocial     AchievementCategory = "social"
	CategorySpecial    AchievementCategory = "special"
)

// AchievementDefinition is an immutable catalog entry. Rarity is the
// percentage (1-100) of users who typically hold it.
type AchievementDefinition struct {
	ID                 AchievementType     `json:"id"`
	Title              string              `json:"title"`
	Description        string              `json:"description"`
	Emoji              string              `json:"emoji"`
	Rarity             int                 `json:"rarity"`
	Requirement        string              `json:"requirement"`
	XPReward           int64               `json:"xp_reward"`
	UselessBucksReward int64               `json:"useless_bucks_reward"`
	Category           AchievementCategory `json:"category"`
}

// SharePath is the public page for the achievement.
func (d AchievementDefinition) SharePath() string {
	return "/account/achievements/" + slug.Make(d.Title)
}

type CategoryInfo struct {
	Label       string `json:"label"`
	Emoji       string `json:"emoji"`
	Description string `json:"description"`
}

var categoryInfo = map[AchievementCategory]CategoryInfo{
	CategoryShopping:   {Label: "Shopping Sins", Emoji: "🛍️", Description: "Achievements earned through questionable purchasing decisions"},
	CategoryEngagement: {Label: "Time Wasters", Emoji: "⏰", Description: "Achievements for spending way too much time on our site"},
	CategorySocial:     {Label: "Social Sabotage", Emoji: "👥", Description: "Achievements for dragging others into this mess"},
	CategorySpecial:    {Label: "Certified Unhinged", Emoji: "🎭", Description: "Special achievements for truly bizarre behavior"},
}

var achievementCatalog = []AchievementDefinition{
	{ID: AchievementFirstPurchase, Title: "Impulse Control Issues", Emoji: "🛒", Rarity: 78, XPReward: 50, UselessBucksReward: 10, Category: CategoryShopping,
		Requirement: "Make your first purchase",
		Description: "Congratulations on your first regrettable purchase! Your wallet's journey of suffering has officially begun."},
	{ID: AchievementBigSpender, Title: "Money Pit Pioneer", Emoji: "💸", Rarity: 23, XPReward: 200, UselessBucksReward: 50, Category: CategoryShopping,
		Requirement: "Spend $500+ total on UselessBucks",
		Description: "You've spent over $500 on useless items. Your financial advisor would weep."},
	{ID: AchievementReviewKing, Title: "Professional Complainer", Emoji: "⭐", Rarity: 12, XPReward: 150, UselessBucksReward: 30, Category: CategoryEngagement,
		Requirement: "Write 10+ product reviews",
		Description: "Left 10+ reviews. The world desperately needed your hot takes on products that literally do nothing."},
	{ID: AchievementEarlyAdopter, Title: "Beta Tester of Regret", Emoji: "🧪", Rarity: 5, XPReward: 100, UselessBucksReward: 25, Category: CategorySpecial,
		Requirement: "Purchase a product within launch week",
		Description: "You bought something within the first week of launch. Brave, foolish, or just really bad at waiting for reviews?"},
	{ID: AchievementCollector, Title: "Hoarder's Delight", Emoji: "📦", Rarity: 8, XPReward: 250, UselessBucksReward: 40, Category: CategoryShopping,
		Requirement: "Purchase 20+ unique products",
		Description: "You own 20+ different useless items. Marie Kondo has given up on you."},
	{ID: AchievementLoyalCustomer, Title: "Stockholm Syndrome", Emoji: "🔄", Rarity: 15, XPReward: 175, UselessBucksReward: 35, Category: CategoryEngagement,
		Requirement: "Make purchases in 3+ different months",
		Description: "You keep coming back for more. Month after month. Help is available. Just not here."},
	{ID: AchievementCommitmentIssues, Title: "Commitment Issues", Emoji: "💔", Rarity: 65, XPReward: 25, UselessBucksReward: 5, Category: CategoryShopping,
		Requirement: "Add an item to cart but never complete the purchase",
		Description: "You added things to your cart but couldn't seal the deal. The items are still waiting, growing cold and lonely."},
	{ID: AchievementWindowShopper, Title: "Professional Window Shopper", Emoji: "👀", Rarity: 45, XPReward: 30, UselessBucksReward: 0, Category: CategoryEngagement,
		Requirement: "View 50+ products without making a purchase",
		Description: "50 products viewed, 0 bought. Are you just here for the vibes?"},
	{ID: AchievementImpulseControl, Title: "Zero Impulse Control", Emoji: "⚡", Rarity: 18, XPReward: 75, UselessBucksReward: 15, Category: CategorySpecial,
		Requirement: "Complete a purchase within 10 seconds of viewing the product",
		Description: "You bought something within 10 seconds of seeing it. This is speed shopping at its finest."},
	{ID: AchievementProfessionalProcrastinator, Title: "Professional Procrastinator", Emoji: "🦥", Rarity: 35, XPReward: 40, UselessBucksReward: 20, Category: CategoryEngagement,
		Requirement: "Return after 30+ days of inactivity",
		Description: "You ghosted us for 30 days then came crawling back. Your wallet sure did miss us."},
	{ID: AchievementWhaleWatcher, Title: "Whale Status Achieved", Emoji: "🐋", Rarity: 2, XPReward: 500, UselessBucksReward: 100, Category: CategoryShopping,
		Requirement: "Spend over $10,000 total in UselessBucks",
		Description: "Over $10,000 in UselessBucks spent. We've named a conference room after you."},
	{ID: AchievementMidnightShopper, Title: "3am Life Decisions", Emoji: "🌙", Rarity: 28, XPReward: 60, UselessBucksReward: 15, Category: CategorySpecial,
		Requirement: "Complete a purchase between 2:00 AM and 4:00 AM",
		Description: "You made a purchase between 2-4am. Bad decisions don't sleep, and neither do you apparently."},
	{ID: AchievementSerialReturner, Title: "Serial Refunder", Emoji: "↩️", Rarity: 10, XPReward: 35, UselessBucksReward: 0, Category: CategoryShopping,
		Requirement: "Request 5+ refunds",
		Description: "5+ refund requests. You're the reason we can't have nice things."},
	{ID: AchievementReviewNovelist, Title: "The Great American Reviewer", Emoji: "📝", Rarity: 6, XPReward: 125, UselessBucksReward: 25, Category: CategoryEngagement,
		Requirement: "Write a single review with 500+ words",
		Description: "You wrote a review over 500 words. For a useless product. We're touched, genuinely."},
	{ID: AchievementNitpicker, Title: "Chaotic Agent of Disagreement", Emoji: "🔥", Rarity: 8, XPReward: 45, UselessBucksReward: 10, Category: CategoryEngagement,
		Requirement: "Give a 1-star review to a product with 5-star average rating",
		Description: "You gave a 1-star review to a 5-star rated product. You just want to watch the world burn."},
	{ID: AchievementHypeBeast, Title: "Day One Victim", Emoji: "🔥", Rarity: 7, XPReward: 85, UselessBucksReward: 20, Category: CategorySpecial,
		Requirement: "Purchase a product on its launch day",
		Description: "You bought something the exact day it launched. Your FOMO is our revenue."},
	{ID: AchievementIndecisive, Title: "Analysis Paralysis", Emoji: "🤔", Rarity: 22, XPReward: 55, UselessBucksReward: 10, Category: CategoryShopping,
		Requirement: "Modify cart contents 10+ times before checkout",
		Description: "You modified your cart 10+ times before checking out. The cart is dizzy. Just buy it already."},
	{ID: AchievementCompletionist, Title: "Achievement Hunter", Emoji: "🏆", Rarity: 3, XPReward: 300, UselessBucksReward: 75, Category: CategorySpecial,
		Requirement: "Unlock 20+ achievements",
		Description: "You've unlocked 20+ achievements. You're not shopping anymore, you're playing a meta-game."},
	{ID: AchievementGhost, Title: "The Phantom Account", Emoji: "👻", Rarity: 40, XPReward: 20, UselessBucksReward: 5, Category: CategoryEngagement,
		Requirement: "Create account but don't log back in for 60+ days",
		Description: "Created an account, then vanished into the void for 60 days. A cautionary tale about email marketing."},
	{ID: AchievementSocialButterfly, Title: "Enabler-in-Chief", Emoji: "🦋", Rarity: 12, XPReward: 200, UselessBucksReward: 50, Category: CategorySocial,
		Requirement: "Successfully refer 3+ friends who make purchases",
		Description: "You've referred 3+ friends. That's either friendship or a pyramid scheme."},
	{ID: AchievementBargainHunter, Title: "Discount Goblin", Emoji: "🏷️", Rarity: 15, XPReward: 80, UselessBucksReward: 20, Category: CategoryShopping,
		Requirement: "Only purchase items that are on sale (minimum 5 purchases)",
		Description: "You've only ever bought items on sale. Never full price. Not once."},

	// Streak milestones pay their UselessBucks through the milestone bonus.
	{ID: AchievementStreak7, Title: "Week Warrior", Emoji: "📅", Rarity: 30, XPReward: 50, Category: CategoryEngagement,
		Requirement: "Claim your daily UselessBucks 7 days in a row",
		Description: "You've wasted a whole week!"},
	{ID: AchievementStreak30, Title: "Monthly Menace", Emoji: "🗓️", Rarity: 9, XPReward: 150, Category: CategoryEngagement,
		Requirement: "Claim your daily UselessBucks 30 days in a row",
		Description: "A month of mayhem."},
	{ID: AchievementStreak60, Title: "Bi-Monthly Beast", Emoji: "🐗", Rarity: 4, XPReward: 250, Category: CategoryEngagement,
		Requirement: "Claim your daily UselessBucks 60 days in a row",
		Description: "Two months of dedication to nothing."},
	{ID: AchievementStreak100, Title: "Centurion of Chaos", Emoji: "💯", Rarity: 2, XPReward: 400, Category: CategoryEngagement,
		Requirement: "Claim your daily UselessBucks 100 days in a row",
		Description: "100 days. No turning back."},
	{ID: AchievementStreak365, Title: "Annual Anomaly", Emoji: "🌍", Rarity: 1, XPReward: 500, Category: CategoryEngagement,
		Requirement: "Claim your daily UselessBucks 365 days in a row",
		Description: "A full year?! Touch grass."},
}

// Registry is the read-only achievement catalog.
type Registry struct {
	order []AchievementDefinition
	byID  map[AchievementType]AchievementDefinition
}

func newRegistry(defs []AchievementDefinition) *Registry {
	r := &Registry{
		order: slices.Clone(defs),
		byID:  make(map[AchievementType]AchievementDefinition, len(defs)),
	}
	for _, d := range defs {
		r.byID[d.ID] = d
	}
	return r
}

var defaultRegistry = newRegistry(achievementCatalog)

// DefaultRegistry returns the built-in catalog.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Valid reports whether id belongs to the catalog.
func (r *Registry) Valid(id AchievementType) bool {
	_, ok := r.byID[id]
	return ok
}

func (r *Registry) Get(id AchievementType) (AchievementDefinition, error) {
	d, ok := r.byID[id]
	if !ok {
		return AchievementDefinition{}, &NotFoundError{Resource: "achievement", ID: string(id)}
	}
	return d, nil
}

func (r *Registry) All() []AchievementDefinition {
	return slices.Clone(r.order)
}

func (r *Registry) Count() int {
	return len(r.order)
}

func (r *Registry) ByCategory(category AchievementCategory) []AchievementDefinition {
	var out []AchievementDefinition
	for _, d := range r.order {
		if d.Category == category {
			out = append(out, d)
		}
	}
	return out
}

// ByRarity sorts rarest first.
func (r *Registry) ByRarity() []AchievementDefinition {
	out := slices.Clone(r.order)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rarity < out[j].Rarity })
	return out
}

func (r *Registry) TotalPossibleXP() int64 {
	var total int64
	for _, d := range r.order {
		total += d.XPReward
	}
	return total
}

func (r *Registry) TotalPossibleUselessBucks() int64 {
	var total int64
	for _, d := range r.order {
		total += d.UselessBucksReward
	}
	return total
}

func (r *Registry) Categories() map[AchievementCategory]CategoryInfo {
	out := make(map[AchievementCategory]CategoryInfo, len(categoryInfo))
	for k, v := range categoryInfo {
		out[k] = v
	}
	return out
}
