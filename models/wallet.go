// models/wallet.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds a user's UselessBucks balance and daily-claim streak.
// Table name: wallets
type Wallet struct {
	ID            string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID        string          `gorm:"not null;uniqueIndex" json:"user_id"`
	Balance       decimal.Decimal `gorm:"type:decimal(10,2);not null;default:1000.00" json:"balance"`
	CurrentStreak int             `gorm:"not null;default:0" json:"current_streak"`
	LastClaimAt   *time.Time      `json:"last_claim_at,omitempty"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// DefaultWalletBalance is credited when a wallet is first created.
var DefaultWalletBalance = decimal.NewFromInt(1000)

type TransactionType string

const (
	TransactionSignupBonus TransactionType = "signup_bonus"
	TransactionPurchase    TransactionType = "purchase"
	TransactionRefund      TransactionType = "refund"
	TransactionDailyClaim  TransactionType = "daily_claim"
	TransactionReviewBonus TransactionType = "review_bonus"
	TransactionAchievement TransactionType = "achievement"
)

// WalletTransaction is an append-only ledger row.
type WalletTransaction struct {
	ID          string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID      string          `gorm:"not null;index" json:"user_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Type        TransactionType `gorm:"type:varchar(32);not null;index" json:"type"`
	Description string          `gorm:"type:text" json:"description"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}
