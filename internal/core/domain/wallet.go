package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AmountScale is the fixed number of decimal digits for monetary amounts.
const AmountScale = 2

// Wallet represents a per-identifier money wallet.
// The ID is supplied by the caller at creation time and is the only key
// external systems ever see.
type Wallet struct {
	ID        uuid.UUID       `json:"wallet_id"`
	Balance   decimal.Decimal `json:"balance"`
	Version   int64           `json:"-"` // bumped on every committed mutation
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewWallet creates a fresh wallet with zero balance and version zero.
func NewWallet(id uuid.UUID) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		ID:        id,
		Balance:   decimal.Zero,
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ValidAmount reports whether amount is usable for an operation:
// strictly positive with at most AmountScale decimal digits.
func ValidAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Exponent() >= -AmountScale
}
