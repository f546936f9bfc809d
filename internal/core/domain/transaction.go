package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OperationType represents the direction of a balance mutation.
type OperationType string

const (
	OperationDeposit  OperationType = "DEPOSIT"
	OperationWithdraw OperationType = "WITHDRAW"
)

// ParseOperationType converts a caller-supplied string into an OperationType.
func ParseOperationType(s string) (OperationType, error) {
	switch OperationType(strings.ToUpper(strings.TrimSpace(s))) {
	case OperationDeposit:
		return OperationDeposit, nil
	case OperationWithdraw:
		return OperationWithdraw, nil
	default:
		return "", fmt.Errorf("unknown operation type %q", s)
	}
}

// Valid reports whether the operation type is one of the known kinds.
func (op OperationType) Valid() bool {
	return op == OperationDeposit || op == OperationWithdraw
}

// Transaction is an immutable audit record of one balance mutation.
// Exactly one is written per successful operation, in the same commit as the
// wallet update, and it is never modified afterwards.
type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	WalletID      uuid.UUID       `json:"wallet_id"`
	OperationType OperationType   `json:"operation_type"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewTransaction builds the audit record for a mutation that moved the
// wallet's balance from before to after.
func NewTransaction(walletID uuid.UUID, op OperationType, amount, before, after decimal.Decimal) *Transaction {
	return &Transaction{
		ID:            uuid.New(),
		WalletID:      walletID,
		OperationType: op,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		CreatedAt:     time.Now().UTC(),
	}
}
