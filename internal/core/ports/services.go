package ports

import (
	"context"

	"wallet-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OperationRequest carries one balance mutation.
type OperationRequest struct {
	WalletID      uuid.UUID
	OperationType domain.OperationType
	Amount        decimal.Decimal
}

// OperationResult is the outcome of a successful mutation.
type OperationResult struct {
	WalletID uuid.UUID
	Balance  decimal.Decimal
	Message  string
}

// WalletService is the caller-facing contract: balance mutations, wallet
// lifecycle, and the read paths.
type WalletService interface {
	// ApplyOperation executes one deposit or withdrawal under the per-wallet
	// exclusive lock. The wallet update and its audit record commit atomically.
	ApplyOperation(ctx context.Context, req OperationRequest) (*OperationResult, error)
	// GetBalance reads the current balance without locking. May observe a
	// slightly stale value under concurrent mutation.
	GetBalance(ctx context.Context, walletID uuid.UUID) (*domain.Wallet, error)
	// CreateWallet inserts a new wallet with zero balance.
	CreateWallet(ctx context.Context, walletID uuid.UUID) (*domain.Wallet, error)
	// ListTransactions returns the wallet's operation log, newest-first.
	ListTransactions(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
}
