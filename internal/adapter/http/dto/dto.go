package dto

import (
	"time"

	"wallet-service/internal/core/domain"

	"github.com/shopspring/decimal"
)

// WalletOperationRequest is the request body for deposits and withdrawals.
type WalletOperationRequest struct {
	WalletID      string          `json:"walletId" binding:"required,uuid"`
	OperationType string          `json:"operationType" binding:"required,operation_type"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
}

// WalletOperationResponse is the result of a successful operation.
type WalletOperationResponse struct {
	WalletID string          `json:"walletId"`
	Balance  decimal.Decimal `json:"balance"`
	Message  string          `json:"message"`
}

// CreateWalletRequest is the request body for wallet creation.
type CreateWalletRequest struct {
	WalletID string `json:"walletId" binding:"required,uuid"`
}

// WalletBalanceResponse is the response for a balance query.
type WalletBalanceResponse struct {
	WalletID string          `json:"walletId"`
	Balance  decimal.Decimal `json:"balance"`
}

// TransactionResponse is one entry of the operation log.
type TransactionResponse struct {
	ID            string          `json:"id"`
	WalletID      string          `json:"walletId"`
	OperationType string          `json:"operationType"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balanceBefore"`
	BalanceAfter  decimal.Decimal `json:"balanceAfter"`
	CreatedAt     string          `json:"createdAt"`
}

// TransactionListResponse wraps a paginated transaction list.
type TransactionListResponse struct {
	Items    []TransactionResponse `json:"items"`
	Total    int64                 `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"pageSize"`
}

// FromTransaction converts a domain record into its wire shape.
func FromTransaction(t domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:            t.ID.String(),
		WalletID:      t.WalletID.String(),
		OperationType: string(t.OperationType),
		Amount:        t.Amount,
		BalanceBefore: t.BalanceBefore,
		BalanceAfter:  t.BalanceAfter,
		CreatedAt:     t.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
