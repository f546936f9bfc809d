package ports

import (
	"context"
	"errors"
	"time"

	"wallet-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ErrDuplicateWallet is returned by WalletRepository.Create when the wallet
// identifier already exists (unique constraint on the store).
var ErrDuplicateWallet = errors.New("wallet already exists")

// ErrVersionMismatch is returned by WalletRepository.UpdateBalance when the
// stored revision no longer matches the expected one. Under the pessimistic
// lock this should never fire; it exists to catch write paths that bypass
// the lock.
var ErrVersionMismatch = errors.New("wallet version mismatch")

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	// GetByIDForUpdate acquires the row-level exclusive lock on the wallet.
	// Blocks until the lock is granted or ctx expires. MUST be called within tx.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	// UpdateBalance persists the new balance and bumps the revision counter.
	// Fails with ErrVersionMismatch if the stored revision differs from
	// expectedVersion. MUST be called within tx.
	UpdateBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, balance decimal.Decimal, expectedVersion int64) error
}

// TransactionListParams holds filter + pagination for the transaction log.
type TransactionListParams struct {
	WalletID uuid.UUID
	From     *time.Time
	To       *time.Time
	// Limit > 0 requests only the most recent N records and ignores paging.
	Limit    int
	Page     int
	PageSize int
}

// TransactionRepository defines persistence for the append-only operation log.
type TransactionRepository interface {
	// Create appends a record within a database transaction.
	Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error
	// ListByWallet returns records newest-first, with the total count matching
	// the filter.
	ListByWallet(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
}

// DBTransactor provides database transaction management. It is the atomic
// unit under which a wallet update and its log record commit together.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// BalanceCache is a best-effort read cache for balance lookups. A stale or
// missing entry is never an error for callers of the query path.
type BalanceCache interface {
	// Get returns nil, nil on cache miss.
	Get(ctx context.Context, walletID uuid.UUID) (*decimal.Decimal, error)
	Set(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal, ttl time.Duration) error
	Invalidate(ctx context.Context, walletID uuid.UUID) error
}
