package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-service/internal/core/domain"
	"wallet-service/internal/core/ports"
	"wallet-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const operationSuccessMessage = "Operation completed successfully"

// WalletServiceImpl implements ports.WalletService.
//
// One mutation holds the wallet's row lock for the whole
// read-validate-write sequence, so callers targeting the same wallet
// serialize at the database while callers for different wallets never share
// a lock. The lock and both writes live inside a single transaction: either
// the balance update and its audit record commit together or neither does.
type WalletServiceImpl struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	transactor ports.DBTransactor
	cache      ports.BalanceCache
	opTimeout  time.Duration
	cacheTTL   time.Duration
	log        zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl. cache may be nil to
// disable balance caching.
func NewWalletService(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	transactor ports.DBTransactor,
	cache ports.BalanceCache,
	opTimeout time.Duration,
	cacheTTL time.Duration,
	log zerolog.Logger,
) *WalletServiceImpl {
	if opTimeout <= 0 {
		opTimeout = 30 * time.Second
	}
	return &WalletServiceImpl{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		transactor: transactor,
		cache:      cache,
		opTimeout:  opTimeout,
		cacheTTL:   cacheTTL,
		log:        log,
	}
}

// ApplyOperation executes one deposit or withdrawal.
//
// The critical section (acquire -> read -> validate -> write -> commit) is
// bounded by opTimeout; exceeding it surfaces a Timeout error instead of
// leaving the caller stuck behind a hot wallet. There is no retry here —
// retry policy belongs to the caller.
func (s *WalletServiceImpl) ApplyOperation(ctx context.Context, req ports.OperationRequest) (*ports.OperationResult, error) {
	// Validation happens before any storage access.
	if !req.OperationType.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown operation type %q", req.OperationType))
	}
	if !domain.ValidAmount(req.Amount) {
		return nil, apperror.Validation("amount must be positive with at most 2 decimal digits")
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, s.storageError(ctx, fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Acquire the row lock and re-read the balance under it. A value read
	// before acquisition must never be trusted.
	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, req.WalletID)
	if err != nil {
		return nil, s.storageError(ctx, fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound(req.WalletID)
	}

	balanceBefore := wallet.Balance
	var newBalance decimal.Decimal

	switch req.OperationType {
	case domain.OperationDeposit:
		newBalance = balanceBefore.Add(req.Amount)
	case domain.OperationWithdraw:
		if balanceBefore.LessThan(req.Amount) {
			s.log.Warn().
				Str("wallet_id", req.WalletID.String()).
				Str("balance", balanceBefore.StringFixed(2)).
				Str("requested", req.Amount.StringFixed(2)).
				Msg("withdrawal rejected, insufficient funds")
			return nil, apperror.ErrInsufficientFunds(balanceBefore)
		}
		newBalance = balanceBefore.Sub(req.Amount)
	}

	// Persist wallet update and audit record in the same transaction.
	if err := s.walletRepo.UpdateBalance(ctx, dbTx, wallet.ID, newBalance, wallet.Version); err != nil {
		if errors.Is(err, ports.ErrVersionMismatch) {
			return nil, apperror.ErrRevisionConflict(err)
		}
		return nil, s.storageError(ctx, fmt.Errorf("update balance: %w", err))
	}

	txn := domain.NewTransaction(wallet.ID, req.OperationType, req.Amount, balanceBefore, newBalance)
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, s.storageError(ctx, fmt.Errorf("create transaction record: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, s.storageError(ctx, fmt.Errorf("commit tx: %w", err))
	}

	// Post-commit: drop the cached balance (best-effort). Writing the new
	// value here would race a concurrent committer, and the loser's entry
	// would be served for the full TTL. Invalidation forces the next read
	// through to the store instead.
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, wallet.ID); err != nil {
			s.log.Warn().Err(err).Str("wallet_id", wallet.ID.String()).Msg("failed to invalidate balance cache")
		}
	}

	s.log.Info().
		Str("wallet_id", wallet.ID.String()).
		Str("operation", string(req.OperationType)).
		Str("amount", req.Amount.StringFixed(2)).
		Str("balance", newBalance.StringFixed(2)).
		Msg("operation applied")

	return &ports.OperationResult{
		WalletID: wallet.ID,
		Balance:  newBalance,
		Message:  operationSuccessMessage,
	}, nil
}

// GetBalance reads the current balance without acquiring the row lock. The
// value may trail an in-flight mutation; this is a point-in-time read, not
// part of a compare-and-act sequence.
func (s *WalletServiceImpl) GetBalance(ctx context.Context, walletID uuid.UUID) (*domain.Wallet, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, walletID)
		if err != nil {
			s.log.Warn().Err(err).Str("wallet_id", walletID.String()).Msg("balance cache read failed, falling through to store")
		}
		if cached != nil {
			return &domain.Wallet{ID: walletID, Balance: *cached}, nil
		}
	}

	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("read wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound(walletID)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, walletID, wallet.Balance, s.cacheTTL); err != nil {
			s.log.Warn().Err(err).Str("wallet_id", walletID.String()).Msg("failed to populate balance cache")
		}
	}
	return wallet, nil
}

// CreateWallet inserts a new wallet with zero balance and revision zero.
// Creation is not subject to the locking protocol: the store's unique
// constraint on the identifier is what rejects concurrent duplicate creation.
func (s *WalletServiceImpl) CreateWallet(ctx context.Context, walletID uuid.UUID) (*domain.Wallet, error) {
	if walletID == uuid.Nil {
		return nil, apperror.Validation("wallet_id is required")
	}

	wallet := domain.NewWallet(walletID)
	if err := s.walletRepo.Create(ctx, wallet); err != nil {
		if errors.Is(err, ports.ErrDuplicateWallet) {
			return nil, apperror.ErrWalletExists(walletID)
		}
		return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}

	s.log.Info().Str("wallet_id", walletID.String()).Msg("wallet created")
	return wallet, nil
}

// ListTransactions returns the wallet's operation log, newest-first.
func (s *WalletServiceImpl) ListTransactions(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	exists, err := s.walletRepo.Exists(ctx, params.WalletID)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("check wallet exists: %w", err))
	}
	if !exists {
		return nil, 0, apperror.ErrWalletNotFound(params.WalletID)
	}

	if params.From != nil && params.To != nil && params.From.After(*params.To) {
		return nil, 0, apperror.Validation("from must not be after to")
	}
	if params.Limit < 0 {
		return nil, 0, apperror.Validation("limit must not be negative")
	}
	if params.Limit == 0 {
		if params.Page < 1 {
			params.Page = 1
		}
		if params.PageSize < 1 {
			params.PageSize = 20
		}
		if params.PageSize > 100 {
			params.PageSize = 100
		}
	}

	txns, total, err := s.txRepo.ListByWallet(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list transactions: %w", err))
	}
	return txns, total, nil
}

// storageError distinguishes a deadline hit inside the critical section from
// other storage failures. Either way no partial state was committed.
func (s *WalletServiceImpl) storageError(ctx context.Context, err error) *apperror.AppError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperror.ErrOperationTimeout(err)
	}
	return apperror.InternalError(err)
}
