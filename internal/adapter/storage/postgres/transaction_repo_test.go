package postgres

import (
	"context"
	"testing"
	"time"

	"wallet-service/internal/core/domain"
	"wallet-service/internal/core/ports"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransaction(walletID uuid.UUID) *domain.Transaction {
	return &domain.Transaction{
		ID:            uuid.New(),
		WalletID:      walletID,
		OperationType: domain.OperationDeposit,
		Amount:        decimal.RequireFromString("100.00"),
		BalanceBefore: decimal.RequireFromString("0.00"),
		BalanceAfter:  decimal.RequireFromString("100.00"),
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
	}
}

func transactionColumns() []string {
	return []string{"id", "wallet_id", "operation_type", "amount", "balance_before", "balance_after", "created_at"}
}

func TestTransactionRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(txn.ID, txn.WalletID, txn.OperationType, txn.Amount,
			txn.BalanceBefore, txn.BalanceAfter, txn.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, txn)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_ListByWallet_Paginated(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	walletID := uuid.New()
	txn := newTestTransaction(walletID)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM transactions").
		WithArgs(walletID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))

	mock.ExpectQuery("SELECT .+ FROM transactions .+ ORDER BY created_at DESC LIMIT .+ OFFSET").
		WithArgs(walletID, 20, 0).
		WillReturnRows(pgxmock.NewRows(transactionColumns()).AddRow(
			txn.ID, txn.WalletID, txn.OperationType, txn.Amount,
			txn.BalanceBefore, txn.BalanceAfter, txn.CreatedAt,
		))

	result, total, err := repo.ListByWallet(context.Background(), ports.TransactionListParams{
		WalletID: walletID,
		Page:     1,
		PageSize: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, result, 1)
	assert.Equal(t, txn.ID, result[0].ID)
	assert.True(t, result[0].Amount.Equal(txn.Amount))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_ListByWallet_TimeRange(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	walletID := uuid.New()
	from := time.Now().UTC().Add(-time.Hour)
	to := time.Now().UTC()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM transactions").
		WithArgs(walletID, from, to).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))

	mock.ExpectQuery("SELECT .+ FROM transactions .+ ORDER BY created_at DESC").
		WithArgs(walletID, from, to, 20, 0).
		WillReturnRows(pgxmock.NewRows(transactionColumns()))

	result, total, err := repo.ListByWallet(context.Background(), ports.TransactionListParams{
		WalletID: walletID,
		From:     &from,
		To:       &to,
		Page:     1,
		PageSize: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_ListByWallet_MostRecentN(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	walletID := uuid.New()
	txn := newTestTransaction(walletID)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM transactions").
		WithArgs(walletID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(42)))

	mock.ExpectQuery("SELECT .+ FROM transactions .+ ORDER BY created_at DESC LIMIT").
		WithArgs(walletID, 10).
		WillReturnRows(pgxmock.NewRows(transactionColumns()).AddRow(
			txn.ID, txn.WalletID, txn.OperationType, txn.Amount,
			txn.BalanceBefore, txn.BalanceAfter, txn.CreatedAt,
		))

	result, total, err := repo.ListByWallet(context.Background(), ports.TransactionListParams{
		WalletID: walletID,
		Limit:    10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), total)
	require.Len(t, result, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
