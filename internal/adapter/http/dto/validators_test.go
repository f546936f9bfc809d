package dto

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validate(t *testing.T, v any) error {
	t.Helper()
	engine, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)
	return engine.Struct(v)
}

func TestWalletOperationRequest_Valid(t *testing.T) {
	req := WalletOperationRequest{
		WalletID:      "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		OperationType: "DEPOSIT",
		Amount:        decimal.RequireFromString("100.00"),
	}
	assert.NoError(t, validate(t, req))

	req.OperationType = "withdraw"
	assert.NoError(t, validate(t, req), "operation type is case-insensitive")
}

func TestWalletOperationRequest_InvalidUUID(t *testing.T) {
	req := WalletOperationRequest{
		WalletID:      "not-a-uuid",
		OperationType: "DEPOSIT",
		Amount:        decimal.RequireFromString("1.00"),
	}
	assert.Error(t, validate(t, req))
}

func TestWalletOperationRequest_UnknownOperation(t *testing.T) {
	req := WalletOperationRequest{
		WalletID:      "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		OperationType: "TRANSFER",
		Amount:        decimal.RequireFromString("1.00"),
	}
	assert.Error(t, validate(t, req))
}

func TestWalletOperationRequest_MissingAmount(t *testing.T) {
	req := WalletOperationRequest{
		WalletID:      "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		OperationType: "DEPOSIT",
	}
	assert.Error(t, validate(t, req))
}

func TestCreateWalletRequest(t *testing.T) {
	assert.NoError(t, validate(t, CreateWalletRequest{WalletID: "7c9e6679-7425-40de-944b-e07fc1f90ae7"}))
	assert.Error(t, validate(t, CreateWalletRequest{WalletID: ""}))
	assert.Error(t, validate(t, CreateWalletRequest{WalletID: "1234"}))
}
