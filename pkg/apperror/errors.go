package apperror

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Wallet Business Logic (WAL) ----

// Validation returns a WAL_001 error for malformed or missing input.
// Rejected before any storage access.
func Validation(message string) *AppError {
	return New("WAL_001", message, http.StatusBadRequest)
}

func ErrWalletNotFound(walletID uuid.UUID) *AppError {
	return New("WAL_002", fmt.Sprintf("Wallet not found: %s", walletID), http.StatusNotFound)
}

func ErrInsufficientFunds(balance decimal.Decimal) *AppError {
	return New("WAL_003", fmt.Sprintf("Insufficient funds. Balance: %s", balance.StringFixed(2)), http.StatusUnprocessableEntity)
}

func ErrWalletExists(walletID uuid.UUID) *AppError {
	return New("WAL_004", fmt.Sprintf("Wallet already exists: %s", walletID), http.StatusConflict)
}

// ErrRevisionConflict signals a commit against a stale revision counter. With
// the row lock in place this indicates a write path that bypassed the lock.
func ErrRevisionConflict(err error) *AppError {
	return Wrap("WAL_005", "Wallet was modified concurrently", http.StatusConflict, err)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// ErrOperationTimeout signals that lock acquisition or commit exceeded the
// configured bound. No partial state; the caller may retry.
func ErrOperationTimeout(err error) *AppError {
	return Wrap("SYS_002", "Operation timed out", http.StatusServiceUnavailable, err)
}
