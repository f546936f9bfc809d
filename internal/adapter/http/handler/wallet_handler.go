package handler

import (
	"net/http"
	"strconv"
	"time"

	"wallet-service/internal/adapter/http/dto"
	"wallet-service/internal/core/domain"
	"wallet-service/internal/core/ports"
	"wallet-service/pkg/apperror"
	"wallet-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler handles wallet endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// PerformOperation handles POST /api/v1/wallet.
func (h *WalletHandler) PerformOperation(c *gin.Context) {
	var req dto.WalletOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	walletID, err := uuid.Parse(req.WalletID)
	if err != nil {
		response.Error(c, apperror.Validation("walletId must be a valid UUID"))
		return
	}
	opType, err := domain.ParseOperationType(req.OperationType)
	if err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.walletSvc.ApplyOperation(c.Request.Context(), ports.OperationRequest{
		WalletID:      walletID,
		OperationType: opType,
		Amount:        req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WalletOperationResponse{
		WalletID: result.WalletID.String(),
		Balance:  result.Balance,
		Message:  result.Message,
	})
}

// CreateWallet handles POST /api/v1/wallets.
func (h *WalletHandler) CreateWallet(c *gin.Context) {
	var req dto.CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	walletID, err := uuid.Parse(req.WalletID)
	if err != nil {
		response.Error(c, apperror.Validation("walletId must be a valid UUID"))
		return
	}

	wallet, err := h.walletSvc.CreateWallet(c.Request.Context(), walletID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.WalletBalanceResponse{
		WalletID: wallet.ID.String(),
		Balance:  wallet.Balance,
	})
}

// GetBalance handles GET /api/v1/wallets/:walletId.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("walletId"))
	if err != nil {
		response.Error(c, apperror.Validation("walletId must be a valid UUID"))
		return
	}

	wallet, err := h.walletSvc.GetBalance(c.Request.Context(), walletID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WalletBalanceResponse{
		WalletID: wallet.ID.String(),
		Balance:  wallet.Balance,
	})
}

// ListTransactions handles GET /api/v1/wallets/:walletId/transactions.
//
// Query parameters: page, page_size, limit (most-recent-N mode), and an
// optional from/to RFC3339 time window.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("walletId"))
	if err != nil {
		response.Error(c, apperror.Validation("walletId must be a valid UUID"))
		return
	}

	params := ports.TransactionListParams{WalletID: walletID}

	if v := c.Query("page"); v != "" {
		params.Page, err = strconv.Atoi(v)
		if err != nil {
			response.Error(c, apperror.Validation("page must be an integer"))
			return
		}
	}
	if v := c.Query("page_size"); v != "" {
		params.PageSize, err = strconv.Atoi(v)
		if err != nil {
			response.Error(c, apperror.Validation("page_size must be an integer"))
			return
		}
	}
	if v := c.Query("limit"); v != "" {
		params.Limit, err = strconv.Atoi(v)
		if err != nil {
			response.Error(c, apperror.Validation("limit must be an integer"))
			return
		}
	}
	if v := c.Query("from"); v != "" {
		from, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.Error(c, apperror.Validation("from must be an RFC3339 timestamp"))
			return
		}
		params.From = &from
	}
	if v := c.Query("to"); v != "" {
		to, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.Error(c, apperror.Validation("to must be an RFC3339 timestamp"))
			return
		}
		params.To = &to
	}

	items, total, err := h.walletSvc.ListTransactions(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	// Mirror the defaults the service applies in paginated mode so the
	// response reports the page actually served.
	if params.Limit == 0 {
		if params.Page < 1 {
			params.Page = 1
		}
		if params.PageSize < 1 {
			params.PageSize = 20
		} else if params.PageSize > 100 {
			params.PageSize = 100
		}
	}

	resp := dto.TransactionListResponse{
		Items:    make([]dto.TransactionResponse, 0, len(items)),
		Total:    total,
		Page:     params.Page,
		PageSize: params.PageSize,
	}
	for _, t := range items {
		resp.Items = append(resp.Items, dto.FromTransaction(t))
	}

	response.OK(c, resp)
}

// HealthCheck handles GET /health — deep health check verifying all dependencies.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus)
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = depStatus{Status: "healthy"}
			}
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}
