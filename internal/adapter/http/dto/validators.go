package dto

import (
	"wallet-service/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("operation_type", validateOperationType)
	}
}

// validateOperationType accepts DEPOSIT or WITHDRAW, case-insensitively.
func validateOperationType(fl validator.FieldLevel) bool {
	_, err := domain.ParseOperationType(fl.Field().String())
	return err == nil
}
