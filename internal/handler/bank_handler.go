package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aitrainer/trainer-backend/internal/response"
	"github.com/aitrainer/trainer-backend/internal/service"
)

// BankHandler exposes the loaded question bank.
type BankHandler struct {
	bankService *service.BankService
}

// NewBankHandler creates a new BankHandler.
func NewBankHandler(bankService *service.BankService) *BankHandler {
	return &BankHandler{bankService: bankService}
}

// ListCategories godoc
// GET /api/v1/categories
// Returns theoretical and operational categories with question counts.
func (h *BankHandler) ListCategories(c *gin.Context) {
	groups, err := h.bankService.Categories()
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, groups)
}

// GetStatus godoc
// GET /api/v1/bank/status
// Reports where the current bank was loaded from and its size.
func (h *BankHandler) GetStatus(c *gin.Context) {
	if _, err := h.bankService.Pool(); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, h.bankService.Status())
}
