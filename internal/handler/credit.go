package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/jeanyves777/flowsmartly-sub008/internal/middleware"
)

// GetCredits returns the account's credit balances.
func (h *Handler) GetCredits(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return respondUnauthorized(c)
	}

	user, err := h.creditSvc.GetUser(c.Context(), userID)
	if err != nil {
		return respondError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "failed to load balance")
	}

	return respondOK(c, fiber.Map{
		"total_credits":     user.TotalCredits,
		"free_credits":      user.FreeCredits,
		"purchased_credits": user.PurchasedCredits(),
	})
}

// GetCreditTransactions returns ledger history for the account.
func (h *Handler) GetCreditTransactions(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return respondUnauthorized(c)
	}

	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	transactions, err := h.creditSvc.GetTransactions(c.Context(), userID, limit, offset)
	if err != nil {
		return respondError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "failed to load transactions")
	}

	return respondOK(c, fiber.Map{
		"transactions": transactions,
	})
}
