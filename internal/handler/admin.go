package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/jeanyves777/flowsmartly-sub008/internal/middleware"
	"github.com/jeanyves777/flowsmartly-sub008/internal/model"
	"github.com/jeanyves777/flowsmartly-sub008/internal/service"
)

// AdminHandler serves the admin panel API.
type AdminHandler struct {
	adminSvc  *service.AdminService
	creditSvc *service.CreditService
}

func NewAdminHandler(adminSvc *service.AdminService, creditSvc *service.CreditService) *AdminHandler {
	return &AdminHandler{adminSvc: adminSvc, creditSvc: creditSvc}
}

// ListUsers lists accounts with pagination and search.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	search := c.Query("search", "")

	users, total, err := h.adminSvc.ListUsers(c.Context(), limit, offset, search)
	if err != nil {
		return respondError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "failed to list users")
	}

	return respondOK(c, fiber.Map{
		"users": users,
		"total": total,
	})
}

func (h *AdminHandler) GetUser(c *fiber.Ctx) error {
	targetUserID, err := strconv.ParseInt(c.Params("user_id"), 10, 64)
	if err != nil {
		return respondValidationError(c, "invalid user_id")
	}

	user, err := h.adminSvc.GetUser(c.Context(), targetUserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return respondError(c, fiber.StatusNotFound, "NOT_FOUND", "user not found")
		}
		return respondError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "failed to load user")
	}

	return respondOK(c, fiber.Map{
		"user":              user,
		"purchased_credits": user.PurchasedCredits(),
	})
}

type GrantCreditsRequest struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description,omitempty"`
	Free        bool   `json:"free"`
}

// GrantCredits grants credits to a user; free grants also raise the
// restricted free-credit portion.
func (h *AdminHandler) GrantCredits(c *fiber.Ctx) error {
	adminID := middleware.GetAdminID(c)
	targetUserID, err := strconv.ParseInt(c.Params("user_id"), 10, 64)
	if err != nil {
		return respondValidationError(c, "invalid user_id")
	}

	var req GrantCreditsRequest
	if err := c.BodyParser(&req); err != nil {
		return respondValidationError(c, "malformed JSON body")
	}
	if req.Amount <= 0 {
		return respondValidationError(c, "amount must be positive")
	}

	balance, err := h.adminSvc.GrantCredits(c.Context(), adminID, targetUserID, req.Amount, req.Description, req.Free)
	if err != nil {
		return respondError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "failed to grant credits")
	}

	return respondOK(c, fiber.Map{
		"new_balance": balance,
	})
}

// ListFeatureCosts returns the effective price table.
func (h *AdminHandler) ListFeatureCosts(c *fiber.Ctx) error {
	costs, err := h.adminSvc.ListFeatureCosts(c.Context())
	if err != nil {
		return respondError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "failed to list costs")
	}
	return respondOK(c, fiber.Map{
		"costs": costs,
	})
}

type SetFeatureCostRequest struct {
	FeatureKey string `json:"feature_key"`
	Cost       int64  `json:"cost"`
}

// SetFeatureCost installs a pricing override for a feature.
func (h *AdminHandler) SetFeatureCost(c *fiber.Ctx) error {
	adminID := middleware.GetAdminID(c)

	var req SetFeatureCostRequest
	if err := c.BodyParser(&req); err != nil {
		return respondValidationError(c, "malformed JSON body")
	}

	err := h.adminSvc.SetFeatureCost(c.Context(), adminID, model.FeatureKey(req.FeatureKey), req.Cost)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCost) || errors.Is(err, service.ErrUnknownFeature) {
			return respondValidationError(c, err.Error())
		}
		return respondError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "failed to set cost")
	}

	return respondOK(c, fiber.Map{
		"feature_key": req.FeatureKey,
		"cost":        req.Cost,
	})
}

// DeleteFeatureCost removes an override; the feature reverts to its default.
func (h *AdminHandler) DeleteFeatureCost(c *fiber.Ctx) error {
	adminID := middleware.GetAdminID(c)
	key := model.FeatureKey(c.Params("feature_key"))

	if err := h.adminSvc.DeleteFeatureCost(c.Context(), adminID, key); err != nil {
		return respondError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "failed to delete cost")
	}

	return respondOK(c, fiber.Map{
		"feature_key": string(key),
	})
}

// ListUsage returns the usage audit trail, optionally scoped to one user.
func (h *AdminHandler) ListUsage(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	userID, _ := strconv.ParseInt(c.Query("user_id", "0"), 10, 64)

	records, err := h.adminSvc.ListUsage(c.Context(), userID, limit, offset)
	if err != nil {
		return respondError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "failed to list usage")
	}

	return respondOK(c, fiber.Map{
		"usage": records,
	})
}

// GetUserTransactions returns a user's ledger history.
func (h *AdminHandler) GetUserTransactions(c *fiber.Ctx) error {
	targetUserID, err := strconv.ParseInt(c.Params("user_id"), 10, 64)
	if err != nil {
		return respondValidationError(c, "invalid user_id")
	}

	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	transactions, err := h.creditSvc.GetTransactions(c.Context(), targetUserID, limit, offset)
	if err != nil {
		return respondError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "failed to load transactions")
	}

	return respondOK(c, fiber.Map{
		"transactions": transactions,
	})
}

// VerifyLedger replays a user's ledger against the live balance.
func (h *AdminHandler) VerifyLedger(c *fiber.Ctx) error {
	targetUserID, err := strconv.ParseInt(c.Params("user_id"), 10, 64)
	if err != nil {
		return respondValidationError(c, "invalid user_id")
	}

	sum, err := h.creditSvc.VerifyLedger(c.Context(), targetUserID)
	if err != nil {
		if errors.Is(err, service.ErrLedgerMismatch) {
			return respondOK(c, fiber.Map{
				"consistent": false,
				"ledger_sum": sum,
			})
		}
		return respondError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "failed to verify ledger")
	}

	return respondOK(c, fiber.Map{
		"consistent": true,
		"ledger_sum": sum,
	})
}

type SetSettingRequest struct {
	Value int64 `json:"value"`
}

// GetWelcomeBonus returns the configured signup grant.
func (h *AdminHandler) GetWelcomeBonus(c *fiber.Ctx) error {
	return h.getSetting(c, "welcome_bonus")
}

// SetWelcomeBonus updates the signup grant.
func (h *AdminHandler) SetWelcomeBonus(c *fiber.Ctx) error {
	return h.setSetting(c, "welcome_bonus")
}

// GetReferralBonus returns the configured referral grant.
func (h *AdminHandler) GetReferralBonus(c *fiber.Ctx) error {
	return h.getSetting(c, "referral_bonus")
}

// SetReferralBonus updates the referral grant.
func (h *AdminHandler) SetReferralBonus(c *fiber.Ctx) error {
	return h.setSetting(c, "referral_bonus")
}

func (h *AdminHandler) getSetting(c *fiber.Ctx, key string) error {
	value, err := h.adminSvc.GetSettingInt(c.Context(), key)
	if err != nil {
		return respondError(c, fiber.StatusNotFound, "NOT_FOUND", "setting not configured")
	}
	return respondOK(c, fiber.Map{
		"key":   key,
		"value": value,
	})
}

func (h *AdminHandler) setSetting(c *fiber.Ctx, key string) error {
	adminID := middleware.GetAdminID(c)

	var req SetSettingRequest
	if err := c.BodyParser(&req); err != nil {
		return respondValidationError(c, "malformed JSON body")
	}

	if err := h.adminSvc.SetSettingInt(c.Context(), adminID, key, req.Value); err != nil {
		return respondValidationError(c, err.Error())
	}

	return respondOK(c, fiber.Map{
		"key":   key,
		"value": req.Value,
	})
}
