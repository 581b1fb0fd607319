package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jeanyves777/flowsmartly-sub008/internal/middleware"
	"github.com/jeanyves777/flowsmartly-sub008/internal/service"
)

type RegisterRequest struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	ReferralCode string `json:"referral_code,omitempty"`
}

// Register creates an account, seeds the welcome bonus and returns an API
// token for subsequent calls.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return respondValidationError(c, "malformed JSON body")
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return respondValidationError(c, "email is required")
	}
	if strings.TrimSpace(req.Name) == "" {
		return respondValidationError(c, "name is required")
	}

	user, err := h.userSvc.Register(c.Context(), req.Email, req.Name, req.ReferralCode)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			return respondError(c, fiber.StatusConflict, "EMAIL_TAKEN", "email already registered")
		}
		return respondError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "failed to create account")
	}

	token := middleware.IssueToken(user.ID, h.cfg.Server.TokenTTL, h.cfg.Server.TokenSecret)

	return respondOK(c, fiber.Map{
		"user":  user,
		"token": token,
	})
}

// GetMe returns the authenticated account with its credit balances.
func (h *Handler) GetMe(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return respondUnauthorized(c)
	}

	user, err := h.userSvc.GetUser(c.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return respondError(c, fiber.StatusNotFound, "NOT_FOUND", "account not found")
		}
		return respondError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "failed to load account")
	}

	return respondOK(c, fiber.Map{
		"user":              user,
		"purchased_credits": user.PurchasedCredits(),
	})
}
