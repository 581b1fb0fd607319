package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/jeanyves777/flowsmartly-sub008/internal/middleware"
	"github.com/jeanyves777/flowsmartly-sub008/internal/model"
	"github.com/jeanyves777/flowsmartly-sub008/internal/provider"
)

type SendCampaignRequest struct {
	Message    string   `json:"message"`
	Recipients []string `json:"recipients"`
}

// SendCampaign dispatches an SMS automation run. Cost is composite: the
// automation base price plus one SMS price per recipient.
func (h *Handler) SendCampaign(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return respondUnauthorized(c)
	}

	var req SendCampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return respondValidationError(c, "malformed JSON body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return respondValidationError(c, "message is required")
	}
	if len(req.Recipients) == 0 {
		return respondValidationError(c, "at least one recipient is required")
	}
	if len(req.Recipients) > 1000 {
		return respondValidationError(c, "too many recipients, maximum is 1000")
	}

	user, err := h.creditSvc.GetUser(c.Context(), userID)
	if err != nil {
		return respondError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "failed to load account")
	}

	baseCost, err := h.creditSvc.ResolveCost(c.Context(), model.FeatureAutomation)
	if err != nil {
		return respondError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "failed to resolve cost")
	}
	smsCost, err := h.creditSvc.ResolveCost(c.Context(), model.FeatureSMSSend)
	if err != nil {
		return respondError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "failed to resolve cost")
	}
	cost := baseCost + smsCost*int64(len(req.Recipients))

	decision := h.creditSvc.CheckEligibility(user, cost, user.IsAdmin)
	if !decision.Allowed {
		return respondDenied(c, decision)
	}

	result, err := h.provider.SendSMS(c.Context(), provider.SMSRequest{
		Message:    req.Message,
		Recipients: req.Recipients,
	})
	if err != nil {
		return respondProviderError(c)
	}

	campaignID := uuid.NewString()

	creditsUsed, creditsRemaining, err := h.settle(c, user, cost, model.FeatureAutomation, "campaign", campaignID)
	if err != nil {
		return respondChargeError(c, err)
	}

	return respondOK(c, fiber.Map{
		"campaign_id":       campaignID,
		"accepted":          result.Accepted,
		"rejected":          result.Rejected,
		"credits_used":      creditsUsed,
		"credits_remaining": creditsRemaining,
	})
}
