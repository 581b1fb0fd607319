package handler

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/jeanyves777/flowsmartly-sub008/internal/middleware"
	"github.com/jeanyves777/flowsmartly-sub008/internal/model"
	"github.com/jeanyves777/flowsmartly-sub008/internal/provider"
)

type CreateDesignRequest struct {
	Prompt     string `json:"prompt"`
	ImageCount int    `json:"image_count"`
}

// CreateDesign generates a visual design. Cost is composite: the layout base
// price plus one image-generation price per requested image. Order of
// operations follows every paid endpoint here: authenticate, resolve cost,
// check eligibility, do the paid work, then debit exactly once on success.
func (h *Handler) CreateDesign(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return respondUnauthorized(c)
	}

	var req CreateDesignRequest
	if err := c.BodyParser(&req); err != nil {
		return respondValidationError(c, "malformed JSON body")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return respondValidationError(c, "prompt is required")
	}
	if req.ImageCount < 1 || req.ImageCount > 8 {
		return respondValidationError(c, "image_count must be between 1 and 8")
	}

	user, err := h.creditSvc.GetUser(c.Context(), userID)
	if err != nil {
		return respondError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "failed to load account")
	}

	baseCost, err := h.creditSvc.ResolveCost(c.Context(), model.FeatureVisualDesign)
	if err != nil {
		return respondError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "failed to resolve cost")
	}
	imageCost, err := h.creditSvc.ResolveCost(c.Context(), model.FeatureImage)
	if err != nil {
		return respondError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "failed to resolve cost")
	}
	cost := baseCost + imageCost*int64(req.ImageCount)

	decision := h.creditSvc.CheckEligibility(user, cost, user.IsAdmin)
	if !decision.Allowed {
		return respondDenied(c, decision)
	}

	images := make([]string, 0, req.ImageCount)
	for i := 0; i < req.ImageCount; i++ {
		result, err := h.provider.GenerateImage(c.Context(), provider.GenerateImageRequest{
			Prompt: req.Prompt,
		})
		if err != nil {
			// Fail closed: nothing generated so far is billed.
			return respondProviderError(c)
		}
		images = append(images, result.Image)
	}

	designID := uuid.NewString()

	creditsUsed, creditsRemaining, err := h.settle(c, user, cost, model.FeatureVisualDesign, "design", designID)
	if err != nil {
		return respondChargeError(c, err)
	}

	return respondOK(c, fiber.Map{
		"design_id":         designID,
		"images":            images,
		"credits_used":      creditsUsed,
		"credits_remaining": creditsRemaining,
	})
}

type CreateVoiceoverRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id,omitempty"`
}

// CreateVoiceover synthesizes a voiceover at the flat voice-clone price.
func (h *Handler) CreateVoiceover(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return respondUnauthorized(c)
	}

	var req CreateVoiceoverRequest
	if err := c.BodyParser(&req); err != nil {
		return respondValidationError(c, "malformed JSON body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return respondValidationError(c, "text is required")
	}

	user, err := h.creditSvc.GetUser(c.Context(), userID)
	if err != nil {
		return respondError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "failed to load account")
	}

	cost, err := h.creditSvc.ResolveCost(c.Context(), model.FeatureVoiceClone)
	if err != nil {
		return respondError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "failed to resolve cost")
	}

	decision := h.creditSvc.CheckEligibility(user, cost, user.IsAdmin)
	if !decision.Allowed {
		return respondDenied(c, decision)
	}

	result, err := h.provider.GenerateVoiceover(c.Context(), provider.VoiceoverRequest{
		Text:    req.Text,
		VoiceID: req.VoiceID,
	})
	if err != nil {
		return respondProviderError(c)
	}

	voiceoverID := uuid.NewString()

	creditsUsed, creditsRemaining, err := h.settle(c, user, cost, model.FeatureVoiceClone, "voiceover", voiceoverID)
	if err != nil {
		return respondChargeError(c, err)
	}

	return respondOK(c, fiber.Map{
		"voiceover_id":      voiceoverID,
		"audio":             result.Audio,
		"credits_used":      creditsUsed,
		"credits_remaining": creditsRemaining,
	})
}

// settle commits billing after successful paid work. Normal accounts are
// debited with in-transaction re-validation; privileged accounts skip the
// debit but still leave a zero-cost usage record. Returns the credits used
// and the balance to report to the client.
func (h *Handler) settle(c *fiber.Ctx, user *model.User, cost int64, key model.FeatureKey, refType, refID string) (int64, int64, error) {
	if user.IsAdmin {
		if err := h.creditSvc.RecordAdminUsage(c.Context(), user.ID, key, refType, refID); err != nil {
			log.Printf("failed to record admin usage for user %d: %v", user.ID, err)
		}
		return 0, user.TotalCredits, nil
	}

	newBalance, err := h.creditSvc.Charge(c.Context(), user.ID, cost, key, refType, refID)
	if err != nil {
		return 0, 0, err
	}

	if h.notifier.Enabled() && newBalance < h.cfg.Credits.LowBalanceThreshold {
		go func(userID, balance int64) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := h.notifier.SendLowBalance(ctx, userID, balance); err != nil {
				log.Printf("low balance notification failed for user %d: %v", userID, err)
			}
		}(user.ID, newBalance)
	}

	return cost, newBalance, nil
}
