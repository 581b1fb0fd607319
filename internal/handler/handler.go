package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jeanyves777/flowsmartly-sub008/internal/config"
	"github.com/jeanyves777/flowsmartly-sub008/internal/notify"
	"github.com/jeanyves777/flowsmartly-sub008/internal/provider"
	"github.com/jeanyves777/flowsmartly-sub008/internal/service"
)

// MediaProvider is the downstream collaborator that performs the paid work.
type MediaProvider interface {
	GenerateImage(ctx context.Context, req provider.GenerateImageRequest) (*provider.GenerateImageResponse, error)
	GenerateVoiceover(ctx context.Context, req provider.VoiceoverRequest) (*provider.VoiceoverResponse, error)
	SendSMS(ctx context.Context, req provider.SMSRequest) (*provider.SMSResponse, error)
}

type Handler struct {
	cfg       *config.Config
	userSvc   *service.UserService
	creditSvc *service.CreditService
	adminSvc  *service.AdminService
	provider  MediaProvider
	notifier  *notify.Webhook
}

func New(
	cfg *config.Config,
	userSvc *service.UserService,
	creditSvc *service.CreditService,
	adminSvc *service.AdminService,
	mediaProvider MediaProvider,
	notifier *notify.Webhook,
) *Handler {
	return &Handler{
		cfg:       cfg,
		userSvc:   userSvc,
		creditSvc: creditSvc,
		adminSvc:  adminSvc,
		provider:  mediaProvider,
		notifier:  notifier,
	}
}

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}

// respondOK wraps data in the success envelope.
func respondOK(c *fiber.Ctx, data fiber.Map) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

// respondError emits the error envelope. The code is machine-readable;
// the message is what clients display.
func respondError(c *fiber.Ctx, status int, code, message string) error {
	errBody := fiber.Map{"message": message}
	if code != "" {
		errBody["code"] = code
	}
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   errBody,
	})
}

func respondValidationError(c *fiber.Ctx, details string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error": fiber.Map{
			"code":    "VALIDATION_ERROR",
			"message": "invalid request",
			"details": details,
		},
	})
}

func respondUnauthorized(c *fiber.Ctx) error {
	return respondError(c, fiber.StatusUnauthorized, "", "Unauthorized")
}

// respondDenied renders an eligibility denial. Denials are decisions, not
// faults: the status is 403 and the code tells the client which copy to show.
func respondDenied(c *fiber.Ctx, decision service.Decision) error {
	switch decision.Reason {
	case service.DenyFreeCreditsRestricted:
		return respondError(c, fiber.StatusForbidden, string(decision.Reason),
			"free credits are restricted to email marketing")
	default:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"error": fiber.Map{
				"code":      string(service.DenyInsufficientCredits),
				"message":   "not enough credits, please top up",
				"shortfall": decision.Shortfall,
			},
		})
	}
}

// respondChargeError maps a failed debit. A denial sentinel means a
// concurrent request spent the balance between the eligibility check and
// the debit; anything else is a ledger write failure and surfaces as 500.
func respondChargeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrFreeCreditsRestricted):
		return respondError(c, fiber.StatusForbidden, string(service.DenyFreeCreditsRestricted),
			"free credits are restricted to email marketing")
	case errors.Is(err, service.ErrInsufficientCredits):
		return respondError(c, fiber.StatusForbidden, string(service.DenyInsufficientCredits),
			"not enough credits, please top up")
	default:
		return respondError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR",
			"failed to record charge")
	}
}

func respondProviderError(c *fiber.Ctx) error {
	// Provider failures are sanitized; no upstream payloads reach clients.
	return respondError(c, fiber.StatusBadGateway, "PROVIDER_ERROR",
		"generation service is unavailable, you have not been charged")
}
