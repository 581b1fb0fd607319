package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/gofiber/fiber/v2"
)

type PurchaseWebhookPayload struct {
	UserID     int64  `json:"user_id"`
	Credits    int64  `json:"credits"`
	PurchaseID string `json:"purchase_id"`
}

// PurchaseWebhook is called by the billing provider when a credit-pack
// purchase settles. The body is authenticated with an HMAC-SHA256 signature
// over the raw payload in X-Billing-Signature. Purchased credits fund the
// unrestricted portion of the balance only.
func (h *Handler) PurchaseWebhook(c *fiber.Ctx) error {
	if h.cfg.Provider.BillingSecret == "" {
		return respondError(c, fiber.StatusServiceUnavailable, "NOT_CONFIGURED", "billing webhook not configured")
	}

	signature := c.Get("X-Billing-Signature")
	if !validSignature(c.Body(), signature, h.cfg.Provider.BillingSecret) {
		return respondUnauthorized(c)
	}

	var payload PurchaseWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return respondValidationError(c, "malformed JSON body")
	}
	if payload.UserID <= 0 || payload.Credits <= 0 || payload.PurchaseID == "" {
		return respondValidationError(c, "user_id, credits and purchase_id are required")
	}

	balance, err := h.creditSvc.GrantPurchase(c.Context(), payload.UserID, payload.Credits, payload.PurchaseID)
	if err != nil {
		return respondError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "failed to credit purchase")
	}

	return respondOK(c, fiber.Map{
		"new_balance": balance,
	})
}

func validSignature(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
