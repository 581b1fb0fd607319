package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jeanyves777/flowsmartly-sub008/internal/config"
)

const UserIDKey = "user_id"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Auth validates the bearer token and stores the user id in request locals.
// Tokens are "<user_id>.<expiry_unix>.<hmac>" where the hmac is SHA-256 over
// the first two fields with the server secret.
func Auth(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get("Authorization")
		token = strings.TrimPrefix(token, "Bearer ")

		if token == "" {
			return unauthorized(c)
		}

		userID, err := ValidateToken(token, cfg.Server.TokenSecret)
		if err != nil {
			return unauthorized(c)
		}

		c.Locals(UserIDKey, userID)
		return c.Next()
	}
}

// IssueToken mints a signed token for a user.
func IssueToken(userID int64, ttl time.Duration, secret string) string {
	expiry := time.Now().Add(ttl).Unix()
	payload := fmt.Sprintf("%d.%d", userID, expiry)
	return payload + "." + sign(payload, secret)
}

// ValidateToken checks the signature and expiry and returns the user id.
func ValidateToken(token, secret string) (int64, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return 0, ErrInvalidToken
	}

	payload := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(sign(payload, secret)), []byte(parts[2])) {
		return 0, ErrInvalidToken
	}

	expiry, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	if time.Now().Unix() > expiry {
		return 0, ErrTokenExpired
	}

	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || userID <= 0 {
		return 0, ErrInvalidToken
	}
	return userID, nil
}

func sign(payload, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"error":   fiber.Map{"message": "Unauthorized"},
	})
}

func GetUserID(c *fiber.Ctx) int64 {
	userID, ok := c.Locals(UserIDKey).(int64)
	if !ok {
		return 0
	}
	return userID
}
