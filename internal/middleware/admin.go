package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jeanyves777/flowsmartly-sub008/internal/service"
)

const (
	AdminKey   = "is_admin"
	AdminIDKey = "admin_id"
)

// AdminAuth gates admin routes on the account's privileged flag.
func AdminAuth(adminSvc *service.AdminService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := GetUserID(c)
		if userID == 0 {
			return unauthorized(c)
		}

		isAdmin, err := adminSvc.IsAdmin(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"error":   fiber.Map{"code": "INTERNAL_ERROR", "message": "failed to check admin status"},
			})
		}

		if !isAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"error":   fiber.Map{"code": "FORBIDDEN", "message": "access denied"},
			})
		}

		c.Locals(AdminKey, true)
		c.Locals(AdminIDKey, userID)

		return c.Next()
	}
}

func GetAdminID(c *fiber.Ctx) int64 {
	adminID, ok := c.Locals(AdminIDKey).(int64)
	if !ok {
		return 0
	}
	return adminID
}

func IsAdmin(c *fiber.Ctx) bool {
	isAdmin, ok := c.Locals(AdminKey).(bool)
	return ok && isAdmin
}
