package middleware

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"coursegate/backend/config"
	"coursegate/backend/models"
	"coursegate/backend/utils"
)

// AuthMiddleware resolves the bearer token to a user row and stores it in
// locals for the handlers.
func AuthMiddleware(db *gorm.DB, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := utils.ExtractUserIDFromToken(c, cfg)
		if err != nil {
			return utils.Unauthorized(c, "Unauthorized")
		}

		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			return utils.Unauthorized(c, "Unauthorized")
		}

		c.Locals("user", &user)
		return c.Next()
	}
}

// RequireRole rejects requests from users outside the given roles. Must run
// after AuthMiddleware.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return utils.Unauthorized(c, "Unauthorized")
		}
		for _, role := range roles {
			if user.Role == role {
				return c.Next()
			}
		}
		return utils.Forbidden(c, "Insufficient role")
	}
}

// CurrentUser returns the authenticated user set by AuthMiddleware.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals("user").(*models.User)
	return user
}
