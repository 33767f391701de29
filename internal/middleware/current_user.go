package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/noah-isme/classhub-api/internal/models"
	"github.com/noah-isme/classhub-api/internal/repository"
	"github.com/noah-isme/classhub-api/internal/utils"
)

const currentUserKey = "current_user"

// LoadCurrentUser resolves the authenticated account behind the JWT subject
// and stores it in request locals. Runs after JWTProtected; a token whose
// subject no longer exists is rejected.
func LoadCurrentUser(users repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("user_id").(uint)
		if !ok || userID == 0 {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}

		user, err := users.GetByID(c.Context(), userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.SendError(c, fiber.StatusUnauthorized, "account no longer exists")
			}
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to load account")
		}

		c.Locals(currentUserKey, user)
		c.Locals("user_role", string(user.Role))

		return c.Next()
	}
}

// CurrentUser returns the account loaded by LoadCurrentUser.
func CurrentUser(c *fiber.Ctx) (models.User, bool) {
	user, ok := c.Locals(currentUserKey).(models.User)
	return user, ok
}
