package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/services"
)

// UserKey is the fiber.Ctx local holding the authenticated *models.User.
const UserKey = "user"

// BearerToken returns the token from an "Authorization: Bearer" header.
func BearerToken(c *fiber.Ctx) (string, bool) {
	parts := strings.Fields(c.Get(fiber.HeaderAuthorization))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// RequireRoles rejects the request before the handler runs unless it carries
// a valid token for one of roles.
func RequireRoles(auth services.AuthService, roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := BearerToken(c)
		if !ok {
			return unauthorized(c)
		}

		user, err := auth.CurrentUser(token)
		if err != nil {
			return unauthorized(c)
		}

		if err := auth.Authorize(user, roles...); err != nil {
			return c.Status(fiber.StatusForbidden).JSON(models.ErrorResponse{
				Detail: "Not enough permissions",
			})
		}

		c.Locals(UserKey, user)
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx) error {
	c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
	return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
		Detail: "Could not validate credentials",
	})
}
