package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/resume-matcher/internal/middleware"
	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/services"
)

type AuthHandler struct {
	authService services.AuthService
	log         *zap.Logger
}

func NewAuthHandler(authService services.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         log,
	}
}

// HandleToken exchanges form credentials for a bearer token.
func (h *AuthHandler) HandleToken(c *fiber.Ctx) error {
	username := c.FormValue("username")
	password := c.FormValue("password")

	user, err := h.authService.Authenticate(username, password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return errorResponse(c, fiber.StatusBadRequest, "Incorrect username or password")
		}
		h.log.Error("❌ Failed to authenticate", zap.String("username", username), zap.Error(err))
		return errorResponse(c, fiber.StatusInternalServerError, err.Error())
	}

	token, err := h.authService.IssueToken(user)
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(models.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		Role:        string(user.Role),
	})
}

// HandleMe must sit behind middleware.RequireRoles.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	user, ok := c.Locals(middleware.UserKey).(*models.User)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Could not validate credentials")
	}

	return c.JSON(models.UserResponse{
		Username: user.Username,
		FullName: user.FullName,
		Role:     string(user.Role),
	})
}

// HandleLogout is stateless; clients drop the token.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Logged out successfully",
	})
}
