package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/resume-matcher/internal/middleware"
	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/services"
)

type Routes struct {
	Upload      *UploadHandler
	Download    *DownloadHandler
	Auth        *AuthHandler
	AuthService services.AuthService
	// RequireAuth guards uploads with a bearer token.
	RequireAuth bool
}

func Register(app *fiber.App, r Routes) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Resume Matcher Backend",
		})
	})

	api := app.Group("/api/v1")
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	uploadChain := []fiber.Handler{r.Upload.HandleUpload}
	if r.RequireAuth {
		uploadChain = append([]fiber.Handler{
			middleware.RequireRoles(r.AuthService, models.RoleAdmin, models.RoleUser),
		}, uploadChain...)
	}
	app.Post("/upload/", uploadChain...)

	app.Get("/download/:request_id/:filename", r.Download.HandleDownload)
	app.Get("/export/:request_id", r.Download.HandleExport)

	app.Post("/token", r.Auth.HandleToken)
	app.Get("/users/me", middleware.RequireRoles(r.AuthService), r.Auth.HandleMe)
	app.Post("/logout", r.Auth.HandleLogout)
}

// ErrorHandler renders unhandled errors in the same {"detail": ...} shape as
// the handlers.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(models.ErrorResponse{
		Detail: err.Error(),
	})
}
