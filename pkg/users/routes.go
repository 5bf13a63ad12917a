package users

import (
	"github.com/labstack/echo/v4"
	"github.com/lendshelf/lendshelf/pkg/auth"
	"github.com/lendshelf/lendshelf/pkg/events"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers all user routes.
func RegisterRoutes(e *echo.Echo, db *bun.DB, authMiddleware *auth.Middleware, publisher events.Publisher) *Service {
	userService := NewService(db, publisher)

	h := &handler{
		userService: userService,
	}

	users := e.Group("/users")

	// All user routes require authentication
	users.Use(authMiddleware.Authenticate)

	users.GET("", h.list, authMiddleware.RequireLibrarian)
	users.GET("/:id", h.retrieve, authMiddleware.RequireLibrarian)
	users.POST("", h.create, authMiddleware.RequireLibrarian)
	users.PATCH("/:id", h.update, authMiddleware.RequireLibrarian)
	users.DELETE("/:id", h.deleteUser, authMiddleware.RequireLibrarian)

	// Anyone can reset their own password; librarians can reset anyone's.
	users.POST("/:id/reset-password", h.resetPassword)

	return userService
}
