package auth

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers the auth routes and returns the service so the
// caller can build the middleware from it.
func RegisterRoutes(e *echo.Echo, db *bun.DB, jwtSecret string) *Service {
	authService := NewService(db, jwtSecret)
	authMiddleware := NewMiddleware(authService)

	h := &handler{
		authService: authService,
	}

	g := e.Group("/auth")
	g.POST("/login", h.login)
	g.POST("/logout", h.logout)
	g.GET("/status", h.status)
	g.POST("/setup", h.setup)
	g.GET("/me", h.me, authMiddleware.Authenticate)

	return authService
}
