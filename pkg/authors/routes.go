package authors

import (
	"github.com/labstack/echo/v4"
	"github.com/lendshelf/lendshelf/pkg/auth"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers author routes on a group that already
// requires authentication. Writes are limited to librarians.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, authMiddleware *auth.Middleware) {
	h := &handler{
		authorService: NewService(db),
	}

	g.GET("", h.list)
	g.GET("/:id", h.retrieve)
	g.POST("", h.create, authMiddleware.RequireLibrarian)
	g.PATCH("/:id", h.update, authMiddleware.RequireLibrarian)
	g.DELETE("/:id", h.deleteAuthor, authMiddleware.RequireLibrarian)
}
