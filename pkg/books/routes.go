package books

import (
	"github.com/labstack/echo/v4"
	"github.com/lendshelf/lendshelf/pkg/auth"
	"github.com/lendshelf/lendshelf/pkg/events"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers book routes on a group that already
// requires authentication. Writes are limited to librarians.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, authMiddleware *auth.Middleware, publisher events.Publisher) {
	h := &handler{
		bookService: NewService(db, publisher),
	}

	g.GET("", h.list)
	g.GET("/:id", h.retrieve)
	g.POST("", h.create, authMiddleware.RequireLibrarian)
	g.PATCH("/:id", h.update, authMiddleware.RequireLibrarian)
	g.DELETE("/:id", h.deleteBook, authMiddleware.RequireLibrarian)
	g.POST("/:id/authors", h.addAuthors, authMiddleware.RequireLibrarian)
	g.DELETE("/:id/authors", h.removeAuthors, authMiddleware.RequireLibrarian)
}
