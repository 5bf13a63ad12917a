package orders

import (
	"github.com/labstack/echo/v4"
	"github.com/lendshelf/lendshelf/pkg/auth"
	"github.com/lendshelf/lendshelf/pkg/books"
	"github.com/lendshelf/lendshelf/pkg/events"
	"github.com/lendshelf/lendshelf/pkg/idempotency"
	"github.com/lendshelf/lendshelf/pkg/users"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers order routes on a group that already
// requires authentication. Visitors can only read their own orders.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, authMiddleware *auth.Middleware, publisher events.Publisher, idem idempotency.Store) {
	h := &handler{
		orderService: NewService(db, publisher),
		bookService:  books.NewService(db, publisher),
		userService:  users.NewService(db, publisher),
		idem:         idem,
	}

	g.GET("", h.list)
	g.GET("/not-returned", h.notReturned, authMiddleware.RequireLibrarian)
	g.GET("/:id", h.retrieve)
	g.POST("", h.create, authMiddleware.RequireLibrarian)
	g.PATCH("/:id", h.update, authMiddleware.RequireLibrarian)
	g.POST("/:id/return", h.returnOrder, authMiddleware.RequireLibrarian)
	g.DELETE("/:id", h.deleteOrder, authMiddleware.RequireLibrarian)
}
