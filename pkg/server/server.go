package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/lendshelf/lendshelf/pkg/auth"
	"github.com/lendshelf/lendshelf/pkg/authors"
	"github.com/lendshelf/lendshelf/pkg/binder"
	"github.com/lendshelf/lendshelf/pkg/books"
	"github.com/lendshelf/lendshelf/pkg/config"
	"github.com/lendshelf/lendshelf/pkg/errcodes"
	"github.com/lendshelf/lendshelf/pkg/events"
	"github.com/lendshelf/lendshelf/pkg/idempotency"
	"github.com/lendshelf/lendshelf/pkg/orders"
	"github.com/lendshelf/lendshelf/pkg/testutils"
	"github.com/lendshelf/lendshelf/pkg/users"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/uptrace/bun"
)

func New(cfg *config.Config, db *bun.DB, publisher events.Publisher, idem idempotency.Store) (*http.Server, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)

	// Register auth routes and get the auth service
	authService := auth.RegisterRoutes(e, db, cfg.JWTSecret)
	authMiddleware := auth.NewMiddleware(authService)

	// User management is for librarians
	users.RegisterRoutes(e, db, authMiddleware, publisher)

	registerLibraryRoutes(e, db, authMiddleware, publisher, idem)

	if cfg.Environment == "test" {
		testutils.RegisterRoutes(e, db)
	}

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

// registerLibraryRoutes registers the catalog and loan routes. Every one of
// them requires authentication; the packages restrict writes to librarians.
func registerLibraryRoutes(e *echo.Echo, db *bun.DB, authMiddleware *auth.Middleware, publisher events.Publisher, idem idempotency.Store) {
	authorsGroup := e.Group("/authors")
	authorsGroup.Use(authMiddleware.Authenticate)
	authors.RegisterRoutesWithGroup(authorsGroup, db, authMiddleware)

	booksGroup := e.Group("/books")
	booksGroup.Use(authMiddleware.Authenticate)
	books.RegisterRoutesWithGroup(booksGroup, db, authMiddleware, publisher)

	ordersGroup := e.Group("/orders")
	ordersGroup.Use(authMiddleware.Authenticate)
	orders.RegisterRoutesWithGroup(ordersGroup, db, authMiddleware, publisher, idem)
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
