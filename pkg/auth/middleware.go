package auth

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/lendshelf/lendshelf/pkg/errcodes"
	"github.com/lendshelf/lendshelf/pkg/models"
)

const contextKeyUser = "user"

// Middleware provides authentication middleware.
type Middleware struct {
	authService *Service
}

// NewMiddleware creates a new auth middleware.
func NewMiddleware(authService *Service) *Middleware {
	return &Middleware{
		authService: authService,
	}
}

// Authenticate reads the JWT from the session cookie, or from an
// "Authorization: Bearer" header when there is no cookie, and stores the
// active user on the context. It returns 401 otherwise.
func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		token := tokenFromRequest(c)
		if token == "" {
			return errcodes.Unauthorized("Authentication required")
		}

		claims, err := m.authService.ValidateToken(token)
		if err != nil {
			return errcodes.Unauthorized("Invalid or expired token")
		}

		// Verify user still exists and is active
		user, err := m.authService.GetUserByID(ctx, claims.UserID)
		if err != nil {
			return errcodes.Unauthorized("User not found or inactive")
		}

		c.Set(contextKeyUser, user)

		return next(c)
	}
}

// RequireLibrarian rejects visitors with a 403. Must be used after
// Authenticate.
func (m *Middleware) RequireLibrarian(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, ok := UserFromContext(c)
		if !ok {
			return errcodes.Unauthorized("Authentication required")
		}
		if !user.IsLibrarian() {
			return errcodes.Forbidden("Managing the library as a visitor")
		}
		return next(c)
	}
}

// UserFromContext returns the user stored by Authenticate.
func UserFromContext(c echo.Context) (*models.User, bool) {
	user, ok := c.Get(contextKeyUser).(*models.User)
	return user, ok
}

func tokenFromRequest(c echo.Context) string {
	if cookie, err := c.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	return ""
}
