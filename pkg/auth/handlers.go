package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lendshelf/lendshelf/pkg/errcodes"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

const (
	// CookieName is the name of the session cookie.
	CookieName = "lendshelf_session"
	// CookieMaxAge is how long the cookie is valid.
	CookieMaxAge = TokenExpiry
)

type handler struct {
	authService *Service
}

func sessionCookie(c echo.Context, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Request().TLS != nil || c.Request().Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *handler) login(c echo.Context) error {
	ctx := c.Request().Context()

	params := LoginPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.authService.Authenticate(ctx, params.Email, params.Password)
	if err != nil {
		return err
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		return errors.WithStack(err)
	}
	c.SetCookie(sessionCookie(c, token, int(CookieMaxAge.Seconds())))

	return c.JSON(http.StatusOK, MeResponse{user, user.IsLibrarian()})
}

func (h *handler) logout(c echo.Context) error {
	c.SetCookie(sessionCookie(c, "", -1))
	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// me must run behind Authenticate.
func (h *handler) me(c echo.Context) error {
	user, ok := UserFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}
	return c.JSON(http.StatusOK, MeResponse{user, user.IsLibrarian()})
}

// status returns whether the app needs initial setup.
func (h *handler) status(c echo.Context) error {
	ctx := c.Request().Context()

	count, err := h.authService.CountUsers(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.JSON(http.StatusOK, StatusResponse{
		NeedsSetup: count == 0,
	})
}

// setup creates the first librarian and logs them in.
func (h *handler) setup(c echo.Context) error {
	ctx := c.Request().Context()

	params := SetupPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.authService.CreateFirstLibrarian(ctx, SetupOptions{
		Email:      params.Email,
		FirstName:  params.FirstName,
		MiddleName: params.MiddleName,
		LastName:   params.LastName,
		Password:   params.Password,
	})
	if err != nil {
		return err
	}

	logger.FromContext(ctx).Info("first librarian created", logger.Data{"user_id": user.ID})

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		return errors.WithStack(err)
	}
	c.SetCookie(sessionCookie(c, token, int(CookieMaxAge.Seconds())))

	return c.JSON(http.StatusCreated, MeResponse{user, user.IsLibrarian()})
}
