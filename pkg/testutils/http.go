package testutils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/lendshelf/lendshelf/pkg/binder"
	"github.com/lendshelf/lendshelf/pkg/errcodes"
	"github.com/stretchr/testify/require"
)

// NewEcho returns an echo instance wired with the app's binder and error
// handler, ready for routes to be registered on it.
func NewEcho(t testing.TB) *echo.Echo {
	t.Helper()

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle
	return e
}

// Do serves a request against e. A non-empty body is sent as JSON and a
// non-empty token as a bearer token.
func Do(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}
