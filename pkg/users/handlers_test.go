package users

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/lendshelf/lendshelf/pkg/auth"
	"github.com/lendshelf/lendshelf/pkg/models"
	"github.com/lendshelf/lendshelf/pkg/testutils"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlers(t *testing.T) {
	t.Parallel()
	db := testutils.NewDB(t)
	e := testutils.NewEcho(t)

	authService := auth.NewService(db, "test-secret")
	RegisterRoutes(e, db, auth.NewMiddleware(authService), nil)

	librarian := testutils.CreateUser(t, db, models.RoleLibrarian)
	visitor := testutils.CreateUser(t, db, models.RoleVisitor)
	librarianToken, err := authService.GenerateToken(librarian)
	require.NoError(t, err)
	visitorToken, err := authService.GenerateToken(visitor)
	require.NoError(t, err)

	rec := testutils.Do(e, http.MethodGet, "/users", "", visitorToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	body := `{"email":"new@example.com","first_name":"Pavel","last_name":"Sidorov","password":"password123","role":0}`
	rec = testutils.Do(e, http.MethodPost, "/users", body, librarianToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := int(created["id"].(float64))
	path := fmt.Sprintf("/users/%d", id)

	rec = testutils.Do(e, http.MethodPost, "/users", body, librarianToken)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email already exists")

	rec = testutils.Do(e, http.MethodPatch, path, `{"role":1}`, librarianToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"role":1`)

	rec = testutils.Do(e, http.MethodGet, "/users?role=1", "", librarianToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":2`)

	rec = testutils.Do(e, http.MethodDelete, fmt.Sprintf("/users/%d", librarian.ID), "", librarianToken)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "librarians can't delete themselves")

	rec = testutils.Do(e, http.MethodDelete, path, "", librarianToken)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = testutils.Do(e, http.MethodDelete, path, "", librarianToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlers_ResetPassword(t *testing.T) {
	t.Parallel()
	db := testutils.NewDB(t)
	e := testutils.NewEcho(t)

	authService := auth.NewService(db, "test-secret")
	RegisterRoutes(e, db, auth.NewMiddleware(authService), nil)

	visitor := testutils.CreateUser(t, db, models.RoleVisitor)
	other := testutils.CreateUser(t, db, models.RoleVisitor)
	token, err := authService.GenerateToken(visitor)
	require.NoError(t, err)
	path := fmt.Sprintf("/users/%d/reset-password", visitor.ID)

	rec := testutils.Do(e, http.MethodPost, path, `{"new_password":"another-password"}`, token)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = testutils.Do(e, http.MethodPost, path, `{"current_password":"wrong","new_password":"another-password"}`, token)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Current password is incorrect")

	rec = testutils.Do(e, http.MethodPost, path,
		`{"current_password":"`+testutils.Password+`","new_password":"another-password"}`, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, err = authService.Authenticate(t.Context(), visitor.Email, "another-password")
	require.NoError(t, err)

	rec = testutils.Do(e, http.MethodPost, fmt.Sprintf("/users/%d/reset-password", other.ID),
		`{"new_password":"another-password"}`, token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
