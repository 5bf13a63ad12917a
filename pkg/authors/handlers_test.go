package authors

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
	authMiddleware := auth.NewMiddleware(authService)
	RegisterRoutesWithGroup(e.Group("/authors", authMiddleware.Authenticate), db, authMiddleware)

	librarian, err := authService.GenerateToken(testutils.CreateUser(t, db, models.RoleLibrarian))
	require.NoError(t, err)
	visitor, err := authService.GenerateToken(testutils.CreateUser(t, db, models.RoleVisitor))
	require.NoError(t, err)

	body := `{"name":"Mikhail","surname":"Lermontov","patronymic":"Yuryevich"}`

	rec := testutils.Do(e, http.MethodPost, "/authors", body, visitor)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = testutils.Do(e, http.MethodPost, "/authors", body, librarian)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := models.Author{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotZero(t, created.ID)
	path := fmt.Sprintf("/authors/%d", created.ID)

	rec = testutils.Do(e, http.MethodGet, path, "", visitor)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, fmt.Sprintf(
		`{"id":%d,"name":"Mikhail","surname":"Lermontov","patronymic":"Yuryevich"}`, created.ID,
	), rec.Body.String())

	rec = testutils.Do(e, http.MethodPost, "/authors", `{"name":"ThisNameIsFarTooLongForTheColumn"}`, librarian)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = testutils.Do(e, http.MethodPatch, path, `{"surname":"Lermontoff"}`, librarian)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"surname":"Lermontoff"`)
	assert.Contains(t, rec.Body.String(), `"name":"Mikhail"`)

	rec = testutils.Do(e, http.MethodGet, "/authors?limit=10", "", visitor)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)

	rec = testutils.Do(e, http.MethodDelete, path, "", librarian)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = testutils.Do(e, http.MethodDelete, path, "", librarian)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = testutils.Do(e, http.MethodGet, path, "", visitor)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
