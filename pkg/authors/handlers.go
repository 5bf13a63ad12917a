package authors

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/lendshelf/lendshelf/pkg/errcodes"
	"github.com/lendshelf/lendshelf/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

type handler struct {
	authorService *Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateAuthorPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	author := &models.Author{
		Name:       params.Name,
		Surname:    params.Surname,
		Patronymic: params.Patronymic,
	}
	if err := h.authorService.CreateAuthor(ctx, author); err != nil {
		return errors.WithStack(err)
	}

	logger.FromContext(ctx).Info("author created", logger.Data{"author_id": author.ID})

	return errors.WithStack(c.JSON(http.StatusCreated, author))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Author")
	}

	author, err := h.authorService.RetrieveAuthor(ctx, RetrieveAuthorOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, author))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListAuthorsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	authors, total, err := h.authorService.ListAuthorsWithTotal(ctx, ListAuthorsOptions{
		Limit:  params.Limit,
		Offset: params.Offset,
		BookID: params.BookID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Authors []*models.Author `json:"authors"`
		Total   int              `json:"total"`
	}{authors, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Author")
	}

	params := UpdateAuthorPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	author, err := h.authorService.RetrieveAuthor(ctx, RetrieveAuthorOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	// Keep track of what's been changed
	opts := UpdateAuthorOptions{Columns: []string{}}

	if params.Name != nil && *params.Name != author.Name {
		author.Name = *params.Name
		opts.Columns = append(opts.Columns, "name")
	}
	if params.Surname != nil && *params.Surname != author.Surname {
		author.Surname = *params.Surname
		opts.Columns = append(opts.Columns, "surname")
	}
	if params.Patronymic != nil && *params.Patronymic != author.Patronymic {
		author.Patronymic = *params.Patronymic
		opts.Columns = append(opts.Columns, "patronymic")
	}

	if err := h.authorService.UpdateAuthor(ctx, author, opts); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, author))
}

func (h *handler) deleteAuthor(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Author")
	}

	deleted, err := h.authorService.DeleteAuthor(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}
	if !deleted {
		return errcodes.NotFound("Author")
	}

	return c.NoContent(http.StatusNoContent)
}
