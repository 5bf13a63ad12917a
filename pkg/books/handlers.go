package books

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/lendshelf/lendshelf/pkg/errcodes"
	"github.com/lendshelf/lendshelf/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

type handler struct {
	bookService *Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book := &models.Book{
		Name:        params.Name,
		Description: params.Description,
		Count:       *params.Count,
	}
	for _, id := range params.Authors {
		book.Authors = append(book.Authors, &models.Author{ID: id})
	}

	if err := h.bookService.CreateBook(ctx, book); err != nil {
		return errors.WithStack(err)
	}

	logger.FromContext(ctx).Info("book created", logger.Data{"book_id": book.ID, "authors": book.AuthorIDs()})

	return errors.WithStack(c.JSON(http.StatusCreated, book))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	books, total, err := h.bookService.ListBooksWithTotal(ctx, ListBooksOptions{
		Limit:    params.Limit,
		Offset:   params.Offset,
		AuthorID: params.AuthorID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Books []*models.Book `json:"books"`
		Total int            `json:"total"`
	}{books, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	params := UpdateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	// Keep track of what's been changed
	opts := UpdateBookOptions{Columns: []string{}}

	if params.Name != nil && *params.Name != book.Name {
		book.Name = *params.Name
		opts.Columns = append(opts.Columns, "name")
	}
	if params.Description != nil && *params.Description != book.Description {
		book.Description = *params.Description
		opts.Columns = append(opts.Columns, "description")
	}
	if params.Count != nil && *params.Count != book.Count {
		book.Count = *params.Count
		opts.Columns = append(opts.Columns, "count")
	}

	if err := h.bookService.UpdateBook(ctx, book, opts); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) deleteBook(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	deleted, err := h.bookService.DeleteBook(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}
	if !deleted {
		return errcodes.NotFound("Book")
	}

	logger.FromContext(ctx).Info("book deleted", logger.Data{"book_id": id})

	return c.NoContent(http.StatusNoContent)
}

func (h *handler) addAuthors(c echo.Context) error {
	return h.changeAuthors(c, h.bookService.AddAuthors)
}

func (h *handler) removeAuthors(c echo.Context) error {
	return h.changeAuthors(c, h.bookService.RemoveAuthors)
}

func (h *handler) changeAuthors(c echo.Context, change func(ctx context.Context, book *models.Book, authorIDs []int) error) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	params := AuthorIDsPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	if err := change(ctx, book, params.AuthorIDs); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}
