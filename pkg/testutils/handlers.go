package testutils

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lendshelf/lendshelf/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

type handler struct {
	db *bun.DB
}

// createUserRequest is the request body for creating a test user.
type createUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      int    `json:"role" validate:"oneof=0 1"`
}

// createUser creates an active test user with the requested role.
// POST /test/users.
func (h *handler) createUser(c echo.Context) error {
	ctx := c.Request().Context()

	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		return errors.Wrap(err, "failed to hash password")
	}

	now := time.Now()
	user := &models.User{
		CreatedAt:    now,
		UpdatedAt:    now,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: string(hashedPassword),
		Role:         req.Role,
		IsActive:     true,
	}

	_, err = h.db.NewInsert().Model(user).Returning("*").Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to create user")
	}

	return c.JSON(http.StatusCreated, user)
}

// deleteAllResponse is the response body for wiping test data.
type deleteAllResponse struct {
	Deleted int `json:"deleted"`
}

// deleteAllUsers deletes all users along with their orders.
// DELETE /test/users.
func (h *handler) deleteAllUsers(c echo.Context) error {
	ctx := c.Request().Context()

	var deleted int64
	err := h.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().Model((*models.Order)(nil)).Where("1=1").Exec(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to delete orders")
		}

		result, err := tx.NewDelete().Model((*models.User)(nil)).Where("1=1").Exec(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to delete users")
		}
		deleted, _ = result.RowsAffected()
		return nil
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, deleteAllResponse{Deleted: int(deleted)})
}

// deleteCatalog deletes every order, book and author.
// DELETE /test/catalog.
func (h *handler) deleteCatalog(c echo.Context) error {
	ctx := c.Request().Context()

	var deleted int64
	err := h.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, model := range []interface{}{
			(*models.Order)(nil),
			(*models.BookAuthor)(nil),
			(*models.Book)(nil),
			(*models.Author)(nil),
		} {
			result, err := tx.NewDelete().Model(model).Where("1=1").Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
			n, _ := result.RowsAffected()
			deleted += n
		}
		return nil
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, deleteAllResponse{Deleted: int(deleted)})
}
