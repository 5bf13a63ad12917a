package users

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/lendshelf/lendshelf/pkg/auth"
	"github.com/lendshelf/lendshelf/pkg/errcodes"
	"github.com/lendshelf/lendshelf/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

type handler struct {
	userService *Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateUserPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.userService.CreateUser(ctx, CreateUserOptions(params))
	if err != nil {
		return err
	}

	logger.FromContext(ctx).Info("user created", logger.Data{"user_id": user.ID, "role": user.Role})

	return c.JSON(http.StatusCreated, user)
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("User")
	}

	user, err := h.userService.RetrieveUser(ctx, RetrieveUserOptions{ID: &id})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, user)
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListUsersQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	users, total, err := h.userService.ListUsersWithTotal(ctx, ListUsersOptions{
		Limit:  params.Limit,
		Offset: params.Offset,
		Role:   params.Role,
	})
	if err != nil {
		return err
	}

	resp := struct {
		Users []*models.User `json:"users"`
		Total int            `json:"total"`
	}{users, total}

	return c.JSON(http.StatusOK, resp)
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("User")
	}

	params := UpdateUserPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.userService.RetrieveUser(ctx, RetrieveUserOptions{ID: &id})
	if err != nil {
		return err
	}

	// Keep track of what's been changed
	opts := UpdateUserOptions{Columns: []string{}}

	if params.Email != nil && *params.Email != user.Email {
		user.Email = *params.Email
		opts.Columns = append(opts.Columns, "email")
	}
	if params.FirstName != nil && *params.FirstName != user.FirstName {
		user.FirstName = *params.FirstName
		opts.Columns = append(opts.Columns, "first_name")
	}
	if params.MiddleName != nil && *params.MiddleName != user.MiddleName {
		user.MiddleName = *params.MiddleName
		opts.Columns = append(opts.Columns, "middle_name")
	}
	if params.LastName != nil && *params.LastName != user.LastName {
		user.LastName = *params.LastName
		opts.Columns = append(opts.Columns, "last_name")
	}
	if params.Role != nil && *params.Role != user.Role {
		user.Role = *params.Role
		opts.Columns = append(opts.Columns, "role")
	}
	if params.IsActive != nil && *params.IsActive != user.IsActive {
		user.IsActive = *params.IsActive
		opts.Columns = append(opts.Columns, "is_active")
	}

	if err := h.userService.UpdateUser(ctx, user, opts); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, user)
}

func (h *handler) resetPassword(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("User")
	}

	params := ResetPasswordPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	current, ok := auth.UserFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}

	if current.ID == id {
		// Self-reset requires current password
		if params.CurrentPassword == nil || *params.CurrentPassword == "" {
			return errcodes.ValidationError("Current password is required when resetting your own password")
		}
		if !auth.CheckPassword(*params.CurrentPassword, current.PasswordHash) {
			return errcodes.ValidationError("Current password is incorrect")
		}
	} else if !current.IsLibrarian() {
		return errcodes.Forbidden("Resetting another user's password")
	}

	user, err := h.userService.RetrieveUser(ctx, RetrieveUserOptions{ID: &id})
	if err != nil {
		return err
	}

	if err := h.userService.ResetPassword(ctx, user, params.NewPassword); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Password reset successfully"})
}

func (h *handler) deleteUser(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("User")
	}

	// Prevent deleting yourself
	if current, ok := auth.UserFromContext(c); ok && current.ID == id {
		return errcodes.ValidationError("You cannot delete your own account")
	}

	deleted, err := h.userService.DeleteUser(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return errcodes.NotFound("User")
	}

	logger.FromContext(ctx).Info("user deleted", logger.Data{"user_id": id})

	return c.NoContent(http.StatusNoContent)
}
