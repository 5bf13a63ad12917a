package orders

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lendshelf/lendshelf/pkg/auth"
	"github.com/lendshelf/lendshelf/pkg/books"
	"github.com/lendshelf/lendshelf/pkg/errcodes"
	"github.com/lendshelf/lendshelf/pkg/idempotency"
	"github.com/lendshelf/lendshelf/pkg/models"
	"github.com/lendshelf/lendshelf/pkg/users"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

// HeaderIdempotencyKey makes POST /orders safe to retry.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotentReplayed is set on responses that return an order created
// by an earlier request with the same key.
const HeaderIdempotentReplayed = "Idempotent-Replayed"

// ErrIdempotencyKeyReused is returned when a key comes back with a different
// payload than the request that first used it.
var ErrIdempotencyKeyReused = errcodes.ValidationError("Idempotency-Key was already used for a different order")

type handler struct {
	orderService *Service
	bookService  *books.Service
	userService  *users.Service
	idem         idempotency.Store
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)

	params := CreateOrderPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	key := c.Request().Header.Get(HeaderIdempotencyKey)
	var fingerprint string
	if key != "" {
		var err error
		fingerprint, err = idempotency.Fingerprint(params)
		if err != nil {
			return errors.WithStack(err)
		}

		entry, ok, err := h.idem.Lookup(ctx, key)
		if err != nil {
			log.Err(err).Warn("idempotency lookup failed", logger.Data{"key": key})
		}
		if ok && entry.Fingerprint != fingerprint {
			return ErrIdempotencyKeyReused
		}
		if ok {
			order, err := h.orderService.RetrieveOrder(ctx, RetrieveOrderOptions{ID: &entry.OrderID})
			if err == nil {
				c.Response().Header().Set(HeaderIdempotentReplayed, "true")
				return errors.WithStack(c.JSON(http.StatusOK, order))
			}
			// The order may have been deleted since; create a fresh one.
			if !errors.Is(err, errcodes.NotFound("Order")) {
				return errors.WithStack(err)
			}
		}
	}

	user, err := h.userService.RetrieveUser(ctx, users.RetrieveUserOptions{ID: &params.User})
	if err != nil {
		return errors.WithStack(err)
	}
	book, err := h.bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &params.Book})
	if err != nil {
		return errors.WithStack(err)
	}

	order, err := h.orderService.CreateOrder(ctx, user, book, time.Unix(params.PlatedEndAt, 0))
	if err != nil {
		return errors.WithStack(err)
	}

	if key != "" {
		entry := idempotency.Entry{OrderID: order.ID, Fingerprint: fingerprint}
		if err := h.idem.Remember(ctx, key, entry); err != nil {
			log.Err(err).Warn("failed to remember idempotency key", logger.Data{"key": key, "order_id": order.ID})
		}
	}

	log.Info("order created", logger.Data{"order_id": order.ID, "user_id": user.ID, "book_id": book.ID})

	return errors.WithStack(c.JSON(http.StatusCreated, order))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Order")
	}

	opts := RetrieveOrderOptions{ID: &id}
	// Visitors only see their own orders.
	if user, ok := auth.UserFromContext(c); ok && !user.IsLibrarian() {
		opts.UserID = &user.ID
	}

	order, err := h.orderService.RetrieveOrder(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, order))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListOrdersQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	opts := ListOrdersOptions{
		Limit:       params.Limit,
		Offset:      params.Offset,
		UserID:      params.UserID,
		BookID:      params.BookID,
		NotReturned: params.NotReturned,
	}
	if user, ok := auth.UserFromContext(c); ok && !user.IsLibrarian() {
		opts.UserID = &user.ID
	}

	orders, total, err := h.orderService.ListOrdersWithTotal(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Orders []*models.Order `json:"orders"`
		Total  int             `json:"total"`
	}{orders, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) notReturned(c echo.Context) error {
	ctx := c.Request().Context()

	orders, err := h.orderService.ListNotReturnedOrders(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Orders []*models.Order `json:"orders"`
		Total  int             `json:"total"`
	}{orders, len(orders)}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Order")
	}

	params := UpdateOrderPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	order, err := h.orderService.RetrieveOrder(ctx, RetrieveOrderOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	// Keep track of what's been changed
	opts := UpdateOrderOptions{Columns: []string{}}

	if params.PlatedEndAt != nil && *params.PlatedEndAt != order.PlatedEndAt.Unix() {
		order.PlatedEndAt = time.Unix(*params.PlatedEndAt, 0)
		opts.Columns = append(opts.Columns, "plated_end_at")
	}
	if params.EndAt != nil && (order.EndAt == nil || *params.EndAt != order.EndAt.Unix()) {
		endAt := time.Unix(*params.EndAt, 0)
		order.EndAt = &endAt
		opts.Columns = append(opts.Columns, "end_at")
	}

	if err := h.orderService.UpdateOrder(ctx, order, opts); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, order))
}

func (h *handler) returnOrder(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Order")
	}

	order, err := h.orderService.RetrieveOrder(ctx, RetrieveOrderOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	if err := h.orderService.ReturnOrder(ctx, order, time.Now()); err != nil {
		return errors.WithStack(err)
	}

	logger.FromContext(ctx).Info("order returned", logger.Data{"order_id": order.ID})

	return errors.WithStack(c.JSON(http.StatusOK, order))
}

func (h *handler) deleteOrder(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Order")
	}

	deleted, err := h.orderService.DeleteOrder(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}
	if !deleted {
		return errcodes.NotFound("Order")
	}

	return c.NoContent(http.StatusNoContent)
}
