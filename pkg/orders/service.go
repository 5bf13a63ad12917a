package orders

import (
	"context"
	"database/sql"
	"time"

	"github.com/lendshelf/lendshelf/pkg/errcodes"
	"github.com/lendshelf/lendshelf/pkg/events"
	"github.com/lendshelf/lendshelf/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

var (
	// ErrUnsavedReference is returned by CreateOrder when the user or the book
	// hasn't been persisted yet.
	ErrUnsavedReference = errcodes.ValidationError("Order requires a saved user and book")
	// ErrAlreadyReturned is returned by ReturnOrder for an order whose book is
	// already back.
	ErrAlreadyReturned = errcodes.ValidationError("Order has already been returned")
)

type RetrieveOrderOptions struct {
	ID     *int
	UserID *int
}

type ListOrdersOptions struct {
	Limit       *int
	Offset      *int
	UserID      *int
	BookID      *int
	NotReturned bool

	includeTotal bool
}

type UpdateOrderOptions struct {
	Columns []string
}

type Service struct {
	db        *bun.DB
	publisher events.Publisher
}

// NewService returns an order service that reports loan events to publisher.
// A nil publisher drops them.
func NewService(db *bun.DB, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{db, publisher}
}

// CreateOrder lends book to user until platedEndAt. It returns a nil order and
// ErrUnsavedReference when either of them has no ID yet.
func (svc *Service) CreateOrder(ctx context.Context, user *models.User, book *models.Book, platedEndAt time.Time) (*models.Order, error) {
	if user == nil || user.ID == 0 || book == nil || book.ID == 0 {
		return nil, ErrUnsavedReference
	}

	order := &models.Order{
		UserID:      user.ID,
		User:        user,
		BookID:      book.ID,
		Book:        book,
		CreatedAt:   time.Now().Truncate(time.Second),
		PlatedEndAt: platedEndAt,
	}

	_, err := svc.db.
		NewInsert().
		Model(order).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	svc.publish(ctx, events.OrderCreated, order)

	return order, nil
}

// RetrieveOrder returns errcodes.NotFound("Order") when no row matches.
func (svc *Service) RetrieveOrder(ctx context.Context, opts RetrieveOrderOptions) (*models.Order, error) {
	order := &models.Order{}

	q := svc.db.
		NewSelect().
		Model(order)

	if opts.ID != nil {
		q = q.Where("o.id = ?", *opts.ID)
	}
	if opts.UserID != nil {
		q = q.Where("o.user_id = ?", *opts.UserID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Order")
		}
		return nil, errors.WithStack(err)
	}

	return order, nil
}

func (svc *Service) ListOrders(ctx context.Context, opts ListOrdersOptions) ([]*models.Order, error) {
	o, _, err := svc.listOrdersWithTotal(ctx, opts)
	return o, errors.WithStack(err)
}

func (svc *Service) ListOrdersWithTotal(ctx context.Context, opts ListOrdersOptions) ([]*models.Order, int, error) {
	opts.includeTotal = true
	return svc.listOrdersWithTotal(ctx, opts)
}

// ListNotReturnedOrders returns every order whose end_at is unset.
func (svc *Service) ListNotReturnedOrders(ctx context.Context) ([]*models.Order, error) {
	return svc.ListOrders(ctx, ListOrdersOptions{NotReturned: true})
}

func (svc *Service) listOrdersWithTotal(ctx context.Context, opts ListOrdersOptions) ([]*models.Order, int, error) {
	orders := []*models.Order{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&orders).
		Order("o.id ASC")

	if opts.UserID != nil {
		q = q.Where("o.user_id = ?", *opts.UserID)
	}
	if opts.BookID != nil {
		q = q.Where("o.book_id = ?", *opts.BookID)
	}
	if opts.NotReturned {
		q = q.Where("o.end_at IS NULL")
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return orders, total, nil
}

// UpdateOrder writes the given columns of order. No columns means nothing
// changed, and the row is left alone.
func (svc *Service) UpdateOrder(ctx context.Context, order *models.Order, opts UpdateOrderOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	res, err := svc.db.
		NewUpdate().
		Model(order).
		Column(opts.Columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errcodes.NotFound("Order")
	}
	return nil
}

// ReturnOrder marks the book as returned at the given time. Returning an
// order twice fails with ErrAlreadyReturned.
func (svc *Service) ReturnOrder(ctx context.Context, order *models.Order, at time.Time) error {
	if order.IsReturned() {
		return ErrAlreadyReturned
	}

	endAt := at.Truncate(time.Second)
	res, err := svc.db.
		NewUpdate().
		Model((*models.Order)(nil)).
		Set("end_at = ?", endAt).
		Where("id = ?", order.ID).
		Where("end_at IS NULL").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Either someone returned it first or it was deleted.
		if _, err := svc.RetrieveOrder(ctx, RetrieveOrderOptions{ID: &order.ID}); err != nil {
			return err
		}
		return ErrAlreadyReturned
	}

	order.EndAt = &endAt
	svc.publish(ctx, events.OrderReturned, order)
	return nil
}

// DeleteOrder removes the order. It reports whether the order existed.
func (svc *Service) DeleteOrder(ctx context.Context, orderID int) (bool, error) {
	order := &models.Order{}
	var deleted bool

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(order).
			Where("o.id = ?", orderID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return errors.WithStack(err)
		}

		_, err = tx.NewDelete().
			Model((*models.Order)(nil)).
			Where("id = ?", orderID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if deleted {
		svc.publish(ctx, events.OrderDeleted, order)
	}
	return deleted, nil
}

// publish reports a loan event. The database is the source of truth, so a
// failed publish is logged and doesn't fail the operation.
func (svc *Service) publish(ctx context.Context, eventType string, order *models.Order) {
	events.Emit(ctx, svc.publisher, eventType, order)
}
