package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lendshelf/lendshelf/pkg/errcodes"
	"github.com/lendshelf/lendshelf/pkg/events"
	"github.com/lendshelf/lendshelf/pkg/models"
	"github.com/lendshelf/lendshelf/pkg/testutils"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	eventType string
	orderID   int
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, order *models.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, recordedEvent{eventType, order.ID})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) recorded() []recordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]recordedEvent(nil), p.events...)
}

func dueIn(d time.Duration) time.Time {
	return time.Now().Add(d).Truncate(time.Second)
}

func TestCreateOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := testutils.NewDB(t)
	pub := &recordingPublisher{}
	svc := NewService(db, pub)

	user := testutils.CreateUser(t, db, models.RoleVisitor)
	book := testutils.CreateBook(t, db, "Anna Karenina")
	due := dueIn(14 * 24 * time.Hour)

	order, err := svc.CreateOrder(ctx, user, book, due)
	require.NoError(t, err)
	assert.NotZero(t, order.ID)
	assert.Equal(t, user.ID, order.UserID)
	assert.Equal(t, book.ID, order.BookID)
	assert.False(t, order.IsReturned())
	assert.WithinDuration(t, time.Now(), order.CreatedAt, 2*time.Second)

	got, err := svc.RetrieveOrder(ctx, RetrieveOrderOptions{ID: &order.ID})
	require.NoError(t, err)
	assert.Nil(t, got.EndAt)
	assert.Equal(t, due.Unix(), got.PlatedEndAt.Unix())

	assert.Equal(t, []recordedEvent{{events.OrderCreated, order.ID}}, pub.recorded())
}

func TestCreateOrder_UnsavedReference(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := testutils.NewDB(t)
	pub := &recordingPublisher{}
	svc := NewService(db, pub)

	user := testutils.CreateUser(t, db, models.RoleVisitor)
	book := testutils.CreateBook(t, db, "Crime and Punishment")
	due := dueIn(time.Hour)

	tests := []struct {
		name string
		user *models.User
		book *models.Book
	}{
		{"nil user", nil, book},
		{"nil book", user, nil},
		{"unsaved user", &models.User{Email: "new@example.com"}, book},
		{"unsaved book", user, &models.Book{Name: "Draft"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := svc.CreateOrder(ctx, tt.user, tt.book, due)
			assert.Nil(t, order)
			require.ErrorIs(t, err, ErrUnsavedReference)
		})
	}

	count, err := db.NewSelect().Model((*models.Order)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, pub.recorded())
}

func TestCreateOrder_PublishFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	db := testutils.NewDB(t)
	svc := NewService(db, &recordingPublisher{err: errors.New("broker down")})

	order, err := svc.CreateOrder(context.Background(),
		testutils.CreateUser(t, db, models.RoleVisitor),
		testutils.CreateBook(t, db, "Fathers and Sons"),
		dueIn(time.Hour),
	)
	require.NoError(t, err)
	assert.NotZero(t, order.ID)
}

func TestRetrieveOrder_NotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := testutils.NewDB(t)
	svc := NewService(db, nil)

	user := testutils.CreateUser(t, db, models.RoleVisitor)
	stranger := testutils.CreateUser(t, db, models.RoleVisitor)
	order := testutils.CreateOrder(t, db, user, testutils.CreateBook(t, db, "Oblomov"))

	missing := order.ID + 1
	got, err := svc.RetrieveOrder(ctx, RetrieveOrderOptions{ID: &missing})
	assert.Nil(t, got)
	require.ErrorIs(t, err, errcodes.NotFound("Order"))

	_, err = svc.RetrieveOrder(ctx, RetrieveOrderOptions{ID: &order.ID, UserID: &stranger.ID})
	require.ErrorIs(t, err, errcodes.NotFound("Order"), "someone else's order looks missing")
}

func TestListNotReturnedOrders(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := testutils.NewDB(t)
	svc := NewService(db, nil)

	user := testutils.CreateUser(t, db, models.RoleVisitor)
	book := testutils.CreateBook(t, db, "Dead Souls")

	var outstanding []int
	for i := 0; i < 6; i++ {
		order := testutils.CreateOrder(t, db, user, book)
		if i%2 == 0 {
			require.NoError(t, svc.ReturnOrder(ctx, order, time.Now()))
		} else {
			outstanding = append(outstanding, order.ID)
		}
	}

	orders, err := svc.ListNotReturnedOrders(ctx)
	require.NoError(t, err)
	ids := []int{}
	for _, o := range orders {
		assert.Nil(t, o.EndAt)
		ids = append(ids, o.ID)
	}
	assert.Equal(t, outstanding, ids)
}

func TestListOrders_Filters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := testutils.NewDB(t)
	svc := NewService(db, nil)

	alice := testutils.CreateUser(t, db, models.RoleVisitor)
	bob := testutils.CreateUser(t, db, models.RoleVisitor)
	b1 := testutils.CreateBook(t, db, "Mumu")
	b2 := testutils.CreateBook(t, db, "Asya")

	o1 := testutils.CreateOrder(t, db, alice, b1)
	o2 := testutils.CreateOrder(t, db, bob, b1)
	o3 := testutils.CreateOrder(t, db, alice, b2)
	require.NoError(t, svc.ReturnOrder(ctx, o1, time.Now()))

	all, err := svc.ListOrders(ctx, ListOrdersOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := svc.ListOrders(ctx, ListOrdersOptions{UserID: &alice.ID})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, o1.ID, mine[0].ID)
	assert.Equal(t, o3.ID, mine[1].ID)

	open, err := svc.ListOrders(ctx, ListOrdersOptions{UserID: &alice.ID, NotReturned: true})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, o3.ID, open[0].ID)

	byBook, err := svc.ListOrders(ctx, ListOrdersOptions{BookID: &b1.ID})
	require.NoError(t, err)
	assert.Len(t, byBook, 2)

	limit, offset := 1, 1
	page, total, err := svc.ListOrdersWithTotal(ctx, ListOrdersOptions{Limit: &limit, Offset: &offset})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, o2.ID, page[0].ID)
}

func TestUpdateOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := testutils.NewDB(t)
	svc := NewService(db, nil)

	order := testutils.CreateOrder(t, db,
		testutils.CreateUser(t, db, models.RoleVisitor),
		testutils.CreateBook(t, db, "Rudin"),
	)
	original := order.PlatedEndAt

	order.PlatedEndAt = original.Add(time.Hour)
	require.NoError(t, svc.UpdateOrder(ctx, order, UpdateOrderOptions{}))
	got, err := svc.RetrieveOrder(ctx, RetrieveOrderOptions{ID: &order.ID})
	require.NoError(t, err)
	assert.Equal(t, original.Unix(), got.PlatedEndAt.Unix(), "no columns leaves the row unchanged")

	require.NoError(t, svc.UpdateOrder(ctx, order, UpdateOrderOptions{Columns: []string{"plated_end_at"}}))
	got, err = svc.RetrieveOrder(ctx, RetrieveOrderOptions{ID: &order.ID})
	require.NoError(t, err)
	assert.Equal(t, original.Add(time.Hour).Unix(), got.PlatedEndAt.Unix())
	assert.Nil(t, got.EndAt)
}

func TestReturnOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := testutils.NewDB(t)
	pub := &recordingPublisher{}
	svc := NewService(db, pub)

	order := testutils.CreateOrder(t, db,
		testutils.CreateUser(t, db, models.RoleVisitor),
		testutils.CreateBook(t, db, "Smoke"),
	)

	at := time.Now()
	require.NoError(t, svc.ReturnOrder(ctx, order, at))
	require.NotNil(t, order.EndAt)
	assert.Equal(t, at.Unix(), order.EndAt.Unix())

	got, err := svc.RetrieveOrder(ctx, RetrieveOrderOptions{ID: &order.ID})
	require.NoError(t, err)
	require.True(t, got.IsReturned())
	assert.Equal(t, at.Unix(), got.EndAt.Unix())

	err = svc.ReturnOrder(ctx, order, time.Now())
	require.ErrorIs(t, err, ErrAlreadyReturned)

	// A stale copy that still thinks the book is out.
	stale := *order
	stale.EndAt = nil
	err = svc.ReturnOrder(ctx, &stale, time.Now())
	require.ErrorIs(t, err, ErrAlreadyReturned)

	assert.Equal(t, []recordedEvent{{events.OrderReturned, order.ID}}, pub.recorded())
}

func TestDeleteOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := testutils.NewDB(t)
	pub := &recordingPublisher{}
	svc := NewService(db, pub)

	order := testutils.CreateOrder(t, db,
		testutils.CreateUser(t, db, models.RoleVisitor),
		testutils.CreateBook(t, db, "Virgin Soil"),
	)

	deleted, err := svc.DeleteOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = svc.DeleteOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = svc.RetrieveOrder(ctx, RetrieveOrderOptions{ID: &order.ID})
	require.ErrorIs(t, err, errcodes.NotFound("Order"))

	assert.Equal(t, []recordedEvent{{events.OrderDeleted, order.ID}}, pub.recorded())
}
