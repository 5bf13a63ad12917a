package books

import (
	"context"
	"testing"

	"github.com/lendshelf/lendshelf/pkg/errcodes"
	"github.com/lendshelf/lendshelf/pkg/events"
	"github.com/lendshelf/lendshelf/pkg/models"
	"github.com/lendshelf/lendshelf/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := testutils.NewDB(t)
	svc := NewService(db, nil)

	tolstoy := testutils.CreateAuthor(t, db, "Lev", "Tolstoy")
	chekhov := testutils.CreateAuthor(t, db, "Anton", "Chekhov")

	book := &models.Book{
		Name:        "Collected Stories",
		Description: "An anthology",
		Count:       models.DefaultBookCount,
		Authors:     []*models.Author{{ID: chekhov.ID}, {ID: tolstoy.ID}},
	}
	require.NoError(t, svc.CreateBook(ctx, book))
	assert.NotZero(t, book.ID)
	assert.Equal(t, []int{tolstoy.ID, chekhov.ID}, book.AuthorIDs())
	assert.Equal(t, "Lev", book.Authors[0].Name)

	got, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	assert.Equal(t, "Collected Stories", got.Name)
	assert.Equal(t, 10, got.Count)
	assert.Equal(t, []int{tolstoy.ID, chekhov.ID}, got.AuthorIDs())
}

func TestCreateBook_UnknownAuthor(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := testutils.NewDB(t)
	svc := NewService(db, nil)

	book := &models.Book{Name: "Ghost", Authors: []*models.Author{{ID: 404}}}
	err := svc.CreateBook(ctx, book)
	require.ErrorIs(t, err, errcodes.NotFound("Author"))

	count, err := db.NewSelect().Model((*models.Book)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "the book insert is rolled back")
}

func TestRetrieveBook_NotFound(t *testing.T) {
	t.Parallel()
	db := testutils.NewDB(t)
	svc := NewService(db, nil)

	for _, id := range []int{0, 1, 999} {
		id := id
		book, err := svc.RetrieveBook(context.Background(), RetrieveBookOptions{ID: &id})
		assert.Nil(t, book)
		require.ErrorIs(t, err, errcodes.NotFound("Book"))
	}
}

func TestListBooks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := testutils.NewDB(t)
	svc := NewService(db, nil)

	pushkin := testutils.CreateAuthor(t, db, "Alexander", "Pushkin")
	first := testutils.CreateBook(t, db, "Eugene Onegin", pushkin)
	second := testutils.CreateBook(t, db, "Dead Souls")
	third := testutils.CreateBook(t, db, "Boris Godunov", pushkin)

	all, err := svc.ListBooks(ctx, ListBooksOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int{first.ID, second.ID, third.ID}, []int{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, []int{pushkin.ID}, all[0].AuthorIDs())
	assert.Empty(t, all[1].AuthorIDs())

	limit, offset := 1, 1
	page, total, err := svc.ListBooksWithTotal(ctx, ListBooksOptions{Limit: &limit, Offset: &offset})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, second.ID, page[0].ID)

	byAuthor, err := svc.ListBooks(ctx, ListBooksOptions{AuthorID: &pushkin.ID})
	require.NoError(t, err)
	require.Len(t, byAuthor, 2)
	assert.Equal(t, first.ID, byAuthor[0].ID)
	assert.Equal(t, third.ID, byAuthor[1].ID)
}

func TestUpdateBook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := testutils.NewDB(t)
	svc := NewService(db, nil)

	book := testutils.CreateBook(t, db, "War and Peace")

	t.Run("no columns leaves the row unchanged", func(t *testing.T) {
		book.Name = "Changed in memory only"
		require.NoError(t, svc.UpdateBook(ctx, book, UpdateBookOptions{}))

		got, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
		require.NoError(t, err)
		assert.Equal(t, "War and Peace", got.Name)
	})

	t.Run("only listed columns are written", func(t *testing.T) {
		book.Name = "War & Peace"
		book.Count = 3
		require.NoError(t, svc.UpdateBook(ctx, book, UpdateBookOptions{Columns: []string{"count"}}))

		got, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
		require.NoError(t, err)
		assert.Equal(t, "War and Peace", got.Name)
		assert.Equal(t, 3, got.Count)
	})

	t.Run("missing row", func(t *testing.T) {
		ghost := &models.Book{ID: 999, Name: "x"}
		err := svc.UpdateBook(ctx, ghost, UpdateBookOptions{Columns: []string{"name"}})
		require.ErrorIs(t, err, errcodes.NotFound("Book"))
	})
}

func TestDeleteBook_Cascades(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := testutils.NewDB(t)
	pub := &testutils.Publisher{}
	svc := NewService(db, pub)

	author := testutils.CreateAuthor(t, db, "Ivan", "Turgenev")
	book := testutils.CreateBook(t, db, "Fathers and Sons", author)
	other := testutils.CreateBook(t, db, "Rudin", author)
	user := testutils.CreateUser(t, db, models.RoleVisitor)
	first := testutils.CreateOrder(t, db, user, book)
	second := testutils.CreateOrder(t, db, testutils.CreateUser(t, db, models.RoleVisitor), book)
	kept := testutils.CreateOrder(t, db, user, other)

	deleted, err := svc.DeleteBook(ctx, book.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = svc.DeleteBook(ctx, book.ID)
	require.NoError(t, err)
	assert.False(t, deleted, "second delete finds nothing")

	assert.Equal(t, []testutils.PublishedEvent{
		{Type: events.OrderDeleted, OrderID: first.ID},
		{Type: events.OrderDeleted, OrderID: second.ID},
	}, pub.Events())

	var orderIDs []int
	err = db.NewSelect().Model((*models.Order)(nil)).Column("id").Scan(ctx, &orderIDs)
	require.NoError(t, err)
	assert.Equal(t, []int{kept.ID}, orderIDs)

	links, err := db.NewSelect().Model((*models.BookAuthor)(nil)).Where("book_id = ?", book.ID).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, links)

	// The author and the other book survive.
	got, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &other.ID})
	require.NoError(t, err)
	assert.Equal(t, []int{author.ID}, got.AuthorIDs())
}

func TestAddAndRemoveAuthors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := testutils.NewDB(t)
	svc := NewService(db, nil)

	a1 := testutils.CreateAuthor(t, db, "Ilya", "Ilf")
	a2 := testutils.CreateAuthor(t, db, "Yevgeny", "Petrov")
	book := testutils.CreateBook(t, db, "The Twelve Chairs", a1)

	require.NoError(t, svc.AddAuthors(ctx, book, []int{a2.ID}))
	assert.Equal(t, []int{a1.ID, a2.ID}, book.AuthorIDs())

	t.Run("adding twice is idempotent", func(t *testing.T) {
		require.NoError(t, svc.AddAuthors(ctx, book, []int{a1.ID, a2.ID, a2.ID}))
		assert.Equal(t, []int{a1.ID, a2.ID}, book.AuthorIDs())

		links, err := db.NewSelect().Model((*models.BookAuthor)(nil)).Where("book_id = ?", book.ID).Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, links)
	})

	t.Run("unknown author fails and adds nothing", func(t *testing.T) {
		a3 := testutils.CreateAuthor(t, db, "Mikhail", "Bulgakov")
		err := svc.AddAuthors(ctx, book, []int{a3.ID, 4040})
		require.ErrorIs(t, err, errcodes.NotFound("Author"))

		got, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
		require.NoError(t, err)
		assert.Equal(t, []int{a1.ID, a2.ID}, got.AuthorIDs())
	})

	t.Run("removing ignores absent links", func(t *testing.T) {
		require.NoError(t, svc.RemoveAuthors(ctx, book, []int{a1.ID, 4040}))
		assert.Equal(t, []int{a2.ID}, book.AuthorIDs())

		require.NoError(t, svc.RemoveAuthors(ctx, book, []int{a1.ID}))
		assert.Equal(t, []int{a2.ID}, book.AuthorIDs())
	})
}
