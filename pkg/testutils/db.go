package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lendshelf/lendshelf/pkg/migrations"
	"github.com/lendshelf/lendshelf/pkg/models"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/crypto/bcrypt"
)

// Password is the plaintext password of every user made by CreateUser.
const Password = "correct-horse-battery"

var emailSeq atomic.Int64

// NewDB returns a migrated in-memory SQLite database that is closed when the
// test ends.
func NewDB(t testing.TB) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		db.Close()
	})

	_, err = db.Exec("PRAGMA foreign_keys=ON")
	require.NoError(t, err)

	models.Register(db)

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	return db
}

// CreateUser inserts an active user with the given role and Password.
func CreateUser(t testing.TB, db *bun.DB, role int) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)

	now := time.Now()
	user := &models.User{
		CreatedAt:    now,
		UpdatedAt:    now,
		Email:        fmt.Sprintf("user%d@example.com", emailSeq.Add(1)),
		FirstName:    "Ivan",
		LastName:     "Petrov",
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}
	_, err = db.NewInsert().Model(user).Returning("*").Exec(context.Background())
	require.NoError(t, err)
	return user
}

// CreateAuthor inserts an author.
func CreateAuthor(t testing.TB, db *bun.DB, name, surname string) *models.Author {
	t.Helper()

	author := &models.Author{Name: name, Surname: surname, Patronymic: ""}
	_, err := db.NewInsert().Model(author).Returning("*").Exec(context.Background())
	require.NoError(t, err)
	return author
}

// CreateBook inserts a book and links it to authors.
func CreateBook(t testing.TB, db *bun.DB, name string, authors ...*models.Author) *models.Book {
	t.Helper()
	ctx := context.Background()

	book := &models.Book{Name: name, Description: name + " description", Count: models.DefaultBookCount}
	_, err := db.NewInsert().Model(book).Returning("*").Exec(ctx)
	require.NoError(t, err)

	for _, a := range authors {
		_, err = db.NewInsert().Model(&models.BookAuthor{BookID: book.ID, AuthorID: a.ID}).Exec(ctx)
		require.NoError(t, err)
	}
	book.Authors = authors
	return book
}

// CreateOrder inserts an outstanding order due in a week.
func CreateOrder(t testing.TB, db *bun.DB, user *models.User, book *models.Book) *models.Order {
	t.Helper()

	now := time.Now().Truncate(time.Second)
	order := &models.Order{
		UserID:      user.ID,
		BookID:      book.ID,
		CreatedAt:   now,
		PlatedEndAt: now.Add(7 * 24 * time.Hour),
	}
	_, err := db.NewInsert().Model(order).Returning("*").Exec(context.Background())
	require.NoError(t, err)
	return order
}
