package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		statements := []string{
			`CREATE TABLE users (
				` + idColumn(db) + `,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				email TEXT NOT NULL,
				first_name TEXT NOT NULL,
				middle_name TEXT NOT NULL DEFAULT '',
				last_name TEXT NOT NULL,
				password_hash TEXT NOT NULL,
				role INTEGER NOT NULL DEFAULT 0,
				is_active BOOLEAN NOT NULL DEFAULT TRUE
			)`,
			`CREATE UNIQUE INDEX ux_users_email ON users (lower(email))`,
			`CREATE TABLE authors (
				` + idColumn(db) + `,
				name TEXT NOT NULL,
				surname TEXT NOT NULL,
				patronymic TEXT NOT NULL
			)`,
			`CREATE TABLE books (
				` + idColumn(db) + `,
				name TEXT NOT NULL,
				description TEXT NOT NULL,
				count INTEGER NOT NULL DEFAULT 10
			)`,
			`CREATE TABLE book_authors (
				book_id INTEGER NOT NULL REFERENCES books (id) ON DELETE CASCADE,
				author_id INTEGER NOT NULL REFERENCES authors (id) ON DELETE CASCADE,
				PRIMARY KEY (book_id, author_id)
			)`,
			`CREATE INDEX ix_book_authors_author_id ON book_authors (author_id)`,
			`CREATE TABLE orders (
				` + idColumn(db) + `,
				user_id INTEGER NOT NULL REFERENCES users (id) ON DELETE CASCADE,
				book_id INTEGER NOT NULL REFERENCES books (id) ON DELETE CASCADE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				end_at TIMESTAMPTZ,
				plated_end_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX ix_orders_user_id ON orders (user_id)`,
			`CREATE INDEX ix_orders_book_id ON orders (book_id)`,
			// Partial index backing the not-returned query.
			`CREATE INDEX ix_orders_not_returned ON orders (id) WHERE end_at IS NULL`,
		}

		for _, stmt := range statements {
			if _, err := db.Exec(stmt); err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	}

	down := func(_ context.Context, db *bun.DB) error {
		for _, table := range []string{"orders", "book_authors", "books", "authors", "users"} {
			if _, err := db.Exec("DROP TABLE IF EXISTS " + table); err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	}

	Migrations.MustRegister(up, down)
}
