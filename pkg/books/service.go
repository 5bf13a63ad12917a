package books

import (
	"context"
	"database/sql"

	"github.com/lendshelf/lendshelf/pkg/errcodes"
	"github.com/lendshelf/lendshelf/pkg/events"
	"github.com/lendshelf/lendshelf/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type RetrieveBookOptions struct {
	ID *int
}

type ListBooksOptions struct {
	Limit    *int
	Offset   *int
	IDs      []int
	AuthorID *int

	includeTotal bool
}

type UpdateBookOptions struct {
	Columns []string
}

type Service struct {
	db        *bun.DB
	publisher events.Publisher
}

// NewService returns a book service. publisher receives an OrderDeleted event
// for every loan removed along with a book; nil drops them.
func NewService(db *bun.DB, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{db, publisher}
}

// CreateBook inserts the book and links it to the IDs in book.Authors. Every
// author must already exist.
func (svc *Service) CreateBook(ctx context.Context, book *models.Book) error {
	authorIDs := book.AuthorIDs()

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.
			NewInsert().
			Model(book).
			Returning("*").
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		return linkAuthors(ctx, tx, book.ID, authorIDs)
	})
	if err != nil {
		return err
	}

	return svc.loadAuthors(ctx, book)
}

// RetrieveBook loads the book with its authors. It returns
// errcodes.NotFound("Book") when no row matches.
func (svc *Service) RetrieveBook(ctx context.Context, opts RetrieveBookOptions) (*models.Book, error) {
	book := &models.Book{}

	q := svc.db.
		NewSelect().
		Model(book).
		Relation("Authors", orderAuthors)

	if opts.ID != nil {
		q = q.Where("b.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	return book, nil
}

func (svc *Service) ListBooks(ctx context.Context, opts ListBooksOptions) ([]*models.Book, error) {
	b, _, err := svc.listBooksWithTotal(ctx, opts)
	return b, errors.WithStack(err)
}

func (svc *Service) ListBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	opts.includeTotal = true
	return svc.listBooksWithTotal(ctx, opts)
}

func (svc *Service) listBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	books := []*models.Book{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&books).
		Relation("Authors", orderAuthors).
		Order("b.id ASC")

	if len(opts.IDs) > 0 {
		q = q.Where("b.id IN (?)", bun.In(opts.IDs))
	}
	if opts.AuthorID != nil {
		q = q.Where("b.id IN (SELECT book_id FROM book_authors WHERE author_id = ?)", *opts.AuthorID)
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

	return books, total, nil
}

// UpdateBook writes the given columns of book. No columns means nothing
// changed, and the row is left alone.
func (svc *Service) UpdateBook(ctx context.Context, book *models.Book, opts UpdateBookOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	res, err := svc.db.
		NewUpdate().
		Model(book).
		Column(opts.Columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errcodes.NotFound("Book")
	}
	return nil
}

// DeleteBook removes the book together with its orders and author links. It
// reports whether the book existed.
func (svc *Service) DeleteBook(ctx context.Context, bookID int) (bool, error) {
	var deleted bool
	orders := []*models.Order{}
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(&orders).
			Where("o.book_id = ?", bookID).
			Order("o.id ASC").
			Scan(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.NewDelete().
			Model((*models.Order)(nil)).
			Where("book_id = ?", bookID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.NewDelete().
			Model((*models.BookAuthor)(nil)).
			Where("book_id = ?", bookID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		res, err := tx.NewDelete().
			Model((*models.Book)(nil)).
			Where("id = ?", bookID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.WithStack(err)
		}
		deleted = n > 0
		return nil
	})
	if err != nil {
		return false, err
	}

	events.Emit(ctx, svc.publisher, events.OrderDeleted, orders...)
	return deleted, nil
}

// AddAuthors links the authors to the book. Existing links are kept, so
// adding the same author twice is a no-op.
func (svc *Service) AddAuthors(ctx context.Context, book *models.Book, authorIDs []int) error {
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return linkAuthors(ctx, tx, book.ID, authorIDs)
	})
	if err != nil {
		return err
	}
	return svc.loadAuthors(ctx, book)
}

// RemoveAuthors unlinks the authors from the book. IDs that aren't linked are
// ignored.
func (svc *Service) RemoveAuthors(ctx context.Context, book *models.Book, authorIDs []int) error {
	if len(authorIDs) > 0 {
		_, err := svc.db.NewDelete().
			Model((*models.BookAuthor)(nil)).
			Where("book_id = ?", book.ID).
			Where("author_id IN (?)", bun.In(authorIDs)).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
	}
	return svc.loadAuthors(ctx, book)
}

func (svc *Service) loadAuthors(ctx context.Context, book *models.Book) error {
	authors := []*models.Author{}
	err := svc.db.NewSelect().
		Model(&authors).
		Where("a.id IN (SELECT author_id FROM book_authors WHERE book_id = ?)", book.ID).
		Order("a.id ASC").
		Scan(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	book.Authors = authors
	return nil
}

// linkAuthors inserts the missing book_authors rows for bookID. It fails with
// errcodes.NotFound("Author") if any of the authors doesn't exist.
func linkAuthors(ctx context.Context, tx bun.Tx, bookID int, authorIDs []int) error {
	ids := uniqueIDs(authorIDs)
	if len(ids) == 0 {
		return nil
	}

	count, err := tx.NewSelect().
		Model((*models.Author)(nil)).
		Where("a.id IN (?)", bun.In(ids)).
		Count(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if count != len(ids) {
		return errcodes.NotFound("Author")
	}

	links := make([]*models.BookAuthor, 0, len(ids))
	for _, id := range ids {
		links = append(links, &models.BookAuthor{BookID: bookID, AuthorID: id})
	}

	_, err = tx.NewInsert().
		Model(&links).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	return errors.WithStack(err)
}

func orderAuthors(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Order("a.id ASC")
}

func uniqueIDs(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
