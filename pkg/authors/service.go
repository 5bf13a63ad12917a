package authors

import (
	"context"
	"database/sql"

	"github.com/lendshelf/lendshelf/pkg/errcodes"
	"github.com/lendshelf/lendshelf/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type RetrieveAuthorOptions struct {
	ID *int
}

type ListAuthorsOptions struct {
	Limit  *int
	Offset *int
	IDs    []int
	BookID *int

	includeTotal bool
}

type UpdateAuthorOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateAuthor(ctx context.Context, author *models.Author) error {
	_, err := svc.db.
		NewInsert().
		Model(author).
		Returning("*").
		Exec(ctx)
	return errors.WithStack(err)
}

// RetrieveAuthor returns errcodes.NotFound("Author") when no row matches.
func (svc *Service) RetrieveAuthor(ctx context.Context, opts RetrieveAuthorOptions) (*models.Author, error) {
	author := &models.Author{}

	q := svc.db.
		NewSelect().
		Model(author)

	if opts.ID != nil {
		q = q.Where("a.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Author")
		}
		return nil, errors.WithStack(err)
	}

	return author, nil
}

func (svc *Service) ListAuthors(ctx context.Context, opts ListAuthorsOptions) ([]*models.Author, error) {
	a, _, err := svc.listAuthorsWithTotal(ctx, opts)
	return a, errors.WithStack(err)
}

func (svc *Service) ListAuthorsWithTotal(ctx context.Context, opts ListAuthorsOptions) ([]*models.Author, int, error) {
	opts.includeTotal = true
	return svc.listAuthorsWithTotal(ctx, opts)
}

func (svc *Service) listAuthorsWithTotal(ctx context.Context, opts ListAuthorsOptions) ([]*models.Author, int, error) {
	authors := []*models.Author{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&authors).
		Order("a.id ASC")

	if len(opts.IDs) > 0 {
		q = q.Where("a.id IN (?)", bun.In(opts.IDs))
	}
	if opts.BookID != nil {
		q = q.Where("a.id IN (SELECT author_id FROM book_authors WHERE book_id = ?)", *opts.BookID)
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

	return authors, total, nil
}

// UpdateAuthor writes the given columns of author. No columns means nothing
// changed, and the row is left alone.
func (svc *Service) UpdateAuthor(ctx context.Context, author *models.Author, opts UpdateAuthorOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	res, err := svc.db.
		NewUpdate().
		Model(author).
		Column(opts.Columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errcodes.NotFound("Author")
	}
	return nil
}

// DeleteAuthor removes the author and its book links. It reports whether the
// author existed.
func (svc *Service) DeleteAuthor(ctx context.Context, authorID int) (bool, error) {
	var deleted bool
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*models.BookAuthor)(nil)).
			Where("author_id = ?", authorID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		res, err := tx.NewDelete().
			Model((*models.Author)(nil)).
			Where("id = ?", authorID).
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
	return deleted, err
}
