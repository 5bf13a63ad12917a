package users

import (
	"context"
	"database/sql"
	"slices"
	"time"

	"github.com/lendshelf/lendshelf/pkg/auth"
	"github.com/lendshelf/lendshelf/pkg/errcodes"
	"github.com/lendshelf/lendshelf/pkg/events"
	"github.com/lendshelf/lendshelf/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// Service handles user operations.
type Service struct {
	db        *bun.DB
	publisher events.Publisher
}

// NewService creates a new users service. Deleting a user publishes
// OrderDeleted for each of their loans through publisher; nil drops them.
func NewService(db *bun.DB, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{db: db, publisher: publisher}
}

// CreateUserOptions contains options for creating a user.
type CreateUserOptions struct {
	Email      string
	FirstName  string
	MiddleName string
	LastName   string
	Password   string
	Role       int
}

type RetrieveUserOptions struct {
	ID    *int
	Email *string
}

type ListUsersOptions struct {
	Limit  *int
	Offset *int
	Role   *int

	includeTotal bool
}

type UpdateUserOptions struct {
	Columns []string
}

// CreateUser creates a new active user. Emails are unique regardless of case.
func (s *Service) CreateUser(ctx context.Context, opts CreateUserOptions) (*models.User, error) {
	if err := s.ensureEmailFree(ctx, opts.Email, 0); err != nil {
		return nil, err
	}

	hashedPassword, err := auth.HashPassword(opts.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &models.User{
		CreatedAt:    now,
		UpdatedAt:    now,
		Email:        opts.Email,
		FirstName:    opts.FirstName,
		MiddleName:   opts.MiddleName,
		LastName:     opts.LastName,
		PasswordHash: hashedPassword,
		Role:         opts.Role,
		IsActive:     true,
	}

	_, err = s.db.NewInsert().Model(user).Returning("*").Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return user, nil
}

// RetrieveUser returns errcodes.NotFound("User") when no row matches.
func (s *Service) RetrieveUser(ctx context.Context, opts RetrieveUserOptions) (*models.User, error) {
	user := &models.User{}

	q := s.db.NewSelect().Model(user)
	if opts.ID != nil {
		q = q.Where("u.id = ?", *opts.ID)
	}
	if opts.Email != nil {
		q = q.Where("lower(u.email) = lower(?)", *opts.Email)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("User")
		}
		return nil, errors.WithStack(err)
	}

	return user, nil
}

func (s *Service) ListUsers(ctx context.Context, opts ListUsersOptions) ([]*models.User, error) {
	u, _, err := s.listUsersWithTotal(ctx, opts)
	return u, errors.WithStack(err)
}

func (s *Service) ListUsersWithTotal(ctx context.Context, opts ListUsersOptions) ([]*models.User, int, error) {
	opts.includeTotal = true
	return s.listUsersWithTotal(ctx, opts)
}

func (s *Service) listUsersWithTotal(ctx context.Context, opts ListUsersOptions) ([]*models.User, int, error) {
	users := []*models.User{}
	var total int
	var err error

	q := s.db.NewSelect().
		Model(&users).
		Order("u.id ASC")

	if opts.Role != nil {
		q = q.Where("u.role = ?", *opts.Role)
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

	return users, total, nil
}

// UpdateUser writes the given columns and bumps updated_at. No columns means
// nothing changed, and the row is left alone.
func (s *Service) UpdateUser(ctx context.Context, user *models.User, opts UpdateUserOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	if slices.Contains(opts.Columns, "email") {
		if err := s.ensureEmailFree(ctx, user.Email, user.ID); err != nil {
			return err
		}
	}

	user.UpdatedAt = time.Now()
	columns := append(slices.Clone(opts.Columns), "updated_at")

	res, err := s.db.NewUpdate().
		Model(user).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errcodes.NotFound("User")
	}
	return nil
}

// ResetPassword replaces the user's password.
func (s *Service) ResetPassword(ctx context.Context, user *models.User, newPassword string) error {
	hashedPassword, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hashedPassword
	return s.UpdateUser(ctx, user, UpdateUserOptions{Columns: []string{"password_hash"}})
}

// DeleteUser removes the user and their orders. It reports whether the user
// existed.
func (s *Service) DeleteUser(ctx context.Context, userID int) (bool, error) {
	var deleted bool
	orders := []*models.Order{}
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(&orders).
			Where("o.user_id = ?", userID).
			Order("o.id ASC").
			Scan(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.NewDelete().
			Model((*models.Order)(nil)).
			Where("user_id = ?", userID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		res, err := tx.NewDelete().
			Model((*models.User)(nil)).
			Where("id = ?", userID).
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

	events.Emit(ctx, s.publisher, events.OrderDeleted, orders...)
	return deleted, nil
}

// ensureEmailFree fails when another user than exceptID already has email.
func (s *Service) ensureEmailFree(ctx context.Context, email string, exceptID int) error {
	exists, err := s.db.NewSelect().
		Model((*models.User)(nil)).
		Where("lower(u.email) = lower(?)", email).
		Where("u.id != ?", exceptID).
		Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if exists {
		return errcodes.ValidationError("Email already exists")
	}
	return nil
}
