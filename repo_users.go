package auth

import (
	"context"
	"database/sql"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the users repository. FindUserByEmail satisfies UserFinder.
type Users interface {
	repository.Repository[*User]

	FindUserByEmail(ctx context.Context, email string) (*UserRecord, error)
	FindUserByEmailTx(ctx context.Context, tx bun.IDB, email string) (*UserRecord, error)

	InsertIfMissing(ctx context.Context, user *User) (bool, error)
	InsertIfMissingTx(ctx context.Context, tx bun.IDB, user *User) (bool, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users      = (*users)(nil)
	_ UserFinder = (*users)(nil)
)

// NewUsersRepository returns a bun backed Users repository sharing the
// given connection pool.
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) FindUserByEmail(ctx context.Context, email string) (*UserRecord, error) {
	return a.FindUserByEmailTx(ctx, a.db, email)
}

// FindUserByEmailTx selects a single user by its email, ignoring case
func (a *users) FindUserByEmailTx(ctx context.Context, tx bun.IDB, email string) (*UserRecord, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Column("id", "name", "email", "password").
		Where("lower(?TableAlias.email) = ?", strings.ToLower(strings.TrimSpace(email))).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to fetch user by email")
	}

	return record.Record(), nil
}

func (a *users) InsertIfMissing(ctx context.Context, user *User) (bool, error) {
	return a.InsertIfMissingTx(ctx, a.db, user)
}

// InsertIfMissingTx inserts the user unless one with the same email
// exists. It reports whether a row was written.
func (a *users) InsertIfMissingTx(ctx context.Context, tx bun.IDB, user *User) (bool, error) {
	if user == nil {
		return false, errors.New("user must not be nil", errors.CategoryBadInput)
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = normalizeEmail(user.Email)

	res, err := tx.NewInsert().
		Model(user).
		On("CONFLICT (email) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to insert user")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to read affected rows")
	}

	return n > 0, nil
}
