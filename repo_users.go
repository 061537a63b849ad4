package presence

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type users struct {
	db *bun.DB
}

var _ Users = (*users)(nil)

// NewUsersRepository creates the Bun-backed Users store.
func NewUsersRepository(db *bun.DB) Users {
	return &users{db: db}
}

func (a *users) GetByID(ctx context.Context, id int64) (*User, error) {
	user := new(User)
	err := a.db.NewSelect().
		Model(user).
		Where("usr.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (a *users) GetByExternalID(ctx context.Context, externalID string) (*User, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, goerrors.New("external id is required", goerrors.CategoryBadInput)
	}

	user := new(User)
	err := a.db.NewSelect().
		Model(user).
		Where("usr.external_id = ?", externalID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// Upsert persists the record keyed by external_id: inserts when the record
// has no internal id yet, updates the mutable columns otherwise. Bun fills
// the autoincrement id on insert.
func (a *users) Upsert(ctx context.Context, record *User) (*User, error) {
	if record == nil {
		return nil, goerrors.New("record is required", goerrors.CategoryBadInput)
	}
	if strings.TrimSpace(record.ExternalID) == "" {
		return nil, goerrors.New("external id is required", goerrors.CategoryBadInput)
	}

	now := time.Now()
	record.UpdatedAt = &now

	if record.ID == 0 {
		if _, err := a.db.NewInsert().Model(record).Exec(ctx); err != nil {
			return nil, err
		}
		return record, nil
	}

	_, err := a.db.NewUpdate().
		Model(record).
		Column("name", "email", "role", "status", "last_activity_at", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (a *users) Delete(ctx context.Context, externalID string) error {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return goerrors.New("external id is required", goerrors.CategoryBadInput)
	}

	res, err := a.db.NewDelete().
		Model((*User)(nil)).
		Where("external_id = ?", externalID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CreateUsersTable creates the users table when missing. Convenience for
// tests and examples; deployed schemas are migration managed.
func CreateUsersTable(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*User)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}
