package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/baharkarakas/checkflow/internal/models"
	"github.com/baharkarakas/checkflow/internal/repository"
	"github.com/shopspring/decimal"
)

type usersRepo struct{ db *sql.DB }

const userColumns = `id, username, balance, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (models.User, error) {
	var (
		u       models.User
		created int64
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Balance, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, repository.ErrNotFound
		}
		return models.User{}, err
	}
	u.CreatedAt = fromMillis(created)
	return u, nil
}

func (r *usersRepo) Create(ctx context.Context, username string, balance decimal.Decimal) (models.User, error) {
	now := time.Now()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users(username, balance, created_at) VALUES(?, ?, ?)`,
		username, balance, toMillis(now))
	if isUniqueViolation(err) {
		return models.User{}, repository.ErrConflict
	}
	if err != nil {
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, err
	}
	return r.GetByID(ctx, id)
}

func (r *usersRepo) GetByID(ctx context.Context, id int64) (models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *usersRepo) FindByUsernameFold(ctx context.Context, username string) (models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(username) = lower(?) ORDER BY id LIMIT 1`, username))
}

func (r *usersRepo) SearchUsernameContains(ctx context.Context, fragment string) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE instr(lower(username), lower(?)) > 0 ORDER BY id`, fragment)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return collectUsers(rows)
}

func (r *usersRepo) List(ctx context.Context, limit int) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return collectUsers(rows)
}

func collectUsers(rows *sql.Rows) ([]models.User, error) {
	defer rows.Close()
	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
