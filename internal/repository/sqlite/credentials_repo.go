package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/baharkarakas/checkflow/internal/models"
	"github.com/baharkarakas/checkflow/internal/repository"
)

type credentialsRepo struct{ db *sql.DB }

func (r *credentialsRepo) Create(ctx context.Context, userID int64, passwordHash string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credentials(user_id, password_hash, created_at) VALUES(?, ?, ?)`,
		userID, passwordHash, toMillis(time.Now()))
	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

func (r *credentialsRepo) GetByUserID(ctx context.Context, userID int64) (models.Credential, error) {
	var (
		c       models.Credential
		created int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, password_hash, created_at FROM credentials WHERE user_id = ?`, userID,
	).Scan(&c.UserID, &c.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Credential{}, repository.ErrNotFound
	}
	if err != nil {
		return models.Credential{}, err
	}
	c.CreatedAt = fromMillis(created)
	return c, nil
}
