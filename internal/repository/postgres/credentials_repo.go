package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/baharkarakas/checkflow/internal/models"
	"github.com/baharkarakas/checkflow/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type credentialsRepo struct{ pool *pgxpool.Pool }

func (r *credentialsRepo) Create(ctx context.Context, userID int64, passwordHash string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO credentials(user_id, password_hash) VALUES($1, $2)`, userID, passwordHash)
	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

func (r *credentialsRepo) GetByUserID(ctx context.Context, userID int64) (models.Credential, error) {
	var c models.Credential
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, password_hash, created_at FROM credentials WHERE user_id=$1`, userID,
	).Scan(&c.UserID, &c.PasswordHash, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Credential{}, repository.ErrNotFound
	}
	return c, err
}
