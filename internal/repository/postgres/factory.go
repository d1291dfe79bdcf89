package postgres

import (
	repo "github.com/baharkarakas/checkflow/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositories(pool *pgxpool.Pool) repo.Repositories {
	return repo.Repositories{
		Users:       &usersRepo{pool},
		Credentials: &credentialsRepo{pool},
		Checks:      &checksRepo{pool},
		AuditLogs:   &auditLogsRepo{pool},
		Close:       pool.Close,
	}
}
