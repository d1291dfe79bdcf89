package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/baharkarakas/checkflow/internal/metrics"
	repo "github.com/baharkarakas/checkflow/internal/repository"
	"github.com/shopspring/decimal"
)

var ErrBlankName = errors.New("counterparty name required")

// CounterpartyResolver turns a free-text name into a party id.
//
// Lookup order: case-insensitive exact match, then a case-insensitive
// substring match that must be unique. Anything else (no match, or several)
// creates a new party with zero balance. Ambiguous names therefore produce a
// fresh party instead of an error.
type CounterpartyResolver struct {
	users repo.Users
	log   *slog.Logger
}

func NewCounterpartyResolver(users repo.Users, log *slog.Logger) *CounterpartyResolver {
	if log == nil {
		log = slog.Default()
	}
	return &CounterpartyResolver{users: users, log: log}
}

func (r *CounterpartyResolver) Resolve(ctx context.Context, name string) (int64, error) {
	clean := strings.TrimSpace(name)
	if clean == "" {
		return 0, ErrBlankName
	}

	u, err := r.users.FindByUsernameFold(ctx, clean)
	if err == nil {
		return u.ID, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return 0, fmt.Errorf("resolve %q: %w", clean, err)
	}

	matches, err := r.users.SearchUsernameContains(ctx, clean)
	if err != nil {
		return 0, fmt.Errorf("resolve %q: %w", clean, err)
	}
	if len(matches) == 1 {
		return matches[0].ID, nil
	}

	u, err = r.users.Create(ctx, clean, decimal.Zero)
	if errors.Is(err, repo.ErrConflict) {
		// lost a race with a concurrent creator of the same name
		u, err = r.users.FindByUsernameFold(ctx, clean)
	}
	if err != nil {
		return 0, fmt.Errorf("create counterparty %q: %w", clean, err)
	}
	metrics.CounterpartiesCreated.Inc()
	r.log.Info("counterparty created", "name", clean, "id", u.ID, "ambiguous_matches", len(matches))
	return u.ID, nil
}
