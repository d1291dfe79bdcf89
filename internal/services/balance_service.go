package services

import (
	"context"
	"errors"

	repo "github.com/baharkarakas/checkflow/internal/repository"
	"github.com/shopspring/decimal"
)

type BalanceService struct{ r repo.Users }

func NewBalanceService(r repo.Users) *BalanceService { return &BalanceService{r: r} }

// Current reads a party's balance. Unknown parties read as zero.
func (s *BalanceService) Current(ctx context.Context, partyID int64) (decimal.Decimal, error) {
	u, err := s.r.GetByID(ctx, partyID)
	if errors.Is(err, repo.ErrNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return u.Balance, nil
}
