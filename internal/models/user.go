package models

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// User is a party. Counterparties created by name resolution are users too,
// they just have no credentials.
type User struct {
	ID        int64           `json:"id"`
	Username  string          `json:"username"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

type Credential struct {
	UserID       int64     `json:"user_id"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func NormalizeUsername(name string) string { return strings.TrimSpace(name) }

func ValidateUsername(name string) error {
	n := NormalizeUsername(name)
	if n == "" {
		return errors.New("username required")
	}
	if len(n) > 128 {
		return errors.New("username too long")
	}
	return nil
}
