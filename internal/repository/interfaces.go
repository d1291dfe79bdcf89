package repository

import (
	"context"
	"errors"
	"time"

	"github.com/baharkarakas/checkflow/internal/models"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by single-row reads when nothing matches.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a unique constraint rejects an insert.
var ErrConflict = errors.New("conflict")

type Users interface {
	Create(ctx context.Context, username string, balance decimal.Decimal) (models.User, error)
	GetByID(ctx context.Context, id int64) (models.User, error)
	// FindByUsernameFold matches the whole username, ignoring case.
	FindByUsernameFold(ctx context.Context, username string) (models.User, error)
	// SearchUsernameContains returns every user whose username contains
	// fragment, ignoring case.
	SearchUsernameContains(ctx context.Context, fragment string) ([]models.User, error)
	List(ctx context.Context, limit int) ([]models.User, error)
}

type Credentials interface {
	Create(ctx context.Context, userID int64, passwordHash string) error
	GetByUserID(ctx context.Context, userID int64) (models.Credential, error)
}

// CheckRef selects the check an accept/deny applies to: either an explicit
// id, or the oldest eligible check the holder received from SenderID.
type CheckRef struct {
	ID       int64
	SenderID int64
}

// Checks is the check store. Every mutating method is a single conditional
// write; a false result means no row satisfied the id/owner/status guard.
type Checks interface {
	Create(ctx context.Context, c models.Check) (models.Check, error)
	GetByID(ctx context.Context, id int64) (models.Check, error)
	ListForParty(ctx context.Context, partyID int64) ([]models.CheckView, error)

	Accept(ctx context.Context, holderID int64, ref CheckRef) (int64, bool, error)
	Deny(ctx context.Context, holderID int64, ref CheckRef) (int64, bool, error)
	Forward(ctx context.Context, id, holderID, newPayeeID int64, at time.Time) (bool, error)
	CancelForward(ctx context.Context, id, senderID int64, notBefore time.Time) (bool, error)
	DeleteIssuance(ctx context.Context, id, issuerID int64, notBefore time.Time) (bool, error)
	ResetDecision(ctx context.Context, id, holderID int64) (bool, error)
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.AuditLog, error)
}

// Repositories bundles one backend's implementations.
type Repositories struct {
	Users       Users
	Credentials Credentials
	Checks      Checks
	AuditLogs   AuditLogs
	Close       func()
}
