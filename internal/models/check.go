package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CheckStatus string

const (
	CheckPending  CheckStatus = "PENDING"
	CheckAccepted CheckStatus = "ACCEPTED"
	CheckDenied   CheckStatus = "DENIED"
	// Reserved. Nothing in the lifecycle assigns these two.
	CheckForwarded CheckStatus = "FORWARDED"
	CheckTokenized CheckStatus = "TOKENIZED"
)

var checkStatuses = []CheckStatus{CheckPending, CheckAccepted, CheckDenied, CheckForwarded, CheckTokenized}

func CheckStatuses() []CheckStatus {
	out := make([]CheckStatus, len(checkStatuses))
	copy(out, checkStatuses)
	return out
}

func (s CheckStatus) Valid() bool {
	for _, v := range checkStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Check is one postdated check. The same row follows the check through its
// whole chain of custody; forwarding rewrites PayeeID/SenderID in place.
type Check struct {
	ID            int64           `json:"id"`
	IssuerID      int64           `json:"issuer_id"`
	PayeeID       int64           `json:"payee_id"`
	SenderID      *int64          `json:"sender_id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        CheckStatus     `json:"status"`
	IssuedAt      time.Time       `json:"issued_at"`
	MaturityDate  time.Time       `json:"maturity_date"`
	ParentCheckID *int64          `json:"parent_check_id,omitempty"`
}

func (c Check) SentBy(partyID int64) bool {
	return c.SenderID != nil && *c.SenderID == partyID
}

// CategoryFor places the check in exactly one basket from partyID's point of view.
func (c Check) CategoryFor(partyID int64) CheckCategory {
	switch {
	case c.PayeeID == partyID:
		switch c.Status {
		case CheckAccepted:
			return CategoryWallet
		case CheckDenied:
			return CategoryDeniedHistory
		default:
			return CategoryIncoming
		}
	case c.IssuerID == partyID:
		return CategoryIssued
	case c.SentBy(partyID):
		return CategoryForwarded
	default:
		return CategoryOther
	}
}

type CheckCategory string

const (
	CategoryIncoming      CheckCategory = "INCOMING"
	CategoryWallet        CheckCategory = "WALLET"
	CategoryDeniedHistory CheckCategory = "DENIED_HISTORY"
	CategoryIssued        CheckCategory = "ISSUED"
	CategoryForwarded     CheckCategory = "FORWARDED"
	CategoryOther         CheckCategory = "OTHER"
)

// CheckView is a check joined with party names, as listed to one party.
type CheckView struct {
	Check
	IssuerName string        `json:"issuer_name"`
	PayeeName  string        `json:"payee_name"`
	SenderName *string       `json:"sender_name,omitempty"`
	Category   CheckCategory `json:"category"`
}
