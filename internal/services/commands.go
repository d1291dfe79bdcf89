package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/baharkarakas/checkflow/internal/models"
	"github.com/shopspring/decimal"
)

// Command is one structured request, as produced by the interpreter. Each
// variant carries only the fields its operation needs.
type Command interface {
	Operation() models.OperationType
}

type IssueCheck struct {
	Counterparty string
	Amount       *decimal.Decimal
	Maturity     *time.Time
}

type AcceptCheck struct {
	CheckIDs   []int64
	IssuerName string
	All        bool
}

type DenyCheck struct {
	CheckIDs   []int64
	IssuerName string
}

type ForwardCheck struct {
	CheckID        int64
	ToCounterparty string
}

// RevokeOp is an undo whose concrete meaning depends on the caller's role
// on each check.
type RevokeOp struct {
	CheckIDs []int64
}

type QueryChecks struct{}

type QueryBalance struct{}

func (IssueCheck) Operation() models.OperationType   { return models.OpIssueCheck }
func (AcceptCheck) Operation() models.OperationType  { return models.OpAcceptCheck }
func (DenyCheck) Operation() models.OperationType    { return models.OpDenyCheck }
func (ForwardCheck) Operation() models.OperationType { return models.OpForwardCheck }
func (RevokeOp) Operation() models.OperationType     { return models.OpRevoke }
func (QueryChecks) Operation() models.OperationType  { return models.OpQueryChecks }
func (QueryBalance) Operation() models.OperationType { return models.OpQueryBalance }

// Envelope carries a command together with who asked and how.
type Envelope struct {
	CallerID            int64
	Command             Command
	ConversationContext string
	IntentConfidence    *float64
}

// WireRequest is the interpreter's JSON shape: an operation name plus a flat
// parameter bag.
type WireRequest struct {
	Operation      string           `json:"operation" validate:"required"`
	Counterparty   string           `json:"counterparty,omitempty"`
	ToCounterparty string           `json:"to_counterparty,omitempty"`
	Amount         *decimal.Decimal `json:"amount,omitempty"`
	CheckID        *int64           `json:"check_id,omitempty"`
	CheckIDs       []int64          `json:"check_ids,omitempty"`
	CustomDate     string           `json:"custom_date,omitempty"`
	AcceptAll      bool             `json:"accept_all,omitempty"`
	RawText        string           `json:"raw_text,omitempty"`
	Confidence     *float64         `json:"confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// Command maps the parameter bag onto the matching variant.
func (w WireRequest) Command() (Command, error) {
	ids := w.CheckIDs
	if w.CheckID != nil {
		ids = append([]int64{*w.CheckID}, ids...)
	}
	switch models.OperationType(strings.ToUpper(strings.TrimSpace(w.Operation))) {
	case models.OpIssueCheck:
		cmd := IssueCheck{Counterparty: w.Counterparty, Amount: w.Amount}
		if w.CustomDate != "" {
			t, err := ParseMaturity(w.CustomDate)
			if err != nil {
				return nil, err
			}
			cmd.Maturity = &t
		}
		return cmd, nil
	case models.OpAcceptCheck:
		return AcceptCheck{CheckIDs: ids, IssuerName: w.Counterparty, All: w.AcceptAll}, nil
	case models.OpDenyCheck:
		return DenyCheck{CheckIDs: ids, IssuerName: w.Counterparty}, nil
	case models.OpForwardCheck:
		cmd := ForwardCheck{ToCounterparty: w.ToCounterparty}
		if cmd.ToCounterparty == "" {
			cmd.ToCounterparty = w.Counterparty
		}
		if len(ids) > 0 {
			cmd.CheckID = ids[0]
		}
		return cmd, nil
	case models.OpRevoke:
		return RevokeOp{CheckIDs: ids}, nil
	case models.OpQueryChecks:
		return QueryChecks{}, nil
	case models.OpQueryBalance:
		return QueryBalance{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupported, w.Operation)
}

func (w WireRequest) Envelope(callerID int64) (Envelope, error) {
	cmd, err := w.Command()
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		CallerID:            callerID,
		Command:             cmd,
		ConversationContext: w.RawText,
		IntentConfidence:    w.Confidence,
	}, nil
}

// ErrInvalidDate means a maturity date was given but could not be read.
var ErrInvalidDate = errors.New("invalid maturity date")

var maturityLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"01-02-2006",
	"02-01-2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// ParseMaturity accepts the date spellings the interpreter emits. Dates
// without a zone are taken as UTC.
func ParseMaturity(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range maturityLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w %q", ErrInvalidDate, s)
}

// uniqueIDs drops zero and repeated ids, keeping first-seen order.
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
