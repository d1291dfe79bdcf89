package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OperationType string

const (
	OpIssueCheck   OperationType = "ISSUE_CHECK"
	OpAcceptCheck  OperationType = "ACCEPT_CHECK"
	OpDenyCheck    OperationType = "DENY_CHECK"
	OpForwardCheck OperationType = "FORWARD_CHECK"
	OpRevoke       OperationType = "REVOKE_OP"
	OpQueryChecks  OperationType = "QUERY_CHECKS"
	OpQueryBalance OperationType = "QUERY_BALANCE"
	// OpUnknown is logged when a request names no operation.
	OpUnknown OperationType = "UNKNOWN"
)

type AuditStatus string

const (
	AuditSuccess AuditStatus = "SUCCESS"
	AuditFailed  AuditStatus = "FAILED"
)

// AuditLog is one transaction_history row.
type AuditLog struct {
	ID                  int64            `json:"id"`
	Timestamp           time.Time        `json:"timestamp"`
	UserID              int64            `json:"user_id"`
	OperationType       OperationType    `json:"operation_type"`
	CounterpartyID      *int64           `json:"counterparty_id,omitempty"`
	CheckID             *int64           `json:"check_id,omitempty"`
	TokenID             *int64           `json:"token_id,omitempty"`
	Amount              *decimal.Decimal `json:"amount,omitempty"`
	Status              AuditStatus      `json:"status"`
	ConversationContext string           `json:"conversation_context,omitempty"`
	IntentConfidence    *float64         `json:"intent_confidence,omitempty"`
	Metadata            map[string]any   `json:"metadata,omitempty"`
}
