package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/baharkarakas/checkflow/internal/models"
	"github.com/shopspring/decimal"
)

type auditLogsRepo struct{ db *sql.DB }

func (r *auditLogsRepo) Create(ctx context.Context, l models.AuditLog) error {
	var meta sql.NullString
	if len(l.Metadata) > 0 {
		b, err := json.Marshal(l.Metadata)
		if err != nil {
			return fmt.Errorf("encode audit metadata: %w", err)
		}
		meta = sql.NullString{String: string(b), Valid: true}
	}
	var amount decimal.NullDecimal
	if l.Amount != nil {
		amount = decimal.NewNullDecimal(*l.Amount)
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO transaction_history (
  timestamp, user_id, operation_type, counterparty_id, check_id, token_id,
  amount, status, conversation_context, intent_confidence, metadata
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		toMillis(l.Timestamp), l.UserID, string(l.OperationType), l.CounterpartyID, l.CheckID, l.TokenID,
		amount, string(l.Status), sql.NullString{String: l.ConversationContext, Valid: l.ConversationContext != ""},
		l.IntentConfidence, meta,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func (r *auditLogsRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]models.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, timestamp, user_id, operation_type, counterparty_id, check_id, token_id,
       amount, status, conversation_context, intent_confidence, metadata
  FROM transaction_history
 WHERE user_id = ?
 ORDER BY timestamp DESC, id DESC
 LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var out []models.AuditLog
	for rows.Next() {
		var (
			l            models.AuditLog
			ts           int64
			counterparty sql.NullInt64
			checkID      sql.NullInt64
			tokenID      sql.NullInt64
			amount       decimal.NullDecimal
			ctxText      sql.NullString
			confidence   sql.NullFloat64
			meta         sql.NullString
		)
		if err := rows.Scan(&l.ID, &ts, &l.UserID, &l.OperationType, &counterparty, &checkID, &tokenID,
			&amount, &l.Status, &ctxText, &confidence, &meta); err != nil {
			return nil, err
		}
		l.Timestamp = fromMillis(ts)
		if counterparty.Valid {
			l.CounterpartyID = &counterparty.Int64
		}
		if checkID.Valid {
			l.CheckID = &checkID.Int64
		}
		if tokenID.Valid {
			l.TokenID = &tokenID.Int64
		}
		if amount.Valid {
			l.Amount = &amount.Decimal
		}
		l.ConversationContext = ctxText.String
		if confidence.Valid {
			l.IntentConfidence = &confidence.Float64
		}
		if meta.Valid {
			_ = json.Unmarshal([]byte(meta.String), &l.Metadata)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
