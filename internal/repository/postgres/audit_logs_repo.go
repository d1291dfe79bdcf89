package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/baharkarakas/checkflow/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type auditLogsRepo struct{ pool *pgxpool.Pool }

func (r *auditLogsRepo) Create(ctx context.Context, l models.AuditLog) error {
	var meta []byte
	if len(l.Metadata) > 0 {
		b, err := json.Marshal(l.Metadata)
		if err != nil {
			return fmt.Errorf("encode audit metadata: %w", err)
		}
		meta = b
	}
	var ctxText *string
	if l.ConversationContext != "" {
		ctxText = &l.ConversationContext
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO transaction_history (
  timestamp, user_id, operation_type, counterparty_id, check_id, token_id,
  amount, status, conversation_context, intent_confidence, metadata
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		l.Timestamp, l.UserID, string(l.OperationType), l.CounterpartyID, l.CheckID, l.TokenID,
		l.Amount, string(l.Status), ctxText, l.IntentConfidence, meta,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func (r *auditLogsRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]models.AuditLog, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, timestamp, user_id, operation_type, counterparty_id, check_id, token_id,
       amount, status, conversation_context, intent_confidence, metadata
  FROM transaction_history
 WHERE user_id = $1
 ORDER BY timestamp DESC, id DESC
 LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var out []models.AuditLog
	for rows.Next() {
		var (
			l       models.AuditLog
			amount  decimal.NullDecimal
			ctxText *string
			meta    []byte
		)
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.UserID, &l.OperationType, &l.CounterpartyID, &l.CheckID,
			&l.TokenID, &amount, &l.Status, &ctxText, &l.IntentConfidence, &meta); err != nil {
			return nil, err
		}
		if amount.Valid {
			l.Amount = &amount.Decimal
		}
		if ctxText != nil {
			l.ConversationContext = *ctxText
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &l.Metadata)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
