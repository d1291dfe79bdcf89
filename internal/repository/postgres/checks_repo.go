package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/baharkarakas/checkflow/internal/models"
	"github.com/baharkarakas/checkflow/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type checksRepo struct{ pool *pgxpool.Pool }

func NewChecks(pool *pgxpool.Pool) repository.Checks {
	return &checksRepo{pool: pool}
}

const checkColumns = `c.id, c.issuer_id, c.payee_id, c.sender_id, c.amount, c.status::text, c.issued_at, c.maturity_date, c.parent_check_id`

func scanCheck(row pgx.Row, extra ...any) (models.Check, error) {
	var (
		c        models.Check
		maturity *time.Time
	)
	dest := append([]any{
		&c.ID, &c.IssuerID, &c.PayeeID, &c.SenderID, &c.Amount, &c.Status, &c.IssuedAt, &maturity, &c.ParentCheckID,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return models.Check{}, err
	}
	if maturity != nil {
		c.MaturityDate = *maturity
	}
	return c, nil
}

func (r *checksRepo) Create(ctx context.Context, c models.Check) (models.Check, error) {
	if c.Status == "" {
		c.Status = models.CheckPending
	}
	err := r.pool.QueryRow(ctx, `
INSERT INTO checks (issuer_id, payee_id, sender_id, amount, status, issued_at, maturity_date, parent_check_id)
VALUES ($1, $2, $3, $4, $5::text::check_status, $6, $7, $8)
RETURNING id`,
		c.IssuerID, c.PayeeID, c.SenderID, c.Amount, string(c.Status), c.IssuedAt, c.MaturityDate, c.ParentCheckID,
	).Scan(&c.ID)
	if err != nil {
		return models.Check{}, fmt.Errorf("insert check: %w", err)
	}
	return c, nil
}

func (r *checksRepo) GetByID(ctx context.Context, id int64) (models.Check, error) {
	c, err := scanCheck(r.pool.QueryRow(ctx, `SELECT `+checkColumns+` FROM checks c WHERE c.id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Check{}, repository.ErrNotFound
	}
	return c, err
}

func (r *checksRepo) ListForParty(ctx context.Context, partyID int64) ([]models.CheckView, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+checkColumns+`, ui.username, up.username, us.username
  FROM checks c
  JOIN users ui ON ui.id = c.issuer_id
  JOIN users up ON up.id = c.payee_id
  LEFT JOIN users us ON us.id = c.sender_id
 WHERE c.issuer_id = $1 OR c.payee_id = $1 OR c.sender_id = $1
 ORDER BY c.id DESC`, partyID)
	if err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}
	defer rows.Close()

	var out []models.CheckView
	for rows.Next() {
		var v models.CheckView
		c, err := scanCheck(rows, &v.IssuerName, &v.PayeeName, &v.SenderName)
		if err != nil {
			return nil, err
		}
		v.Check = c
		v.Category = c.CategoryFor(partyID)
		out = append(out, v)
	}
	return out, rows.Err()
}

// decide applies an accept/deny. When ref carries no id the oldest eligible
// check from ref.SenderID is picked and locked inside the same statement.
func (r *checksRepo) decide(ctx context.Context, holderID int64, ref repository.CheckRef, set, from string) (int64, bool, error) {
	var (
		row pgx.Row
		id  int64
	)
	if ref.ID != 0 {
		row = r.pool.QueryRow(ctx, `
UPDATE checks SET `+set+`
 WHERE id = $1 AND payee_id = $2 AND status IN (`+from+`)
RETURNING id`, ref.ID, holderID)
	} else {
		row = r.pool.QueryRow(ctx, `
UPDATE checks SET `+set+`
 WHERE id = (
        SELECT id FROM checks
         WHERE payee_id = $1 AND sender_id = $2 AND status IN (`+from+`)
         ORDER BY id
         LIMIT 1
           FOR UPDATE SKIP LOCKED)
   AND payee_id = $1 AND status IN (`+from+`)
RETURNING id`, holderID, ref.SenderID)
	}
	err := row.Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("update check: %w", err)
	}
	return id, true, nil
}

func (r *checksRepo) Accept(ctx context.Context, holderID int64, ref repository.CheckRef) (int64, bool, error) {
	return r.decide(ctx, holderID, ref, `status = 'ACCEPTED', sender_id = NULL`, `'PENDING', 'DENIED'`)
}

func (r *checksRepo) Deny(ctx context.Context, holderID int64, ref repository.CheckRef) (int64, bool, error) {
	return r.decide(ctx, holderID, ref, `status = 'DENIED'`, `'PENDING', 'ACCEPTED'`)
}

func (r *checksRepo) Forward(ctx context.Context, id, holderID, newPayeeID int64, at time.Time) (bool, error) {
	return r.exec(ctx, `
UPDATE checks
   SET payee_id = $3, sender_id = $2, status = 'PENDING', issued_at = $4
 WHERE id = $1 AND payee_id = $2 AND status = 'ACCEPTED'`, id, holderID, newPayeeID, at)
}

func (r *checksRepo) CancelForward(ctx context.Context, id, senderID int64, notBefore time.Time) (bool, error) {
	return r.exec(ctx, `
UPDATE checks
   SET payee_id = $2,
       status = 'ACCEPTED',
       sender_id = CASE WHEN issuer_id = $2 THEN issuer_id ELSE NULL END
 WHERE id = $1 AND sender_id = $2 AND status = 'PENDING' AND issued_at >= $3`, id, senderID, notBefore)
}

func (r *checksRepo) DeleteIssuance(ctx context.Context, id, issuerID int64, notBefore time.Time) (bool, error) {
	return r.exec(ctx, `
DELETE FROM checks
 WHERE id = $1 AND issuer_id = $2 AND sender_id = $2 AND status = 'PENDING' AND issued_at >= $3`, id, issuerID, notBefore)
}

func (r *checksRepo) ResetDecision(ctx context.Context, id, holderID int64) (bool, error) {
	return r.exec(ctx, `UPDATE checks SET status = 'PENDING' WHERE id = $1 AND payee_id = $2`, id, holderID)
}

func (r *checksRepo) exec(ctx context.Context, q string, args ...any) (bool, error) {
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return false, fmt.Errorf("write check: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
