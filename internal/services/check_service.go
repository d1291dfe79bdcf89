package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/baharkarakas/checkflow/internal/metrics"
	"github.com/baharkarakas/checkflow/internal/models"
	repo "github.com/baharkarakas/checkflow/internal/repository"
	"github.com/shopspring/decimal"
)

const DefaultRevocationWindow = time.Hour

type CheckOptions struct {
	// RevocationWindow bounds cancel-forward and cancel-issuance. Zero means
	// DefaultRevocationWindow.
	RevocationWindow    time.Duration
	DefaultMaturityDays int
	Clock               func() time.Time
	Logger              *slog.Logger
}

// CheckService is the check lifecycle engine. Each mutation is a single
// conditional write against the store; a write that matches no row is
// reported as a failed Result, never as an error.
type CheckService struct {
	checks       repo.Checks
	resolver     *CounterpartyResolver
	balances     *BalanceService
	log          *slog.Logger
	clock        func() time.Time
	window       time.Duration
	maturityDays int
}

func NewCheckService(checks repo.Checks, resolver *CounterpartyResolver, balances *BalanceService, opts CheckOptions) *CheckService {
	s := &CheckService{
		checks:       checks,
		resolver:     resolver,
		balances:     balances,
		log:          opts.Logger,
		clock:        opts.Clock,
		window:       opts.RevocationWindow,
		maturityDays: opts.DefaultMaturityDays,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.window <= 0 {
		s.window = DefaultRevocationWindow
	}
	return s
}

// now is truncated to milliseconds so stored and compared timestamps agree
// across backends.
func (s *CheckService) now() time.Time {
	return s.clock().UTC().Truncate(time.Millisecond)
}

func (s *CheckService) Window() time.Duration { return s.window }

// ----------------- Issue -----------------

func (s *CheckService) Issue(ctx context.Context, issuerID int64, payeeName string, amount decimal.Decimal, maturity *time.Time) (Result, error) {
	payeeName = strings.TrimSpace(payeeName)
	payeeID, err := s.resolver.Resolve(ctx, payeeName)
	if errors.Is(err, ErrBlankName) {
		return s.observe("issue", failed(MissingParameters, "I need a name and amount to issue a check.")), nil
	}
	if err != nil {
		return s.storeFailure("issue", err)
	}

	now := s.now()
	due := now.AddDate(0, 0, s.maturityDays)
	if maturity != nil {
		due = maturity.UTC()
	}
	sender := issuerID
	c, err := s.checks.Create(ctx, models.Check{
		IssuerID:     issuerID,
		PayeeID:      payeeID,
		SenderID:     &sender,
		Amount:       amount,
		Status:       models.CheckPending,
		IssuedAt:     now,
		MaturityDate: due,
	})
	if err != nil {
		return s.storeFailure("issue", err)
	}
	s.log.Debug("check issued", "check_id", c.ID, "issuer_id", issuerID, "payee_id", payeeID, "amount", amount.String())
	return s.observe("issue", succeeded(c.ID, "Check #%d issued to %s.", c.ID, payeeName).withCounterparty(payeeID)), nil
}

// ----------------- Accept / Deny -----------------

// CheckTarget names the check an accept or deny applies to: an explicit id,
// or the oldest eligible check the caller holds from the named issuer.
type CheckTarget struct {
	ID         int64
	IssuerName string
}

func (s *CheckService) Accept(ctx context.Context, holderID int64, target CheckTarget) (Result, error) {
	return s.decide(ctx, "accept", holderID, target, s.checks.Accept,
		"Check #%d Accepted", "Check not found or not available to accept.")
}

func (s *CheckService) Deny(ctx context.Context, holderID int64, target CheckTarget) (Result, error) {
	return s.decide(ctx, "deny", holderID, target, s.checks.Deny,
		"Check #%d Denied", "Check not found or not available to deny.")
}

type decideFunc func(ctx context.Context, holderID int64, ref repo.CheckRef) (int64, bool, error)

func (s *CheckService) decide(ctx context.Context, op string, holderID int64, target CheckTarget, write decideFunc, okFmt, notFound string) (Result, error) {
	ref := repo.CheckRef{ID: target.ID}
	var counterparty *int64
	if ref.ID == 0 {
		if strings.TrimSpace(target.IssuerName) == "" {
			return s.observe(op, failed(MissingParameters, "Missing check information")), nil
		}
		senderID, err := s.resolver.Resolve(ctx, target.IssuerName)
		if err != nil {
			return s.storeFailure(op, err)
		}
		ref.SenderID = senderID
		counterparty = &senderID
	}

	id, ok, err := write(ctx, holderID, ref)
	if err != nil {
		return s.storeFailure(op, err)
	}
	res := failed(NotEligible, notFound)
	if ok {
		res = succeeded(id, okFmt, id)
	}
	res.CounterpartyID = counterparty
	return s.observe(op, res), nil
}

// ----------------- Forward -----------------

func (s *CheckService) Forward(ctx context.Context, holderID, checkID int64, newPayeeName string) (Result, error) {
	const notOwned = "Check not found, not accepted, or you do not own it."
	if checkID == 0 {
		return s.observe("forward", failed(MissingParameters, "Need check number.")), nil
	}
	newPayeeName = strings.TrimSpace(newPayeeName)
	if newPayeeName == "" {
		return s.observe("forward", failed(MissingParameters, "Need recipient name.")), nil
	}

	// Advisory read so an ineligible forward does not create a party. The
	// conditional write below is what decides.
	c, err := s.checks.GetByID(ctx, checkID)
	if errors.Is(err, repo.ErrNotFound) {
		return s.observe("forward", failed(NotEligible, notOwned)), nil
	}
	if err != nil {
		return s.storeFailure("forward", err)
	}
	if c.PayeeID != holderID || c.Status != models.CheckAccepted {
		return s.observe("forward", failed(NotEligible, notOwned)), nil
	}

	newPayeeID, err := s.resolver.Resolve(ctx, newPayeeName)
	if err != nil {
		return s.storeFailure("forward", err)
	}
	ok, err := s.checks.Forward(ctx, checkID, holderID, newPayeeID, s.now())
	if err != nil {
		return s.storeFailure("forward", err)
	}
	if !ok {
		return s.observe("forward", failed(NotEligible, notOwned)), nil
	}
	s.log.Debug("check forwarded", "check_id", checkID, "from", holderID, "to", newPayeeID)
	return s.observe("forward", succeeded(checkID, "Check #%d forwarded to %s.", checkID, newPayeeName).withCounterparty(newPayeeID)), nil
}

// ----------------- Cancel / revoke -----------------

// CancelForward pulls a forwarded check back while the recipient has not
// decided and the window is open. The sender ends up holding it ACCEPTED;
// sender_id is restored to the issuer when the sender is the issuer.
func (s *CheckService) CancelForward(ctx context.Context, senderID, checkID int64) (Result, error) {
	now := s.now()
	ok, err := s.checks.CancelForward(ctx, checkID, senderID, now.Add(-s.window))
	if err != nil {
		return s.storeFailure("cancel_forward", err)
	}
	if ok {
		return s.observe("cancel_forward",
			succeeded(checkID, "Forward for Check #%d cancelled. It has been returned to your wallet.", checkID)), nil
	}
	res, err := s.classify(ctx, checkID, now, func(c models.Check) bool {
		return c.SentBy(senderID) && c.Status == models.CheckPending
	}, "Cannot cancel: Check not found, already accepted by recipient, or not sent by you.")
	if err != nil {
		return s.storeFailure("cancel_forward", err)
	}
	return s.observe("cancel_forward", res), nil
}

// CancelIssuance deletes a check its issuer still has outstanding: PENDING at
// the first payee, within the window. A check that has since been forwarded
// by someone else is out of reach.
func (s *CheckService) CancelIssuance(ctx context.Context, issuerID, checkID int64) (Result, error) {
	now := s.now()
	ok, err := s.checks.DeleteIssuance(ctx, checkID, issuerID, now.Add(-s.window))
	if err != nil {
		return s.storeFailure("cancel_issuance", err)
	}
	if ok {
		s.log.Info("check issuance cancelled", "check_id", checkID, "issuer_id", issuerID)
		return s.observe("cancel_issuance", succeeded(checkID, "Issuance of Check #%d cancelled.", checkID)), nil
	}
	res, err := s.classify(ctx, checkID, now, func(c models.Check) bool {
		return c.IssuerID == issuerID && c.SentBy(issuerID) && c.Status == models.CheckPending
	}, "Cannot cancel: Check not found or recipient has already processed it.")
	if err != nil {
		return s.storeFailure("cancel_issuance", err)
	}
	return s.observe("cancel_issuance", res), nil
}

// classify explains a failed windowed write: if the row still satisfies the
// ownership and status guard, the window must have closed.
func (s *CheckService) classify(ctx context.Context, checkID int64, now time.Time, guard func(models.Check) bool, notEligible string) (Result, error) {
	c, err := s.checks.GetByID(ctx, checkID)
	if errors.Is(err, repo.ErrNotFound) {
		return failed(NotEligible, notEligible), nil
	}
	if err != nil {
		return Result{}, err
	}
	if guard(c) && now.Sub(c.IssuedAt) > s.window {
		return failed(ExpiredWindow, fmt.Sprintf("Cannot cancel: %s revocation window has expired.", windowLabel(s.window))), nil
	}
	return failed(NotEligible, notEligible), nil
}

// RevokeIncomingDecision puts a held check back to PENDING, whatever its
// status. No time limit applies.
func (s *CheckService) RevokeIncomingDecision(ctx context.Context, holderID, checkID int64) (Result, error) {
	ok, err := s.checks.ResetDecision(ctx, checkID, holderID)
	if err != nil {
		return s.storeFailure("revoke_decision", err)
	}
	if !ok {
		return s.observe("revoke_decision", failed(NotEligible, "You do not own this check.")), nil
	}
	return s.observe("revoke_decision", succeeded(checkID, "Decision reset. Check #%d is back to PENDING status.", checkID)), nil
}

// ----------------- Queries -----------------

func (s *CheckService) Checks(ctx context.Context, partyID int64) ([]models.CheckView, error) {
	return s.checks.ListForParty(ctx, partyID)
}

// Check returns the raw row; repository.ErrNotFound when absent.
func (s *CheckService) Check(ctx context.Context, checkID int64) (models.Check, error) {
	return s.checks.GetByID(ctx, checkID)
}

func (s *CheckService) Balance(ctx context.Context, partyID int64) (decimal.Decimal, error) {
	return s.balances.Current(ctx, partyID)
}

// ----------------- Helpers -----------------

func (s *CheckService) observe(op string, r Result) Result {
	outcome := "success"
	if !r.Success {
		outcome = string(r.Failure)
	}
	metrics.ObserveOperation(op, outcome)
	return r
}

func (s *CheckService) storeFailure(op string, err error) (Result, error) {
	metrics.ObserveOperation(op, "error")
	s.log.Error("check store failure", "op", op, "err", err)
	return Result{}, fmt.Errorf("%s: %w", op, err)
}

func windowLabel(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%d-hour", int(d/time.Hour))
	}
	if d%time.Minute == 0 {
		return fmt.Sprintf("%d-minute", int(d/time.Minute))
	}
	return d.String()
}
