package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/baharkarakas/checkflow/internal/models"
	repo "github.com/baharkarakas/checkflow/internal/repository"
	"github.com/shopspring/decimal"
)

// Auditor receives one entry per routed operation. Implementations must not
// fail the caller: write errors are theirs to handle.
type Auditor interface {
	Record(ctx context.Context, entry models.AuditLog)
}

// Outcome is a routed Result plus whatever a query returned.
type Outcome struct {
	Result
	Checks  []models.CheckView `json:"checks,omitempty"`
	Balance *decimal.Decimal   `json:"balance,omitempty"`
}

// CommandService routes structured commands onto the lifecycle engine.
type CommandService struct {
	engine *CheckService
	audit  Auditor
	log    *slog.Logger
}

func NewCommandService(engine *CheckService, audit Auditor, log *slog.Logger) *CommandService {
	if log == nil {
		log = slog.Default()
	}
	return &CommandService{engine: engine, audit: audit, log: log}
}

func (s *CommandService) Execute(ctx context.Context, env Envelope) (Outcome, error) {
	switch cmd := env.Command.(type) {
	case IssueCheck:
		return s.issue(ctx, env, cmd)
	case AcceptCheck:
		return s.accept(ctx, env, cmd)
	case DenyCheck:
		return s.deny(ctx, env, cmd)
	case ForwardCheck:
		return s.forward(ctx, env, cmd)
	case RevokeOp:
		return s.revoke(ctx, env, cmd)
	case QueryChecks:
		return s.queryChecks(ctx, env)
	case QueryBalance:
		return s.queryBalance(ctx, env)
	case nil:
		res := failed(MissingParameters, "No operation given.")
		s.record(ctx, env, models.OpUnknown, res, nil, nil)
		return Outcome{Result: res}, nil
	}
	op := env.Command.Operation()
	res := failed(Unsupported, fmt.Sprintf("Operation %s not implemented.", op))
	s.record(ctx, env, op, res, nil, nil)
	return Outcome{Result: res}, nil
}

// ----------------- Mutations -----------------

func (s *CommandService) issue(ctx context.Context, env Envelope, cmd IssueCheck) (Outcome, error) {
	if strings.TrimSpace(cmd.Counterparty) == "" || cmd.Amount == nil {
		res := failed(MissingParameters, "I need a name and amount to issue a check.")
		s.record(ctx, env, models.OpIssueCheck, res, nil, cmd.Amount)
		return Outcome{Result: res}, nil
	}
	res, err := s.engine.Issue(ctx, env.CallerID, cmd.Counterparty, *cmd.Amount, cmd.Maturity)
	if err != nil {
		s.record(ctx, env, models.OpIssueCheck, failed("", err.Error()), nil, cmd.Amount)
		return Outcome{}, err
	}
	s.record(ctx, env, models.OpIssueCheck, res, nil, cmd.Amount)
	return Outcome{Result: res}, nil
}

func (s *CommandService) accept(ctx context.Context, env Envelope, cmd AcceptCheck) (Outcome, error) {
	if cmd.All {
		return s.acceptAll(ctx, env)
	}
	ids := uniqueIDs(cmd.CheckIDs)
	if len(ids) == 0 && strings.TrimSpace(cmd.IssuerName) != "" {
		return s.single(ctx, env, models.OpAcceptCheck, func() (Result, error) {
			return s.engine.Accept(ctx, env.CallerID, CheckTarget{IssuerName: cmd.IssuerName})
		})
	}
	return s.batch(ctx, env, models.OpAcceptCheck, ids, func(id int64) (Result, error) {
		return s.engine.Accept(ctx, env.CallerID, CheckTarget{ID: id})
	})
}

func (s *CommandService) acceptAll(ctx context.Context, env Envelope) (Outcome, error) {
	views, err := s.engine.Checks(ctx, env.CallerID)
	if err != nil {
		return Outcome{}, err
	}
	var pending []int64
	for _, v := range views {
		if v.PayeeID == env.CallerID && v.Status == models.CheckPending {
			pending = append(pending, v.ID)
		}
	}
	if len(pending) == 0 {
		res := Result{Success: true, Message: "No pending checks to accept."}
		s.record(ctx, env, models.OpAcceptCheck, res, nil, nil)
		return Outcome{Result: res}, nil
	}
	accepted := 0
	for _, id := range pending {
		res, err := s.engine.Accept(ctx, env.CallerID, CheckTarget{ID: id})
		if err != nil {
			return Outcome{}, err
		}
		s.record(ctx, env, models.OpAcceptCheck, res, &id, nil)
		if res.Success {
			accepted++
		}
	}
	return Outcome{Result: Result{Success: true, Message: fmt.Sprintf("Accepted %d checks.", accepted)}}, nil
}

func (s *CommandService) deny(ctx context.Context, env Envelope, cmd DenyCheck) (Outcome, error) {
	ids := uniqueIDs(cmd.CheckIDs)
	if len(ids) == 0 && strings.TrimSpace(cmd.IssuerName) != "" {
		return s.single(ctx, env, models.OpDenyCheck, func() (Result, error) {
			return s.engine.Deny(ctx, env.CallerID, CheckTarget{IssuerName: cmd.IssuerName})
		})
	}
	return s.batch(ctx, env, models.OpDenyCheck, ids, func(id int64) (Result, error) {
		return s.engine.Deny(ctx, env.CallerID, CheckTarget{ID: id})
	})
}

func (s *CommandService) forward(ctx context.Context, env Envelope, cmd ForwardCheck) (Outcome, error) {
	return s.single(ctx, env, models.OpForwardCheck, func() (Result, error) {
		return s.engine.Forward(ctx, env.CallerID, cmd.CheckID, cmd.ToCounterparty)
	})
}

func (s *CommandService) revoke(ctx context.Context, env Envelope, cmd RevokeOp) (Outcome, error) {
	return s.batch(ctx, env, models.OpRevoke, uniqueIDs(cmd.CheckIDs), func(id int64) (Result, error) {
		return s.smartRevoke(ctx, env.CallerID, id)
	})
}

// smartRevoke picks the undo that fits the caller's role on the check.
func (s *CommandService) smartRevoke(ctx context.Context, callerID, checkID int64) (Result, error) {
	c, err := s.engine.Check(ctx, checkID)
	if errors.Is(err, repo.ErrNotFound) {
		return failed(NotEligible, "Not found"), nil
	}
	if err != nil {
		return Result{}, err
	}
	switch {
	case c.SentBy(callerID) && c.Status == models.CheckPending:
		return s.engine.CancelForward(ctx, callerID, checkID)
	case c.IssuerID == callerID && c.Status == models.CheckPending:
		return s.engine.CancelIssuance(ctx, callerID, checkID)
	case c.PayeeID == callerID && (c.Status == models.CheckAccepted || c.Status == models.CheckDenied):
		return s.engine.RevokeIncomingDecision(ctx, callerID, checkID)
	case c.PayeeID == callerID:
		return failed(NotEligible, fmt.Sprintf("Check is %s, nothing to revoke.", c.Status)), nil
	}
	return failed(NotEligible, "You cannot revoke this check (wrong status or ownership)."), nil
}

// ----------------- Queries -----------------

func (s *CommandService) queryChecks(ctx context.Context, env Envelope) (Outcome, error) {
	views, err := s.engine.Checks(ctx, env.CallerID)
	if err != nil {
		return Outcome{}, err
	}
	res := Result{Success: true, Message: SummarizeChecks(views)}
	s.record(ctx, env, models.OpQueryChecks, res, nil, nil)
	return Outcome{Result: res, Checks: views}, nil
}

func (s *CommandService) queryBalance(ctx context.Context, env Envelope) (Outcome, error) {
	bal, err := s.engine.Balance(ctx, env.CallerID)
	if err != nil {
		return Outcome{}, err
	}
	res := Result{Success: true, Message: fmt.Sprintf("Balance: $%s", bal.StringFixed(2))}
	s.record(ctx, env, models.OpQueryBalance, res, nil, nil)
	return Outcome{Result: res, Balance: &bal}, nil
}

// SummarizeChecks renders the basket overview shown to chat users.
func SummarizeChecks(views []models.CheckView) string {
	baskets := map[models.CheckCategory][]models.CheckView{}
	for _, v := range views {
		baskets[v.Category] = append(baskets[v.Category], v)
	}
	var sections []string
	if in := baskets[models.CategoryIncoming]; len(in) > 0 {
		lines := []string{fmt.Sprintf("Incoming (%d):", len(in))}
		for _, v := range in {
			lines = append(lines, fmt.Sprintf("  - #%d from %s: $%s", v.ID, v.IssuerName, v.Amount.StringFixed(2)))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}
	if w := baskets[models.CategoryWallet]; len(w) > 0 {
		lines := []string{fmt.Sprintf("Wallet (%d):", len(w))}
		for _, v := range w {
			lines = append(lines, fmt.Sprintf("  - #%d: $%s", v.ID, v.Amount.StringFixed(2)))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}
	if f := baskets[models.CategoryForwarded]; len(f) > 0 {
		lines := []string{fmt.Sprintf("Forwarded (%d):", len(f))}
		for _, v := range f {
			lines = append(lines, fmt.Sprintf("  - #%d to %s (%s)", v.ID, v.PayeeName, v.Status))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}
	if is := baskets[models.CategoryIssued]; len(is) > 0 {
		lines := []string{fmt.Sprintf("Issued (%d):", len(is))}
		for _, v := range is {
			lines = append(lines, fmt.Sprintf("  - #%d to %s: $%s", v.ID, v.PayeeName, v.Amount.StringFixed(2)))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}
	if len(sections) == 0 {
		return "You have no checks."
	}
	return strings.Join(sections, "\n\n")
}

// ----------------- Helpers -----------------

func (s *CommandService) single(ctx context.Context, env Envelope, op models.OperationType, fn func() (Result, error)) (Outcome, error) {
	res, err := fn()
	if err != nil {
		s.log.Error("command failed", "operation", op, "caller_id", env.CallerID, "err", err)
		s.record(ctx, env, op, failed("", err.Error()), nil, nil)
		return Outcome{}, err
	}
	s.record(ctx, env, op, res, nil, nil)
	return Outcome{Result: res}, nil
}

// batch runs fn for each id and joins the messages as "#id: msg | ...". A
// single id returns its own result unchanged. The batch succeeds when any
// element does.
func (s *CommandService) batch(ctx context.Context, env Envelope, op models.OperationType, ids []int64, fn func(id int64) (Result, error)) (Outcome, error) {
	if len(ids) == 0 {
		res := failed(MissingParameters, "Which check?")
		s.record(ctx, env, op, res, nil, nil)
		return Outcome{Result: res}, nil
	}

	var (
		parts       []string
		firstFail   FailureKind
		successes   int
		lastSuccess Result
	)
	for _, id := range ids {
		res, err := fn(id)
		if err != nil {
			s.log.Error("command failed", "operation", op, "caller_id", env.CallerID, "check_id", id, "err", err)
			s.record(ctx, env, op, failed("", err.Error()), &id, nil)
			return Outcome{}, err
		}
		s.record(ctx, env, op, res, &id, nil)
		if len(ids) == 1 {
			return Outcome{Result: res}, nil
		}
		parts = append(parts, fmt.Sprintf("#%d: %s", id, res.Message))
		if res.Success {
			successes++
			lastSuccess = res
		} else if firstFail == "" {
			firstFail = res.Failure
		}
	}

	out := Result{Success: successes > 0, Message: strings.Join(parts, " | ")}
	if !out.Success {
		out.Failure = firstFail
	}
	if successes == 1 {
		out.CheckID = lastSuccess.CheckID
	}
	return Outcome{Result: out}, nil
}

func (s *CommandService) record(ctx context.Context, env Envelope, op models.OperationType, res Result, checkID *int64, amount *decimal.Decimal) {
	if s.audit == nil {
		return
	}
	status := models.AuditFailed
	if res.Success {
		status = models.AuditSuccess
	}
	if checkID == nil {
		checkID = res.CheckID
	}
	entry := models.AuditLog{
		Timestamp:           s.engine.now(),
		UserID:              env.CallerID,
		OperationType:       op,
		CounterpartyID:      res.CounterpartyID,
		CheckID:             checkID,
		Amount:              amount,
		Status:              status,
		ConversationContext: env.ConversationContext,
		IntentConfidence:    env.IntentConfidence,
	}
	if !res.Success && res.Message != "" {
		entry.Metadata = map[string]any{"message": res.Message}
		if res.Failure != "" {
			entry.Metadata["failure"] = string(res.Failure)
		}
	}
	s.audit.Record(ctx, entry)
}
