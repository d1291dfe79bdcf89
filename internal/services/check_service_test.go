package services

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/checkflow/internal/models"
	repo "github.com/baharkarakas/checkflow/internal/repository"
)

func TestIssueCreatesPendingCheckSentByIssuer(t *testing.T) {
	e := newTestEnv(t)
	alice := e.party(t, "Alice")

	res, err := e.engine.Issue(e.ctx, alice, "  Bob ", decimal.RequireFromString("250.75"), nil)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.NotNil(t, res.CheckID)
	assert.Equal(t, "Check #1 issued to Bob.", res.Message)
	require.NotNil(t, res.CounterpartyID)

	c := e.check(t, *res.CheckID)
	assert.Equal(t, alice, c.IssuerID)
	assert.Equal(t, *res.CounterpartyID, c.PayeeID)
	require.NotNil(t, c.SenderID)
	assert.Equal(t, alice, *c.SenderID)
	assert.Equal(t, models.CheckPending, c.Status)
	assert.True(t, c.Amount.Equal(decimal.RequireFromString("250.75")), c.Amount.String())
	assert.True(t, c.IssuedAt.Equal(e.clock.Now()))
	assert.True(t, c.MaturityDate.Equal(e.clock.Now()), "no maturity and zero default days means due now")
	assert.Nil(t, c.ParentCheckID)
}

func TestIssueKeepsLargeFractionalAmount(t *testing.T) {
	e := newTestEnv(t)
	alice := e.party(t, "Alice")
	amount := decimal.RequireFromString("12345678901234567.89")

	res, err := e.engine.Issue(e.ctx, alice, "Bob", amount, nil)
	require.NoError(t, err)
	require.True(t, res.Success)

	c, err := e.engine.Check(e.ctx, *res.CheckID)
	require.NoError(t, err)
	assert.True(t, c.Amount.Equal(amount), "read %s", c.Amount)
}

func TestIssueUsesGivenMaturity(t *testing.T) {
	e := newTestEnv(t)
	alice := e.party(t, "Alice")
	due := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)

	res, err := e.engine.Issue(e.ctx, alice, "Bob", decimal.NewFromInt(10), &due)
	require.NoError(t, err)
	assert.True(t, e.check(t, *res.CheckID).MaturityDate.Equal(due))
}

func TestIssueBlankPayeeIsMissingParameters(t *testing.T) {
	e := newTestEnv(t)
	alice := e.party(t, "Alice")

	res, err := e.engine.Issue(e.ctx, alice, "   ", decimal.NewFromInt(10), nil)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, MissingParameters, res.Failure)
	assert.True(t, errors.Is(res.Err(), ErrMissingParameters))
	assert.Equal(t, 1, e.userCount(t))
}

func TestAcceptTwiceSecondIsNotEligible(t *testing.T) {
	e := newTestEnv(t)
	alice, bob := e.party(t, "Alice"), e.party(t, "Bob")
	id := e.issue(t, alice, "Bob", 100)

	res, err := e.engine.Accept(e.ctx, bob, CheckTarget{ID: id})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "Check #1 Accepted", res.Message)

	c := e.check(t, id)
	assert.Equal(t, models.CheckAccepted, c.Status)
	assert.Nil(t, c.SenderID, "accept clears the sender")

	res, err = e.engine.Accept(e.ctx, bob, CheckTarget{ID: id})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, NotEligible, res.Failure)
	assert.Equal(t, "Check not found or not available to accept.", res.Message)
}

func TestAcceptRequiresHolder(t *testing.T) {
	e := newTestEnv(t)
	alice := e.party(t, "Alice")
	e.party(t, "Bob")
	id := e.issue(t, alice, "Bob", 100)

	res, err := e.engine.Accept(e.ctx, alice, CheckTarget{ID: id})
	require.NoError(t, err)
	assert.Equal(t, NotEligible, res.Failure)
	assert.Equal(t, models.CheckPending, e.check(t, id).Status)
}

func TestDenyThenAcceptAndBack(t *testing.T) {
	e := newTestEnv(t)
	alice, bob := e.party(t, "Alice"), e.party(t, "Bob")
	id := e.issue(t, alice, "Bob", 100)

	res, err := e.engine.Deny(e.ctx, bob, CheckTarget{ID: id})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "Check #1 Denied", res.Message)
	assert.Equal(t, models.CheckDenied, e.check(t, id).Status)

	res, err = e.engine.Accept(e.ctx, bob, CheckTarget{ID: id})
	require.NoError(t, err)
	require.True(t, res.Success, "a denied check can still be accepted")

	res, err = e.engine.Deny(e.ctx, bob, CheckTarget{ID: id})
	require.NoError(t, err)
	require.True(t, res.Success, "an accepted check can still be denied")

	res, err = e.engine.Deny(e.ctx, bob, CheckTarget{ID: id})
	require.NoError(t, err)
	assert.Equal(t, NotEligible, res.Failure, "deny on DENIED")
}

func TestAcceptByIssuerNamePicksOldest(t *testing.T) {
	e := newTestEnv(t)
	alice, bob := e.party(t, "Alice Corporation"), e.party(t, "Bob")
	first := e.issue(t, alice, "Bob", 10)
	second := e.issue(t, alice, "Bob", 20)

	res, err := e.engine.Accept(e.ctx, bob, CheckTarget{IssuerName: "alice"})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, first, *res.CheckID)
	require.NotNil(t, res.CounterpartyID)
	assert.Equal(t, alice, *res.CounterpartyID)
	assert.Equal(t, models.CheckPending, e.check(t, second).Status)

	res, err = e.engine.Accept(e.ctx, bob, CheckTarget{IssuerName: "Alice Corporation"})
	require.NoError(t, err)
	assert.Equal(t, second, *res.CheckID)
}

func TestAcceptWithoutTargetIsMissingParameters(t *testing.T) {
	e := newTestEnv(t)
	bob := e.party(t, "Bob")

	res, err := e.engine.Accept(e.ctx, bob, CheckTarget{})
	require.NoError(t, err)
	assert.Equal(t, MissingParameters, res.Failure)
	assert.Equal(t, "Missing check information", res.Message)
}

func TestForwardTransfersOwnershipInPlace(t *testing.T) {
	e := newTestEnv(t)
	alice, bob := e.party(t, "Alice"), e.party(t, "Bob")
	id := e.issue(t, alice, "Bob", 100)
	_, err := e.engine.Accept(e.ctx, bob, CheckTarget{ID: id})
	require.NoError(t, err)

	e.clock.Advance(10 * time.Minute)
	res, err := e.engine.Forward(e.ctx, bob, id, "Carol")
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "Check #1 forwarded to Carol.", res.Message)
	assert.Equal(t, id, *res.CheckID, "forward keeps the check id")

	c := e.check(t, id)
	assert.Equal(t, *res.CounterpartyID, c.PayeeID)
	require.NotNil(t, c.SenderID)
	assert.Equal(t, bob, *c.SenderID)
	assert.Equal(t, alice, c.IssuerID)
	assert.Equal(t, models.CheckPending, c.Status)
	assert.True(t, c.IssuedAt.Equal(e.clock.Now()), "forward restarts the revocation window")
}

func TestForwardRequiresAcceptedHolder(t *testing.T) {
	e := newTestEnv(t)
	alice, bob := e.party(t, "Alice"), e.party(t, "Bob")
	id := e.issue(t, alice, "Bob", 100)
	before := e.userCount(t)

	res, err := e.engine.Forward(e.ctx, bob, id, "Carol")
	require.NoError(t, err)
	assert.Equal(t, NotEligible, res.Failure, "still pending")

	res, err = e.engine.Forward(e.ctx, alice, id, "Carol")
	require.NoError(t, err)
	assert.Equal(t, NotEligible, res.Failure, "issuer is not the holder")

	res, err = e.engine.Forward(e.ctx, bob, 999, "Carol")
	require.NoError(t, err)
	assert.Equal(t, NotEligible, res.Failure)
	assert.Equal(t, "Check not found, not accepted, or you do not own it.", res.Message)

	assert.Equal(t, before, e.userCount(t), "ineligible forwards create no party")
}

func TestForwardMissingParameters(t *testing.T) {
	e := newTestEnv(t)
	bob := e.party(t, "Bob")

	res, err := e.engine.Forward(e.ctx, bob, 0, "Carol")
	require.NoError(t, err)
	assert.Equal(t, "Need check number.", res.Message)

	res, err = e.engine.Forward(e.ctx, bob, 1, " ")
	require.NoError(t, err)
	assert.Equal(t, "Need recipient name.", res.Message)
	assert.Equal(t, MissingParameters, res.Failure)
}

func TestCancelForwardWindowBoundary(t *testing.T) {
	for _, tc := range []struct {
		name    string
		elapsed time.Duration
		want    FailureKind
	}{
		{name: "inside", elapsed: 59 * time.Minute},
		{name: "exactly one hour", elapsed: time.Hour},
		{name: "one millisecond late", elapsed: time.Hour + time.Millisecond, want: ExpiredWindow},
	} {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEnv(t)
			alice, bob := e.party(t, "Alice"), e.party(t, "Bob")
			id := e.issue(t, alice, "Bob", 100)
			_, err := e.engine.Accept(e.ctx, bob, CheckTarget{ID: id})
			require.NoError(t, err)
			_, err = e.engine.Forward(e.ctx, bob, id, "Carol")
			require.NoError(t, err)

			e.clock.Advance(tc.elapsed)
			res, err := e.engine.CancelForward(e.ctx, bob, id)
			require.NoError(t, err)
			if tc.want == "" {
				require.True(t, res.Success, res.Message)
				assert.Equal(t, "Forward for Check #1 cancelled. It has been returned to your wallet.", res.Message)
				return
			}
			assert.Equal(t, tc.want, res.Failure)
			assert.Equal(t, "Cannot cancel: 1-hour revocation window has expired.", res.Message)
			assert.Equal(t, models.CheckPending, e.check(t, id).Status)
		})
	}
}

func TestCancelForwardRestoresHolder(t *testing.T) {
	e := newTestEnv(t)
	alice, bob := e.party(t, "Alice"), e.party(t, "Bob")
	id := e.issue(t, alice, "Bob", 100)
	_, err := e.engine.Accept(e.ctx, bob, CheckTarget{ID: id})
	require.NoError(t, err)
	_, err = e.engine.Forward(e.ctx, bob, id, "Carol")
	require.NoError(t, err)

	res, err := e.engine.CancelForward(e.ctx, bob, id)
	require.NoError(t, err)
	require.True(t, res.Success)

	c := e.check(t, id)
	assert.Equal(t, bob, c.PayeeID)
	assert.Equal(t, models.CheckAccepted, c.Status)
	assert.Nil(t, c.SenderID, "a non-issuer sender leaves no sender behind")
}

func TestCancelForwardByIssuerKeepsIssuerAsSender(t *testing.T) {
	e := newTestEnv(t)
	alice := e.party(t, "Alice")
	id := e.issue(t, alice, "Bob", 100)

	res, err := e.engine.CancelForward(e.ctx, alice, id)
	require.NoError(t, err)
	require.True(t, res.Success)

	c := e.check(t, id)
	assert.Equal(t, alice, c.PayeeID)
	assert.Equal(t, models.CheckAccepted, c.Status)
	require.NotNil(t, c.SenderID)
	assert.Equal(t, alice, *c.SenderID)
}

func TestCancelForwardAfterRecipientDecided(t *testing.T) {
	e := newTestEnv(t)
	alice, bob := e.party(t, "Alice"), e.party(t, "Bob")
	id := e.issue(t, alice, "Bob", 100)
	_, err := e.engine.Accept(e.ctx, bob, CheckTarget{ID: id})
	require.NoError(t, err)

	e.clock.Advance(2 * time.Hour)
	res, err := e.engine.CancelForward(e.ctx, alice, id)
	require.NoError(t, err)
	assert.Equal(t, NotEligible, res.Failure, "accepted checks are not classified as expired")
	assert.Equal(t, "Cannot cancel: Check not found, already accepted by recipient, or not sent by you.", res.Message)
}

func TestCancelIssuance(t *testing.T) {
	e := newTestEnv(t)
	alice := e.party(t, "Alice")
	id := e.issue(t, alice, "Bob", 100)

	res, err := e.engine.CancelIssuance(e.ctx, alice, id)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "Issuance of Check #1 cancelled.", res.Message)

	_, err = e.engine.Check(e.ctx, id)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	res, err = e.engine.CancelIssuance(e.ctx, alice, id)
	require.NoError(t, err)
	assert.Equal(t, NotEligible, res.Failure)
}

func TestCancelIssuanceExpired(t *testing.T) {
	e := newTestEnv(t)
	alice := e.party(t, "Alice")
	id := e.issue(t, alice, "Bob", 100)

	e.clock.Advance(time.Hour + time.Second)
	res, err := e.engine.CancelIssuance(e.ctx, alice, id)
	require.NoError(t, err)
	assert.Equal(t, ExpiredWindow, res.Failure)
	assert.ErrorIs(t, res.Err(), ErrExpiredWindow)
	e.check(t, id)
}

func TestCancelIssuanceCannotReachForwardedCheck(t *testing.T) {
	e := newTestEnv(t)
	alice, bob := e.party(t, "Alice"), e.party(t, "Bob")
	id := e.issue(t, alice, "Bob", 100)
	_, err := e.engine.Accept(e.ctx, bob, CheckTarget{ID: id})
	require.NoError(t, err)
	_, err = e.engine.Forward(e.ctx, bob, id, "Carol")
	require.NoError(t, err)

	res, err := e.engine.CancelIssuance(e.ctx, alice, id)
	require.NoError(t, err)
	assert.Equal(t, NotEligible, res.Failure)
	assert.Equal(t, "Cannot cancel: Check not found or recipient has already processed it.", res.Message)
	assert.Equal(t, models.CheckPending, e.check(t, id).Status)
}

func TestRevokeIncomingDecision(t *testing.T) {
	e := newTestEnv(t)
	alice, bob := e.party(t, "Alice"), e.party(t, "Bob")
	id := e.issue(t, alice, "Bob", 100)
	_, err := e.engine.Deny(e.ctx, bob, CheckTarget{ID: id})
	require.NoError(t, err)

	e.clock.Advance(48 * time.Hour)
	res, err := e.engine.RevokeIncomingDecision(e.ctx, bob, id)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "Decision reset. Check #1 is back to PENDING status.", res.Message)
	assert.Equal(t, models.CheckPending, e.check(t, id).Status)

	res, err = e.engine.RevokeIncomingDecision(e.ctx, alice, id)
	require.NoError(t, err)
	assert.Equal(t, NotEligible, res.Failure)
	assert.Equal(t, "You do not own this check.", res.Message)
}

func TestChecksAreCategorizedPerParty(t *testing.T) {
	e := newTestEnv(t)
	alice, bob := e.party(t, "Alice"), e.party(t, "Bob")
	carol := e.party(t, "Carol")

	incoming := e.issue(t, alice, "Bob", 10)
	wallet := e.issue(t, alice, "Bob", 20)
	denied := e.issue(t, alice, "Bob", 30)
	forwarded := e.issue(t, alice, "Bob", 40)
	for _, id := range []int64{wallet, forwarded} {
		_, err := e.engine.Accept(e.ctx, bob, CheckTarget{ID: id})
		require.NoError(t, err)
	}
	_, err := e.engine.Deny(e.ctx, bob, CheckTarget{ID: denied})
	require.NoError(t, err)
	_, err = e.engine.Forward(e.ctx, bob, forwarded, "Carol")
	require.NoError(t, err)

	byID := func(party int64) map[int64]models.CheckView {
		views, err := e.engine.Checks(e.ctx, party)
		require.NoError(t, err)
		out := map[int64]models.CheckView{}
		for _, v := range views {
			out[v.ID] = v
		}
		return out
	}

	bobs := byID(bob)
	require.Len(t, bobs, 4)
	assert.Equal(t, models.CategoryIncoming, bobs[incoming].Category)
	assert.Equal(t, models.CategoryWallet, bobs[wallet].Category)
	assert.Equal(t, models.CategoryDeniedHistory, bobs[denied].Category)
	assert.Equal(t, models.CategoryForwarded, bobs[forwarded].Category)
	assert.Equal(t, "Alice", bobs[incoming].IssuerName)

	alices := byID(alice)
	require.Len(t, alices, 4)
	for _, v := range alices {
		assert.Equal(t, models.CategoryIssued, v.Category)
	}

	carols := byID(carol)
	require.Len(t, carols, 1)
	assert.Equal(t, models.CategoryIncoming, carols[forwarded].Category)
	require.NotNil(t, carols[forwarded].SenderName)
	assert.Equal(t, "Bob", *carols[forwarded].SenderName)
}

func TestBalance(t *testing.T) {
	e := newTestEnv(t)
	alice := e.party(t, "Alice")

	bal, err := e.engine.Balance(e.ctx, alice)
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromInt(1000)))

	bal, err = e.engine.Balance(e.ctx, 4242)
	require.NoError(t, err)
	assert.True(t, bal.IsZero())
}

func TestConcurrentAcceptHasOneWinner(t *testing.T) {
	e := newTestEnv(t)
	alice, bob := e.party(t, "Alice"), e.party(t, "Bob")
	id := e.issue(t, alice, "Bob", 100)

	const n = 8
	results := make(chan Result, n)
	for i := 0; i < n; i++ {
		go func() {
			res, err := e.engine.Accept(e.ctx, bob, CheckTarget{ID: id})
			if err != nil {
				res = failed("", err.Error())
			}
			results <- res
		}()
	}
	wins := 0
	for i := 0; i < n; i++ {
		if r := <-results; r.Success {
			wins++
		} else {
			assert.Equal(t, NotEligible, r.Failure, r.Message)
		}
	}
	assert.Equal(t, 1, wins)
}

func TestWindowIsConfigurable(t *testing.T) {
	e := newTestEnv(t)
	engine := NewCheckService(e.repos.Checks, e.resolver, NewBalanceService(e.repos.Users), CheckOptions{
		RevocationWindow: 15 * time.Minute,
		Clock:            e.clock.Now,
		Logger:           quietLogger(),
	})
	alice := e.party(t, "Alice")
	res, err := engine.Issue(e.ctx, alice, "Bob", decimal.NewFromInt(5), nil)
	require.NoError(t, err)

	e.clock.Advance(16 * time.Minute)
	res, err = engine.CancelIssuance(e.ctx, alice, *res.CheckID)
	require.NoError(t, err)
	assert.Equal(t, ExpiredWindow, res.Failure)
	assert.Equal(t, "Cannot cancel: 15-minute revocation window has expired.", res.Message)
}
