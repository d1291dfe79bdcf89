package services

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/checkflow/internal/models"
	repo "github.com/baharkarakas/checkflow/internal/repository"
	"github.com/baharkarakas/checkflow/internal/repository/sqlite"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingAuditor struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (a *recordingAuditor) Record(_ context.Context, e models.AuditLog) {
	a.mu.Lock()
	a.entries = append(a.entries, e)
	a.mu.Unlock()
}

func (a *recordingAuditor) Entries() []models.AuditLog {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.AuditLog(nil), a.entries...)
}

type testEnv struct {
	ctx      context.Context
	repos    repo.Repositories
	clock    *fakeClock
	resolver *CounterpartyResolver
	engine   *CheckService
	audit    *recordingAuditor
	router   *CommandService
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "checks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	repos := store.Repositories()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	log := quietLogger()
	resolver := NewCounterpartyResolver(repos.Users, log)
	engine := NewCheckService(repos.Checks, resolver, NewBalanceService(repos.Users), CheckOptions{
		Clock:  clock.Now,
		Logger: log,
	})
	audit := &recordingAuditor{}
	return &testEnv{
		ctx:      ctx,
		repos:    repos,
		clock:    clock,
		resolver: resolver,
		engine:   engine,
		audit:    audit,
		router:   NewCommandService(engine, audit, log),
	}
}

func (e *testEnv) party(t *testing.T, name string) int64 {
	t.Helper()
	u, err := e.repos.Users.Create(e.ctx, name, decimal.NewFromInt(1000))
	require.NoError(t, err)
	return u.ID
}

func (e *testEnv) issue(t *testing.T, issuerID int64, payee string, amount int64) int64 {
	t.Helper()
	res, err := e.engine.Issue(e.ctx, issuerID, payee, decimal.NewFromInt(amount), nil)
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	require.NotNil(t, res.CheckID)
	return *res.CheckID
}

func (e *testEnv) check(t *testing.T, id int64) models.Check {
	t.Helper()
	c, err := e.engine.Check(e.ctx, id)
	require.NoError(t, err)
	return c
}

func (e *testEnv) userCount(t *testing.T) int {
	t.Helper()
	users, err := e.repos.Users.List(e.ctx, 1000)
	require.NoError(t, err)
	return len(users)
}
