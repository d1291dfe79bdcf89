package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/checkflow/internal/models"
	"github.com/baharkarakas/checkflow/internal/worker"
)

func TestAuditServiceWritesThroughPool(t *testing.T) {
	e := newTestEnv(t)
	alice := e.party(t, "Alice")
	wp := worker.NewPool(2, 16)
	svc := NewAuditService(e.repos.AuditLogs, wp, quietLogger())

	ctx, cancel := context.WithCancel(e.ctx)
	for _, op := range []models.OperationType{models.OpIssueCheck, models.OpQueryBalance} {
		svc.Record(ctx, models.AuditLog{
			Timestamp:     e.clock.Now(),
			UserID:        alice,
			OperationType: op,
			Status:        models.AuditSuccess,
			Metadata:      map[string]any{"source": "test"},
		})
	}
	cancel() // a cancelled request must not drop its audit entry
	wp.Stop()

	entries, err := svc.History(e.ctx, alice, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "test", entries[0].Metadata["source"])
}

func TestAuditServiceWritesInlineWhenPoolStopped(t *testing.T) {
	e := newTestEnv(t)
	alice := e.party(t, "Alice")
	wp := worker.NewPool(1, 1)
	wp.Stop()
	svc := NewAuditService(e.repos.AuditLogs, wp, quietLogger())

	svc.Record(e.ctx, models.AuditLog{Timestamp: e.clock.Now(), UserID: alice, OperationType: models.OpDenyCheck, Status: models.AuditFailed})

	entries, err := svc.History(e.ctx, alice, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditFailed, entries[0].Status)
}

func TestAuditServiceWritesInlineWhenQueueFull(t *testing.T) {
	e := newTestEnv(t)
	alice := e.party(t, "Alice")
	wp := worker.NewPool(1, 1)
	release := make(chan struct{})
	started := make(chan struct{})
	require.True(t, wp.TrySubmit(func() { close(started); <-release }))
	<-started
	require.True(t, wp.TrySubmit(func() {}))
	svc := NewAuditService(e.repos.AuditLogs, wp, quietLogger())

	svc.Record(e.ctx, models.AuditLog{Timestamp: e.clock.Now(), UserID: alice, OperationType: models.OpAcceptCheck, Status: models.AuditSuccess})

	entries, err := svc.History(e.ctx, alice, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1, "written before Record returned")
	assert.Equal(t, models.OpAcceptCheck, entries[0].OperationType)

	close(release)
	wp.Stop()
}

type failingAuditRepo struct{ calls int }

func (r *failingAuditRepo) Create(context.Context, models.AuditLog) error {
	r.calls++
	return errors.New("disk full")
}

func (r *failingAuditRepo) ListByUser(context.Context, int64, int) ([]models.AuditLog, error) {
	return nil, nil
}

func TestAuditServiceSwallowsWriteFailures(t *testing.T) {
	r := &failingAuditRepo{}
	svc := NewAuditService(r, nil, quietLogger())

	assert.NotPanics(t, func() {
		svc.Record(context.Background(), models.AuditLog{UserID: 1, OperationType: models.OpQueryChecks, Status: models.AuditSuccess})
	})
	assert.Equal(t, 1, r.calls)
}
