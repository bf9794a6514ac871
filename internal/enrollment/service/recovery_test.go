package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrollment/internal/enrollment/models"
	"enrollment/internal/enrollment/store/journal"
	"enrollment/internal/enrollment/store/ledger"
	"enrollment/internal/enrollment/store/registration"
	"enrollment/pkg/platform/sentinel"
	"enrollment/pkg/platform/shardlock"
)

type recoveryFixture struct {
	ctx           context.Context
	ledger        *ledger.InMemoryStore
	registrations *registration.InMemoryStore
	journal       *journal.InMemoryStore
	service       *Service
}

func newRecoveryFixture(t *testing.T, capacity int) *recoveryFixture {
	t.Helper()
	f := &recoveryFixture{
		ctx:           context.Background(),
		ledger:        ledger.NewInMemoryStore(),
		registrations: registration.NewInMemoryStore(),
		journal:       journal.NewInMemoryStore(),
	}
	require.NoError(t, f.ledger.Seed(f.ctx, &models.Course{Key: "c1", Capacity: capacity}))
	svc, err := New(f.ledger, f.registrations, f.journal, WithRetry(time.Millisecond, 20*time.Millisecond))
	require.NoError(t, err)
	f.service = svc
	return f
}

// leave appends an entry as a crashed process would have left it.
func (f *recoveryFixture) leave(t *testing.T, stage models.JournalStage, student string) {
	t.Helper()
	require.NoError(t, f.journal.Append(f.ctx, models.NewJournalEntry(stage, student, "c1", time.Now())))
}

func (f *recoveryFixture) audit(t *testing.T) models.CourseAudit {
	t.Helper()
	report, err := f.service.Audit(f.ctx, "c1")
	require.NoError(t, err)
	return report.Courses[0]
}

func (f *recoveryFixture) requireClean(t *testing.T) {
	t.Helper()
	pending, err := f.journal.Pending(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
	a := f.audit(t)
	assert.Equal(t, a.Applied, a.Occupied)
}

func TestRecover(t *testing.T) {
	t.Run("crash after registration before reserve reverts it", func(t *testing.T) {
		f := newRecoveryFixture(t, 2)
		_, err := f.registrations.TransitionToApplied(f.ctx, "alice", "c1")
		require.NoError(t, err)
		f.leave(t, models.StageReserving, "alice")

		require.NoError(t, f.service.Recover(f.ctx))

		record, err := f.registrations.Get(f.ctx, "alice", "c1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, record.Status)
		f.requireClean(t)
	})

	t.Run("crash after reserve keeps the admission", func(t *testing.T) {
		f := newRecoveryFixture(t, 2)
		_, err := f.registrations.TransitionToApplied(f.ctx, "alice", "c1")
		require.NoError(t, err)
		_, err = f.ledger.TryReserve(f.ctx, "c1", "alice")
		require.NoError(t, err)
		f.leave(t, models.StageReserving, "alice")

		require.NoError(t, f.service.Recover(f.ctx))

		record, err := f.registrations.Get(f.ctx, "alice", "c1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusApplied, record.Status)
		assert.Equal(t, 1, f.audit(t).Occupied)
		f.requireClean(t)
	})

	t.Run("crash before registration write resolves", func(t *testing.T) {
		f := newRecoveryFixture(t, 2)
		f.leave(t, models.StageReserving, "alice")

		require.NoError(t, f.service.Recover(f.ctx))

		_, err := f.registrations.Get(f.ctx, "alice", "c1")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		f.requireClean(t)
	})

	t.Run("crash after cancel flip releases the seat", func(t *testing.T) {
		f := newRecoveryFixture(t, 2)
		_, err := f.service.Apply(f.ctx, "alice", "c1")
		require.NoError(t, err)
		_, err = f.registrations.TransitionToCancelled(f.ctx, "alice", "c1")
		require.NoError(t, err)
		f.leave(t, models.StageCancelling, "alice")

		require.NoError(t, f.service.Recover(f.ctx))

		assert.Equal(t, 0, f.audit(t).Occupied)
		f.requireClean(t)
	})

	t.Run("crash before cancel flip keeps the seat", func(t *testing.T) {
		f := newRecoveryFixture(t, 2)
		_, err := f.service.Apply(f.ctx, "alice", "c1")
		require.NoError(t, err)
		f.leave(t, models.StageCancelling, "alice")

		require.NoError(t, f.service.Recover(f.ctx))

		assert.Equal(t, 1, f.audit(t).Occupied)
		f.requireClean(t)
	})

	t.Run("release already applied is not repeated", func(t *testing.T) {
		f := newRecoveryFixture(t, 2)
		_, err := f.service.Apply(f.ctx, "alice", "c1")
		require.NoError(t, err)
		_, err = f.service.Apply(f.ctx, "bob", "c1")
		require.NoError(t, err)
		_, err = f.service.Cancel(f.ctx, "alice", "c1")
		require.NoError(t, err)
		f.leave(t, models.StageRelease, "alice")

		require.NoError(t, f.service.Recover(f.ctx))

		assert.Equal(t, 1, f.audit(t).Occupied, "bob keeps the remaining seat")
		f.requireClean(t)
	})

	t.Run("seat without a registration is given back", func(t *testing.T) {
		f := newRecoveryFixture(t, 2)
		_, err := f.ledger.TryReserve(f.ctx, "c1", "alice")
		require.NoError(t, err)
		f.leave(t, models.StageReserving, "alice")

		require.NoError(t, f.service.Recover(f.ctx))

		held, err := f.ledger.Holds(f.ctx, "c1", "alice")
		require.NoError(t, err)
		assert.False(t, held)
		assert.Equal(t, 0, f.audit(t).Occupied)
		f.requireClean(t)
	})

	t.Run("compensation whose reserve committed drops the seat", func(t *testing.T) {
		f := newRecoveryFixture(t, 2)
		transition, err := f.registrations.TransitionToApplied(f.ctx, "alice", "c1")
		require.NoError(t, err)
		_, err = f.ledger.TryReserve(f.ctx, "c1", "alice")
		require.NoError(t, err)
		entry := models.NewJournalEntry(models.StageCompensate, "alice", "c1", time.Now())
		entry.Transition = transition
		require.NoError(t, f.journal.Append(f.ctx, entry))

		require.NoError(t, f.service.Recover(f.ctx))

		_, err = f.registrations.Get(f.ctx, "alice", "c1")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		assert.Equal(t, 0, f.audit(t).Occupied)
		f.requireClean(t)
	})

	t.Run("entries for a removed course are dropped", func(t *testing.T) {
		f := newRecoveryFixture(t, 1)
		require.NoError(t, f.journal.Append(f.ctx, models.NewJournalEntry(models.StageRelease, "alice", "gone", time.Now())))

		require.NoError(t, f.service.Recover(f.ctx))

		pending, err := f.journal.Pending(f.ctx)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})
}

func TestReconcilerRunStopsOnCancel(t *testing.T) {
	f := newRecoveryFixture(t, 1)
	reconciler := NewReconciler(f.service, time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reconciler.Run(ctx) }()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop")
	}
}

func TestReconcileSettlesStrandedEntries(t *testing.T) {
	f := newRecoveryFixture(t, 1)
	_, err := f.registrations.TransitionToApplied(f.ctx, "alice", "c1")
	require.NoError(t, err)
	f.leave(t, models.StageReserving, "alice")

	settled, err := f.service.Reconcile(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, settled)

	record, err := f.registrations.Get(f.ctx, "alice", "c1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, record.Status)
	f.requireClean(t)
}

func TestReconcileWaitsForInFlightIntent(t *testing.T) {
	f := newRecoveryFixture(t, 1)
	unlock, err := f.service.pairs.Lock(f.ctx, shardlock.PairKey("alice", "c1"))
	require.NoError(t, err)
	f.leave(t, models.StageReserving, "alice")

	done := make(chan int, 1)
	go func() {
		settled, _ := f.service.Reconcile(f.ctx)
		done <- settled
	}()

	select {
	case <-done:
		t.Fatal("reconcile ran while the pair was locked")
	case <-time.After(20 * time.Millisecond):
	}

	// The intent finishes by taking the seat, as an accepted apply would.
	_, err = f.registrations.TransitionToApplied(f.ctx, "alice", "c1")
	require.NoError(t, err)
	_, err = f.ledger.TryReserve(f.ctx, "c1", "alice")
	require.NoError(t, err)
	unlock()

	select {
	case settled := <-done:
		assert.Equal(t, 1, settled)
	case <-time.After(time.Second):
		t.Fatal("reconcile did not finish")
	}
	assert.Equal(t, 1, f.audit(t).Occupied)
	f.requireClean(t)
}
