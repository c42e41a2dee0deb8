package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/medroster/internal/scheduling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]string
	err      error
	unlocked int
}

func newFakeLocker() *fakeLocker { return &fakeLocker{held: make(map[string]string)} }

func (l *fakeLocker) TryLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return "", false, l.err
	}
	if _, taken := l.held[key]; taken {
		return "", false, nil
	}
	token := uuid.NewString()
	l.held[key] = token
	return token, true, nil
}

func (l *fakeLocker) Unlock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] != token {
		return errors.New("not owner")
	}
	delete(l.held, key)
	l.unlocked++
	return nil
}

func (l *fakeLocker) Refresh(context.Context, string, string, time.Duration) error { return nil }

type fakeSweeper struct {
	mu     sync.Mutex
	calls  []uuid.UUID
	at     []time.Time
	result scheduling.ReconcileResult
	err    error
}

func (s *fakeSweeper) Reconcile(_ context.Context, tenantID uuid.UUID, now time.Time) (scheduling.ReconcileResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, tenantID)
	s.at = append(s.at, now)
	return s.result, s.err
}

func TestRunOnceSweepsAllTenantsUnderLock(t *testing.T) {
	locker := newFakeLocker()
	sweeper := &fakeSweeper{result: scheduling.ReconcileResult{Scanned: 3, Expired: 2, Completed: 1}}
	core, logs := observer.New(zap.InfoLevel)

	r := NewReconciler(zap.New(core), locker, sweeper, "")
	fixed := time.Date(2025, 9, 22, 10, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	require.True(t, r.RunOnce(context.Background()))
	assert.Equal(t, []uuid.UUID{uuid.Nil}, sweeper.calls)
	assert.Equal(t, []time.Time{fixed}, sweeper.at)
	assert.Equal(t, 1, locker.unlocked)
	assert.Empty(t, locker.held)

	done := logs.FilterMessage("reconciler: sweep done").All()
	require.Len(t, done, 1)
	assert.EqualValues(t, 2, done[0].ContextMap()["expired"])
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	locker := newFakeLocker()
	locker.held[LeaderKey] = "someone-else"
	sweeper := &fakeSweeper{}

	r := NewReconciler(zap.NewNop(), locker, sweeper, "")
	assert.False(t, r.RunOnce(context.Background()))
	assert.Empty(t, sweeper.calls)
	assert.Equal(t, "someone-else", locker.held[LeaderKey])
}

func TestRunOnceLockErrorSkipsSweep(t *testing.T) {
	locker := newFakeLocker()
	locker.err = errors.New("redis down")
	sweeper := &fakeSweeper{}

	r := NewReconciler(zap.NewNop(), locker, sweeper, "")
	assert.False(t, r.RunOnce(context.Background()))
	assert.Empty(t, sweeper.calls)
}

func TestRunOnceReleasesLockWhenSweepFails(t *testing.T) {
	locker := newFakeLocker()
	sweeper := &fakeSweeper{err: context.Canceled}

	r := NewReconciler(zap.NewNop(), locker, sweeper, "")
	assert.True(t, r.RunOnce(context.Background()))
	assert.Empty(t, locker.held)
}

func TestStartFallsBackOnBadSpec(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	r := NewReconciler(zap.New(core), newFakeLocker(), &fakeSweeper{}, "every now and then")

	r.Start(context.Background())
	defer r.Stop()

	assert.Equal(t, 1, logs.FilterMessage("reconciler: invalid cron spec, using default").Len())
	require.NotNil(t, r.cron)
	assert.Len(t, r.cron.Entries(), 1)
}
