// Package worker runs the periodic status reconciliation sweep. Every
// instance schedules the job; a Redis lock makes sure only one of them
// sweeps at a time.
package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/medroster/internal/lock"
	"github.com/lalith-99/medroster/internal/scheduling"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// LeaderKey is the lock every instance competes for before sweeping.
const LeaderKey = "medroster:reconcile:leader"

const (
	defaultSpec = "@every 5m"
	leaderTTL   = 2 * time.Minute
)

// Sweeper is the part of scheduling.Service the worker drives.
type Sweeper interface {
	Reconcile(ctx context.Context, tenantID uuid.UUID, now time.Time) (scheduling.ReconcileResult, error)
}

type Reconciler struct {
	log     *zap.Logger
	locker  lock.Locker
	sweeper Sweeper
	spec    string
	now     func() time.Time

	cron   *cron.Cron
	cancel context.CancelFunc
}

func NewReconciler(log *zap.Logger, locker lock.Locker, sweeper Sweeper, spec string) *Reconciler {
	if spec == "" {
		spec = defaultSpec
	}
	return &Reconciler{log: log, locker: locker, sweeper: sweeper, spec: spec, now: time.Now}
}

// Start schedules the sweep. An invalid spec falls back to the default
// cadence rather than leaving statuses unreconciled.
func (r *Reconciler) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	c := cron.New()
	if _, err := c.AddFunc(r.spec, func() { r.RunOnce(runCtx) }); err != nil {
		r.log.Warn("reconciler: invalid cron spec, using default",
			zap.String("spec", r.spec),
			zap.String("default", defaultSpec),
			zap.Error(err),
		)
		c = cron.New()
		_, _ = c.AddFunc(defaultSpec, func() { r.RunOnce(runCtx) })
	}
	c.Start()
	r.cron = c
	r.log.Info("reconciler started", zap.String("spec", r.spec))
}

// Stop cancels an in-flight sweep and waits for it to return.
func (r *Reconciler) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}

// RunOnce sweeps every tenant if this instance wins the leader lock.
// It reports whether a sweep ran.
func (r *Reconciler) RunOnce(ctx context.Context) bool {
	token, ok, err := r.locker.TryLock(ctx, LeaderKey, leaderTTL)
	if err != nil {
		r.log.Warn("reconciler: leader lock attempt failed", zap.Error(err))
		return false
	}
	if !ok {
		r.log.Debug("reconciler: another instance holds the leader lock")
		return false
	}
	defer func() {
		if err := r.locker.Unlock(context.WithoutCancel(ctx), LeaderKey, token); err != nil {
			r.log.Warn("reconciler: release leader lock", zap.Error(err))
		}
	}()

	refreshCtx, stopRefresh := context.WithCancel(ctx)
	defer stopRefresh()
	go r.keepAlive(refreshCtx, token)

	start := time.Now()
	res, err := r.sweeper.Reconcile(ctx, uuid.Nil, r.now())
	if err != nil {
		r.log.Error("reconciler: sweep aborted", zap.Error(err))
		return true
	}
	r.log.Info("reconciler: sweep done",
		zap.Int("scanned", res.Scanned),
		zap.Int("completed", res.Completed),
		zap.Int("expired", res.Expired),
		zap.Int("failed", res.Failed),
		zap.Duration("took", time.Since(start)),
	)
	return true
}

func (r *Reconciler) keepAlive(ctx context.Context, token string) {
	tick := time.NewTicker(leaderTTL / 2)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if err := r.locker.Refresh(ctx, LeaderKey, token, leaderTTL); err != nil {
				r.log.Warn("reconciler: refresh leader lock", zap.Error(err))
			}
		}
	}
}
