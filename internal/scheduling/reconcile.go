package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/medroster/internal/apperr"
	"github.com/lalith-99/medroster/internal/auth"
	"github.com/lalith-99/medroster/internal/models"
	"github.com/lalith-99/medroster/internal/slots"
	"go.uber.org/zap"
)

// ReconcileResult counts what one sweep did.
type ReconcileResult struct {
	Scanned   int `json:"scanned"`
	Completed int `json:"completed"`
	Expired   int `json:"expired"`
	Failed    int `json:"failed"`
}

var pending = []models.AppointmentStatus{models.StatusScheduled, models.StatusRescheduled}

// Reconcile advances every pending appointment whose date and slot lie
// strictly before now: to completed if attended, otherwise expired.
// A zero tenantID sweeps every tenant. Items are transitioned one at a
// time; a failing item is logged and counted, never fatal.
func (s *Service) Reconcile(ctx context.Context, tenantID uuid.UUID, now time.Time) (ReconcileResult, error) {
	var res ReconcileResult

	cutoff := slots.DateOf(now.In(s.opts.Location))
	candidates, err := s.Appointments.ListPendingBefore(ctx, tenantID, cutoff)
	if err != nil {
		return res, apperr.Internal(err)
	}

	for _, a := range candidates {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Scanned++

		slot, err := slots.Parse(a.TimeSlot)
		if err != nil {
			res.Failed++
			s.Logger.Warn("reconcile: malformed time slot",
				zap.String("tenant_id", a.TenantID.String()),
				zap.String("appointment_id", a.ID.String()),
				zap.String("time_slot", a.TimeSlot),
			)
			continue
		}
		if !slots.At(a.Date, slot, s.opts.Location).Before(now) {
			continue
		}

		to := models.StatusExpired
		if a.Attended {
			to = models.StatusCompleted
		}
		changed, err := s.Appointments.TransitionStatus(ctx, a.TenantID, a.ID, pending, to)
		if err != nil {
			res.Failed++
			s.Logger.Error("reconcile: transition failed",
				zap.String("tenant_id", a.TenantID.String()),
				zap.String("appointment_id", a.ID.String()),
				zap.String("to", string(to)),
				zap.Error(err),
			)
			continue
		}
		if !changed {
			continue
		}
		if to == models.StatusCompleted {
			res.Completed++
		} else {
			res.Expired++
		}
	}

	s.Logger.Info("reconcile sweep finished",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("scanned", res.Scanned),
		zap.Int("completed", res.Completed),
		zap.Int("expired", res.Expired),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

// ReconcileTenant runs the sweep for the caller's tenant only.
func (s *Service) ReconcileTenant(ctx context.Context, id auth.Identity) (ReconcileResult, error) {
	if err := requireRole(id, auth.RoleAdmin); err != nil {
		return ReconcileResult{}, err
	}
	return s.Reconcile(ctx, id.TenantID, s.now())
}
