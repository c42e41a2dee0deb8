package scheduling

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/medroster/internal/apperr"
	"github.com/lalith-99/medroster/internal/auth"
	"github.com/lalith-99/medroster/internal/slots"
	"go.uber.org/zap"
)

// NextAvailable is the result of a forward search. Found is false when
// the horizon was exhausted.
type NextAvailable struct {
	Found bool     `json:"found"`
	Date  string   `json:"date,omitempty"`
	Slots []string `json:"slots"`
}

// Availability returns the open slots of doctorID on date: the active
// roster's slots minus those held by appointments. No roster for the
// date is an empty result, not an error.
func (s *Service) Availability(ctx context.Context, id auth.Identity, doctorID uuid.UUID, date string) ([]string, error) {
	if err := requireID("doctorId", doctorID); err != nil {
		return nil, err
	}
	day, err := parseDate("date", date)
	if err != nil {
		return nil, err
	}
	if _, err := s.doctor(ctx, id.TenantID, doctorID); err != nil {
		return nil, err
	}
	return s.openSlots(ctx, id.TenantID, doctorID, day)
}

// NextAvailableDate scans the days after `after` up to the configured
// horizon, skipping weekends, and returns the first with an open slot.
func (s *Service) NextAvailableDate(ctx context.Context, id auth.Identity, doctorID uuid.UUID, after string) (NextAvailable, error) {
	if err := requireID("doctorId", doctorID); err != nil {
		return NextAvailable{}, err
	}
	start := s.today()
	if after != "" {
		var err error
		if start, err = parseDate("after", after); err != nil {
			return NextAvailable{}, err
		}
	}
	if _, err := s.doctor(ctx, id.TenantID, doctorID); err != nil {
		return NextAvailable{}, err
	}

	for i := 1; i <= s.opts.HorizonDays; i++ {
		day := start.AddDate(0, 0, i)
		if slots.IsWeekend(day) {
			continue
		}
		open, err := s.openSlots(ctx, id.TenantID, doctorID, day)
		if err != nil {
			return NextAvailable{}, err
		}
		if len(open) > 0 {
			return NextAvailable{Found: true, Date: day.Format(slots.DateLayout), Slots: open}, nil
		}
	}
	return NextAvailable{Slots: []string{}}, nil
}

func (s *Service) openSlots(ctx context.Context, tenantID, doctorID uuid.UUID, day time.Time) ([]string, error) {
	roster, err := s.rosterSlots(ctx, tenantID, doctorID, day)
	if err != nil || len(roster) == 0 {
		return roster, err
	}

	held, err := s.Appointments.ListHeldSlots(ctx, tenantID, doctorID, day)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	taken := make(map[string]bool, len(held))
	for _, raw := range held {
		slot, err := slots.Normalize(raw)
		if err != nil {
			s.Logger.Warn("skipping malformed stored time slot",
				zap.String("tenant_id", tenantID.String()),
				zap.String("doctor_id", doctorID.String()),
				zap.String("time_slot", raw),
			)
			continue
		}
		taken[slot] = true
	}

	return slices.DeleteFunc(roster, func(slot string) bool { return taken[slot] }), nil
}

// rosterSlots returns the canonical slots of the active roster entry,
// regenerating and persisting them when the entry has none.
func (s *Service) rosterSlots(ctx context.Context, tenantID, staffID uuid.UUID, day time.Time) ([]string, error) {
	entry, err := s.Rosters.FindActive(ctx, tenantID, staffID, day)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if entry == nil {
		return []string{}, nil
	}

	if len(entry.TimeSlots) == 0 {
		generated, err := slots.GenerateText(entry.StartTime, entry.EndTime, s.opts.Granularity)
		if err != nil {
			s.Logger.Warn("roster entry has malformed shift times",
				zap.String("tenant_id", tenantID.String()),
				zap.String("roster_id", entry.ID.String()),
				zap.Error(err),
			)
			return []string{}, nil
		}
		if err := s.Rosters.SetTimeSlots(ctx, tenantID, entry.ID, generated); err != nil {
			s.Logger.Warn("persist regenerated roster slots",
				zap.String("roster_id", entry.ID.String()),
				zap.Error(err),
			)
		}
		return generated, nil
	}

	out := make([]string, 0, len(entry.TimeSlots))
	for _, raw := range entry.TimeSlots {
		slot, err := slots.Normalize(raw)
		if err != nil {
			s.Logger.Warn("skipping malformed roster slot",
				zap.String("roster_id", entry.ID.String()),
				zap.String("time_slot", raw),
			)
			continue
		}
		out = append(out, slot)
	}
	return out, nil
}
