package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/medroster/internal/apperr"
	"github.com/lalith-99/medroster/internal/audit"
	"github.com/lalith-99/medroster/internal/auth"
	"github.com/lalith-99/medroster/internal/models"
	"github.com/lalith-99/medroster/internal/slots"
)

// DefaultRepeatDays is how many consecutive days a bulk roster covers
// when the request does not say.
const DefaultRepeatDays = 14

// maxRepeatDays caps a bulk request at roughly one quarter.
const maxRepeatDays = 92

type RosterRequest struct {
	StaffID   uuid.UUID
	Date      string
	StartTime string
	EndTime   string
	ShiftType string
	Location  string
	Notes     string
}

type BulkRosterRequest struct {
	RosterRequest
	RepeatDays int
}

// shift is a validated RosterRequest.
type shift struct {
	date       time.Time
	start, end string
	slots      []string
}

func (s *Service) validateShift(req RosterRequest) (shift, error) {
	if err := requireID("staffId", req.StaffID); err != nil {
		return shift{}, err
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return shift{}, err
	}
	start, err := normalizeSlot("startTime", req.StartTime)
	if err != nil {
		return shift{}, err
	}
	end, err := normalizeSlot("endTime", req.EndTime)
	if err != nil {
		return shift{}, err
	}
	if end <= start {
		return shift{}, apperr.Validation("endTime", "must be after startTime")
	}
	generated, err := slots.GenerateText(start, end, s.opts.Granularity)
	if err != nil {
		return shift{}, apperr.Internal(err)
	}
	return shift{date: date, start: start, end: end, slots: generated}, nil
}

func (sh shift) entry(id auth.Identity, req RosterRequest, date time.Time) models.RosterEntry {
	return models.RosterEntry{
		TenantID:  id.TenantID,
		StaffID:   req.StaffID,
		Date:      date,
		StartTime: sh.start,
		EndTime:   sh.end,
		ShiftType: req.ShiftType,
		Location:  req.Location,
		Status:    models.RosterActive,
		Notes:     req.Notes,
		TimeSlots: append([]string(nil), sh.slots...),
		CreatedBy: id.UserID,
	}
}

// CreateRoster adds one shift and materializes its slots at the
// configured granularity.
func (s *Service) CreateRoster(ctx context.Context, id auth.Identity, req RosterRequest) (*models.RosterEntry, error) {
	if err := requireRole(id, auth.RoleAdmin); err != nil {
		return nil, err
	}
	sh, err := s.validateShift(req)
	if err != nil {
		return nil, err
	}
	if _, err := s.doctor(ctx, id.TenantID, req.StaffID); err != nil {
		return nil, err
	}

	e := sh.entry(id, req, sh.date)
	if err := s.Rosters.Create(ctx, &e); err != nil {
		return nil, apperr.Internal(err)
	}

	s.record(ctx, id, auditEntry{
		subject: e.StaffID,
		action:  audit.ActionRosterCreated,
		details: map[string]any{"roster_id": e.ID, "date": req.Date, "start_time": e.StartTime, "end_time": e.EndTime},
	})
	return &e, nil
}

// BulkCreateRosters repeats the same shift on RepeatDays consecutive days
// starting at Date. All entries are written or none.
func (s *Service) BulkCreateRosters(ctx context.Context, id auth.Identity, req BulkRosterRequest) ([]models.RosterEntry, error) {
	if err := requireRole(id, auth.RoleAdmin); err != nil {
		return nil, err
	}
	days := req.RepeatDays
	if days == 0 {
		days = DefaultRepeatDays
	}
	if days < 0 || days > maxRepeatDays {
		return nil, apperr.ValidationExpected("repeatDays", "is out of range", "1 to 92")
	}
	sh, err := s.validateShift(req.RosterRequest)
	if err != nil {
		return nil, err
	}
	if _, err := s.doctor(ctx, id.TenantID, req.StaffID); err != nil {
		return nil, err
	}

	entries := make([]models.RosterEntry, 0, days)
	for i := range days {
		entries = append(entries, sh.entry(id, req.RosterRequest, sh.date.AddDate(0, 0, i)))
	}
	if err := s.Rosters.CreateMany(ctx, entries); err != nil {
		return nil, apperr.Internal(err)
	}

	s.record(ctx, id, auditEntry{
		subject: req.StaffID,
		action:  audit.ActionRosterCreated,
		details: map[string]any{
			"from":       req.Date,
			"days":       days,
			"start_time": sh.start,
			"end_time":   sh.end,
		},
	})
	return entries, nil
}

// ListRosters returns a staff member's shifts over [from, to]. Doctors
// may only read their own.
func (s *Service) ListRosters(ctx context.Context, id auth.Identity, staffID uuid.UUID, from, to string) ([]models.RosterEntry, error) {
	if id.Role == auth.RoleDoctor && staffID != id.UserID {
		return nil, apperr.Forbidden("doctors may only read their own roster")
	}
	if err := requireID("staffId", staffID); err != nil {
		return nil, err
	}

	start := s.today()
	if from != "" {
		var err error
		if start, err = parseDate("from", from); err != nil {
			return nil, err
		}
	}
	end := start.AddDate(0, 0, s.opts.HorizonDays)
	if to != "" {
		var err error
		if end, err = parseDate("to", to); err != nil {
			return nil, err
		}
	}
	if end.Before(start) {
		return nil, apperr.Validation("to", "must not be before from")
	}

	entries, err := s.Rosters.ListByStaff(ctx, id.TenantID, staffID, start, end)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return entries, nil
}
