package scheduling

import (
	"testing"

	"github.com/google/uuid"
	"github.com/lalith-99/medroster/internal/apperr"
	"github.com/lalith-99/medroster/internal/audit"
	"github.com/lalith-99/medroster/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRosterMaterializesSlots(t *testing.T) {
	f := newFixture(t)
	d := f.doctor("Dr. Rao")

	e, err := f.svc.CreateRoster(f.ctx, f.admin, RosterRequest{
		StaffID: d.ID, Date: "2025-09-22", StartTime: "8AM", EndTime: "10:00", ShiftType: "morning",
	})
	require.NoError(t, err)
	assert.Equal(t, "08:00", e.StartTime)
	assert.Equal(t, []string{"08:00", "08:30", "09:00", "09:30"}, e.TimeSlots)
	assert.Equal(t, models.RosterActive, e.Status)
	assert.Equal(t, f.admin.UserID, e.CreatedBy)
	assert.Equal(t, []string{audit.ActionRosterCreated}, f.auditActions(d.ID))

	open, err := f.svc.Availability(f.ctx, f.staff, d.ID, "2025-09-22")
	require.NoError(t, err)
	assert.Equal(t, e.TimeSlots, open)
}

func TestCreateRosterValidation(t *testing.T) {
	f := newFixture(t)
	d := f.doctor("Dr. Rao")

	tests := []struct {
		name string
		req  RosterRequest
		kind error
	}{
		{"end before start", RosterRequest{StaffID: d.ID, Date: "2025-09-22", StartTime: "10:00", EndTime: "09:00"}, apperr.ErrValidation},
		{"end equals start", RosterRequest{StaffID: d.ID, Date: "2025-09-22", StartTime: "10:00", EndTime: "10AM"}, apperr.ErrValidation},
		{"malformed start", RosterRequest{StaffID: d.ID, Date: "2025-09-22", StartTime: "morning", EndTime: "10:00"}, apperr.ErrValidation},
		{"missing staff", RosterRequest{Date: "2025-09-22", StartTime: "08:00", EndTime: "10:00"}, apperr.ErrValidation},
		{"unknown staff", RosterRequest{StaffID: uuid.New(), Date: "2025-09-22", StartTime: "08:00", EndTime: "10:00"}, apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateRoster(f.ctx, f.admin, tt.req)
			assert.ErrorIs(t, err, tt.kind)
		})
	}

	_, err := f.svc.CreateRoster(f.ctx, f.staff, RosterRequest{StaffID: d.ID, Date: "2025-09-22", StartTime: "08:00", EndTime: "10:00"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestBulkCreateRosters(t *testing.T) {
	f := newFixture(t)
	d := f.doctor("Dr. Rao")

	entries, err := f.svc.BulkCreateRosters(f.ctx, f.admin, BulkRosterRequest{
		RosterRequest: RosterRequest{StaffID: d.ID, Date: "2025-09-22", StartTime: "09:00", EndTime: "11:00"},
	})
	require.NoError(t, err)
	require.Len(t, entries, DefaultRepeatDays)
	assert.Equal(t, "2025-09-22", entries[0].Date.Format("2006-01-02"))
	assert.Equal(t, "2025-10-05", entries[DefaultRepeatDays-1].Date.Format("2006-01-02"))

	listed, err := f.svc.ListRosters(f.ctx, f.doctorIdentity(d), d.ID, "2025-09-22", "2025-09-24")
	require.NoError(t, err)
	require.Len(t, listed, 3)
	for _, e := range listed {
		assert.Equal(t, []string{"09:00", "09:30", "10:00", "10:30"}, e.TimeSlots)
	}

	three, err := f.svc.BulkCreateRosters(f.ctx, f.admin, BulkRosterRequest{
		RosterRequest: RosterRequest{StaffID: d.ID, Date: "2025-11-03", StartTime: "09:00", EndTime: "10:00"},
		RepeatDays:    3,
	})
	require.NoError(t, err)
	assert.Len(t, three, 3)

	_, err = f.svc.BulkCreateRosters(f.ctx, f.admin, BulkRosterRequest{
		RosterRequest: RosterRequest{StaffID: d.ID, Date: "2025-11-03", StartTime: "09:00", EndTime: "10:00"},
		RepeatDays:    -1,
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestListRostersAccess(t *testing.T) {
	f := newFixture(t)
	d, other := f.doctor("Dr. Rao"), f.doctor("Dr. Other")
	f.roster(d.ID, "2025-09-22", "08:00", "09:00")

	list, err := f.svc.ListRosters(f.ctx, f.staff, d.ID, "", "")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.svc.ListRosters(f.ctx, f.doctorIdentity(other), d.ID, "", "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.ListRosters(f.ctx, f.staff, d.ID, "2025-09-30", "2025-09-01")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
