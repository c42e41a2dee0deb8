package scheduling

import (
	"testing"

	"github.com/google/uuid"
	"github.com/lalith-99/medroster/internal/apperr"
	"github.com/lalith-99/medroster/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailabilitySubtractsHeldSlots(t *testing.T) {
	f := newFixture(t)
	d := f.doctor("Dr. Rao")
	f.roster(d.ID, "2025-09-22", "08:00", "10:00")

	open, err := f.svc.Availability(f.ctx, f.staff, d.ID, "2025-09-22")
	require.NoError(t, err)
	assert.Equal(t, []string{"08:00", "08:30", "09:00", "09:30"}, open)

	f.book(d.ID, f.patient("Asha").ID, "2025-09-22", "8:30 AM")
	cancelled := f.book(d.ID, f.patient("Ben").ID, "2025-09-22", "09:00")
	_, err = f.svc.Cancel(f.ctx, f.staff, cancelled.ID, "")
	require.NoError(t, err)

	open, err = f.svc.Availability(f.ctx, f.doctorIdentity(d), d.ID, "2025-09-22")
	require.NoError(t, err)
	assert.Equal(t, []string{"08:00", "09:00", "09:30"}, open)
}

func TestAvailabilityWithoutRosterIsEmpty(t *testing.T) {
	f := newFixture(t)
	d := f.doctor("Dr. Rao")

	open, err := f.svc.Availability(f.ctx, f.staff, d.ID, "2025-09-22")
	require.NoError(t, err)
	assert.NotNil(t, open)
	assert.Empty(t, open)

	_, err = f.svc.Availability(f.ctx, f.staff, d.ID, "tomorrow")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.svc.Availability(f.ctx, f.staff, uuid.New(), "2025-09-22")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAvailabilityRegeneratesMissingSlots(t *testing.T) {
	f := newFixture(t)
	d := f.doctor("Dr. Rao")
	e := &models.RosterEntry{
		TenantID:  f.tenant,
		StaffID:   d.ID,
		Date:      mustDate(t, "2025-09-22"),
		StartTime: "08:00",
		EndTime:   "10:00",
		Status:    models.RosterActive,
	}
	require.NoError(t, f.db.Rosters.Create(f.ctx, e))

	open, err := f.svc.Availability(f.ctx, f.staff, d.ID, "2025-09-22")
	require.NoError(t, err)
	assert.Equal(t, []string{"08:00", "08:30", "09:00", "09:30"}, open)

	stored, err := f.db.Rosters.FindActive(f.ctx, f.tenant, d.ID, e.Date)
	require.NoError(t, err)
	assert.Equal(t, open, stored.TimeSlots)
}

// Scenario: the only slot on a Saturday is taken; the search skips the
// weekend and lands on Monday.
func TestNextAvailableDateSkipsWeekends(t *testing.T) {
	f := newFixture(t)
	d := f.doctor("Dr. Rao")
	f.roster(d.ID, "2025-09-20", "09:00", "09:30")
	f.roster(d.ID, "2025-09-21", "09:00", "12:00")
	f.roster(d.ID, "2025-09-22", "14:00", "15:00")

	f.book(d.ID, f.patient("Asha").ID, "2025-09-20", "09:00")
	open, err := f.svc.Availability(f.ctx, f.staff, d.ID, "2025-09-20")
	require.NoError(t, err)
	assert.Empty(t, open)

	next, err := f.svc.NextAvailableDate(f.ctx, f.staff, d.ID, "2025-09-20")
	require.NoError(t, err)
	assert.True(t, next.Found)
	assert.Equal(t, "2025-09-22", next.Date)
	assert.Equal(t, []string{"14:00", "14:30"}, next.Slots)
}

func TestNextAvailableDateHorizon(t *testing.T) {
	f := newFixture(t)
	d := f.doctor("Dr. Rao")

	// Seventeen days out is past the horizon.
	f.roster(d.ID, "2025-10-06", "09:00", "10:00")

	next, err := f.svc.NextAvailableDate(f.ctx, f.staff, d.ID, "")
	require.NoError(t, err)
	assert.False(t, next.Found)
	assert.Empty(t, next.Slots)

	// Fourteen days after today (a Friday) is still searched.
	f.roster(d.ID, "2025-10-03", "09:00", "10:00")
	next, err = f.svc.NextAvailableDate(f.ctx, f.staff, d.ID, "")
	require.NoError(t, err)
	assert.True(t, next.Found)
	assert.Equal(t, "2025-10-03", next.Date)
}
