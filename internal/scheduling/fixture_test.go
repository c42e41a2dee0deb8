package scheduling

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/medroster/internal/audit"
	"github.com/lalith-99/medroster/internal/auth"
	"github.com/lalith-99/medroster/internal/models"
	"github.com/lalith-99/medroster/internal/repository/memory"
	"github.com/lalith-99/medroster/internal/slots"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Friday 2025-09-19, 12:00 UTC.
var fixedNow = time.Date(2025, 9, 19, 12, 0, 0, 0, time.UTC)

type captureBus struct {
	mu     sync.Mutex
	events []string
}

func (b *captureBus) Publish(_ context.Context, _ uuid.UUID, event string, _ any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *captureBus) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

type fixture struct {
	t      *testing.T
	ctx    context.Context
	db     *memory.DB
	svc    *Service
	bus    *captureBus
	tenant uuid.UUID
	admin  auth.Identity
	staff  auth.Identity
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:   t,
		ctx: context.Background(),
		db:  memory.New(),
		bus: &captureBus{},
		now: fixedNow,
	}
	tenant, err := f.db.Tenants.Create(f.ctx, "Northside Clinic")
	require.NoError(t, err)
	f.tenant = tenant.ID
	f.admin = auth.Identity{TenantID: f.tenant, UserID: uuid.New(), Role: auth.RoleAdmin}
	f.staff = auth.Identity{TenantID: f.tenant, UserID: uuid.New(), Role: auth.RoleStaff}

	logger := zap.NewNop()
	f.svc = New(Deps{
		Tx:           f.db,
		Doctors:      f.db.Doctors,
		Patients:     f.db.Patients,
		Links:        f.db.Links,
		Rosters:      f.db.Rosters,
		Appointments: f.db.Appointments,
		Audit:        audit.NewRecorder(f.db.Audit, logger),
		Notifier:     f.bus,
		Logger:       logger,
		Clock:        func() time.Time { return f.now },
	}, Options{})
	return f
}

func (f *fixture) doctor(name string) *models.Doctor {
	f.t.Helper()
	d := &models.Doctor{TenantID: f.tenant, Name: name, Specialty: "general"}
	require.NoError(f.t, f.db.Doctors.Create(f.ctx, d))
	return d
}

func (f *fixture) patient(name string) *models.Patient {
	f.t.Helper()
	p := &models.Patient{TenantID: f.tenant, Name: name}
	require.NoError(f.t, f.db.Patients.Create(f.ctx, p))
	return p
}

func (f *fixture) doctorIdentity(d *models.Doctor) auth.Identity {
	return auth.Identity{TenantID: f.tenant, UserID: d.ID, Role: auth.RoleDoctor}
}

// roster stores an entry with materialized slots.
func (f *fixture) roster(staffID uuid.UUID, date, start, end string) *models.RosterEntry {
	f.t.Helper()
	generated, err := slots.GenerateText(start, end, slots.DefaultGranularity)
	require.NoError(f.t, err)
	e := &models.RosterEntry{
		TenantID:  f.tenant,
		StaffID:   staffID,
		Date:      mustDate(f.t, date),
		StartTime: start,
		EndTime:   end,
		Status:    models.RosterActive,
		TimeSlots: generated,
	}
	require.NoError(f.t, f.db.Rosters.Create(f.ctx, e))
	return e
}

func (f *fixture) book(doctorID, patientID uuid.UUID, date, slot string) *models.Appointment {
	f.t.Helper()
	a, err := f.svc.Book(f.ctx, f.staff, BookRequest{DoctorID: doctorID, PatientID: patientID, Date: date, TimeSlot: slot})
	require.NoError(f.t, err)
	return a
}

// insert writes an appointment directly, bypassing the service rules.
func (f *fixture) insert(a models.Appointment) *models.Appointment {
	f.t.Helper()
	a.TenantID = f.tenant
	if a.Mode == "" {
		a.Mode = models.ModeInPerson
	}
	require.NoError(f.t, f.db.Appointments.Create(f.ctx, &a))
	return &a
}

func (f *fixture) auditActions(subject uuid.UUID) []string {
	f.t.Helper()
	entries, err := f.db.Audit.ListBySubject(f.ctx, f.tenant, subject, 0)
	require.NoError(f.t, err)
	actions := make([]string, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	return actions
}

func mustDate(t *testing.T, text string) time.Time {
	t.Helper()
	d, err := slots.ParseDate(text)
	require.NoError(t, err)
	return d
}
