// Package scheduling is the booking and linkage core: availability,
// the appointment state machine, doctor/patient linkage, rosters and the
// status reconciliation sweep. Every operation takes the caller's
// auth.Identity and scopes all reads and writes to its tenant.
package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/medroster/internal/apperr"
	"github.com/lalith-99/medroster/internal/auth"
	"github.com/lalith-99/medroster/internal/models"
	"github.com/lalith-99/medroster/internal/repository"
	"github.com/lalith-99/medroster/internal/slots"
	"go.uber.org/zap"
)

// Auditor records one entry per mutated entity. It must not fail the
// caller; implementations log their own errors.
type Auditor interface {
	Record(ctx context.Context, tenantID, subjectID uuid.UUID, action, actor string, details map[string]any)
}

// Notifier announces events to tenant observers.
type Notifier interface {
	Publish(ctx context.Context, tenantID uuid.UUID, event string, payload any) error
}

type Deps struct {
	Tx           repository.Transactor
	Doctors      repository.DoctorRepository
	Patients     repository.PatientRepository
	Links        repository.LinkageRepository
	Rosters      repository.RosterRepository
	Appointments repository.AppointmentRepository
	Audit        Auditor
	Notifier     Notifier
	Logger       *zap.Logger

	// Clock defaults to time.Now.
	Clock func() time.Time
}

type Options struct {
	Granularity int
	HorizonDays int

	// Location is where "date + timeSlot" is interpreted and where
	// "today" is computed. Defaults to UTC.
	Location *time.Location
}

const DefaultHorizonDays = 14

type Service struct {
	Deps
	opts Options
}

func New(d Deps, o Options) *Service {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if o.Granularity <= 0 {
		o.Granularity = slots.DefaultGranularity
	}
	if o.HorizonDays <= 0 {
		o.HorizonDays = DefaultHorizonDays
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	return &Service{Deps: d, opts: o}
}

func (s *Service) now() time.Time {
	return s.Clock()
}

// today is the calendar date of now in the schedule's time zone.
func (s *Service) today() time.Time {
	return slots.DateOf(s.now().In(s.opts.Location))
}

func requireRole(id auth.Identity, roles ...auth.Role) error {
	if !id.Is(roles...) {
		return apperr.Forbidden("role " + string(id.Role) + " may not perform this action")
	}
	return nil
}

func parseDate(field, text string) (time.Time, error) {
	if text == "" {
		return time.Time{}, apperr.ValidationExpected(field, "is required", "YYYY-MM-DD")
	}
	d, err := slots.ParseDate(text)
	if err != nil {
		return time.Time{}, apperr.ValidationExpected(field, "is not a valid date", "YYYY-MM-DD")
	}
	return d, nil
}

const timeFormats = "HH:mm, H.mm, HHmm or h[:mm] AM/PM"

func normalizeSlot(field, text string) (string, error) {
	if text == "" {
		return "", apperr.ValidationExpected(field, "is required", timeFormats)
	}
	slot, err := slots.Normalize(text)
	if err != nil {
		return "", apperr.ValidationExpected(field, "is not a recognized time", timeFormats)
	}
	return slot, nil
}

func requireID(field string, id uuid.UUID) error {
	if id == uuid.Nil {
		return apperr.Validation(field, "is required")
	}
	return nil
}

func (s *Service) doctor(ctx context.Context, tenantID, doctorID uuid.UUID) (*models.Doctor, error) {
	d, err := s.Doctors.GetByID(ctx, tenantID, doctorID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if d == nil {
		return nil, apperr.NotFound("doctor")
	}
	return d, nil
}

func (s *Service) patient(ctx context.Context, tenantID, patientID uuid.UUID) (*models.Patient, error) {
	p, err := s.Patients.GetByID(ctx, tenantID, patientID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if p == nil {
		return nil, apperr.NotFound("patient")
	}
	return p, nil
}

func (s *Service) appointment(ctx context.Context, tenantID, appointmentID uuid.UUID) (*models.Appointment, error) {
	a, err := s.Appointments.GetByID(ctx, tenantID, appointmentID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if a == nil {
		return nil, apperr.NotFound("appointment")
	}
	return a, nil
}

// storeErr turns a repository error into the taxonomy. Errors that are
// already classified pass through.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrSlotTaken) {
		return apperr.SlotConflict("time slot is already booked for this doctor")
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal(err)
}

// auditEntry is buffered during a transaction and recorded after commit.
type auditEntry struct {
	subject uuid.UUID
	action  string
	details map[string]any
}

func (s *Service) record(ctx context.Context, id auth.Identity, entries ...auditEntry) {
	if s.Audit == nil {
		return
	}
	for _, e := range entries {
		s.Audit.Record(ctx, id.TenantID, e.subject, e.action, id.Actor(), e.details)
	}
}

func (s *Service) publish(ctx context.Context, tenantID uuid.UUID, event string, payload any) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Publish(ctx, tenantID, event, payload); err != nil {
		s.Logger.Warn("publish event",
			zap.String("tenant_id", tenantID.String()),
			zap.String("event", event),
			zap.Error(err),
		)
	}
}
