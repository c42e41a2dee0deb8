package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/medroster/internal/models"
)

// Conventions shared by every interface in this file:
//
//   - context.Context comes first on every method; it carries the request
//     deadline and, inside Transactor.WithinTx, the open transaction.
//   - tenantID is an explicit parameter on every tenant-owned lookup or
//     write and is always part of the WHERE clause. Callers pass the tenant
//     from the authenticated identity, never from request input.
//   - Single-row lookups return (nil, nil) when the row does not exist in
//     that tenant. The service layer turns that into a NotFound error.
//   - List methods return an empty slice (not nil) so JSON renders [].

// ErrSlotTaken is returned by AppointmentRepository writes that would put a
// second slot-holding appointment on the same (tenant, doctor, date, slot).
var ErrSlotTaken = errors.New("slot already taken")

// Transactor runs fn inside a single transaction. Repository calls made
// with the ctx passed to fn join that transaction. If fn returns an error
// every write made through ctx is rolled back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type TenantRepository interface {
	Create(ctx context.Context, name string) (*models.Tenant, error)

	// GetByID is not tenant-scoped: it resolves the caller's own tenant.
	GetByID(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error)
}

type DoctorRepository interface {
	Create(ctx context.Context, d *models.Doctor) error

	// GetByID returns the doctor with LinkedPatients populated in link order.
	GetByID(ctx context.Context, tenantID, doctorID uuid.UUID) (*models.Doctor, error)

	List(ctx context.Context, tenantID uuid.UUID) ([]models.Doctor, error)
}

type PatientRepository interface {
	Create(ctx context.Context, p *models.Patient) error
	GetByID(ctx context.Context, tenantID, patientID uuid.UUID) (*models.Patient, error)

	// GetMany returns the patients among ids that exist in the tenant, in
	// the order of ids. Missing ids are skipped.
	GetMany(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]models.Patient, error)

	// RecordVisit sets last_visit and increments visit_count.
	RecordVisit(ctx context.Context, tenantID, patientID uuid.UUID, visit time.Time) error

	// ListUnlinked returns tenant patients not linked to any doctor.
	ListUnlinked(ctx context.Context, tenantID uuid.UUID) ([]models.Patient, error)
}

// LinkageRepository owns the doctor<->patient edge set.
type LinkageRepository interface {
	// Link inserts the edge. Re-linking is a no-op; inserted reports
	// whether a new edge was written.
	Link(ctx context.Context, tenantID, doctorID, patientID uuid.UUID) (inserted bool, err error)

	// Unlink deletes the edge. Deleting a missing edge is a no-op.
	Unlink(ctx context.Context, tenantID, doctorID, patientID uuid.UUID) (removed bool, err error)

	IsLinked(ctx context.Context, tenantID, doctorID, patientID uuid.UUID) (bool, error)

	// ListPatientIDs returns the doctor's linked patients in link order.
	ListPatientIDs(ctx context.Context, tenantID, doctorID uuid.UUID) ([]uuid.UUID, error)
}

type RosterRepository interface {
	Create(ctx context.Context, e *models.RosterEntry) error

	// CreateMany inserts all entries or none.
	CreateMany(ctx context.Context, entries []models.RosterEntry) error

	// FindActive returns the active roster entry for the staff member on
	// date, or nil if none is configured.
	FindActive(ctx context.Context, tenantID, staffID uuid.UUID, date time.Time) (*models.RosterEntry, error)

	// SetTimeSlots persists lazily regenerated slots.
	SetTimeSlots(ctx context.Context, tenantID, entryID uuid.UUID, slots []string) error

	// ListByStaff returns entries with from <= date <= to, oldest first.
	ListByStaff(ctx context.Context, tenantID, staffID uuid.UUID, from, to time.Time) ([]models.RosterEntry, error)
}

// AppointmentFilter narrows a calendar listing. Zero values are ignored.
type AppointmentFilter struct {
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	From      time.Time
	To        time.Time
	Status    models.AppointmentStatus
}

type AppointmentRepository interface {
	// Create inserts a, filling ID, CreatedAt, UpdatedAt. Returns
	// ErrSlotTaken when the slot is already held.
	Create(ctx context.Context, a *models.Appointment) error

	// CreatePlaceholder inserts a "linked" placeholder unless the pair
	// already has one, in which case created is false and a is untouched.
	// Concurrent callers for the same pair create at most one row.
	CreatePlaceholder(ctx context.Context, a *models.Appointment) (created bool, err error)

	GetByID(ctx context.Context, tenantID, appointmentID uuid.UUID) (*models.Appointment, error)

	// Update writes every mutable column of a. Returns ErrSlotTaken when
	// the new (doctor, date, slot) is already held by another appointment.
	Update(ctx context.Context, a *models.Appointment) error

	// Delete physically removes the appointment. deleted is false if it
	// did not exist in the tenant.
	Delete(ctx context.Context, tenantID, appointmentID uuid.UUID) (deleted bool, err error)

	// FindSlotHolder returns the slot-holding appointment at
	// (doctor, date, slot), or nil.
	FindSlotHolder(ctx context.Context, tenantID, doctorID uuid.UUID, date time.Time, slot string) (*models.Appointment, error)

	// ListHeldSlots returns the raw time_slot values of slot-holding
	// appointments for (doctor, date).
	ListHeldSlots(ctx context.Context, tenantID, doctorID uuid.UUID, date time.Time) ([]string, error)

	// ListByPatient returns every appointment of the patient, newest first.
	ListByPatient(ctx context.Context, tenantID, patientID uuid.UUID) ([]models.Appointment, error)

	// ListByPair returns every appointment between doctor and patient.
	ListByPair(ctx context.Context, tenantID, doctorID, patientID uuid.UUID) ([]models.Appointment, error)

	// List returns appointments matching f ordered by date, slot.
	List(ctx context.Context, tenantID uuid.UUID, f AppointmentFilter) ([]models.Appointment, error)

	// ReassignDoctor points every (patient, from) appointment at to and
	// returns the number of rows changed.
	ReassignDoctor(ctx context.Context, tenantID, patientID, fromDoctorID, toDoctorID uuid.UUID) (int64, error)

	// MarkPairStatus sets status on the pair's appointments whose current
	// status is in from. Returns the number of rows changed.
	MarkPairStatus(ctx context.Context, tenantID, doctorID, patientID uuid.UUID, from []models.AppointmentStatus, to models.AppointmentStatus) (int64, error)

	// ListPendingBefore returns pending (scheduled, rescheduled)
	// appointments dated on or before cutoff. A zero tenantID spans
	// every tenant; it is used only by the reconciliation sweep.
	ListPendingBefore(ctx context.Context, tenantID uuid.UUID, cutoff time.Time) ([]models.Appointment, error)

	// TransitionStatus moves one appointment to `to` only if its status is
	// still in from. changed is false when another writer got there first.
	TransitionStatus(ctx context.Context, tenantID, appointmentID uuid.UUID, from []models.AppointmentStatus, to models.AppointmentStatus) (changed bool, err error)
}

type AuditRepository interface {
	Append(ctx context.Context, e *models.AuditEntry) error
	ListBySubject(ctx context.Context, tenantID, subjectID uuid.UUID, limit int) ([]models.AuditEntry, error)
}
