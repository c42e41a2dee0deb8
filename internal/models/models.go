package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is the isolation boundary (one clinic organization). Every other
// record carries a TenantID and no read or write crosses tenants.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	TenantActive    = "active"
	TenantSuspended = "suspended"
)

// Doctor is a clinical staff member patients can be booked with.
//
// LinkedPatients is read from the doctor_patient_links edge table in link
// order. It is never written through this struct; the linkage service owns
// those edges.
type Doctor struct {
	ID             uuid.UUID   `json:"id"`
	TenantID       uuid.UUID   `json:"tenant_id"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	Specialty      string      `json:"specialty"`
	Status         string      `json:"status"`
	LinkedPatients []uuid.UUID `json:"linked_patients"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Patient belongs to a tenant. LastVisit and VisitCount are bumped as a
// side effect of booking.
type Patient struct {
	ID         uuid.UUID  `json:"id"`
	TenantID   uuid.UUID  `json:"tenant_id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	LastVisit  *time.Time `json:"last_visit,omitempty"`
	VisitCount int        `json:"visit_count"`
	CreatedAt  time.Time  `json:"created_at"`
}

// LinkEdge is one doctor<->patient linkage. The triple is unique.
type LinkEdge struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	PatientID uuid.UUID `json:"patient_id"`
	LinkedAt  time.Time `json:"linked_at"`
}

const (
	RosterActive    = "active"
	RosterCancelled = "cancelled"
)

// RosterEntry is one shift for a staff member on a date. TimeSlots is
// materialized at creation from StartTime/EndTime.
type RosterEntry struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	StaffID   uuid.UUID `json:"staff_id"`
	Date      time.Time `json:"date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	ShiftType string    `json:"shift_type,omitempty"`
	Location  string    `json:"location,omitempty"`
	Status    string    `json:"status"`
	Notes     string    `json:"notes,omitempty"`
	TimeSlots []string  `json:"time_slots"`
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// AppointmentStatus is the closed set of persisted status values.
type AppointmentStatus string

const (
	StatusScheduled   AppointmentStatus = "scheduled"
	StatusRescheduled AppointmentStatus = "rescheduled"
	StatusCompleted   AppointmentStatus = "completed"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusExpired     AppointmentStatus = "expired"
	StatusLinked      AppointmentStatus = "linked"
	StatusUnlinked    AppointmentStatus = "unlinked"
)

// Valid reports whether s is one of the persisted statuses.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusRescheduled, StatusCompleted, StatusCancelled,
		StatusExpired, StatusLinked, StatusUnlinked:
		return true
	}
	return false
}

// Sentinel reports whether s marks a linkage placeholder. Sentinel
// appointments never hold a slot and are skipped by the reconciler.
func (s AppointmentStatus) Sentinel() bool {
	return s == StatusLinked || s == StatusUnlinked
}

// Pending reports whether s is awaiting its appointment time.
// rescheduled is a history marker and behaves like scheduled.
func (s AppointmentStatus) Pending() bool {
	return s == StatusScheduled || s == StatusRescheduled
}

// HoldsSlot reports whether an appointment in status s occupies its
// (doctor, date, timeSlot).
func (s AppointmentStatus) HoldsSlot() bool {
	return s != StatusCancelled && !s.Sentinel()
}

const (
	ModeInPerson   = "in-person"
	ModeTelehealth = "telehealth"

	// SentinelValue fills TimeSlot and Mode on linkage placeholders.
	SentinelValue = "—"
)

// Cancellation is stamped once when an appointment is cancelled.
type Cancellation struct {
	Reason string    `json:"reason"`
	By     uuid.UUID `json:"by"`
	At     time.Time `json:"at"`
}

// Appointment binds a doctor and a patient to a date and a canonical
// "HH:mm" slot. At most one slot-holding appointment may exist per
// (TenantID, DoctorID, Date, TimeSlot).
type Appointment struct {
	ID              uuid.UUID         `json:"id"`
	TenantID        uuid.UUID         `json:"tenant_id"`
	DoctorID        uuid.UUID         `json:"doctor_id"`
	PatientID       uuid.UUID         `json:"patient_id"`
	Date            time.Time         `json:"date"`
	TimeSlot        string            `json:"time_slot"`
	Status          AppointmentStatus `json:"status"`
	Attended        bool              `json:"attended"`
	Mode            string            `json:"mode"`
	Notes           string            `json:"notes"`
	CreatedBy       uuid.UUID         `json:"created_by"`
	LinkedAtBooking bool              `json:"linked_at_booking"`
	Cancellation    *Cancellation     `json:"cancellation,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// AuditEntry is one append-only audit record about a subject (doctor,
// appointment, patient) within a tenant.
type AuditEntry struct {
	ID        int64          `json:"id"`
	TenantID  uuid.UUID      `json:"tenant_id"`
	SubjectID uuid.UUID      `json:"subject_id"`
	Action    string         `json:"action"`
	Actor     string         `json:"actor"`
	At        time.Time      `json:"at"`
	Context   map[string]any `json:"context,omitempty"`
}
