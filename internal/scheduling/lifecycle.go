package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/medroster/internal/apperr"
	"github.com/lalith-99/medroster/internal/audit"
	"github.com/lalith-99/medroster/internal/auth"
	"github.com/lalith-99/medroster/internal/models"
	"github.com/lalith-99/medroster/internal/notify"
	"github.com/lalith-99/medroster/internal/repository"
	"go.uber.org/zap"
)

type BookRequest struct {
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Date      string
	TimeSlot  string
	Mode      string
	Notes     string
}

type RescheduleRequest struct {
	Date     string
	TimeSlot string
}

type ConflictRequest struct {
	DoctorID uuid.UUID
	Date     string
	TimeSlot string

	// ExcludeID ignores one appointment, for checking a reschedule target.
	ExcludeID uuid.UUID
}

type ListQuery struct {
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	From      string
	To        string
	Status    string
}

// Book creates a scheduled appointment. Two concurrent bookings of the
// same (doctor, date, slot) cannot both succeed: the loser gets
// SlotConflict from the store's uniqueness rule even if it passed the
// pre-check.
func (s *Service) Book(ctx context.Context, id auth.Identity, req BookRequest) (*models.Appointment, error) {
	if err := requireRole(id, auth.RoleAdmin, auth.RoleStaff); err != nil {
		return nil, err
	}
	if err := requireID("doctorId", req.DoctorID); err != nil {
		return nil, err
	}
	if err := requireID("patientId", req.PatientID); err != nil {
		return nil, err
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return nil, err
	}
	slot, err := normalizeSlot("timeSlot", req.TimeSlot)
	if err != nil {
		return nil, err
	}
	mode := req.Mode
	switch mode {
	case "":
		mode = models.ModeInPerson
	case models.ModeInPerson, models.ModeTelehealth:
	default:
		return nil, apperr.ValidationExpected("mode", "is not supported", models.ModeInPerson+" or "+models.ModeTelehealth)
	}

	if _, err := s.doctor(ctx, id.TenantID, req.DoctorID); err != nil {
		return nil, err
	}
	if _, err := s.patient(ctx, id.TenantID, req.PatientID); err != nil {
		return nil, err
	}
	if err := s.ensureSlotFree(ctx, id.TenantID, req.DoctorID, date, slot, uuid.Nil); err != nil {
		return nil, err
	}

	linked, err := s.Links.IsLinked(ctx, id.TenantID, req.DoctorID, req.PatientID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	a := &models.Appointment{
		TenantID:        id.TenantID,
		DoctorID:        req.DoctorID,
		PatientID:       req.PatientID,
		Date:            date,
		TimeSlot:        slot,
		Status:          models.StatusScheduled,
		Mode:            mode,
		Notes:           req.Notes,
		CreatedBy:       id.UserID,
		LinkedAtBooking: linked,
	}
	if err := s.Appointments.Create(ctx, a); err != nil {
		return nil, storeErr(err)
	}

	if err := s.Patients.RecordVisit(ctx, id.TenantID, req.PatientID, date); err != nil {
		s.Logger.Warn("update patient visit counters",
			zap.String("tenant_id", id.TenantID.String()),
			zap.String("patient_id", req.PatientID.String()),
			zap.Error(err),
		)
	}

	s.record(ctx, id, auditEntry{
		subject: a.ID,
		action:  audit.ActionAppointmentBooked,
		details: map[string]any{"doctor_id": a.DoctorID, "patient_id": a.PatientID, "date": req.Date, "time_slot": slot},
	})
	s.publish(ctx, id.TenantID, notify.EventNewAppointment, a)
	return a, nil
}

// Reschedule moves a pending appointment (or a linkage placeholder) to a
// new date and slot. It always clears attendance.
func (s *Service) Reschedule(ctx context.Context, id auth.Identity, appointmentID uuid.UUID, req RescheduleRequest) (*models.Appointment, error) {
	if err := requireRole(id, auth.RoleAdmin, auth.RoleStaff); err != nil {
		return nil, err
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return nil, err
	}
	slot, err := normalizeSlot("timeSlot", req.TimeSlot)
	if err != nil {
		return nil, err
	}

	a, err := s.appointment(ctx, id.TenantID, appointmentID)
	if err != nil {
		return nil, err
	}
	if !a.Status.Pending() && a.Status != models.StatusLinked {
		return nil, apperr.ValidationExpected("status", "appointment in status "+string(a.Status)+" cannot be rescheduled",
			"scheduled, rescheduled or linked")
	}
	if err := s.ensureSlotFree(ctx, id.TenantID, a.DoctorID, date, slot, a.ID); err != nil {
		return nil, err
	}

	from := map[string]any{"date": a.Date.Format(time.DateOnly), "time_slot": a.TimeSlot}
	a.Date = date
	a.TimeSlot = slot
	a.Status = models.StatusRescheduled
	a.Attended = false
	if a.Mode == models.SentinelValue {
		a.Mode = models.ModeInPerson
	}
	if err := s.Appointments.Update(ctx, a); err != nil {
		return nil, storeErr(err)
	}

	s.record(ctx, id, auditEntry{
		subject: a.ID,
		action:  audit.ActionAppointmentRescheduled,
		details: map[string]any{"from": from, "date": req.Date, "time_slot": slot},
	})
	return a, nil
}

// Cancel is idempotent: cancelling a cancelled appointment returns it
// unchanged and records nothing.
func (s *Service) Cancel(ctx context.Context, id auth.Identity, appointmentID uuid.UUID, reason string) (*models.Appointment, error) {
	if err := requireRole(id, auth.RoleAdmin, auth.RoleStaff); err != nil {
		return nil, err
	}
	a, err := s.appointment(ctx, id.TenantID, appointmentID)
	if err != nil {
		return nil, err
	}
	switch a.Status {
	case models.StatusCancelled:
		return a, nil
	case models.StatusCompleted, models.StatusExpired:
		return nil, apperr.ValidationExpected("status", "appointment in status "+string(a.Status)+" cannot be cancelled",
			"scheduled, rescheduled, linked or unlinked")
	}

	a.Status = models.StatusCancelled
	a.Cancellation = &models.Cancellation{Reason: reason, By: id.UserID, At: s.now().UTC()}
	if err := s.Appointments.Update(ctx, a); err != nil {
		return nil, storeErr(err)
	}

	s.record(ctx, id, auditEntry{
		subject: a.ID,
		action:  audit.ActionAppointmentCancelled,
		details: map[string]any{"reason": reason},
	})
	return a, nil
}

// MarkAttended completes the appointment whatever its prior status; staff
// confirmation overrides the reconciler.
func (s *Service) MarkAttended(ctx context.Context, id auth.Identity, appointmentID uuid.UUID) (*models.Appointment, error) {
	if err := requireRole(id, auth.RoleAdmin, auth.RoleStaff, auth.RoleDoctor); err != nil {
		return nil, err
	}
	a, err := s.appointment(ctx, id.TenantID, appointmentID)
	if err != nil {
		return nil, err
	}
	if id.Role == auth.RoleDoctor && a.DoctorID != id.UserID {
		return nil, apperr.Forbidden("doctors may only confirm their own appointments")
	}

	a.Attended = true
	a.Status = models.StatusCompleted
	if err := s.Appointments.Update(ctx, a); err != nil {
		return nil, storeErr(err)
	}

	s.record(ctx, id, auditEntry{subject: a.ID, action: audit.ActionAppointmentAttended})
	return a, nil
}

// Delete physically removes an appointment. Admin only.
func (s *Service) Delete(ctx context.Context, id auth.Identity, appointmentID uuid.UUID) error {
	if err := requireRole(id, auth.RoleAdmin); err != nil {
		return err
	}
	deleted, err := s.Appointments.Delete(ctx, id.TenantID, appointmentID)
	if err != nil {
		return apperr.Internal(err)
	}
	if !deleted {
		return apperr.NotFound("appointment")
	}
	s.record(ctx, id, auditEntry{subject: appointmentID, action: audit.ActionAppointmentDeleted})
	return nil
}

func (s *Service) Get(ctx context.Context, id auth.Identity, appointmentID uuid.UUID) (*models.Appointment, error) {
	a, err := s.appointment(ctx, id.TenantID, appointmentID)
	if err != nil {
		return nil, err
	}
	if id.Role == auth.RoleDoctor && a.DoctorID != id.UserID {
		return nil, apperr.Forbidden("doctors may only view their own appointments")
	}
	return a, nil
}

// List is the tenant calendar, for admins and staff.
func (s *Service) List(ctx context.Context, id auth.Identity, q ListQuery) ([]models.Appointment, error) {
	if err := requireRole(id, auth.RoleAdmin, auth.RoleStaff); err != nil {
		return nil, err
	}
	f := repository.AppointmentFilter{DoctorID: q.DoctorID, PatientID: q.PatientID}
	var err error
	if q.From != "" {
		if f.From, err = parseDate("from", q.From); err != nil {
			return nil, err
		}
	}
	if q.To != "" {
		if f.To, err = parseDate("to", q.To); err != nil {
			return nil, err
		}
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return nil, apperr.Validation("to", "must not be before from")
	}
	if q.Status != "" {
		f.Status = models.AppointmentStatus(q.Status)
		if !f.Status.Valid() {
			return nil, apperr.ValidationExpected("status", "is not a known status",
				"scheduled, rescheduled, completed, cancelled, expired, linked or unlinked")
		}
	}

	list, err := s.Appointments.List(ctx, id.TenantID, f)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return list, nil
}

// ListMine returns the calling doctor's appointments with the patients
// currently linked to them.
func (s *Service) ListMine(ctx context.Context, id auth.Identity) ([]models.Appointment, error) {
	if err := requireRole(id, auth.RoleDoctor); err != nil {
		return nil, err
	}
	linked, err := s.Links.ListPatientIDs(ctx, id.TenantID, id.UserID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	out := make([]models.Appointment, 0)
	if len(linked) == 0 {
		return out, nil
	}
	keep := make(map[uuid.UUID]bool, len(linked))
	for _, p := range linked {
		keep[p] = true
	}

	all, err := s.Appointments.List(ctx, id.TenantID, repository.AppointmentFilter{DoctorID: id.UserID})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	for _, a := range all {
		if keep[a.PatientID] {
			out = append(out, a)
		}
	}
	return out, nil
}

// CheckConflict reports SlotConflict when the slot is held, nil when free.
func (s *Service) CheckConflict(ctx context.Context, id auth.Identity, req ConflictRequest) error {
	if err := requireRole(id, auth.RoleAdmin, auth.RoleStaff); err != nil {
		return err
	}
	if err := requireID("doctorId", req.DoctorID); err != nil {
		return err
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return err
	}
	slot, err := normalizeSlot("timeSlot", req.TimeSlot)
	if err != nil {
		return err
	}
	if _, err := s.doctor(ctx, id.TenantID, req.DoctorID); err != nil {
		return err
	}
	return s.ensureSlotFree(ctx, id.TenantID, req.DoctorID, date, slot, req.ExcludeID)
}

func (s *Service) ensureSlotFree(ctx context.Context, tenantID, doctorID uuid.UUID, date time.Time, slot string, exclude uuid.UUID) error {
	holder, err := s.Appointments.FindSlotHolder(ctx, tenantID, doctorID, date, slot)
	if err != nil {
		return apperr.Internal(err)
	}
	if holder != nil && holder.ID != exclude {
		return apperr.SlotConflict("time slot " + slot + " on " + date.Format(time.DateOnly) + " is already booked for this doctor")
	}
	return nil
}
