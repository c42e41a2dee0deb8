package scheduling

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/lalith-99/medroster/internal/apperr"
	"github.com/lalith-99/medroster/internal/audit"
	"github.com/lalith-99/medroster/internal/auth"
	"github.com/lalith-99/medroster/internal/models"
	"github.com/lalith-99/medroster/internal/notify"
	"github.com/lalith-99/medroster/internal/repository"
)

// openStatuses are the appointments that follow a linkage change.
// Finished history (completed, expired, cancelled) is never touched.
var openStatuses = []models.AppointmentStatus{
	models.StatusScheduled, models.StatusRescheduled, models.StatusLinked,
}

type ReassignRequest struct {
	PatientID    uuid.UUID
	FromDoctorID uuid.UUID
	ToDoctorID   uuid.UUID
}

type ReassignResult struct {
	From  *models.Doctor `json:"from"`
	To    *models.Doctor `json:"to"`
	Moved int64          `json:"moved"`
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Link adds patientIDs to the doctor's linked set. For every requested
// patient it then makes the appointment history agree with the links:
// the patient's open appointments with any other doctor are redirected
// here, and a placeholder is created when the pair has no appointment at
// all. Finished history keeps its doctor. Repeating a call changes nothing.
func (s *Service) Link(ctx context.Context, id auth.Identity, doctorID uuid.UUID, patientIDs []uuid.UUID) (*models.Doctor, error) {
	if err := requireRole(id, auth.RoleAdmin); err != nil {
		return nil, err
	}
	if err := requireID("doctorId", doctorID); err != nil {
		return nil, err
	}
	ids := dedupe(patientIDs)
	if len(ids) == 0 {
		return nil, apperr.Validation("patientIds", "at least one patient is required")
	}
	if slicesContainNil(ids) {
		return nil, apperr.Validation("patientIds", "contains an empty id")
	}

	var (
		entries      []auditEntry
		placeholders []*models.Appointment
	)
	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.doctor(ctx, id.TenantID, doctorID); err != nil {
			return err
		}
		found, err := s.Patients.GetMany(ctx, id.TenantID, ids)
		if err != nil {
			return apperr.Internal(err)
		}
		if len(found) != len(ids) {
			return apperr.NotFound("patient")
		}

		for _, patientID := range ids {
			inserted, err := s.Links.Link(ctx, id.TenantID, doctorID, patientID)
			if err != nil {
				return apperr.Internal(err)
			}
			if inserted {
				entries = append(entries, auditEntry{
					subject: doctorID,
					action:  audit.ActionPatientLinked,
					details: map[string]any{"patient_id": patientID},
				})
			}

			moved, err := s.redirectOpen(ctx, id.TenantID, doctorID, patientID)
			if err != nil {
				return err
			}
			for _, a := range moved {
				entries = append(entries, auditEntry{
					subject: doctorID,
					action:  audit.ActionAppointmentRedirected,
					details: map[string]any{
						"appointment_id": a.appointment.ID,
						"patient_id":     patientID,
						"from_doctor_id": a.from,
					},
				})
			}

			p, err := s.ensurePlaceholder(ctx, id, doctorID, patientID)
			if err != nil {
				return err
			}
			if p != nil {
				placeholders = append(placeholders, p)
				entries = append(entries, auditEntry{
					subject: doctorID,
					action:  audit.ActionPlaceholderCreated,
					details: map[string]any{"appointment_id": p.ID, "patient_id": patientID},
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, storeErr(err)
	}

	s.record(ctx, id, entries...)
	for _, p := range placeholders {
		s.publish(ctx, id.TenantID, notify.EventNewAppointment, p)
	}
	return s.doctor(ctx, id.TenantID, doctorID)
}

func slicesContainNil(ids []uuid.UUID) bool {
	for _, id := range ids {
		if id == uuid.Nil {
			return true
		}
	}
	return false
}

type redirect struct {
	appointment models.Appointment
	from        uuid.UUID
}

// redirectOpen points every open appointment of the patient at doctorID.
// A move onto a slot doctorID already holds fails with ErrSlotTaken.
func (s *Service) redirectOpen(ctx context.Context, tenantID, doctorID, patientID uuid.UUID) ([]redirect, error) {
	history, err := s.Appointments.ListByPatient(ctx, tenantID, patientID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	var moved []redirect
	for _, a := range history {
		if a.DoctorID == doctorID || !isOpen(a.Status) {
			continue
		}
		from := a.DoctorID
		a.DoctorID = doctorID
		if err := s.Appointments.Update(ctx, &a); err != nil {
			return nil, storeErr(err)
		}
		moved = append(moved, redirect{appointment: a, from: from})
	}
	return moved, nil
}

func isOpen(status models.AppointmentStatus) bool {
	for _, s := range openStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// ensurePlaceholder creates the "linked" sentinel appointment when the
// pair has no appointment of any status. It returns nil when one exists,
// including one a concurrent Link inserted after the check.
func (s *Service) ensurePlaceholder(ctx context.Context, id auth.Identity, doctorID, patientID uuid.UUID) (*models.Appointment, error) {
	existing, err := s.Appointments.ListByPair(ctx, id.TenantID, doctorID, patientID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(existing) > 0 {
		return nil, nil
	}

	a := &models.Appointment{
		TenantID:        id.TenantID,
		DoctorID:        doctorID,
		PatientID:       patientID,
		Date:            s.today(),
		TimeSlot:        models.SentinelValue,
		Status:          models.StatusLinked,
		Mode:            models.SentinelValue,
		CreatedBy:       id.UserID,
		LinkedAtBooking: true,
	}
	created, err := s.Appointments.CreatePlaceholder(ctx, a)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !created {
		return nil, nil
	}
	return a, nil
}

// Unlink removes the edge and soft-marks the pair's open appointments as
// unlinked. Nothing is deleted or cancelled.
func (s *Service) Unlink(ctx context.Context, id auth.Identity, doctorID, patientID uuid.UUID) (*models.Doctor, error) {
	if err := requireRole(id, auth.RoleAdmin); err != nil {
		return nil, err
	}
	if err := requireID("doctorId", doctorID); err != nil {
		return nil, err
	}
	if err := requireID("patientId", patientID); err != nil {
		return nil, err
	}

	var (
		removed bool
		marked  int64
	)
	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.doctor(ctx, id.TenantID, doctorID); err != nil {
			return err
		}
		if _, err := s.patient(ctx, id.TenantID, patientID); err != nil {
			return err
		}

		var err error
		if removed, err = s.Links.Unlink(ctx, id.TenantID, doctorID, patientID); err != nil {
			return apperr.Internal(err)
		}
		marked, err = s.Appointments.MarkPairStatus(ctx, id.TenantID, doctorID, patientID, openStatuses, models.StatusUnlinked)
		return storeErr(err)
	})
	if err != nil {
		return nil, storeErr(err)
	}

	if removed || marked > 0 {
		s.record(ctx, id, auditEntry{
			subject: doctorID,
			action:  audit.ActionPatientUnlinked,
			details: map[string]any{"patient_id": patientID, "appointments_unlinked": marked},
		})
	}
	return s.doctor(ctx, id.TenantID, doctorID)
}

// Reassign moves a patient from one doctor to another in a single
// transaction: the source edge is removed, the destination edge added,
// and every (patient, from) appointment follows. A moved appointment that
// would collide with one the destination already holds aborts the whole
// reassignment with SlotConflict.
func (s *Service) Reassign(ctx context.Context, id auth.Identity, req ReassignRequest) (*ReassignResult, error) {
	if err := requireRole(id, auth.RoleAdmin); err != nil {
		return nil, err
	}
	if err := requireID("patientId", req.PatientID); err != nil {
		return nil, err
	}
	if err := requireID("fromDoctorId", req.FromDoctorID); err != nil {
		return nil, err
	}
	if err := requireID("toDoctorId", req.ToDoctorID); err != nil {
		return nil, err
	}
	if req.FromDoctorID == req.ToDoctorID {
		return nil, apperr.Validation("toDoctorId", "must differ from fromDoctorId")
	}

	var moved int64
	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.doctor(ctx, id.TenantID, req.FromDoctorID); err != nil {
			return err
		}
		if _, err := s.doctor(ctx, id.TenantID, req.ToDoctorID); err != nil {
			return err
		}
		if _, err := s.patient(ctx, id.TenantID, req.PatientID); err != nil {
			return err
		}

		if _, err := s.Links.Unlink(ctx, id.TenantID, req.FromDoctorID, req.PatientID); err != nil {
			return apperr.Internal(err)
		}
		if _, err := s.Links.Link(ctx, id.TenantID, req.ToDoctorID, req.PatientID); err != nil {
			return apperr.Internal(err)
		}
		var err error
		moved, err = s.Appointments.ReassignDoctor(ctx, id.TenantID, req.PatientID, req.FromDoctorID, req.ToDoctorID)
		if errors.Is(err, repository.ErrSlotTaken) {
			return apperr.SlotConflict("a moved appointment collides with one already booked for the destination doctor")
		}
		return storeErr(err)
	})
	if err != nil {
		return nil, storeErr(err)
	}

	details := map[string]any{
		"patient_id":     req.PatientID,
		"from_doctor_id": req.FromDoctorID,
		"to_doctor_id":   req.ToDoctorID,
		"moved":          moved,
	}
	s.record(ctx, id,
		auditEntry{subject: req.FromDoctorID, action: audit.ActionPatientReassignedOut, details: details},
		auditEntry{subject: req.ToDoctorID, action: audit.ActionPatientReassignedIn, details: details},
	)

	from, err := s.doctor(ctx, id.TenantID, req.FromDoctorID)
	if err != nil {
		return nil, err
	}
	to, err := s.doctor(ctx, id.TenantID, req.ToDoctorID)
	if err != nil {
		return nil, err
	}
	return &ReassignResult{From: from, To: to, Moved: moved}, nil
}

// LinkedPatients lists a doctor's patients in link order. Doctors may
// only list their own.
func (s *Service) LinkedPatients(ctx context.Context, id auth.Identity, doctorID uuid.UUID) ([]models.Patient, error) {
	if id.Role == auth.RoleDoctor && doctorID != id.UserID {
		return nil, apperr.Forbidden("doctors may only list their own patients")
	}
	d, err := s.doctor(ctx, id.TenantID, doctorID)
	if err != nil {
		return nil, err
	}
	patients, err := s.Patients.GetMany(ctx, id.TenantID, d.LinkedPatients)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return patients, nil
}

// UnlinkedPatients lists tenant patients with no doctor.
func (s *Service) UnlinkedPatients(ctx context.Context, id auth.Identity) ([]models.Patient, error) {
	if err := requireRole(id, auth.RoleAdmin, auth.RoleStaff); err != nil {
		return nil, err
	}
	patients, err := s.Patients.ListUnlinked(ctx, id.TenantID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return patients, nil
}
