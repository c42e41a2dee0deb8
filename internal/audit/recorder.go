// Package audit appends entries to the external audit log. Recording is
// fire-and-forget: failures are logged and never reach the caller.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/medroster/internal/models"
	"github.com/lalith-99/medroster/internal/repository"
	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

// Actions written by the scheduling core.
const (
	ActionAppointmentBooked      = "appointment.booked"
	ActionAppointmentRescheduled = "appointment.rescheduled"
	ActionAppointmentCancelled   = "appointment.cancelled"
	ActionAppointmentAttended    = "appointment.attended"
	ActionAppointmentDeleted     = "appointment.deleted"
	ActionPatientLinked          = "doctor.patient_linked"
	ActionPlaceholderCreated     = "doctor.placeholder_created"
	ActionAppointmentRedirected  = "doctor.appointment_redirected"
	ActionPatientUnlinked        = "doctor.patient_unlinked"
	ActionPatientReassignedOut   = "doctor.patient_reassigned_out"
	ActionPatientReassignedIn    = "doctor.patient_reassigned_in"
	ActionRosterCreated          = "roster.created"
)

type Recorder struct {
	repo   repository.AuditRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewRecorder(repo repository.AuditRepository, logger *zap.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger, now: time.Now}
}

// Record writes the entry with a deadline detached from ctx, so a client
// hanging up right after a mutation does not lose its audit trail.
func (r *Recorder) Record(ctx context.Context, tenantID, subjectID uuid.UUID, action, actor string, details map[string]any) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	entry := &models.AuditEntry{
		TenantID:  tenantID,
		SubjectID: subjectID,
		Action:    action,
		Actor:     actor,
		At:        r.now().UTC(),
		Context:   details,
	}
	if err := r.repo.Append(ctx, entry); err != nil {
		r.logger.Error("audit record failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("subject_id", subjectID.String()),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}
