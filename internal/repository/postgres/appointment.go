package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/medroster/internal/db"
	"github.com/lalith-99/medroster/internal/models"
	"github.com/lalith-99/medroster/internal/repository"
)

const (
	uniqueViolation = "23505"
	slotUniqueIndex = "uq_appointments_slot"
	appointmentCols = `id, tenant_id, doctor_id, patient_id, date, time_slot, status, attended, mode, notes,
		created_by, linked_at_booking, cancellation_reason, cancelled_by, cancelled_at, created_at, updated_at`
)

type AppointmentStore struct {
	pool *pgxpool.Pool
}

func NewAppointmentStore(pool *pgxpool.Pool) *AppointmentStore {
	return &AppointmentStore{pool: pool}
}

// isSlotTaken reports whether err is the partial unique index on
// (tenant_id, doctor_id, date, time_slot) rejecting a second holder.
func isSlotTaken(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == slotUniqueIndex
}

func scanAppointment(row pgx.Row) (*models.Appointment, error) {
	var (
		a         models.Appointment
		status    string
		createdBy uuid.NullUUID
		reason    *string
		by        uuid.NullUUID
		at        *time.Time
	)
	err := row.Scan(
		&a.ID,
		&a.TenantID,
		&a.DoctorID,
		&a.PatientID,
		&a.Date,
		&a.TimeSlot,
		&status,
		&a.Attended,
		&a.Mode,
		&a.Notes,
		&createdBy,
		&a.LinkedAtBooking,
		&reason,
		&by,
		&at,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Status = models.AppointmentStatus(status)
	a.CreatedBy = createdBy.UUID
	if at != nil {
		a.Cancellation = &models.Cancellation{By: by.UUID, At: *at}
		if reason != nil {
			a.Cancellation.Reason = *reason
		}
	}
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]models.Appointment, error) {
	defer rows.Close()

	appointments := make([]models.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appointments = append(appointments, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}
	return appointments, nil
}

func nullable(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}

func cancellationArgs(c *models.Cancellation) (*string, uuid.NullUUID, *time.Time) {
	if c == nil {
		return nil, uuid.NullUUID{}, nil
	}
	reason, at := c.Reason, c.At
	return &reason, nullable(c.By), &at
}

func statusStrings(statuses []models.AppointmentStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func (s *AppointmentStore) Create(ctx context.Context, a *models.Appointment) error {
	reason, by, at := cancellationArgs(a.Cancellation)
	query := `
		INSERT INTO appointments (tenant_id, doctor_id, patient_id, date, time_slot, status, attended, mode, notes,
			created_by, linked_at_booking, cancellation_reason, cancelled_by, cancelled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now(), now())
		RETURNING id, created_at, updated_at`

	err := db.Conn(ctx, s.pool).QueryRow(ctx, query,
		a.TenantID, a.DoctorID, a.PatientID, a.Date, a.TimeSlot, string(a.Status), a.Attended, a.Mode, a.Notes,
		nullable(a.CreatedBy), a.LinkedAtBooking, reason, by, at,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isSlotTaken(err) {
			return repository.ErrSlotTaken
		}
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

// CreatePlaceholder relies on uq_appointments_placeholder
// (migrations/003_placeholders.sql). ON CONFLICT keeps the surrounding
// transaction usable when a concurrent Link got there first.
func (s *AppointmentStore) CreatePlaceholder(ctx context.Context, a *models.Appointment) (bool, error) {
	query := `
		INSERT INTO appointments (tenant_id, doctor_id, patient_id, date, time_slot, status, attended, mode, notes,
			created_by, linked_at_booking, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, $7, $8, $9, $10, now(), now())
		ON CONFLICT (tenant_id, doctor_id, patient_id) WHERE status = 'linked' DO NOTHING
		RETURNING id, created_at, updated_at`

	err := db.Conn(ctx, s.pool).QueryRow(ctx, query,
		a.TenantID, a.DoctorID, a.PatientID, a.Date, a.TimeSlot, string(models.StatusLinked), a.Mode, a.Notes,
		nullable(a.CreatedBy), a.LinkedAtBooking,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("insert placeholder: %w", err)
	}
	a.Status = models.StatusLinked
	return true, nil
}

func (s *AppointmentStore) GetByID(ctx context.Context, tenantID, appointmentID uuid.UUID) (*models.Appointment, error) {
	query := `SELECT ` + appointmentCols + ` FROM appointments WHERE id = $1 AND tenant_id = $2`

	a, err := scanAppointment(db.Conn(ctx, s.pool).QueryRow(ctx, query, appointmentID, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return a, nil
}

func (s *AppointmentStore) Update(ctx context.Context, a *models.Appointment) error {
	reason, by, at := cancellationArgs(a.Cancellation)
	query := `
		UPDATE appointments
		SET doctor_id = $3, patient_id = $4, date = $5, time_slot = $6, status = $7, attended = $8,
			mode = $9, notes = $10, cancellation_reason = $11, cancelled_by = $12, cancelled_at = $13,
			updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING updated_at`

	err := db.Conn(ctx, s.pool).QueryRow(ctx, query,
		a.ID, a.TenantID, a.DoctorID, a.PatientID, a.Date, a.TimeSlot, string(a.Status), a.Attended,
		a.Mode, a.Notes, reason, by, at,
	).Scan(&a.UpdatedAt)
	if err != nil {
		if isSlotTaken(err) {
			return repository.ErrSlotTaken
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("update appointment %s: %w", a.ID, err)
		}
		return fmt.Errorf("update appointment: %w", err)
	}
	return nil
}

func (s *AppointmentStore) Delete(ctx context.Context, tenantID, appointmentID uuid.UUID) (bool, error) {
	tag, err := db.Conn(ctx, s.pool).Exec(ctx,
		`DELETE FROM appointments WHERE id = $1 AND tenant_id = $2`, appointmentID, tenantID)
	if err != nil {
		return false, fmt.Errorf("delete appointment: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// holdsSlotClause mirrors the predicate of uq_appointments_slot in
// migrations/002_scheduling.sql; change both together.
const holdsSlotClause = `status NOT IN ('cancelled', 'linked', 'unlinked') AND time_slot <> '—'`

func (s *AppointmentStore) FindSlotHolder(ctx context.Context, tenantID, doctorID uuid.UUID, date time.Time, slot string) (*models.Appointment, error) {
	query := `SELECT ` + appointmentCols + ` FROM appointments
		WHERE tenant_id = $1 AND doctor_id = $2 AND date = $3 AND time_slot = $4 AND ` + holdsSlotClause + `
		LIMIT 1`

	a, err := scanAppointment(db.Conn(ctx, s.pool).QueryRow(ctx, query, tenantID, doctorID, date, slot))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find slot holder: %w", err)
	}
	return a, nil
}

func (s *AppointmentStore) ListHeldSlots(ctx context.Context, tenantID, doctorID uuid.UUID, date time.Time) ([]string, error) {
	query := `SELECT time_slot FROM appointments
		WHERE tenant_id = $1 AND doctor_id = $2 AND date = $3 AND ` + holdsSlotClause

	rows, err := db.Conn(ctx, s.pool).Query(ctx, query, tenantID, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("list held slots: %w", err)
	}
	defer rows.Close()

	held := make([]string, 0)
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, fmt.Errorf("scan held slot: %w", err)
		}
		held = append(held, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate held slots: %w", err)
	}
	return held, nil
}

func (s *AppointmentStore) ListByPatient(ctx context.Context, tenantID, patientID uuid.UUID) ([]models.Appointment, error) {
	query := `SELECT ` + appointmentCols + ` FROM appointments
		WHERE tenant_id = $1 AND patient_id = $2
		ORDER BY date DESC, created_at DESC`

	rows, err := db.Conn(ctx, s.pool).Query(ctx, query, tenantID, patientID)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return collectAppointments(rows)
}

func (s *AppointmentStore) ListByPair(ctx context.Context, tenantID, doctorID, patientID uuid.UUID) ([]models.Appointment, error) {
	query := `SELECT ` + appointmentCols + ` FROM appointments
		WHERE tenant_id = $1 AND doctor_id = $2 AND patient_id = $3
		ORDER BY date, time_slot`

	rows, err := db.Conn(ctx, s.pool).Query(ctx, query, tenantID, doctorID, patientID)
	if err != nil {
		return nil, fmt.Errorf("list appointments by pair: %w", err)
	}
	return collectAppointments(rows)
}

// List builds the WHERE clause from the non-zero filter fields. tenant_id
// is always the first condition.
func (s *AppointmentStore) List(ctx context.Context, tenantID uuid.UUID, f repository.AppointmentFilter) ([]models.Appointment, error) {
	conds := []string{"tenant_id = $1"}
	args := []any{tenantID}
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.DoctorID != uuid.Nil {
		add("doctor_id = $%d", f.DoctorID)
	}
	if f.PatientID != uuid.Nil {
		add("patient_id = $%d", f.PatientID)
	}
	if !f.From.IsZero() {
		add("date >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("date <= $%d", f.To)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}

	query := `SELECT ` + appointmentCols + ` FROM appointments WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY date, time_slot`

	rows, err := db.Conn(ctx, s.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return collectAppointments(rows)
}

func (s *AppointmentStore) ReassignDoctor(ctx context.Context, tenantID, patientID, fromDoctorID, toDoctorID uuid.UUID) (int64, error) {
	query := `
		UPDATE appointments SET doctor_id = $4, updated_at = now()
		WHERE tenant_id = $1 AND patient_id = $2 AND doctor_id = $3`

	tag, err := db.Conn(ctx, s.pool).Exec(ctx, query, tenantID, patientID, fromDoctorID, toDoctorID)
	if err != nil {
		if isSlotTaken(err) {
			return 0, repository.ErrSlotTaken
		}
		return 0, fmt.Errorf("reassign appointments: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *AppointmentStore) MarkPairStatus(ctx context.Context, tenantID, doctorID, patientID uuid.UUID, from []models.AppointmentStatus, to models.AppointmentStatus) (int64, error) {
	query := `
		UPDATE appointments SET status = $5, updated_at = now()
		WHERE tenant_id = $1 AND doctor_id = $2 AND patient_id = $3 AND status = ANY($4)`

	tag, err := db.Conn(ctx, s.pool).Exec(ctx, query, tenantID, doctorID, patientID, statusStrings(from), string(to))
	if err != nil {
		if isSlotTaken(err) {
			return 0, repository.ErrSlotTaken
		}
		return 0, fmt.Errorf("mark pair status: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *AppointmentStore) ListPendingBefore(ctx context.Context, tenantID uuid.UUID, cutoff time.Time) ([]models.Appointment, error) {
	query := `SELECT ` + appointmentCols + ` FROM appointments
		WHERE status IN ('scheduled', 'rescheduled') AND date <= $1`
	args := []any{cutoff}
	if tenantID != uuid.Nil {
		query += ` AND tenant_id = $2`
		args = append(args, tenantID)
	}
	query += ` ORDER BY date, time_slot`

	rows, err := db.Conn(ctx, s.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pending appointments: %w", err)
	}
	return collectAppointments(rows)
}

func (s *AppointmentStore) TransitionStatus(ctx context.Context, tenantID, appointmentID uuid.UUID, from []models.AppointmentStatus, to models.AppointmentStatus) (bool, error) {
	query := `
		UPDATE appointments SET status = $4, updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND status = ANY($3)`

	tag, err := db.Conn(ctx, s.pool).Exec(ctx, query, appointmentID, tenantID, statusStrings(from), string(to))
	if err != nil {
		if isSlotTaken(err) {
			return false, repository.ErrSlotTaken
		}
		return false, fmt.Errorf("transition appointment status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
