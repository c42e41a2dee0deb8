package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/medroster/internal/db"
	"github.com/lalith-99/medroster/internal/models"
)

const patientCols = `id, tenant_id, name, email, phone, last_visit, visit_count, created_at`

type PatientStore struct {
	pool *pgxpool.Pool
}

func NewPatientStore(pool *pgxpool.Pool) *PatientStore {
	return &PatientStore{pool: pool}
}

func scanPatient(row pgx.Row) (*models.Patient, error) {
	var p models.Patient
	err := row.Scan(
		&p.ID,
		&p.TenantID,
		&p.Name,
		&p.Email,
		&p.Phone,
		&p.LastVisit,
		&p.VisitCount,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectPatients(rows pgx.Rows) ([]models.Patient, error) {
	defer rows.Close()

	patients := make([]models.Patient, 0)
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		patients = append(patients, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patients: %w", err)
	}
	return patients, nil
}

func (s *PatientStore) Create(ctx context.Context, p *models.Patient) error {
	query := `
		INSERT INTO patients (tenant_id, name, email, phone, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, visit_count, created_at`

	err := db.Conn(ctx, s.pool).QueryRow(ctx, query, p.TenantID, p.Name, p.Email, p.Phone).Scan(
		&p.ID,
		&p.VisitCount,
		&p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

func (s *PatientStore) GetByID(ctx context.Context, tenantID, patientID uuid.UUID) (*models.Patient, error) {
	query := `SELECT ` + patientCols + ` FROM patients WHERE id = $1 AND tenant_id = $2`

	p, err := scanPatient(db.Conn(ctx, s.pool).QueryRow(ctx, query, patientID, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return p, nil
}

func (s *PatientStore) GetMany(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]models.Patient, error) {
	if len(ids) == 0 {
		return make([]models.Patient, 0), nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}

	query := `SELECT ` + patientCols + ` FROM patients WHERE tenant_id = $1 AND id = ANY($2::uuid[])`
	rows, err := db.Conn(ctx, s.pool).Query(ctx, query, tenantID, raw)
	if err != nil {
		return nil, fmt.Errorf("get patients: %w", err)
	}
	found, err := collectPatients(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]models.Patient, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	ordered := make([]models.Patient, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
			delete(byID, id)
		}
	}
	return ordered, nil
}

func (s *PatientStore) RecordVisit(ctx context.Context, tenantID, patientID uuid.UUID, visit time.Time) error {
	query := `
		UPDATE patients SET last_visit = $3, visit_count = visit_count + 1
		WHERE id = $1 AND tenant_id = $2`

	if _, err := db.Conn(ctx, s.pool).Exec(ctx, query, patientID, tenantID, visit); err != nil {
		return fmt.Errorf("record visit: %w", err)
	}
	return nil
}

func (s *PatientStore) ListUnlinked(ctx context.Context, tenantID uuid.UUID) ([]models.Patient, error) {
	query := `
		SELECT ` + patientCols + ` FROM patients p
		WHERE p.tenant_id = $1 AND NOT EXISTS (
			SELECT 1 FROM doctor_patient_links l
			WHERE l.tenant_id = p.tenant_id AND l.patient_id = p.id
		)
		ORDER BY p.name`

	rows, err := db.Conn(ctx, s.pool).Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list unlinked patients: %w", err)
	}
	return collectPatients(rows)
}
