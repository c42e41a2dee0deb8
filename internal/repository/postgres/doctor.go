package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/medroster/internal/db"
	"github.com/lalith-99/medroster/internal/models"
)

type DoctorStore struct {
	pool  *pgxpool.Pool
	links *LinkageStore
}

func NewDoctorStore(pool *pgxpool.Pool) *DoctorStore {
	return &DoctorStore{pool: pool, links: NewLinkageStore(pool)}
}

func (s *DoctorStore) Create(ctx context.Context, d *models.Doctor) error {
	if d.Status == "" {
		d.Status = "active"
	}
	query := `
		INSERT INTO doctors (tenant_id, name, email, specialty, status, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, created_at`

	err := db.Conn(ctx, s.pool).QueryRow(ctx, query, d.TenantID, d.Name, d.Email, d.Specialty, d.Status).Scan(
		&d.ID,
		&d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert doctor: %w", err)
	}
	d.LinkedPatients = make([]uuid.UUID, 0)
	return nil
}

func (s *DoctorStore) GetByID(ctx context.Context, tenantID, doctorID uuid.UUID) (*models.Doctor, error) {
	query := `
		SELECT id, tenant_id, name, email, specialty, status, created_at
		FROM doctors
		WHERE id = $1 AND tenant_id = $2`

	var d models.Doctor
	err := db.Conn(ctx, s.pool).QueryRow(ctx, query, doctorID, tenantID).Scan(
		&d.ID,
		&d.TenantID,
		&d.Name,
		&d.Email,
		&d.Specialty,
		&d.Status,
		&d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get doctor: %w", err)
	}

	d.LinkedPatients, err = s.links.ListPatientIDs(ctx, tenantID, doctorID)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// List omits LinkedPatients; fetch a single doctor to see its edges.
func (s *DoctorStore) List(ctx context.Context, tenantID uuid.UUID) ([]models.Doctor, error) {
	query := `
		SELECT id, tenant_id, name, email, specialty, status, created_at
		FROM doctors
		WHERE tenant_id = $1
		ORDER BY name`

	rows, err := db.Conn(ctx, s.pool).Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	defer rows.Close()

	doctors := make([]models.Doctor, 0)
	for rows.Next() {
		var d models.Doctor
		if err := rows.Scan(
			&d.ID,
			&d.TenantID,
			&d.Name,
			&d.Email,
			&d.Specialty,
			&d.Status,
			&d.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan doctor: %w", err)
		}
		doctors = append(doctors, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate doctors: %w", err)
	}
	return doctors, nil
}
