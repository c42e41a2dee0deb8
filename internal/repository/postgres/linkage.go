package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/medroster/internal/db"
)

type LinkageStore struct {
	pool *pgxpool.Pool
}

func NewLinkageStore(pool *pgxpool.Pool) *LinkageStore {
	return &LinkageStore{pool: pool}
}

// Link is idempotent: an existing edge is left untouched and its link
// order is preserved.
func (s *LinkageStore) Link(ctx context.Context, tenantID, doctorID, patientID uuid.UUID) (bool, error) {
	query := `
		INSERT INTO doctor_patient_links (tenant_id, doctor_id, patient_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, doctor_id, patient_id) DO NOTHING`

	tag, err := db.Conn(ctx, s.pool).Exec(ctx, query, tenantID, doctorID, patientID)
	if err != nil {
		return false, fmt.Errorf("link patient: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *LinkageStore) Unlink(ctx context.Context, tenantID, doctorID, patientID uuid.UUID) (bool, error) {
	query := `
		DELETE FROM doctor_patient_links
		WHERE tenant_id = $1 AND doctor_id = $2 AND patient_id = $3`

	tag, err := db.Conn(ctx, s.pool).Exec(ctx, query, tenantID, doctorID, patientID)
	if err != nil {
		return false, fmt.Errorf("unlink patient: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *LinkageStore) IsLinked(ctx context.Context, tenantID, doctorID, patientID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM doctor_patient_links
			WHERE tenant_id = $1 AND doctor_id = $2 AND patient_id = $3
		)`

	var exists bool
	err := db.Conn(ctx, s.pool).QueryRow(ctx, query, tenantID, doctorID, patientID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check linkage: %w", err)
	}
	return exists, nil
}

func (s *LinkageStore) ListPatientIDs(ctx context.Context, tenantID, doctorID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT patient_id FROM doctor_patient_links
		WHERE tenant_id = $1 AND doctor_id = $2
		ORDER BY seq`

	rows, err := db.Conn(ctx, s.pool).Query(ctx, query, tenantID, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list linked patients: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan linked patient: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate linked patients: %w", err)
	}
	return ids, nil
}
