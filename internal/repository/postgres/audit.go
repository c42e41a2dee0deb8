package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/medroster/internal/db"
	"github.com/lalith-99/medroster/internal/models"
)

type AuditStore struct {
	pool *pgxpool.Pool
}

func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// Append uses bigserial ids so ListBySubject can order ties by insertion.
func (s *AuditStore) Append(ctx context.Context, e *models.AuditEntry) error {
	query := `
		INSERT INTO audit_log (tenant_id, subject_id, action, actor, at, context)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := db.Conn(ctx, s.pool).QueryRow(ctx, query,
		e.TenantID, e.SubjectID, e.Action, e.Actor, e.At, e.Context,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *AuditStore) ListBySubject(ctx context.Context, tenantID, subjectID uuid.UUID, limit int) ([]models.AuditEntry, error) {
	query := `
		SELECT id, tenant_id, subject_id, action, actor, at, context
		FROM audit_log
		WHERE tenant_id = $1 AND subject_id = $2
		ORDER BY id DESC
		LIMIT $3`

	rows, err := db.Conn(ctx, s.pool).Query(ctx, query, tenantID, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]models.AuditEntry, 0)
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(
			&e.ID,
			&e.TenantID,
			&e.SubjectID,
			&e.Action,
			&e.Actor,
			&e.At,
			&e.Context,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}
