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

const rosterCols = `id, tenant_id, staff_id, date, start_time, end_time, shift_type, location, status, notes,
	time_slots, created_by, created_at`

type RosterStore struct {
	pool *pgxpool.Pool
	tx   *db.TxManager
}

func NewRosterStore(pool *pgxpool.Pool) *RosterStore {
	return &RosterStore{pool: pool, tx: db.NewTxManager(pool)}
}

func scanRoster(row pgx.Row) (*models.RosterEntry, error) {
	var (
		e         models.RosterEntry
		createdBy uuid.NullUUID
	)
	err := row.Scan(
		&e.ID,
		&e.TenantID,
		&e.StaffID,
		&e.Date,
		&e.StartTime,
		&e.EndTime,
		&e.ShiftType,
		&e.Location,
		&e.Status,
		&e.Notes,
		&e.TimeSlots,
		&createdBy,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.CreatedBy = createdBy.UUID
	if e.TimeSlots == nil {
		e.TimeSlots = make([]string, 0)
	}
	return &e, nil
}

func (s *RosterStore) Create(ctx context.Context, e *models.RosterEntry) error {
	if e.Status == "" {
		e.Status = models.RosterActive
	}
	if e.TimeSlots == nil {
		e.TimeSlots = make([]string, 0)
	}
	query := `
		INSERT INTO roster_entries (tenant_id, staff_id, date, start_time, end_time, shift_type, location,
			status, notes, time_slots, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		RETURNING id, created_at`

	err := db.Conn(ctx, s.pool).QueryRow(ctx, query,
		e.TenantID, e.StaffID, e.Date, e.StartTime, e.EndTime, e.ShiftType, e.Location,
		e.Status, e.Notes, e.TimeSlots, nullable(e.CreatedBy),
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert roster entry: %w", err)
	}
	return nil
}

func (s *RosterStore) CreateMany(ctx context.Context, entries []models.RosterEntry) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		for i := range entries {
			if err := s.Create(ctx, &entries[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// FindActive picks the earliest-starting active shift when a staff member
// has more than one on the date.
func (s *RosterStore) FindActive(ctx context.Context, tenantID, staffID uuid.UUID, date time.Time) (*models.RosterEntry, error) {
	query := `SELECT ` + rosterCols + ` FROM roster_entries
		WHERE tenant_id = $1 AND staff_id = $2 AND date = $3 AND status = 'active'
		ORDER BY start_time
		LIMIT 1`

	e, err := scanRoster(db.Conn(ctx, s.pool).QueryRow(ctx, query, tenantID, staffID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active roster: %w", err)
	}
	return e, nil
}

func (s *RosterStore) SetTimeSlots(ctx context.Context, tenantID, entryID uuid.UUID, slots []string) error {
	query := `UPDATE roster_entries SET time_slots = $3 WHERE id = $1 AND tenant_id = $2`

	if _, err := db.Conn(ctx, s.pool).Exec(ctx, query, entryID, tenantID, slots); err != nil {
		return fmt.Errorf("set roster slots: %w", err)
	}
	return nil
}

func (s *RosterStore) ListByStaff(ctx context.Context, tenantID, staffID uuid.UUID, from, to time.Time) ([]models.RosterEntry, error) {
	query := `SELECT ` + rosterCols + ` FROM roster_entries
		WHERE tenant_id = $1 AND staff_id = $2 AND date >= $3 AND date <= $4
		ORDER BY date, start_time`

	rows, err := db.Conn(ctx, s.pool).Query(ctx, query, tenantID, staffID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	defer rows.Close()

	entries := make([]models.RosterEntry, 0)
	for rows.Next() {
		e, err := scanRoster(rows)
		if err != nil {
			return nil, fmt.Errorf("scan roster entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roster: %w", err)
	}
	return entries, nil
}
