// Package memory is an in-process implementation of the repository
// interfaces. It enforces the same tenant scoping and slot uniqueness as
// the Postgres schema and is used by service and handler tests.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/lalith-99/medroster/internal/models"
	"github.com/lalith-99/medroster/internal/repository"
)

var (
	_ repository.Transactor            = (*DB)(nil)
	_ repository.TenantRepository      = (*TenantStore)(nil)
	_ repository.DoctorRepository      = (*DoctorStore)(nil)
	_ repository.PatientRepository     = (*PatientStore)(nil)
	_ repository.LinkageRepository     = (*LinkageStore)(nil)
	_ repository.RosterRepository      = (*RosterStore)(nil)
	_ repository.AppointmentRepository = (*AppointmentStore)(nil)
	_ repository.AuditRepository       = (*AuditStore)(nil)
)

type apptRecord struct {
	appt models.Appointment
	seq  int64
}

type state struct {
	tenants      map[uuid.UUID]models.Tenant
	doctors      map[uuid.UUID]models.Doctor
	patients     map[uuid.UUID]models.Patient
	links        []models.LinkEdge
	rosters      map[uuid.UUID]models.RosterEntry
	appointments map[uuid.UUID]apptRecord
	audit        []models.AuditEntry
	seq          int64
}

func newState() *state {
	return &state{
		tenants:      make(map[uuid.UUID]models.Tenant),
		doctors:      make(map[uuid.UUID]models.Doctor),
		patients:     make(map[uuid.UUID]models.Patient),
		rosters:      make(map[uuid.UUID]models.RosterEntry),
		appointments: make(map[uuid.UUID]apptRecord),
	}
}

// clone copies every container. Records are stored by value and slice
// fields are replaced, never mutated in place, so a shallow copy of each
// map is a complete snapshot.
func (s *state) clone() *state {
	return &state{
		tenants:      maps.Clone(s.tenants),
		doctors:      maps.Clone(s.doctors),
		patients:     maps.Clone(s.patients),
		links:        slices.Clone(s.links),
		rosters:      maps.Clone(s.rosters),
		appointments: maps.Clone(s.appointments),
		audit:        slices.Clone(s.audit),
		seq:          s.seq,
	}
}

func (s *state) next() int64 {
	s.seq++
	return s.seq
}

// DB holds the shared state behind every store.
type DB struct {
	mu   sync.Mutex
	txMu sync.Mutex
	st   *state

	Tenants      *TenantStore
	Doctors      *DoctorStore
	Patients     *PatientStore
	Links        *LinkageStore
	Rosters      *RosterStore
	Appointments *AppointmentStore
	Audit        *AuditStore
}

func New() *DB {
	db := &DB{st: newState()}
	db.Tenants = &TenantStore{db: db}
	db.Doctors = &DoctorStore{db: db}
	db.Patients = &PatientStore{db: db}
	db.Links = &LinkageStore{db: db}
	db.Rosters = &RosterStore{db: db}
	db.Appointments = &AppointmentStore{db: db}
	db.Audit = &AuditStore{db: db}
	return db
}

type txKey struct{}

// WithinTx serializes transactions and restores a snapshot when fn fails.
// Nested calls join the outer transaction.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.Lock()
	snapshot := db.st.clone()
	db.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		db.mu.Lock()
		db.st = snapshot
		db.mu.Unlock()
		return err
	}
	return nil
}

func (db *DB) lock() *state {
	db.mu.Lock()
	return db.st
}

func (db *DB) unlock() {
	db.mu.Unlock()
}
