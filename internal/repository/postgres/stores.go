package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/medroster/internal/repository"
)

var (
	_ repository.TenantRepository      = (*TenantStore)(nil)
	_ repository.DoctorRepository      = (*DoctorStore)(nil)
	_ repository.PatientRepository     = (*PatientStore)(nil)
	_ repository.LinkageRepository     = (*LinkageStore)(nil)
	_ repository.RosterRepository      = (*RosterStore)(nil)
	_ repository.AppointmentRepository = (*AppointmentStore)(nil)
	_ repository.AuditRepository       = (*AuditStore)(nil)
)

// Stores bundles every Postgres repository over one pool.
type Stores struct {
	Tenants      *TenantStore
	Doctors      *DoctorStore
	Patients     *PatientStore
	Links        *LinkageStore
	Rosters      *RosterStore
	Appointments *AppointmentStore
	Audit        *AuditStore
}

func NewStores(pool *pgxpool.Pool) *Stores {
	return &Stores{
		Tenants:      NewTenantStore(pool),
		Doctors:      NewDoctorStore(pool),
		Patients:     NewPatientStore(pool),
		Links:        NewLinkageStore(pool),
		Rosters:      NewRosterStore(pool),
		Appointments: NewAppointmentStore(pool),
		Audit:        NewAuditStore(pool),
	}
}
