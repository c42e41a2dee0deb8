package postgres

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/medroster/internal/db"
	"github.com/lalith-99/medroster/internal/models"
	"github.com/lalith-99/medroster/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// These tests talk to a real Postgres and run only when
// MEDROSTER_TEST_DATABASE_URL points at a scratch database.
func testStores(t *testing.T) (*Stores, *db.DB) {
	t.Helper()
	url := os.Getenv("MEDROSTER_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("MEDROSTER_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	database, err := db.New(ctx, url, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(database.Close)

	_, err = database.Migrate(ctx)
	require.NoError(t, err)
	return NewStores(database.Pool()), database
}

type pgFixture struct {
	stores  *Stores
	tenant  uuid.UUID
	doctor  uuid.UUID
	patient uuid.UUID
}

func newPGFixture(t *testing.T) *pgFixture {
	t.Helper()
	stores, _ := testStores(t)
	ctx := context.Background()

	tenant, err := stores.Tenants.Create(ctx, "pg-test-"+uuid.NewString())
	require.NoError(t, err)
	d := &models.Doctor{TenantID: tenant.ID, Name: "Dr. Rao"}
	require.NoError(t, stores.Doctors.Create(ctx, d))
	p := &models.Patient{TenantID: tenant.ID, Name: "Asha"}
	require.NoError(t, stores.Patients.Create(ctx, p))
	return &pgFixture{stores: stores, tenant: tenant.ID, doctor: d.ID, patient: p.ID}
}

func (f *pgFixture) appt(slot string, status models.AppointmentStatus) *models.Appointment {
	return &models.Appointment{
		TenantID:  f.tenant,
		DoctorID:  f.doctor,
		PatientID: f.patient,
		Date:      time.Date(2025, 9, 22, 0, 0, 0, 0, time.UTC),
		TimeSlot:  slot,
		Status:    status,
		Mode:      models.ModeInPerson,
	}
}

func TestHoldsSlotClauseMatchesIndex(t *testing.T) {
	migrations, err := db.LoadMigrations()
	require.NoError(t, err)

	var found bool
	for _, m := range migrations {
		if strings.Contains(m.SQL, "uq_appointments_slot") {
			found = true
			assert.Contains(t, m.SQL, "WHERE "+holdsSlotClause)
		}
	}
	assert.True(t, found, "no migration defines uq_appointments_slot")
}

func TestSlotIndexRejectsSecondHolder(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()

	require.NoError(t, f.stores.Appointments.Create(ctx, f.appt("10:00", models.StatusCancelled)))
	require.NoError(t, f.stores.Appointments.Create(ctx, f.appt(models.SentinelValue, models.StatusUnlinked)))
	first := f.appt("10:00", models.StatusScheduled)
	require.NoError(t, f.stores.Appointments.Create(ctx, first))

	err := f.stores.Appointments.Create(ctx, f.appt("10:00", models.StatusRescheduled))
	assert.ErrorIs(t, err, repository.ErrSlotTaken)

	holder, err := f.stores.Appointments.FindSlotHolder(ctx, f.tenant, f.doctor, first.Date, "10:00")
	require.NoError(t, err)
	require.NotNil(t, holder)
	assert.Equal(t, first.ID, holder.ID)

	held, err := f.stores.Appointments.ListHeldSlots(ctx, f.tenant, f.doctor, first.Date)
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00"}, held)

	// Moving onto a held slot fails the same way.
	other := f.appt("10:30", models.StatusScheduled)
	require.NoError(t, f.stores.Appointments.Create(ctx, other))
	other.TimeSlot = "10:00"
	assert.ErrorIs(t, f.stores.Appointments.Update(ctx, other), repository.ErrSlotTaken)
}

func TestCreatePlaceholderRace(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := f.stores.Appointments.CreatePlaceholder(ctx, f.appt(models.SentinelValue, models.StatusLinked))
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, created)

	pair, err := f.stores.Appointments.ListByPair(ctx, f.tenant, f.doctor, f.patient)
	require.NoError(t, err)
	require.Len(t, pair, 1)
	assert.Equal(t, models.StatusLinked, pair[0].Status)
}

func TestCreatePlaceholderInsideTransaction(t *testing.T) {
	f := newPGFixture(t)
	_, database := testStores(t)
	ctx := context.Background()

	_, err := f.stores.Appointments.CreatePlaceholder(ctx, f.appt(models.SentinelValue, models.StatusLinked))
	require.NoError(t, err)

	// A conflicting insert must not poison the transaction.
	err = db.NewTxManager(database.Pool()).WithinTx(ctx, func(ctx context.Context) error {
		ok, err := f.stores.Appointments.CreatePlaceholder(ctx, f.appt(models.SentinelValue, models.StatusLinked))
		require.NoError(t, err)
		assert.False(t, ok)
		_, err = f.stores.Links.Link(ctx, f.tenant, f.doctor, f.patient)
		return err
	})
	require.NoError(t, err)

	linked, err := f.stores.Links.IsLinked(ctx, f.tenant, f.doctor, f.patient)
	require.NoError(t, err)
	assert.True(t, linked)
}
