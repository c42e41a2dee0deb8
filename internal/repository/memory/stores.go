package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/medroster/internal/models"
	"github.com/lalith-99/medroster/internal/repository"
)

type TenantStore struct{ db *DB }

func (s *TenantStore) Create(_ context.Context, name string) (*models.Tenant, error) {
	st := s.db.lock()
	defer s.db.unlock()

	t := models.Tenant{ID: uuid.New(), Name: name, Status: models.TenantActive, CreatedAt: time.Now().UTC()}
	st.tenants[t.ID] = t
	return &t, nil
}

func (s *TenantStore) GetByID(_ context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	st := s.db.lock()
	defer s.db.unlock()

	t, ok := st.tenants[tenantID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// SetStatus is a test helper for suspending a tenant.
func (s *TenantStore) SetStatus(tenantID uuid.UUID, status string) {
	st := s.db.lock()
	defer s.db.unlock()

	if t, ok := st.tenants[tenantID]; ok {
		t.Status = status
		st.tenants[tenantID] = t
	}
}

type DoctorStore struct{ db *DB }

func (s *DoctorStore) Create(_ context.Context, d *models.Doctor) error {
	st := s.db.lock()
	defer s.db.unlock()

	d.ID = uuid.New()
	d.CreatedAt = time.Now().UTC()
	if d.Status == "" {
		d.Status = "active"
	}
	d.LinkedPatients = make([]uuid.UUID, 0)
	st.doctors[d.ID] = *d
	return nil
}

func (s *DoctorStore) GetByID(_ context.Context, tenantID, doctorID uuid.UUID) (*models.Doctor, error) {
	st := s.db.lock()
	defer s.db.unlock()

	d, ok := st.doctors[doctorID]
	if !ok || d.TenantID != tenantID {
		return nil, nil
	}
	d.LinkedPatients = linkedPatients(st, tenantID, doctorID)
	return &d, nil
}

func (s *DoctorStore) List(_ context.Context, tenantID uuid.UUID) ([]models.Doctor, error) {
	st := s.db.lock()
	defer s.db.unlock()

	doctors := make([]models.Doctor, 0)
	for _, d := range st.doctors {
		if d.TenantID == tenantID {
			d.LinkedPatients = nil
			doctors = append(doctors, d)
		}
	}
	sort.Slice(doctors, func(i, j int) bool { return doctors[i].Name < doctors[j].Name })
	return doctors, nil
}

type PatientStore struct{ db *DB }

func (s *PatientStore) Create(_ context.Context, p *models.Patient) error {
	st := s.db.lock()
	defer s.db.unlock()

	p.ID = uuid.New()
	p.CreatedAt = time.Now().UTC()
	st.patients[p.ID] = *p
	return nil
}

func (s *PatientStore) GetByID(_ context.Context, tenantID, patientID uuid.UUID) (*models.Patient, error) {
	st := s.db.lock()
	defer s.db.unlock()

	p, ok := st.patients[patientID]
	if !ok || p.TenantID != tenantID {
		return nil, nil
	}
	return &p, nil
}

func (s *PatientStore) GetMany(_ context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]models.Patient, error) {
	st := s.db.lock()
	defer s.db.unlock()

	seen := make(map[uuid.UUID]bool, len(ids))
	patients := make([]models.Patient, 0, len(ids))
	for _, id := range ids {
		p, ok := st.patients[id]
		if !ok || p.TenantID != tenantID || seen[id] {
			continue
		}
		seen[id] = true
		patients = append(patients, p)
	}
	return patients, nil
}

func (s *PatientStore) RecordVisit(_ context.Context, tenantID, patientID uuid.UUID, visit time.Time) error {
	st := s.db.lock()
	defer s.db.unlock()

	p, ok := st.patients[patientID]
	if !ok || p.TenantID != tenantID {
		return nil
	}
	v := visit
	p.LastVisit = &v
	p.VisitCount++
	st.patients[patientID] = p
	return nil
}

func (s *PatientStore) ListUnlinked(_ context.Context, tenantID uuid.UUID) ([]models.Patient, error) {
	st := s.db.lock()
	defer s.db.unlock()

	linked := make(map[uuid.UUID]bool)
	for _, e := range st.links {
		if e.TenantID == tenantID {
			linked[e.PatientID] = true
		}
	}
	patients := make([]models.Patient, 0)
	for _, p := range st.patients {
		if p.TenantID == tenantID && !linked[p.ID] {
			patients = append(patients, p)
		}
	}
	sort.Slice(patients, func(i, j int) bool { return patients[i].Name < patients[j].Name })
	return patients, nil
}

type LinkageStore struct{ db *DB }

func linkIndex(st *state, tenantID, doctorID, patientID uuid.UUID) int {
	return slices.IndexFunc(st.links, func(e models.LinkEdge) bool {
		return e.TenantID == tenantID && e.DoctorID == doctorID && e.PatientID == patientID
	})
}

func linkedPatients(st *state, tenantID, doctorID uuid.UUID) []uuid.UUID {
	ids := make([]uuid.UUID, 0)
	for _, e := range st.links {
		if e.TenantID == tenantID && e.DoctorID == doctorID {
			ids = append(ids, e.PatientID)
		}
	}
	return ids
}

func (s *LinkageStore) Link(_ context.Context, tenantID, doctorID, patientID uuid.UUID) (bool, error) {
	st := s.db.lock()
	defer s.db.unlock()

	if linkIndex(st, tenantID, doctorID, patientID) >= 0 {
		return false, nil
	}
	st.links = append(st.links, models.LinkEdge{
		TenantID:  tenantID,
		DoctorID:  doctorID,
		PatientID: patientID,
		LinkedAt:  time.Now().UTC(),
	})
	return true, nil
}

func (s *LinkageStore) Unlink(_ context.Context, tenantID, doctorID, patientID uuid.UUID) (bool, error) {
	st := s.db.lock()
	defer s.db.unlock()

	i := linkIndex(st, tenantID, doctorID, patientID)
	if i < 0 {
		return false, nil
	}
	st.links = slices.Delete(st.links, i, i+1)
	return true, nil
}

func (s *LinkageStore) IsLinked(_ context.Context, tenantID, doctorID, patientID uuid.UUID) (bool, error) {
	st := s.db.lock()
	defer s.db.unlock()

	return linkIndex(st, tenantID, doctorID, patientID) >= 0, nil
}

func (s *LinkageStore) ListPatientIDs(_ context.Context, tenantID, doctorID uuid.UUID) ([]uuid.UUID, error) {
	st := s.db.lock()
	defer s.db.unlock()

	return linkedPatients(st, tenantID, doctorID), nil
}

type RosterStore struct{ db *DB }

func (s *RosterStore) insert(st *state, e *models.RosterEntry) {
	e.ID = uuid.New()
	e.CreatedAt = time.Now().UTC()
	if e.Status == "" {
		e.Status = models.RosterActive
	}
	e.TimeSlots = slices.Clone(e.TimeSlots)
	if e.TimeSlots == nil {
		e.TimeSlots = make([]string, 0)
	}
	st.rosters[e.ID] = *e
}

func (s *RosterStore) Create(_ context.Context, e *models.RosterEntry) error {
	st := s.db.lock()
	defer s.db.unlock()

	s.insert(st, e)
	return nil
}

func (s *RosterStore) CreateMany(_ context.Context, entries []models.RosterEntry) error {
	st := s.db.lock()
	defer s.db.unlock()

	for i := range entries {
		s.insert(st, &entries[i])
	}
	return nil
}

func (s *RosterStore) FindActive(_ context.Context, tenantID, staffID uuid.UUID, date time.Time) (*models.RosterEntry, error) {
	st := s.db.lock()
	defer s.db.unlock()

	var found *models.RosterEntry
	for _, e := range st.rosters {
		if e.TenantID != tenantID || e.StaffID != staffID || !e.Date.Equal(date) || e.Status != models.RosterActive {
			continue
		}
		if found == nil || e.StartTime < found.StartTime {
			found = &e
		}
	}
	if found != nil {
		found.TimeSlots = slices.Clone(found.TimeSlots)
	}
	return found, nil
}

func (s *RosterStore) SetTimeSlots(_ context.Context, tenantID, entryID uuid.UUID, slots []string) error {
	st := s.db.lock()
	defer s.db.unlock()

	e, ok := st.rosters[entryID]
	if !ok || e.TenantID != tenantID {
		return nil
	}
	e.TimeSlots = slices.Clone(slots)
	st.rosters[entryID] = e
	return nil
}

func (s *RosterStore) ListByStaff(_ context.Context, tenantID, staffID uuid.UUID, from, to time.Time) ([]models.RosterEntry, error) {
	st := s.db.lock()
	defer s.db.unlock()

	entries := make([]models.RosterEntry, 0)
	for _, e := range st.rosters {
		if e.TenantID != tenantID || e.StaffID != staffID || e.Date.Before(from) || e.Date.After(to) {
			continue
		}
		e.TimeSlots = slices.Clone(e.TimeSlots)
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		return entries[i].StartTime < entries[j].StartTime
	})
	return entries, nil
}

type AppointmentStore struct{ db *DB }

// slotClash reports whether a would share a held slot with another
// appointment, the same rule as uq_appointments_slot.
func slotClash(st *state, a models.Appointment) bool {
	if !a.Status.HoldsSlot() || a.TimeSlot == models.SentinelValue {
		return false
	}
	for id, r := range st.appointments {
		o := r.appt
		if id == a.ID || !o.Status.HoldsSlot() || o.TimeSlot == models.SentinelValue {
			continue
		}
		if o.TenantID == a.TenantID && o.DoctorID == a.DoctorID && o.Date.Equal(a.Date) && o.TimeSlot == a.TimeSlot {
			return true
		}
	}
	return false
}

func (s *AppointmentStore) Create(_ context.Context, a *models.Appointment) error {
	st := s.db.lock()
	defer s.db.unlock()

	a.ID = uuid.New()
	if slotClash(st, *a) {
		a.ID = uuid.Nil
		return repository.ErrSlotTaken
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	st.appointments[a.ID] = apptRecord{appt: *a, seq: st.next()}
	return nil
}

func (s *AppointmentStore) CreatePlaceholder(_ context.Context, a *models.Appointment) (bool, error) {
	st := s.db.lock()
	defer s.db.unlock()

	for _, r := range st.appointments {
		o := r.appt
		if o.TenantID == a.TenantID && o.DoctorID == a.DoctorID && o.PatientID == a.PatientID && o.Status == models.StatusLinked {
			return false, nil
		}
	}
	a.ID = uuid.New()
	a.Status = models.StatusLinked
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	st.appointments[a.ID] = apptRecord{appt: *a, seq: st.next()}
	return true, nil
}

func (s *AppointmentStore) GetByID(_ context.Context, tenantID, appointmentID uuid.UUID) (*models.Appointment, error) {
	st := s.db.lock()
	defer s.db.unlock()

	r, ok := st.appointments[appointmentID]
	if !ok || r.appt.TenantID != tenantID {
		return nil, nil
	}
	a := r.appt
	return &a, nil
}

func (s *AppointmentStore) Update(_ context.Context, a *models.Appointment) error {
	st := s.db.lock()
	defer s.db.unlock()

	r, ok := st.appointments[a.ID]
	if !ok || r.appt.TenantID != a.TenantID {
		return fmt.Errorf("update appointment %s: not found", a.ID)
	}
	if slotClash(st, *a) {
		return repository.ErrSlotTaken
	}
	a.UpdatedAt = time.Now().UTC()
	r.appt = *a
	st.appointments[a.ID] = r
	return nil
}

func (s *AppointmentStore) Delete(_ context.Context, tenantID, appointmentID uuid.UUID) (bool, error) {
	st := s.db.lock()
	defer s.db.unlock()

	r, ok := st.appointments[appointmentID]
	if !ok || r.appt.TenantID != tenantID {
		return false, nil
	}
	delete(st.appointments, appointmentID)
	return true, nil
}

func (s *AppointmentStore) FindSlotHolder(_ context.Context, tenantID, doctorID uuid.UUID, date time.Time, slot string) (*models.Appointment, error) {
	st := s.db.lock()
	defer s.db.unlock()

	for _, r := range st.appointments {
		a := r.appt
		if a.TenantID == tenantID && a.DoctorID == doctorID && a.Date.Equal(date) && a.TimeSlot == slot &&
			a.Status.HoldsSlot() && a.TimeSlot != models.SentinelValue {
			return &a, nil
		}
	}
	return nil, nil
}

func (s *AppointmentStore) ListHeldSlots(_ context.Context, tenantID, doctorID uuid.UUID, date time.Time) ([]string, error) {
	st := s.db.lock()
	defer s.db.unlock()

	held := make([]string, 0)
	for _, r := range st.appointments {
		a := r.appt
		if a.TenantID == tenantID && a.DoctorID == doctorID && a.Date.Equal(date) &&
			a.Status.HoldsSlot() && a.TimeSlot != models.SentinelValue {
			held = append(held, a.TimeSlot)
		}
	}
	sort.Strings(held)
	return held, nil
}

func (s *AppointmentStore) collect(st *state, keep func(models.Appointment) bool) []apptRecord {
	out := make([]apptRecord, 0)
	for _, r := range st.appointments {
		if keep(r.appt) {
			out = append(out, r)
		}
	}
	return out
}

func unwrap(records []apptRecord) []models.Appointment {
	out := make([]models.Appointment, len(records))
	for i, r := range records {
		out[i] = r.appt
	}
	return out
}

func byDateSlot(records []apptRecord) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i].appt, records[j].appt
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.TimeSlot != b.TimeSlot {
			return a.TimeSlot < b.TimeSlot
		}
		return records[i].seq < records[j].seq
	})
}

func (s *AppointmentStore) ListByPatient(_ context.Context, tenantID, patientID uuid.UUID) ([]models.Appointment, error) {
	st := s.db.lock()
	defer s.db.unlock()

	records := s.collect(st, func(a models.Appointment) bool {
		return a.TenantID == tenantID && a.PatientID == patientID
	})
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i].appt, records[j].appt
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return records[i].seq > records[j].seq
	})
	return unwrap(records), nil
}

func (s *AppointmentStore) ListByPair(_ context.Context, tenantID, doctorID, patientID uuid.UUID) ([]models.Appointment, error) {
	st := s.db.lock()
	defer s.db.unlock()

	records := s.collect(st, func(a models.Appointment) bool {
		return a.TenantID == tenantID && a.DoctorID == doctorID && a.PatientID == patientID
	})
	byDateSlot(records)
	return unwrap(records), nil
}

func (s *AppointmentStore) List(_ context.Context, tenantID uuid.UUID, f repository.AppointmentFilter) ([]models.Appointment, error) {
	st := s.db.lock()
	defer s.db.unlock()

	records := s.collect(st, func(a models.Appointment) bool {
		switch {
		case a.TenantID != tenantID:
			return false
		case f.DoctorID != uuid.Nil && a.DoctorID != f.DoctorID:
			return false
		case f.PatientID != uuid.Nil && a.PatientID != f.PatientID:
			return false
		case !f.From.IsZero() && a.Date.Before(f.From):
			return false
		case !f.To.IsZero() && a.Date.After(f.To):
			return false
		case f.Status != "" && a.Status != f.Status:
			return false
		}
		return true
	})
	byDateSlot(records)
	return unwrap(records), nil
}

// mutate applies change to every record matching keep, all or nothing:
// if any changed record would clash on a slot, nothing is written.
func (s *AppointmentStore) mutate(st *state, keep func(models.Appointment) bool, change func(*models.Appointment)) (int64, error) {
	staged := make(map[uuid.UUID]apptRecord)
	for id, r := range st.appointments {
		if keep(r.appt) {
			change(&r.appt)
			r.appt.UpdatedAt = time.Now().UTC()
			staged[id] = r
		}
	}

	trial := st.clone()
	for id, r := range staged {
		trial.appointments[id] = r
	}
	for _, r := range staged {
		if slotClash(trial, r.appt) {
			return 0, repository.ErrSlotTaken
		}
	}
	for id, r := range staged {
		st.appointments[id] = r
	}
	return int64(len(staged)), nil
}

func (s *AppointmentStore) ReassignDoctor(_ context.Context, tenantID, patientID, fromDoctorID, toDoctorID uuid.UUID) (int64, error) {
	st := s.db.lock()
	defer s.db.unlock()

	return s.mutate(st,
		func(a models.Appointment) bool {
			return a.TenantID == tenantID && a.PatientID == patientID && a.DoctorID == fromDoctorID
		},
		func(a *models.Appointment) { a.DoctorID = toDoctorID },
	)
}

func (s *AppointmentStore) MarkPairStatus(_ context.Context, tenantID, doctorID, patientID uuid.UUID, from []models.AppointmentStatus, to models.AppointmentStatus) (int64, error) {
	st := s.db.lock()
	defer s.db.unlock()

	return s.mutate(st,
		func(a models.Appointment) bool {
			return a.TenantID == tenantID && a.DoctorID == doctorID && a.PatientID == patientID &&
				slices.Contains(from, a.Status)
		},
		func(a *models.Appointment) { a.Status = to },
	)
}

func (s *AppointmentStore) ListPendingBefore(_ context.Context, tenantID uuid.UUID, cutoff time.Time) ([]models.Appointment, error) {
	st := s.db.lock()
	defer s.db.unlock()

	records := s.collect(st, func(a models.Appointment) bool {
		return (tenantID == uuid.Nil || a.TenantID == tenantID) && a.Status.Pending() && !a.Date.After(cutoff)
	})
	byDateSlot(records)
	return unwrap(records), nil
}

func (s *AppointmentStore) TransitionStatus(_ context.Context, tenantID, appointmentID uuid.UUID, from []models.AppointmentStatus, to models.AppointmentStatus) (bool, error) {
	st := s.db.lock()
	defer s.db.unlock()

	n, err := s.mutate(st,
		func(a models.Appointment) bool {
			return a.ID == appointmentID && a.TenantID == tenantID && slices.Contains(from, a.Status)
		},
		func(a *models.Appointment) { a.Status = to },
	)
	return n > 0, err
}

type AuditStore struct{ db *DB }

func (s *AuditStore) Append(_ context.Context, e *models.AuditEntry) error {
	st := s.db.lock()
	defer s.db.unlock()

	e.ID = st.next()
	st.audit = append(st.audit, *e)
	return nil
}

func (s *AuditStore) ListBySubject(_ context.Context, tenantID, subjectID uuid.UUID, limit int) ([]models.AuditEntry, error) {
	st := s.db.lock()
	defer s.db.unlock()

	entries := make([]models.AuditEntry, 0)
	for i := len(st.audit) - 1; i >= 0 && (limit <= 0 || len(entries) < limit); i-- {
		e := st.audit[i]
		if e.TenantID == tenantID && e.SubjectID == subjectID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}
