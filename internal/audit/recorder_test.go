package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/lalith-99/medroster/internal/models"
	"github.com/lalith-99/medroster/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type failingRepo struct{}

func (failingRepo) Append(context.Context, *models.AuditEntry) error {
	return errors.New("disk full")
}

func (failingRepo) ListBySubject(context.Context, uuid.UUID, uuid.UUID, int) ([]models.AuditEntry, error) {
	return nil, nil
}

func TestRecordAppends(t *testing.T) {
	db := memory.New()
	r := NewRecorder(db.Audit, zap.NewNop())
	tenant, subject := uuid.New(), uuid.New()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Record(ctx, tenant, subject, ActionPatientLinked, "admin:x", map[string]any{"patient_id": "p"})

	entries, err := db.Audit.ListBySubject(context.Background(), tenant, subject, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ActionPatientLinked, entries[0].Action)
	assert.Equal(t, "p", entries[0].Context["patient_id"])
}

func TestRecordSwallowsFailures(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := NewRecorder(failingRepo{}, zap.New(core))

	assert.NotPanics(t, func() {
		r.Record(context.Background(), uuid.New(), uuid.New(), ActionAppointmentBooked, "staff:y", nil)
	})
	assert.Equal(t, 1, logs.FilterMessage("audit record failed").Len())
}
