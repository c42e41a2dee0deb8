// Package notify announces appointment events to tenant observers. Delivery
// is best-effort and at-least-once; a publish with no subscribers is fine.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventNewAppointment is sent whenever an appointment is created, by
// booking or by linkage.
const EventNewAppointment = "newAppointment"

const channelPrefix = "appointments:"

// Event is the wire shape on every transport.
type Event struct {
	ID       uuid.UUID       `json:"id"`
	Type     string          `json:"event"`
	TenantID uuid.UUID       `json:"tenant_id"`
	At       time.Time       `json:"at"`
	Payload  json.RawMessage `json:"payload"`
}

type Bus interface {
	Publish(ctx context.Context, tenantID uuid.UUID, event string, payload any) error
}

// Channel is the pub/sub channel, and websocket room, of a tenant.
func Channel(tenantID uuid.UUID) string {
	return channelPrefix + tenantID.String()
}

func encode(tenantID uuid.UUID, event string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	data, err := json.Marshal(Event{
		ID:       uuid.New(),
		Type:     event,
		TenantID: tenantID,
		At:       time.Now().UTC(),
		Payload:  raw,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", event, err)
	}
	return data, nil
}

// Fanout publishes to every bus and never fails: a broken transport is
// logged so the mutation that triggered the event still succeeds.
type Fanout struct {
	buses  []Bus
	logger *zap.Logger
}

func NewFanout(logger *zap.Logger, buses ...Bus) *Fanout {
	return &Fanout{buses: buses, logger: logger}
}

func (f *Fanout) Publish(ctx context.Context, tenantID uuid.UUID, event string, payload any) error {
	for _, b := range f.buses {
		if err := b.Publish(ctx, tenantID, event, payload); err != nil {
			f.logger.Warn("publish notification",
				zap.String("tenant_id", tenantID.String()),
				zap.String("event", event),
				zap.String("bus", fmt.Sprintf("%T", b)),
				zap.Error(err),
			)
		}
	}
	return nil
}
