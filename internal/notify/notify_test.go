package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingBus struct {
	events []string
	err    error
}

func (b *recordingBus) Publish(_ context.Context, _ uuid.UUID, event string, _ any) error {
	b.events = append(b.events, event)
	return b.err
}

func TestFanoutSwallowsFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	broken := &recordingBus{err: errors.New("connection refused")}
	healthy := &recordingBus{}

	f := NewFanout(zap.New(core), broken, healthy)
	err := f.Publish(context.Background(), uuid.New(), EventNewAppointment, map[string]string{"id": "x"})

	require.NoError(t, err)
	assert.Equal(t, []string{EventNewAppointment}, broken.events)
	assert.Equal(t, []string{EventNewAppointment}, healthy.events)
	assert.Equal(t, 1, logs.FilterMessage("publish notification").Len())
}

func TestHubBroadcastIsTenantScoped(t *testing.T) {
	h := NewHub(zap.NewNop())
	tenantA, tenantB := uuid.New(), uuid.New()

	a := NewClient(tenantA, nil)
	b := NewClient(tenantB, nil)
	h.Register(a)
	h.Register(b)
	assert.Equal(t, 1, h.ClientCount(tenantA))

	require.NoError(t, h.Publish(context.Background(), tenantA, EventNewAppointment, map[string]string{"time_slot": "08:30"}))

	select {
	case data := <-a.Send:
		var ev Event
		require.NoError(t, json.Unmarshal(data, &ev))
		assert.Equal(t, EventNewAppointment, ev.Type)
		assert.Equal(t, tenantA, ev.TenantID)
		assert.JSONEq(t, `{"time_slot":"08:30"}`, string(ev.Payload))
	default:
		t.Fatal("tenant A client received nothing")
	}
	assert.Empty(t, b.Send)

	h.Unregister(a)
	h.Unregister(a)
	assert.Equal(t, 0, h.ClientCount(tenantA))
	_, open := <-a.Send
	assert.False(t, open)
}

func TestServeWSDeliversToRoom(t *testing.T) {
	h := NewHub(zap.NewNop())
	tenantID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = h.ServeWS(w, r, tenantID)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return h.ClientCount(tenantID) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, h.Publish(context.Background(), tenantID, EventNewAppointment, map[string]int{"n": 1}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, EventNewAppointment, ev.Type)
	assert.Equal(t, "appointments:"+tenantID.String(), Channel(ev.TenantID))
}

func TestRoutingKey(t *testing.T) {
	id := uuid.MustParse("8f9d3c4e-8b0a-4b7e-9a39-3f1e3c0d2a11")
	assert.Equal(t, "8f9d3c4e-8b0a-4b7e-9a39-3f1e3c0d2a11.newAppointment", RoutingKey(id, EventNewAppointment))
}
