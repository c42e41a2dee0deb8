package notify

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

// Conn is the part of *websocket.Conn the pumps use.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Client is one websocket connection. Its room is fixed at registration
// to the tenant of the authenticated caller.
type Client struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Send     chan []byte
	conn     Conn
}

func NewClient(tenantID uuid.UUID, conn Conn) *Client {
	return &Client{
		ID:       uuid.New(),
		TenantID: tenantID,
		Send:     make(chan []byte, sendBuffer),
		conn:     conn,
	}
}

// Hub tracks connected clients by tenant room and delivers events to them.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[uuid.UUID]map[*Client]struct{}
	logger *zap.Logger

	upgrader websocket.Upgrader
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		rooms:  make(map[uuid.UUID]map[*Client]struct{}),
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Tokens, not cookies, authenticate the upgrade.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[c.TenantID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[c.TenantID] = room
	}
	room[c] = struct{}{}
}

// Unregister removes c and closes its Send channel. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[c.TenantID]
	if !ok {
		return
	}
	if _, ok := room[c]; !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, c.TenantID)
	}
	close(c.Send)
}

// Broadcast queues data for every client in the tenant's room. Slow
// clients whose buffer is full miss the message.
func (h *Hub) Broadcast(tenantID uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[tenantID] {
		select {
		case c.Send <- data:
		default:
			h.logger.Debug("websocket client buffer full",
				zap.String("client_id", c.ID.String()),
				zap.String("tenant_id", tenantID.String()),
			)
		}
	}
}

// Publish delivers to local clients only. It lets a single instance run
// without Redis.
func (h *Hub) Publish(_ context.Context, tenantID uuid.UUID, event string, payload any) error {
	data, err := encode(tenantID, event, payload)
	if err != nil {
		return err
	}
	h.Broadcast(tenantID, data)
	return nil
}

func (h *Hub) ClientCount(tenantID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[tenantID])
}

// Run relays every tenant channel from Redis into the matching room until
// ctx is cancelled.
func (h *Hub) Run(ctx context.Context, client *redis.Client) error {
	sub := client.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	h.logger.Info("websocket hub subscribed", zap.String("pattern", channelPrefix+"*"))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			tenantID, err := uuid.Parse(strings.TrimPrefix(msg.Channel, channelPrefix))
			if err != nil {
				h.logger.Warn("ignoring message on malformed channel", zap.String("channel", msg.Channel))
				continue
			}
			h.Broadcast(tenantID, []byte(msg.Payload))
		}
	}
}

// ServeWS upgrades the request and attaches the connection to the
// tenant's room. The caller has already authenticated the request.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, tenantID uuid.UUID) error {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := NewClient(tenantID, ws)
	h.Register(c)
	h.logger.Debug("websocket client connected",
		zap.String("client_id", c.ID.String()),
		zap.String("tenant_id", tenantID.String()),
	)

	go h.writePump(c)
	go h.readPump(c)
	return nil
}

// readPump discards inbound messages; it exists to process pongs and to
// notice the peer going away.
func (h *Hub) readPump(c *Client) {
	defer func() {
		h.Unregister(c)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
