// Package realtime pushes targeted events to live websocket connections.
//
// Nothing sent through the hub is persisted. Events for users without a live
// connection in this process are dropped.
package realtime

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/lealre/community-backend/internal/logx"
	"github.com/lealre/community-backend/internal/metrics"
	"github.com/lealre/community-backend/internal/presence"
	"github.com/lealre/community-backend/internal/services/notifications"
	"github.com/rs/zerolog"
)

type Options struct {
	SendBuffer     int
	EventTimeout   time.Duration
	AllowedOrigins []string
}

// Invitation is a live invitation push. SenderName is used in the text when
// set, otherwise SenderId.
type Invitation struct {
	SenderId     string
	SenderName   string
	TargetUserId string
	ComTag       string
	ComName      string
}

// Hub owns the live connections and their room memberships.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]*Client

	// closed is set under mu once the hub stops accepting connections.
	closed     bool
	unregister chan *Client
	stopped    chan struct{}
	stopOnce   sync.Once

	presence       presence.Registry
	sendBuffer     int
	eventTimeout   time.Duration
	allowedOrigins []string
	logger         *zerolog.Logger
}

func NewHub(registry presence.Registry, opts Options) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	if opts.EventTimeout <= 0 {
		opts.EventTimeout = 5 * time.Second
	}

	return &Hub{
		clients:        make(map[string]*Client),
		rooms:          make(map[string]map[string]*Client),
		unregister:     make(chan *Client),
		stopped:        make(chan struct{}),
		presence:       registry,
		sendBuffer:     opts.SendBuffer,
		eventTimeout:   opts.EventTimeout,
		allowedOrigins: opts.AllowedOrigins,
		logger:         logx.Component("realtime"),
	}
}

// RunWithContext processes disconnects until ctx is done, then refuses new
// connections and closes every client.
func (h *Hub) RunWithContext(ctx context.Context) error {
	defer h.stopOnce.Do(func() { close(h.stopped) })

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			h.closed = true
			h.mu.Unlock()

			closed := h.closeAllClients()
			h.logger.Info().Int("clients_closed", closed).Msg("websocket hub stopped")
			return ctx.Err()

		case c := <-h.unregister:
			if h.removeClient(c) {
				metrics.WebSocketConnections.Dec()
				h.logger.Debug().Str("conn_id", c.id).Str("user_id", c.userId).Msg("websocket client disconnected")
			}
		}
	}
}

func (h *Hub) String() string {
	return "websocket-hub"
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and attaches the connection to userId.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userId string) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      h.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := newClient(h, conn, userId)
	if !h.addClient(c) {
		_ = conn.Close()
		return
	}

	h.connectPresence(c)
	c.start()
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.allowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	h.logger.Warn().Str("origin", origin).Msg("websocket connection rejected from unauthorized origin")
	return false
}

// SendInvitation pushes an invitation notice to the target's live connection.
// It reports whether the notice was queued; an offline target is not an
// error.
func (h *Hub) SendInvitation(ctx context.Context, inv Invitation) (bool, error) {
	connId, online, err := h.presence.Lookup(ctx, inv.TargetUserId)
	if err != nil {
		return false, err
	}
	if !online {
		metrics.RealtimeEvents.WithLabelValues(EventInvitationNotification, "offline").Inc()
		return false, nil
	}

	sender := inv.SenderName
	if sender == "" {
		sender = inv.SenderId
	}
	_, text := notifications.InvitationText(sender, inv.ComName)

	frame, err := encode(EventInvitationNotification, text)
	if err != nil {
		return false, err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.clients[connId]
	if !ok {
		// Registered by another process or already closing.
		metrics.RealtimeEvents.WithLabelValues(EventInvitationNotification, "offline").Inc()
		return false, nil
	}
	return h.trySend(c, EventInvitationNotification, frame), nil
}

// SendMessage broadcasts payload to every member of room except the
// connection fromConnId. It returns the number of connections reached.
func (h *Hub) SendMessage(room, fromConnId string, payload json.RawMessage) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	from := ""
	if sender, ok := h.clients[fromConnId]; ok {
		from = sender.userId
	}
	frame, err := encode(EventReceiveMessage, ChatMessage{Room: room, Payload: payload, From: from})
	if err != nil {
		return 0
	}

	members := make([]*Client, 0, len(h.rooms[room]))
	for id, c := range h.rooms[room] {
		if id != fromConnId {
			members = append(members, c)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].id < members[j].id })

	delivered := 0
	for _, c := range members {
		if h.trySend(c, EventReceiveMessage, frame) {
			delivered++
		}
	}
	return delivered
}

// addClient makes c visible to rooms and deliveries before its pumps start,
// so the first inbound frame already finds it registered.
func (h *Hub) addClient(c *Client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketConnections.Inc()
	h.logger.Debug().Str("conn_id", c.id).Str("user_id", c.userId).Int("total_clients", total).Msg("websocket client connected")
	return true
}

// JoinRoom adds the connection to room. Memberships end with the connection.
func (h *Hub) JoinRoom(connId, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[connId]
	if !ok {
		return false
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[room] = members
	}
	members[c.id] = c
	c.rooms[room] = struct{}{}
	return true
}

func (h *Hub) deliver(c *Client, event string, frame []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.clients[c.id]; !ok {
		return false
	}
	return h.trySend(c, event, frame)
}

// trySend queues frame without blocking. h.mu must be held.
func (h *Hub) trySend(c *Client, event string, frame []byte) bool {
	select {
	case c.send <- frame:
		metrics.RealtimeEvents.WithLabelValues(event, "delivered").Inc()
		return true
	default:
		metrics.RealtimeEvents.WithLabelValues(event, "dropped").Inc()
		h.logger.Warn().Str("conn_id", c.id).Str("event", event).Msg("send buffer full, dropping event")
		return false
	}
}

func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopped:
		h.removeClient(c)
	}
	h.disconnectPresence(c)
}

// removeClient drops c from the hub and its rooms and closes its send
// channel. It reports false when c was already gone.
func (h *Hub) removeClient(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.id]; !ok {
		return false
	}
	for room := range c.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, c.id)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	delete(h.clients, c.id)
	close(c.send)
	return true
}

func (h *Hub) closeAllClients() int {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	closed := 0
	for _, c := range clients {
		if h.removeClient(c) {
			metrics.WebSocketConnections.Dec()
			closed++
		}
	}
	return closed
}

func (h *Hub) connectPresence(c *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), h.eventTimeout)
	defer cancel()

	if err := h.presence.Connect(ctx, c.userId, c.id); err != nil {
		h.logger.Error().Err(err).Str("user_id", c.userId).Msg("failed to register presence")
	}
}

func (h *Hub) disconnectPresence(c *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), h.eventTimeout)
	defer cancel()

	if _, _, err := h.presence.Disconnect(ctx, c.id); err != nil {
		h.logger.Error().Err(err).Str("user_id", c.userId).Msg("failed to remove presence")
	}
}
