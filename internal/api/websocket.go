package api

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/maa-core/internal/infrastructure/config"
	"github.com/nerrad567/maa-core/internal/infrastructure/logging"
)

// Event stream message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"

	// WSChannelAll subscribes a client to every event topic.
	WSChannelAll = "*"

	wsSendBufferSize = 256
)

// WSMessage is the envelope of every frame on the event stream.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload selects event topics and, optionally, devices.
// An empty Devices list matches every device.
type WSSubscribePayload struct {
	Topics  []string `json:"topics"`
	Devices []string `json:"devices,omitempty"`
}

// StreamEvent is one event bus message as relayed to clients.
type StreamEvent struct {
	Topic string
	UUID  string
	Body  map[string]any
}

// inbound is a client frame with its payload left undecoded.
type inbound struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// filter is the set of topics and devices a client listens to.
type filter struct {
	topics  map[string]struct{}
	devices map[string]struct{}
}

func newFilter() filter {
	return filter{topics: map[string]struct{}{}, devices: map[string]struct{}{}}
}

func (f filter) matches(topic, uuid string) bool {
	_, all := f.topics[WSChannelAll]
	_, named := f.topics[topic]
	if !all && !named {
		return false
	}
	if len(f.devices) == 0 {
		return true
	}
	_, ok := f.devices[uuid]
	return ok
}

func (f filter) add(p WSSubscribePayload) {
	for _, t := range p.Topics {
		f.topics[t] = struct{}{}
	}
	for _, d := range p.Devices {
		f.devices[d] = struct{}{}
	}
}

// remove drops the named topics and devices. An empty payload clears the filter.
func (f filter) remove(p WSSubscribePayload) {
	if len(p.Topics) == 0 && len(p.Devices) == 0 {
		clear(f.topics)
		clear(f.devices)
		return
	}
	for _, t := range p.Topics {
		delete(f.topics, t)
	}
	for _, d := range p.Devices {
		delete(f.devices, d)
	}
}

func (f filter) snapshot() WSSubscribePayload {
	return WSSubscribePayload{Topics: sortedKeys(f.topics), Devices: sortedKeys(f.devices)}
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Hub fans event bus messages out to connected stream clients.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu      sync.RWMutex
	clients map[*WSClient]struct{}

	// dropped counts frames skipped because a client's buffer was full.
	dropped atomic.Uint64
}

// WSClient is one connected event stream client.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	filter filter
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are checked by the CORS middleware.
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// NewHub creates an event stream hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
		if c.conn != nil {
			c.conn.Close()
		}
	}
}

func (h *Hub) register(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("event stream client connected", "clients", n)
}

// unregister removes c. Only the caller that removes it closes its send channel.
func (h *Hub) unregister(c *WSClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		close(c.send)
	}
	h.logger.Debug("event stream client disconnected", "clients", n)
}

// Publish sends ev to every client whose filter matches its topic and device.
func (h *Hub) Publish(ev StreamEvent) {
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: ev.Topic,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   map[string]any{"uuid": ev.UUID, "body": ev.Body},
	})
	if err != nil {
		h.logger.Error("encoding stream event", "topic", ev.Topic, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if c.wants(ev.Topic, ev.UUID) {
			c.enqueue(data)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many frames were skipped for slow clients.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// handleWebSocket upgrades the request to an event stream.
// New clients receive nothing until they subscribe.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &WSClient{
		hub:    s.hub,
		conn:   conn,
		send:   make(chan []byte, wsSendBufferSize),
		filter: newFilter(),
	}
	s.hub.register(c)

	ka := newKeepalive(s.hub.cfg)
	go c.writeLoop(ka)
	go c.readLoop(ka, int64(s.hub.cfg.MaxMessageSize))
}

// keepalive holds the ping schedule derived from config.
type keepalive struct {
	interval time.Duration
	wait     time.Duration
}

func newKeepalive(cfg config.WebSocketConfig) keepalive {
	ka := keepalive{
		interval: time.Duration(cfg.PingInterval) * time.Second,
		wait:     time.Duration(cfg.PongTimeout) * time.Second,
	}
	if ka.interval <= 0 {
		ka.interval = 30 * time.Second
	}
	if ka.wait <= 0 {
		ka.wait = 10 * time.Second
	}
	return ka
}

func (k keepalive) readDeadline() time.Time  { return time.Now().Add(k.interval + k.wait) }
func (k keepalive) writeDeadline() time.Time { return time.Now().Add(k.wait) }

func (c *WSClient) readLoop(ka keepalive, limit int64) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(limit)
	c.conn.SetReadDeadline(ka.readDeadline()) //nolint:errcheck // read error surfaces below
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(ka.readDeadline())
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("event stream read error", "error", err)
			}
			return
		}
		// Application-level traffic also counts as liveness.
		c.conn.SetReadDeadline(ka.readDeadline()) //nolint:errcheck // read error surfaces above
		c.handle(data)
	}
}

func (c *WSClient) writeLoop(ka keepalive) {
	ticker := time.NewTicker(ka.interval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		var (
			kind = websocket.TextMessage
			data []byte
		)
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil) //nolint:errcheck // closing anyway
				return
			}
			data = msg
		case <-ticker.C:
			kind = websocket.PingMessage
		}

		c.conn.SetWriteDeadline(ka.writeDeadline()) //nolint:errcheck // write error surfaces below
		if err := c.conn.WriteMessage(kind, data); err != nil {
			return
		}
	}
}

func (c *WSClient) handle(data []byte) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		c.reply("", WSTypeError, map[string]string{"message": "invalid JSON message"})
		return
	}

	switch msg.Type {
	case WSTypePing:
		c.reply(msg.ID, WSTypePong, nil)
	case WSTypeSubscribe, WSTypeUnsubscribe:
		var p WSSubscribePayload
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				c.reply(msg.ID, WSTypeError, map[string]string{"message": "invalid " + msg.Type + " payload"})
				return
			}
		}
		c.reply(msg.ID, WSTypeResponse, c.update(msg.Type == WSTypeSubscribe, p))
	default:
		c.reply(msg.ID, WSTypeError, map[string]string{"message": "unknown message type: " + msg.Type})
	}
}

// update applies p to the filter and returns the resulting selection.
func (c *WSClient) update(subscribe bool, p WSSubscribePayload) WSSubscribePayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	if subscribe {
		c.filter.add(p)
	} else {
		c.filter.remove(p)
	}
	c.hub.logger.Debug("event stream filter updated", "topics", len(c.filter.topics), "devices", len(c.filter.devices))
	return c.filter.snapshot()
}

func (c *WSClient) wants(topic, uuid string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter.matches(topic, uuid)
}

func (c *WSClient) reply(id, kind string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      kind,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.enqueue(data)
}

// enqueue queues data without blocking. A full buffer drops the frame; a
// channel closed by a concurrent disconnect is ignored.
func (c *WSClient) enqueue(data []byte) {
	defer func() {
		recover() //nolint:errcheck // send on closed channel
	}()

	select {
	case c.send <- data:
	default:
		c.hub.dropped.Add(1)
	}
}
