package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/stockwatch/stockwatch/pkg/types"
	"github.com/stockwatch/stockwatch/server/internal/metrics"
)

const (
	// maxMessageSize bounds inbound frames. Clients only send pings.
	maxMessageSize = 4096

	defaultSendBuffer   = 16
	defaultWriteTimeout = 10 * time.Second
	defaultPongWait     = 60 * time.Second

	connectedText = "Connected to stock price server"
)

var (
	errBufferFull   = errors.New("send buffer full")
	errClientClosed = errors.New("client closed")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Allow all origins; apply restrictions at the reverse proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// PriceFeed produces one set of quotes per tick.
type PriceFeed interface {
	Tick(now time.Time) []types.Quote
}

// UserDirectory supplies the user view broadcast on every tick.
type UserDirectory interface {
	Snapshot() map[string]types.UserView
}

// Options tunes the hub. Zero values fall back to defaults.
type Options struct {
	// Interval is the tick period. Required.
	Interval time.Duration

	// SendBuffer is the per-client outgoing message buffer depth.
	SendBuffer int

	// WriteTimeout is the deadline for a single write to a client.
	WriteTimeout time.Duration

	// PongWait is how long to wait for any frame before treating the client
	// as dead. Ping frames go out at 9/10 of this.
	PongWait time.Duration

	// Metrics is optional.
	Metrics *metrics.Metrics
}

// Hub manages WebSocket clients and runs the tick/broadcast loop.
type Hub struct {
	feed  PriceFeed
	users UserDirectory
	opts  Options
	now   func() time.Time

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool

	// writers tracks client writer goroutines so shutdown can wait for close frames.
	writers sync.WaitGroup
}

// client is one connected WebSocket viewer.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// New creates a Hub that ticks feed and reads users every opts.Interval.
func New(feed PriceFeed, users UserDirectory, opts Options) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.PongWait <= 0 {
		opts.PongWait = defaultPongWait
	}
	return &Hub{
		feed:    feed,
		users:   users,
		opts:    opts,
		now:     time.Now,
		clients: make(map[*client]struct{}),
	}
}

// Run ticks once immediately and then every interval, broadcasting the
// results. When ctx is cancelled it stops the ticker, closes every client and
// waits for their writers to exit. Run blocks until then.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.opts.Interval)
	h.tick()

	for {
		select {
		case <-ctx.Done():
			t.Stop()
			h.closeAll()
			h.writers.Wait()
			slog.Info("hub: stopped")
			return
		case <-t.C:
			h.tick()
		}
	}
}

// ServeHTTP upgrades the HTTP connection to WebSocket and serves the client
// until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, h.opts.SendBuffer),
	}

	hello, _ := json.Marshal(ConnectionMessage{
		Type:    TypeConnection,
		Status:  "connected",
		Message: connectedText,
	})
	if !h.register(c, hello) {
		conn.WriteControl(websocket.CloseMessage, //nolint:errcheck
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(h.opts.WriteTimeout))
		conn.Close()
		return
	}
	defer h.unregister(c)

	slog.Info("hub: client connected", "client", c.id, "remote", r.RemoteAddr)

	go func() {
		defer h.writers.Done()
		c.writePump(h.opts.WriteTimeout, h.opts.PongWait*9/10)
	}()
	h.readPump(c) // blocks until connection closes

	slog.Info("hub: client disconnected", "client", c.id)
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// --- internal ---------------------------------------------------------------

// register adds c and queues hello as its first message. It reports false
// once the hub has shut down.
func (h *Hub) register(c *client, hello []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	c.send <- hello
	h.clients[c] = struct{}{}
	h.writers.Add(1)
	h.opts.Metrics.SetClients(len(h.clients))
	return true
}

// unregister removes c and closes its send channel. Safe to call repeatedly.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.opts.Metrics.SetClients(len(h.clients))
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		c.drain()
		close(c.send)
		delete(h.clients, c)
	}
	h.opts.Metrics.SetClients(0)
}

// tick advances the price feed and broadcasts the result.
func (h *Hub) tick() {
	quotes := h.feed.Tick(h.now())
	h.opts.Metrics.RecordTick()
	h.broadcast(quotes, h.users.Snapshot())
}

// broadcast queues a stockUpdate and a userUpdate to every client. A failure
// for one client is logged and counted, then delivery continues.
func (h *Hub) broadcast(quotes []types.Quote, users map[string]types.UserView) {
	stocks, err := json.Marshal(StockUpdateMessage{Type: TypeStockUpdate, Stocks: quotes})
	if err != nil {
		slog.Error("hub: marshal stock update", "err", err)
		return
	}
	directory, err := json.Marshal(UserUpdateMessage{Type: TypeUserUpdate, Users: users})
	if err != nil {
		slog.Error("hub: marshal user update", "err", err)
		return
	}

	msgs := []struct {
		typ  string
		data []byte
	}{
		{TypeStockUpdate, stocks},
		{TypeUserUpdate, directory},
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, m := range msgs {
		sent := 0
		for c := range h.clients {
			if err := c.enqueue(m.data); err != nil {
				h.dropped(c, m.typ, err)
				continue
			}
			sent++
		}
		h.opts.Metrics.RecordSent(m.typ, sent)
	}
}

// sendTo queues data to c if it is still registered.
func (h *Hub) sendTo(c *client, typ string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		h.dropped(c, typ, errClientClosed)
		return
	}
	if err := c.enqueue(data); err != nil {
		h.dropped(c, typ, err)
		return
	}
	h.opts.Metrics.RecordSent(typ, 1)
}

func (h *Hub) dropped(c *client, typ string, err error) {
	slog.Warn("hub: message dropped", "client", c.id, "type", typ, "err", err)
	reason := "closed"
	if errors.Is(err, errBufferFull) {
		reason = "buffer_full"
	}
	h.opts.Metrics.RecordDropped(reason)
}

// readPump reads frames until the connection closes. Pings are answered,
// anything else is ignored.
func (h *Hub) readPump(c *client) {
	defer c.conn.Close()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(h.opts.PongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("hub: read error", "client", c.id, "err", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(h.opts.PongWait)) //nolint:errcheck
		h.handleMessage(c, data)
	}
}

func (h *Hub) handleMessage(c *client, data []byte) {
	var in inboundMessage
	if err := json.Unmarshal(data, &in); err != nil {
		slog.Debug("hub: ignoring malformed message", "client", c.id, "err", err)
		return
	}

	switch in.Type {
	case TypePing:
		pong, _ := json.Marshal(PongMessage{Type: TypePong, Timestamp: h.now().UnixMilli()})
		h.sendTo(c, TypePong, pong)
	default:
		slog.Debug("hub: ignoring message", "client", c.id, "type", in.Type)
	}
}

// enqueue performs a non-blocking send. Callers must hold the hub lock so
// the channel cannot be closed concurrently.
func (c *client) enqueue(data []byte) error {
	select {
	case c.send <- data:
		return nil
	default:
		return errBufferFull
	}
}

// drain discards queued messages so nothing more is written after shutdown
// except the close frame.
func (c *client) drain() {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}

// writePump drains the send channel to the connection and sends periodic
// ping frames. When the channel is closed it sends a close frame and exits.
func (c *client) writePump(writeTimeout, pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, //nolint:errcheck
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Debug("hub: write failed", "client", c.id, "err", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
