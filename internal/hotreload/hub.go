package hotreload

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/conneroisu/rune/internal/logging"
)

const (
	defaultWriteWait  = 10 * time.Second
	defaultPingPeriod = 54 * time.Second
	maxMessageSize    = 512
	sendBuffer        = 256
)

type peer struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	closed bool
}

// HubOptions configure a Hub.
type HubOptions struct {
	Logger logging.Logger
	// OriginPatterns are the host patterns allowed to connect, e.g.
	// "localhost:*". Empty allows only same-host origins.
	OriginPatterns []string
	// PingPeriod is how often each client is pinged. A client that misses
	// a pong within WriteWait is disconnected.
	PingPeriod time.Duration
	WriteWait  time.Duration
}

// Hub tracks connected tabs and broadcasts frames to all of them.
type Hub struct {
	logger     logging.Logger
	origins    []string
	pingPeriod time.Duration
	writeWait  time.Duration

	mu      sync.RWMutex
	clients map[*websocket.Conn]*peer

	broadcast  chan []byte
	register   chan *peer
	unregister chan *websocket.Conn

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
}

// NewHub creates a hub and starts its event loop.
func NewHub(opts HubOptions) *Hub {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	pingPeriod := opts.PingPeriod
	if pingPeriod <= 0 {
		pingPeriod = defaultPingPeriod
	}
	writeWait := opts.WriteWait
	if writeWait <= 0 {
		writeWait = defaultWriteWait
	}
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		logger:     logger.WithComponent("hotreload"),
		origins:    opts.OriginPatterns,
		pingPeriod: pingPeriod,
		writeWait:  writeWait,
		clients:    make(map[*websocket.Conn]*peer),
		broadcast:  make(chan []byte, sendBuffer),
		register:   make(chan *peer, 32),
		unregister: make(chan *websocket.Conn, 32),
		ctx:        ctx,
		cancel:     cancel,
	}
	go h.run()

	return h
}

// ServeHTTP upgrades the request and registers the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.ctx.Err() != nil {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  h.origins,
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		h.logger.Warn(r.Context(), err, "WebSocket upgrade failed", "remote", r.RemoteAddr)
		return
	}

	p := &peer{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	if greeting, err := json.Marshal(Connected(p.id)); err == nil {
		p.send <- greeting
	}

	select {
	case h.register <- p:
	case <-h.ctx.Done():
		_ = conn.Close(websocket.StatusServiceRestart, "server shutting down")
		return
	}

	go h.serve(p)
}

func (h *Hub) run() {
	for {
		select {
		case p := <-h.register:
			h.mu.Lock()
			h.clients[p.conn] = p
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug(h.ctx, "Client connected", "client", p.id, "total", total)

		case conn := <-h.unregister:
			h.drop(conn)

		case frame := <-h.broadcast:
			h.fanOut(frame)

		case <-h.ctx.Done():
			return
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	p, ok := h.clients[conn]
	if ok {
		delete(h.clients, conn)
		h.closePeer(p)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		_ = conn.Close(websocket.StatusNormalClosure, "")
		h.logger.Debug(h.ctx, "Client disconnected", "client", p.id, "total", total)
	}
}

// closePeer must be called with mu held.
func (h *Hub) closePeer(p *peer) {
	if !p.closed {
		p.closed = true
		close(p.send)
	}
}

func (h *Hub) fanOut(frame []byte) {
	var slow []*websocket.Conn

	h.mu.RLock()
	for conn, p := range h.clients {
		if p.closed {
			continue
		}
		select {
		case p.send <- frame:
		default:
			slow = append(slow, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range slow {
		h.drop(conn)
	}
}

func (h *Hub) serve(p *peer) {
	defer func() {
		select {
		case h.unregister <- p.conn:
		case <-h.ctx.Done():
		}
	}()

	go h.write(p)
	h.read(p)
}

// read blocks without a deadline: tabs never send data frames, and pongs
// are consumed inside Read. Dead peers are found by the writer's pings.
func (h *Hub) read(p *peer) {
	p.conn.SetReadLimit(maxMessageSize)

	for {
		_, _, err := p.conn.Read(h.ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && h.ctx.Err() == nil {
				h.logger.Debug(h.ctx, "WebSocket read ended", "client", p.id, "error", err.Error())
			}
			return
		}
	}
}

func (h *Hub) write(p *peer) {
	ticker := time.NewTicker(h.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-p.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(h.ctx, h.writeWait)
			err := p.conn.Write(ctx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				h.logger.Debug(h.ctx, "WebSocket write failed", "client", p.id, "error", err.Error())
				_ = p.conn.Close(websocket.StatusInternalError, "write failed")
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(h.ctx, h.writeWait)
			err := p.conn.Ping(ctx)
			cancel()
			if err != nil {
				h.logger.Debug(h.ctx, "Ping failed, dropping client", "client", p.id, "error", err.Error())
				// unblocks read, which unregisters the peer
				_ = p.conn.CloseNow()
				return
			}

		case <-h.ctx.Done():
			return
		}
	}
}

// Broadcast queues msg for every connected client.
func (h *Hub) Broadcast(msg Message) {
	frame, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error(h.ctx, err, "Failed to encode frame", "type", string(msg.Type))
		return
	}

	select {
	case h.broadcast <- frame:
		h.logger.Debug(h.ctx, "Broadcast queued", "type", string(msg.Type))
	case <-h.ctx.Done():
	default:
		h.logger.Warn(h.ctx, nil, "Broadcast channel full, dropping frame", "type", string(msg.Type))
	}
}

// Reload broadcasts a reload frame.
func (h *Hub) Reload(reason string) { h.Broadcast(Reload(reason)) }

// CSSReload broadcasts a css-reload frame.
func (h *Hub) CSSReload() { h.Broadcast(CSSReload()) }

// Error broadcasts an error frame.
func (h *Hub) Error(message string) { h.Broadcast(Error(message)) }

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// Shutdown closes every connection and stops the hub.
func (h *Hub) Shutdown(context.Context) error {
	h.shutdownOnce.Do(func() {
		h.cancel()

		h.mu.Lock()
		conns := make([]*websocket.Conn, 0, len(h.clients))
		for conn, p := range h.clients {
			h.closePeer(p)
			conns = append(conns, conn)
		}
		h.clients = make(map[*websocket.Conn]*peer)
		h.mu.Unlock()

		for _, conn := range conns {
			_ = conn.Close(websocket.StatusGoingAway, "server shutdown")
		}
	})

	return nil
}
