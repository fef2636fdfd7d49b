package server

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"

	"github.com/coralpages/reef/internal/logging"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings with this period to detect dead peers.
	pingPeriod = 30 * time.Second
)

// hub tracks connected live-reload clients and fans broadcast messages
// out to them.
type hub struct {
	logger     logging.Logger
	register   chan *client
	unregister chan *client
	messages   chan []byte
	clients    map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newHub(logger logging.Logger) *hub {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &hub{
		logger:     logger.WithComponent("livereload"),
		register:   make(chan *client),
		unregister: make(chan *client),
		messages:   make(chan []byte, 16),
		clients:    make(map[*client]struct{}),
	}
}

func (h *hub) run(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				c.conn.Close(websocket.StatusGoingAway, "server shutting down")
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.logger.Debug(ctx, "client connected", "total", len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}

		case msg := <-h.messages:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow consumer: drop it rather than block the hub.
					delete(h.clients, c)
					close(c.send)
				}
			}

		case <-ticker.C:
			for c := range h.clients {
				pingCtx, cancel := context.WithTimeout(ctx, writeWait)
				if err := c.conn.Ping(pingCtx); err != nil {
					delete(h.clients, c)
					close(c.send)
				}
				cancel()
			}
		}
	}
}

func (h *hub) broadcast(msg []byte) {
	select {
	case h.messages <- msg:
	default:
	}
}

func (s *PreviewServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.originAllowed(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Origin was already validated against the configured allow
		// list, which is stricter than the default same-host check.
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Warn(r.Context(), err, "websocket upgrade failed")
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, 16),
	}

	go c.writePump()
	go c.readPump(s.hub)

	s.hub.register <- c
}

// originAllowed validates the Origin header against the server's own
// address plus any configured extra origins.
func (s *PreviewServer) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return false
	}

	allowed := []string{
		s.Addr(),
		"localhost",
		"127.0.0.1",
	}
	allowed = append(allowed, s.config.Server.AllowedOrigins...)

	for _, host := range allowed {
		if originURL.Host == host || originURL.Hostname() == host {
			return true
		}
	}
	return false
}

// readPump drains inbound frames until the peer disconnects. Clients
// never send meaningful data; reading keeps close frames flowing.
func (c *client) readPump(h *hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		if _, _, err := c.conn.Read(context.Background()); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	for msg := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		err := c.conn.Write(ctx, websocket.MessageText, msg)
		cancel()
		if err != nil {
			return
		}
	}
	c.conn.Close(websocket.StatusNormalClosure, "")
}
