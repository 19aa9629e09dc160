package ws

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mcoot/blitzarena/internal/model"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer
	pongWait = 60 * time.Second

	// Send pings to the peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Largest inbound message accepted
	maxMessageSize = 4096

	// Buffer size for outgoing messages
	sendBufferSize = 256
)

// Handler consumes inbound messages and disconnects
type Handler interface {
	HandleMessage(connID model.ConnID, raw []byte)
	HandleDisconnect(connID model.ConnID)
}

// Client is one WebSocket connection
type Client struct {
	id          model.ConnID
	conn        *websocket.Conn
	hub         *Hub
	send        chan []byte
	done        chan struct{}
	closeOnce   sync.Once
	connectedAt time.Time
}

func newClient(id model.ConnID, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		id:          id,
		conn:        conn,
		hub:         hub,
		send:        make(chan []byte, sendBufferSize),
		done:        make(chan struct{}),
		connectedAt: time.Now(),
	}
}

// enqueue queues a frame without blocking; a full buffer drops it
func (c *Client) enqueue(data []byte) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- data:
	default:
		c.hub.logger.Warn("ws message dropped - client buffer full",
			slog.String("conn_id", string(c.id)))
	}
}

// close stops the write loop, which sends a close frame and drops the connection
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// readPump forwards inbound frames to the handler until the connection fails
func (c *Client) readPump(handler Handler) {
	defer func() {
		if c.hub.unregister(c) {
			handler.HandleDisconnect(c.id)
		}
		_ = c.conn.Close()
		c.hub.pumps.Done()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.hub.logger.Warn("ws read error",
					slog.String("conn_id", string(c.id)),
					slog.String("error", err.Error()))
			}
			return
		}
		if messageType == websocket.TextMessage {
			handler.HandleMessage(c.id, message)
		}
	}
}

// writePump drains the send buffer and keeps the connection alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.flush()
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// flush writes whatever is still buffered so a final message such as session_timeout lands
func (c *Client) flush() {
	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		default:
			return
		}
	}
}

// Config holds upgrade settings
type Config struct {
	// AllowedOrigins lists the accepted Origin headers; empty accepts any origin
	AllowedOrigins []string
}

// Server upgrades HTTP requests and runs a Client per connection
type Server struct {
	hub      *Hub
	handler  Handler
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewServer creates a WebSocket endpoint feeding handler
func NewServer(hub *Hub, handler Handler, cfg Config, logger *slog.Logger) *Server {
	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = true
	}
	return &Server{
		hub:     hub,
		handler: handler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				return allowed[r.Header.Get("Origin")]
			},
		},
		logger: logger.With(slog.String("component", "ws")),
	}
}

// ServeHTTP upgrades the request and serves the connection until it closes
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		s.logger.Warn("ws upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := newClient(model.ConnID(uuid.NewString()), conn, s.hub)
	if !s.hub.register(client) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	go client.writePump()
	client.readPump(s.handler)
}
