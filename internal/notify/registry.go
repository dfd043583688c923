package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/AstraLink99/backend-video-processing/internal/domain/entity"
	"github.com/AstraLink99/backend-video-processing/internal/infra/metrics"
)

const writeTimeout = 10 * time.Second

type conn struct {
	sessionID string
	ws        *websocket.Conn
	writeMu   sync.Mutex
}

func (c *conn) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(v)
}

// Registry is the process-wide mapping from client id to an open
// websocket. At most one connection per client id; a second connection
// with the same id replaces the first. There is no buffering: an event
// pushed while the client is disconnected is lost.
type Registry struct {
	mu           sync.RWMutex
	clients      map[string]*conn
	pingInterval time.Duration
	logger       *zap.Logger
}

func NewRegistry(pingInterval time.Duration, logger *zap.Logger) *Registry {
	return &Registry{
		clients:      make(map[string]*conn),
		pingInterval: pingInterval,
		logger:       logger,
	}
}

// Serve owns ws for the lifetime of the connection: registers it, keeps it
// alive with periodic pings, drains inbound frames (clients are not
// required to send anything), and unregisters on the first read or write
// error. Blocks until the connection dies.
func (r *Registry) Serve(clientID string, ws *websocket.Conn) {
	c := &conn{sessionID: uuid.NewString()[:8], ws: ws}
	r.register(clientID, c)
	defer r.unregister(clientID, c)

	log := r.logger.With(zap.String("client_id", clientID), zap.String("session", c.sessionID))
	log.Info("client connected")

	done := make(chan struct{})
	defer close(done)
	go r.pingLoop(c, done)

	readWait := 2*r.pingInterval + writeTimeout
	ws.SetReadDeadline(time.Now().Add(readWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readWait))
	})

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			log.Info("client disconnected", zap.Error(err))
			return
		}
		ws.SetReadDeadline(time.Now().Add(readWait))
	}
}

// Push attempts delivery to clientID. No-op if the client is not
// registered; delivery errors are logged and swallowed.
func (r *Registry) Push(clientID string, event entity.NotificationEvent) {
	r.mu.RLock()
	c := r.clients[clientID]
	r.mu.RUnlock()

	if c == nil {
		metrics.NotificationsTotal.WithLabelValues("dropped").Inc()
		r.logger.Debug("push to unregistered client",
			zap.String("client_id", clientID),
			zap.String("status", event.Status),
		)
		return
	}

	if err := c.writeJSON(event); err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		r.logger.Warn("push failed",
			zap.String("client_id", clientID),
			zap.String("status", event.Status),
			zap.Error(err),
		)
		return
	}

	metrics.NotificationsTotal.WithLabelValues("delivered").Inc()
}

// Len reports the number of currently open channels.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

func (r *Registry) register(clientID string, c *conn) {
	r.mu.Lock()
	old := r.clients[clientID]
	r.clients[clientID] = c
	r.mu.Unlock()

	if old != nil {
		// last writer wins; closing the old socket lets its Serve exit
		old.ws.Close()
	} else {
		metrics.ConnectedClients.Inc()
	}
}

// unregister removes the mapping only if c is still the current
// connection, so a replaced connection cannot evict its replacement.
func (r *Registry) unregister(clientID string, c *conn) {
	r.mu.Lock()
	current := r.clients[clientID] == c
	if current {
		delete(r.clients, clientID)
	}
	r.mu.Unlock()

	if current {
		metrics.ConnectedClients.Dec()
	}
	c.ws.Close()
}

func (r *Registry) pingLoop(c *conn, done <-chan struct{}) {
	ticker := time.NewTicker(r.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				c.ws.Close()
				return
			}
		}
	}
}
