package relay

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/localhook/localhook/internal/models"
)

// Conn wraps one websocket with a buffered outbound queue consumed by a
// single writer goroutine, so Enqueue never blocks a webhook request.
type Conn struct {
	UserID      string
	ConnectedAt time.Time

	ws        *websocket.Conn
	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	pingInterval time.Duration
	writeTimeout time.Duration
}

func newConn(userID string, ws *websocket.Conn, sendBuffer int, pingInterval, writeTimeout time.Duration) *Conn {
	return &Conn{
		UserID:       userID,
		ConnectedAt:  time.Now().UTC(),
		ws:           ws,
		send:         make(chan []byte, sendBuffer),
		closed:       make(chan struct{}),
		pingInterval: pingInterval,
		writeTimeout: writeTimeout,
	}
}

// Enqueue hands env to the writer goroutine. False when the connection is
// closed or the queue is full; the caller treats both as a dropped message.
func (c *Conn) Enqueue(env *models.Envelope) bool {
	data, err := json.Marshal(env)
	if err != nil {
		return false
	}
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	case <-c.closed:
		return false
	default:
		return false
	}
}

func (c *Conn) Open() bool {
	select {
	case <-c.closed:
		return false
	default:
		return true
	}
}

func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.ws.Close()
	})
}

// writePump is the sole writer on the websocket. It drains the send queue
// and keeps the connection alive with pings.
func (c *Conn) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	defer c.Close()

	for {
		select {
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}

// readPump discards inbound frames; its job is to notice the peer going
// away. It returns when the connection dies or misses its pong deadline.
func (c *Conn) readPump() {
	pongWait := 2 * c.pingInterval
	c.ws.SetReadLimit(4096)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}
