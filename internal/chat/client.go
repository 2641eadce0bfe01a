package chat

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"modchat/internal/metrics"
)

const (
	writeWait      = 10 * time.Second    // Time allowed to write a message to the peer.
	pongWait       = 60 * time.Second    // Time allowed to read the next pong message from the peer.
	pingPeriod     = (pongWait * 9) / 10 // Send pings to peer with this period. Must be less than pongWait.
	maxMessageSize = 4096                // Maximum event size allowed from peer.

	sendBuffer = 256
)

// Client is the middleman between one websocket connection and the session
// coordinator.
type Client struct {
	id   string
	co   *Coordinator
	conn *websocket.Conn
	send chan []byte

	// mu guards closed so a late deliver can never hit a closed channel.
	mu     sync.Mutex
	closed bool

	log zerolog.Logger
}

func newClient(co *Coordinator, conn *websocket.Conn, logger zerolog.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:   id,
		co:   co,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		log:  logger.With().Str("conn", id).Logger(),
	}
}

// deliver queues a payload for the write pump without blocking. A false
// return means the client is gone or too slow to keep up.
func (c *Client) deliver(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// closeSend stops the write pump. Idempotent; both the registry's slow
// client eviction and the read pump teardown may race to call it.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump pumps events from the websocket connection to the coordinator.
func (c *Client) readPump() {
	defer func() {
		c.co.OnDisconnect(c)
		c.closeSend()
		c.conn.Close()
		metrics.ConnectionsActive.Dec()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn().Err(err).Msg("websocket read failed")
			}
			break
		}

		var ev InboundEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			c.deliver(errorEvent("malformed event"))
			continue
		}
		c.handleEvent(&ev)
	}
}

func (c *Client) handleEvent(ev *InboundEvent) {
	ctx := context.Background()

	switch ev.Type {
	case EventJoinRoom:
		c.co.OnJoin(ctx, c, ev.RoomID)

	case EventSendMessage:
		c.co.OnSendText(ctx, c, ev.RoomID, ev.Sender, ev.Body)

	case EventSendImage:
		// The pipeline does slow network work; run it off the read
		// loop so the connection keeps servicing events. Once started
		// it is never cancelled, a disconnect mid-flight still lets
		// the result reach the remaining room members.
		go c.co.OnSendImage(c, ev.RoomID, ev.Sender, ev.ImageURL)

	default:
		c.log.Debug().Str("type", ev.Type).Msg("unknown event type")
		c.deliver(errorEvent("unknown event type: " + ev.Type))
	}
}

// writePump pumps queued payloads to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The send channel was closed on us.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(payload)

			// Drain queued payloads into the same writer to cut
			// down on syscalls.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
