package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	apperrors "github.com/askwhyharsh/nearhelp/pkg/errors"
	"github.com/askwhyharsh/nearhelp/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	sendBufferSize   = 256
	actionBufferSize = 16
)

// ActionHandler runs the user actions a page forwards.
type ActionHandler interface {
	HandleAction(ctx context.Context, c *Client, msg *IncomingMessage)
}

// Client is one page connection.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan *Message
	actions   chan *IncomingMessage
	pending   *pendingReplies
	sessionID string
	logger    logger.Logger

	geolocation atomic.Bool

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, sessionID string, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan *Message, sendBufferSize),
		actions:   make(chan *IncomingMessage, actionBufferSize),
		pending:   newPendingReplies(),
		sessionID: sessionID,
		logger:    log,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (c *Client) SessionID() string {
	return c.sessionID
}

// Done is closed once the connection is gone.
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

func (c *Client) ReadPump() {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket read failed", "session_id", c.sessionID, "error", err)
			}
			return
		}

		var msg IncomingMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.SendError("Invalid message format", "INVALID_FORMAT")
			continue
		}

		c.route(&msg)
	}
}

// route handles one page message. Replies and pings are answered here so a
// blocked action never stalls the reply it is waiting for.
func (c *Client) route(msg *IncomingMessage) {
	switch {
	case msg.Type == TypeHello:
		c.geolocation.Store(msg.Geolocation)
	case msg.Type == TypePing:
		_ = c.Send(&Message{Type: TypePong})
	case isReply(msg.Type):
		if !c.pending.resolve(msg) {
			c.logger.Debug("Dropping unmatched reply", "session_id", c.sessionID, "type", msg.Type, "id", msg.ID)
		}
	case isAction(msg.Type):
		select {
		case c.actions <- msg:
		default:
			c.SendError("Too many pending actions", "BUSY")
		}
	default:
		c.SendError("Unknown message type", "INVALID_TYPE")
	}
}

// RunActions feeds queued actions to h until the connection closes. Locate
// runs on its own goroutine so toggles stay responsive while a fix is
// pending; everything else runs in arrival order.
func (c *Client) RunActions(h ActionHandler) {
	for {
		select {
		case <-c.ctx.Done():
			return
		case msg := <-c.actions:
			if msg.Type == TypeLocate {
				go h.HandleAction(c.ctx, c, msg)
				continue
			}
			h.HandleAction(c.ctx, c, msg)
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}

			data, err := json.Marshal(message)
			if err != nil {
				c.logger.Error("Failed to marshal message", "type", message.Type, "error", err)
				_ = w.Close()
				continue
			}
			_, _ = w.Write(data)

			// Add queued messages to the current websocket frame
			n := len(c.send)
			for i := 0; i < n; i++ {
				data, err := json.Marshal(<-c.send)
				if err != nil {
					continue
				}
				_, _ = w.Write([]byte("\n"))
				_, _ = w.Write(data)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// Send queues msg without blocking.
func (c *Client) Send(msg *Message) error {
	if c.ctx.Err() != nil {
		return apperrors.ErrWebSocketClosed
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().Unix()
	}

	select {
	case c.send <- msg:
		return nil
	default:
		return apperrors.ErrSendBufferFull
	}
}

// Request sends msg under a fresh ID and waits for the page's reply.
func (c *Client) Request(ctx context.Context, msg *Message) (*IncomingMessage, error) {
	msg.ID = uuid.NewString()

	reply, err := c.pending.add(msg.ID)
	if err != nil {
		return nil, err
	}
	defer c.pending.remove(msg.ID)

	if err := c.Send(msg); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r, ok := <-reply:
		if !ok {
			return nil, apperrors.ErrWebSocketClosed
		}
		return r, nil
	}
}

func (c *Client) SendError(errMsg string, code string) {
	_ = c.Send(NewErrorMessage(errMsg, code))
}

// Close tears the connection down and fails every outstanding request.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.pending.close()
		if c.conn != nil {
			_ = c.conn.Close()
		}
		if c.hub != nil {
			c.hub.Unregister(c)
		}
	})
}
