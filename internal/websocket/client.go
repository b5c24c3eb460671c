package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"floatchat-be/internal/dto"
	"floatchat-be/internal/pkg/logger"
	"floatchat-be/internal/service"
	"floatchat-be/pkg/store"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024

	sendBuffer = 256
	turnBuffer = 16

	msgBusy = "Too many queries waiting. Send the next one after a result arrives."
)

// Conn is the part of *websocket.Conn the pumps use.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Client owns one chat connection. readPump feeds raw frames to turnLoop,
// which runs turns one at a time; writePump is the only writer on Conn.
type Client struct {
	Conn    Conn
	Session *store.Session

	// Buffered channel of outbound messages.
	Send chan []byte

	turns        chan []byte
	disconnected chan struct{}
	closeOnce    sync.Once
	logger       logger.ILogger
}

func NewClient(conn Conn, session *store.Session, log logger.ILogger) *Client {
	return &Client{
		Conn:         conn,
		Session:      session,
		Send:         make(chan []byte, sendBuffer),
		turns:        make(chan []byte, turnBuffer),
		disconnected: make(chan struct{}),
		logger:       log,
	}
}

// Notify queues a frame for writePump. Frames produced after the peer went
// away are dropped.
func (c *Client) Notify(msg dto.StreamMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("WS", "Failed to encode frame", map[string]interface{}{
			"session_id": c.Session.ID,
			"stage":      msg.Stage,
			"error":      err.Error(),
		})
		payload, _ = json.Marshal(dto.StreamMessage{Stage: dto.StageError, Message: "Failed to encode response: " + err.Error()})
	}

	select {
	case <-c.disconnected:
		return
	default:
	}

	select {
	case c.Send <- payload:
	case <-c.disconnected:
	}
}

func (c *Client) disconnect() {
	c.closeOnce.Do(func() {
		close(c.disconnected)
	})
}

// readPump pumps inbound frames to the turn loop until the peer goes away.
// It never blocks on the turn queue: a frame arriving while the queue is full
// is answered with an error so pongs keep being read.
func (c *Client) readPump() {
	defer func() {
		c.disconnect()
		close(c.turns)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WS", "Unexpected close", map[string]interface{}{
					"session_id": c.Session.ID,
					"error":      err.Error(),
				})
			}
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))

		select {
		case c.turns <- message:
		case <-c.disconnected:
			return
		default:
			c.logger.Warn("WS", "Turn queue full, frame rejected", map[string]interface{}{
				"session_id": c.Session.ID,
			})
			c.Notify(dto.StreamMessage{Error: msgBusy})
		}
	}
}

// turnLoop runs queued turns strictly in order. Turns still queued when the
// peer disconnects are discarded; one already running is left to finish.
func (c *Client) turnLoop(ctx context.Context, chat service.IChatService) {
	for raw := range c.turns {
		select {
		case <-c.disconnected:
			continue
		default:
		}
		chat.HandleMessage(ctx, c.Session, raw, c)
	}
}

// writePump pumps queued frames to the connection, one frame per message,
// and keeps the peer alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("WS", "Write failed", map[string]interface{}{
					"session_id": c.Session.ID,
					"error":      err.Error(),
				})
				c.disconnect()
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.disconnect()
				return
			}
		case <-c.disconnected:
			return
		}
	}
}
