package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"tableside/internal/models"
	"tableside/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	readLimit  = 64 * 1024
)

// WebSocket upgrader configuration
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsConnection streams turn events for one session over a websocket
type wsConnection struct {
	conn    *websocket.Conn
	send    chan []byte
	session *session.Session
	driver  *session.Driver
	log     *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc
	turns  sync.WaitGroup
}

// StreamTurns upgrades the connection. Each client frame is a TurnRequest;
// each server frame is an Event. Closing the socket cancels the running turn.
func (a *OrderAPI) StreamTurns(c *gin.Context) {
	s := current(c)
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		a.log.WithError(err).Warn("failed to upgrade connection")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	ws := &wsConnection{
		conn:    conn,
		send:    make(chan []byte, 256),
		session: s,
		driver:  a.driver,
		log:     a.log.WithField("session_id", s.ID),
		ctx:     ctx,
		cancel:  cancel,
	}

	go ws.writePump()
	go ws.readPump()
}

// readPump reads turn requests until the client goes away
func (c *wsConnection) readPump() {
	defer func() {
		c.cancel()
		c.turns.Wait()
		close(c.send)
	}()

	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Warn("websocket closed unexpectedly")
			}
			return
		}

		var req session.TurnRequest
		if err := json.Unmarshal(message, &req); err != nil {
			c.sendJSON(gin.H{"kind": "error", "error": "invalid turn request"})
			continue
		}
		c.startTurn(req)
	}
}

func (c *wsConnection) startTurn(req session.TurnRequest) {
	events, err := c.driver.Turn(c.ctx, c.session, req)
	switch {
	case errors.Is(err, models.ErrEmptyInput):
		c.sendJSON(session.Event{Kind: session.EventNotice, Text: session.EmptyInputReply})
		return
	case err != nil:
		c.sendJSON(gin.H{"kind": "error", "error": err.Error()})
		return
	}

	c.turns.Add(1)
	go func() {
		defer c.turns.Done()
		for ev := range events {
			c.sendJSON(ev)
		}
	}()
}

// writePump writes queued frames and keeps the connection alive with pings
func (c *wsConnection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.cancel()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.cancel()
				return
			}
		}
	}
}

func (c *wsConnection) sendJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.log.WithError(err).Error("failed to encode websocket frame")
		return
	}
	select {
	case c.send <- data:
	case <-c.ctx.Done():
	}
}
