package main

import (
	"sync"
	"time"

	"luma-live/stagepass/ticket-queue-server/pkg/msg"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to peer with this period.
	pingPeriod = 30 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = pingPeriod * 5 / 2
)

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	id string

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	sendWsMessage chan *msg.WsMessage

	// Closing this channel tells the pumps to shut down.
	close     chan []byte
	closeOnce sync.Once

	hub    *Hub
	logger *zap.SugaredLogger
}

func (c *Client) Run() {
	go c.writePump()
	go c.readPump()
}

// TryClose asks the pumps to stop. Safe to call more than once.
func (c *Client) TryClose(graceful bool) {
	c.closeOnce.Do(func() {
		if graceful {
			c.close <- websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		}
		close(c.close)
	})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	// Heartbeat. Close connection if client does not respond to ping
	// for too long.
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// The stream is server to client only, reads exist to service
		// control frames and detect the peer going away.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Errorf("client id[%v] read error %v", c.id, err)
			} else {
				c.logger.Debugf("client id[%v] read closing %v", c.id, err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	pingTicker := time.NewTicker(pingPeriod)

	defer func() {
		pingTicker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case wsMessage := <-c.sendWsMessage:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(wsMessage); err != nil {
				c.logger.Errorf("client id[%v] WriteJSON err %v", c.id, err)
				return
			}

		case closeMessage, ok := <-c.close:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if ok && closeMessage != nil {
				c.conn.WriteMessage(websocket.CloseMessage, closeMessage)
			} else {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			}
			return

		case <-pingTicker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Errorf("client id[%v] ping err %v", c.id, err)
				return
			}
		}
	}
}
