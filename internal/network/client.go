package network

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Command types accepted from viewers.
const (
	CommandPause    = "PAUSE"
	CommandResume   = "RESUME"
	CommandStep     = "STEP"
	CommandReseed   = "RESEED"
	CommandSnapshot = "SNAPSHOT"
)

// Command represents an incoming control message from a viewer.
type Command struct {
	Type string `json:"type"`
}

// Client is one viewer connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewClient creates a new WebSocket client and returns it.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, hub.tuning.ClientSendBuffer),
	}
}

// Register adds the client to the hub.
func (c *Client) Register() {
	select {
	case c.hub.register <- c:
	case <-c.hub.done:
		close(c.send)
	}
}

// ReadPump pumps commands from the websocket connection to the controller.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warnf("WebSocket read error: %v", err)
				c.hub.metrics.RecordWSError()
			}
			break
		}
		c.hub.metrics.RecordWSMessage(true)

		var cmd Command
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.hub.logger.Warn("Failed to parse Command from WebSocket. err: " + err.Error())
			c.hub.sendTo(c, Frame{Kind: FrameError, Error: "malformed command"})
			continue
		}

		if err := c.handleCommand(cmd); err != nil {
			c.hub.sendTo(c, Frame{Kind: FrameError, Error: err.Error()})
		}
	}
}

// handleCommand applies one command. State changes reach every viewer
// through the event log; only SNAPSHOT answers the sender directly.
func (c *Client) handleCommand(cmd Command) error {
	ctrl := c.hub.controller
	switch strings.ToUpper(cmd.Type) {
	case CommandPause:
		return ctrl.Pause()
	case CommandResume:
		return ctrl.Resume()
	case CommandStep:
		_, err := ctrl.Advance()
		return err
	case CommandReseed:
		return ctrl.Reseed()
	case CommandSnapshot:
		snap, err := ctrl.Snapshot()
		if err != nil {
			return err
		}
		c.hub.sendTo(c, Frame{Kind: FrameSnapshot, Snapshot: &snap})
		return nil
	default:
		c.hub.logger.Warn("Unknown Command type: " + cmd.Type)
		return fmt.Errorf("unknown command %q", cmd.Type)
	}
}

// WritePump pumps messages from the hub to the websocket connection.
// Each message is its own text frame.
func (c *Client) WritePump() {
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
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.metrics.RecordWSError()
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

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Viewers may be served from another origin
	},
}

// ServeWs upgrades the request and attaches a new client to the hub.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Errorf("Failed to upgrade websocket connection: %v", err)
		hub.metrics.RecordWSError()
		return
	}

	client := NewClient(hub, conn)
	client.Register()

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.WritePump()
	go client.ReadPump()
}
