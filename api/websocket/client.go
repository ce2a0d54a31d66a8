package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/fleetscale/fleetd/internal/logger"
	"github.com/fleetscale/fleetd/pkg/config"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type settings struct {
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	maxMessageSize int64
	clientBuffer   int
	readBuffer     int
	writeBuffer    int
}

func newSettings(cfg config.WebSocketConfig) settings {
	s := settings{
		writeWait:      cfg.WriteTimeout,
		pongWait:       cfg.PongTimeout,
		maxMessageSize: cfg.MaxMessageSize,
		clientBuffer:   cfg.ClientBuffer,
		readBuffer:     cfg.ReadBufferSize,
		writeBuffer:    cfg.WriteBufferSize,
	}
	if s.writeWait == 0 {
		s.writeWait = 10 * time.Second
	}
	if s.pongWait == 0 {
		s.pongWait = 60 * time.Second
	}
	if s.maxMessageSize == 0 {
		s.maxMessageSize = 4096
	}
	if s.clientBuffer == 0 {
		s.clientBuffer = 64
	}
	if s.readBuffer == 0 {
		s.readBuffer = 1024
	}
	if s.writeBuffer == 0 {
		s.writeBuffer = 1024
	}
	s.pingPeriod = (s.pongWait * 9) / 10
	return s
}

type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	fleetID string
	mu      sync.RWMutex
}

type IncomingMessage struct {
	Type    string `json:"type"`
	FleetID string `json:"fleet_id,omitempty"`
}

func NewClient(hub *Hub, conn *websocket.Conn, fleetID string) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, hub.settings.clientBuffer),
		fleetID: fleetID,
	}
}

func (c *Client) FleetID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fleetID
}

func (c *Client) setFleetID(fleetID string) {
	c.mu.Lock()
	c.fleetID = fleetID
	c.mu.Unlock()
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	s := c.hub.settings
	c.conn.SetReadLimit(s.maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(s.pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(s.pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Errorf("WebSocket error: %v", err)
			}
			break
		}

		var msg IncomingMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			c.handleMessage(&msg)
		}
	}
}

func (c *Client) WritePump() {
	s := c.hub.settings
	ticker := time.NewTicker(s.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(s.writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Flush queued messages into the same frame.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(s.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg *IncomingMessage) {
	switch msg.Type {
	case "subscribe":
		if msg.FleetID != "" {
			c.setFleetID(msg.FleetID)
			logger.Infof("Client subscribed to fleet: %s", msg.FleetID)
			c.sendConfirmation("subscribed", msg.FleetID)
		}
	case "unsubscribe":
		oldFleetID := c.FleetID()
		c.setFleetID("")
		logger.Info("Client unsubscribed from fleet")
		c.sendConfirmation("unsubscribed", oldFleetID)
	}
}

func (c *Client) sendConfirmation(action, fleetID string) {
	confirmation := map[string]interface{}{
		"type":      "subscription_update",
		"action":    action,
		"fleet_id":  fleetID,
		"timestamp": time.Now(),
	}
	data, err := json.Marshal(confirmation)
	if err != nil {
		logger.Errorf("Failed to marshal confirmation: %v", err)
		return
	}
	select {
	case c.send <- data:
	default:
		logger.Warn("Client send channel full, dropping confirmation")
	}
}

func ServeWebSocket(hub *Hub) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  hub.settings.readBuffer,
		WriteBufferSize: hub.settings.writeBuffer,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Errorf("WebSocket upgrade failed: %v", err)
			return
		}

		fleetID := c.Query("fleet_id")
		client := NewClient(hub, conn, fleetID)
		hub.Register(client)

		go client.WritePump()
		go client.ReadPump()
	}
}
