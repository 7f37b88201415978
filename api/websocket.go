package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/seenimoa/stocklens/internal/analysis"
	"github.com/seenimoa/stocklens/pkg/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS origins are enforced for the REST routes only
	},
}

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

// WSMessage is a message sent over WebSocket connections.
type WSMessage struct {
	Type   string `json:"type"`
	Ticker string `json:"ticker,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// wsRequest is a message received from a client.
type wsRequest struct {
	Type    string   `json:"type"`
	Tickers []string `json:"tickers"`
}

// WSClient represents a single WebSocket connection.
type WSClient struct {
	hub  *WSHub
	send chan WSMessage

	mu      sync.RWMutex
	tickers map[string]bool // empty means all tickers
	closed  bool
}

// trySend queues msg without blocking. It reports false when the queue is
// full or the client is closed.
func (c *WSClient) trySend(msg WSMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *WSClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func newWSClient(hub *WSHub) *WSClient {
	return &WSClient{
		hub:     hub,
		send:    make(chan WSMessage, 256),
		tickers: make(map[string]bool),
	}
}

// subscribe restricts the client to the given tickers and returns the
// normalized set.
func (c *WSClient) subscribe(tickers []string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var added []string
	for _, t := range tickers {
		if t = utils.NormalizeTicker(t); t != "" {
			c.tickers[t] = true
			added = append(added, t)
		}
	}
	return added
}

func (c *WSClient) unsubscribe(tickers []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(tickers) == 0 {
		c.tickers = make(map[string]bool)
		return
	}
	for _, t := range tickers {
		delete(c.tickers, utils.NormalizeTicker(t))
	}
}

// wants reports whether a message for ticker should reach this client.
func (c *WSClient) wants(ticker string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ticker == "" || len(c.tickers) == 0 || c.tickers[ticker]
}

// WSHub manages WebSocket connections and message broadcasting.
type WSHub struct {
	mu         sync.RWMutex
	clients    map[*WSClient]bool
	broadcast  chan WSMessage
	register   chan *WSClient
	unregister chan *WSClient
	done       chan struct{}
	log        logrus.FieldLogger
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub(log logrus.FieldLogger) *WSHub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WSMessage, 256),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run starts the hub event loop and returns when ctx is done. A hub runs
// at most once.
func (h *WSHub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				client.close()
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.remove(client)
		case msg := <-h.broadcast:
			var slow []*WSClient
			h.mu.RLock()
			for client := range h.clients {
				if client.wants(msg.Ticker) && !client.trySend(msg) {
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()
			for _, client := range slow {
				h.log.Warn("Dropping slow WebSocket client")
				h.remove(client)
			}
		}
	}
}

func (h *WSHub) remove(client *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.close()
	}
}

// Broadcast sends a message to all connected WebSocket clients.
func (h *WSHub) Broadcast(msg WSMessage) {
	select {
	case h.broadcast <- msg:
	default:
		// Drop message if broadcast channel is full
	}
}

// PublishEvent forwards an analysis event to subscribed clients.
func (h *WSHub) PublishEvent(ev analysis.Event) {
	h.Broadcast(WSMessage{Type: ev.Type, Ticker: ev.Ticker, Data: ev})
}

// ClientCount returns the number of connected WebSocket clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub. After the hub stops, the client is
// closed instead.
func (h *WSHub) Register(client *WSClient) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

// Unregister removes a client from the hub.
func (h *WSHub) Unregister(client *WSClient) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// handleWebSocket upgrades HTTP connections to WebSocket. Clients receive
// analysis.completed and analysis.failed events, optionally filtered by
// ticker via {"type":"subscribe","tickers":[...]}.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("WebSocket upgrade error")
		return
	}

	client := newWSClient(s.wsHub)
	s.wsHub.Register(client)

	go wsWritePump(conn, client, s.log)
	go wsReadPump(conn, client, s.log)
}

// wsReadPump pumps messages from the WebSocket connection to the hub.
func wsReadPump(conn *websocket.Conn, client *WSClient, log logrus.FieldLogger) {
	defer func() {
		client.hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("WebSocket read error")
			}
			break
		}

		var req wsRequest
		if err := json.Unmarshal(message, &req); err != nil {
			continue
		}

		var reply WSMessage
		switch req.Type {
		case "subscribe":
			reply = WSMessage{Type: "subscribed", Data: client.subscribe(req.Tickers)}
		case "unsubscribe":
			client.unsubscribe(req.Tickers)
			reply = WSMessage{Type: "unsubscribed", Data: req.Tickers}
		case "ping":
			reply = WSMessage{Type: "pong"}
		default:
			continue
		}

		client.trySend(reply)
	}
}

// wsWritePump pumps messages from the hub to the WebSocket connection.
func wsWritePump(conn *websocket.Conn, client *WSClient, log logrus.FieldLogger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(msg)
			if err != nil {
				log.WithError(err).Warn("WebSocket marshal error")
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
