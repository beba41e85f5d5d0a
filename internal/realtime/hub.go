// Package realtime pushes deck events to websocket subscribers. Each client
// follows a single deck and receives every applied mutation of it.
package realtime

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/codyseavey/deckistry/internal/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames.
	maxMessageSize = 512

	sendBuffer = 64
)

// Event is one message sent to the subscribers of a deck
type Event struct {
	Type   string `json:"type"`
	DeckID uint   `json:"deck_id"`
	Data   any    `json:"data"`
}

type envelope struct {
	deckID uint
	data   []byte
}

// Client is one websocket subscriber of a deck
type Client struct {
	ID     string
	DeckID uint
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
}

// Hub tracks subscribers per deck and fans events out to them
type Hub struct {
	upgrader websocket.Upgrader

	// Subscribers by deck, guarded by mu.
	decks map[uint]map[*Client]bool

	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client

	done     chan struct{}
	stopOnce sync.Once
	stopped  bool

	mu sync.RWMutex
}

// NewHub creates a hub. allowedOrigins limits the Origin header of
// subscribers; "*" or an empty list accepts any origin.
func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{
		decks:      make(map[uint]map[*Client]bool),
		broadcast:  make(chan envelope, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || len(set) == 0 || set[origin]
	}
}

// Run is the hub's main loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			h.stopped = true
			for deckID, clients := range h.decks {
				for client := range clients {
					close(client.send)
				}
				delete(h.decks, deckID)
			}
			h.mu.Unlock()
			metrics.WebsocketClients.Set(0)
			log.Println("Realtime hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			clients := h.decks[client.DeckID]
			if clients == nil {
				clients = make(map[*Client]bool)
				h.decks[client.DeckID] = clients
			}
			clients[client] = true
			h.mu.Unlock()
			metrics.WebsocketClients.Inc()
			log.Printf("Realtime: client %s subscribed to deck %d", client.ID, client.DeckID)

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.decks[msg.deckID] {
				select {
				case client.send <- msg.data:
				default:
					// Slow subscriber, drop it
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held
func (h *Hub) remove(client *Client) {
	clients, ok := h.decks[client.DeckID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.decks, client.DeckID)
	}
	metrics.WebsocketClients.Dec()
	log.Printf("Realtime: client %s left deck %d", client.ID, client.DeckID)
}

// Publish sends an event to every subscriber of deckID. It returns false
// once the hub has stopped.
func (h *Hub) Publish(deckID uint, eventType string, data any) bool {
	if h.IsStopped() {
		return false
	}

	payload, err := json.Marshal(Event{Type: eventType, DeckID: deckID, Data: data})
	if err != nil {
		log.Printf("Warning: failed to marshal %s event: %v", eventType, err)
		return false
	}

	select {
	case h.broadcast <- envelope{deckID: deckID, data: payload}:
		return true
	case <-h.done:
		return false
	}
}

// Subscribers returns the number of clients following deckID
func (h *Hub) Subscribers(deckID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.decks[deckID])
}

// Stop closes every subscriber. Safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
}

func (h *Hub) IsStopped() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stopped
}

// ServeWs upgrades the request and subscribes the connection to deckID
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request, deckID uint) {
	if h.IsStopped() {
		http.Error(w, "realtime hub is not running", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Warning: websocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		ID:     uuid.NewString(),
		DeckID: deckID,
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}

	select {
	case h.register <- client:
		go client.writePump()
		go client.readPump()
	case <-h.done:
		_ = conn.Close()
	}
}

// readPump discards client messages and notices when the peer goes away
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Warning: websocket read error: %v", err)
			}
			return
		}
	}
}

// writePump sends queued events, one websocket message each
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("Warning: websocket write error: %v", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
