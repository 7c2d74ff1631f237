package internal

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 65536
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// bodies are encrypted end to end, so cross-origin browsers gain
		// nothing; tighten this if the server is exposed publicly.
		return true
	},
}

// Hub is the transport layer: it owns the live websocket connections,
// issues a connection identity per socket, feeds inbound envelopes to the
// router, and executes the deliveries the router returns. All protocol
// decisions live in the router; the hub only moves bytes.
type Hub struct {
	registry *Registry
	router   *Router
	metrics  *Metrics

	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub(registry *Registry, router *Router, metrics *Metrics) *Hub {
	return &Hub{
		registry: registry,
		router:   router,
		metrics:  metrics,
		clients:  make(map[string]*Client),
	}
}

// a client wraps a single websocket connection and a buffered send queue.
type Client struct {
	identity string
	conn     *websocket.Conn
	send     chan []byte
}

// ServeWS upgrades the request and starts the pumps. Every connection gets
// a fresh identity; it has no meaning once the connection ends.
func (hub *Hub) ServeWS(writer http.ResponseWriter, request *http.Request) {
	websocketConn, err := upgrader.Upgrade(writer, request, nil)
	if err != nil {
		log.Printf("upgrade error: %v", err)
		return
	}

	client := &Client{
		identity: uuid.NewString(),
		conn:     websocketConn,
		send:     make(chan []byte, 256),
	}

	hub.mu.Lock()
	hub.clients[client.identity] = client
	hub.mu.Unlock()
	hub.metrics.IncConn()

	go client.writePump()
	go hub.readPump(client)
}

func (hub *Hub) readPump(client *Client) {
	defer func() {
		hub.dropClient(client)
		client.conn.Close()
	}()
	client.conn.SetReadLimit(maxMsgSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, payload, err := client.conn.ReadMessage()
		if err != nil {
			// normal close or read error, the deferred cleanup runs.
			break
		}
		var event ClientEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			log.Printf("malformed envelope from %s: %v", client.identity, err)
			continue
		}
		hub.metrics.CountEvent(event.Type)
		hub.Execute(hub.router.Dispatch(client.identity, event))
	}
}

// dropClient tears a connection down exactly once: the router runs the
// disconnect transition, and whatever it says to broadcast goes out before
// the send queue is closed.
func (hub *Hub) dropClient(client *Client) {
	hub.mu.Lock()
	_, present := hub.clients[client.identity]
	delete(hub.clients, client.identity)
	hub.mu.Unlock()
	if !present {
		return
	}
	hub.metrics.DecConn()
	hub.Execute(hub.router.Disconnect(client.identity))
	close(client.send)
}

// Execute delivers each outbound event to its target set. Room targets are
// resolved against current membership at delivery time.
func (hub *Hub) Execute(deliveries []Delivery) {
	for _, delivery := range deliveries {
		payload, err := json.Marshal(delivery.Event)
		if err != nil {
			log.Printf("encode outbound %s event: %v", delivery.Event.Type, err)
			continue
		}
		if delivery.To.Identity != "" {
			hub.sendTo(delivery.To.Identity, payload)
			continue
		}
		for _, identity := range hub.registry.MemberIdentities(delivery.To.Room, delivery.To.Exclude) {
			hub.sendTo(identity, payload)
		}
	}
}

func (hub *Hub) sendTo(identity string, payload []byte) {
	hub.mu.RLock()
	client := hub.clients[identity]
	hub.mu.RUnlock()
	if client == nil {
		return
	}
	select {
	case client.send <- payload:
	default:
		// this client is too slow to read; drop the payload rather than
		// backpressure the whole room. Delivery is best effort.
		log.Printf("send queue full for %s, dropping event", identity)
	}
}

func (client *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()
	for {
		select {
		case message, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// the send channel has been closed, ask the peer to close.
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
