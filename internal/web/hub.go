package web

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/flowchat/internal/controller"
	"github.com/ziadkadry99/flowchat/internal/surface"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsRequest is the incoming WebSocket message format. Only events without
// file payloads travel over the socket; uploads use the HTTP API.
type wsRequest struct {
	Type     string `json:"type"` // "event"
	Kind     string `json:"kind"`
	Query    string `json:"query"`
	VisualID string `json:"visual_id"`
	Detail   string `json:"detail"`
}

// wsResponse is the outgoing WebSocket message format.
type wsResponse struct {
	Type     string            `json:"type"` // "hello", "state", "notice" or "error"
	ClientID string            `json:"client_id,omitempty"`
	State    *surface.Snapshot `json:"state,omitempty"`
	Content  string            `json:"content,omitempty"`
}

// wsClient is one connected page. send holds at most the latest snapshot;
// notices and errors queue separately on direct.
type wsClient struct {
	id     string
	conn   *websocket.Conn
	send   chan wsResponse
	direct chan wsResponse
	once   sync.Once
	done   chan struct{}
}

func (c *wsClient) close() {
	c.once.Do(func() { close(c.done) })
}

// offer queues msg, replacing an unsent older message so slow clients
// always end up with the newest state.
func (c *wsClient) offer(msg wsResponse) {
	select {
	case c.send <- msg:
		return
	default:
	}
	select {
	case <-c.send:
	default:
	}
	select {
	case c.send <- msg:
	default:
	}
}

// push queues a notice or error; it is dropped if the client is not reading.
func (c *wsClient) push(msg wsResponse) {
	select {
	case c.direct <- msg:
	default:
	}
}

// hub fans state snapshots out to every connected client.
type hub struct {
	snapshot func() surface.Snapshot

	mu      sync.Mutex
	clients map[string]*wsClient
}

func newHub(snapshot func() surface.Snapshot) *hub {
	return &hub{snapshot: snapshot, clients: make(map[string]*wsClient)}
}

func (h *hub) broadcast(snap surface.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		s := snap
		c.offer(wsResponse{Type: "state", State: &s})
	}
}

func (h *hub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
}

func (h *hub) remove(id string) {
	h.mu.Lock()
	delete(h.clients, id)
	h.mu.Unlock()
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.close()
		delete(h.clients, id)
	}
}

func (h *hub) handleWebSocket(ctrl *controller.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("web: websocket upgrade: %v", err)
			return
		}
		defer conn.Close()

		c := &wsClient{
			id:     uuid.NewString(),
			conn:   conn,
			send:   make(chan wsResponse, 1),
			direct: make(chan wsResponse, 16),
			done:   make(chan struct{}),
		}

		// Greet before registering so the first frame is always the hello.
		snap := h.snapshot()
		if err := conn.WriteJSON(wsResponse{Type: "hello", ClientID: c.id, State: &snap}); err != nil {
			log.Printf("web: websocket write: %v", err)
			return
		}
		h.add(c)
		defer h.remove(c.id)

		go h.readLoop(c, ctrl)

		for {
			select {
			case <-c.done:
				return
			case msg := <-c.send:
				if err := conn.WriteJSON(msg); err != nil {
					log.Printf("web: websocket write: %v", err)
					return
				}
			case msg := <-c.direct:
				if err := conn.WriteJSON(msg); err != nil {
					log.Printf("web: websocket write: %v", err)
					return
				}
			}
		}
	}
}

func (h *hub) readLoop(c *wsClient, ctrl *controller.Controller) {
	defer c.close()
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("web: websocket read: %v", err)
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			c.push(wsResponse{Type: "error", Content: "invalid message format"})
			continue
		}
		if req.Type != "event" {
			c.push(wsResponse{Type: "error", Content: "unknown message type: " + req.Type})
			continue
		}

		ev := controller.Event{
			Kind:     controller.EventKind(req.Kind),
			Query:    req.Query,
			VisualID: req.VisualID,
			Detail:   req.Detail,
		}
		go func() {
			reply, err := ctrl.Handle(context.Background(), ev)
			switch {
			case err != nil:
				c.push(wsResponse{Type: "error", Content: err.Error()})
			case reply.Notice != "":
				c.push(wsResponse{Type: "notice", Content: reply.Notice})
			}
		}()
	}
}
