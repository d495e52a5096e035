// Package transport implements the external collaborators spec.md §1
// calls out of scope for the core: the HTTP listener and the WebSocket
// push channel. Grounded on
// platform/backend/internal/server/websocket/{websocket.go,client.go}'s
// Upgrader/origin-check/read-pump/write-pump shape, with the JWT-auth gate
// removed per spec.md's "identity is client-asserted" Non-goal and
// replaced by a client-asserted (roomId,userId) handshake frame.
package transport

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"cardroom/internal/engine"
	"cardroom/internal/events"
	"cardroom/internal/room"
	"cardroom/internal/roomerrors"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

// InboundMessage is the wire envelope for every inbound WebSocket frame.
type InboundMessage struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// OutboundMessage is the wire envelope for every outbound WebSocket frame.
type OutboundMessage struct {
	Topic   events.Name `json:"topic"`
	Payload any         `json:"payload"`
}

// Client is one active WebSocket connection.
type Client struct {
	ID     string
	UserID string
	RoomID string
	conn   *websocket.Conn
	send   chan OutboundMessage

	closeOnce sync.Once
}

// AllowedOrigins mirrors the teacher's env-driven origin whitelist; "*"
// (the default) disables the check.
type AllowedOrigins struct {
	origins  map[string]bool
	allowAll bool
}

func NewAllowedOrigins(list []string) *AllowedOrigins {
	a := &AllowedOrigins{origins: map[string]bool{}}
	for _, o := range list {
		if o == "*" {
			a.allowAll = true
		}
		a.origins[o] = true
	}
	return a
}

func (a *AllowedOrigins) Check(origin string) bool {
	if a.allowAll || origin == "" {
		return true
	}
	return a.origins[origin]
}

// Server glues the room registry and the game registry to the WebSocket
// transport and implements events.Emitter by fanning out to connected
// clients, matching the teacher's SendToClient/BroadcastTableState shape.
type Server struct {
	upgrader websocket.Upgrader
	origins  *AllowedOrigins
	rooms    *room.Registry
	games    *engine.Registry

	mu      sync.RWMutex
	clients map[string]*Client // userId -> client
}

func NewServer(rooms *room.Registry, games *engine.Registry, origins *AllowedOrigins) *Server {
	s := &Server{
		origins: origins,
		rooms:   rooms,
		games:   games,
		clients: make(map[string]*Client),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return origins.Check(r.Header.Get("Origin"))
		},
	}
	return s
}

// originAllowed lets the HTTP CORS layer reuse the same whitelist as the
// WebSocket upgrader.
func (s *Server) originAllowed(origin string) bool {
	return s.origins.Check(origin)
}

// EmitToRoom satisfies events.Emitter by sending payload to every member
// (player or spectator) of roomID.
func (s *Server) EmitToRoom(roomID string, topic events.Name, payload any) {
	for _, userID := range s.rooms.RoomMemberIDs(roomID) {
		s.EmitToUser(userID, topic, payload)
	}
}

// EmitToUser satisfies events.Emitter with a non-blocking send: a slow or
// dead client is disconnected rather than blocking the room's mutex.
func (s *Server) EmitToUser(userID string, topic events.Name, payload any) {
	s.mu.RLock()
	c, ok := s.clients[userID]
	s.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case c.send <- OutboundMessage{Topic: topic, Payload: payload}:
	default:
		log.Printf("transport: send buffer full for user %s, dropping connection", userID)
		s.closeClient(c)
	}
}

// HandleWebSocket upgrades the connection and expects the handshake frame
// {type:"joinRoom", data:{roomId,userId}} within the first read before any
// other frame is processed (spec.md §6).
func (s *Server) HandleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("transport: upgrade failed: %v", err)
		return
	}

	client := &Client{conn: conn, send: make(chan OutboundMessage, 64)}
	go s.writePump(client)
	s.readPump(client)
}

func (s *Server) readPump(c *Client) {
	defer func() {
		if c.ID != "" {
			s.rooms.Disconnect(c.ID)
		}
		s.removeClient(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		s.handleMessage(c, msg)
	}
}

func (s *Server) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
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

func (s *Server) registerClient(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.UserID] = c
}

func (s *Server) removeClient(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.clients[c.UserID]; ok && existing == c {
		delete(s.clients, c.UserID)
	}
}

func (s *Server) closeClient(c *Client) {
	s.removeClient(c)
	c.closeOnce.Do(func() { close(c.send) })
}

func writeError(c *Client, err error) {
	payload := map[string]any{"error": err.Error()}
	if re, ok := roomerrors.As(err); ok && re.Code != "" {
		payload["code"] = re.Code
	}
	select {
	case c.send <- OutboundMessage{Topic: "error", Payload: payload}:
	default:
	}
}
