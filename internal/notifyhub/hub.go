// Package notifyhub fans a GroupChatCore NotifyUsers action out to every
// websocket connection belonging to one of the target users. Grounded on
// the Hub/Client broadcast pattern in the teacher's
// internal/handlers/chat_handler.go, generalized from "broadcast to
// everyone connected to this conversation" to "deliver to exactly the
// recipients the core computed" — sends are targeted per-user rather
// than fanned out to every client unconditionally.
package notifyhub

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/openmesh-chat/groupchat-core/internal/ids"
)

const (
	maxConnectionsPerUser = 5
	maxMessageSize        = 8192
	writeWait             = 10 * time.Second
	pongWait              = 60 * time.Second
	pingPeriod            = (pongWait * 9) / 10
)

// Notification is the payload delivered to a recipient: enough for the
// client to know a resync is needed, never the message content itself —
// clients always re-fetch via Events/EventsByIndex after receiving one.
type Notification struct {
	Chat       string `json:"chat"`
	EventIndex uint32 `json:"eventIndex"`
	Timestamp  int64  `json:"timestamp"`
}

type targetedNotification struct {
	users   []ids.UserId
	payload Notification
}

// Hub owns every live websocket connection, indexed by user, and a
// worker pool draining the notify channel — the same
// register/unregister/worker-pool shape as the teacher's Hub, just
// keyed by user id instead of a single global client map.
type Hub struct {
	mu                sync.RWMutex
	clientsByUser     map[ids.UserId]map[string]*Client
	register          chan *Client
	unregister        chan *Client
	notify            chan targetedNotification
	activeConnections int64
	logger            *logrus.Logger

	upgrader websocket.Upgrader
}

func NewHub(logger *logrus.Logger, allowedOrigins []string) *Hub {
	return &Hub{
		clientsByUser: make(map[ids.UserId]map[string]*Client),
		register:      make(chan *Client, 100),
		unregister:    make(chan *Client, 100),
		notify:        make(chan targetedNotification, 1000),
		logger:        logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowedOrigins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				for _, allowed := range allowedOrigins {
					if origin == allowed {
						return true
					}
				}
				return false
			},
		},
	}
}

// Run starts numWorkers notify workers plus the register/unregister
// loop; it blocks, so callers run it in its own goroutine.
func (h *Hub) Run(numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go h.notifyWorker()
	}
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if h.clientsByUser[c.userID] == nil {
				h.clientsByUser[c.userID] = make(map[string]*Client)
			}
			h.clientsByUser[c.userID][c.id] = c
			atomic.AddInt64(&h.activeConnections, 1)
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.clientsByUser[c.userID]; ok {
				if _, ok := conns[c.id]; ok {
					delete(conns, c.id)
					if len(conns) == 0 {
						delete(h.clientsByUser, c.userID)
					}
					close(c.send)
					atomic.AddInt64(&h.activeConnections, -1)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) notifyWorker() {
	for tn := range h.notify {
		data, err := json.Marshal(tn.payload)
		if err != nil {
			h.logger.WithError(err).Error("marshal notification failed")
			continue
		}
		h.mu.RLock()
		var targets []*Client
		for _, u := range tn.users {
			for _, c := range h.clientsByUser[u] {
				targets = append(targets, c)
			}
		}
		h.mu.RUnlock()

		for _, c := range targets {
			select {
			case c.send <- data:
			default:
				h.unregister <- c
			}
		}
	}
}

// Notify enqueues delivery of a resync notification to every connection
// belonging to any user in users.
func (h *Hub) Notify(users []ids.UserId, chat string, eventIndex ids.EventIndex) {
	if len(users) == 0 {
		return
	}
	h.notify <- targetedNotification{
		users: users,
		payload: Notification{
			Chat: chat, EventIndex: uint32(eventIndex), Timestamp: time.Now().UnixMilli(),
		},
	}
}

// ConnectionCountForUser reports how many live connections userID
// currently holds, used to enforce maxConnectionsPerUser.
func (h *Hub) ConnectionCountForUser(userID ids.UserId) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clientsByUser[userID])
}

// Upgrade upgrades an HTTP connection to a websocket Client for userID
// and registers it, starting its read/write pumps.
func (h *Hub) Upgrade(w http.ResponseWriter, r *http.Request, userID ids.UserId) error {
	if h.ConnectionCountForUser(userID) >= maxConnectionsPerUser {
		http.Error(w, "too many connections", http.StatusTooManyRequests)
		return nil
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	c := &Client{id: uuid.New().String(), userID: userID, conn: conn, send: make(chan []byte, 256), hub: h}
	h.register <- c
	go c.writePump()
	go c.readPump()
	return nil
}

// Client is one live websocket connection for a user. Clients never send
// commands over this channel — it is notify-only, so readPump exists
// only to keep the connection alive and detect disconnects.
type Client struct {
	id     string
	userID ids.UserId
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
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
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
