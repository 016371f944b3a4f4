package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type MessageType string

const (
	TypePing         MessageType = "ping"
	TypePong         MessageType = "pong"
	TypeNotification MessageType = "notification"
	TypeError        MessageType = "error"
)

// Message is the frame written to websocket clients.
type Message struct {
	Type      MessageType     `json:"type"`
	Name      string          `json:"name,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp float64         `json:"timestamp"`
}

// Event is a notification published for one user. Any process (API or
// worker) can publish it; every API process relays it to that user's sockets.
type Event struct {
	UserID    uint            `json:"user_id"`
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data"`
	Timestamp float64         `json:"timestamp"`
}

// Publish sends ev on the Redis channel the hubs subscribe to.
func Publish(ctx context.Context, rdb *redis.Client, channel string, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return rdb.Publish(ctx, channel, raw).Err()
}

type Client struct {
	ID     uuid.UUID
	UserID uint
	Conn   Conn
	Send   chan []byte
	Hub    *Hub
}

// Hub tracks live connections per user.
type Hub struct {
	// a user may hold several connections
	userClients map[uint]map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client

	log *zap.Logger
	mu  sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		userClients: make(map[uint]map[uuid.UUID]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		log:         log,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run serves register/unregister requests and pings clients until Stop.
func (h *Hub) Run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ticker.C:
			h.ping()
		}
	}
}

func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, clients := range h.userClients {
		for _, client := range clients {
			close(client.Send)
			client.Conn.Close()
		}
		delete(h.userClients, userID)
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.userClients[client.UserID]; !ok {
		h.userClients[client.UserID] = make(map[uuid.UUID]*Client)
	}
	h.userClients[client.UserID][client.ID] = client

	h.log.Debug("client registered", zap.Stringer("client_id", client.ID), zap.Uint("user_id", client.UserID))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.userClients[client.UserID]
	if !ok {
		return
	}
	if _, ok := clients[client.ID]; !ok {
		return
	}

	delete(clients, client.ID)
	if len(clients) == 0 {
		delete(h.userClients, client.UserID)
	}
	close(client.Send)

	h.log.Debug("client unregistered", zap.Stringer("client_id", client.ID), zap.Uint("user_id", client.UserID))
}

// SendToUser queues message on every connection of the user. Slow clients
// drop messages rather than block the hub.
func (h *Hub) SendToUser(userID uint, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.userClients[userID] {
		select {
		case client.Send <- message:
		default:
			h.log.Warn("client send channel full", zap.Stringer("client_id", client.ID))
		}
	}
}

// Deliver forwards a notification event to the user's connections.
func (h *Hub) Deliver(ev Event) {
	msg := Message{
		Type:      TypeNotification,
		Name:      ev.Name,
		Data:      ev.Data,
		Timestamp: ev.Timestamp,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.SendToUser(ev.UserID, data)
}

// Subscribe relays events from the Redis channel until ctx is done.
func (h *Hub) Subscribe(ctx context.Context, rdb *redis.Client, channel string) {
	sub := rdb.Subscribe(ctx, channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
				h.log.Warn("bad notification event", zap.Error(err))
				continue
			}
			h.Deliver(ev)
		}
	}
}

func (h *Hub) ping() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	msg := Message{
		Type:      TypePing,
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
	}

	if data, err := json.Marshal(msg); err == nil {
		for _, clients := range h.userClients {
			for _, client := range clients {
				select {
				case client.Send <- data:
				default:
				}
			}
		}
	}
}

// OnlineUsers lists users with at least one open connection.
func (h *Hub) OnlineUsers() []uint {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]uint, 0, len(h.userClients))
	for userID := range h.userClients {
		users = append(users, userID)
	}
	return users
}
