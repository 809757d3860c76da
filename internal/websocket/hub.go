package websocket

import (
	"context"
	"sync"

	"github.com/askwhyharsh/nearhelp/internal/storage"
	"github.com/askwhyharsh/nearhelp/pkg/logger"
)

const activeConnectionsKey = "ws:active"

// Hub tracks live page connections, one per session.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	redis      storage.RedisClient
	logger     logger.Logger
	mu         sync.RWMutex
	ctx        context.Context
}

func NewHub(ctx context.Context, redisClient storage.RedisClient, log logger.Logger) *Hub {
	if log == nil {
		log = logger.NewNop()
	}
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		redis:      redisClient,
		logger:     log,
		ctx:        ctx,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case <-h.ctx.Done():
			h.shutdown()
			return
		}
	}
}

// Register adds c. After the hub stopped the client is closed instead.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.ctx.Done():
		c.Close()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// A second tab on the same session replaces the first connection.
	if old, ok := h.clients[client.sessionID]; ok && old != client {
		go old.Close()
	}
	h.clients[client.sessionID] = client

	if h.redis != nil {
		if err := h.redis.SAdd(h.ctx, activeConnectionsKey, client.sessionID); err != nil {
			h.logger.Warn("Failed to track connection", "session_id", client.sessionID, "error", err)
		}
	}
	h.logger.Debug("Client registered", "session_id", client.sessionID, "clients", len(h.clients))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cur, ok := h.clients[client.sessionID]; !ok || cur != client {
		return
	}
	delete(h.clients, client.sessionID)

	if h.redis != nil {
		if err := h.redis.SRem(h.ctx, activeConnectionsKey, client.sessionID); err != nil {
			h.logger.Warn("Failed to untrack connection", "session_id", client.sessionID, "error", err)
		}
	}
	h.logger.Debug("Client unregistered", "session_id", client.sessionID, "clients", len(h.clients))
}

// Count is the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, client := range clients {
		client.Close()
	}
	if h.redis != nil {
		// h.ctx is already done here
		_ = h.redis.Del(context.Background(), activeConnectionsKey)
	}
}
