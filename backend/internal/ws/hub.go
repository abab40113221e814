package ws

import (
	"context"
	"log"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"

	"sync-service/backend/internal/cache"
)

type Hub struct {
	mu sync.RWMutex
	// userID -> 该用户的所有连接（多标签页、多设备）
	rooms map[uint64]map[*Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[uint64]map[*Conn]struct{})}
}

func (h *Hub) Join(userID uint64, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[userID] == nil {
		h.rooms[userID] = make(map[*Conn]struct{})
	}
	h.rooms[userID][c] = struct{}{}
}

func (h *Hub) Leave(userID uint64, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[userID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.rooms, userID)
		}
	}
}

// Count 当前用户在本实例上的连接数
func (h *Hub) Count(userID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}

// Broadcast 持有读锁发送，Leave 之后连接才会关闭 send 通道
func (h *Hub) Broadcast(userID uint64, msg ServerMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[userID] {
		c.Enqueue(msg)
	}
}

// Start 订阅 redis 上所有用户的 poke，并转发给本实例的连接
func (h *Hub) Start(ctx context.Context, broker *cache.PokeBroker) error {
	ps, err := broker.Subscribe(ctx)
	if err != nil {
		return err
	}
	go h.run(ctx, ps)
	return nil
}

func (h *Hub) run(ctx context.Context, ps *redis.PubSub) {
	defer ps.Close()
	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			userID, ok := cache.ParsePokeChannel(msg.Channel)
			if !ok {
				log.Printf("[ws] ignore poke on %q", msg.Channel)
				continue
			}
			version, err := strconv.ParseUint(msg.Payload, 10, 64)
			if err != nil {
				log.Printf("[ws] bad poke payload %q: %v", msg.Payload, err)
				continue
			}
			h.Broadcast(userID, ServerMessage{Type: TypePoke, Version: version})
		}
	}
}
