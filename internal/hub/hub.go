// Package hub fans outbox events out to connected display boards. Boards
// subscribe to a branch, optionally narrowed to one category.
package hub

import (
	"encoding/json"
	"log"
	"sync"
)

type Subscription struct {
	BranchID   string
	CategoryID string
}

type Client struct {
	ID           string
	Send         chan []byte
	Subscription Subscription
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

type SubscribeMessage struct {
	Action     string `json:"action"`
	BranchID   string `json:"branch_id"`
	CategoryID string `json:"category_id"`
}

func New() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client.ID)
	close(client.Send)
}

func (h *Hub) UpdateSubscription(client *Client, sub Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client.Subscription = sub
}

// Broadcast delivers the payload to every client whose subscription matches.
// A client with a full send buffer loses the message rather than stalling the
// rest; boards resync from the events feed on reconnect.
func (h *Hub) Broadcast(payload []byte, meta Subscription) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if !match(client.Subscription, meta) {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			log.Printf("drop message for client %s", client.ID)
		}
	}
}

func match(sub Subscription, meta Subscription) bool {
	if sub.BranchID != "" && meta.BranchID != sub.BranchID {
		return false
	}
	if sub.CategoryID != "" && meta.CategoryID != sub.CategoryID {
		return false
	}
	return true
}

func ParseSubscribe(data []byte) (SubscribeMessage, bool) {
	var msg SubscribeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return SubscribeMessage{}, false
	}
	if msg.Action != "subscribe" && msg.Action != "unsubscribe" {
		return SubscribeMessage{}, false
	}
	return msg, true
}
