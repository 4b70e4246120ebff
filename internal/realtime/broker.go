package realtime

import (
	"encoding/json"
	"sync"

	"github.com/hitushen/localbrowser/internal/models"
)

// EventClients 是客户端列表变化事件的类型。
const EventClients = "clients"

// Event 描述 SSE 推送时的消息载荷。
type Event struct {
	Type    string              `json:"type"`
	Count   int                 `json:"count"`
	Clients []models.ClientConn `json:"clients"`
}

// Broker 负责向实时订阅者（SSE 客户端）分发事件，并保留最近一条事件，
// 新订阅者连上后立即收到当前状态。
type Broker struct {
	mu      sync.RWMutex
	clients map[chan []byte]struct{}
	latest  []byte
}

// NewBroker 创建一个新的 Broker 实例。
func NewBroker() *Broker {
	return &Broker{clients: make(map[chan []byte]struct{})}
}

// Subscribe 注册客户端通道并返回同时提供清理函数。
func (b *Broker) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 8)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	if b.latest != nil {
		ch <- b.latest
	}
	b.mu.Unlock()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.clients, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cleanup
}

// Subscribers 返回当前订阅者数量。
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Publish 将事件广播给所有订阅者。
func (b *Broker) Publish(evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latest = data
	for ch := range b.clients {
		select {
		case ch <- data:
		default:
			// 如果订阅者处理过慢则丢弃消息，避免阻塞。
		}
	}
}
