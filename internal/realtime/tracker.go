package realtime

import (
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/hitushen/localbrowser/internal/models"
)

// Tracker 跟踪 HTTP 服务上的活动连接，挂在 http.Server.ConnState 上使用。
// 每次连接建立或断开都会把最新的客户端列表交给 observer。
type Tracker struct {
	mu       sync.Mutex
	conns    map[net.Conn]models.ClientConn
	observer func([]models.ClientConn)
}

// NewTracker 创建 Tracker。observer 在内部锁下调用，不能阻塞。
func NewTracker(observer func([]models.ClientConn)) *Tracker {
	return &Tracker{
		conns:    make(map[net.Conn]models.ClientConn),
		observer: observer,
	}
}

// ConnState 实现 http.Server.ConnState 回调。
func (t *Tracker) ConnState(c net.Conn, state http.ConnState) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch state {
	case http.StateNew:
		t.conns[c] = models.ClientConn{RemoteAddr: c.RemoteAddr().String(), Since: time.Now()}
	case http.StateClosed, http.StateHijacked:
		if _, ok := t.conns[c]; !ok {
			return
		}
		delete(t.conns, c)
	default:
		return
	}
	if t.observer != nil {
		t.observer(t.snapshot())
	}
}

// Clients 返回按连接时间排序的客户端列表。
func (t *Tracker) Clients() []models.ClientConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot()
}

func (t *Tracker) snapshot() []models.ClientConn {
	out := make([]models.ClientConn, 0, len(t.conns))
	for _, c := range t.conns {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Since.Equal(out[j].Since) {
			return out[i].RemoteAddr < out[j].RemoteAddr
		}
		return out[i].Since.Before(out[j].Since)
	})
	return out
}
