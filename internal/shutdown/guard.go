// Package shutdown 提供一次性的退出清理保护。
package shutdown

import "sync"

// Guard 保证清理逻辑只执行一次，无论由信号还是正常返回触发。
type Guard struct {
	once sync.Once
	done chan struct{}
}

func New() *Guard {
	return &Guard{done: make(chan struct{})}
}

// Do 在首次调用时执行 fn 并返回 true，之后的调用直接返回 false。
// 并发调用会等待首次执行结束。
func (g *Guard) Do(fn func()) bool {
	ran := false
	g.once.Do(func() {
		defer close(g.done)
		ran = true
		if fn != nil {
			fn()
		}
	})
	return ran
}

// Done 在清理完成后关闭。
func (g *Guard) Done() <-chan struct{} {
	return g.done
}
