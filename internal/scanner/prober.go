// Package scanner 在客户端选择服务端地址之前，探测候选地址上的 HTTP 端口是否可达。
package scanner

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hitushen/localbrowser/internal/logging"
)

// DefaultTimeout 是单个端口探测的超时。
const DefaultTimeout = 2 * time.Second

type scanFunc func(ctx context.Context, hosts []string, port int, timeout time.Duration) (map[string]bool, error)

// Prober 通过 naabu connect 扫描确认候选地址的 HTTP 端口已开放。
type Prober struct {
	port    int
	timeout time.Duration
	scan    scanFunc
}

// NewProber 创建针对指定 HTTP 端口的 Prober。
func NewProber(port int, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{port: port, timeout: timeout, scan: runNaabu}
}

// Reachable 返回端口开放的候选地址，保持原有顺序。
// 扫描失败时返回 nil，由调用方决定是否退回到未过滤的列表。
func (p *Prober) Reachable(ctx context.Context, candidates []string) []string {
	if len(candidates) == 0 {
		return nil
	}
	// naabu 自身按 timeout 控制单次连接，这里给整体扫描留出重试余量。
	ctx, cancel := context.WithTimeout(ctx, 3*p.timeout)
	defer cancel()

	open, err := p.scan(ctx, candidates, p.port, p.timeout)
	if err != nil {
		logging.Warn("verify candidates",
			zap.Strings("candidates", candidates),
			zap.Int("port", p.port),
			zap.Error(err))
		return nil
	}
	return filterOpen(candidates, open)
}

func filterOpen(candidates []string, open map[string]bool) []string {
	var out []string
	for _, c := range candidates {
		if open[c] {
			out = append(out, c)
		}
	}
	return out
}
