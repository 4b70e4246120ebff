package discovery

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/hitushen/localbrowser/internal/logging"
	"github.com/hitushen/localbrowser/internal/metrics"
)

// Selection 是一次成功发现的结果。
type Selection struct {
	Address    string
	Candidates []string
}

// Chooser 在服务端公布多个地址时选出一个，返回值必须是 candidates 之一。
type Chooser func(ctx context.Context, candidates []string) (string, error)

// Verifier 过滤掉当前无法连通的候选地址，保持原有顺序。
type Verifier func(ctx context.Context, candidates []string) []string

// FirstCandidate 是默认的 Chooser。
func FirstCandidate(_ context.Context, candidates []string) (string, error) {
	return candidates[0], nil
}

// Client 通过广播查找服务端。零值可用，各字段为空时取默认值。
type Client struct {
	Port     int
	Target   string
	Timeout  time.Duration
	Chooser  Chooser
	Verifier Verifier
}

type response struct {
	addrs  []string
	sender string
}

// Discover 广播一次探测并等待第一个有效应答。
// 超时未收到应答时返回 (nil, nil)；只有创建套接字失败才返回错误。
func (c *Client) Discover(ctx context.Context) (*Selection, error) {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	target := c.Target
	if target == "" {
		target = BroadcastAddr
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("open discovery socket: %w", err)
	}
	defer conn.Close()

	dst := &net.UDPAddr{IP: net.ParseIP(target), Port: port}
	if _, err := conn.WriteToUDP([]byte(RequestMarker), dst); err != nil {
		logging.Warn("send discovery probe",
			zap.String("target", dst.String()),
			zap.Error(err))
	}

	found := make(chan response, 1)
	go readResponse(conn, found)

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var resp response
	select {
	case resp = <-found:
	case <-waitCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		metrics.RecordDiscoveryProbe("timeout")
		logging.Debug("no discovery response", zap.Duration("timeout", timeout))
		return nil, nil
	}

	candidates := resp.addrs
	if len(candidates) == 0 {
		candidates = []string{resp.sender}
	}
	metrics.RecordDiscoveryProbe("found")
	return c.choose(ctx, candidates)
}

func (c *Client) choose(ctx context.Context, candidates []string) (*Selection, error) {
	if len(candidates) == 1 {
		return &Selection{Address: candidates[0], Candidates: candidates}, nil
	}

	offered := candidates
	if c.Verifier != nil {
		if reachable := c.Verifier(ctx, candidates); len(reachable) > 0 {
			offered = reachable
		} else {
			logging.Debug("no candidate passed verification, offering all",
				zap.Strings("candidates", candidates))
		}
	}
	if len(offered) == 1 {
		return &Selection{Address: offered[0], Candidates: candidates}, nil
	}

	chooser := c.Chooser
	if chooser == nil {
		chooser = FirstCandidate
	}
	chosen, err := chooser(ctx, offered)
	if err != nil {
		return nil, fmt.Errorf("choose server address: %w", err)
	}
	for _, addr := range offered {
		if addr == chosen {
			return &Selection{Address: chosen, Candidates: candidates}, nil
		}
	}
	return nil, fmt.Errorf("choose server address: %q is not a candidate", chosen)
}

// readResponse 读到第一个有效应答即返回；连接关闭时退出。
func readResponse(conn *net.UDPConn, found chan<- response) {
	buf := make([]byte, maxDatagram)
	for {
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		addrs, ok := ParseResponse(buf[:n])
		if !ok {
			logging.Debug("ignored datagram", zap.Stringer("peer", src))
			continue
		}
		found <- response{addrs: addrs, sender: src.IP.String()}
		return
	}
}
