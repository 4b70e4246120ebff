package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/net/ipv4"

	"github.com/hitushen/localbrowser/internal/logging"
	"github.com/hitushen/localbrowser/internal/metrics"
)

// Responder 监听发现端口，对每个探测报文回复本机地址列表。不做限流。
type Responder struct {
	port  int
	addrs AddrSource

	mu   sync.Mutex
	conn net.PacketConn
	pc   *ipv4.PacketConn
}

// Option 调整 Responder 的行为。
type Option func(*Responder)

// WithAddrSource 替换默认的网卡地址枚举。
func WithAddrSource(src AddrSource) Option {
	return func(r *Responder) {
		if src != nil {
			r.addrs = src
		}
	}
}

// NewResponder 创建 Responder，port 为 0 时绑定随机端口。
func NewResponder(port int, opts ...Option) *Responder {
	r := &Responder{port: port, addrs: LocalIPv4Addrs}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Listen 绑定 UDP 端口。绑定失败直接返回，不重试。
func (r *Responder) Listen() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil {
		return errors.New("responder already listening")
	}
	conn, err := net.ListenPacket("udp4", fmt.Sprintf(":%d", r.port))
	if err != nil {
		return fmt.Errorf("bind discovery port %d: %w", r.port, err)
	}
	pc := ipv4.NewPacketConn(conn)
	if err := pc.SetControlMessage(ipv4.FlagInterface, true); err != nil {
		logging.Debug("interface control messages unavailable", zap.Error(err))
	}
	r.conn = conn
	r.pc = pc
	return nil
}

// Addr 返回实际绑定的地址，未监听时为 nil。
func (r *Responder) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	return r.conn.LocalAddr()
}

// ListenAndServe 等价于 Listen 后调用 Serve。
func (r *Responder) ListenAndServe(ctx context.Context) error {
	if err := r.Listen(); err != nil {
		return err
	}
	return r.Serve(ctx)
}

// Serve 循环处理探测报文，直到 ctx 取消或连接被关闭。
func (r *Responder) Serve(ctx context.Context) error {
	r.mu.Lock()
	pc := r.pc
	r.mu.Unlock()
	if pc == nil {
		return errors.New("responder is not listening")
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = r.Close()
		case <-stop:
		}
	}()

	logging.Info("discovery responder started", zap.Stringer("addr", r.Addr()))
	buf := make([]byte, maxDatagram)
	for {
		n, cm, src, err := pc.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read discovery probe: %w", err)
		}
		if !IsRequest(buf[:n]) {
			metrics.RecordDiscoveryProbe("ignored")
			continue
		}
		r.reply(pc, cm, src)
	}
}

func (r *Responder) reply(pc *ipv4.PacketConn, cm *ipv4.ControlMessage, src net.Addr) {
	ifIndex := 0
	if cm != nil {
		ifIndex = cm.IfIndex
	}
	addrs, err := r.addrs()
	if err != nil {
		logging.Warn("enumerate local addresses", zap.Error(err))
	}
	payload := EncodeResponse(orderFor(addrs, ifIndex))

	if _, err := pc.WriteTo(payload, nil, src); err != nil {
		metrics.RecordDiscoveryProbe("send_error")
		logging.Warn("send discovery reply",
			zap.Stringer("peer", src),
			zap.Error(err))
		return
	}
	metrics.RecordDiscoveryProbe("replied")
	logging.Debug("answered discovery probe",
		zap.Stringer("peer", src),
		zap.Int("if_index", ifIndex),
		zap.ByteString("payload", payload))
}

// Close 关闭监听连接，可重复调用。
func (r *Responder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	err := r.conn.Close()
	r.conn = nil
	r.pc = nil
	return err
}
