package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hitushen/localbrowser/internal/config"
	"github.com/hitushen/localbrowser/internal/discovery"
	"github.com/hitushen/localbrowser/internal/firewall"
	"github.com/hitushen/localbrowser/internal/fsindex"
	"github.com/hitushen/localbrowser/internal/logging"
	"github.com/hitushen/localbrowser/internal/metrics"
	"github.com/hitushen/localbrowser/internal/models"
	"github.com/hitushen/localbrowser/internal/server"
	"github.com/hitushen/localbrowser/internal/shutdown"
	"github.com/hitushen/localbrowser/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer func() { _ = logging.Sync() }()

	root, err := fsindex.New(cfg.ContentPath, fsindex.Options{
		MaxSearchResults: cfg.SearchMaxResults,
		MaxTextBytes:     cfg.MaxTextBytes,
	})
	if err != nil {
		logging.Fatal("content path", zap.Error(err))
	}
	httpPort, _ := cfg.HTTPPort()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 防火墙规则必须在监听之前放行。
	var gate *firewall.Gate
	if cfg.ManageFirewall && firewall.Supported() {
		st, err := store.New(cfg.DBPath)
		if err != nil {
			logging.Fatal("store", zap.Error(err))
		}
		defer st.Close()

		gate = firewall.NewGate(firewall.NewNetsh(), firewall.WithLedger(st))
		if err := openPorts(ctx, gate, cfg.DiscoveryPort, httpPort); err != nil {
			if errors.Is(err, firewall.ErrPrivilegeRequired) {
				logging.Fatal("administrator privilege is required to manage firewall rules; run elevated or set LOCALBROWSER_MANAGE_FIREWALL=false")
			}
			logging.Error("open firewall ports", zap.Error(err))
		}
	} else {
		logging.Debug("firewall management skipped",
			zap.Bool("enabled", cfg.ManageFirewall),
			zap.Bool("supported", firewall.Supported()))
	}

	responder := discovery.NewResponder(cfg.DiscoveryPort)
	if err := responder.Listen(); err != nil {
		logging.Error("discovery responder disabled", zap.Error(err))
	} else {
		go func() {
			if err := responder.Serve(ctx); err != nil {
				logging.Error("discovery responder stopped", zap.Error(err))
			}
		}()
	}

	srv := server.New(root)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ConnState:         srv.ConnState,
		ReadHeaderTimeout: 10 * time.Second,
		// 关闭时取消所有请求上下文，结束 SSE 与进行中的搜索。
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 2)
	go func() {
		logging.Info("LocalBrowser listening",
			zap.String("addr", cfg.Addr),
			zap.String("root", root.Path()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			logging.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}()
	}

	servers := []*http.Server{httpServer}
	if metricsServer != nil {
		servers = append(servers, metricsServer)
	}
	cleanup := newCleanup(cancel, servers, responder, gate)

	stop := make(chan os.Signal, 2)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	waitForShutdown(stop, serveErr, cleanup)
}

// newCleanup 依次取消请求上下文、关闭 HTTP 服务与发现应答器，最后撤销防火墙规则。
func newCleanup(cancel context.CancelFunc, servers []*http.Server, responder io.Closer, gate *firewall.Gate) func() {
	return func() {
		logging.Info("shutting down...")
		cancel()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
		for _, s := range servers {
			if err := s.Shutdown(shutdownCtx); err != nil {
				logging.Warn("http shutdown", zap.String("addr", s.Addr), zap.Error(err))
			}
		}
		if responder != nil {
			_ = responder.Close()
		}
		if gate != nil {
			// 删除失败只记录，不阻塞退出。
			if err := gate.RetractEnsured(shutdownCtx); err != nil {
				logging.Warn("firewall cleanup", zap.Error(err))
			}
		}
	}
}

// waitForShutdown 阻塞到收到信号或服务异常为止。
// 信号、服务异常与正常返回共用同一个 guard，cleanup 只执行一次。
func waitForShutdown(stop <-chan os.Signal, serveErr <-chan error, cleanup func()) {
	guard := shutdown.New()
	defer guard.Do(cleanup)

	go func() {
		for sig := range stop {
			logging.Info("signal received", zap.String("signal", sig.String()))
			guard.Do(cleanup)
		}
	}()

	select {
	case <-guard.Done():
	case err := <-serveErr:
		logging.Error("server failed", zap.Error(err))
	}
}

// openPorts 清理上次运行遗留的规则，然后放行发现端口与 HTTP 端口。
func openPorts(ctx context.Context, gate *firewall.Gate, discoveryPort, httpPort int) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := gate.RetractStale(ctx); err != nil {
		if errors.Is(err, firewall.ErrPrivilegeRequired) {
			return err
		}
		logging.Warn("retract stale firewall rules", zap.Error(err))
	}
	if _, err := gate.EnsureInboundAllowed(ctx, models.ProtocolUDP, discoveryPort); err != nil {
		return err
	}
	if _, err := gate.EnsureInboundAllowed(ctx, models.ProtocolTCP, httpPort); err != nil {
		return err
	}
	if _, err := gate.EnsureOutboundAllowed(ctx, models.ProtocolTCP, httpPort); err != nil {
		return err
	}
	return nil
}
