package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hitushen/localbrowser/internal/fsindex"
	"github.com/hitushen/localbrowser/internal/logging"
	"github.com/hitushen/localbrowser/internal/metrics"
	"github.com/hitushen/localbrowser/internal/models"
	"github.com/hitushen/localbrowser/internal/realtime"
	"github.com/hitushen/localbrowser/internal/thumbnail"
)

// Server 负责协调 HTTP 路由与共享目录的读取逻辑。
type Server struct {
	root    *fsindex.Root
	broker  *realtime.Broker
	tracker *realtime.Tracker
}

// New 创建 Server。连接跟踪器的变化会同时推送给 SSE 订阅者并更新在线客户端指标。
func New(root *fsindex.Root) *Server {
	s := &Server{
		root:   root,
		broker: realtime.NewBroker(),
	}
	s.tracker = realtime.NewTracker(s.publishClients)
	return s
}

func (s *Server) publishClients(clients []models.ClientConn) {
	metrics.SetClientsActive(len(clients))
	s.broker.Publish(realtime.Event{
		Type:    realtime.EventClients,
		Count:   len(clients),
		Clients: clients,
	})
	logging.Debug("client list changed", zap.Int("clients", len(clients)))
}

// ConnState 需要挂到 http.Server.ConnState 上，用于跟踪连接的客户端。
func (s *Server) ConnState(c net.Conn, state http.ConnState) {
	s.tracker.ConnState(c, state)
}

// Clients 返回当前连接的客户端。
func (s *Server) Clients() []models.ClientConn {
	return s.tracker.Clients()
}

// Handler 返回根 HTTP 处理器。
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(middleware.Heartbeat("/healthz"))
	r.Use(allowAnyOrigin)

	r.Get("/files/*", s.serveFile)
	r.Get("/theme", s.serveTheme)

	r.Route("/api", func(api chi.Router) {
		api.Get("/list", s.apiList)
		api.Get("/search", s.apiSearch)
		api.Get("/file-content", s.apiFileContent)
		api.Get("/thumbnail", s.apiThumbnail)
		api.Get("/clients", s.apiClients)
		api.Get("/events", s.streamEvents)
	})

	return r
}

// allowAnyOrigin 允许其他来源（例如桌面客户端）直接读取接口与文件。
func allowAnyOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}

// statusFor 把领域错误映射为 HTTP 状态码。
func statusFor(err error) int {
	switch {
	case errors.Is(err, fsindex.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, fsindex.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, fsindex.ErrInvalidRequest), errors.Is(err, thumbnail.ErrUnsupported):
		return http.StatusBadRequest
	case errors.Is(err, fsindex.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// messageFor 返回对外展示的错误描述，越界请求不回显路径。
func messageFor(err error) string {
	switch statusFor(err) {
	case http.StatusForbidden:
		return "Access denied"
	case http.StatusNotFound:
		return "Not found"
	case http.StatusInternalServerError:
		return "Server error: " + err.Error()
	default:
		return err.Error()
	}
}

// logFailure 只记录服务端错误，客户端错误在请求日志里已经可见。
func logFailure(r *http.Request, msg string, err error) {
	if statusFor(err) != http.StatusInternalServerError || errors.Is(err, context.Canceled) {
		return
	}
	logging.Error(msg,
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err))
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func writeErr(w http.ResponseWriter, err error) {
	writeMessage(w, messageFor(err), statusFor(err))
}

func writeMessage(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeText 用于文件内容与缩略图接口，它们以纯文本返回错误。
func writeText(w http.ResponseWriter, err error) {
	http.Error(w, messageFor(err), statusFor(err))
}
