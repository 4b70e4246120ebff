// Package metrics 提供 LocalBrowser 服务端的 Prometheus 指标。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "localbrowser_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "localbrowser_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	httpClientsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "localbrowser_http_clients_active",
			Help: "Number of open HTTP client connections",
		},
	)

	discoveryProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "localbrowser_discovery_probes_total",
			Help: "UDP discovery datagrams handled by the responder",
		},
		[]string{"result"},
	)

	entriesSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "localbrowser_entries_skipped_total",
			Help: "Directory entries dropped because of permission or busy errors",
		},
		[]string{"operation"},
	)

	searchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "localbrowser_search_duration_seconds",
			Help:    "Time spent walking the served root for a search",
			Buckets: prometheus.ExponentialBuckets(0.005, 4, 8),
		},
	)

	thumbnailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "localbrowser_thumbnails_total",
			Help: "Thumbnail generation attempts",
		},
		[]string{"status"},
	)

	firewallOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "localbrowser_firewall_operations_total",
			Help: "Firewall rule operations issued by the gate",
		},
		[]string{"operation", "status"},
	)
)

// Handler 返回 Prometheus 指标的 HTTP 处理器。
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest 记录一次 HTTP 请求。
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// SetClientsActive 更新当前活跃连接数。
func SetClientsActive(count int) {
	httpClientsActive.Set(float64(count))
}

// RecordDiscoveryProbe 记录响应器处理的一个数据报，result 取 replied/ignored/send_error。
func RecordDiscoveryProbe(result string) {
	discoveryProbesTotal.WithLabelValues(result).Inc()
}

// RecordEntrySkipped 记录因权限或占用被跳过的条目。
func RecordEntrySkipped(operation string) {
	entriesSkippedTotal.WithLabelValues(operation).Inc()
}

// RecordSearch 记录一次搜索的耗时。
func RecordSearch(duration time.Duration) {
	searchDuration.Observe(duration.Seconds())
}

// RecordThumbnail 记录缩略图生成结果。
func RecordThumbnail(status string) {
	thumbnailsTotal.WithLabelValues(status).Inc()
}

// RecordFirewallOp 记录防火墙操作结果。
func RecordFirewallOp(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	firewallOpsTotal.WithLabelValues(operation, status).Inc()
}

// Middleware 记录请求指标，路由标签取 chi 的路由模式以控制基数。
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordHTTPRequest(r.Method, route, status, time.Since(start))
	})
}
