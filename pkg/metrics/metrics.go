package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标管理器
type Metrics struct {
	registry *prometheus.Registry

	// HTTP请求指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// 安全事件
	escalationsTotal *prometheus.CounterVec
	detachedFailures *prometheus.CounterVec

	// 外部依赖耗时 (llm / tts / notifier)
	upstreamDuration *prometheus.HistogramVec
}

// NewMetrics 创建指标管理器，每个实例使用独立的 registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpResponseSize: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path", "status"},
		),

		escalationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "safety_escalations_total",
				Help: "Safety alerts processed by the escalator, by level and notification outcome",
			},
			[]string{"level", "notified"},
		),

		detachedFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "detached_task_failures_total",
				Help: "Background tasks that failed or panicked after the response was sent",
			},
			[]string{"task"},
		),

		upstreamDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "upstream_call_duration_seconds",
				Help:    "Latency of calls to model, speech and notification providers",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"service", "ok"},
		),
	}
}

// Registry 返回底层 registry
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler 暴露 /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest 记录HTTP请求指标
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration, responseSize int64) {
	code := strconv.Itoa(status)
	m.httpRequestsTotal.WithLabelValues(method, path, code).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.httpResponseSize.WithLabelValues(method, path, code).Observe(float64(responseSize))
}

// ObserveEscalation counts one escalator pass.
func (m *Metrics) ObserveEscalation(level string, notified bool) {
	m.escalationsTotal.WithLabelValues(level, strconv.FormatBool(notified)).Inc()
}

// Capture counts a failed detached task.
func (m *Metrics) Capture(task string, err error) {
	m.detachedFailures.WithLabelValues(task).Inc()
}

// ObserveUpstream 记录外部调用耗时
func (m *Metrics) ObserveUpstream(service string, started time.Time, err error) {
	m.upstreamDuration.WithLabelValues(service, strconv.FormatBool(err == nil)).Observe(time.Since(started).Seconds())
}

// Reset 重置所有指标
func (m *Metrics) Reset() {
	m.httpRequestsTotal.Reset()
	m.httpRequestDuration.Reset()
	m.httpResponseSize.Reset()
	m.escalationsTotal.Reset()
	m.detachedFailures.Reset()
	m.upstreamDuration.Reset()
}
