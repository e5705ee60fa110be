package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/daltay15/rangeserve/api/internal"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for one server.
type Metrics struct {
	registry     *prometheus.Registry
	partialBytes prometheus.Counter
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	responseSize *prometheus.HistogramVec
	mediaEvents  *prometheus.CounterVec

	disk  *internal.DiskMonitor
	media *internal.MediaWatcher
}

// NewMetrics creates collectors on a fresh registry, so several servers (and
// tests) never collide on the global one.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		partialBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rangeserve",
			Name:      "partial_bytes_total",
			Help:      "Bytes written in 206 Partial Content responses.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests made.",
		}, []string{"method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "The HTTP request latencies in seconds.",
		}, nil),
		// 1KB, 100KB, 1MB, 100MB, 1GB
		responseSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "The HTTP response sizes in bytes.",
			Buckets:   []float64{1024, 100 * 1024, 1024 * 1024, 100 * 1024 * 1024, 1024 * 1024 * 1024},
		}, nil),
		mediaEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rangeserve",
			Subsystem: "watcher",
			Name:      "media_events_total",
			Help:      "Media file changes seen under the served root, by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.partialBytes, m.requests, m.duration, m.responseSize)
	return m
}

func (m *Metrics) addPartialBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.partialBytes.Add(float64(n))
}

// WatchDisk exports the latest reading of dm and adds it to /health.
func (m *Metrics) WatchDisk(dm *internal.DiskMonitor) {
	m.disk = dm
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "rangeserve",
			Subsystem: "disk",
			Name:      "used_percent",
			Help:      "Used space on the filesystem holding the served root.",
		}, func() float64 { return dm.Status().UsedPercent }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "rangeserve",
			Subsystem: "disk",
			Name:      "free_bytes",
			Help:      "Free space on the filesystem holding the served root.",
		}, func() float64 { return float64(dm.Status().Free) }),
	)
}

// WatchMedia exports the counters of mw, adds it to /health and consumes its
// events until ctx is done.
func (m *Metrics) WatchMedia(ctx context.Context, mw *internal.MediaWatcher) {
	m.media = mw
	m.registry.MustRegister(
		m.mediaEvents,
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "rangeserve",
			Subsystem: "watcher",
			Name:      "fs_events_total",
			Help:      "Filesystem events received by the media watcher.",
		}, func() float64 { return float64(mw.Stats().TotalEvents) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "rangeserve",
			Subsystem: "watcher",
			Name:      "errors_total",
			Help:      "Errors reported by the media watcher.",
		}, func() float64 { return float64(mw.Stats().ErrorCount) }),
	)
	go m.countMediaEvents(ctx, mw.Events())
}

func (m *Metrics) countMediaEvents(ctx context.Context, events <-chan internal.MediaEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			kind, _, _ := strings.Cut(ev.ContentType, "/")
			m.mediaEvents.WithLabelValues(kind).Inc()
		}
	}
}

// InstrumentHandler wraps handler with request count, latency and response
// size instrumentation. A nil receiver returns handler unchanged.
func (m *Metrics) InstrumentHandler(handler http.Handler) http.Handler {
	if m == nil {
		return handler
	}
	return promhttp.InstrumentHandlerDuration(m.duration,
		promhttp.InstrumentHandlerCounter(m.requests,
			promhttp.InstrumentHandlerResponseSize(m.responseSize, handler)))
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// health reports the state of whatever monitors are attached.
func (m *Metrics) health(c *gin.Context) {
	resp := gin.H{"status": "ok"}

	if m.disk != nil {
		u := m.disk.Status()
		disk := gin.H{
			"enabled":      m.disk.Enabled(),
			"path":         u.Path,
			"used_percent": u.UsedPercent,
			"free_bytes":   u.Free,
			"total_bytes":  u.Total,
		}
		if !u.CheckedAt.IsZero() {
			disk["checked_at"] = u.CheckedAt
		}
		if u.Err != nil {
			disk["error"] = u.Err.Error()
			resp["status"] = "degraded"
		}
		resp["disk"] = disk
	}

	if m.media != nil {
		stats := m.media.Stats()
		resp["watcher"] = gin.H{
			"tracked_files": stats.TrackedFiles,
			"total_events":  stats.TotalEvents,
			"error_count":   stats.ErrorCount,
		}
	}

	c.JSON(http.StatusOK, resp)
}

// MonitoringRouter serves /metrics and /health.
func (m *Metrics) MonitoringRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(RecoveryMiddleware())
	r.GET("/metrics", gin.WrapH(m.Handler()))
	r.GET("/health", m.health)
	return r
}

// MetricsServer returns a server exposing the monitoring routes on addr.
func (m *Metrics) MetricsServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           m.MonitoringRouter(),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}
}
