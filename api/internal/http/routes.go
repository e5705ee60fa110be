// internal/http/routes.go
package httpx

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/daltay15/rangeserve/api/config"
	"github.com/daltay15/rangeserve/api/internal"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	defaultReadHeaderTimeout = 10 * time.Second
	defaultIdleTimeout       = 120 * time.Second
)

// Routes registers the file serving routes on r. Every path is treated as a
// path under root.
func Routes(r *gin.Engine, root string, resolver *MimeResolver, metrics *Metrics) {
	rh := NewRangeHandler(root, resolver, metrics)

	r.GET("/*filepath", rh.Handle)
	r.HEAD("/*filepath", rh.Delegate)
	r.OPTIONS("/*filepath", Preflight)

	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.String(http.StatusNotImplemented, "Unsupported method (%q)", c.Request.Method)
	})
}

// NewRouter builds the engine with recovery, access logging and CORS applied
// to every route, including the no-route and no-method handlers.
func NewRouter(cfg config.Config, metrics *Metrics) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(RecoveryMiddleware())
	r.Use(AccessLogMiddleware(internal.Logger()))
	r.Use(CORSMiddleware())

	Routes(r, cfg.Server.Root, DefaultMimeResolver(), metrics)
	return r
}

// NewServer wraps the router in an http.Server listening on the configured
// address. There is no write timeout: media downloads may take arbitrarily
// long.
func NewServer(cfg config.Config, metrics *Metrics) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           metrics.InstrumentHandler(NewRouter(cfg, metrics)),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}
}

// RecoveryMiddleware turns a panic into a 500 carrying the panic text.
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		msg := fmt.Sprint(recovered)
		internal.NotifyCriticalError("http", "handler panicked", map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"error":  msg,
		})
		if !c.Writer.Written() {
			c.String(http.StatusInternalServerError, msg)
		}
		c.Abort()
	})
}

// AccessLogMiddleware logs one entry per request.
func AccessLogMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"bytes":    c.Writer.Size(),
			"duration": time.Since(start).String(),
			"client":   c.ClientIP(),
		}
		if rng := c.GetHeader("Range"); rng != "" {
			fields["range"] = rng
		}

		entry := logger.WithFields(fields)
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError && status != http.StatusNotImplemented:
			entry.Error("request")
		case status >= http.StatusBadRequest:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}
