// Package handler assembles the HTTP surface: the middleware chain, the
// operational endpoints and the versioned API.
package handler

import (
	"net/http"

	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/config"
	v1 "github.com/dmehra2102/prod-golang-projects/clinicbook/internal/handler/v1"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/clinicbook/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker func(*gin.Context) error

type RouterDeps struct {
	Config   *config.Config
	Log      *zap.Logger
	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer
	JWT      *auth.JWTManager
	Handlers v1.Handlers
	// Ready is consulted by /readyz; nil means always ready.
	Ready HealthChecker
}

func NewRouter(d RouterDeps) *gin.Engine {
	if d.Config.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.AccessLog(d.Log),
		middleware.Recovery(d.Log),
		middleware.Tracing(d.Config.Tracing.ServiceName),
		middleware.Metrics(d.Metrics),
		middleware.CORS(d.Config.CORS),
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		if d.Ready != nil {
			if err := d.Ready(c); err != nil {
				d.Log.Warn("readiness check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler(d.Gatherer)))

	global := middleware.NewIPRateLimiter(rate.Limit(d.Config.RateLimit.RequestsPerSecond), d.Config.RateLimit.BurstSize)
	authLimit := middleware.PerMinute(d.Config.RateLimit.AuthRequestsPerMinute)

	api := r.Group("/api/v1", global.Middleware())
	v1.Register(api, d.Handlers, middleware.Auth(d.JWT), authLimit.Middleware())

	return r
}
