package api

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lysyi3m/tube-comb/app/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(requestID())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Output:    accessLog{},
		SkipPaths: []string{"/metrics", "/live"},
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\" %s",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
				param.Keys[requestIDKey],
			)
		},
	}))
	r.Use(gin.Recovery())
	r.Use(trackMetrics())

	setupRoutes(r, handler)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler) {
	api := r.Group("/api")
	{
		api.GET("/channel/:handle", handler.GetChannel)
		api.GET("/channel/:handle/videos", handler.GetChannelVideos)
		api.GET("/channel/:handle/rss", handler.GetChannelRSS)
		api.POST("/channels", handler.PostChannels)
		api.POST("/videos", handler.PostVideos)
		api.POST("/rss/channels", handler.PostRSSChannels)
		api.POST("/batch", handler.PostBatch)

		api.GET("/cache/stats", handler.GetCacheStats)
		api.POST("/cache/clear", handler.PostCacheClear)
		api.GET("/keys/stats", handler.GetKeyStats)
		api.GET("/stats", handler.GetStats)

		api.GET("/logs", handler.GetLogs)
		api.GET("/logs/stats", handler.GetLogStats)
		api.POST("/logs/cleanup", handler.PostLogsCleanup)
	}

	r.GET("/health", handler.GetHealth)
	r.GET("/ready", handler.GetReady)
	r.GET("/live", handler.GetLive)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/", handler.GetIndex)

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}

// requestID propagates or assigns a request id.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func trackMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// accessLog sends gin access lines through slog.
type accessLog struct{}

func (accessLog) Write(p []byte) (int, error) {
	slog.Info(strings.TrimSpace(string(p)), "component", "http")
	return len(p), nil
}
