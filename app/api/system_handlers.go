package api

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/tube-comb/app/database"
	"github.com/lysyi3m/tube-comb/app/youtube"
)

func (h *Handler) uptime() float64 {
	return h.now().Sub(h.startedAt).Seconds()
}

func memoryMB() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return float64(m.Alloc) / 1024 / 1024
}

func (h *Handler) GetHealth(c *gin.Context) {
	keys := h.keys.Stats()

	health := gin.H{
		"status":         "healthy",
		"server_time":    h.timestamp(),
		"uptime_seconds": h.uptime(),
		"version":        h.version,
		"system": gin.H{
			"goroutines":      runtime.NumGoroutine(),
			"memory_usage_mb": memoryMB(),
			"go_version":      runtime.Version(),
		},
		"application": gin.H{
			"cache_stats":       h.service.CacheStats(),
			"log_store_enabled": h.logs != nil,
		},
		"dependencies": gin.H{
			"api_keys_configured": keys.TotalKeys > 0,
			"api_keys_available":  keys.AvailableKeys,
		},
	}

	h.success(c, health, Meta{CacheStatus: youtube.StatusLive})
}

// GetReady reports ready while at least one key can serve requests.
func (h *Handler) GetReady(c *gin.Context) {
	keys := h.keys.Stats()

	checks := gin.H{"cache": "ok", "api_keys": "ok", "log_store": "disabled"}
	ready := keys.AvailableKeys > 0
	if !ready {
		checks["api_keys"] = "exhausted"
	}

	if h.logs != nil {
		if _, err := h.logs.GetLogStats(); err != nil {
			checks["log_store"] = err.Error()
			ready = false
		} else {
			checks["log_store"] = "ok"
		}
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "timestamp": h.timestamp(), "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "timestamp": h.timestamp(), "checks": checks})
}

func (h *Handler) GetLive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive", "timestamp": h.timestamp()})
}

func (h *Handler) GetCacheStats(c *gin.Context) {
	h.success(c, h.service.CacheStats(), Meta{CacheStatus: youtube.StatusLive})
}

func (h *Handler) PostCacheClear(c *gin.Context) {
	h.service.ClearCache()
	h.success(c, gin.H{"message": "Cache cleared successfully"}, Meta{CacheStatus: youtube.StatusCleared})
}

func (h *Handler) GetKeyStats(c *gin.Context) {
	h.success(c, h.keys.Stats(), Meta{CacheStatus: youtube.StatusLive})
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := gin.H{
		"server": gin.H{
			"version":         h.version,
			"uptime_seconds":  h.uptime(),
			"memory_usage_mb": memoryMB(),
			"goroutines":      runtime.NumGoroutine(),
			"started_at":      h.startedAt.Format(time.RFC3339),
		},
		"cache": h.service.CacheStats(),
		"keys":  h.keys.Stats(),
	}

	h.success(c, stats, Meta{CacheStatus: youtube.StatusLive})
}

func (h *Handler) logStoreDisabled(c *gin.Context) bool {
	if h.logs != nil {
		return false
	}
	h.failure(c, http.StatusServiceUnavailable, "Log store disabled", "Persistent logging is not configured", nil)
	return true
}

func queryInt(c *gin.Context, name string, fallback int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (h *Handler) GetLogs(c *gin.Context) {
	if h.logStoreDisabled(c) {
		return
	}

	logType := c.DefaultQuery("type", database.LogTypeAll)
	switch logType {
	case database.LogTypeAll, database.LogTypeAPI, database.LogTypeError, database.LogTypeAccess:
	default:
		h.failure(c, http.StatusBadRequest, "Invalid parameter", "type must be one of all, api, error, access", gin.H{"received": logType})
		return
	}

	limit, okLimit := queryInt(c, "limit", 100)
	offset, okOffset := queryInt(c, "offset", 0)
	if !okLimit || !okOffset {
		h.failure(c, http.StatusBadRequest, "Invalid parameter", "limit and offset must be non-negative integers", nil)
		return
	}

	page, err := h.logs.GetLogs(database.LogFilter{
		Level:  c.DefaultQuery("level", "all"),
		Type:   logType,
		Logger: c.Query("logger"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.serviceError(c, "get_logs", err)
		return
	}

	h.success(c, page, Meta{CacheStatus: youtube.StatusLive, Count: count(page.ReturnedCount)})
}

func (h *Handler) GetLogStats(c *gin.Context) {
	if h.logStoreDisabled(c) {
		return
	}

	stats, err := h.logs.GetLogStats()
	if err != nil {
		h.serviceError(c, "get_log_stats", err)
		return
	}

	h.success(c, stats, Meta{CacheStatus: youtube.StatusLive})
}

func (h *Handler) PostLogsCleanup(c *gin.Context) {
	if h.logStoreDisabled(c) {
		return
	}

	days, ok := queryInt(c, "days", defaultRetention)
	if !ok {
		h.failure(c, http.StatusBadRequest, "Invalid parameter", "days must be a non-negative integer", gin.H{"received": c.Query("days")})
		return
	}

	result, err := h.logs.CleanupLogs(days)
	if err != nil {
		h.serviceError(c, "cleanup_logs", err)
		return
	}

	h.success(c, result, Meta{CacheStatus: youtube.StatusLive})
}

func (h *Handler) GetIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":     "Tube Comb",
		"version":     h.version,
		"description": "Video platform data API gateway with caching, key rotation, batch processing and channel analytics",
		"endpoints": gin.H{
			"channel":        "GET /api/channel/<handle>",
			"channels":       "POST /api/channels",
			"videos":         "POST /api/videos",
			"channel_videos": "GET /api/channel/<handle>/videos?max_videos=15&include_detailed=false",
			"channel_rss":    "GET /api/channel/<channel_id>/rss",
			"rss_channels":   "POST /api/rss/channels",
			"batch":          "POST /api/batch",
			"cache_stats":    "GET /api/cache/stats",
			"cache_clear":    "POST /api/cache/clear",
			"key_stats":      "GET /api/keys/stats",
			"stats":          "GET /api/stats",
			"logs":           "GET /api/logs",
			"log_stats":      "GET /api/logs/stats",
			"log_cleanup":    "POST /api/logs/cleanup?days=30",
			"health":         "GET /health",
			"ready":          "GET /ready",
			"live":           "GET /live",
			"metrics":        "GET /metrics",
		},
	})
}
