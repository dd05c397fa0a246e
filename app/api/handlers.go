package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/tube-comb/app/database"
	"github.com/lysyi3m/tube-comb/app/feed"
	"github.com/lysyi3m/tube-comb/app/tasks"
	"github.com/lysyi3m/tube-comb/app/youtube"
)

func NewHandler(service Service, keys KeyStatsProvider, runner tasks.RunnerInterface,
	logs database.LogRepository, version string) *Handler {
	return &Handler{
		service:   service,
		keys:      keys,
		runner:    runner,
		logs:      logs,
		version:   version,
		startedAt: time.Now(),
		now:       time.Now,
	}
}

// queryParts accepts both ?parts=a&parts=b and ?parts=a,b.
func queryParts(c *gin.Context) []string {
	var parts []string
	for _, value := range c.QueryArray("parts") {
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
	}
	return parts
}

func (h *Handler) GetChannel(c *gin.Context) {
	handle := youtube.NormalizeHandle(c.Param("handle"))
	if handle == "" {
		h.failure(c, http.StatusBadRequest, "Missing required parameter", "handle is required", gin.H{"required_fields": []string{"handle"}})
		return
	}

	res, err := h.service.ChannelByHandle(c.Request.Context(), handle, queryParts(c))
	if err != nil {
		h.serviceError(c, "channel_by_handle", err)
		return
	}

	if res.Data == nil {
		h.failure(c, http.StatusNotFound, "Channel not found", "No channel found with handle: @"+handle, gin.H{"handle": handle})
		return
	}

	h.success(c, res.Data, Meta{FromCache: res.FromCache, CacheStatus: res.CacheStatus})
}

func (h *Handler) PostChannels(c *gin.Context) {
	var req ChannelsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	res, err := h.service.ChannelsByID(c.Request.Context(), req.ChannelIDs, req.Parts)
	if err != nil {
		h.serviceError(c, "channels_by_id", err)
		return
	}

	h.success(c, res.Data, Meta{FromCache: res.FromCache, CacheStatus: res.CacheStatus, Count: count(len(res.Data))})
}

func (h *Handler) PostVideos(c *gin.Context) {
	var req VideosRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	res, err := h.service.VideosByID(c.Request.Context(), req.VideoIDs, req.Parts)
	if err != nil {
		h.serviceError(c, "videos_by_id", err)
		return
	}

	h.success(c, res.Data, Meta{FromCache: res.FromCache, CacheStatus: res.CacheStatus, Count: count(len(res.Data))})
}

func (h *Handler) GetChannelVideos(c *gin.Context) {
	handle := youtube.NormalizeHandle(c.Param("handle"))

	maxVideos := youtube.DefaultMaxVideos
	if raw := c.Query("max_videos"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxVideosLimit {
			h.failure(c, http.StatusBadRequest, "Invalid parameter",
				fmt.Sprintf("max_videos must be an integer between 1 and %d", maxVideosLimit),
				gin.H{"received": raw})
			return
		}
		maxVideos = n
	}
	includeDetailed := strings.EqualFold(c.Query("include_detailed"), "true")

	res, err := h.service.RecentVideos(c.Request.Context(), handle, maxVideos, includeDetailed)
	if err != nil {
		h.serviceError(c, "channel_recent_videos", err)
		return
	}

	if res.Data == nil {
		h.failure(c, http.StatusNotFound, "Channel not found", "No channel found with handle: @"+handle, gin.H{"handle": handle})
		return
	}

	h.success(c, res.Data, Meta{FromCache: res.FromCache, CacheStatus: res.CacheStatus, CacheDetails: res.CacheDetails})
}

func (h *Handler) GetChannelRSS(c *gin.Context) {
	channelID := c.Param("handle")

	res, err := h.service.ChannelRSS(c.Request.Context(), channelID)
	if err != nil {
		h.serviceError(c, "channel_rss", err)
		return
	}

	h.success(c, res.Data, Meta{FromCache: res.FromCache, CacheStatus: res.CacheStatus, Count: count(len(res.Data))})
}

func (h *Handler) PostRSSChannels(c *gin.Context) {
	var req RSSChannelsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	if len(req.ChannelIDs) > maxRSSChannels {
		h.failure(c, http.StatusBadRequest, "Request limit exceeded",
			fmt.Sprintf("Maximum %d channels allowed per request", maxRSSChannels),
			gin.H{"max_allowed": maxRSSChannels, "received_count": len(req.ChannelIDs)})
		return
	}

	results := make(map[string][]feed.VideoStub, len(req.ChannelIDs))
	details := make(map[string]tasks.ItemInfo, len(req.ChannelIDs))
	for _, id := range req.ChannelIDs {
		res, err := h.service.ChannelRSS(c.Request.Context(), id)
		if err != nil {
			h.serviceError(c, "channel_rss", err)
			return
		}
		results[id] = res.Data
		details[id] = tasks.ItemInfo{FromCache: res.FromCache, CacheStatus: res.CacheStatus}
	}

	fromCache, status := tasks.Aggregate(details)
	h.success(c, results, Meta{FromCache: fromCache, CacheStatus: status, CacheDetails: details, Count: count(len(results))})
}

func (h *Handler) PostBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	if len(req.Requests) > maxBatchRequests {
		h.failure(c, http.StatusBadRequest, "Request limit exceeded",
			fmt.Sprintf("Maximum %d requests per batch", maxBatchRequests),
			gin.H{"max_allowed": maxBatchRequests, "received_count": len(req.Requests)})
		return
	}

	batch := h.runner.Run(c.Request.Context(), req.Requests)
	c.Header("X-Batch-ID", batch.ID)

	h.success(c, batch.Results, Meta{
		FromCache:    batch.FromCache,
		CacheStatus:  batch.CacheStatus,
		CacheDetails: batch.Items,
		Count:        count(len(batch.Results)),
	})
}
