package api

import (
	"time"

	"github.com/lysyi3m/tube-comb/app/cache"
	"github.com/lysyi3m/tube-comb/app/database"
	"github.com/lysyi3m/tube-comb/app/keypool"
	"github.com/lysyi3m/tube-comb/app/tasks"
)

const (
	maxRSSChannels   = 10
	maxBatchRequests = 20
	maxVideosLimit   = 50
	defaultRetention = 30
)

// Service is the cached data layer behind the handlers.
type Service interface {
	tasks.Service
	CacheStats() cache.Stats
	ClearCache()
}

type KeyStatsProvider interface {
	Stats() keypool.Stats
}

type Handler struct {
	service   Service
	keys      KeyStatsProvider
	runner    tasks.RunnerInterface
	logs      database.LogRepository
	version   string
	startedAt time.Time
	now       func() time.Time
}

// Meta accompanies every successful response.
type Meta struct {
	FromCache    bool   `json:"from_cache"`
	CacheStatus  string `json:"cache_status"`
	Timestamp    string `json:"timestamp"`
	Count        *int   `json:"count,omitempty"`
	CacheDetails any    `json:"cache_details,omitempty"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
	Meta    Meta `json:"meta"`
}

type ErrorResponse struct {
	Success bool           `json:"success"`
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Meta    map[string]any `json:"meta"`
}

type ChannelsRequest struct {
	ChannelIDs []string `json:"channel_ids" binding:"required,min=1,dive,required"`
	Parts      []string `json:"parts"`
}

type VideosRequest struct {
	VideoIDs []string `json:"video_ids" binding:"required,min=1,dive,required"`
	Parts    []string `json:"parts"`
}

type RSSChannelsRequest struct {
	ChannelIDs []string `json:"channel_ids" binding:"required,min=1,dive,required"`
}

type BatchRequest struct {
	Requests []tasks.Request `json:"requests" binding:"required,min=1"`
}
