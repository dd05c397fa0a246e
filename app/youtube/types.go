package youtube

import (
	"github.com/lysyi3m/tube-comb/app/analytics"
	"github.com/lysyi3m/tube-comb/app/format"
)

// Cache statuses reported to API clients.
const (
	StatusHit     = "hit"
	StatusMiss    = "miss"
	StatusPartial = "partial"
	StatusMixed   = "mixed"
	StatusLive    = "live"
	StatusCleared = "cleared"
	StatusError   = "error"
)

// Result carries operation data along with where it came from.
type Result[T any] struct {
	Data         T
	FromCache    bool
	CacheStatus  string
	CacheDetails map[string]CacheDetail
}

type CacheDetail struct {
	FromCache   bool   `json:"from_cache"`
	CacheStatus string `json:"cache_status"`
}

type Analytics struct {
	HasData           bool                    `json:"has_data"`
	Message           string                  `json:"message,omitempty"`
	FinalMetrics      *analytics.FinalMetrics `json:"final_metrics,omitempty"`
	DetailedBreakdown *analytics.Breakdown    `json:"detailed_breakdown,omitempty"`
}

// ChannelVideos is the result of the channel with recent videos pipeline.
type ChannelVideos struct {
	Channel   format.ChannelRecord `json:"channel"`
	Videos    []format.VideoRecord `json:"videos,omitempty"`
	Analytics Analytics            `json:"analytics"`
}
