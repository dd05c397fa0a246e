package analytics

import "github.com/lysyi3m/tube-comb/app/format"

const (
	FormatShorts = "shorts"
	FormatLong   = "long"
	FormatMixed  = "mixed"

	ChannelTypeShort = "short"
	ChannelTypeLong  = "long"
)

// WindowMetrics aggregates the newest videos of one window.
type WindowMetrics struct {
	VideoCount    int   `json:"video_count"`
	AvgViews      int64 `json:"avg_views"`
	AvgLikes      int64 `json:"avg_likes"`
	AvgComments   int64 `json:"avg_comments"`
	TotalViews    int64 `json:"total_views"`
	TotalLikes    int64 `json:"total_likes"`
	TotalComments int64 `json:"total_comments"`
}

type WindowSummary struct {
	AvgViews    int64   `json:"avg_views"`
	AvgLikes    int64   `json:"avg_likes"`
	AvgComments int64   `json:"avg_comments"`
	ER          float64 `json:"er"`
}

type FormatMetrics struct {
	Last6  WindowSummary `json:"last_6_videos"`
	Last15 WindowSummary `json:"last_15_videos"`
}

type ContentDistribution struct {
	ShortCount   int     `json:"short_count"`
	LongCount    int     `json:"long_count"`
	ShortPercent float64 `json:"short_percent"`
	LongPercent  float64 `json:"long_percent"`
}

// FinalMetrics is the metrics block returned to API clients.
type FinalMetrics struct {
	ChannelType         string              `json:"channel_type"`
	Short               FormatMetrics       `json:"short"`
	Long                FormatMetrics       `json:"long"`
	ContentDistribution ContentDistribution `json:"content_distribution"`
}

type OverallMetrics struct {
	Last6  WindowMetrics `json:"last_6_videos"`
	Last15 WindowMetrics `json:"last_15_videos"`
}

type TypeMetrics struct {
	Last6    WindowMetrics `json:"last_6_videos"`
	Last15   WindowMetrics `json:"last_15_videos"`
	ERLast6  float64       `json:"er_last_6"`
	ERLast15 float64       `json:"er_last_15"`
}

type VideoDistribution struct {
	ShortsCount      int     `json:"total_shorts"`
	LongCount        int     `json:"total_long"`
	ShortsPercentage float64 `json:"shorts_percentage"`
	LongPercentage   float64 `json:"long_percentage"`
}

type Breakdown struct {
	Overall           OverallMetrics          `json:"overall_metrics"`
	Shorts            TypeMetrics             `json:"shorts_metrics"`
	Long              TypeMetrics             `json:"long_form_metrics"`
	VideoDistribution VideoDistribution       `json:"video_distribution"`
	LanguageAnalysis  format.LanguageAnalysis `json:"language_analysis"`
}

// Report is the full result of one analysis run.
type Report struct {
	HasData       bool
	PrimaryFormat string
	Final         FinalMetrics
	Breakdown     Breakdown
	Language      format.LanguageAnalysis
}
