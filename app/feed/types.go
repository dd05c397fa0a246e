package feed

import "github.com/lysyi3m/tube-comb/app/format"

// VideoStub is one entry of a channel feed. Stubs only seed a video-details
// lookup and are never stored on their own.
type VideoStub struct {
	VideoID      string           `json:"video_id"`
	Title        string           `json:"title"`
	PublishedAt  string           `json:"published_at"`
	UpdatedAt    string           `json:"updated_at"`
	URL          string           `json:"url"`
	VideoType    format.VideoType `json:"video_type"`
	ViewsFromRSS int64            `json:"views_from_rss"`
}
