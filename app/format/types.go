package format

import (
	"encoding/json"
	"strconv"
)

type VideoType string

const (
	VideoTypeShorts  VideoType = "shorts"
	VideoTypeLong    VideoType = "long"
	VideoTypeUnknown VideoType = "unknown"
)

// Count is an upstream statistic. The data API sends counts as decimal
// strings; anything absent or non-numeric decodes to 0.
type Count int64

func (c *Count) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*c = Count(max(n, 0))
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
			*c = Count(n)
			return nil
		}
	}

	*c = 0
	return nil
}

type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Raw upstream payloads

type RawChannel struct {
	ID      string `json:"id"`
	Snippet struct {
		Title           string               `json:"title"`
		Description     string               `json:"description"`
		CustomURL       string               `json:"customUrl"`
		PublishedAt     string               `json:"publishedAt"`
		Thumbnails      map[string]Thumbnail `json:"thumbnails"`
		Country         string               `json:"country"`
		DefaultLanguage string               `json:"defaultLanguage"`
	} `json:"snippet"`
	Statistics struct {
		ViewCount       Count `json:"viewCount"`
		SubscriberCount Count `json:"subscriberCount"`
		VideoCount      Count `json:"videoCount"`
	} `json:"statistics"`
	Status struct {
		PrivacyStatus string `json:"privacyStatus"`
		IsLinked      bool   `json:"isLinked"`
	} `json:"status"`
	TopicDetails struct {
		TopicCategories []string `json:"topicCategories"`
	} `json:"topicDetails"`
	ContentDetails struct {
		RelatedPlaylists struct {
			Uploads string `json:"uploads"`
		} `json:"relatedPlaylists"`
	} `json:"contentDetails"`
}

type RawVideo struct {
	ID      string `json:"id"`
	Snippet struct {
		Title                string               `json:"title"`
		Description          string               `json:"description"`
		ChannelID            string               `json:"channelId"`
		ChannelTitle         string               `json:"channelTitle"`
		PublishedAt          string               `json:"publishedAt"`
		Thumbnails           map[string]Thumbnail `json:"thumbnails"`
		CategoryID           string               `json:"categoryId"`
		DefaultAudioLanguage string               `json:"defaultAudioLanguage"`
	} `json:"snippet"`
	ContentDetails struct {
		Duration string `json:"duration"`
	} `json:"contentDetails"`
	Statistics struct {
		ViewCount    Count `json:"viewCount"`
		LikeCount    Count `json:"likeCount"`
		CommentCount Count `json:"commentCount"`
	} `json:"statistics"`
	Status struct {
		PrivacyStatus string `json:"privacyStatus"`
		Embeddable    *bool  `json:"embeddable"`
		MadeForKids   *bool  `json:"madeForKids"`
	} `json:"status"`
	TopicDetails struct {
		TopicCategories []string `json:"topicCategories"`
	} `json:"topicDetails"`
	Player struct {
		EmbedHTML string `json:"embedHtml"`
	} `json:"player"`

	// Raw is the payload exactly as received.
	Raw json.RawMessage `json:"-"`
}

// ListResponse is the envelope of channels and videos list calls.
type ListResponse struct {
	Items []json.RawMessage `json:"items"`
}

// Formatted records

type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type ChannelStatistics struct {
	ViewCount       int64 `json:"view_count"`
	SubscriberCount int64 `json:"subscriber_count"`
	VideoCount      int64 `json:"video_count"`
}

type VerificationStatus struct {
	HasEmail       bool `json:"has_email"`
	HasCustomURL   bool `json:"has_custom_url"`
	HasDescription bool `json:"has_description"`
	IsVerified     bool `json:"is_verified"`
}

type EngagementData struct {
	AvgViewsPerVideo       int64 `json:"avg_views_per_video"`
	SubscriberToVideoRatio int64 `json:"subscriber_to_video_ratio"`
}

type ChannelRecord struct {
	ID                   string               `json:"id"`
	Title                string               `json:"title"`
	Description          string               `json:"description"`
	CustomURL            string               `json:"custom_url"`
	Handle               string               `json:"handle"`
	PublishedAt          string               `json:"published_at"`
	Thumbnails           map[string]Thumbnail `json:"thumbnails"`
	Country              string               `json:"country"`
	DefaultLanguage      *Language            `json:"default_language"`
	PrimaryAudioLanguage *Language            `json:"primary_audio_language"`
	LanguageConfidence   float64              `json:"language_confidence"`
	ChannelStatistics
	PrivacyStatus      string             `json:"privacy_status"`
	Categories         []string           `json:"categories"`
	TopicCategories    []string           `json:"topic_categories"`
	UploadsPlaylist    string             `json:"uploads_playlist"`
	Email              *string            `json:"email"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	EngagementData     EngagementData     `json:"engagement_data"`
}

type VideoRecord struct {
	ID                   string               `json:"id"`
	Title                string               `json:"title"`
	Description          string               `json:"description"`
	ChannelID            string               `json:"channel_id"`
	ChannelTitle         string               `json:"channel_title"`
	PublishedAt          string               `json:"published_at"`
	Thumbnails           map[string]Thumbnail `json:"thumbnails"`
	CategoryID           string               `json:"category_id"`
	DefaultAudioLanguage *Language            `json:"default_audio_language"`
	Duration             string               `json:"duration"`
	ViewCount            int64                `json:"view_count"`
	LikeCount            int64                `json:"like_count"`
	CommentCount         int64                `json:"comment_count"`
	PrivacyStatus        string               `json:"privacy_status"`
	Embeddable           *bool                `json:"embeddable"`
	MadeForKids          *bool                `json:"made_for_kids"`
	TopicCategories      []string             `json:"topic_categories"`
	EmbedHTML            string               `json:"embed_html"`
	VideoType            VideoType            `json:"video_type"`
	RSSURL               string               `json:"rss_url,omitempty"`
	RawData              json.RawMessage      `json:"raw_data"`
}

// LanguageAnalysis summarizes the audio languages of a set of videos.
type LanguageAnalysis struct {
	PrimaryLanguage     string                   `json:"primary_language"`
	PrimaryLanguageName string                   `json:"primary_language_name"`
	LanguageConfidence  float64                  `json:"language_confidence"`
	TotalVideosAnalyzed int                      `json:"total_videos_analyzed"`
	Distribution        map[string]LanguageShare `json:"language_distribution"`
	LanguagesDetected   []string                 `json:"languages_detected"`
}

type LanguageShare struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}
