package format

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)

var categoryCleaner = strings.NewReplacer("_", " ", "(", "", ")", "")

// Formatter maps raw upstream payloads to the stable output records.
type Formatter struct {
	languages *LanguageTable
}

func NewFormatter(languages *LanguageTable) *Formatter {
	return &Formatter{languages: languages}
}

func (f *Formatter) LanguageName(code string) string {
	return f.languages.Name(code)
}

func DecodeChannel(data json.RawMessage) (RawChannel, error) {
	var raw RawChannel
	if err := json.Unmarshal(data, &raw); err != nil {
		return RawChannel{}, fmt.Errorf("failed to decode channel: %w", err)
	}
	return raw, nil
}

func DecodeVideo(data json.RawMessage) (RawVideo, error) {
	var raw RawVideo
	if err := json.Unmarshal(data, &raw); err != nil {
		return RawVideo{}, fmt.Errorf("failed to decode video: %w", err)
	}
	raw.Raw = data
	return raw, nil
}

// Channel formats a channel. analysis may be nil when no videos were inspected.
func (f *Formatter) Channel(raw RawChannel, analysis *LanguageAnalysis) ChannelRecord {
	description := raw.Snippet.Description
	email := ExtractEmail(description)

	stats := ChannelStatistics{
		ViewCount:       int64(raw.Statistics.ViewCount),
		SubscriberCount: int64(raw.Statistics.SubscriberCount),
		VideoCount:      int64(raw.Statistics.VideoCount),
	}
	perVideo := max(stats.VideoCount, 1)

	record := ChannelRecord{
		ID:                raw.ID,
		Title:             raw.Snippet.Title,
		Description:       description,
		CustomURL:         raw.Snippet.CustomURL,
		Handle:            raw.Snippet.CustomURL,
		PublishedAt:       raw.Snippet.PublishedAt,
		Thumbnails:        raw.Snippet.Thumbnails,
		Country:           raw.Snippet.Country,
		ChannelStatistics: stats,
		PrivacyStatus:     raw.Status.PrivacyStatus,
		Categories:        ParseCategories(raw.TopicDetails.TopicCategories),
		TopicCategories:   raw.TopicDetails.TopicCategories,
		UploadsPlaylist:   raw.ContentDetails.RelatedPlaylists.Uploads,
		Email:             email,
		VerificationStatus: VerificationStatus{
			HasEmail:       email != nil,
			HasCustomURL:   raw.Snippet.CustomURL != "",
			HasDescription: description != "",
			IsVerified:     raw.Status.IsLinked,
		},
		EngagementData: EngagementData{
			AvgViewsPerVideo:       stats.ViewCount / perVideo,
			SubscriberToVideoRatio: stats.SubscriberCount / perVideo,
		},
	}

	if record.Thumbnails == nil {
		record.Thumbnails = map[string]Thumbnail{}
	}
	if record.TopicCategories == nil {
		record.TopicCategories = []string{}
	}

	if code := raw.Snippet.DefaultLanguage; code != "" {
		record.DefaultLanguage = &Language{Code: code, Name: f.languages.Name(code)}
	}

	if analysis != nil {
		if analysis.PrimaryLanguage != "" {
			record.PrimaryAudioLanguage = &Language{
				Code: analysis.PrimaryLanguage,
				Name: analysis.PrimaryLanguageName,
			}
		}
		record.LanguageConfidence = analysis.LanguageConfidence
	}

	return record
}

func (f *Formatter) Video(raw RawVideo) VideoRecord {
	record := VideoRecord{
		ID:              raw.ID,
		Title:           raw.Snippet.Title,
		Description:     raw.Snippet.Description,
		ChannelID:       raw.Snippet.ChannelID,
		ChannelTitle:    raw.Snippet.ChannelTitle,
		PublishedAt:     raw.Snippet.PublishedAt,
		Thumbnails:      raw.Snippet.Thumbnails,
		CategoryID:      raw.Snippet.CategoryID,
		Duration:        raw.ContentDetails.Duration,
		ViewCount:       int64(raw.Statistics.ViewCount),
		LikeCount:       int64(raw.Statistics.LikeCount),
		CommentCount:    int64(raw.Statistics.CommentCount),
		PrivacyStatus:   raw.Status.PrivacyStatus,
		Embeddable:      raw.Status.Embeddable,
		MadeForKids:     raw.Status.MadeForKids,
		TopicCategories: raw.TopicDetails.TopicCategories,
		EmbedHTML:       raw.Player.EmbedHTML,
		VideoType:       VideoTypeUnknown,
		RawData:         raw.Raw,
	}

	if record.Thumbnails == nil {
		record.Thumbnails = map[string]Thumbnail{}
	}
	if record.TopicCategories == nil {
		record.TopicCategories = []string{}
	}

	if code := raw.Snippet.DefaultAudioLanguage; code != "" {
		record.DefaultAudioLanguage = &Language{Code: code, Name: f.languages.Name(code)}
	}

	return record
}

// ExtractEmail returns the first address-like match in text.
func ExtractEmail(text string) *string {
	if text == "" {
		return nil
	}
	match := emailPattern.FindString(text)
	if match == "" {
		return nil
	}
	return &match
}

// ParseCategories turns topic URLs such as
// https://en.wikipedia.org/wiki/Action_game into display names. URLs whose
// last path segment is empty are skipped.
func ParseCategories(topicURLs []string) []string {
	categories := make([]string, 0, len(topicURLs))
	for _, raw := range topicURLs {
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}

		segment := u.Path[strings.LastIndex(u.Path, "/")+1:]
		if segment == "" {
			continue
		}

		name := categoryCleaner.Replace(segment)
		if name == "" {
			continue
		}
		categories = append(categories, name)
	}
	return categories
}
