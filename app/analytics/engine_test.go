package analytics

import (
	"encoding/json"
	"testing"

	"github.com/lysyi3m/tube-comb/app/format"
)

func testNames() Namer {
	return format.NewLanguageTable(map[string]string{
		"en": "English",
		"es": "Spanish",
		"de": "German",
	})
}

func video(videoType format.VideoType, views, likes, comments int64) format.VideoRecord {
	return format.VideoRecord{
		VideoType:    videoType,
		ViewCount:    views,
		LikeCount:    likes,
		CommentCount: comments,
	}
}

func repeat(n int, v format.VideoRecord) []format.VideoRecord {
	videos := make([]format.VideoRecord, n)
	for i := range videos {
		videos[i] = v
	}
	return videos
}

func TestEngagementRate(t *testing.T) {
	videos := repeat(6, video(format.VideoTypeLong, 1000, 100, 50))

	if er := EngagementRate(videos, 50000, 6); er != 1.8 {
		t.Errorf("Expected ER 1.8, got %v", er)
	}
	if er := EngagementRate(videos, 0, 6); er != 0 {
		t.Errorf("Expected ER 0 without subscribers, got %v", er)
	}
	if er := EngagementRate(nil, 50000, 6); er != 0 {
		t.Errorf("Expected ER 0 for empty partition, got %v", er)
	}
}

func TestEngagementRateRounding(t *testing.T) {
	videos := []format.VideoRecord{video(format.VideoTypeLong, 0, 1, 0)}

	if er := EngagementRate(videos, 3, 6); er != 33.3333 {
		t.Errorf("Expected ER 33.3333, got %v", er)
	}
}

func TestWindowTruncates(t *testing.T) {
	videos := []format.VideoRecord{
		video(format.VideoTypeLong, 10, 3, 1),
		video(format.VideoTypeLong, 11, 4, 2),
		video(format.VideoTypeLong, 99, 9, 9),
	}

	m := Window(videos, 2)
	if m.VideoCount != 2 {
		t.Errorf("Expected 2 videos in window, got %d", m.VideoCount)
	}
	if m.TotalViews != 21 || m.AvgViews != 10 {
		t.Errorf("Expected 21 total / 10 avg views, got %d / %d", m.TotalViews, m.AvgViews)
	}
	if m.AvgLikes != 3 || m.AvgComments != 1 {
		t.Errorf("Expected avg likes 3 and comments 1, got %d and %d", m.AvgLikes, m.AvgComments)
	}

	if empty := Window(nil, 6); empty != (WindowMetrics{}) {
		t.Errorf("Expected zero window for no videos, got %+v", empty)
	}
}

func TestAnalyzeShortsDominant(t *testing.T) {
	videos := append(
		repeat(8, video(format.VideoTypeShorts, 5000, 200, 10)),
		repeat(2, video(format.VideoTypeLong, 20000, 900, 100))...,
	)

	report := Analyze(videos, 10000, testNames())

	if !report.HasData {
		t.Fatal("Expected report to have data")
	}
	if report.PrimaryFormat != FormatShorts {
		t.Errorf("Expected primary format shorts, got %s", report.PrimaryFormat)
	}
	if report.Final.ChannelType != ChannelTypeShort {
		t.Errorf("Expected channel type short, got %s", report.Final.ChannelType)
	}

	dist := report.Final.ContentDistribution
	if dist.ShortCount != 8 || dist.LongCount != 2 {
		t.Errorf("Expected 8 shorts and 2 long, got %d and %d", dist.ShortCount, dist.LongCount)
	}
	if dist.ShortPercent != 80 || dist.LongPercent != 20 {
		t.Errorf("Expected 80/20 split, got %v/%v", dist.ShortPercent, dist.LongPercent)
	}

	// 6 shorts * 210 engagement over 10000 subscribers
	if er := report.Final.Short.Last6.ER; er != 12.6 {
		t.Errorf("Expected shorts ER 12.6, got %v", er)
	}
	if avg := report.Final.Long.Last15.AvgViews; avg != 20000 {
		t.Errorf("Expected long avg views 20000, got %d", avg)
	}
	if n := report.Breakdown.Overall.Last15.VideoCount; n != 10 {
		t.Errorf("Expected overall window of 10 videos, got %d", n)
	}
}

func TestAnalyzeMixedPicksHigherER(t *testing.T) {
	tests := []struct {
		name     string
		shorts   format.VideoRecord
		long     format.VideoRecord
		expected string
	}{
		{
			name:     "shorts engage more",
			shorts:   video(format.VideoTypeShorts, 100, 50, 0),
			long:     video(format.VideoTypeLong, 100, 10, 0),
			expected: ChannelTypeShort,
		},
		{
			name:     "long engages more",
			shorts:   video(format.VideoTypeShorts, 100, 10, 0),
			long:     video(format.VideoTypeLong, 100, 50, 0),
			expected: ChannelTypeLong,
		},
		{
			name:     "tie resolves to long",
			shorts:   video(format.VideoTypeShorts, 100, 20, 5),
			long:     video(format.VideoTypeLong, 100, 20, 5),
			expected: ChannelTypeLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			videos := append(repeat(5, tt.shorts), repeat(5, tt.long)...)
			report := Analyze(videos, 1000, testNames())

			if report.PrimaryFormat != FormatMixed {
				t.Errorf("Expected primary format mixed, got %s", report.PrimaryFormat)
			}
			if report.Final.ChannelType != tt.expected {
				t.Errorf("Expected channel type %s, got %s", tt.expected, report.Final.ChannelType)
			}
		})
	}
}

func TestAnalyzeIgnoresUnknownInPartitions(t *testing.T) {
	videos := append(
		repeat(7, video(format.VideoTypeLong, 100, 1, 1)),
		repeat(3, video(format.VideoTypeUnknown, 100, 1, 1))...,
	)

	report := Analyze(videos, 100, testNames())

	if report.PrimaryFormat != FormatLong {
		t.Errorf("Expected primary format long at 70%%, got %s", report.PrimaryFormat)
	}
	if report.Breakdown.VideoDistribution.ShortsCount != 0 {
		t.Errorf("Expected no shorts, got %d", report.Breakdown.VideoDistribution.ShortsCount)
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	report := Analyze(nil, 1000, testNames())

	if report.HasData {
		t.Error("Expected no data for empty input")
	}
	if report.Language.TotalVideosAnalyzed != 0 {
		t.Errorf("Expected 0 videos analyzed, got %d", report.Language.TotalVideosAnalyzed)
	}
}

func withLanguage(code string) format.VideoRecord {
	v := video(format.VideoTypeLong, 0, 0, 0)
	v.DefaultAudioLanguage = &format.Language{Code: code}
	return v
}

func TestAnalyzeLanguage(t *testing.T) {
	raw, _ := json.Marshal(map[string]any{
		"snippet": map[string]any{"defaultAudioLanguage": "es"},
	})
	fromRaw := withLanguage("en")
	fromRaw.RawData = raw

	videos := []format.VideoRecord{
		withLanguage("en"),
		fromRaw,
		withLanguage("es"),
		withLanguage("es"),
		video(format.VideoTypeLong, 0, 0, 0),
	}

	analysis := AnalyzeLanguage(videos, testNames())

	if analysis.PrimaryLanguage != "es" {
		t.Errorf("Expected primary language es, got %s", analysis.PrimaryLanguage)
	}
	if analysis.PrimaryLanguageName != "Spanish" {
		t.Errorf("Expected name Spanish, got %s", analysis.PrimaryLanguageName)
	}
	if analysis.TotalVideosAnalyzed != 4 {
		t.Errorf("Expected 4 videos analyzed, got %d", analysis.TotalVideosAnalyzed)
	}
	if analysis.LanguageConfidence != 75 {
		t.Errorf("Expected confidence 75, got %v", analysis.LanguageConfidence)
	}
	if share := analysis.Distribution["en"]; share.Count != 1 || share.Percentage != 25 {
		t.Errorf("Expected en share 1 / 25%%, got %d / %v", share.Count, share.Percentage)
	}
	if len(analysis.LanguagesDetected) != 2 || analysis.LanguagesDetected[0] != "en" {
		t.Errorf("Expected [en es], got %v", analysis.LanguagesDetected)
	}
}

func TestAnalyzeLanguageTieKeepsFirstSeen(t *testing.T) {
	videos := []format.VideoRecord{
		withLanguage("de"),
		withLanguage("en"),
		withLanguage("en"),
		withLanguage("de"),
	}

	analysis := AnalyzeLanguage(videos, testNames())

	if analysis.PrimaryLanguage != "de" {
		t.Errorf("Expected first seen de to win tie, got %s", analysis.PrimaryLanguage)
	}
	if analysis.LanguageConfidence != 50 {
		t.Errorf("Expected confidence 50, got %v", analysis.LanguageConfidence)
	}
}

func TestAnalyzeLanguageNone(t *testing.T) {
	analysis := AnalyzeLanguage(repeat(3, video(format.VideoTypeLong, 0, 0, 0)), testNames())

	if analysis.PrimaryLanguage != "" {
		t.Errorf("Expected no primary language, got %s", analysis.PrimaryLanguage)
	}
	if analysis.Distribution == nil || len(analysis.Distribution) != 0 {
		t.Errorf("Expected empty distribution, got %v", analysis.Distribution)
	}
}
