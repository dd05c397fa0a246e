package analytics

import (
	"encoding/json"
	"math"

	"github.com/lysyi3m/tube-comb/app/format"
)

const (
	shortWindow = 6
	longWindow  = 15

	dominantShare = 70.0
)

// Namer resolves language codes to display names.
type Namer interface {
	Name(code string) string
}

// Analyze computes engagement and format metrics over videos ordered newest
// first. It performs no I/O.
func Analyze(videos []format.VideoRecord, subscriberCount int64, names Namer) Report {
	language := AnalyzeLanguage(videos, names)
	if len(videos) == 0 {
		return Report{Language: language, Breakdown: Breakdown{LanguageAnalysis: language}}
	}

	var shorts, long []format.VideoRecord
	for _, v := range videos {
		switch v.VideoType {
		case format.VideoTypeShorts:
			shorts = append(shorts, v)
		case format.VideoTypeLong:
			long = append(long, v)
		}
	}

	distribution := VideoDistribution{
		ShortsCount:      len(shorts),
		LongCount:        len(long),
		ShortsPercentage: percent(len(shorts), len(videos)),
		LongPercentage:   percent(len(long), len(videos)),
	}

	shortsMetrics := typeMetrics(shorts, subscriberCount)
	longMetrics := typeMetrics(long, subscriberCount)

	primary := PrimaryFormat(distribution.ShortsPercentage, distribution.LongPercentage)

	return Report{
		HasData:       true,
		PrimaryFormat: primary,
		Final: FinalMetrics{
			ChannelType: ChannelType(primary, shortsMetrics, longMetrics),
			Short:       summarize(shortsMetrics),
			Long:        summarize(longMetrics),
			ContentDistribution: ContentDistribution{
				ShortCount:   distribution.ShortsCount,
				LongCount:    distribution.LongCount,
				ShortPercent: round(distribution.ShortsPercentage, 1),
				LongPercent:  round(distribution.LongPercentage, 1),
			},
		},
		Breakdown: Breakdown{
			Overall: OverallMetrics{
				Last6:  Window(videos, shortWindow),
				Last15: Window(videos, longWindow),
			},
			Shorts:            shortsMetrics,
			Long:              longMetrics,
			VideoDistribution: distribution,
			LanguageAnalysis:  language,
		},
		Language: language,
	}
}

// Window aggregates at most size of the leading videos. Averages truncate.
func Window(videos []format.VideoRecord, size int) WindowMetrics {
	if size <= 0 || len(videos) == 0 {
		return WindowMetrics{}
	}

	recent := videos[:min(size, len(videos))]
	m := WindowMetrics{VideoCount: len(recent)}
	for _, v := range recent {
		m.TotalViews += v.ViewCount
		m.TotalLikes += v.LikeCount
		m.TotalComments += v.CommentCount
	}

	n := int64(m.VideoCount)
	m.AvgViews = m.TotalViews / n
	m.AvgLikes = m.TotalLikes / n
	m.AvgComments = m.TotalComments / n
	return m
}

// EngagementRate is (likes + comments) over subscribers for the leading size
// videos, as a percentage rounded to 4 places.
func EngagementRate(videos []format.VideoRecord, subscriberCount int64, size int) float64 {
	if len(videos) == 0 || subscriberCount <= 0 || size <= 0 {
		return 0
	}

	var engagement int64
	for _, v := range videos[:min(size, len(videos))] {
		engagement += v.LikeCount + v.CommentCount
	}
	return round(float64(engagement*100)/float64(subscriberCount), 4)
}

func PrimaryFormat(shortsPercentage, longPercentage float64) string {
	switch {
	case shortsPercentage >= dominantShare:
		return FormatShorts
	case longPercentage >= dominantShare:
		return FormatLong
	default:
		return FormatMixed
	}
}

// ChannelType maps the primary format to a channel type. Mixed channels take
// the type with the strictly higher mean of their 6 and 15 video ER; ties
// resolve to long.
func ChannelType(primary string, shorts, long TypeMetrics) string {
	switch primary {
	case FormatShorts:
		return ChannelTypeShort
	case FormatLong:
		return ChannelTypeLong
	}

	shortsER := (shorts.ERLast6 + shorts.ERLast15) / 2
	longER := (long.ERLast6 + long.ERLast15) / 2
	if shortsER > longER {
		return ChannelTypeShort
	}
	return ChannelTypeLong
}

// AnalyzeLanguage tallies audio languages. The code in the raw upstream
// payload wins over the formatted field. Ties go to the first code seen.
func AnalyzeLanguage(videos []format.VideoRecord, names Namer) format.LanguageAnalysis {
	counts := make(map[string]int)
	var order []string
	total := 0

	for _, v := range videos {
		code := audioLanguage(v)
		if code == "" {
			continue
		}
		if _, seen := counts[code]; !seen {
			order = append(order, code)
		}
		counts[code]++
		total++
	}

	analysis := format.LanguageAnalysis{
		TotalVideosAnalyzed: total,
		Distribution:        make(map[string]format.LanguageShare, len(order)),
		LanguagesDetected:   make([]string, 0, len(order)),
	}
	if total == 0 {
		return analysis
	}

	best := 0
	for _, code := range order {
		count := counts[code]
		if count > best {
			best = count
			analysis.PrimaryLanguage = code
		}

		analysis.Distribution[code] = format.LanguageShare{
			Code:       code,
			Name:       names.Name(code),
			Count:      count,
			Percentage: round(percent(count, total), 1),
		}
		analysis.LanguagesDetected = append(analysis.LanguagesDetected, code)
	}

	analysis.PrimaryLanguageName = names.Name(analysis.PrimaryLanguage)
	analysis.LanguageConfidence = round(percent(best, total), 1)
	return analysis
}

type rawAudioLanguage struct {
	Snippet struct {
		DefaultAudioLanguage string `json:"defaultAudioLanguage"`
	} `json:"snippet"`
}

func audioLanguage(v format.VideoRecord) string {
	if len(v.RawData) > 0 {
		var raw rawAudioLanguage
		if err := json.Unmarshal(v.RawData, &raw); err == nil && raw.Snippet.DefaultAudioLanguage != "" {
			return raw.Snippet.DefaultAudioLanguage
		}
	}
	if v.DefaultAudioLanguage != nil {
		return v.DefaultAudioLanguage.Code
	}
	return ""
}

func typeMetrics(videos []format.VideoRecord, subscriberCount int64) TypeMetrics {
	return TypeMetrics{
		Last6:    Window(videos, shortWindow),
		Last15:   Window(videos, longWindow),
		ERLast6:  EngagementRate(videos, subscriberCount, shortWindow),
		ERLast15: EngagementRate(videos, subscriberCount, longWindow),
	}
}

func summarize(m TypeMetrics) FormatMetrics {
	return FormatMetrics{
		Last6: WindowSummary{
			AvgViews:    m.Last6.AvgViews,
			AvgLikes:    m.Last6.AvgLikes,
			AvgComments: m.Last6.AvgComments,
			ER:          m.ERLast6,
		},
		Last15: WindowSummary{
			AvgViews:    m.Last15.AvgViews,
			AvgLikes:    m.Last15.AvgLikes,
			AvgComments: m.Last15.AvgComments,
			ER:          m.ERLast15,
		},
	}
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part*100) / float64(total)
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
