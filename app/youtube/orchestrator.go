package youtube

import (
	"context"
	"log/slog"
	"slices"

	"github.com/lysyi3m/tube-comb/app/analytics"
	"github.com/lysyi3m/tube-comb/app/feed"
	"github.com/lysyi3m/tube-comb/app/format"
)

const DefaultMaxVideos = 15

const noVideosMessage = "No videos found for analytics"

// RecentVideos fetches a channel, its feed and the details of its newest
// videos, then runs analytics over them. Steps run strictly in order. Data is
// nil when the channel does not exist.
func (s *Service) RecentVideos(ctx context.Context, handle string, maxVideos int, includeDetailed bool) (Result[*ChannelVideos], error) {
	if maxVideos <= 0 {
		maxVideos = DefaultMaxVideos
	}

	channelRes, err := s.rawChannelByHandle(ctx, handle, nil)
	if err != nil {
		return Result[*ChannelVideos]{CacheStatus: StatusMiss}, err
	}
	if channelRes.Data == nil {
		return Result[*ChannelVideos]{CacheStatus: StatusMiss}, nil
	}

	raw := *channelRes.Data
	subscribers := int64(raw.Statistics.SubscriberCount)

	rssRes, err := s.ChannelRSS(ctx, raw.ID)
	if err != nil {
		return Result[*ChannelVideos]{CacheStatus: StatusMiss}, err
	}

	stubs := rssRes.Data[:min(maxVideos, len(rssRes.Data))]
	ids := make([]string, 0, len(stubs))
	for _, stub := range stubs {
		if stub.VideoID != "" {
			ids = append(ids, stub.VideoID)
		}
	}

	details := map[string]CacheDetail{
		"channel": detail(channelRes.FromCache, channelRes.CacheStatus),
		"rss":     detail(rssRes.FromCache, rssRes.CacheStatus),
	}

	if len(ids) == 0 {
		slog.Debug("No feed videos for channel", "component", "youtube", "channel_id", raw.ID)
		return finish(&ChannelVideos{
			Channel:   s.formatter.Channel(raw, nil),
			Videos:    []format.VideoRecord{},
			Analytics: Analytics{HasData: false, Message: noVideosMessage},
		}, details), nil
	}

	videosRes, err := s.VideosByID(ctx, ids, nil)
	if err != nil {
		return Result[*ChannelVideos]{CacheStatus: StatusMiss}, err
	}
	details["videos"] = detail(videosRes.FromCache, videosRes.CacheStatus)

	videos := mergeFeed(videosRes.Data, stubs)
	report := analytics.Analyze(videos, subscribers, s.languages)

	out := &ChannelVideos{
		Channel: s.formatter.Channel(raw, &report.Language),
		Analytics: Analytics{
			HasData:      report.HasData,
			FinalMetrics: &report.Final,
		},
	}
	if !report.HasData {
		out.Analytics.Message = noVideosMessage
		out.Analytics.FinalMetrics = nil
	}
	if includeDetailed {
		out.Videos = videos
		if report.HasData {
			out.Analytics.DetailedBreakdown = &report.Breakdown
		}
	}

	return finish(out, details), nil
}

// mergeFeed copies the feed derived type and url onto the detailed videos and
// puts them in feed order, newest first. Videos missing from the feed keep
// their relative order at the end. The input slice may be shared with the
// cache, so it is cloned first.
func mergeFeed(videos []format.VideoRecord, stubs []feed.VideoStub) []format.VideoRecord {
	position := make(map[string]int, len(stubs))
	byID := make(map[string]feed.VideoStub, len(stubs))
	for i, stub := range stubs {
		if _, seen := byID[stub.VideoID]; !seen {
			byID[stub.VideoID] = stub
			position[stub.VideoID] = i
		}
	}

	merged := slices.Clone(videos)
	for i := range merged {
		if stub, ok := byID[merged[i].ID]; ok {
			merged[i].VideoType = stub.VideoType
			merged[i].RSSURL = stub.URL
		}
	}

	rank := func(id string) int {
		if pos, ok := position[id]; ok {
			return pos
		}
		return len(stubs)
	}
	slices.SortStableFunc(merged, func(a, b format.VideoRecord) int {
		return rank(a.ID) - rank(b.ID)
	})
	return merged
}

func detail(fromCache bool, status string) CacheDetail {
	return CacheDetail{FromCache: fromCache, CacheStatus: status}
}

// finish aggregates step statuses: hit when every step was served from cache,
// miss when none was, partial otherwise.
func finish(data *ChannelVideos, details map[string]CacheDetail) Result[*ChannelVideos] {
	hits := 0
	for _, d := range details {
		if d.FromCache {
			hits++
		}
	}

	res := Result[*ChannelVideos]{Data: data, CacheDetails: details}
	switch hits {
	case len(details):
		res.FromCache = true
		res.CacheStatus = StatusHit
	case 0:
		res.CacheStatus = StatusMiss
	default:
		res.CacheStatus = StatusPartial
	}
	return res
}
