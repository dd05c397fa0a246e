package youtube

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/lysyi3m/tube-comb/app/cache"
	"github.com/lysyi3m/tube-comb/app/feed"
	"github.com/lysyi3m/tube-comb/app/format"
	"github.com/lysyi3m/tube-comb/app/metrics"
)

// Fetcher is the outbound side of the service.
type Fetcher interface {
	CallJSON(ctx context.Context, path string, params url.Values) (json.RawMessage, error)
	CallXML(ctx context.Context, feedURL string) ([]byte, bool)
}

type Config struct {
	FeedBaseURL     string
	ChannelTTL      time.Duration
	VideoTTL        time.Duration
	RSSTTL          time.Duration
	DefaultTTL      time.Duration
	MaxChannelBatch int
	MaxVideoBatch   int
	ChannelParts    []string
	VideoParts      []string
}

// Service exposes cached upstream operations. Every operation computes its
// cache key, checks the cache and only calls upstream on a miss.
type Service struct {
	cfg       Config
	client    Fetcher
	cache     *cache.Cache
	parser    *feed.Parser
	formatter *format.Formatter
	languages *format.LanguageTable
}

func New(cfg Config, client Fetcher, c *cache.Cache, languages *format.LanguageTable) *Service {
	if cfg.MaxChannelBatch <= 0 {
		cfg.MaxChannelBatch = 50
	}
	if cfg.MaxVideoBatch <= 0 {
		cfg.MaxVideoBatch = 50
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = time.Hour
	}
	for _, ttl := range []*time.Duration{&cfg.ChannelTTL, &cfg.VideoTTL, &cfg.RSSTTL} {
		if *ttl <= 0 {
			*ttl = cfg.DefaultTTL
		}
	}

	return &Service{
		cfg:       cfg,
		client:    client,
		cache:     c,
		parser:    feed.NewParser(),
		formatter: format.NewFormatter(languages),
		languages: languages,
	}
}

func (s *Service) Formatter() *format.Formatter {
	return s.formatter
}

func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}

func (s *Service) ClearCache() {
	s.cache.Clear()
	slog.Info("Cache cleared", "component", "youtube")
}

// cached runs fetch on a cache miss and stores its data when ok is true.
func cached[T any](s *Service, op, key string, ttl time.Duration, fetch func() (T, bool, error)) (Result[T], error) {
	if data, hit := cache.GetAs[T](s.cache, key); hit {
		metrics.RecordCacheLookup(op, true)
		return Result[T]{Data: data, FromCache: true, CacheStatus: StatusHit}, nil
	}
	metrics.RecordCacheLookup(op, false)

	data, ok, err := fetch()
	if err != nil {
		return Result[T]{CacheStatus: StatusMiss}, err
	}
	if ok {
		s.cache.Set(key, data, ttl)
	}
	return Result[T]{Data: data, CacheStatus: StatusMiss}, nil
}

// NormalizeHandle strips surrounding spaces and a leading "@".
func NormalizeHandle(handle string) string {
	return strings.TrimPrefix(strings.TrimSpace(handle), "@")
}

func (s *Service) channelParts(parts []string) []string {
	if len(parts) == 0 {
		return s.cfg.ChannelParts
	}
	return parts
}

func (s *Service) videoParts(parts []string) []string {
	if len(parts) == 0 {
		return s.cfg.VideoParts
	}
	return parts
}

// rawChannelByHandle returns the raw channel, or nil data when the handle is
// unknown upstream.
func (s *Service) rawChannelByHandle(ctx context.Context, handle string, parts []string) (Result[*format.RawChannel], error) {
	handle = NormalizeHandle(handle)
	parts = s.channelParts(parts)
	if handle == "" {
		return Result[*format.RawChannel]{CacheStatus: StatusMiss}, nil
	}

	key := cache.Key("channel_by_handle", handle, cache.List(parts))
	return cached(s, "channel_by_handle", key, s.cfg.ChannelTTL, func() (*format.RawChannel, bool, error) {
		params := url.Values{}
		params.Set("part", strings.Join(parts, ","))
		params.Set("forHandle", "@"+handle)

		items, ok, err := s.list(ctx, "channels", params)
		if err != nil || !ok {
			return nil, false, err
		}
		if len(items) == 0 {
			return nil, true, nil
		}

		raw, err := format.DecodeChannel(items[0])
		if err != nil {
			slog.Error("Failed to decode channel", "component", "youtube", "handle", handle, "error", err)
			return nil, false, nil
		}
		return &raw, true, nil
	})
}

// ChannelByHandle looks a channel up by its handle. Data is nil when the
// channel does not exist.
func (s *Service) ChannelByHandle(ctx context.Context, handle string, parts []string) (Result[*format.ChannelRecord], error) {
	res, err := s.rawChannelByHandle(ctx, handle, parts)
	out := Result[*format.ChannelRecord]{FromCache: res.FromCache, CacheStatus: res.CacheStatus}
	if err != nil || res.Data == nil {
		return out, err
	}

	record := s.formatter.Channel(*res.Data, nil)
	out.Data = &record
	return out, nil
}

// ChannelsByID fetches channels in upstream sized batches.
func (s *Service) ChannelsByID(ctx context.Context, ids []string, parts []string) (Result[[]format.ChannelRecord], error) {
	parts = s.channelParts(parts)
	key := cache.Key("channels_by_id", cache.List(ids), cache.List(parts))

	res, err := cached(s, "channels_by_id", key, s.cfg.ChannelTTL, func() ([]format.RawChannel, bool, error) {
		items, ok, err := s.batchList(ctx, "channels", ids, parts, s.cfg.MaxChannelBatch)
		if err != nil {
			return nil, false, err
		}

		channels := make([]format.RawChannel, 0, len(items))
		for _, item := range items {
			raw, err := format.DecodeChannel(item)
			if err != nil {
				slog.Error("Failed to decode channel", "component", "youtube", "error", err)
				continue
			}
			channels = append(channels, raw)
		}
		return channels, ok, nil
	})

	out := Result[[]format.ChannelRecord]{FromCache: res.FromCache, CacheStatus: res.CacheStatus}
	if err != nil {
		return out, err
	}

	out.Data = make([]format.ChannelRecord, 0, len(res.Data))
	for _, raw := range res.Data {
		out.Data = append(out.Data, s.formatter.Channel(raw, nil))
	}
	return out, nil
}

// VideosByID fetches and formats videos in upstream sized batches.
func (s *Service) VideosByID(ctx context.Context, ids []string, parts []string) (Result[[]format.VideoRecord], error) {
	parts = s.videoParts(parts)
	key := cache.Key("videos_by_id", cache.List(ids), cache.List(parts))

	return cached(s, "videos_by_id", key, s.cfg.VideoTTL, func() ([]format.VideoRecord, bool, error) {
		items, ok, err := s.batchList(ctx, "videos", ids, parts, s.cfg.MaxVideoBatch)
		if err != nil {
			return nil, false, err
		}

		videos := make([]format.VideoRecord, 0, len(items))
		for _, item := range items {
			raw, err := format.DecodeVideo(item)
			if err != nil {
				slog.Error("Failed to decode video", "component", "youtube", "error", err)
				continue
			}
			videos = append(videos, s.formatter.Video(raw))
		}
		return videos, ok, nil
	})
}

// ChannelRSS reads the public feed of a channel.
func (s *Service) ChannelRSS(ctx context.Context, channelID string) (Result[[]feed.VideoStub], error) {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return Result[[]feed.VideoStub]{Data: []feed.VideoStub{}, CacheStatus: StatusMiss}, nil
	}

	key := cache.Key("channel_rss", channelID)
	res, err := cached(s, "channel_rss", key, s.cfg.RSSTTL, func() ([]feed.VideoStub, bool, error) {
		data, ok := s.client.CallXML(ctx, s.FeedURL(channelID))
		if !ok {
			return []feed.VideoStub{}, false, nil
		}
		return s.parser.Run(data), true, nil
	})
	if res.Data == nil {
		res.Data = []feed.VideoStub{}
	}
	return res, err
}

func (s *Service) FeedURL(channelID string) string {
	return s.cfg.FeedBaseURL + "?channel_id=" + url.QueryEscape(channelID)
}

func (s *Service) list(ctx context.Context, path string, params url.Values) ([]json.RawMessage, bool, error) {
	body, err := s.client.CallJSON(ctx, path, params)
	if err != nil || body == nil {
		return nil, false, err
	}

	var resp format.ListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		slog.Error("Failed to decode list response", "component", "youtube", "path", path, "error", err)
		return nil, false, nil
	}
	return resp.Items, true, nil
}

// batchList splits ids into chunks of size and concatenates the items of every
// chunk. ok is false when any chunk produced no data.
func (s *Service) batchList(ctx context.Context, path string, ids, parts []string, size int) ([]json.RawMessage, bool, error) {
	var items []json.RawMessage
	ok := true

	for chunk := range slices.Chunk(ids, size) {
		params := url.Values{}
		params.Set("part", strings.Join(parts, ","))
		params.Set("id", strings.Join(chunk, ","))

		batch, got, err := s.list(ctx, path, params)
		if err != nil {
			return nil, false, err
		}
		if !got {
			ok = false
			continue
		}
		items = append(items, batch...)
	}
	return items, ok, nil
}
