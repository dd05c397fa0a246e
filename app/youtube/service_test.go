package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lysyi3m/tube-comb/app/cache"
	"github.com/lysyi3m/tube-comb/app/format"
	"github.com/lysyi3m/tube-comb/app/keypool"
)

type fakeFetcher struct {
	mu       sync.Mutex
	channels map[string]string
	videos   map[string]string
	feeds    map[string]string

	jsonCalls []url.Values
	xmlCalls  []string
	fail      bool
	err       error
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		channels: make(map[string]string),
		videos:   make(map[string]string),
		feeds:    make(map[string]string),
	}
}

func (f *fakeFetcher) CallJSON(_ context.Context, path string, params url.Values) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.jsonCalls = append(f.jsonCalls, params)
	if f.err != nil {
		return nil, f.err
	}
	if f.fail {
		return nil, nil
	}

	var items []string
	switch path {
	case "channels":
		if handle := params.Get("forHandle"); handle != "" {
			if item, ok := f.channels[handle]; ok {
				items = append(items, item)
			}
			break
		}
		for _, id := range strings.Split(params.Get("id"), ",") {
			if item, ok := f.channels[id]; ok {
				items = append(items, item)
			}
		}
	case "videos":
		for _, id := range strings.Split(params.Get("id"), ",") {
			if item, ok := f.videos[id]; ok {
				items = append(items, item)
			}
		}
	}

	return json.RawMessage(`{"items":[` + strings.Join(items, ",") + `]}`), nil
}

func (f *fakeFetcher) CallXML(_ context.Context, feedURL string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.xmlCalls = append(f.xmlCalls, feedURL)
	if f.fail {
		return nil, false
	}

	u, err := url.Parse(feedURL)
	if err != nil {
		return nil, false
	}
	body, ok := f.feeds[u.Query().Get("channel_id")]
	return []byte(body), ok
}

func (f *fakeFetcher) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jsonCalls), len(f.xmlCalls)
}

func channelJSON(id string, subscribers int) string {
	return fmt.Sprintf(`{
		"id": %q,
		"snippet": {"title": "Channel %s", "description": "Contact: team@example.com", "customUrl": "@%s"},
		"statistics": {"viewCount": "100000", "subscriberCount": "%d", "videoCount": "10"}
	}`, id, id, strings.ToLower(id), subscribers)
}

func videoJSON(id string, views, likes, comments int, language string) string {
	return fmt.Sprintf(`{
		"id": %q,
		"snippet": {"title": "Video %s", "channelId": "UC1", "defaultAudioLanguage": %q},
		"statistics": {"viewCount": "%d", "likeCount": "%d", "commentCount": "%d"}
	}`, id, id, language, views, likes, comments)
}

func feedEntry(link string, views int) string {
	return fmt.Sprintf(`
  <entry>
    <title>entry</title>
    <link rel="alternate" href="%s"/>
    <published>2024-05-01T12:00:00+00:00</published>
    <media:group>
      <media:community>
        <media:statistics views="%d"/>
      </media:community>
    </media:group>
  </entry>`, link, views)
}

func feedXML(entries ...string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015" xmlns:media="http://search.yahoo.com/mrss/" xmlns="http://www.w3.org/2005/Atom">
  <title>feed</title>` + strings.Join(entries, "") + `
</feed>`
}

func newTestService(fetcher Fetcher) *Service {
	languages := format.NewLanguageTable(map[string]string{"en": "English", "es": "Spanish"})
	return New(Config{
		FeedBaseURL:     "https://feeds.test/videos.xml",
		ChannelTTL:      time.Hour,
		VideoTTL:        time.Hour,
		RSSTTL:          time.Hour,
		MaxChannelBatch: 2,
		MaxVideoBatch:   2,
		ChannelParts:    []string{"snippet", "statistics"},
		VideoParts:      []string{"snippet", "statistics"},
	}, fetcher, cache.New(), languages)
}

func TestChannelByHandle(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.channels["@acme"] = channelJSON("UC1", 5000)
	s := newTestService(fetcher)

	res, err := s.ChannelByHandle(context.Background(), "@acme", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.Data == nil {
		t.Fatal("Expected channel data")
	}
	if res.Data.ID != "UC1" {
		t.Errorf("Expected id UC1, got %s", res.Data.ID)
	}
	if res.FromCache || res.CacheStatus != StatusMiss {
		t.Errorf("Expected first lookup to be a miss, got %v/%s", res.FromCache, res.CacheStatus)
	}
	if part := fetcher.jsonCalls[0].Get("part"); part != "snippet,statistics" {
		t.Errorf("Expected default parts, got %s", part)
	}

	res, err = s.ChannelByHandle(context.Background(), "acme", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !res.FromCache || res.CacheStatus != StatusHit {
		t.Errorf("Expected second lookup to hit cache, got %v/%s", res.FromCache, res.CacheStatus)
	}
	if n, _ := fetcher.calls(); n != 1 {
		t.Errorf("Expected 1 upstream call, got %d", n)
	}
}

func TestChannelByHandleNotFound(t *testing.T) {
	s := newTestService(newFakeFetcher())

	res, err := s.ChannelByHandle(context.Background(), "@missing", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.Data != nil {
		t.Errorf("Expected no data, got %+v", res.Data)
	}
}

func TestFailedFetchIsNotCached(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.fail = true
	s := newTestService(fetcher)

	for range 2 {
		res, err := s.VideosByID(context.Background(), []string{"a"}, nil)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if res.FromCache {
			t.Error("Expected failed fetch not to be served from cache")
		}
	}

	if n, _ := fetcher.calls(); n != 2 {
		t.Errorf("Expected 2 upstream calls, got %d", n)
	}
}

func TestExhaustionPropagates(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.err = &keypool.ExhaustedError{Keys: 2}
	s := newTestService(fetcher)

	_, err := s.ChannelsByID(context.Background(), []string{"UC1"}, nil)
	if !errors.Is(err, keypool.ErrExhausted) {
		t.Errorf("Expected exhaustion error, got %v", err)
	}
}

func TestVideosByIDBatches(t *testing.T) {
	fetcher := newFakeFetcher()
	ids := []string{"v1", "v2", "v3", "v4", "v5"}
	for _, id := range ids {
		fetcher.videos[id] = videoJSON(id, 100, 10, 1, "en")
	}
	s := newTestService(fetcher)

	res, err := s.VideosByID(context.Background(), ids, []string{"statistics"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(res.Data) != 5 {
		t.Fatalf("Expected 5 videos, got %d", len(res.Data))
	}
	if n, _ := fetcher.calls(); n != 3 {
		t.Errorf("Expected 3 batched calls, got %d", n)
	}
	if id := fetcher.jsonCalls[2].Get("id"); id != "v5" {
		t.Errorf("Expected last batch 'v5', got '%s'", id)
	}
	if part := fetcher.jsonCalls[0].Get("part"); part != "statistics" {
		t.Errorf("Expected requested parts, got %s", part)
	}
	if res.Data[0].ViewCount != 100 || res.Data[0].VideoType != format.VideoTypeUnknown {
		t.Errorf("Unexpected formatted video %+v", res.Data[0])
	}
}

func TestChannelsByIDFormats(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.channels["UC1"] = channelJSON("UC1", 10)
	fetcher.channels["UC2"] = channelJSON("UC2", 20)
	s := newTestService(fetcher)

	res, err := s.ChannelsByID(context.Background(), []string{"UC1", "UC2", "UC3"}, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(res.Data) != 2 {
		t.Fatalf("Expected 2 channels, got %d", len(res.Data))
	}
	if res.Data[1].SubscriberCount != 20 {
		t.Errorf("Expected 20 subscribers, got %d", res.Data[1].SubscriberCount)
	}
	if res.Data[0].Email == nil || *res.Data[0].Email != "team@example.com" {
		t.Errorf("Expected extracted email, got %v", res.Data[0].Email)
	}
}

func TestChannelRSS(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.feeds["UC1"] = feedXML(
		feedEntry("https://www.youtube.com/shorts/s1", 50),
		feedEntry("https://www.youtube.com/watch?v=l1", 70),
	)
	s := newTestService(fetcher)

	res, err := s.ChannelRSS(context.Background(), "UC1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(res.Data) != 2 {
		t.Fatalf("Expected 2 stubs, got %d", len(res.Data))
	}
	if res.Data[0].VideoID != "s1" || res.Data[0].VideoType != format.VideoTypeShorts {
		t.Errorf("Unexpected first stub %+v", res.Data[0])
	}
	if res.Data[1].ViewsFromRSS != 70 {
		t.Errorf("Expected 70 views, got %d", res.Data[1].ViewsFromRSS)
	}
	if fetcher.xmlCalls[0] != "https://feeds.test/videos.xml?channel_id=UC1" {
		t.Errorf("Unexpected feed URL %s", fetcher.xmlCalls[0])
	}
}

func TestChannelRSSUnavailable(t *testing.T) {
	fetcher := newFakeFetcher()
	s := newTestService(fetcher)

	res, err := s.ChannelRSS(context.Background(), "UC404")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.Data == nil || len(res.Data) != 0 {
		t.Errorf("Expected empty stubs, got %v", res.Data)
	}

	s.ChannelRSS(context.Background(), "UC404")
	if _, n := fetcher.calls(); n != 2 {
		t.Errorf("Expected unavailable feed to be refetched, got %d calls", n)
	}
}

func TestMismatchedCacheEntryCountsAsMiss(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.feeds["UC1"] = feedXML(feedEntry("https://www.youtube.com/shorts/s1", 50))
	s := newTestService(fetcher)

	s.cache.Set(cache.Key("channel_rss", "UC1"), "not a feed", time.Hour)

	res, err := s.ChannelRSS(context.Background(), "UC1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.FromCache || len(res.Data) != 1 {
		t.Errorf("Expected fresh fetch with 1 stub, got %+v", res)
	}

	stats := s.CacheStats()
	if stats.Hits != 0 || stats.Misses != 1 {
		t.Errorf("Expected 0 hits and 1 miss, got %d/%d", stats.Hits, stats.Misses)
	}

	res, _ = s.ChannelRSS(context.Background(), "UC1")
	if !res.FromCache {
		t.Error("Expected refetched feed to be cached")
	}
}

func TestCacheStatsAndClear(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.channels["@acme"] = channelJSON("UC1", 5000)
	s := newTestService(fetcher)

	s.ChannelByHandle(context.Background(), "acme", nil)
	s.ChannelByHandle(context.Background(), "acme", nil)

	stats := s.CacheStats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Size != 1 {
		t.Errorf("Expected 1 hit, 1 miss, size 1, got %+v", stats)
	}

	s.ClearCache()
	if size := s.CacheStats().Size; size != 0 {
		t.Errorf("Expected empty cache after clear, got %d", size)
	}
}
