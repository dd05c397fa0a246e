package feed

import (
	"bytes"
	"log/slog"
	"strconv"
	"strings"

	"github.com/lysyi3m/tube-comb/app/format"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

const (
	watchMarker  = "/watch?v="
	shortsMarker = "/shorts/"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses a channel feed into stubs in feed order. Documents that cannot be
// parsed yield an empty slice.
func (p *Parser) Run(data []byte) []VideoStub {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		slog.Error("Failed to parse channel feed", "component", "feed", "error", err)
		return []VideoStub{}
	}

	stubs := make([]VideoStub, 0, len(feed.Items))
	for _, item := range feed.Items {
		stubs = append(stubs, p.normalizeItem(item))
	}
	return stubs
}

func (p *Parser) normalizeItem(item *gofeed.Item) VideoStub {
	link := item.Link
	if link == "" && len(item.Links) > 0 {
		link = item.Links[0]
	}

	return VideoStub{
		VideoID:      VideoID(link),
		Title:        item.Title,
		PublishedAt:  item.Published,
		UpdatedAt:    item.Updated,
		URL:          link,
		VideoType:    Classify(link),
		ViewsFromRSS: mediaViews(item.Extensions),
	}
}

// VideoID extracts the id from a watch or shorts URL, or "" for anything else.
func VideoID(link string) string {
	if _, rest, ok := strings.Cut(link, watchMarker); ok {
		id, _, _ := strings.Cut(rest, "&")
		return id
	}
	if i := strings.LastIndex(link, shortsMarker); i >= 0 {
		id, _, _ := strings.Cut(link[i+len(shortsMarker):], "?")
		return id
	}
	return ""
}

// Classify derives the video type from the URL shape alone.
func Classify(link string) format.VideoType {
	switch {
	case link == "":
		return format.VideoTypeUnknown
	case strings.Contains(link, shortsMarker):
		return format.VideoTypeShorts
	case strings.Contains(link, watchMarker):
		return format.VideoTypeLong
	default:
		return format.VideoTypeUnknown
	}
}

// mediaViews reads media:group/media:community/media:statistics@views.
func mediaViews(extensions ext.Extensions) int64 {
	groups := extensions["media"]["group"]
	if len(groups) == 0 {
		return 0
	}
	communities := groups[0].Children["community"]
	if len(communities) == 0 {
		return 0
	}
	statistics := communities[0].Children["statistics"]
	if len(statistics) == 0 {
		return 0
	}

	views, err := strconv.ParseInt(statistics[0].Attrs["views"], 10, 64)
	if err != nil || views < 0 {
		return 0
	}
	return views
}
