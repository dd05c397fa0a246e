package tasks

import (
	"context"

	"github.com/lysyi3m/tube-comb/app/feed"
	"github.com/lysyi3m/tube-comb/app/format"
	"github.com/lysyi3m/tube-comb/app/youtube"
)

// Service is the set of cached operations a batch can fan out to.
type Service interface {
	ChannelByHandle(ctx context.Context, handle string, parts []string) (youtube.Result[*format.ChannelRecord], error)
	ChannelsByID(ctx context.Context, ids []string, parts []string) (youtube.Result[[]format.ChannelRecord], error)
	VideosByID(ctx context.Context, ids []string, parts []string) (youtube.Result[[]format.VideoRecord], error)
	ChannelRSS(ctx context.Context, channelID string) (youtube.Result[[]feed.VideoStub], error)
	RecentVideos(ctx context.Context, handle string, maxVideos int, includeDetailed bool) (youtube.Result[*youtube.ChannelVideos], error)
}

// RunnerInterface runs a batch of mixed requests.
// Example usage:
//
//	runner := NewRunner(service, workers, timeout)
//	batch := runner.Run(ctx, requests)
type RunnerInterface interface {
	Run(ctx context.Context, requests []Request) Batch
}
