package tasks

import "context"

type VideosByIDTask struct {
	Task
	Params  VideosByIDParams
	service Service
}

func NewVideosByIDTask(index int, params VideosByIDParams, service Service) *VideosByIDTask {
	return &VideosByIDTask{
		Task:    NewTask(TaskTypeVideosByID, index),
		Params:  params,
		service: service,
	}
}

func (t *VideosByIDTask) Execute(ctx context.Context) (Outcome, error) {
	res, err := t.service.VideosByID(ctx, t.Params.VideoIDs, t.Params.Parts)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Data: res.Data, FromCache: res.FromCache, CacheStatus: res.CacheStatus}, nil
}

type RecentVideosTask struct {
	Task
	Params  RecentVideosParams
	service Service
}

func NewRecentVideosTask(index int, params RecentVideosParams, service Service) *RecentVideosTask {
	return &RecentVideosTask{
		Task:    NewTask(TaskTypeChannelRecentVideos, index),
		Params:  params,
		service: service,
	}
}

func (t *RecentVideosTask) Execute(ctx context.Context) (Outcome, error) {
	res, err := t.service.RecentVideos(ctx, t.Params.handle(), t.Params.MaxVideos, t.Params.IncludeDetailed)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Data: res.Data, FromCache: res.FromCache, CacheStatus: res.CacheStatus}, nil
}
