package tasks

import "context"

type ChannelByHandleTask struct {
	Task
	Params  ChannelByHandleParams
	service Service
}

func NewChannelByHandleTask(index int, params ChannelByHandleParams, service Service) *ChannelByHandleTask {
	return &ChannelByHandleTask{
		Task:    NewTask(TaskTypeChannelByHandle, index),
		Params:  params,
		service: service,
	}
}

func (t *ChannelByHandleTask) Execute(ctx context.Context) (Outcome, error) {
	res, err := t.service.ChannelByHandle(ctx, t.Params.Handle, t.Params.Parts)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Data: res.Data, FromCache: res.FromCache, CacheStatus: res.CacheStatus}, nil
}

type ChannelsByIDTask struct {
	Task
	Params  ChannelsByIDParams
	service Service
}

func NewChannelsByIDTask(index int, params ChannelsByIDParams, service Service) *ChannelsByIDTask {
	return &ChannelsByIDTask{
		Task:    NewTask(TaskTypeChannelsByID, index),
		Params:  params,
		service: service,
	}
}

func (t *ChannelsByIDTask) Execute(ctx context.Context) (Outcome, error) {
	res, err := t.service.ChannelsByID(ctx, t.Params.ChannelIDs, t.Params.Parts)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Data: res.Data, FromCache: res.FromCache, CacheStatus: res.CacheStatus}, nil
}

type ChannelRSSTask struct {
	Task
	Params  ChannelRSSParams
	service Service
}

func NewChannelRSSTask(index int, params ChannelRSSParams, service Service) *ChannelRSSTask {
	return &ChannelRSSTask{
		Task:    NewTask(TaskTypeChannelRSS, index),
		Params:  params,
		service: service,
	}
}

func (t *ChannelRSSTask) Execute(ctx context.Context) (Outcome, error) {
	res, err := t.service.ChannelRSS(ctx, t.Params.ChannelID)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Data: res.Data, FromCache: res.FromCache, CacheStatus: res.CacheStatus}, nil
}
