package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lysyi3m/tube-comb/app/metrics"
	"github.com/lysyi3m/tube-comb/app/youtube"
	"golang.org/x/sync/errgroup"
)

var _ RunnerInterface = (*Runner)(nil)

var ErrTaskTimeout = errors.New("task timed out")

// ItemInfo reports how one batch slot was served.
type ItemInfo struct {
	FromCache   bool   `json:"from_cache"`
	CacheStatus string `json:"cache_status"`
	Error       string `json:"error,omitempty"`
}

type Batch struct {
	ID          string
	Results     map[string]any
	Items       map[string]ItemInfo
	FromCache   bool
	CacheStatus string
}

// Runner fans a batch out over a bounded number of workers. Every task gets its
// own timeout and a failing task never cancels its siblings.
type Runner struct {
	service  Service
	validate *validator.Validate
	workers  int
	timeout  time.Duration
}

func NewRunner(service Service, workers int, timeout time.Duration) *Runner {
	if workers <= 0 {
		workers = 1
	}

	return &Runner{
		service:  service,
		validate: newValidator(),
		workers:  workers,
		timeout:  timeout,
	}
}

// NewTaskFromRequest validates a request and builds its task.
func (r *Runner) NewTaskFromRequest(index int, req Request) (TaskInterface, error) {
	switch TaskType(req.Type) {
	case TaskTypeChannelByHandle:
		var p ChannelByHandleParams
		if err := decodeParams(r.validate, req.Params, &p); err != nil {
			return nil, err
		}
		return NewChannelByHandleTask(index, p, r.service), nil
	case TaskTypeChannelsByID:
		var p ChannelsByIDParams
		if err := decodeParams(r.validate, req.Params, &p); err != nil {
			return nil, err
		}
		return NewChannelsByIDTask(index, p, r.service), nil
	case TaskTypeVideosByID:
		var p VideosByIDParams
		if err := decodeParams(r.validate, req.Params, &p); err != nil {
			return nil, err
		}
		return NewVideosByIDTask(index, p, r.service), nil
	case TaskTypeChannelRSS:
		var p ChannelRSSParams
		if err := decodeParams(r.validate, req.Params, &p); err != nil {
			return nil, err
		}
		return NewChannelRSSTask(index, p, r.service), nil
	case TaskTypeChannelRecentVideos:
		var p RecentVideosParams
		if err := decodeParams(r.validate, req.Params, &p); err != nil {
			return nil, err
		}
		return NewRecentVideosTask(index, p, r.service), nil
	default:
		return nil, fmt.Errorf("unknown request type %q", req.Type)
	}
}

func (r *Runner) Run(ctx context.Context, requests []Request) Batch {
	batch := Batch{
		ID:      uuid.NewString(),
		Results: make(map[string]any, len(requests)),
		Items:   make(map[string]ItemInfo, len(requests)),
	}

	var mu sync.Mutex
	store := func(key string, data any, info ItemInfo) {
		mu.Lock()
		defer mu.Unlock()
		batch.Results[key] = data
		batch.Items[key] = info
	}

	g := new(errgroup.Group)
	g.SetLimit(r.workers)

	for i, req := range requests {
		key := ResultKey(req.Type, i)

		task, err := r.NewTaskFromRequest(i, req)
		if err != nil {
			slog.Warn("Rejected batch request", "component", "tasks", "batch_id", batch.ID, "key", key, "error", err)
			metrics.RecordBatchTask(req.Type, "invalid")
			store(key, nil, ItemInfo{CacheStatus: youtube.StatusError, Error: err.Error()})
			continue
		}

		g.Go(func() error {
			out, err := r.execute(ctx, task)
			if err != nil {
				slog.Error("Batch task failed", "component", "tasks", "batch_id", batch.ID, "key", key, "duration", task.GetDuration().String(), "error", err)
				store(key, nil, ItemInfo{CacheStatus: youtube.StatusError, Error: err.Error()})
				return nil
			}
			store(key, out.Data, ItemInfo{FromCache: out.FromCache, CacheStatus: out.CacheStatus})
			return nil
		})
	}
	g.Wait()

	batch.FromCache, batch.CacheStatus = Aggregate(batch.Items)
	slog.Debug("Batch completed", "component", "tasks", "batch_id", batch.ID, "requests", len(requests), "cache_status", batch.CacheStatus)
	return batch
}

type taskResult struct {
	out Outcome
	err error
}

// execute runs a task under the per-task timeout. A task that does not return
// in time is abandoned; its goroutine finishes on its own.
func (r *Runner) execute(ctx context.Context, task TaskInterface) (Outcome, error) {
	task.Start()

	taskCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	done := make(chan taskResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- taskResult{err: fmt.Errorf("task panicked: %v", p)}
			}
		}()
		out, err := task.Execute(taskCtx)
		done <- taskResult{out: out, err: err}
	}()

	taskType := string(task.GetType())
	select {
	case res := <-done:
		if res.err != nil && errors.Is(taskCtx.Err(), context.DeadlineExceeded) {
			metrics.RecordBatchTask(taskType, "timeout")
			return Outcome{}, fmt.Errorf("%w after %s", ErrTaskTimeout, r.timeout)
		}
		if res.err != nil {
			metrics.RecordBatchTask(taskType, "error")
			return Outcome{}, res.err
		}
		metrics.RecordBatchTask(taskType, "ok")
		return res.out, nil
	case <-taskCtx.Done():
		metrics.RecordBatchTask(taskType, "timeout")
		return Outcome{}, fmt.Errorf("%w after %s", ErrTaskTimeout, r.timeout)
	}
}

// Aggregate folds per-item statuses: mixed when they differ, otherwise the
// common status. FromCache is true when any item came from cache.
func Aggregate(items map[string]ItemInfo) (bool, string) {
	if len(items) == 0 {
		return false, youtube.StatusMiss
	}

	fromCache := false
	status := ""
	for _, info := range items {
		fromCache = fromCache || info.FromCache
		switch {
		case status == "":
			status = info.CacheStatus
		case status != info.CacheStatus:
			status = youtube.StatusMixed
		}
	}
	return fromCache, status
}
