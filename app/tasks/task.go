package tasks

import (
	"context"
	"fmt"
	"time"
)

type TaskType string

const (
	TaskTypeChannelByHandle     TaskType = "channel_by_handle"
	TaskTypeChannelsByID        TaskType = "channels_by_id"
	TaskTypeVideosByID          TaskType = "videos_by_id"
	TaskTypeChannelRSS          TaskType = "channel_rss"
	TaskTypeChannelRecentVideos TaskType = "channel_recent_videos"
)

// Outcome is what one batch task produced.
type Outcome struct {
	Data        any
	FromCache   bool
	CacheStatus string
}

type TaskInterface interface {
	Execute(ctx context.Context) (Outcome, error)
	GetID() string
	GetType() TaskType
	Start()
	GetDuration() time.Duration
}

type Task struct {
	ID        string
	Type      TaskType
	Index     int
	StartedAt *time.Time
}

func (t *Task) GetID() string {
	return t.ID
}

func (t *Task) GetType() TaskType {
	return t.Type
}

func (t *Task) Start() {
	now := time.Now()
	t.StartedAt = &now
}

func (t *Task) GetDuration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	return time.Since(*t.StartedAt)
}

// ResultKey names the slot of the index-th request in a batch.
func ResultKey(taskType string, index int) string {
	return fmt.Sprintf("%s_%d", taskType, index)
}

func NewTask(taskType TaskType, index int) Task {
	return Task{
		ID:    ResultKey(string(taskType), index),
		Type:  taskType,
		Index: index,
	}
}
