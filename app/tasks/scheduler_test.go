package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lysyi3m/tube-comb/app/database"
)

type countingJob struct {
	name     string
	runs     atomic.Int32
	failures int32
	ran      chan struct{}
}

func newCountingJob(name string, failures int32) *countingJob {
	return &countingJob{name: name, failures: failures, ran: make(chan struct{}, 16)}
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(ctx context.Context) error {
	n := j.runs.Add(1)
	select {
	case j.ran <- struct{}{}:
	default:
	}
	if n <= j.failures {
		return errors.New("transient failure")
	}
	return nil
}

func waitRuns(t *testing.T, job *countingJob, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-job.ran:
		case <-time.After(2 * time.Second):
			t.Fatalf("Expected %d runs of %s, got %d", n, job.name, job.runs.Load())
		}
	}
}

func TestSchedulerRunsJobsAtStartup(t *testing.T) {
	first := newCountingJob("first", 0)
	second := newCountingJob("second", 0)

	s := NewScheduler(time.Hour, 2, first, second)
	s.Start()
	defer s.Stop()

	waitRuns(t, first, 1)
	waitRuns(t, second, 1)
}

func TestSchedulerRunsOnEveryTick(t *testing.T) {
	job := newCountingJob("tick", 0)

	s := NewScheduler(10*time.Millisecond, 1, job)
	s.Start()
	defer s.Stop()

	waitRuns(t, job, 3)
}

func TestSchedulerRetriesFailedJob(t *testing.T) {
	job := newCountingJob("flaky", 2)

	s := NewScheduler(time.Hour, 1, job)
	s.retryBase = time.Millisecond
	s.Start()
	defer s.Stop()

	waitRuns(t, job, 3)
}

func TestSchedulerGivesUpAfterMaxRetries(t *testing.T) {
	job := newCountingJob("broken", 100)

	s := NewScheduler(time.Hour, 1, job)
	s.retryBase = time.Millisecond
	s.maxRetries = 2
	s.Start()

	waitRuns(t, job, 3)
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	if runs := job.runs.Load(); runs != 3 {
		t.Errorf("Expected 3 runs (1 + 2 retries), got %d", runs)
	}
}

func TestSchedulerEnqueueAfterStop(t *testing.T) {
	s := NewScheduler(time.Hour, 1)
	s.Start()
	s.Stop()
	s.Stop()

	if err := s.Enqueue(newCountingJob("late", 0)); err == nil {
		t.Error("Expected enqueue after stop to fail")
	}
}

type fakeSweeper struct {
	calls int
}

func (f *fakeSweeper) Sweep() int {
	f.calls++
	return 2
}

type fakeLogStore struct {
	days int
	err  error
}

func (f *fakeLogStore) InsertLogs([]database.LogEntry) error { return nil }

func (f *fakeLogStore) GetLogs(database.LogFilter) (*database.LogPage, error) { return nil, nil }

func (f *fakeLogStore) GetLogStats() (*database.LogStats, error) { return nil, nil }

func (f *fakeLogStore) CleanupLogs(days int) (*database.CleanupResult, error) {
	f.days = days
	if f.err != nil {
		return nil, f.err
	}
	return &database.CleanupResult{DeletedLogs: 4, DaysKept: days}, nil
}

func TestMaintenanceJobs(t *testing.T) {
	sweeper := &fakeSweeper{}
	if err := NewCacheSweepJob(sweeper).Run(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if sweeper.calls != 1 {
		t.Errorf("Expected 1 sweep, got %d", sweeper.calls)
	}

	store := &fakeLogStore{}
	if err := NewLogCleanupJob(store, 14).Run(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if store.days != 14 {
		t.Errorf("Expected retention 14, got %d", store.days)
	}

	store.err = errors.New("disk full")
	if err := NewLogCleanupJob(store, 14).Run(context.Background()); err == nil {
		t.Error("Expected cleanup error to propagate")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewCacheSweepJob(sweeper).Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
