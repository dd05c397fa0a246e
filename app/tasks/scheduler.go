package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var _ SchedulerInterface = (*Scheduler)(nil)

// Job is periodic background work run by the Scheduler.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type SchedulerInterface interface {
	Start()
	Stop()
	Enqueue(job Job) error
}

type queuedJob struct {
	job     Job
	attempt int
}

// Scheduler runs its jobs once at startup and then on every tick, on a fixed
// set of workers. A failed job is retried with exponential backoff.
type Scheduler struct {
	jobs        []Job
	interval    time.Duration
	workerCount int
	maxRetries  int
	retryBase   time.Duration
	retryCap    time.Duration
	jobTimeout  time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	queue       chan queuedJob
	stopOnce    sync.Once
}

func NewScheduler(interval time.Duration, workerCount int, jobs ...Job) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	if workerCount <= 0 {
		workerCount = 1
	}

	return &Scheduler{
		jobs:        jobs,
		interval:    interval,
		workerCount: workerCount,
		maxRetries:  3,
		retryBase:   time.Second,
		retryCap:    30 * time.Second,
		jobTimeout:  5 * time.Minute,
		ctx:         ctx,
		cancel:      cancel,
		queue:       make(chan queuedJob, 100),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.enqueueAll()
		if s.interval <= 0 {
			return
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueAll()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
	})
}

func (s *Scheduler) Enqueue(job Job) error {
	return s.enqueue(queuedJob{job: job})
}

func (s *Scheduler) enqueue(q queuedJob) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.queue <- q:
		return nil
	default:
		return fmt.Errorf("job queue is full")
	}
}

func (s *Scheduler) enqueueAll() {
	for _, job := range s.jobs {
		if err := s.Enqueue(job); err != nil {
			slog.Warn("Failed to enqueue job", "component", "tasks", "job", job.Name(), "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case q := <-s.queue:
			s.execute(id, q)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) execute(workerID int, q queuedJob) {
	ctx, cancel := context.WithTimeout(s.ctx, s.jobTimeout)
	defer cancel()

	start := time.Now()
	err := q.job.Run(ctx)
	if err == nil {
		slog.Debug("Job finished", "component", "tasks", "worker_id", workerID, "job", q.job.Name(), "duration", time.Since(start))
		return
	}

	slog.Error("Job failed", "component", "tasks", "worker_id", workerID, "job", q.job.Name(), "attempt", q.attempt+1, "error", err)

	if q.attempt >= s.maxRetries {
		slog.Error("Job failed after maximum retries", "component", "tasks", "job", q.job.Name(), "max_retries", s.maxRetries, "last_error", err)
		return
	}

	q.attempt++
	delay := s.retryBase << (q.attempt - 1)
	if delay > s.retryCap {
		delay = s.retryCap
	}
	slog.Warn("Job retry scheduled", "component", "tasks", "job", q.job.Name(), "attempt", q.attempt, "delay", delay)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		select {
		case <-s.ctx.Done():
			return
		case <-time.After(delay):
		}
		if err := s.enqueue(q); err != nil {
			slog.Error("Failed to re-enqueue job", "component", "tasks", "job", q.job.Name(), "error", err)
		}
	}()
}
