package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxRetryDelay = time.Minute

// Job is a unit of background work. Jobs sharing a non-empty Key coalesce:
// while one is waiting in the buffer, enqueuing another replaces its payload
// instead of adding a second run.
type Job struct {
	ID       string
	Type     string
	Key      string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

type Handler func(context.Context, Job) error

// QueueConfig sizes the worker pool. RetryDelay doubles on each attempt.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Queue dispatches jobs to a fixed set of goroutines. Stop drains whatever
// is still buffered so queued work is not lost on shutdown.
type Queue struct {
	name    string
	handler Handler

	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	jobs    chan Job
	latest  map[string]Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	stopped bool
}

func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:       name,
		handler:    handler,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger.With(zap.String("queue", name)),
		jobs:       make(chan Job, cfg.BufferSize),
		latest:     make(map[string]Job),
	}
}

// Start launches the workers. Later calls are no-ops.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Info("queue started", zap.Int("workers", q.workers))
}

// Stop refuses new jobs, lets the workers finish the buffer and waits.
// Retries still sleeping are abandoned.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started || q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.cancel()
	q.mu.Unlock()

	close(q.jobs)
	q.wg.Wait()
	q.logger.Info("queue stopped")
}

// Enqueue adds a job without blocking and returns its id. A keyed job that
// coalesces into a pending one returns the pending job's id.
func (q *Queue) Enqueue(job Job) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.started {
		return "", fmt.Errorf("queue %s not started", q.name)
	}
	if q.stopped {
		return "", fmt.Errorf("queue %s stopped", q.name)
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	if job.Key != "" {
		if pending, ok := q.latest[job.Key]; ok {
			job.ID = pending.ID
			q.latest[job.Key] = job
			return job.ID, nil
		}
	}

	select {
	case q.jobs <- job:
		if job.Key != "" {
			q.latest[job.Key] = job
		}
		return job.ID, nil
	default:
		return "", fmt.Errorf("queue %s is full", q.name)
	}
}

// Pending reports buffered jobs, counting each coalesced key once.
func (q *Queue) Pending() int {
	return len(q.jobs)
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for job := range q.jobs {
		if job.Key != "" {
			q.mu.Lock()
			if newest, ok := q.latest[job.Key]; ok {
				job = newest
				delete(q.latest, job.Key)
			}
			q.mu.Unlock()
		}
		if err := q.handler(context.WithoutCancel(q.ctx), job); err != nil {
			q.handleFailure(job, err)
		}
	}
}

func (q *Queue) handleFailure(job Job, err error) {
	job.Attempt++
	fields := []zap.Field{zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempt", job.Attempt), zap.Error(err)}
	if job.Attempt > q.maxRetries {
		q.logger.Error("job exceeded retries", fields...)
		return
	}
	if q.ctx.Err() != nil {
		return
	}
	delay := backoff(q.retryDelay, job.Attempt)
	q.logger.Warn("job failed, retrying", append(fields, zap.Duration("delay", delay))...)

	go func(j Job) {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
		case <-timer.C:
			q.retry(j)
		}
	}(job)
}

// retry requeues j unless a newer job with the same key is already waiting.
func (q *Queue) retry(j Job) {
	if j.Key != "" {
		q.mu.Lock()
		_, superseded := q.latest[j.Key]
		q.mu.Unlock()
		if superseded {
			q.logger.Debug("retry superseded", zap.String("job_id", j.ID), zap.String("key", j.Key))
			return
		}
	}
	if _, err := q.Enqueue(j); err != nil {
		q.logger.Error("failed to requeue job", zap.String("job_id", j.ID), zap.Error(err))
	}
}

func backoff(base time.Duration, attempt int) time.Duration {
	delay := base
	for i := 1; i < attempt && delay < maxRetryDelay; i++ {
		delay *= 2
	}
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}
