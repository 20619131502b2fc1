package jobqueue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/objectql/objectos-sub004/internal/event"
	"github.com/objectql/objectos-sub004/internal/retry"
	pkgerrors "github.com/objectql/objectos-sub004/pkg/errors"
	"github.com/objectql/objectos-sub004/pkg/metrics"
)

// Emitter publishes job lifecycle events to the kernel bus. *core.Bus
// satisfies this without jobqueue importing system/core directly, keeping
// the queue usable in isolation (e.g. in tests) without a live kernel.
type Emitter interface {
	Trigger(ctx context.Context, topic string, payload any) error
}

type noopEmitter struct{}

func (noopEmitter) Trigger(context.Context, string, any) error { return nil }

// Config configures a Queue.
type Config struct {
	// DefaultMaxRetries is used by Enqueue/Schedule when EnqueueOptions
	// doesn't specify one.
	DefaultMaxRetries int

	// RetryBase is the base delay internal/retry.Delay scales from.
	RetryBase time.Duration

	// RetryStrategy defaults to retry.Linear per spec.md §4.8.
	RetryStrategy retry.Strategy

	// CronSpec schedules the dispatch loop tick, e.g. "@every 5s". Empty
	// disables the automatic loop; Tick can still be called directly
	// (as tests do).
	CronSpec string

	// Emitter receives job.* events. Defaults to a no-op so a Queue built
	// without a live bus (unit tests) still works.
	Emitter Emitter

	Logger *zap.Logger
}

// Queue is the in-memory, priority-ordered job queue.
type Queue struct {
	mu   sync.Mutex
	jobs map[string]*Job

	handlers map[string]Handler

	cfg     Config
	emitter Emitter
	log     *zap.Logger
	seq     atomic.Int64

	cron    *cron.Cron
	entryID cron.EntryID
}

// New creates a Queue from cfg.
func New(cfg Config) *Queue {
	if cfg.DefaultMaxRetries <= 0 {
		cfg.DefaultMaxRetries = 3
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 5 * time.Second
	}
	if cfg.Emitter == nil {
		cfg.Emitter = noopEmitter{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Queue{
		jobs:     make(map[string]*Job),
		handlers: make(map[string]Handler),
		cfg:      cfg,
		emitter:  cfg.Emitter,
		log:      cfg.Logger,
	}
}

// SetEmitter rebinds the queue's event sink, used by the plugin once a live
// kernel bus is available after construction.
func (q *Queue) SetEmitter(e Emitter) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if e == nil {
		e = noopEmitter{}
	}
	q.emitter = e
}

// RegisterHandler binds a job name to the function that runs it.
func (q *Queue) RegisterHandler(name string, handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[name] = handler
}

func (q *Queue) emit(ctx context.Context, topic string, j *Job) {
	je := &event.JobEvent{
		JobID:     j.ID,
		Name:      j.Name,
		Priority:  j.Priority.String(),
		Status:    string(j.Status),
		Attempt:   j.Attempt,
		Error:     j.Error,
		Timestamp: time.Now(),
	}
	if err := q.emitter.Trigger(ctx, topic, je); err != nil {
		q.log.Warn("jobqueue: event emit failed", zap.String("topic", topic), zap.Error(err))
	}
}

// Enqueue adds a new job in the pending state, immediately dispatchable.
func (q *Queue) Enqueue(ctx context.Context, name string, payload any, opts EnqueueOptions) (string, error) {
	if opts.Delay > 0 {
		return q.Schedule(ctx, name, payload, time.Now().Add(opts.Delay), opts)
	}

	j := q.newJob(name, payload, opts)
	j.Status = StatusPending

	q.mu.Lock()
	q.jobs[j.ID] = j
	q.mu.Unlock()

	metrics.SetJobQueueDepth(q.depthLocked())
	q.emit(ctx, event.TopicJobEnqueued, j)
	return j.ID, nil
}

// Schedule adds a new job in the scheduled state; the dispatch loop
// promotes it to pending once now >= runAt.
func (q *Queue) Schedule(ctx context.Context, name string, payload any, runAt time.Time, opts EnqueueOptions) (string, error) {
	j := q.newJob(name, payload, opts)
	j.Status = StatusScheduled
	j.RunAt = runAt

	q.mu.Lock()
	q.jobs[j.ID] = j
	q.mu.Unlock()

	metrics.SetJobQueueDepth(q.depthLocked())
	q.emit(ctx, event.TopicJobScheduled, j)
	return j.ID, nil
}

func (q *Queue) newJob(name string, payload any, opts EnqueueOptions) *Job {
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = q.cfg.DefaultMaxRetries
	}
	return &Job{
		ID:         uuid.NewString(),
		Name:       name,
		Priority:   opts.Priority,
		MaxRetries: maxRetries,
		CreatedAt:  time.Now(),
		Tags:       opts.Tags,
		seq:        q.seq.Add(1),
	}
}

func (q *Queue) depthLocked() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, j := range q.jobs {
		if j.Status == StatusPending || j.Status == StatusScheduled || j.Status == StatusRetrying {
			n++
		}
	}
	return n
}

// Cancel transitions id from pending or scheduled to cancelled. Any other
// current state is rejected, per spec.md §4.8 ("allowed only from
// {pending, scheduled}").
func (q *Queue) Cancel(ctx context.Context, id string) error {
	q.mu.Lock()
	j, ok := q.jobs[id]
	if !ok {
		q.mu.Unlock()
		return pkgerrors.NotFound("job", id)
	}
	if j.Status != StatusPending && j.Status != StatusScheduled {
		q.mu.Unlock()
		return pkgerrors.New(pkgerrors.ErrCodeOperational,
			fmt.Sprintf("job %q cannot be cancelled from status %q", id, j.Status), 409)
	}
	j.Status = StatusCancelled
	q.mu.Unlock()

	q.emit(ctx, event.TopicJobCancelled, j)
	return nil
}

// Retry resets a failed job's attempt count and returns it to pending, per
// spec.md §4.8 ("allowed only from failed").
func (q *Queue) Retry(ctx context.Context, id string) error {
	q.mu.Lock()
	j, ok := q.jobs[id]
	if !ok {
		q.mu.Unlock()
		return pkgerrors.NotFound("job", id)
	}
	if j.Status != StatusFailed {
		q.mu.Unlock()
		return pkgerrors.New(pkgerrors.ErrCodeOperational,
			fmt.Sprintf("job %q cannot be retried from status %q", id, j.Status), 409)
	}
	j.Attempt = 0
	j.Error = ""
	j.Status = StatusPending
	q.mu.Unlock()

	q.emit(ctx, event.TopicJobRetried, j)
	return nil
}

// Get returns a copy of a job by id.
func (q *Queue) Get(id string) (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// List returns jobs matching filter, newest first.
func (q *Queue) List(filter ListFilter) []Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Job, 0, len(q.jobs))
	for _, j := range q.jobs {
		if filter.Status != "" && j.Status != filter.Status {
			continue
		}
		if filter.Name != "" && j.Name != filter.Name {
			continue
		}
		out = append(out, *j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return out
}

// Stats summarizes the queue by status.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	var s Stats
	for _, j := range q.jobs {
		switch j.Status {
		case StatusPending:
			s.Pending++
		case StatusScheduled:
			s.Scheduled++
		case StatusRunning:
			s.Running++
		case StatusRetrying:
			s.Retrying++
		case StatusCompleted:
			s.Completed++
		case StatusFailed:
			s.Failed++
		case StatusCancelled:
			s.Cancelled++
		}
		s.Total++
	}
	return s
}

// Start begins the cron-driven dispatch loop. A no-op if Config.CronSpec is
// empty. A loop begun by an earlier Start is stopped first, so at most one
// loop runs. Stop ends it.
func (q *Queue) Start(ctx context.Context) error {
	if q.cfg.CronSpec == "" {
		return nil
	}
	if q.cron != nil {
		q.Stop()
	}
	c := cron.New()
	id, err := c.AddFunc(q.cfg.CronSpec, func() { q.Tick(ctx) })
	if err != nil {
		return fmt.Errorf("jobqueue: invalid cron spec %q: %w", q.cfg.CronSpec, err)
	}
	q.cron = c
	q.entryID = id
	c.Start()
	return nil
}

// Stop halts the dispatch loop, waiting for any in-flight tick to finish.
func (q *Queue) Stop() {
	if q.cron == nil {
		return
	}
	<-q.cron.Stop().Done()
	q.cron = nil
}

// Tick promotes due scheduled jobs to pending, then dispatches at most one
// job, the highest-priority, earliest-enqueued dispatchable job, per
// spec.md §5's "only one job transitions to running per tick."
func (q *Queue) Tick(ctx context.Context) {
	q.promoteScheduled()
	j := q.claimNext()
	if j == nil {
		return
	}
	q.run(ctx, j)
}

func (q *Queue) promoteScheduled() {
	now := time.Now()
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, j := range q.jobs {
		if j.Status == StatusScheduled && !j.RunAt.After(now) {
			j.Status = StatusPending
		}
	}
}

// claimNext finds the next dispatchable job under lock, marks it running,
// and returns a pointer the caller owns exclusively for this attempt.
func (q *Queue) claimNext() *Job {
	now := time.Now()
	q.mu.Lock()
	defer q.mu.Unlock()

	var best *Job
	for _, j := range q.jobs {
		if !q.dispatchableLocked(j, now) {
			continue
		}
		if best == nil {
			best = j
			continue
		}
		if j.Priority != best.Priority {
			if j.Priority > best.Priority {
				best = j
			}
			continue
		}
		if j.seq < best.seq {
			best = j
		}
	}
	if best == nil {
		return nil
	}

	best.Status = StatusRunning
	best.Attempt++
	best.LastAttemptAt = now
	return best
}

func (q *Queue) dispatchableLocked(j *Job, now time.Time) bool {
	if j.Status == StatusPending {
		return true
	}
	if j.Status == StatusRetrying {
		delay := retry.Delay(q.cfg.RetryStrategy, q.cfg.RetryBase, j.Attempt-1)
		return !j.LastAttemptAt.Add(delay).After(now)
	}
	return false
}

func (q *Queue) run(ctx context.Context, j *Job) {
	q.emit(ctx, event.TopicJobStarted, j)

	q.mu.Lock()
	handler := q.handlers[j.Name]
	q.mu.Unlock()

	start := time.Now()
	var runErr error
	if handler == nil {
		runErr = fmt.Errorf("jobqueue: no handler registered for job %q", j.Name)
	} else {
		runErr = handler(ctx, j.Payload)
	}
	duration := time.Since(start)

	q.mu.Lock()
	if runErr == nil {
		j.Status = StatusCompleted
		j.Error = ""
	} else if j.Attempt < j.MaxRetries {
		j.Status = StatusRetrying
		j.Error = runErr.Error()
	} else {
		j.Status = StatusFailed
		j.Error = runErr.Error()
	}
	status := j.Status
	q.mu.Unlock()

	outcome := "completed"
	switch status {
	case StatusRetrying:
		outcome = "retrying"
	case StatusFailed:
		outcome = "failed"
	}
	metrics.RecordJobExecution(j.Name, outcome, duration)
	metrics.SetJobQueueDepth(q.depthLocked())

	switch status {
	case StatusCompleted:
		q.emit(ctx, event.TopicJobCompleted, j)
	case StatusRetrying:
		q.emit(ctx, event.TopicJobFailed, j)
		q.emit(ctx, event.TopicJobRetried, j)
	case StatusFailed:
		q.emit(ctx, event.TopicJobFailed, j)
	}
}
