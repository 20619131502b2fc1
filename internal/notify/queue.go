package notify

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

	"github.com/objectql/objectos-sub004/internal/retry"
	pkgerrors "github.com/objectql/objectos-sub004/pkg/errors"
	"github.com/objectql/objectos-sub004/pkg/metrics"
)

// Config configures a Queue.
type Config struct {
	// Synchronous makes Send dispatch directly to the channel handler
	// instead of enqueuing, per spec.md §4.9's "if the queue is disabled
	// ... send becomes a synchronous call to the channel handler."
	Synchronous bool

	DefaultMaxRetries int
	RetryBase         time.Duration
	RetryStrategy     retry.Strategy
	CronSpec          string

	Logger *zap.Logger
}

// Queue is the in-memory notification dispatch queue.
type Queue struct {
	mu   sync.Mutex
	ntfs map[string]*Notification

	handlers map[Channel]ChannelHandler

	cfg Config
	log *zap.Logger
	seq atomic.Int64

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
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Queue{
		ntfs:     make(map[string]*Notification),
		handlers: make(map[Channel]ChannelHandler),
		cfg:      cfg,
		log:      cfg.Logger,
	}
}

// RegisterChannel binds a channel to the function that actually dispatches
// over it (SMTP client, SMS gateway, push provider, webhook POST, all
// external collaborators per spec.md §1).
func (q *Queue) RegisterChannel(channel Channel, handler ChannelHandler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[channel] = handler
}

// Send accepts req. In synchronous mode it renders and dispatches inline,
// returning the handler's error. Otherwise it enqueues and returns the
// notification id immediately.
func (q *Queue) Send(ctx context.Context, req Request, maxRetries int) (string, error) {
	if maxRetries <= 0 {
		maxRetries = q.cfg.DefaultMaxRetries
	}

	n := &Notification{
		ID:         uuid.NewString(),
		Request:    req,
		Status:     StatusPending,
		MaxRetries: maxRetries,
		CreatedAt:  time.Now(),
		seq:        q.seq.Add(1),
	}

	if q.cfg.Synchronous {
		n.Status = StatusRunning
		n.Attempts++
		n.LastAttemptAt = time.Now()
		err := q.dispatch(ctx, n)
		if err != nil {
			n.Status = StatusFailed
			n.Error = err.Error()
		} else {
			n.Status = StatusSent
		}
		q.mu.Lock()
		q.ntfs[n.ID] = n
		q.mu.Unlock()
		return n.ID, err
	}

	q.mu.Lock()
	q.ntfs[n.ID] = n
	q.mu.Unlock()
	return n.ID, nil
}

func (q *Queue) dispatch(ctx context.Context, n *Notification) error {
	subject, body, err := Render(n.Request)
	if err != nil {
		return err
	}
	rendered := n.Request
	rendered.Subject = subject
	rendered.Body = body

	q.mu.Lock()
	handler := q.handlers[n.Request.Channel]
	q.mu.Unlock()

	if handler == nil {
		return fmt.Errorf("notify: no handler registered for channel %q", n.Request.Channel)
	}

	return handler(ctx, Notification{ID: n.ID, Request: rendered, Attempts: n.Attempts})
}

// Cancel transitions id from pending to cancelled.
func (q *Queue) Cancel(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	n, ok := q.ntfs[id]
	if !ok {
		return pkgerrors.NotFound("notification", id)
	}
	if n.Status != StatusPending {
		return pkgerrors.New(pkgerrors.ErrCodeOperational,
			fmt.Sprintf("notification %q cannot be cancelled from status %q", id, n.Status), 409)
	}
	n.Status = StatusCancelled
	return nil
}

// Get returns a copy of a notification by id.
func (q *Queue) Get(id string) (Notification, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n, ok := q.ntfs[id]
	if !ok {
		return Notification{}, false
	}
	return *n, true
}

// Status summarizes queue contents for the queue/status endpoint.
func (q *Queue) Status() QueueStatus {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := QueueStatus{Enabled: !q.cfg.Synchronous}
	for _, n := range q.ntfs {
		switch n.Status {
		case StatusPending:
			s.Pending++
		case StatusRunning:
			s.Running++
		case StatusRetrying:
			s.Retrying++
		case StatusSent:
			s.Sent++
		case StatusFailed:
			s.Failed++
		case StatusCancelled:
			s.Cancelled++
		}
		s.Total++
	}
	return s
}

// List returns every queued notification, newest first.
func (q *Queue) List() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Notification, 0, len(q.ntfs))
	for _, n := range q.ntfs {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return out
}

// Start begins the cron-driven dispatch loop, a no-op in synchronous mode
// or when Config.CronSpec is empty. A loop begun by an earlier Start is
// stopped first, so at most one loop runs.
func (q *Queue) Start(ctx context.Context) error {
	if q.cfg.Synchronous || q.cfg.CronSpec == "" {
		return nil
	}
	if q.cron != nil {
		q.Stop()
	}
	c := cron.New()
	id, err := c.AddFunc(q.cfg.CronSpec, func() { q.Tick(ctx) })
	if err != nil {
		return fmt.Errorf("notify: invalid cron spec %q: %w", q.cfg.CronSpec, err)
	}
	q.cron = c
	q.entryID = id
	c.Start()
	return nil
}

// Stop halts the dispatch loop.
func (q *Queue) Stop() {
	if q.cron == nil {
		return
	}
	<-q.cron.Stop().Done()
	q.cron = nil
}

// Tick dispatches at most one pending/retry-due notification, the same
// single-claim-per-tick discipline as internal/jobqueue.Queue.Tick.
func (q *Queue) Tick(ctx context.Context) {
	n := q.claimNext()
	if n == nil {
		return
	}

	err := q.dispatch(ctx, n)

	q.mu.Lock()
	if err == nil {
		n.Status = StatusSent
		n.Error = ""
	} else if n.Attempts < n.MaxRetries {
		n.Status = StatusRetrying
		n.Error = err.Error()
	} else {
		n.Status = StatusFailed
		n.Error = err.Error()
	}
	outcome := string(n.Status)
	q.mu.Unlock()

	metrics.RecordNotificationDispatch(string(n.Request.Channel), outcome)
}

func (q *Queue) claimNext() *Notification {
	now := time.Now()
	q.mu.Lock()
	defer q.mu.Unlock()

	var best *Notification
	for _, n := range q.ntfs {
		if !q.dispatchableLocked(n, now) {
			continue
		}
		if best == nil || n.seq < best.seq {
			best = n
		}
	}
	if best == nil {
		return nil
	}
	best.Status = StatusRunning
	best.Attempts++
	best.LastAttemptAt = now
	return best
}

func (q *Queue) dispatchableLocked(n *Notification, now time.Time) bool {
	if n.Status == StatusPending {
		return true
	}
	if n.Status == StatusRetrying {
		delay := retry.Delay(q.cfg.RetryStrategy, q.cfg.RetryBase, n.Attempts-1)
		return !n.LastAttemptAt.Add(delay).After(now)
	}
	return false
}
