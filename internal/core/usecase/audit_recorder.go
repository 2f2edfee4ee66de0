package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

	"github.com/atvirokodosprendimai/envadmin/internal/core/domain"
	"github.com/atvirokodosprendimai/envadmin/internal/core/ports"
)

var ErrRecorderClosed = errors.New("audit recorder closed")

const (
	defaultAuditBuffer  = 1024
	defaultAuditWorkers = 2
	defaultAuditTimeout = 5 * time.Second
)

// AuditJob is one captured exchange waiting to be persisted. SessionToken is
// only used for resolution and is never stored.
type AuditJob struct {
	Entry        domain.AuditLogEntry
	SessionToken string
}

// AuditObserver receives recorder events, typically to export metrics.
type AuditObserver interface {
	AuditEnqueued()
	AuditDropped()
	AuditWriteFailed()
	AuditWritten(d time.Duration)
}

type nopAuditObserver struct{}

func (nopAuditObserver) AuditEnqueued()             {}
func (nopAuditObserver) AuditDropped()              {}
func (nopAuditObserver) AuditWriteFailed()          {}
func (nopAuditObserver) AuditWritten(time.Duration) {}

type AuditRecorderOptions struct {
	BufferSize int
	Workers    int
	// WriteTimeout bounds each job, detached from the request context.
	WriteTimeout time.Duration
	Sessions     ports.SessionResolver
	Forwarder    ports.AuditForwarder
	Observer     AuditObserver
}

type AuditRecorderMetrics struct {
	Enqueued    int64
	Dropped     int64
	Written     int64
	WriteErrors int64
}

// AuditRecorder persists audit entries on background workers so the request
// path only pays for a channel send.
type AuditRecorder struct {
	service   *AuditService
	sessions  ports.SessionResolver
	forwarder ports.AuditForwarder
	observer  AuditObserver
	log       logr.Logger
	timeout   time.Duration

	jobs chan AuditJob

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	enqueued    atomic.Int64
	dropped     atomic.Int64
	written     atomic.Int64
	writeErrors atomic.Int64
}

func NewAuditRecorder(service *AuditService, log logr.Logger, opts AuditRecorderOptions) *AuditRecorder {
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaultAuditBuffer
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultAuditWorkers
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultAuditTimeout
	}
	if opts.Observer == nil {
		opts.Observer = nopAuditObserver{}
	}

	r := &AuditRecorder{
		service:   service,
		sessions:  opts.Sessions,
		forwarder: opts.Forwarder,
		observer:  opts.Observer,
		log:       log.WithName("audit-recorder"),
		timeout:   opts.WriteTimeout,
		jobs:      make(chan AuditJob, opts.BufferSize),
	}
	for i := 0; i < opts.Workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	return r
}

// Enqueue hands job to the workers without blocking. A full buffer or a
// closed recorder drops the job.
func (r *AuditRecorder) Enqueue(job AuditJob) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.drop(job, ErrRecorderClosed)
		return false
	}

	select {
	case r.jobs <- job:
		r.enqueued.Add(1)
		r.observer.AuditEnqueued()
		return true
	default:
		r.drop(job, errors.New("buffer full"))
		return false
	}
}

func (r *AuditRecorder) drop(job AuditJob, reason error) {
	r.dropped.Add(1)
	r.observer.AuditDropped()
	r.log.V(1).Info("audit entry dropped", "event_id", job.Entry.EventID, "reason", reason.Error())
}

// Close stops accepting jobs and waits for the buffer to drain or ctx to end.
func (r *AuditRecorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.jobs)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *AuditRecorder) Metrics() AuditRecorderMetrics {
	return AuditRecorderMetrics{
		Enqueued:    r.enqueued.Load(),
		Dropped:     r.dropped.Load(),
		Written:     r.written.Load(),
		WriteErrors: r.writeErrors.Load(),
	}
}

func (r *AuditRecorder) worker() {
	defer r.wg.Done()
	for job := range r.jobs {
		r.process(job)
	}
}

func (r *AuditRecorder) process(job AuditJob) {
	defer func() {
		if p := recover(); p != nil {
			r.writeErrors.Add(1)
			r.observer.AuditWriteFailed()
			r.log.Error(nil, "audit job panicked", "event_id", job.Entry.EventID, "panic", p)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	entry := job.Entry
	if job.SessionToken != "" && r.sessions != nil {
		sess, err := r.sessions.Resolve(ctx, job.SessionToken)
		switch {
		case err == nil:
			entry.SessionID = sess.ID
			if entry.UserID == "" {
				entry.UserID = sess.UserID
			}
			if entry.UserEmail == "" {
				entry.UserEmail = sess.Email
			}
		case errors.Is(err, domain.ErrNotFound):
		default:
			r.log.V(1).Info("session resolution failed", "event_id", entry.EventID, "error", err.Error())
		}
	}

	start := time.Now()
	stored, ok := r.service.Record(ctx, entry)
	if !ok {
		r.writeErrors.Add(1)
		r.observer.AuditWriteFailed()
		return
	}
	r.written.Add(1)
	r.observer.AuditWritten(time.Since(start))

	if r.forwarder != nil {
		if err := r.forwarder.Forward(ctx, stored); err != nil {
			r.log.Error(err, "audit forward failed", "event_id", stored.EventID, "id", stored.ID)
		}
	}
}
