package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tender-backend/internal/queue"
	"tender-backend/internal/shared/telemetry"
)

// Dispatcher hands a job to whatever will drive it to a terminal state.
type Dispatcher interface {
	Dispatch(ctx context.Context, jobID string) error
}

// Processor drives one job until it is terminal.
type Processor interface {
	Run(ctx context.Context, jobID string) (Status, error)
}

// QueueDispatcher publishes jobs to a message queue for an out-of-process worker.
type QueueDispatcher struct {
	Client queue.Client
	Now    func() time.Time
}

// Dispatch sends one message per call.
func (d QueueDispatcher) Dispatch(ctx context.Context, jobID string) error {
	if d.Client == nil {
		return errors.New("queue client not configured")
	}
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	return d.Client.Send(ctx, queue.NewMessage(jobID, RequestIDFromContext(ctx), now()))
}

var (
	// ErrRunnerClosed is returned by Dispatch after Shutdown.
	ErrRunnerClosed = errors.New("runner is shutting down")
	// ErrRunnerBusy is returned when the queue stays full for the enqueue wait.
	ErrRunnerBusy = errors.New("runner queue is full")
)

// Runner is an in-process worker pool. Each job runs under its own timeout
// on a context detached from the caller.
type Runner struct {
	proc        Processor
	workers     int
	timeout     time.Duration
	enqueueWait time.Duration

	ch   chan runRequest
	wg   sync.WaitGroup
	once sync.Once

	// quit wakes senders blocked on a full queue.
	quit     chan struct{}
	quitOnce sync.Once

	mu     sync.RWMutex
	closed bool
}

type runRequest struct {
	jobID     string
	requestID string
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

func WithWorkers(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

func WithQueueSize(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.ch = make(chan runRequest, n)
		}
	}
}

func WithJobTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithEnqueueWait bounds how long Dispatch waits for room in a full queue.
func WithEnqueueWait(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.enqueueWait = d
		}
	}
}

// NewRunner starts the worker goroutines.
func NewRunner(proc Processor, opts ...RunnerOption) *Runner {
	r := &Runner{
		proc:        proc,
		workers:     4,
		timeout:     10 * time.Minute,
		enqueueWait: 5 * time.Second,
		ch:          make(chan runRequest, 256),
		quit:        make(chan struct{}),
	}
	for _, o := range opts {
		o(r)
	}
	r.start()
	return r
}

func (r *Runner) start() {
	r.once.Do(func() {
		for i := 0; i < r.workers; i++ {
			r.wg.Add(1)
			go func(workerID int) {
				defer r.wg.Done()
				for req := range r.ch {
					r.runOne(workerID, req)
				}
			}(i + 1)
		}
	})
}

func (r *Runner) runOne(workerID int, req runRequest) {
	ctx, cancel := context.WithTimeout(WithRequestID(context.Background(), req.requestID), r.timeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil {
			telemetry.Error("runner.panic", map[string]any{
				"worker_id":  workerID,
				"job_id":     req.jobID,
				"request_id": req.requestID,
				"panic":      fmt.Sprint(rec),
			})
		}
	}()

	st, err := r.proc.Run(ctx, req.jobID)
	if err != nil {
		telemetry.Error("runner.job.failed", map[string]any{
			"worker_id":  workerID,
			"job_id":     req.jobID,
			"request_id": req.requestID,
			"error":      err.Error(),
		})
		return
	}
	telemetry.Info("runner.job.done", map[string]any{
		"worker_id":  workerID,
		"job_id":     req.jobID,
		"request_id": req.requestID,
		"state":      st.State,
	})
}

// Dispatch queues a job. It blocks when the buffer is full.
func (r *Runner) Dispatch(ctx context.Context, jobID string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrRunnerClosed
	}
	req := runRequest{jobID: jobID, requestID: RequestIDFromContext(ctx)}
	select {
	case r.ch <- req:
		return nil
	default:
	}

	telemetry.Warn("runner.backpressure", map[string]any{"job_id": jobID})
	wait := time.NewTimer(r.enqueueWait)
	defer wait.Stop()
	select {
	case r.ch <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-r.quit:
		return ErrRunnerClosed
	case <-wait.C:
		return ErrRunnerBusy
	}
}

// Shutdown stops accepting jobs and waits for in-flight ones until ctx ends.
func (r *Runner) Shutdown(ctx context.Context) {
	r.quitOnce.Do(func() { close(r.quit) })
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.ch)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); r.wg.Wait() }()

	select {
	case <-ctx.Done():
		telemetry.Warn("runner.shutdown.interrupted", nil)
	case <-done:
	}
}

var (
	_ Dispatcher = QueueDispatcher{}
	_ Dispatcher = (*Runner)(nil)
)
