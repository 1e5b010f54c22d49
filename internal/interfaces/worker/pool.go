package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

var (
	jobTracer          = otel.Tracer("points/worker")
	jobMeter           = otel.Meter("points/worker")
	jobDuration, _     = jobMeter.Float64Histogram("points.job.duration", metric.WithDescription("Job execution duration in seconds"), metric.WithUnit("s"))
	jobTotal, _        = jobMeter.Int64Counter("points.job.total", metric.WithDescription("Total jobs executed by status"))
	jobQueueDropped, _ = jobMeter.Int64Counter("points.job.queue_dropped", metric.WithDescription("Jobs dropped due to full queue"))
)

var (
	ErrQueueFull   = errors.New("job queue full")
	ErrPoolStopped = errors.New("worker pool stopped")
)

// Pool runs point jobs on a fixed number of goroutines fed from a buffered
// channel. Jobs for the same account may run on different workers at once;
// serialization is the point service's job, not the pool's.
type Pool struct {
	workerCount int
	jobTimeout  time.Duration
	jobs        chan Job
	limiter     *rate.Limiter // nil means unlimited
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a pool. jobTimeout bounds each Execute call; zero means
// jobs only stop when the pool is cancelled.
func NewPool(workerCount int, jobTimeout time.Duration, queueSize int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		workerCount: workerCount,
		jobTimeout:  jobTimeout,
		jobs:        make(chan Job, queueSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetRateLimit caps job starts across all workers at perSecond. Call it
// before Start.
func (p *Pool) SetRateLimit(perSecond float64, burst int) {
	if perSecond <= 0 {
		p.limiter = nil
		return
	}
	if burst < 1 {
		burst = 1
	}
	p.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
}

func (p *Pool) Start() {
	log.Printf("Starting worker pool with %d workers", p.workerCount)

	for i := 1; i <= p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			if p.limiter != nil {
				if err := p.limiter.Wait(p.ctx); err != nil {
					return
				}
			}
			p.processJob(id, job)
		}
	}
}

func (p *Pool) processJob(workerID int, job Job) {
	ctx := p.ctx
	if p.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.jobTimeout)
		defer cancel()
	}

	ctx, span := jobTracer.Start(ctx, "job.execute",
		trace.WithAttributes(
			attribute.Int("worker.id", workerID),
			attribute.String("job.description", job.Description()),
			attribute.Int64("job.account_id", job.AccountID()),
		),
	)
	defer span.End()

	start := time.Now()
	err := job.Execute(ctx)
	jobDuration.Record(ctx, time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		jobTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "error")))
		return
	}
	jobTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "success")))
}

// Submit enqueues without blocking and returns ErrQueueFull when the buffer
// is saturated.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolStopped
	}

	select {
	case p.jobs <- job:
		return nil
	default:
		jobQueueDropped.Add(context.Background(), 1)
		return fmt.Errorf("%w: dropping %s for account %d", ErrQueueFull, job.Description(), job.AccountID())
	}
}

// SubmitWait blocks until the job is queued, ctx is done or the pool stops.
func (p *Pool) SubmitWait(ctx context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolStopped
	}

	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPoolStopped
	}
}

// SubmitBatch queues jobs, blocking on a full queue, and returns how many
// were accepted.
func (p *Pool) SubmitBatch(ctx context.Context, jobs []Job) int {
	submitted := 0
	for _, job := range jobs {
		if err := p.SubmitWait(ctx, job); err != nil {
			log.Printf("Failed to submit %s for account %d: %v", job.Description(), job.AccountID(), err)
			break
		}
		submitted++
	}
	log.Printf("Submitted %d/%d jobs to worker pool", submitted, len(jobs))
	return submitted
}

// Shutdown stops accepting jobs, drains the queue and waits for workers.
// If ctx expires first, in-flight jobs are cancelled and ctx.Err is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.cancelOnce()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		log.Println("Worker pool: shutdown complete")
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		log.Println("Worker pool: shutdown deadline reached, cancelled in-flight jobs")
		return ctx.Err()
	}
}

func (p *Pool) cancelOnce() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.jobs)
}
