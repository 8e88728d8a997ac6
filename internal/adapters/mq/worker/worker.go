// Package worker runs HTTPS capability probes pulled off the queue.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/RyDizz214/snappier-server-docker/internal/adapters/mq/queue"
	"github.com/RyDizz214/snappier-server-docker/pkg/logger"
	"github.com/RyDizz214/snappier-server-docker/pkg/metrics"
)

const (
	defaultWorkerCount  = 4
	poolShutdownTimeout = 10 * time.Second
)

// Prober checks whether an http:// URL is also reachable over HTTPS.
type Prober interface {
	Probe(ctx context.Context, httpURL string) bool
}

// Queue defines how workers receive tasks.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Task
}

// Worker processes tasks until its queue drains.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker probes each dequeued URL.
type InMemoryWorker struct {
	queue  Queue
	prober Prober
	name   string

	shutdown chan struct{}
	done     chan struct{}
	once     sync.Once

	processed int
	logger    logger.Logger
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(q Queue, prober Prober, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		prober:   prober,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run consumes tasks until the queue is closed and drained, ctx ends, or
// Shutdown is called.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	tasks := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case task, ok := <-tasks:
			if !ok {
				return
			}
			w.process(ctx, task)
		}
	}
}

// Shutdown stops the worker and waits for the current task.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.once.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Processed is the number of tasks this worker handled.
func (w *InMemoryWorker) Processed() int { return w.processed }

func (w *InMemoryWorker) process(ctx context.Context, task queue.Task) {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	ok := w.prober.Probe(ctx, task.URL)
	w.processed++
	w.logger.Debug(ctx, "probed", logger.String("url", task.URL), logger.Bool("https", ok))
}

// Pool runs several workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	wg      sync.WaitGroup
	logger  logger.Logger
}

// NewPool creates count workers; count < 1 uses a small default.
func NewPool(count int, q Queue, prober Prober) *Pool {
	if count < 1 {
		count = defaultWorkerCount
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, count),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewInMemoryWorker(q, prober, WithName("probe-"+strconv.Itoa(i)))
	}
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	metrics.UpdateWorkerActiveCount(len(p.workers))
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *InMemoryWorker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Wait blocks until every worker has returned and reports the number of
// tasks handled.
func (p *Pool) Wait() int {
	p.wg.Wait()
	metrics.UpdateWorkerActiveCount(0)
	total := 0
	for _, w := range p.workers {
		total += w.Processed()
	}
	return total
}

// Shutdown closes the queue and stops the workers.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			metrics.RecordWorkerError()
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	return nil
}
