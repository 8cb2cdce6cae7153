package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/user/ghibli-blocker/internal/entity"
	"github.com/user/ghibli-blocker/pkg/logger"
	"github.com/user/ghibli-blocker/pkg/metrics"
)

var ErrPoolStopped = errors.New("worker pool stopped")

// PostProcessor handles a single post.
type PostProcessor interface {
	Process(ctx context.Context, post entity.NodeRef) (entity.Outcome, error)
}

// WorkerPool runs post pipelines on a fixed number of workers fed by a
// bounded queue. Submit blocks while the queue is full.
type WorkerPool struct {
	processor PostProcessor
	workers   int
	queue     chan entity.NodeRef
	wg        sync.WaitGroup
	mu        sync.RWMutex
	stopped   bool
	logger    *slog.Logger
}

func NewWorkerPool(processor PostProcessor, workers, queueSize int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &WorkerPool{
		processor: processor,
		workers:   workers,
		queue:     make(chan entity.NodeRef, queueSize),
		logger:    logger.Component("worker_pool"),
	}
}

// Start launches the workers. Pipelines run with ctx.
func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	p.logger.Info("Worker pool started", "workers", p.workers, "queue_size", cap(p.queue))
}

// Stop stops accepting posts, lets the workers drain the queue and waits for them.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("Worker pool stopped")
}

// Submit queues post, waiting for room or for ctx to be done.
func (p *WorkerPool) Submit(ctx context.Context, post entity.NodeRef) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.queue <- post:
		metrics.PostsInQueue.Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *WorkerPool) worker(ctx context.Context) {
	defer p.wg.Done()
	for post := range p.queue {
		metrics.PostsInQueue.Dec()
		p.run(ctx, post)
	}
}

// run isolates one pipeline: errors and panics are logged, never propagated.
func (p *WorkerPool) run(ctx context.Context, post entity.NodeRef) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Post pipeline panicked", "post", post, "panic", r)
		}
	}()

	outcome, err := p.processor.Process(ctx, post)
	if err != nil {
		p.logger.Warn("Post pipeline failed", "post", post, "outcome", outcome, "error", err)
		return
	}
	p.logger.Debug("Post processed", "post", post, "outcome", outcome)
}
