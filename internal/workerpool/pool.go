// Package workerpool runs command tasks on a fixed set of long-lived workers.
// Workers are reused across commands, so each task first rebinds its worker
// to the task's command before running.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/michsien/buck/internal/routing"
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("workerpool: pool is closed")

// Task is one unit of work. The context carries the worker's ID and the
// logger is routed to the task's command.
type Task func(ctx context.Context, logger zerolog.Logger) error

// LoggerFactory builds the logger a worker uses for its whole lifetime.
type LoggerFactory func(worker routing.WorkerID) zerolog.Logger

type job struct {
	task      Task
	commandID string
}

// Pool is a fixed-size worker pool. The first failing task cancels the rest.
type Pool struct {
	ctx       context.Context
	group     *errgroup.Group
	registrar routing.WorkerRegistrar
	jobs      chan job
	workers   []routing.WorkerID
	mu        sync.RWMutex
	closed    bool
}

// Config sizes a Pool.
type Config struct {
	Workers   int
	QueueSize int
}

// New starts cfg.Workers workers. They stop when ctx is canceled, a task
// fails, or Close drains the queue.
func New(ctx context.Context, cfg Config, registrar routing.WorkerRegistrar, newLogger LoggerFactory) (*Pool, error) {
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("workerpool: workers must be > 0, got %d", cfg.Workers)
	}
	if cfg.QueueSize < 0 {
		return nil, fmt.Errorf("workerpool: queue size must be >= 0, got %d", cfg.QueueSize)
	}

	group, gctx := errgroup.WithContext(ctx)
	p := &Pool{
		ctx:       gctx,
		group:     group,
		registrar: registrar,
		jobs:      make(chan job, cfg.QueueSize),
		workers:   make([]routing.WorkerID, cfg.Workers),
	}

	for i := range p.workers {
		id := routing.NextWorkerID()
		p.workers[i] = id
		logger := newLogger(id)
		group.Go(func() error {
			return p.run(routing.WithWorker(gctx, id), id, logger)
		})
	}
	return p, nil
}

func (p *Pool) run(ctx context.Context, id routing.WorkerID, logger zerolog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case j, ok := <-p.jobs:
			if !ok {
				return nil
			}
			p.registrar.Register(id, j.commandID)
			if err := j.task(ctx, logger); err != nil {
				return fmt.Errorf("worker %s: command %s: %w", id, j.commandID, err)
			}
		}
	}
}

// Workers returns the IDs of the pool's workers.
func (p *Pool) Workers() []routing.WorkerID {
	return append([]routing.WorkerID(nil), p.workers...)
}

// Submit queues task to run on behalf of commandID. It blocks while the
// queue is full and fails once the pool is closed or canceled.
func (p *Pool) Submit(ctx context.Context, commandID string, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.jobs <- job{task: task, commandID: commandID}:
		return nil
	case <-p.ctx.Done():
		return context.Cause(p.ctx)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks, waits for queued tasks to finish, and returns
// the first task error. Repeated calls return the same result.
func (p *Pool) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	return p.group.Wait()
}
