package taskrunner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"highlight-ai/log"
)

const (
	defaultQueueSize   = 128
	defaultConcurrency = 2
)

var (
	ErrRunnerStopped = errors.New("task runner stopped")
	ErrQueueFull     = errors.New("task queue is full")
)

// Config controls in-process task runner behavior.
type Config struct {
	QueueSize   int
	Concurrency int
}

// DefaultConfig returns a small-server default config.
func DefaultConfig() Config {
	return Config{
		QueueSize:   defaultQueueSize,
		Concurrency: defaultConcurrency,
	}
}

// TaskFunc receives a context that is canceled when the runner closes.
type TaskFunc func(ctx context.Context)

type queuedTask struct {
	name string
	fn   TaskFunc
}

// Runner executes queued tasks with a fixed set of in-memory workers.
type Runner struct {
	config Config

	queue  chan queuedTask
	ctx    context.Context
	cancel context.CancelFunc

	workerWg sync.WaitGroup
	closed   atomic.Bool
	running  atomic.Int64
}

// New creates and starts a task runner.
func New(cfg Config) *Runner {
	cfg = normalizeConfig(cfg)
	ctx, cancel := context.WithCancel(context.Background())

	runner := &Runner{
		config: cfg,
		queue:  make(chan queuedTask, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}

	for i := 0; i < cfg.Concurrency; i++ {
		runner.workerWg.Add(1)
		go runner.worker(i + 1)
	}

	return runner
}

func normalizeConfig(cfg Config) Config {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return cfg
}

// Submit queues fn without blocking. A full queue is reported as
// ErrQueueFull instead of waiting.
func (r *Runner) Submit(name string, fn TaskFunc) error {
	if fn == nil {
		return errors.New("task func is required")
	}
	if r.closed.Load() {
		return ErrRunnerStopped
	}

	select {
	case <-r.ctx.Done():
		return ErrRunnerStopped
	case r.queue <- queuedTask{name: name, fn: fn}:
		log.GetLogger().Debug("[TaskRunner] task submitted", zap.String("task", name))
		return nil
	default:
		return ErrQueueFull
	}
}

func (r *Runner) worker(workerID int) {
	defer r.workerWg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		default:
		}

		select {
		case <-r.ctx.Done():
			return
		case task := <-r.queue:
			r.processTask(workerID, task)
		}
	}
}

func (r *Runner) processTask(workerID int, task queuedTask) {
	r.running.Add(1)
	defer r.running.Add(-1)
	defer func() {
		if rec := recover(); rec != nil {
			log.GetLogger().Error("[TaskRunner] task panicked",
				zap.Int("worker_id", workerID),
				zap.String("task", task.name),
				zap.String("panic", fmt.Sprint(rec)))
		}
	}()

	task.fn(r.ctx)
}

// Close stops workers and rejects new tasks. Queued tasks that have not
// started are dropped.
func (r *Runner) Close() {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}

	r.cancel()
	r.workerWg.Wait()
}

// Pending returns the number of queued tasks waiting for workers.
func (r *Runner) Pending() int {
	return len(r.queue)
}

// Running returns the number of tasks currently executing.
func (r *Runner) Running() int {
	return int(r.running.Load())
}
