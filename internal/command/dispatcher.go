package command

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/user/armory-card/internal/domain"
	"go.uber.org/zap"
)

// ErrQueueFull is returned by Submit when every worker is busy and the queue has no room.
var ErrQueueFull = errors.New("command queue is full")

// DeliverTimeout bounds posting one reply to its followup URL.
const DeliverTimeout = 30 * time.Second

// ErrStopped is returned by Submit after Stop.
var ErrStopped = errors.New("dispatcher stopped")

// Job is a deferred command whose reply is posted to FollowupURL.
type Job struct {
	Command     string
	Request     domain.CommandRequest
	FollowupURL string
}

// Deliverer posts a finished reply to a followup URL.
type Deliverer interface {
	Deliver(ctx context.Context, url string, reply *Reply) error
}

// Executor runs a single command.
type Executor interface {
	Execute(ctx context.Context, command string, req domain.CommandRequest) (*Reply, error)
	FailureReply(req domain.CommandRequest, err error) *Reply
}

// Dispatcher runs deferred commands on a fixed pool of workers.
type Dispatcher struct {
	exec      Executor
	deliverer Deliverer
	workers   int
	timeout   time.Duration
	logger    *zap.Logger
	jobQueue  chan Job
	mu        sync.RWMutex
	stopped   bool
	wg        sync.WaitGroup
}

// NewDispatcher builds a dispatcher. timeout bounds command execution; delivery
// gets its own DeliverTimeout.
func NewDispatcher(exec Executor, d Deliverer, workers, queueSize int, timeout time.Duration, l *zap.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &Dispatcher{
		exec:      exec,
		deliverer: d,
		workers:   workers,
		timeout:   timeout,
		logger:    l,
		jobQueue:  make(chan Job, queueSize),
	}
}

func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

// Stop drains queued jobs and waits for the workers to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.jobQueue)
	d.mu.Unlock()
	d.wg.Wait()
}

// Submit queues job without blocking.
func (d *Dispatcher) Submit(job Job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrStopped
	}
	select {
	case d.jobQueue <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for job := range d.jobQueue {
		d.process(job)
	}
}

func (d *Dispatcher) process(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	reply, err := d.exec.Execute(ctx, job.Command, job.Request)
	if err != nil {
		reply = d.exec.FailureReply(job.Request, err)
	}

	// Execute may overrun its deadline; the reply is still owed.
	deliverCtx, deliverCancel := context.WithTimeout(context.WithoutCancel(ctx), DeliverTimeout)
	defer deliverCancel()
	if err := d.deliverer.Deliver(deliverCtx, job.FollowupURL, reply); err != nil {
		d.logger.Error("failed to deliver reply",
			zap.String("command", job.Command),
			zap.String("character", job.Request.Character),
			zap.Error(err))
		return
	}
	d.logger.Info("delivered reply",
		zap.String("command", job.Command),
		zap.String("character", job.Request.Character),
		zap.Bool("image", len(reply.Image) > 0))
}
