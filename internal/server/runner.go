package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/danielolaszy/nudge/internal/logging"
	"github.com/danielolaszy/nudge/pkg/models"
)

// ErrRunnerClosed is returned by Submit once the runner has been closed.
var ErrRunnerClosed = errors.New("digest runner is shut down")

// Pipeline performs one digest run.
type Pipeline interface {
	Run(ctx context.Context, input models.PipelineInput) error
}

type job struct {
	ctx    context.Context
	input  models.PipelineInput
	result chan error
}

// Runner executes digest runs one at a time on a single worker goroutine.
// Submissions queue up behind the run in flight, so at most one run talks to
// JIRA and Slack at any moment. This caps throughput at one digest per run
// duration.
type Runner struct {
	pipeline Pipeline
	timeout  time.Duration
	jobs     chan job
	quit     chan struct{}
	done     chan struct{}
	once     sync.Once
}

// NewRunner starts a Runner. queueSize bounds how many submissions wait
// without blocking their callers; timeout bounds each run (zero means only
// the caller's context bounds it).
func NewRunner(pipeline Pipeline, queueSize int, timeout time.Duration) *Runner {
	r := &Runner{
		pipeline: pipeline,
		timeout:  timeout,
		jobs:     make(chan job, queueSize),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go r.work()
	return r
}

// Submit queues a run and waits for its result. If ctx ends first, Submit
// returns ctx.Err(); a queued run is then skipped and a run in flight is
// cancelled through the same context.
func (r *Runner) Submit(ctx context.Context, input models.PipelineInput) error {
	select {
	case <-r.quit:
		return ErrRunnerClosed
	default:
	}

	j := job{ctx: ctx, input: input, result: make(chan error, 1)}
	select {
	case r.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-r.quit:
		return ErrRunnerClosed
	}

	select {
	case err := <-j.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		select {
		case err := <-j.result:
			return err
		default:
			return ErrRunnerClosed
		}
	}
}

// Close stops the worker after the run in flight, if any, and waits for it
// to exit. Queued runs are abandoned. Close is safe to call more than once.
func (r *Runner) Close() {
	r.once.Do(func() { close(r.quit) })
	<-r.done
}

func (r *Runner) work() {
	defer close(r.done)
	for {
		select {
		case <-r.quit:
			return
		case j := <-r.jobs:
			j.result <- r.exec(j)
		}
	}
}

func (r *Runner) exec(j job) error {
	if err := j.ctx.Err(); err != nil {
		logging.Debug("skipping abandoned digest run", "channel", j.input.Channel, "error", err)
		return err
	}

	ctx := j.ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.pipeline.Run(ctx, j.input)
}
