package mediaflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rmurphy/mediaflow/pkg/mediaflow/genapi"
	"github.com/rmurphy/mediaflow/pkg/mediaflow/notify"
	"github.com/rmurphy/mediaflow/pkg/mediaflow/observability"
)

// Poller default tuning. Overridable through PollerOptions.
const (
	DefaultPollInterval         = 2 * time.Second
	DefaultInitialBackoff       = time.Second
	DefaultMaxBackoff           = 30 * time.Second
	DefaultMaxConsecutiveErrors = 5
	DefaultMaxPollAttempts      = 300
)

// poll is one live polling loop.
type poll struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Poller drives remote generation jobs to a terminal state. Each
// in-flight node gets its own polling loop, keyed by node ID, so a
// second start for the same node is a no-op while the first loop runs.
//
// A loop polls the generation service at a fixed interval, retries
// transient failures with exponential backoff, and writes the terminal
// result into the graph. Cancellation is cooperative: once a loop's
// context is cancelled it stops without touching node state again.
type Poller struct {
	graph   *Graph
	client  genapi.Client
	bus     *notify.Bus
	logger  *slog.Logger
	metrics observability.MetricsRecorder

	interval             time.Duration
	initialBackoff       time.Duration
	maxBackoff           time.Duration
	maxConsecutiveErrors int
	maxAttempts          int

	mu    sync.Mutex
	polls map[string]*poll
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithPollInterval sets the delay between successful status polls.
func WithPollInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithPollBackoff sets the initial and maximum retry delays used after
// transient poll failures.
func WithPollBackoff(initial, max time.Duration) PollerOption {
	return func(p *Poller) {
		if initial > 0 {
			p.initialBackoff = initial
		}
		if max > 0 {
			p.maxBackoff = max
		}
	}
}

// WithMaxConsecutiveErrors sets the transient-error streak at which a
// polling loop gives up and fails the node.
func WithMaxConsecutiveErrors(n int) PollerOption {
	return func(p *Poller) {
		if n > 0 {
			p.maxConsecutiveErrors = n
		}
	}
}

// WithMaxPollAttempts caps the total polls per job, guarding against
// jobs the service never terminates.
func WithMaxPollAttempts(n int) PollerOption {
	return func(p *Poller) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithPollerLogger sets the structured logger for poll events.
func WithPollerLogger(logger *slog.Logger) PollerOption {
	return func(p *Poller) { p.logger = logger }
}

// WithPollerMetrics sets the metrics recorder for poll events.
func WithPollerMetrics(m observability.MetricsRecorder) PollerOption {
	return func(p *Poller) { p.metrics = m }
}

// WithPollerNotifier sets the bus terminal results are announced on.
func WithPollerNotifier(bus *notify.Bus) PollerOption {
	return func(p *Poller) { p.bus = bus }
}

// NewPoller creates a poller writing results into g via client.
func NewPoller(g *Graph, client genapi.Client, opts ...PollerOption) *Poller {
	p := &Poller{
		graph:                g,
		client:               client,
		metrics:              observability.NoopMetrics{},
		interval:             DefaultPollInterval,
		initialBackoff:       DefaultInitialBackoff,
		maxBackoff:           DefaultMaxBackoff,
		maxConsecutiveErrors: DefaultMaxConsecutiveErrors,
		maxAttempts:          DefaultMaxPollAttempts,
		polls:                make(map[string]*poll),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins polling the given remote job for a node. If a loop is
// already running for the node, Start is a no-op; generation requests
// for an in-flight node are rejected upstream, and reload recovery must
// not double-poll.
func (p *Poller) Start(nodeID, jobID string) {
	n, ok := p.graph.Node(nodeID)
	if !ok {
		return
	}
	kind := string(n.Type)

	p.mu.Lock()
	if _, running := p.polls[nodeID]; running {
		p.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	pl := &poll{cancel: cancel, done: make(chan struct{})}
	p.polls[nodeID] = pl
	p.mu.Unlock()

	go p.run(ctx, pl, nodeID, jobID, kind)
}

// Active reports whether a polling loop is running for the node.
func (p *Poller) Active(nodeID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.polls[nodeID]
	return ok
}

// Stop cancels the node's polling loop, if any, and waits for it to
// exit. It does not touch node state or the remote job; that is the
// caller's decision.
func (p *Poller) Stop(nodeID string) {
	p.mu.Lock()
	pl, ok := p.polls[nodeID]
	p.mu.Unlock()
	if !ok {
		return
	}

	pl.cancel()
	<-pl.done
}

// StopAll cancels every polling loop and waits for them to exit.
func (p *Poller) StopAll() {
	p.mu.Lock()
	active := make([]*poll, 0, len(p.polls))
	for _, pl := range p.polls {
		active = append(active, pl)
	}
	p.mu.Unlock()

	for _, pl := range active {
		pl.cancel()
		<-pl.done
	}
}

// Await blocks until the node's polling loop exits or ctx is done.
// Returns immediately if no loop is running.
func (p *Poller) Await(ctx context.Context, nodeID string) error {
	p.mu.Lock()
	pl, ok := p.polls[nodeID]
	p.mu.Unlock()
	if !ok {
		return nil
	}

	select {
	case <-pl.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is one polling loop. It owns the node's remote-job bookkeeping
// until it returns.
func (p *Poller) run(ctx context.Context, pl *poll, nodeID, jobID, kind string) {
	defer func() {
		p.mu.Lock()
		if p.polls[nodeID] == pl {
			delete(p.polls, nodeID)
		}
		p.mu.Unlock()
		close(pl.done)
	}()

	started := time.Now()
	backoff := genapi.NewBackoff(p.initialBackoff, p.maxBackoff)
	consecutive := 0
	attempts := 0
	delay := p.interval

	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		attempts++
		if attempts > p.maxAttempts {
			p.fail(ctx, nodeID, kind, "generation timed out", started)
			return
		}

		pollStart := time.Now()
		status, err := p.client.Status(ctx, jobID)
		p.metrics.RecordPoll(ctx, nodeID, time.Since(pollStart), err)

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if genapi.IsTransient(err) {
				consecutive++
				if consecutive >= p.maxConsecutiveErrors {
					p.fail(ctx, nodeID, kind,
						fmt.Sprintf("generation service unreachable: %v", err), started)
					return
				}
				delay = backoff.Next()
				observability.LogPollRetry(p.logger, nodeID, consecutive, delay, err)
				p.metrics.RecordRetry(ctx, nodeID)
				timer.Reset(delay)
				continue
			}
			p.fail(ctx, nodeID, kind, err.Error(), started)
			return
		}

		consecutive = 0
		backoff.Reset()
		delay = p.interval
		observability.LogPoll(p.logger, nodeID, jobID, string(status.State), status.Progress)

		switch status.State {
		case genapi.StateCompleted:
			// A completed report without an output URL is treated as
			// still processing. The service occasionally flips state
			// before the asset upload finishes.
			if status.URL == "" {
				p.progress(ctx, nodeID, status.Progress)
				timer.Reset(delay)
				continue
			}
			p.complete(ctx, nodeID, kind, status, started)
			return

		case genapi.StateFailed:
			msg := status.ErrorMessage
			if msg == "" {
				msg = "generation failed"
			}
			p.fail(ctx, nodeID, kind, msg, started)
			return

		case genapi.StateCancelled:
			p.fail(ctx, nodeID, kind, "generation cancelled by service", started)
			return

		default:
			p.progress(ctx, nodeID, status.Progress)
			timer.Reset(delay)
		}
	}
}

// progress moves a pending node to processing and records progress.
// Skipped when the loop has been cancelled.
func (p *Poller) progress(ctx context.Context, nodeID string, progress int) {
	if ctx.Err() != nil {
		return
	}
	p.graph.UpdateNode(nodeID, func(n *Node) {
		t := taskOf(n)
		if t == nil {
			return
		}
		t.Status = StatusProcessing
		if progress > t.Progress {
			t.Progress = progress
		}
	})
}

// complete writes a successful terminal result into the node.
func (p *Poller) complete(ctx context.Context, nodeID, kind string, status genapi.JobStatus, started time.Time) {
	if ctx.Err() != nil {
		return
	}
	p.graph.UpdateNode(nodeID, func(n *Node) {
		t := taskOf(n)
		if t == nil {
			return
		}
		t.Status = StatusCompleted
		t.OutputURL = status.URL
		t.OutputType = status.OutputType
		t.Progress = 100
		t.Cost = status.Cost
		t.ErrorMessage = ""
	})

	elapsed := time.Since(started)
	observability.LogGenerationComplete(p.logger, nodeID, status.URL, float64(elapsed.Milliseconds()))
	p.metrics.RecordGeneration(ctx, kind, true, elapsed)
	if p.bus != nil {
		p.bus.Publish(notify.New(notify.LevelSuccess, nodeID, "Generation completed"))
	}
}

// fail writes a failed terminal result into the node.
func (p *Poller) fail(ctx context.Context, nodeID, kind, message string, started time.Time) {
	if ctx.Err() != nil {
		return
	}
	p.graph.UpdateNode(nodeID, func(n *Node) {
		t := taskOf(n)
		if t == nil {
			return
		}
		t.Status = StatusFailed
		t.ErrorMessage = message
	})

	observability.LogGenerationFailed(p.logger, nodeID, message)
	p.metrics.RecordGeneration(ctx, kind, false, time.Since(started))
	if p.bus != nil {
		p.bus.Publish(notify.New(notify.LevelError, nodeID, "Generation failed: "+message))
	}
}

// taskOf returns the remote-job bookkeeping of a generation-producing
// node, or nil for chat and template nodes.
func taskOf(n *Node) *Task {
	switch d := n.Data.(type) {
	case *ImageData:
		return &d.Task
	case *VideoData:
		return &d.Task
	default:
		return nil
	}
}
