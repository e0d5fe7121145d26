package mediaflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmurphy/mediaflow/pkg/mediaflow/genapi"
)

// newTestPoller builds a millisecond-speed poller over a fresh graph
// holding one pending image node.
func newTestPoller(t *testing.T, gen genapi.Client, opts ...PollerOption) (*Poller, *Graph, string) {
	t.Helper()
	g := NewGraph("ws")
	id := addImageNode(t, g, "flux-schnell", "a cat")
	g.UpdateNode(id, func(n *Node) {
		n.Image().Status = StatusPending
		n.Image().GenerationID = "job-1"
	})

	base := []PollerOption{
		WithPollInterval(time.Millisecond),
		WithPollBackoff(time.Millisecond, 4*time.Millisecond),
	}
	p := NewPoller(g, gen, append(base, opts...)...)
	t.Cleanup(p.StopAll)
	return p, g, id
}

func transientErr() pollResult {
	return pollResult{err: &genapi.HTTPError{StatusCode: 503, Message: "unavailable"}}
}

// TestPoller_CompletesJob drives a job through processing to completion.
func TestPoller_CompletesJob(t *testing.T) {
	gen := newFakeGen(
		working(20),
		working(60),
		pollResult{status: genapi.JobStatus{
			State: genapi.StateCompleted, URL: "https://cdn/cat.png",
			OutputType: "image/png", Cost: 0.02,
		}},
	)
	p, g, id := newTestPoller(t, gen)

	p.Start(id, "job-1")
	require.NoError(t, p.Await(context.Background(), id))

	n, _ := g.Node(id)
	assert.Equal(t, StatusCompleted, n.Status())
	assert.Equal(t, "https://cdn/cat.png", n.Image().OutputURL)
	assert.Equal(t, "image/png", n.Image().OutputType)
	assert.Equal(t, 100, n.Image().Progress)
	assert.Equal(t, 0.02, n.Image().Cost)
	assert.Empty(t, n.Image().ErrorMessage)
}

// TestPoller_ProgressUpdates verifies intermediate polls move the node
// to processing with monotonic progress.
func TestPoller_ProgressUpdates(t *testing.T) {
	gen := newFakeGen(working(40), working(10), done("https://cdn/x.png"))
	p, g, id := newTestPoller(t, gen)

	p.Start(id, "job-1")
	require.NoError(t, p.Await(context.Background(), id))

	// Progress never went backwards despite the service reporting 10
	// after 40.
	n, _ := g.Node(id)
	assert.Equal(t, 100, n.Image().Progress)
}

// TestPoller_FailedJob writes the remote error message into the node.
func TestPoller_FailedJob(t *testing.T) {
	gen := newFakeGen(pollResult{status: genapi.JobStatus{
		State: genapi.StateFailed, ErrorMessage: "NSFW content rejected",
	}})
	p, g, id := newTestPoller(t, gen)

	p.Start(id, "job-1")
	require.NoError(t, p.Await(context.Background(), id))

	n, _ := g.Node(id)
	assert.Equal(t, StatusFailed, n.Status())
	assert.Equal(t, "NSFW content rejected", n.Image().ErrorMessage)
}

// TestPoller_FailedJob_DefaultMessage verifies failures without a
// service message still get one.
func TestPoller_FailedJob_DefaultMessage(t *testing.T) {
	gen := newFakeGen(pollResult{status: genapi.JobStatus{State: genapi.StateFailed}})
	p, g, id := newTestPoller(t, gen)

	p.Start(id, "job-1")
	require.NoError(t, p.Await(context.Background(), id))

	n, _ := g.Node(id)
	assert.Equal(t, "generation failed", n.Image().ErrorMessage)
}

// TestPoller_CompletedWithoutURL keeps polling until the output exists.
func TestPoller_CompletedWithoutURL(t *testing.T) {
	gen := newFakeGen(
		pollResult{status: genapi.JobStatus{State: genapi.StateCompleted, Progress: 100}},
		pollResult{status: genapi.JobStatus{State: genapi.StateCompleted, Progress: 100}},
		done("https://cdn/late.png"),
	)
	p, g, id := newTestPoller(t, gen)

	p.Start(id, "job-1")
	require.NoError(t, p.Await(context.Background(), id))

	n, _ := g.Node(id)
	assert.Equal(t, StatusCompleted, n.Status())
	assert.Equal(t, "https://cdn/late.png", n.Image().OutputURL)
	assert.GreaterOrEqual(t, gen.polls("job-1"), 3)
}

// TestPoller_TransientErrorsRecover verifies retries with backoff and
// counter reset on success.
func TestPoller_TransientErrorsRecover(t *testing.T) {
	gen := newFakeGen(
		transientErr(),
		transientErr(),
		working(50),
		transientErr(), // streak reset: this is error #1, not #3
		transientErr(),
		done("https://cdn/x.png"),
	)
	p, g, id := newTestPoller(t, gen, WithMaxConsecutiveErrors(3))

	p.Start(id, "job-1")
	require.NoError(t, p.Await(context.Background(), id))

	assert.Equal(t, StatusCompleted, nodeStatus(t, g, id))
}

// TestPoller_TooManyConsecutiveErrors fails the node once the transient
// streak hits the limit.
func TestPoller_TooManyConsecutiveErrors(t *testing.T) {
	gen := newFakeGen(transientErr())
	p, g, id := newTestPoller(t, gen, WithMaxConsecutiveErrors(3))

	p.Start(id, "job-1")
	require.NoError(t, p.Await(context.Background(), id))

	n, _ := g.Node(id)
	assert.Equal(t, StatusFailed, n.Status())
	assert.Contains(t, n.Image().ErrorMessage, "unreachable")
	assert.Equal(t, 3, gen.polls("job-1"))
}

// TestPoller_PermanentErrorFailsImmediately verifies non-transient
// errors terminate without retries.
func TestPoller_PermanentErrorFailsImmediately(t *testing.T) {
	gen := newFakeGen(pollResult{err: &genapi.HTTPError{StatusCode: 404, Message: "job not found"}})
	p, g, id := newTestPoller(t, gen)

	p.Start(id, "job-1")
	require.NoError(t, p.Await(context.Background(), id))

	assert.Equal(t, StatusFailed, nodeStatus(t, g, id))
	assert.Equal(t, 1, gen.polls("job-1"))
}

// TestPoller_MaxAttempts fails jobs the service never terminates.
func TestPoller_MaxAttempts(t *testing.T) {
	gen := newFakeGen(working(50))
	p, g, id := newTestPoller(t, gen, WithMaxPollAttempts(4))

	p.Start(id, "job-1")
	require.NoError(t, p.Await(context.Background(), id))

	n, _ := g.Node(id)
	assert.Equal(t, StatusFailed, n.Status())
	assert.Equal(t, "generation timed out", n.Image().ErrorMessage)
}

// TestPoller_Start_Idempotent verifies a second Start while a loop runs
// is a no-op.
func TestPoller_Start_Idempotent(t *testing.T) {
	gen := newFakeGen(working(10), working(20), done("https://cdn/x.png"))
	p, g, id := newTestPoller(t, gen)

	p.Start(id, "job-1")
	p.Start(id, "job-1")
	require.NoError(t, p.Await(context.Background(), id))

	assert.Equal(t, StatusCompleted, nodeStatus(t, g, id))
	// One loop, three polls; a duplicate loop would have doubled them.
	assert.Equal(t, 3, gen.polls("job-1"))
}

// TestPoller_Start_UnknownNode verifies Start without a node is inert.
func TestPoller_Start_UnknownNode(t *testing.T) {
	gen := newFakeGen(done("x"))
	p, _, _ := newTestPoller(t, gen)
	p.Start("ghost", "job-9")
	assert.False(t, p.Active("ghost"))
}

// TestPoller_Stop_LeavesStateAlone verifies cancellation never writes a
// terminal state.
func TestPoller_Stop_LeavesStateAlone(t *testing.T) {
	gen := newFakeGen(working(30))
	p, g, id := newTestPoller(t, gen)

	p.Start(id, "job-1")
	// Let at least one poll land so the node is processing.
	require.Eventually(t, func() bool {
		n, ok := g.Node(id)
		return ok && n.Status() == StatusProcessing
	}, time.Second, time.Millisecond)

	p.Stop(id)
	assert.False(t, p.Active(id))
	assert.Equal(t, StatusProcessing, nodeStatus(t, g, id))
}

// TestPoller_Await_NoLoop returns immediately when nothing is running.
func TestPoller_Await_NoLoop(t *testing.T) {
	gen := newFakeGen(done("x"))
	p, _, id := newTestPoller(t, gen)
	assert.NoError(t, p.Await(context.Background(), id))
}

// TestPoller_Await_ContextCancel unblocks waiters when their context ends.
func TestPoller_Await_ContextCancel(t *testing.T) {
	gen := newFakeGen(working(10))
	p, _, id := newTestPoller(t, gen)

	p.Start(id, "job-1")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Await(ctx, id)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestPoller_StopAll tears down multiple loops.
func TestPoller_StopAll(t *testing.T) {
	gen := newFakeGen(working(10))
	p, g, id := newTestPoller(t, gen)
	id2 := addVideoNode(t, g, "kling-v1.6", "waves")
	g.UpdateNode(id2, func(n *Node) { n.Video().Status = StatusPending })

	p.Start(id, "job-1")
	p.Start(id2, "job-2")
	p.StopAll()

	assert.False(t, p.Active(id))
	assert.False(t, p.Active(id2))
}
