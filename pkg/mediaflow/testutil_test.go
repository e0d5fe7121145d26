package mediaflow

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rmurphy/mediaflow/pkg/mediaflow/chat"
	"github.com/rmurphy/mediaflow/pkg/mediaflow/genapi"
)

// pollResult is one scripted answer from the fake generation service.
type pollResult struct {
	status genapi.JobStatus
	err    error
}

// fakeGen is a scripted genapi.Client. Every submitted job walks the
// script one entry per poll; the last entry repeats once exhausted.
// Per-job overrides go in perJob, keyed by the returned job ID
// ("job-1", "job-2", ... in submission order).
type fakeGen struct {
	mu        sync.Mutex
	nextID    int
	submitted []submission
	submitErr error
	script    []pollResult
	perJob    map[string][]pollResult
	calls     map[string]int
	cancelled []string
}

type submission struct {
	kind string
	req  genapi.SubmitRequest
}

func newFakeGen(script ...pollResult) *fakeGen {
	return &fakeGen{
		script: script,
		perJob: make(map[string][]pollResult),
		calls:  make(map[string]int),
	}
}

// done is a completed poll result with the given output URL.
func done(url string) pollResult {
	return pollResult{status: genapi.JobStatus{State: genapi.StateCompleted, URL: url, Progress: 100}}
}

// working is an in-progress poll result.
func working(progress int) pollResult {
	return pollResult{status: genapi.JobStatus{State: genapi.StateProcessing, Progress: progress}}
}

func (f *fakeGen) Submit(_ context.Context, kind string, req genapi.SubmitRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.nextID++
	f.submitted = append(f.submitted, submission{kind: kind, req: req})
	return fmt.Sprintf("job-%d", f.nextID), nil
}

func (f *fakeGen) Status(_ context.Context, id string) (genapi.JobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	script := f.script
	if s, ok := f.perJob[id]; ok {
		script = s
	}
	if len(script) == 0 {
		return genapi.JobStatus{}, fmt.Errorf("no script for job %s", id)
	}

	idx := f.calls[id]
	f.calls[id]++
	if idx >= len(script) {
		idx = len(script) - 1
	}
	r := script[idx]
	return r.status, r.err
}

func (f *fakeGen) Cancel(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, id)
	return nil
}

func (f *fakeGen) submissions() []submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]submission(nil), f.submitted...)
}

func (f *fakeGen) polls(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

// fakeCompleter is a canned chat.Completer.
type fakeCompleter struct {
	mu    sync.Mutex
	resp  string
	err   error
	calls []chat.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req chat.Request) (chat.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return chat.Response{}, f.err
	}
	return chat.Response{Content: f.resp}, nil
}

func (f *fakeCompleter) lastCall() chat.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

// fastPoller makes polling loops run at test speed.
func fastPoller() Option {
	return WithPollerOptions(
		WithPollInterval(time.Millisecond),
		WithPollBackoff(time.Millisecond, 4*time.Millisecond),
	)
}

// newTestEngine wires an engine around the fake generation client with
// millisecond polling.
func newTestEngine(t *testing.T, gen genapi.Client, opts ...Option) *Engine {
	t.Helper()
	base := []Option{WithGenerationClient(gen), fastPoller()}
	eng := NewEngine("ws-test", append(base, opts...)...)
	t.Cleanup(eng.Close)
	return eng
}

// addImageNode adds a ready-to-generate image node and returns its ID.
func addImageNode(t *testing.T, g *Graph, model, prompt string) string {
	t.Helper()
	n := NewNode(NodeImage, "image", Position{})
	n.Image().Model = model
	n.Image().Prompt = prompt
	if err := g.AddNode(n); err != nil {
		t.Fatalf("add image node: %v", err)
	}
	return n.ID
}

// addVideoNode adds a ready-to-generate video node and returns its ID.
func addVideoNode(t *testing.T, g *Graph, model, prompt string) string {
	t.Helper()
	n := NewNode(NodeVideo, "video", Position{})
	n.Video().Model = model
	n.Video().Prompt = prompt
	if err := g.AddNode(n); err != nil {
		t.Fatalf("add video node: %v", err)
	}
	return n.ID
}

// addChatNode adds a chat node and returns its ID.
func addChatNode(t *testing.T, g *Graph, model, prompt string) string {
	t.Helper()
	n := NewNode(NodeChat, "chat", Position{})
	n.Chat().Model = model
	n.Chat().Prompt = prompt
	if err := g.AddNode(n); err != nil {
		t.Fatalf("add chat node: %v", err)
	}
	return n.ID
}

// addTemplateNode adds a prompt-template node and returns its ID.
func addTemplateNode(t *testing.T, g *Graph, templateID string) string {
	t.Helper()
	n := NewNode(NodeTemplate, "template", Position{})
	n.Template().TemplateID = templateID
	if err := g.AddNode(n); err != nil {
		t.Fatalf("add template node: %v", err)
	}
	return n.ID
}

// nodeStatus reads a node's current status, failing the test if the
// node is gone.
func nodeStatus(t *testing.T, g *Graph, id string) Status {
	t.Helper()
	n, ok := g.Node(id)
	if !ok {
		t.Fatalf("node %s not found", id)
	}
	return n.Status()
}
