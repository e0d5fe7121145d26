package mediaflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rmurphy/mediaflow/pkg/mediaflow/chat"
	"github.com/rmurphy/mediaflow/pkg/mediaflow/genapi"
	"github.com/rmurphy/mediaflow/pkg/mediaflow/notify"
	"github.com/rmurphy/mediaflow/pkg/mediaflow/observability"
	"github.com/rmurphy/mediaflow/pkg/mediaflow/template"
)

// Engine ties one workspace together: the graph, the connection
// validator, the dependency resolver, the task poller, and persistence.
// It is the single entry point the render layer talks to.
//
// Image and video nodes generate asynchronously through the remote
// service; chat and template nodes complete synchronously in-process.
type Engine struct {
	workspaceID string
	graph       *Graph
	gen         genapi.Client
	chat        chat.Completer
	templates   *template.Registry
	store       WorkspaceStore
	bus         *notify.Bus
	logger      *slog.Logger
	metrics     observability.MetricsRecorder
	spans       observability.SpanManager
	catalog     Catalog
	poller      *Poller
	pollerOpts  []PollerOption
}

// NewEngine creates an engine for the given workspace ID. Backends are
// wired through options; anything left unset gets a safe default (no-op
// metrics, empty template registry, default model catalog).
func NewEngine(workspaceID string, opts ...Option) *Engine {
	e := &Engine{
		workspaceID: workspaceID,
		graph:       NewGraph("Untitled Workspace"),
		templates:   template.NewRegistry(),
		bus:         notify.NewBus(),
		metrics:     observability.NoopMetrics{},
		spans:       observability.NoopSpanManager{},
		catalog:     DefaultCatalog,
	}
	for _, opt := range opts {
		opt(e)
	}

	pollerOpts := append([]PollerOption{
		WithPollerLogger(e.logger),
		WithPollerMetrics(e.metrics),
		WithPollerNotifier(e.bus),
	}, e.pollerOpts...)
	e.poller = NewPoller(e.graph, e.gen, pollerOpts...)

	return e
}

// WorkspaceID returns the workspace this engine manages.
func (e *Engine) WorkspaceID() string { return e.workspaceID }

// Graph returns the workspace graph.
func (e *Engine) Graph() *Graph { return e.graph }

// Templates returns the prompt-template registry.
func (e *Engine) Templates() *template.Registry { return e.templates }

// Bus returns the notification bus.
func (e *Engine) Bus() *notify.Bus { return e.bus }

// Close stops every polling loop and waits for them to exit. Node state
// already written stays; in-flight jobs keep running server-side and are
// picked up again on the next Load.
func (e *Engine) Close() {
	e.poller.StopAll()
}

// Connect validates and creates an edge between two nodes. When the
// target's input slot is already occupied, the existing edge is replaced.
// Rejections are published as warnings and returned as *ConnectionError;
// nothing is mutated on rejection.
func (e *Engine) Connect(from, to string) (Edge, error) {
	dec := CheckConnection(e.graph, from, to, e.catalog)
	if !dec.Allowed {
		e.notify(notify.LevelWarning, to, "Cannot connect: "+dec.Reason)
		return Edge{}, &ConnectionError{From: from, To: to, Reason: dec.Reason}
	}

	if dec.ReplaceEdgeID != "" {
		if err := e.graph.RemoveEdge(dec.ReplaceEdgeID); err != nil {
			return Edge{}, err
		}
	}
	return e.graph.AddEdge(from, to)
}

// Disconnect removes an edge by ID.
func (e *Engine) Disconnect(edgeID string) error {
	return e.graph.RemoveEdge(edgeID)
}

// ChangeModel switches a node's model. On image nodes, switching to a
// model without reference support prunes existing inbound reference
// edges, since they could no longer be honored at generation time.
func (e *Engine) ChangeModel(nodeID, modelID string) error {
	n, ok := e.graph.Node(nodeID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}

	switch n.Type {
	case NodeImage:
		if err := e.graph.UpdateNode(nodeID, func(m *Node) {
			m.Image().Model = modelID
		}); err != nil {
			return err
		}
		if !e.catalog.SupportsReference(modelID) {
			e.pruneReferenceEdges(nodeID, modelID)
		}
		return nil

	case NodeVideo:
		return e.graph.UpdateNode(nodeID, func(m *Node) {
			m.Video().Model = modelID
		})

	case NodeChat:
		return e.graph.UpdateNode(nodeID, func(m *Node) {
			m.Chat().Model = modelID
		})

	default:
		return fmt.Errorf("mediaflow: %s nodes have no model", n.Type)
	}
}

// pruneReferenceEdges removes inbound image edges that the node's new
// model cannot consume, announcing each removal.
func (e *Engine) pruneReferenceEdges(nodeID, modelID string) {
	for _, edge := range e.graph.InboundEdges(nodeID) {
		up, ok := e.graph.Node(edge.From)
		if !ok || up.Type != NodeImage {
			continue
		}
		if err := e.graph.RemoveEdge(edge.ID); err != nil {
			continue
		}
		e.notify(notify.LevelWarning, nodeID,
			fmt.Sprintf("Reference input removed: %s does not support reference images", modelID))
	}
}

// Generate runs a node. Template and chat nodes complete before Generate
// returns. Image and video nodes have their upstream dependencies
// resolved first (blocking), then the job is submitted and Generate
// returns while a polling loop drives it to a terminal state; use Await
// to block on the result.
//
// Returns ErrAlreadyGenerating if the node's job is still in flight.
func (e *Engine) Generate(ctx context.Context, nodeID string) error {
	n, ok := e.graph.Node(nodeID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	if n.Status().InFlight() {
		return fmt.Errorf("%w: %s", ErrAlreadyGenerating, nodeID)
	}

	ctx, span := e.spans.StartGenerationSpan(ctx, nodeID, string(n.Type))
	var err error
	defer func() { e.spans.EndSpanWithError(span, err) }()

	path := map[string]bool{nodeID: true}

	switch n.Type {
	case NodeTemplate:
		err = e.runTemplate(nodeID)
	case NodeChat:
		err = e.runChat(ctx, nodeID, path)
	default:
		if err = e.ensureReady(ctx, nodeID, path); err != nil {
			e.failNode(nodeID, err.Error())
			return err
		}
		err = e.submit(ctx, nodeID)
	}
	return err
}

// Await blocks until the node's generation reaches a terminal state or
// ctx is done. Returns immediately for nodes with no job in flight.
func (e *Engine) Await(ctx context.Context, nodeID string) error {
	return e.poller.Await(ctx, nodeID)
}

// CancelGeneration stops a node's in-flight generation: the polling loop
// is torn down, the remote job is cancelled best-effort, and the node
// returns to idle.
func (e *Engine) CancelGeneration(ctx context.Context, nodeID string) error {
	n, ok := e.graph.Node(nodeID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}

	e.poller.Stop(nodeID)

	if jobID := n.GenerationID(); jobID != "" && e.gen != nil {
		// Best-effort: the service may have already finished the job.
		_ = e.gen.Cancel(ctx, jobID)
	}

	err := e.graph.UpdateNode(nodeID, func(m *Node) {
		if t := taskOf(m); t != nil {
			t.Status = StatusIdle
			t.GenerationID = ""
			t.Progress = 0
			t.ErrorMessage = ""
		}
	})
	if err != nil {
		return err
	}

	e.notify(notify.LevelInfo, nodeID, "Generation cancelled")
	return nil
}

// Save persists the workspace. On success the dirty flag clears; on
// failure it stays set so unsaved work remains visible as unsaved.
func (e *Engine) Save(ctx context.Context) error {
	if e.store == nil {
		return ErrNoWorkspace
	}

	if err := e.store.Save(ctx, e.workspaceID, e.graph.Document()); err != nil {
		observability.LogSaveError(e.logger, e.workspaceID, err)
		e.notify(notify.LevelWarning, "", "Workspace save failed; changes kept locally")
		return err
	}

	e.graph.clearDirty()
	return nil
}

// Load replaces the local graph with the stored document and resumes
// polling for every node whose job was in flight when the workspace was
// last saved. In-flight nodes without a job handle cannot be resumed and
// are reset to idle.
func (e *Engine) Load(ctx context.Context) error {
	if e.store == nil {
		return ErrNoWorkspace
	}

	doc, err := e.store.Load(ctx, e.workspaceID)
	if err != nil {
		return err
	}

	e.poller.StopAll()
	e.graph.Replace(doc)

	for _, n := range e.graph.Nodes() {
		if !n.Status().InFlight() {
			continue
		}
		if jobID := n.GenerationID(); jobID != "" {
			observability.LogRecovery(e.logger, n.ID, jobID)
			e.poller.Start(n.ID, jobID)
			continue
		}
		e.graph.UpdateNode(n.ID, func(m *Node) {
			resetStatus(m)
		})
	}
	return nil
}

// submit builds the generation request for an image or video node,
// marks it pending, and hands the returned job to the poller. Request
// assembly errors (no model, no prompt) leave the node idle.
func (e *Engine) submit(ctx context.Context, nodeID string) error {
	if e.gen == nil {
		return fmt.Errorf("mediaflow: no generation client configured")
	}

	n, ok := e.graph.Node(nodeID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	kind := string(n.Type)

	req, err := e.buildRequest(n)
	if err != nil {
		e.notify(notify.LevelWarning, nodeID, err.Error())
		return err
	}

	e.graph.UpdateNode(nodeID, func(m *Node) {
		t := taskOf(m)
		t.Status = StatusPending
		t.GenerationID = ""
		t.OutputURL = ""
		t.OutputType = ""
		t.Progress = 0
		t.Cost = 0
		t.ErrorMessage = ""
		switch d := m.Data.(type) {
		case *ImageData:
			d.ReferenceImageURL = req.ReferenceImageURL
		case *VideoData:
			d.ReferenceImageURL = req.ReferenceImageURL
		}
	})

	jobID, err := e.gen.Submit(ctx, kind, req)
	e.metrics.RecordSubmission(ctx, kind, err)
	if err != nil {
		e.failNode(nodeID, err.Error())
		return &GenerationError{NodeID: nodeID, Message: err.Error()}
	}

	e.graph.UpdateNode(nodeID, func(m *Node) {
		taskOf(m).GenerationID = jobID
	})
	observability.LogSubmit(e.logger, nodeID, kind, req.Model, jobID)
	e.poller.Start(nodeID, jobID)
	return nil
}

// buildRequest assembles the submit request for a generation node,
// pulling prompt text and reference imagery from completed upstream
// nodes when the node's own prompt is empty.
func (e *Engine) buildRequest(n *Node) (genapi.SubmitRequest, error) {
	text, images := e.upstreamInputs(n.ID)
	var ref string
	if len(images) > 0 {
		ref = images[0]
	}

	switch d := n.Data.(type) {
	case *ImageData:
		prompt := d.Prompt
		if prompt == "" {
			prompt = text
		}
		if d.Model == "" {
			return genapi.SubmitRequest{}, fmt.Errorf("no model selected")
		}
		if prompt == "" {
			return genapi.SubmitRequest{}, fmt.Errorf("no prompt provided")
		}
		if ref != "" && !e.catalog.SupportsReference(d.Model) {
			ref = ""
		}
		return genapi.SubmitRequest{
			Model:             d.Model,
			Prompt:            prompt,
			AspectRatio:       d.AspectRatio,
			Size:              d.Size,
			ReferenceImageURL: ref,
		}, nil

	case *VideoData:
		prompt := d.Prompt
		if prompt == "" {
			prompt = text
		}
		if d.Model == "" {
			return genapi.SubmitRequest{}, fmt.Errorf("no model selected")
		}
		if prompt == "" {
			return genapi.SubmitRequest{}, fmt.Errorf("no prompt provided")
		}
		return genapi.SubmitRequest{
			Model:             d.Model,
			Prompt:            prompt,
			AspectRatio:       d.AspectRatio,
			Duration:          d.Duration,
			ReferenceImageURL: ref,
		}, nil

	default:
		return genapi.SubmitRequest{}, fmt.Errorf("mediaflow: %s nodes do not submit jobs", n.Type)
	}
}

// runTemplate resolves a prompt-template node synchronously.
func (e *Engine) runTemplate(nodeID string) error {
	n, ok := e.graph.Node(nodeID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	td := n.Template()
	if td == nil {
		return fmt.Errorf("mediaflow: node %s is not a template node", nodeID)
	}
	if td.TemplateID == "" {
		err := &GenerationError{NodeID: nodeID, Message: "no template selected"}
		e.failNode(nodeID, err.Message)
		return err
	}

	text, err := e.templates.Resolve(td.TemplateID, nil)
	if err != nil {
		e.failNode(nodeID, err.Error())
		return &GenerationError{NodeID: nodeID, Message: err.Error()}
	}

	e.graph.UpdateNode(nodeID, func(m *Node) {
		d := m.Template()
		d.Status = StatusCompleted
		d.TemplateOutput = text
		d.ErrorMessage = ""
	})
	return nil
}

// runChat runs a chat node synchronously against the LLM backend.
// Upstream dependencies (reference images, template text) are resolved
// first; path carries the resolution chain for cycle detection.
func (e *Engine) runChat(ctx context.Context, nodeID string, path map[string]bool) error {
	if e.chat == nil {
		return fmt.Errorf("mediaflow: no chat backend configured")
	}

	if err := e.ensureReady(ctx, nodeID, path); err != nil {
		e.failNode(nodeID, err.Error())
		return err
	}

	n, ok := e.graph.Node(nodeID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	cd := n.Chat()
	if cd == nil {
		return fmt.Errorf("mediaflow: node %s is not a chat node", nodeID)
	}

	text, images := e.upstreamInputs(nodeID)
	prompt := cd.Prompt
	if prompt == "" {
		prompt = text
	}
	if prompt == "" {
		err := &GenerationError{NodeID: nodeID, Message: "no prompt provided"}
		e.notify(notify.LevelWarning, nodeID, err.Message)
		return err
	}

	history := make([]chat.Turn, 0, len(cd.Messages))
	for _, m := range cd.Messages {
		history = append(history, chat.Turn{Role: m.Role, Content: m.Content})
	}

	e.graph.UpdateNode(nodeID, func(m *Node) {
		d := m.Chat()
		d.Status = StatusProcessing
		d.ErrorMessage = ""
		d.InputImages = append([]string(nil), images...)
	})

	resp, err := e.chat.Complete(ctx, chat.Request{
		Model:     cd.Model,
		Prompt:    prompt,
		History:   history,
		ImageURLs: images,
	})
	if err != nil {
		e.failNode(nodeID, err.Error())
		return &GenerationError{NodeID: nodeID, Message: err.Error()}
	}

	e.graph.UpdateNode(nodeID, func(m *Node) {
		d := m.Chat()
		d.Status = StatusCompleted
		d.ChatOutput = resp.Content
		d.Messages = append(d.Messages,
			ChatMessage{Role: chat.RoleUser, Content: prompt},
			ChatMessage{Role: chat.RoleAssistant, Content: resp.Content},
		)
	})
	return nil
}

// upstreamInputs collects the usable outputs of a node's completed
// upstream neighbors: the first text output (chat or template) and
// every image output, in edge insertion order.
func (e *Engine) upstreamInputs(nodeID string) (text string, images []string) {
	for _, edge := range e.graph.InboundEdges(nodeID) {
		up, ok := e.graph.Node(edge.From)
		if !ok {
			continue
		}
		switch up.Type {
		case NodeImage:
			if d := up.Image(); d.OutputURL != "" {
				images = append(images, d.OutputURL)
			}
		case NodeChat:
			if d := up.Chat(); text == "" && d.ChatOutput != "" {
				text = d.ChatOutput
			}
		case NodeTemplate:
			if d := up.Template(); text == "" && d.TemplateOutput != "" {
				text = d.TemplateOutput
			}
		}
	}
	return text, images
}

// failNode marks a node failed with the given message and announces it.
func (e *Engine) failNode(nodeID, message string) {
	e.graph.UpdateNode(nodeID, func(m *Node) {
		setFailure(m, message)
	})
	observability.LogGenerationFailed(e.logger, nodeID, message)
	e.notify(notify.LevelError, nodeID, message)
}

// notify publishes a notification if a bus is configured.
func (e *Engine) notify(level notify.Level, nodeID, message string) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(notify.New(level, nodeID, message))
}

// setFailure writes a failed status and message into any payload variant.
func setFailure(n *Node, message string) {
	switch d := n.Data.(type) {
	case *ImageData:
		d.Status = StatusFailed
		d.ErrorMessage = message
	case *VideoData:
		d.Status = StatusFailed
		d.ErrorMessage = message
	case *ChatData:
		d.Status = StatusFailed
		d.ErrorMessage = message
	case *TemplateData:
		d.Status = StatusFailed
		d.ErrorMessage = message
	}
}

// resetStatus returns any payload variant to idle, clearing progress.
func resetStatus(n *Node) {
	switch d := n.Data.(type) {
	case *ImageData:
		d.Status = StatusIdle
		d.Progress = 0
	case *VideoData:
		d.Status = StatusIdle
		d.Progress = 0
	case *ChatData:
		d.Status = StatusIdle
	case *TemplateData:
		d.Status = StatusIdle
	}
}

// nodeErrorMessage returns the payload's stored error message.
func nodeErrorMessage(n *Node) string {
	switch d := n.Data.(type) {
	case *ImageData:
		return d.ErrorMessage
	case *VideoData:
		return d.ErrorMessage
	case *ChatData:
		return d.ErrorMessage
	case *TemplateData:
		return d.ErrorMessage
	default:
		return ""
	}
}
