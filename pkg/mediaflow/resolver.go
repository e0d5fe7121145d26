package mediaflow

import (
	"context"
	"errors"
	"fmt"
)

// ensureReady brings every upstream dependency of a node to a usable
// state before the node itself runs. For each inbound edge:
//
//   - completed upstream with output: nothing to do
//   - failed upstream: the node is blocked (DependencyError)
//   - in-flight upstream: wait for its polling loop to finish
//   - idle upstream: generate it, recursively resolving its own
//     dependencies first
//
// path carries the node IDs on the current resolution chain; revisiting
// one means the edges form a cycle, reported as CycleError. Resolution
// is depth-first and blocking, so by the time ensureReady returns nil,
// every upstream output the node needs exists in the graph.
func (e *Engine) ensureReady(ctx context.Context, nodeID string, path map[string]bool) error {
	ctx, span := e.spans.StartResolveSpan(ctx, nodeID)
	var err error
	defer func() { e.spans.EndSpanWithError(span, err) }()

	for _, edge := range e.graph.InboundEdges(nodeID) {
		up, ok := e.graph.Node(edge.From)
		if !ok {
			continue
		}

		if up.Status() == StatusCompleted && up.HasOutput() {
			continue
		}

		if path[up.ID] {
			err = &CycleError{NodeID: up.ID}
			return err
		}

		switch {
		case up.Status() == StatusFailed:
			err = &DependencyError{NodeID: nodeID, UpstreamID: up.ID, Message: nodeErrorMessage(up)}
			return err

		case up.Status().InFlight():
			if werr := e.poller.Await(ctx, up.ID); werr != nil {
				err = werr
				return err
			}

		default:
			path[up.ID] = true
			gerr := e.generateUpstream(ctx, up.ID, path)
			delete(path, up.ID)
			if gerr != nil {
				err = wrapUpstreamError(nodeID, up.ID, gerr)
				return err
			}
		}

		// Re-read: the await or generation above must have produced output.
		cur, ok := e.graph.Node(up.ID)
		if !ok || cur.Status() != StatusCompleted || !cur.HasOutput() {
			msg := "upstream produced no output"
			if ok {
				if m := nodeErrorMessage(cur); m != "" {
					msg = m
				}
			}
			err = &DependencyError{NodeID: nodeID, UpstreamID: up.ID, Message: msg}
			return err
		}
	}
	return nil
}

// generateUpstream runs one upstream node to completion. Synchronous
// node types run inline; generation nodes are submitted and then waited
// on, so the caller sees a terminal state when this returns.
func (e *Engine) generateUpstream(ctx context.Context, nodeID string, path map[string]bool) error {
	n, ok := e.graph.Node(nodeID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}

	switch n.Type {
	case NodeTemplate:
		return e.runTemplate(nodeID)
	case NodeChat:
		return e.runChat(ctx, nodeID, path)
	default:
		if err := e.ensureReady(ctx, nodeID, path); err != nil {
			e.failNode(nodeID, err.Error())
			return err
		}
		if err := e.submit(ctx, nodeID); err != nil {
			return err
		}
		return e.poller.Await(ctx, nodeID)
	}
}

// wrapUpstreamError shapes an upstream generation failure for the
// downstream node. Cycle errors pass through untouched so the root
// cause stays visible.
func wrapUpstreamError(nodeID, upstreamID string, err error) error {
	var ce *CycleError
	if errors.As(err, &ce) {
		return err
	}
	return &DependencyError{NodeID: nodeID, UpstreamID: upstreamID, Message: err.Error()}
}
