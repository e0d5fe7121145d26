package mediaflow

import (
	"errors"
	"fmt"
)

// Sentinel errors for graph mutations.
var (
	// ErrNodeNotFound indicates an operation referenced a non-existent node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrEdgeNotFound indicates an operation referenced a non-existent edge.
	ErrEdgeNotFound = errors.New("edge not found")

	// ErrDuplicateNode indicates AddNode was called with an ID already in use.
	ErrDuplicateNode = errors.New("duplicate node ID")

	// ErrSelfLoop indicates an edge with identical endpoints.
	ErrSelfLoop = errors.New("edge cannot connect a node to itself")
)

// Sentinel errors for generation.
var (
	// ErrAlreadyGenerating indicates Generate was called for a node whose
	// job is still in flight.
	ErrAlreadyGenerating = errors.New("generation already in progress")

	// ErrNoWorkspace indicates Save/Load was called without a configured store.
	ErrNoWorkspace = errors.New("no workspace store configured")
)

// ConnectionError is a user-facing rejection of a candidate edge.
// No mutation occurs when it is returned.
type ConnectionError struct {
	// From and To are the candidate edge endpoints.
	From string
	To   string
	// Reason explains the rejection in user-facing terms.
	Reason string
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cannot connect %s to %s: %s", e.From, e.To, e.Reason)
}

// CycleError indicates the resolver encountered a dependency cycle.
type CycleError struct {
	// NodeID is the node at which the cycle was detected.
	NodeID string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("cyclic dependency detected at node %s", e.NodeID)
}

// DependencyError indicates an upstream node failed, blocking the
// downstream node that triggered resolution.
type DependencyError struct {
	// NodeID is the downstream node whose generation was blocked.
	NodeID string
	// UpstreamID is the node that failed.
	UpstreamID string
	// Message is the upstream node's error message.
	Message string
}

// Error implements the error interface.
func (e *DependencyError) Error() string {
	return fmt.Sprintf("node %s blocked by upstream %s: %s", e.NodeID, e.UpstreamID, e.Message)
}

// GenerationError indicates a node's remote job reached terminal failure.
type GenerationError struct {
	// NodeID is the failed node.
	NodeID string
	// Message is the remote error message, verbatim.
	Message string
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed for node %s: %s", e.NodeID, e.Message)
}
