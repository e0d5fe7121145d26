package mediaflow

import (
	"context"
	"fmt"
	"sync"
)

// Document is the persisted form of a workspace: its name plus the full
// node/edge collections, saved and loaded as one atomic unit.
type Document struct {
	Name string    `json:"name"`
	Data GraphData `json:"data"`
}

// GraphData holds the serialized node and edge collections.
type GraphData struct {
	Nodes []*Node `json:"nodes"`
	Edges []Edge  `json:"edges"`
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	c := &Document{Name: d.Name}
	c.Data.Nodes = make([]*Node, 0, len(d.Data.Nodes))
	for _, n := range d.Data.Nodes {
		c.Data.Nodes = append(c.Data.Nodes, n.Clone())
	}
	c.Data.Edges = append([]Edge(nil), d.Data.Edges...)
	return c
}

// WorkspaceStore persists whole workspace documents. Implementations
// live in the store package; the engine depends only on this contract.
type WorkspaceStore interface {
	// Load fetches a workspace document by ID.
	Load(ctx context.Context, id string) (*Document, error)

	// Save persists a workspace document, replacing any prior version.
	Save(ctx context.Context, id string, doc *Document) error
}

// Graph owns the canonical node and edge collections of a workspace.
//
// All reads return copies; mutation happens only through the listed
// operations, which preserve the referential invariants:
//   - every edge's endpoints exist
//   - no self-loops
//   - removing a node removes every edge touching it
//
// Every mutating operation marks the workspace dirty. Graph is safe for
// concurrent use; it is the only synchronization boundary shared by the
// resolver and the pollers.
type Graph struct {
	mu        sync.RWMutex
	name      string
	nodes     map[string]*Node
	nodeOrder []string
	edges     map[string]Edge
	edgeOrder []string
	dirty     bool
}

// NewGraph creates an empty workspace graph with the given name.
func NewGraph(name string) *Graph {
	return &Graph{
		name:  name,
		nodes: make(map[string]*Node),
		edges: make(map[string]Edge),
	}
}

// Name returns the workspace name.
func (g *Graph) Name() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.name
}

// SetName renames the workspace.
func (g *Graph) SetName(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.name == name {
		return
	}
	g.name = name
	g.dirty = true
}

// AddNode adds a node to the graph.
// Returns ErrDuplicateNode if the ID is already in use.
func (g *Graph) AddNode(n *Node) error {
	if n == nil {
		return fmt.Errorf("mediaflow: node cannot be nil")
	}
	if n.ID == "" {
		return fmt.Errorf("mediaflow: node ID cannot be empty")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[n.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
	}

	g.nodes[n.ID] = n.Clone()
	g.nodeOrder = append(g.nodeOrder, n.ID)
	g.dirty = true
	return nil
}

// Node returns a copy of the node with the given ID.
func (g *Graph) Node(id string) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}

// Nodes returns copies of all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		out = append(out, g.nodes[id].Clone())
	}
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// UpdateNode applies mutate to the node with the given ID under the
// graph lock. The node's ID and Type must not be changed; payload and
// cosmetic fields may.
func (g *Graph) UpdateNode(id string, mutate func(*Node)) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	mutate(n)
	g.dirty = true
	return nil
}

// RemoveNode deletes a node and every edge touching it.
func (g *Graph) RemoveNode(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	delete(g.nodes, id)
	for i, nid := range g.nodeOrder {
		if nid == id {
			g.nodeOrder = append(g.nodeOrder[:i], g.nodeOrder[i+1:]...)
			break
		}
	}

	// Cascade: prune every edge where the node is an endpoint.
	kept := g.edgeOrder[:0]
	for _, eid := range g.edgeOrder {
		if g.edges[eid].Touches(id) {
			delete(g.edges, eid)
			continue
		}
		kept = append(kept, eid)
	}
	g.edgeOrder = kept

	g.dirty = true
	return nil
}

// AddEdge creates an edge between two existing nodes. Category rules are
// the connection validator's concern; AddEdge enforces only structural
// invariants (endpoints exist, no self-loop). An existing edge between
// the same pair is overwritten, never duplicated.
func (g *Graph) AddEdge(from, to string) (Edge, error) {
	if from == to {
		return Edge{}, ErrSelfLoop
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[from]; !ok {
		return Edge{}, fmt.Errorf("%w: %s", ErrNodeNotFound, from)
	}
	if _, ok := g.nodes[to]; !ok {
		return Edge{}, fmt.Errorf("%w: %s", ErrNodeNotFound, to)
	}

	e := NewEdge(from, to)
	if _, exists := g.edges[e.ID]; !exists {
		g.edgeOrder = append(g.edgeOrder, e.ID)
	}
	g.edges[e.ID] = e
	g.dirty = true
	return e, nil
}

// RemoveEdge deletes an edge by ID.
func (g *Graph) RemoveEdge(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.edges[id]; !ok {
		return fmt.Errorf("%w: %s", ErrEdgeNotFound, id)
	}

	delete(g.edges, id)
	for i, eid := range g.edgeOrder {
		if eid == id {
			g.edgeOrder = append(g.edgeOrder[:i], g.edgeOrder[i+1:]...)
			break
		}
	}
	g.dirty = true
	return nil
}

// Edge returns the edge with the given ID.
func (g *Graph) Edge(id string) (Edge, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.edges[id]
	return e, ok
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Edge, 0, len(g.edgeOrder))
	for _, id := range g.edgeOrder {
		out = append(out, g.edges[id])
	}
	return out
}

// InboundEdges returns all edges targeting the given node.
func (g *Graph) InboundEdges(nodeID string) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []Edge
	for _, id := range g.edgeOrder {
		if e := g.edges[id]; e.To == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// OutboundEdges returns all edges originating at the given node.
func (g *Graph) OutboundEdges(nodeID string) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []Edge
	for _, id := range g.edgeOrder {
		if e := g.edges[id]; e.From == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// Dirty reports whether local state differs from the last successful save.
func (g *Graph) Dirty() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.dirty
}

// Document returns a deep-copy snapshot of the workspace for persistence.
func (g *Graph) Document() *Document {
	g.mu.RLock()
	defer g.mu.RUnlock()

	doc := &Document{Name: g.name}
	doc.Data.Nodes = make([]*Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		doc.Data.Nodes = append(doc.Data.Nodes, g.nodes[id].Clone())
	}
	doc.Data.Edges = make([]Edge, 0, len(g.edgeOrder))
	for _, id := range g.edgeOrder {
		doc.Data.Edges = append(doc.Data.Edges, g.edges[id])
	}
	return doc
}

// Replace discards the entire local graph and installs the document's
// contents. Unsaved changes are lost; callers guard against that in the
// surrounding UI. The graph is clean afterwards.
func (g *Graph) Replace(doc *Document) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.name = doc.Name
	g.nodes = make(map[string]*Node, len(doc.Data.Nodes))
	g.nodeOrder = g.nodeOrder[:0]
	for _, n := range doc.Data.Nodes {
		g.nodes[n.ID] = n.Clone()
		g.nodeOrder = append(g.nodeOrder, n.ID)
	}

	g.edges = make(map[string]Edge, len(doc.Data.Edges))
	g.edgeOrder = g.edgeOrder[:0]
	for _, e := range doc.Data.Edges {
		// Drop dangling edges rather than importing an invalid graph.
		if _, ok := g.nodes[e.From]; !ok {
			continue
		}
		if _, ok := g.nodes[e.To]; !ok {
			continue
		}
		g.edges[e.ID] = e
		g.edgeOrder = append(g.edgeOrder, e.ID)
	}

	g.dirty = false
}

// clearDirty marks the graph as saved. Called by the engine after a
// successful save only.
func (g *Graph) clearDirty() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dirty = false
}
