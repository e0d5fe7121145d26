package mediaflow

import "fmt"

// Edge is a directed dependency between two nodes. Its ID is derived
// from the endpoints so re-creating an edge between the same pair
// collides with any prior edge rather than duplicating it.
type Edge struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
}

// EdgeID returns the deterministic identifier for an edge from one node
// to another.
func EdgeID(from, to string) string {
	return fmt.Sprintf("edge-%s-%s", from, to)
}

// NewEdge creates an edge between the given node IDs.
func NewEdge(from, to string) Edge {
	return Edge{ID: EdgeID(from, to), From: from, To: to}
}

// Touches reports whether the edge has nodeID as either endpoint.
func (e Edge) Touches(nodeID string) bool {
	return e.From == nodeID || e.To == nodeID
}
