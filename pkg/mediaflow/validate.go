package mediaflow

// Category names an input slot on a target node. Each target type
// partitions its possible inbound edges into categories; all categories
// are single-valued except the chat node's reference category.
type Category string

// Input categories.
const (
	// CategoryReference carries image output into a downstream node.
	CategoryReference Category = "reference"

	// CategoryText carries generated text (chat output or resolved
	// template text) into a downstream node.
	CategoryText Category = "text"
)

// Decision is the connection validator's verdict on a candidate edge.
type Decision struct {
	// Allowed reports whether the edge may be created.
	Allowed bool

	// Reason is the user-facing rejection reason when Allowed is false.
	Reason string

	// Category is the input slot the edge occupies when allowed.
	Category Category

	// ReplaceEdgeID names an existing edge that must be removed before
	// the new edge is created. Empty when the edge is purely additive.
	ReplaceEdgeID string
}

func reject(reason string) Decision {
	return Decision{Reason: reason}
}

// CheckConnection decides whether an edge from one node to another may
// be created, and which existing edge (if any) it replaces. It mutates
// nothing; applying the decision is the engine's job.
func CheckConnection(g *Graph, from, to string, catalog Catalog) Decision {
	if from == to {
		return reject("a node cannot connect to itself")
	}

	src, ok := g.Node(from)
	if !ok {
		return reject("source node does not exist")
	}
	dst, ok := g.Node(to)
	if !ok {
		return reject("target node does not exist")
	}

	category, dec := classify(src, dst, catalog)
	if !dec.Allowed {
		return dec
	}

	inbound := g.InboundEdges(to)

	// Exact duplicates collide by construction (deterministic edge IDs);
	// surface that as a rejection instead of a silent overwrite.
	for _, e := range inbound {
		if e.From == from {
			return reject("already connected")
		}
	}

	// The chat reference slot is the only multi-valued category.
	if dst.Type == NodeChat && category == CategoryReference {
		return Decision{Allowed: true, Category: category}
	}

	// Single-valued slot: a new edge replaces the existing edge of the
	// same category and leaves the other category untouched.
	for _, e := range inbound {
		other, ok := g.Node(e.From)
		if !ok {
			continue
		}
		if sourceCategory(other.Type) == category {
			return Decision{Allowed: true, Category: category, ReplaceEdgeID: e.ID}
		}
	}

	return Decision{Allowed: true, Category: category}
}

// classify maps a (source type, target type) pair to its input category,
// or rejects the pair.
func classify(src, dst *Node, catalog Catalog) (Category, Decision) {
	if dst.Type == NodeTemplate {
		return "", reject("prompt template nodes do not accept inputs")
	}
	if src.Type == NodeVideo {
		return "", reject("video output cannot be used as an input")
	}

	switch dst.Type {
	case NodeVideo:
		switch src.Type {
		case NodeImage:
			return CategoryReference, Decision{Allowed: true}
		case NodeChat, NodeTemplate:
			return CategoryText, Decision{Allowed: true}
		}

	case NodeImage:
		switch src.Type {
		case NodeImage:
			model := dst.Image().Model
			if !catalog.SupportsReference(model) {
				return "", reject("selected model does not support reference images")
			}
			return CategoryReference, Decision{Allowed: true}
		case NodeChat, NodeTemplate:
			return CategoryText, Decision{Allowed: true}
		}

	case NodeChat:
		switch src.Type {
		case NodeImage:
			return CategoryReference, Decision{Allowed: true}
		case NodeTemplate:
			return CategoryText, Decision{Allowed: true}
		case NodeChat:
			return "", reject("chat nodes cannot feed other chat nodes")
		}
	}

	return "", reject("unsupported connection")
}

// sourceCategory returns the input category an edge occupies based on
// its source node type.
func sourceCategory(t NodeType) Category {
	if t == NodeImage {
		return CategoryReference
	}
	return CategoryText
}
