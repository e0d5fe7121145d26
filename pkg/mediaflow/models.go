package mediaflow

// Model describes a generation model offered by the remote service.
type Model struct {
	// ID is the provider's model identifier.
	ID string `json:"id"`

	// Kind is the node type the model serves.
	Kind NodeType `json:"kind"`

	// SupportsReference reports whether the model accepts a reference
	// image as input. Only meaningful for image models; video models
	// always accept one.
	SupportsReference bool `json:"supportsReference"`
}

// Catalog maps model IDs to their capabilities. The connection validator
// consults it to decide whether image→image reference edges are allowed.
type Catalog map[string]Model

// DefaultCatalog lists the models the dashboard ships with.
// Credential-bound provider catalogs replace it at runtime.
var DefaultCatalog = Catalog{
	"flux-schnell":    {ID: "flux-schnell", Kind: NodeImage, SupportsReference: false},
	"flux-kontext":    {ID: "flux-kontext", Kind: NodeImage, SupportsReference: true},
	"sdxl-turbo":      {ID: "sdxl-turbo", Kind: NodeImage, SupportsReference: false},
	"nano-banana":     {ID: "nano-banana", Kind: NodeImage, SupportsReference: true},
	"kling-v1.6":      {ID: "kling-v1.6", Kind: NodeVideo, SupportsReference: true},
	"runway-gen3":     {ID: "runway-gen3", Kind: NodeVideo, SupportsReference: true},
	"gpt-4o":          {ID: "gpt-4o", Kind: NodeChat},
	"claude-sonnet-4": {ID: "claude-sonnet-4", Kind: NodeChat},
}

// SupportsReference reports whether modelID accepts reference image
// input. Unknown models are treated as not supporting it.
func (c Catalog) SupportsReference(modelID string) bool {
	m, ok := c[modelID]
	return ok && m.SupportsReference
}
