package mediaflow

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// NodeType identifies the kind of work a node performs.
// The type is fixed at creation and never changes.
type NodeType string

// Supported node types.
const (
	NodeImage    NodeType = "image"
	NodeVideo    NodeType = "video"
	NodeChat     NodeType = "chat"
	NodeTemplate NodeType = "prompt-template"
)

// Status is the lifecycle state of a node's work.
type Status string

// Node status constants.
const (
	StatusIdle       Status = "idle"
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further automatic transition occurs from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// InFlight reports whether a remote job is outstanding for s.
func (s Status) InFlight() bool {
	return s == StatusPending || s == StatusProcessing
}

// Position is a cosmetic canvas coordinate. Business logic must never
// read it; only the canvas package does.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData is the type-specific payload of a node. Exactly one concrete
// type exists per NodeType, so switches over node kinds can be exhaustive.
type NodeData interface {
	// Kind returns the node type this payload belongs to.
	Kind() NodeType

	// State returns the current lifecycle status.
	State() Status

	// Clone returns a deep copy of the payload.
	Clone() NodeData
}

// Task holds the remote-job bookkeeping shared by generation-producing
// nodes (image, video).
type Task struct {
	Status       Status  `json:"status"`
	GenerationID string  `json:"generationId,omitempty"`
	OutputURL    string  `json:"outputUrl,omitempty"`
	OutputType   string  `json:"outputType,omitempty"`
	Progress     int     `json:"progress,omitempty"`
	Cost         float64 `json:"cost,omitempty"`
	ErrorMessage string  `json:"errorMessage,omitempty"`
}

// ImageData is the payload of an image generation node.
type ImageData struct {
	Task
	Model             string `json:"model"`
	Prompt            string `json:"prompt,omitempty"`
	AspectRatio       string `json:"aspectRatio,omitempty"`
	Size              string `json:"size,omitempty"`
	ReferenceImageURL string `json:"referenceImageUrl,omitempty"`
}

// Kind implements NodeData.
func (d *ImageData) Kind() NodeType { return NodeImage }

// State implements NodeData.
func (d *ImageData) State() Status { return d.Status }

// Clone implements NodeData.
func (d *ImageData) Clone() NodeData {
	c := *d
	return &c
}

// VideoData is the payload of a video generation node.
type VideoData struct {
	Task
	Model             string `json:"model"`
	Prompt            string `json:"prompt,omitempty"`
	AspectRatio       string `json:"aspectRatio,omitempty"`
	Duration          int    `json:"duration,omitempty"`
	ReferenceImageURL string `json:"referenceImageUrl,omitempty"`
}

// Kind implements NodeData.
func (d *VideoData) Kind() NodeType { return NodeVideo }

// State implements NodeData.
func (d *VideoData) State() Status { return d.Status }

// Clone implements NodeData.
func (d *VideoData) Clone() NodeData {
	c := *d
	return &c
}

// ChatMessage is one turn in a chat node's conversation history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatData is the payload of a conversational node.
// Chat nodes complete synchronously and are never polled.
type ChatData struct {
	Status       Status        `json:"status"`
	Model        string        `json:"model"`
	Prompt       string        `json:"prompt,omitempty"`
	Messages     []ChatMessage `json:"messages,omitempty"`
	ChatOutput   string        `json:"chatOutput,omitempty"`
	InputImages  []string      `json:"inputImages,omitempty"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
}

// Kind implements NodeData.
func (d *ChatData) Kind() NodeType { return NodeChat }

// State implements NodeData.
func (d *ChatData) State() Status { return d.Status }

// Clone implements NodeData.
func (d *ChatData) Clone() NodeData {
	c := *d
	c.Messages = append([]ChatMessage(nil), d.Messages...)
	c.InputImages = append([]string(nil), d.InputImages...)
	return &c
}

// TemplateData is the payload of a prompt-template node.
// Template nodes resolve synchronously and accept no inputs.
type TemplateData struct {
	Status         Status `json:"status"`
	TemplateID     string `json:"templateId,omitempty"`
	TemplateOutput string `json:"templateOutput,omitempty"`
	ErrorMessage   string `json:"errorMessage,omitempty"`
}

// Kind implements NodeData.
func (d *TemplateData) Kind() NodeType { return NodeTemplate }

// State implements NodeData.
func (d *TemplateData) State() Status { return d.Status }

// Clone implements NodeData.
func (d *TemplateData) Clone() NodeData {
	c := *d
	return &c
}

// Node is a unit of work in the workflow graph.
type Node struct {
	ID       string   `json:"id"`
	Type     NodeType `json:"type"`
	Name     string   `json:"name"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
}

// NewNode creates a node of the given type with a fresh ID and an idle
// payload of the matching variant.
func NewNode(t NodeType, name string, pos Position) *Node {
	n := &Node{
		ID:       fmt.Sprintf("node-%s", uuid.New().String()[:8]),
		Type:     t,
		Name:     name,
		Position: pos,
	}
	switch t {
	case NodeImage:
		n.Data = &ImageData{Task: Task{Status: StatusIdle}}
	case NodeVideo:
		n.Data = &VideoData{Task: Task{Status: StatusIdle}}
	case NodeChat:
		n.Data = &ChatData{Status: StatusIdle}
	case NodeTemplate:
		n.Data = &TemplateData{Status: StatusIdle}
	default:
		panic(fmt.Sprintf("mediaflow: unknown node type: %s", t))
	}
	return n
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	c := *n
	if n.Data != nil {
		c.Data = n.Data.Clone()
	}
	return &c
}

// Image returns the image payload, or nil if the node is not an image node.
func (n *Node) Image() *ImageData {
	d, _ := n.Data.(*ImageData)
	return d
}

// Video returns the video payload, or nil if the node is not a video node.
func (n *Node) Video() *VideoData {
	d, _ := n.Data.(*VideoData)
	return d
}

// Chat returns the chat payload, or nil if the node is not a chat node.
func (n *Node) Chat() *ChatData {
	d, _ := n.Data.(*ChatData)
	return d
}

// Template returns the template payload, or nil if the node is not a
// prompt-template node.
func (n *Node) Template() *TemplateData {
	d, _ := n.Data.(*TemplateData)
	return d
}

// Status returns the node's current lifecycle status.
func (n *Node) Status() Status {
	if n.Data == nil {
		return StatusIdle
	}
	return n.Data.State()
}

// HasOutput reports whether the node holds the output its type requires
// for a valid completed state.
func (n *Node) HasOutput() bool {
	switch d := n.Data.(type) {
	case *ImageData:
		return d.OutputURL != ""
	case *VideoData:
		return d.OutputURL != ""
	case *ChatData:
		return d.ChatOutput != ""
	case *TemplateData:
		return d.TemplateOutput != ""
	default:
		return false
	}
}

// GenerationID returns the remote job handle for generation-producing
// nodes, or "" for nodes that complete synchronously.
func (n *Node) GenerationID() string {
	switch d := n.Data.(type) {
	case *ImageData:
		return d.GenerationID
	case *VideoData:
		return d.GenerationID
	default:
		return ""
	}
}

// nodeShell mirrors Node for JSON decoding, deferring the payload.
type nodeShell struct {
	ID       string          `json:"id"`
	Type     NodeType        `json:"type"`
	Name     string          `json:"name"`
	Position Position        `json:"position"`
	Data     json.RawMessage `json:"data"`
}

// UnmarshalJSON decodes the payload into the variant matching the node type.
func (n *Node) UnmarshalJSON(data []byte) error {
	var shell nodeShell
	if err := json.Unmarshal(data, &shell); err != nil {
		return err
	}

	n.ID = shell.ID
	n.Type = shell.Type
	n.Name = shell.Name
	n.Position = shell.Position

	var payload NodeData
	switch shell.Type {
	case NodeImage:
		payload = &ImageData{}
	case NodeVideo:
		payload = &VideoData{}
	case NodeChat:
		payload = &ChatData{}
	case NodeTemplate:
		payload = &TemplateData{}
	default:
		return fmt.Errorf("mediaflow: unknown node type %q for node %s", shell.Type, shell.ID)
	}

	if len(shell.Data) > 0 {
		if err := json.Unmarshal(shell.Data, payload); err != nil {
			return fmt.Errorf("mediaflow: decode %s node data: %w", shell.Type, err)
		}
	}

	n.Data = payload
	return nil
}
