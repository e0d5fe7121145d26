// Package chat runs the conversational nodes of a workspace against an
// LLM provider. Chat nodes complete synchronously: one call, one answer,
// no polling.
package chat

import (
	"context"

	"github.com/pkg/errors"
	"github.com/tmc/langchaingo/llms"
)

// Turn is one message of a conversation history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Request is one chat completion call.
type Request struct {
	// Model selects the conversational model.
	Model string

	// Prompt is the new user message.
	Prompt string

	// History is the prior conversation, oldest first.
	History []Turn

	// ImageURLs are reference images attached to the prompt.
	ImageURLs []string
}

// Response is the assistant's reply.
type Response struct {
	Content string
}

// Completer produces chat completions. The engine depends on this
// interface; tests substitute a fake.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// LLM is a Completer backed by a langchaingo model.
type LLM struct {
	model llms.Model
}

// New creates a Completer around the given model.
func New(model llms.Model) *LLM {
	return &LLM{model: model}
}

// Complete implements Completer.
func (l *LLM) Complete(ctx context.Context, req Request) (Response, error) {
	if req.Prompt == "" {
		return Response{}, errors.New("chat prompt is empty")
	}

	messages := make([]llms.MessageContent, 0, len(req.History)+1)
	for _, turn := range req.History {
		messages = append(messages, llms.TextParts(messageType(turn.Role), turn.Content))
	}

	parts := make([]llms.ContentPart, 0, len(req.ImageURLs)+1)
	parts = append(parts, llms.TextPart(req.Prompt))
	for _, url := range req.ImageURLs {
		parts = append(parts, llms.ImageURLPart(url))
	}
	messages = append(messages, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: parts,
	})

	var opts []llms.CallOption
	if req.Model != "" {
		opts = append(opts, llms.WithModel(req.Model))
	}

	resp, err := l.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return Response{}, errors.Wrap(err, "chat completion failed")
	}
	if len(resp.Choices) == 0 {
		return Response{}, errors.New("chat model returned no choices")
	}

	return Response{Content: resp.Choices[0].Content}, nil
}

// messageType maps a stored role to the langchaingo message type.
func messageType(role string) llms.ChatMessageType {
	switch role {
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	default:
		return llms.ChatMessageTypeHuman
	}
}
