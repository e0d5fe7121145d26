package mediaflow

import (
	"log/slog"

	"github.com/rmurphy/mediaflow/pkg/mediaflow/chat"
	"github.com/rmurphy/mediaflow/pkg/mediaflow/genapi"
	"github.com/rmurphy/mediaflow/pkg/mediaflow/notify"
	"github.com/rmurphy/mediaflow/pkg/mediaflow/observability"
	"github.com/rmurphy/mediaflow/pkg/mediaflow/template"
)

// Option configures an Engine.
type Option func(*Engine)

// WithGenerationClient sets the remote generation service client.
// Image and video nodes cannot generate without one.
func WithGenerationClient(c genapi.Client) Option {
	return func(e *Engine) { e.gen = c }
}

// WithChatCompleter sets the LLM backend for chat nodes.
func WithChatCompleter(c chat.Completer) Option {
	return func(e *Engine) { e.chat = c }
}

// WithTemplates sets the prompt-template registry.
func WithTemplates(r *template.Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.templates = r
		}
	}
}

// WithStore sets the workspace persistence backend.
func WithStore(s WorkspaceStore) Option {
	return func(e *Engine) { e.store = s }
}

// WithNotifier sets the bus user-facing notifications are published on.
func WithNotifier(b *notify.Bus) Option {
	return func(e *Engine) { e.bus = b }
}

// WithLogger sets the structured logger. Nil disables logging.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithTracing sets the trace span manager.
func WithTracing(sm observability.SpanManager) Option {
	return func(e *Engine) {
		if sm != nil {
			e.spans = sm
		}
	}
}

// WithCatalog sets the model capability catalog consulted by the
// connection validator and model changes.
func WithCatalog(c Catalog) Option {
	return func(e *Engine) {
		if c != nil {
			e.catalog = c
		}
	}
}

// WithPollerOptions forwards tuning options to the engine's task poller.
func WithPollerOptions(opts ...PollerOption) Option {
	return func(e *Engine) {
		e.pollerOpts = append(e.pollerOpts, opts...)
	}
}
