// Package template provides the prompt-template library backing
// prompt-template nodes. A template is a named prompt with optional
// ${var} placeholders; resolving one produces the node's output text
// synchronously, no remote job involved.
package template

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// ErrTemplateNotFound is returned when resolving an unknown template ID.
var ErrTemplateNotFound = errors.New("template not found")

// placeholderPattern matches ${varname} placeholders.
var placeholderPattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Template is a reusable prompt with optional placeholders.
type Template struct {
	// ID uniquely identifies the template.
	ID string `json:"id"`

	// Name is the user-facing label.
	Name string `json:"name"`

	// Text is the prompt body, possibly containing ${var} placeholders.
	Text string `json:"text"`

	// Defaults supplies values for placeholders not provided at
	// resolution time.
	Defaults map[string]any `json:"defaults,omitempty"`
}

// Registry holds the templates available to a workspace.
// Registry is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewRegistry creates an empty template registry.
func NewRegistry() *Registry {
	return &Registry{templates: make(map[string]Template)}
}

// Register adds or replaces a template.
func (r *Registry) Register(t Template) error {
	if t.ID == "" {
		return errors.New("template ID is required")
	}
	if t.Text == "" {
		return fmt.Errorf("template %s has no text", t.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[t.ID] = t
	return nil
}

// Get returns the template with the given ID.
func (r *Registry) Get(id string) (Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[id]
	return t, ok
}

// List returns all registered template IDs.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.templates))
	for id := range r.templates {
		ids = append(ids, id)
	}
	return ids
}

// Resolve expands the template with the given variables merged over its
// defaults and returns the final prompt text. Placeholders with no value
// are kept as-is rather than erased, so a half-filled prompt stays
// visibly half-filled.
func (r *Registry) Resolve(id string, vars map[string]any) (string, error) {
	t, ok := r.Get(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}

	merged := make(map[string]any, len(t.Defaults)+len(vars))
	for k, v := range t.Defaults {
		merged[k] = v
	}
	for k, v := range vars {
		merged[k] = v
	}

	return Expand(t.Text, merged), nil
}

// Expand replaces ${var} placeholders in s with values from vars.
// Missing variables keep their placeholder.
func Expand(s string, vars map[string]any) string {
	if s == "" || !strings.Contains(s, "${") {
		return s
	}

	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		if val, ok := vars[name]; ok {
			return fmt.Sprintf("%v", val)
		}
		return match
	})
}
