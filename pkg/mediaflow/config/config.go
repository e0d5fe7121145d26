// Package config loads engine settings from YAML or JSON files.
//
// All fields have working defaults; a config file only overrides what it
// names. Durations accept Go duration strings ("2s", "500ms") or bare
// numbers interpreted as seconds.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings tunes the workflow engine.
type Settings struct {
	// GenerateURL is the base URL of the remote generation service.
	GenerateURL string

	// WorkspaceURL is the base URL of the workspace persistence API.
	WorkspaceURL string

	// ChatModel is the default conversational model for chat nodes.
	ChatModel string

	// PollInterval is the delay between successful status polls.
	PollInterval time.Duration

	// InitialBackoff is the first retry delay after a transient error.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential retry delay.
	MaxBackoff time.Duration

	// MaxConsecutiveErrors is the transient-error count at which a
	// polling loop gives up.
	MaxConsecutiveErrors int

	// MaxPollAttempts is the hard ceiling on polls per job, guarding
	// against jobs that never terminate.
	MaxPollAttempts int
}

// Defaults returns the settings used when no config file is present.
func Defaults() Settings {
	return Settings{
		ChatModel:            "gpt-4o",
		PollInterval:         2 * time.Second,
		InitialBackoff:       time.Second,
		MaxBackoff:           30 * time.Second,
		MaxConsecutiveErrors: 5,
		MaxPollAttempts:      300,
	}
}

// FromFile loads settings from a file, auto-detecting format by extension.
// Supported extensions: .yaml, .yml, .json
func FromFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return Settings{}, fmt.Errorf("unsupported config file extension: %s", ext)
	}
}

// FromYAML parses YAML data into Settings over the defaults.
func FromYAML(data []byte) (Settings, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Settings{}, fmt.Errorf("parse yaml: %w", err)
	}
	return fromMap(m)
}

// FromJSON parses JSON data into Settings over the defaults.
func FromJSON(data []byte) (Settings, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return Settings{}, fmt.Errorf("parse json: %w", err)
	}
	return fromMap(m)
}

// fromMap overlays the parsed keys onto the defaults.
func fromMap(m map[string]any) (Settings, error) {
	s := Defaults()

	s.GenerateURL = str(m, "generate_url", s.GenerateURL)
	s.WorkspaceURL = str(m, "workspace_url", s.WorkspaceURL)
	s.ChatModel = str(m, "chat_model", s.ChatModel)

	var err error
	if s.PollInterval, err = duration(m, "poll_interval", s.PollInterval); err != nil {
		return Settings{}, err
	}
	if s.InitialBackoff, err = duration(m, "initial_backoff", s.InitialBackoff); err != nil {
		return Settings{}, err
	}
	if s.MaxBackoff, err = duration(m, "max_backoff", s.MaxBackoff); err != nil {
		return Settings{}, err
	}

	s.MaxConsecutiveErrors = integer(m, "max_consecutive_errors", s.MaxConsecutiveErrors)
	s.MaxPollAttempts = integer(m, "max_poll_attempts", s.MaxPollAttempts)

	return s, nil
}

// str returns the string value for key, or defaultVal if missing or not a string.
func str(m map[string]any, key, defaultVal string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return defaultVal
}

// integer returns the int value for key, accepting int, int64, and
// whole float64 values.
func integer(m map[string]any, key string, defaultVal int) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if v == float64(int(v)) {
			return int(v)
		}
	}
	return defaultVal
}

// duration returns the duration value for key. Strings are parsed with
// time.ParseDuration; numbers are interpreted as seconds.
func duration(m map[string]any, key string, defaultVal time.Duration) (time.Duration, error) {
	v, ok := m[key]
	if !ok {
		return defaultVal, nil
	}
	switch val := v.(type) {
	case string:
		d, err := time.ParseDuration(val)
		if err != nil {
			return 0, fmt.Errorf("config key %s: %w", key, err)
		}
		return d, nil
	case int:
		return time.Duration(val) * time.Second, nil
	case int64:
		return time.Duration(val) * time.Second, nil
	case float64:
		return time.Duration(val * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("config key %s: unsupported type %T", key, v)
	}
}
