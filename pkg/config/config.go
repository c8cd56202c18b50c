// Package config decodes and validates the workspace settings a client sends
// as initializationOptions.
package config

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/walteh/hxlsp/pkg/grammar"
	"gitlab.com/tozd/go/errors"
)

var (
	ErrInvalid  = errors.New("invalid configuration")
	ErrNotFound = errors.New("configuration not found")
)

type Config struct {
	Lang        string   `json:"lang"`
	TemplateExt string   `json:"template_ext"`
	Templates   []string `json:"templates"`
	JSTags      []string `json:"js_tags"`
	BackendTags []string `json:"backend_tags"`
	Exclude     []string `json:"exclude,omitempty"`

	// Root resolves relative directories. It comes from the client's root
	// URI, not from the options object.
	Root string `json:"-"`
}

// Decode reads an initializationOptions value. A missing or null value
// yields ErrNotFound.
func Decode(raw json.RawMessage) (*Config, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, ErrNotFound
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Errorf("decoding initialization options: %w", err)
	}
	return &cfg, nil
}

// Validate reports every problem at once, wrapped in ErrInvalid.
func (c *Config) Validate() error {
	var result *multierror.Error

	if _, err := grammar.ParseBackend(c.Lang); err != nil {
		result = multierror.Append(result, errors.Errorf("lang: %w", err))
	}
	if c.TemplateExt == "" {
		result = multierror.Append(result, errors.New("template_ext: must not be empty"))
	} else if strings.IndexFunc(c.TemplateExt, unicode.IsSpace) >= 0 {
		result = multierror.Append(result, errors.Errorf("template_ext: %q contains whitespace", c.TemplateExt))
	}
	for _, pattern := range c.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			result = multierror.Append(result, errors.Errorf("exclude: %q is not a valid glob", pattern))
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return errors.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Backend returns the validated backend grammar.
func (c *Config) Backend() (grammar.BackendKind, error) {
	return grammar.ParseBackend(c.Lang)
}

// Classify maps a path to its language slot by extension. Script
// extensions win over the template extension.
func (c *Config) Classify(path string) (grammar.Language, bool) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return 0, false
	}
	for _, s := range grammar.ScriptExtensions {
		if ext == s {
			return grammar.Script, true
		}
	}
	if backend, err := c.Backend(); err == nil && backend.Extension() == ext {
		return grammar.Backend, true
	}
	if ext == c.TemplateExt {
		return grammar.Markup, true
	}
	return 0, false
}

// IsTemplate reports whether path carries the template extension.
func (c *Config) IsTemplate(path string) bool {
	return strings.TrimPrefix(filepath.Ext(path), ".") == c.TemplateExt
}

// Excluded reports whether path, or its form relative to Root, matches an
// exclude pattern.
func (c *Config) Excluded(path string) bool {
	candidates := []string{filepath.ToSlash(path)}
	if c.Root != "" {
		if rel, err := filepath.Rel(c.Root, path); err == nil && !strings.HasPrefix(rel, "..") {
			candidates = append(candidates, filepath.ToSlash(rel))
		}
	}
	for _, pattern := range c.Exclude {
		for _, p := range candidates {
			if ok, err := doublestar.Match(pattern, p); err == nil && ok {
				return true
			}
		}
	}
	return false
}

// Dirs returns the configured directories for a slot, resolved against Root.
func (c *Config) Dirs(lang grammar.Language) []string {
	var dirs []string
	switch lang {
	case grammar.Markup:
		dirs = c.Templates
	case grammar.Script:
		dirs = c.JSTags
	case grammar.Backend:
		dirs = c.BackendTags
	}
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if !filepath.IsAbs(d) && c.Root != "" {
			d = filepath.Join(c.Root, d)
		}
		out = append(out, filepath.Clean(d))
	}
	return out
}
