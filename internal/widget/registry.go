// Package widget discovers widget bundles on disk, persists the user's widget
// layout and merges the two into the list the render surface draws.
package widget

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

const (
	MarkupFile   = "widget.html"
	StyleFile    = "widget.css"
	BehaviorFile = "widget.js"
)

var ErrWidgetNotFound = errors.New("widget not found")

// Bundle describes one widget folder. Style and Behavior are empty when the
// optional file is absent.
type Bundle struct {
	ID           string       `json:"id"`
	Dir          string       `json:"-"`
	Markup       string       `json:"-"`
	Style        string       `json:"-"`
	Behavior     string       `json:"-"`
	AspectRatio  AspectRatio  `json:"aspect_ratio"`
	RatioOutcome ParseOutcome `json:"-"`
}

// Registry enumerates bundles under a root directory. It never writes and
// never caches, so hot-added or removed bundles show up on the next call.
type Registry struct {
	root   string
	logger zerolog.Logger
}

func NewRegistry(root string, logger zerolog.Logger) *Registry {
	return &Registry{
		root:   filepath.Clean(root),
		logger: logger,
	}
}

func (r *Registry) Root() string {
	return r.root
}

// Discover rescans the widget root. A missing root yields no bundles.
func (r *Registry) Discover() (map[string]Bundle, error) {
	bundles := make(map[string]Bundle)

	entries, err := os.ReadDir(r.root)
	if err != nil {
		if os.IsNotExist(err) {
			return bundles, nil
		}
		return nil, err
	}

	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		bundle, ok := r.load(entry.Name())
		if !ok {
			continue
		}
		bundles[bundle.ID] = bundle
	}

	r.logger.Debug().Int("count", len(bundles)).Msg("discovered widgets")
	return bundles, nil
}

// Lookup returns the bundle for id as it exists on disk right now.
func (r *Registry) Lookup(id string) (Bundle, error) {
	if !validID(id) {
		return Bundle{}, ErrWidgetNotFound
	}
	bundle, ok := r.load(id)
	if !ok {
		return Bundle{}, ErrWidgetNotFound
	}
	return bundle, nil
}

func (r *Registry) load(id string) (Bundle, bool) {
	dir := filepath.Join(r.root, id)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return Bundle{}, false
	}

	markup := filepath.Join(dir, MarkupFile)
	if !isFile(markup) {
		return Bundle{}, false
	}

	bundle := Bundle{
		ID:     id,
		Dir:    dir,
		Markup: markup,
	}
	if p := filepath.Join(dir, StyleFile); isFile(p) {
		bundle.Style = p
	}
	if p := filepath.Join(dir, BehaviorFile); isFile(p) {
		bundle.Behavior = p
	}

	content, err := os.ReadFile(markup)
	if err != nil {
		r.logger.Warn().Err(err).Str("widget", id).Msg("failed to read widget markup")
		bundle.AspectRatio, bundle.RatioOutcome = Ratio(DefaultAspectRatio), OutcomeAbsent
		return bundle, true
	}
	bundle.AspectRatio, bundle.RatioOutcome = ParseAspectRatio(string(content))

	if bundle.RatioOutcome == OutcomeMalformed {
		r.logger.Warn().Str("widget", id).Msg("malformed aspect-ratio declaration")
	}

	return bundle, true
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func validID(id string) bool {
	if id == "" || strings.HasPrefix(id, ".") {
		return false
	}
	return !strings.ContainsAny(id, `/\`)
}
