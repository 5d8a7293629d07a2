package widget

import (
	"github.com/rs/zerolog"
)

// Merger combines what exists on disk (Registry) with what the user
// configured (LayoutStore). The registry owns aspect ratios; the store owns
// position, size and the enabled flag.
type Merger struct {
	registry *Registry
	store    *LayoutStore
	logger   zerolog.Logger
}

func NewMerger(registry *Registry, store *LayoutStore, logger zerolog.Logger) *Merger {
	return &Merger{
		registry: registry,
		store:    store,
		logger:   logger,
	}
}

// MergedLayout returns stored entries that still have a bundle, in stored
// order, with aspect ratio refreshed and width derived where missing.
// Entries without a bundle are dropped from the result only.
func (m *Merger) MergedLayout() ([]Entry, error) {
	loaded := m.store.Load()

	available, err := m.registry.Discover()
	if err != nil {
		return nil, err
	}

	merged := make([]Entry, 0, len(loaded.Entries))
	for _, stored := range loaded.Entries {
		bundle, ok := available[stored.ID]
		if !ok {
			m.logger.Debug().Str("widget", stored.ID).Msg("layout entry has no bundle, skipping")
			continue
		}

		e := stored.clone()
		ratio := bundle.AspectRatio
		e.AspectRatio = &ratio

		if e.Width == nil {
			if w, ok := ratio.WidthFor(e.Height); ok {
				e.Width = &w
			}
		}
		merged = append(merged, e)
	}

	return merged, nil
}

// AspectRatios is the raw discovery view: widget id to declared ratio.
func (m *Merger) AspectRatios() (map[string]AspectRatio, error) {
	available, err := m.registry.Discover()
	if err != nil {
		return nil, err
	}

	ratios := make(map[string]AspectRatio, len(available))
	for id, bundle := range available {
		ratios[id] = bundle.AspectRatio
	}
	return ratios, nil
}

func (m *Merger) Registry() *Registry {
	return m.registry
}

func (m *Merger) Store() *LayoutStore {
	return m.store
}
