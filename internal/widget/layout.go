package widget

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

var ErrInvalidPayload = errors.New("invalid layout payload")

// Entry is one persisted widget placement. Width is an explicit override;
// AspectRatio is always overwritten from the registry by the merge.
type Entry struct {
	ID          string       `json:"id"`
	Enabled     bool         `json:"enabled"`
	X           int          `json:"x"`
	Y           int          `json:"y"`
	Height      int          `json:"height"`
	Width       *int         `json:"width,omitempty"`
	AspectRatio *AspectRatio `json:"aspect_ratio,omitempty"`
}

func (e Entry) clone() Entry {
	out := e
	if e.Width != nil {
		w := *e.Width
		out.Width = &w
	}
	if e.AspectRatio != nil {
		a := *e.AspectRatio
		out.AspectRatio = &a
	}
	return out
}

// DefaultLayout is the seed written on first run or when the stored layout
// cannot be used.
func DefaultLayout() []Entry {
	return []Entry{
		{ID: "clock", Enabled: true, X: 40, Y: 40, Height: 120},
		{ID: "quote", Enabled: true, X: 40, Y: 200, Height: 100},
	}
}

type LoadSource int

const (
	SourceFile LoadSource = iota
	SourceDefault
)

func (s LoadSource) String() string {
	if s == SourceDefault {
		return "default"
	}
	return "file"
}

// LoadResult tells callers whether entries came from disk or from the seed,
// and why the seed was used.
type LoadResult struct {
	Entries []Entry
	Source  LoadSource
	Reason  string
}

// validateOrDefault turns the raw file contents into a layout, falling back
// to the seed list when the document is missing or unusable.
func validateOrDefault(data []byte, readErr error) LoadResult {
	fallback := func(reason string) LoadResult {
		return LoadResult{Entries: DefaultLayout(), Source: SourceDefault, Reason: reason}
	}

	if readErr != nil {
		if errors.Is(readErr, os.ErrNotExist) {
			return fallback("missing")
		}
		return fallback("read: " + readErr.Error())
	}

	entries, err := decodeEntries(data)
	if err != nil {
		return fallback(err.Error())
	}
	return LoadResult{Entries: entries, Source: SourceFile}
}

// decodeEntries accepts only a JSON array of entry objects with ids.
func decodeEntries(data []byte) ([]Entry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrInvalidPayload)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	entries := make([]Entry, 0, len(raw))
	for i, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			return nil, fmt.Errorf("%w: entry %d is not an object", ErrInvalidPayload, i)
		}
		var e Entry
		if err := json.Unmarshal(item, &e); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrInvalidPayload, i, err)
		}
		if !validID(e.ID) {
			return nil, fmt.Errorf("%w: entry %d has no usable id", ErrInvalidPayload, i)
		}
		if e.Height < 0 || (e.Width != nil && *e.Width < 0) {
			return nil, fmt.Errorf("%w: entry %d has a negative size", ErrInvalidPayload, i)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// LayoutStore persists the widget layout as one JSON document. Writes go
// through a temp file and rename so readers never see a partial document.
type LayoutStore struct {
	path   string
	mu     sync.Mutex
	logger zerolog.Logger
}

func NewLayoutStore(path string, logger zerolog.Logger) *LayoutStore {
	return &LayoutStore{
		path:   path,
		logger: logger,
	}
}

func (s *LayoutStore) Path() string {
	return s.path
}

// Load never fails: unusable documents are replaced on disk by the seed.
func (s *LayoutStore) Load() LoadResult {
	data, err := os.ReadFile(s.path)
	res := validateOrDefault(data, err)
	if res.Source == SourceFile {
		return res
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A concurrent Save may have landed a valid document meanwhile.
	data, err = os.ReadFile(s.path)
	if again := validateOrDefault(data, err); again.Source == SourceFile {
		return again
	}

	s.logger.Warn().Str("path", s.path).Str("reason", res.Reason).Msg("widget layout unusable, restoring defaults")
	if err := s.write(res.Entries); err != nil {
		s.logger.Error().Err(err).Str("path", s.path).Msg("failed to persist default widget layout")
	}
	return res
}

// Save replaces the whole document with entries.
func (s *LayoutStore) Save(entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(entries)
}

// Replace validates a raw request body and saves it. Invalid payloads leave
// the stored document untouched.
func (s *LayoutStore) Replace(payload []byte) ([]Entry, error) {
	entries, err := decodeEntries(payload)
	if err != nil {
		return nil, err
	}
	if err := s.Save(entries); err != nil {
		return nil, err
	}
	s.logger.Info().Int("entries", len(entries)).Msg("widget layout replaced")
	return entries, nil
}

func (s *LayoutStore) write(entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open tmp: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode layout: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close tmp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename tmp: %w", err)
	}
	return nil
}
