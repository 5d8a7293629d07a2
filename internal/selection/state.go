// Package selection owns the currently selected wallpaper and tells every
// registered consumer about each change.
package selection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"livewallpaper/internal/media"
)

// Snapshot is an immutable view of the selection. ThumbnailPath is empty when
// no thumbnail could be produced for Name.
type Snapshot struct {
	Name          string    `json:"name"`
	ThumbnailPath string    `json:"thumbnail_path"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (s Snapshot) IsEmpty() bool {
	return s.Name == ""
}

type Assets interface {
	List() ([]string, error)
	Exists(name string) bool
}

type Thumbnails interface {
	GetOrCreate(ctx context.Context, name string) (string, error)
}

type Consumer interface {
	Notify(ctx context.Context, snap Snapshot) error
}

// ConsumerFunc adapts a plain function to Consumer.
type ConsumerFunc func(ctx context.Context, snap Snapshot) error

func (f ConsumerFunc) Notify(ctx context.Context, snap Snapshot) error {
	return f(ctx, snap)
}

type registered struct {
	name     string
	consumer Consumer
}

type State struct {
	assets     Assets
	thumbnails Thumbnails
	logger     zerolog.Logger

	// writeMu serializes Select calls end to end, fan-out included.
	writeMu sync.Mutex

	mu        sync.RWMutex
	current   Snapshot
	consumers []registered
}

func NewState(assets Assets, thumbnails Thumbnails, logger zerolog.Logger) *State {
	return &State{
		assets:     assets,
		thumbnails: thumbnails,
		logger:     logger,
	}
}

// RegisterConsumer appends c; consumers are notified in registration order.
func (s *State) RegisterConsumer(name string, c Consumer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consumers = append(s.consumers, registered{name: name, consumer: c})
}

func (s *State) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Initialize picks the startup selection without notifying anyone: preferred
// when it still exists, otherwise the first listed asset, otherwise nothing.
func (s *State) Initialize(ctx context.Context, preferred string) Snapshot {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	name := ""
	if preferred != "" && s.assets.Exists(preferred) {
		name = preferred
	} else {
		names, err := s.assets.List()
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to list wallpapers")
		} else if len(names) > 0 {
			name = names[0]
		}
		if preferred != "" {
			s.logger.Warn().Str("wallpaper", preferred).Str("fallback", name).Msg("saved wallpaper no longer exists")
		}
	}

	snap := Snapshot{Name: name, UpdatedAt: time.Now()}
	if name != "" {
		path, err := s.thumbnails.GetOrCreate(ctx, name)
		if err != nil {
			s.logger.Warn().Err(err).Str("wallpaper", name).Msg("no thumbnail for initial wallpaper")
		} else {
			snap.ThumbnailPath = path
		}
	}

	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()

	s.logger.Info().Str("wallpaper", name).Msg("selection initialized")
	return snap
}

// Select commits name as the current wallpaper and notifies consumers.
// Unknown names return media.ErrAssetNotFound and change nothing. When the
// thumbnail cannot be produced the name still commits with an empty
// thumbnail path, consumers are still notified, and the thumbnail error is
// returned together with the new snapshot.
func (s *State) Select(ctx context.Context, name string) (Snapshot, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !s.assets.Exists(name) {
		return s.Current(), fmt.Errorf("%w: %s", media.ErrAssetNotFound, name)
	}

	path, thumbErr := s.thumbnails.GetOrCreate(ctx, name)
	if thumbErr != nil {
		s.logger.Warn().Err(thumbErr).Str("wallpaper", name).Msg("thumbnail unavailable, committing selection without it")
		path = ""
	}

	snap := Snapshot{Name: name, ThumbnailPath: path, UpdatedAt: time.Now()}

	s.mu.Lock()
	s.current = snap
	consumers := make([]registered, len(s.consumers))
	copy(consumers, s.consumers)
	s.mu.Unlock()

	s.logger.Info().Str("wallpaper", name).Str("thumbnail", path).Msg("wallpaper selected")

	for _, r := range consumers {
		s.notify(ctx, r, snap)
	}

	return snap, thumbErr
}

func (s *State) notify(ctx context.Context, r registered, snap Snapshot) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error().Str("consumer", r.name).Interface("panic", p).Msg("selection consumer panicked")
		}
	}()

	if err := r.consumer.Notify(ctx, snap); err != nil {
		s.logger.Error().Err(err).Str("consumer", r.name).Str("wallpaper", snap.Name).Msg("selection consumer failed")
	}
}
