package desktop

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type Event int

const (
	EventWorkspaceChanged Event = iota
	EventWake
	EventAssetsChanged
	EventWidgetsChanged
)

func (e Event) String() string {
	switch e {
	case EventWorkspaceChanged:
		return "workspace_changed"
	case EventWake:
		return "wake"
	case EventAssetsChanged:
		return "assets_changed"
	case EventWidgetsChanged:
		return "widgets_changed"
	default:
		return "unknown"
	}
}

type Handler func(Event)

// EventSource delivers host events to registered handlers until Run's
// context is cancelled.
type EventSource interface {
	OnEvent(h Handler)
	Run(ctx context.Context) error
}

type handlers struct {
	mu   sync.RWMutex
	list []Handler
}

func (hs *handlers) add(h Handler) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	hs.list = append(hs.list, h)
}

func (hs *handlers) emit(e Event) {
	hs.mu.RLock()
	list := hs.list
	hs.mu.RUnlock()
	for _, h := range list {
		h(e)
	}
}

// SignalSource turns process signals into one event kind. Sending SIGHUP to
// the process is how external tooling reports a workspace switch.
type SignalSource struct {
	handlers
	event   Event
	signals []os.Signal
	logger  zerolog.Logger
}

func NewSignalSource(event Event, logger zerolog.Logger, signals ...os.Signal) *SignalSource {
	return &SignalSource{event: event, signals: signals, logger: logger}
}

func (s *SignalSource) OnEvent(h Handler) { s.add(h) }

func (s *SignalSource) Run(ctx context.Context) error {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, s.signals...)
	defer signal.Stop(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-ch:
			s.logger.Debug().Str("signal", sig.String()).Str("event", s.event.String()).Msg("signal received")
			s.emit(s.event)
		}
	}
}

// DirWatcher reports changes under watched directories. Each directory and
// its immediate subdirectories are watched; bursts are collapsed into one
// event per directory after the debounce delay.
type DirWatcher struct {
	handlers
	dirs     map[string]Event
	debounce time.Duration
	logger   zerolog.Logger
}

func NewDirWatcher(debounce time.Duration, logger zerolog.Logger) *DirWatcher {
	return &DirWatcher{
		dirs:     make(map[string]Event),
		debounce: debounce,
		logger:   logger,
	}
}

// Watch must be called before Run.
func (w *DirWatcher) Watch(dir string, event Event) {
	w.dirs[filepath.Clean(dir)] = event
}

func (w *DirWatcher) OnEvent(h Handler) { w.add(h) }

func (w *DirWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for dir := range w.dirs {
		w.addTree(watcher, dir)
	}

	var mu sync.Mutex
	timers := make(map[Event]*time.Timer)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
	}()

	schedule := func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		if t, ok := timers[ev]; ok {
			t.Reset(w.debounce)
			return
		}
		timers[ev] = time.AfterFunc(w.debounce, func() {
			mu.Lock()
			delete(timers, ev)
			mu.Unlock()
			w.emit(ev)
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case fe, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			ev, root, found := w.classify(fe.Name)
			if !found {
				continue
			}
			// new bundle folders need their own watch
			if fe.Has(fsnotify.Create) && filepath.Dir(fe.Name) == root {
				if info, err := os.Stat(fe.Name); err == nil && info.IsDir() {
					_ = watcher.Add(fe.Name)
				}
			}
			w.logger.Debug().Str("path", fe.Name).Str("op", fe.Op.String()).Msg("filesystem change")
			schedule(ev)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("filesystem watcher error")
		}
	}
}

func (w *DirWatcher) addTree(watcher *fsnotify.Watcher, dir string) {
	if err := watcher.Add(dir); err != nil {
		w.logger.Warn().Err(err).Str("dir", dir).Msg("cannot watch directory")
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			_ = watcher.Add(filepath.Join(dir, e.Name()))
		}
	}
}

// classify maps a changed path to the event of the watched root containing it.
func (w *DirWatcher) classify(path string) (Event, string, bool) {
	path = filepath.Clean(path)
	for root, ev := range w.dirs {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return ev, root, true
		}
	}
	return 0, "", false
}

type multiplex struct {
	sources []EventSource
}

// Multiplex presents several sources as one.
func Multiplex(sources ...EventSource) EventSource {
	return &multiplex{sources: sources}
}

func (m *multiplex) OnEvent(h Handler) {
	for _, s := range m.sources {
		s.OnEvent(h)
	}
}

func (m *multiplex) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, s := range m.sources {
		s := s
		g.Go(func() error {
			return s.Run(ctx)
		})
	}
	return g.Wait()
}
