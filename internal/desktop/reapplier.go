package desktop

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"livewallpaper/internal/selection"
)

// Reapplier puts the current thumbnail back on the desktop after the host
// resets it, for example on a workspace switch or wake from sleep.
type Reapplier struct {
	current func() selection.Snapshot
	setter  Setter
	limiter *rate.Limiter
	logger  zerolog.Logger
}

func NewReapplier(current func() selection.Snapshot, setter Setter, minInterval time.Duration, logger zerolog.Logger) *Reapplier {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &Reapplier{
		current: current,
		setter:  setter,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Reapply reports whether the setter was invoked. It is a no-op when there
// is no thumbnail or when called again within the minimum interval.
func (r *Reapplier) Reapply(ctx context.Context) (bool, error) {
	snap := r.current()
	if snap.ThumbnailPath == "" {
		return false, nil
	}
	if !r.limiter.Allow() {
		r.logger.Debug().Msg("reapply throttled")
		return false, nil
	}
	if err := r.setter.SetDesktopPicture(ctx, snap.ThumbnailPath); err != nil {
		return true, err
	}
	r.logger.Debug().Str("wallpaper", snap.Name).Msg("desktop picture reapplied")
	return true, nil
}

// Handler reacts to workspace and wake events and ignores the rest.
func (r *Reapplier) Handler(ctx context.Context) Handler {
	return func(ev Event) {
		if ev != EventWorkspaceChanged && ev != EventWake {
			return
		}
		tctx, cancel := context.WithTimeout(ctx, pictureTimeout)
		defer cancel()
		if _, err := r.Reapply(tctx); err != nil {
			r.logger.Warn().Err(err).Str("event", ev.String()).Msg("failed to reapply desktop picture")
		}
	}
}
