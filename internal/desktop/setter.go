// Package desktop talks to the host desktop: setting the static desktop
// picture, revealing folders and reporting workspace and filesystem events.
package desktop

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"livewallpaper/internal/selection"
)

var ErrUnsupported = errors.New("unsupported on this platform")

// Setter changes the desktop picture on every screen.
type Setter interface {
	SetDesktopPicture(ctx context.Context, imagePath string) error
}

// pictureCommand returns the command line that sets imagePath as the
// desktop picture on goos.
func pictureCommand(goos, imagePath string) ([]string, error) {
	switch goos {
	case "darwin":
		script := fmt.Sprintf(`tell application "System Events" to tell every desktop to set picture to POSIX file %q`, imagePath)
		return []string{"osascript", "-e", script}, nil
	case "linux":
		return []string{"gsettings", "set", "org.gnome.desktop.background", "picture-uri", "file://" + imagePath}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, goos)
	}
}

type CommandSetter struct {
	goos   string
	logger zerolog.Logger
}

func NewSetter(logger zerolog.Logger) *CommandSetter {
	return &CommandSetter{goos: runtime.GOOS, logger: logger}
}

func (s *CommandSetter) SetDesktopPicture(ctx context.Context, imagePath string) error {
	argv, err := pictureCommand(s.goos, imagePath)
	if err != nil {
		return err
	}

	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("set desktop picture: %w: %s", err, out)
	}
	s.logger.Debug().Str("image", imagePath).Msg("desktop picture set")
	return nil
}

const pictureTimeout = 10 * time.Second

// PictureConsumer mirrors each selection onto the static desktop picture.
// The setter runs in the background; failures are only logged.
func PictureConsumer(setter Setter, logger zerolog.Logger) selection.Consumer {
	return selection.ConsumerFunc(func(ctx context.Context, snap selection.Snapshot) error {
		if snap.ThumbnailPath == "" {
			logger.Debug().Str("wallpaper", snap.Name).Msg("no thumbnail, desktop picture unchanged")
			return nil
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pictureTimeout)
			defer cancel()
			if err := setter.SetDesktopPicture(ctx, snap.ThumbnailPath); err != nil {
				logger.Warn().Err(err).Str("wallpaper", snap.Name).Msg("failed to set desktop picture")
			}
		}()
		return nil
	})
}
