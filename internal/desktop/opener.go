package desktop

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/rs/zerolog"
)

// Opener reveals a directory in the platform file manager.
type Opener interface {
	Open(ctx context.Context, dir string) error
}

func openCommand(goos, dir string) ([]string, error) {
	switch goos {
	case "darwin":
		return []string{"open", dir}, nil
	case "windows":
		return []string{"explorer", dir}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return []string{"xdg-open", dir}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, goos)
	}
}

type CommandOpener struct {
	goos   string
	logger zerolog.Logger
}

func NewOpener(logger zerolog.Logger) *CommandOpener {
	return &CommandOpener{goos: runtime.GOOS, logger: logger}
}

// Open starts the file manager detached and returns without waiting for it.
func (o *CommandOpener) Open(ctx context.Context, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	argv, err := openCommand(o.goos, dir)
	if err != nil {
		return err
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", argv[0], err)
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			o.logger.Debug().Err(err).Str("dir", dir).Msg("file manager exited with error")
		}
	}()

	o.logger.Info().Str("dir", dir).Int("pid", cmd.Process.Pid).Msg("opened folder")
	return nil
}
