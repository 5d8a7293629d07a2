// Package streaming serves wallpaper video files with HTTP range support so
// the render surface can seek and loop without downloading the whole file.
package streaming

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"livewallpaper/internal/media"
)

var ErrFileUnavailable = errors.New("file unavailable")

type Handler struct {
	logger zerolog.Logger
}

func NewHandler(logger zerolog.Logger) *Handler {
	return &Handler{logger: logger}
}

// ServeFile writes filePath honoring Range and conditional headers. Nothing is
// written to w when it returns an error, so callers can render their own.
func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFileUnavailable, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFileUnavailable, err)
	}
	if stat.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrFileUnavailable, filePath)
	}

	w.Header().Set("Content-Type", media.GetContentType(filePath))
	w.Header().Set("Accept-Ranges", "bytes")
	// the same URL serves whichever wallpaper is selected
	w.Header().Set("Cache-Control", "no-cache")

	if rng := r.Header.Get("Range"); rng != "" {
		h.logger.Debug().Str("file", filepath.Base(filePath)).Str("range", rng).Msg("range request")
	}

	http.ServeContent(w, r, filepath.Base(filePath), stat.ModTime(), file)
	return nil
}
