package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os/exec"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
)

// FrameExtractor decodes the first frame of a video file.
type FrameExtractor interface {
	ExtractFirstFrame(ctx context.Context, videoPath string) (image.Image, error)
}

// FFmpegExtractor extracts frames by piping a single PNG frame out of ffmpeg.
type FFmpegExtractor struct {
	ffmpegPath string
	logger     zerolog.Logger
}

func NewFFmpegExtractor(logger zerolog.Logger) *FFmpegExtractor {
	// Try to find ffmpeg in PATH
	ffmpegPath := "ffmpeg"
	if path, err := exec.LookPath("ffmpeg"); err == nil {
		ffmpegPath = path
	}

	return &FFmpegExtractor{
		ffmpegPath: ffmpegPath,
		logger:     logger,
	}
}

func (e *FFmpegExtractor) IsAvailable() bool {
	_, err := exec.LookPath(e.ffmpegPath)
	return err == nil
}

func (e *FFmpegExtractor) ExtractFirstFrame(ctx context.Context, videoPath string) (image.Image, error) {
	// -frames:v 1: first decodable frame only
	// -f image2pipe -vcodec png: lossless frame on stdout, encoded later
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", videoPath,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		e.logger.Debug().
			Err(err).
			Str("video", videoPath).
			Str("output", stderr.String()).
			Msg("ffmpeg frame extraction failed")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("ffmpeg: %w", ctxErr)
		}
		return nil, fmt.Errorf("ffmpeg failed: %w", err)
	}

	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no frame")
	}

	img, err := imaging.Decode(bytes.NewReader(stdout.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	return img, nil
}
