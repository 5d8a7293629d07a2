package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"livewallpaper/internal/cache"
)

var ErrThumbnailGeneration = errors.New("thumbnail generation failed")

const thumbnailExt = ".jpg"

type ThumbnailOptions struct {
	OutputDir     string
	MaxWidth      int
	Timeout       time.Duration
	CacheCapacity int
	CacheMaxSize  int64
}

// ThumbnailService maps asset names to still-image artifacts on disk. Names
// are the identity: an artifact is never regenerated once written.
type ThumbnailService struct {
	assets    *AssetStore
	extractor FrameExtractor
	opts      ThumbnailOptions
	cache     *cache.LRUCache
	flights   singleflight.Group
	logger    zerolog.Logger
}

// NewThumbnailService creates a new thumbnail service
func NewThumbnailService(
	assets *AssetStore,
	extractor FrameExtractor,
	opts ThumbnailOptions,
	logger zerolog.Logger,
) *ThumbnailService {
	return &ThumbnailService{
		assets:    assets,
		extractor: extractor,
		opts:      opts,
		cache:     cache.NewLRUCache(opts.CacheCapacity, opts.CacheMaxSize),
		logger:    logger,
	}
}

// Path returns the cache location for an asset name.
func (s *ThumbnailService) Path(name string) string {
	return filepath.Join(s.opts.OutputDir, name+thumbnailExt)
}

// HasThumbnail checks if an artifact exists on disk
func (s *ThumbnailService) HasThumbnail(name string) bool {
	if !validName(name) {
		return false
	}
	_, err := os.Stat(s.Path(name))
	return err == nil
}

// GetOrCreate returns the artifact path for name, extracting and writing it
// on a miss. Concurrent misses for one name share a single extraction; a
// caller whose ctx ends first gets ErrThumbnailGeneration while the shared
// extraction keeps running for the others.
func (s *ThumbnailService) GetOrCreate(ctx context.Context, name string) (string, error) {
	if !validName(name) {
		return "", ErrAssetNotFound
	}

	if s.HasThumbnail(name) {
		return s.Path(name), nil
	}

	ch := s.flights.DoChan(name, func() (interface{}, error) {
		return s.generate(context.WithoutCancel(ctx), name)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %s: %v", ErrThumbnailGeneration, name, ctx.Err())
	}
}

func (s *ThumbnailService) generate(ctx context.Context, name string) (string, error) {
	outputPath := s.Path(name)

	// A flight that finished just before this one started already wrote it.
	if _, err := os.Stat(outputPath); err == nil {
		return outputPath, nil
	}

	videoPath, err := s.assets.Path(name)
	if err != nil {
		s.logger.Warn().Str("name", name).Msg("asset not found for thumbnail")
		return "", err
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	s.logger.Info().Str("name", name).Str("video", videoPath).Msg("generating thumbnail")
	start := time.Now()

	img, err := s.extractor.ExtractFirstFrame(ctx, videoPath)
	if err != nil {
		s.logger.Error().Err(err).Str("name", name).Str("video", videoPath).Msg("failed to extract frame")
		return "", fmt.Errorf("%w: %s: %v", ErrThumbnailGeneration, name, err)
	}

	if s.opts.MaxWidth > 0 && img.Bounds().Dx() > s.opts.MaxWidth {
		img = imaging.Resize(img, s.opts.MaxWidth, 0, imaging.Lanczos)
	}

	if err := s.writeAtomic(outputPath, func(f *os.File) error {
		return imaging.Encode(f, img, imaging.JPEG, imaging.JPEGQuality(90))
	}); err != nil {
		s.logger.Error().Err(err).Str("name", name).Str("thumbnail", outputPath).Msg("failed to write thumbnail")
		return "", fmt.Errorf("%w: %s: %v", ErrThumbnailGeneration, name, err)
	}

	s.logger.Info().
		Str("name", name).
		Str("thumbnail", outputPath).
		Dur("took", time.Since(start)).
		Msg("thumbnail generated")

	return outputPath, nil
}

// writeAtomic encodes into a temp file next to path and renames it into
// place, so readers never see a partial artifact.
func (s *ThumbnailService) writeAtomic(path string, encode func(*os.File) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".thumb-*.tmp")
	if err != nil {
		return fmt.Errorf("create tmp: %w", err)
	}
	tmpPath := tmp.Name()

	if err := encode(tmp); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close tmp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename tmp: %w", err)
	}
	return nil
}

// Thumbnail returns artifact bytes for a currently existing asset, serving
// from memory when possible. Cached bytes of a removed asset are dropped.
func (s *ThumbnailService) Thumbnail(ctx context.Context, name string) ([]byte, error) {
	if !s.assets.Exists(name) {
		s.cache.Delete(name)
		return nil, ErrAssetNotFound
	}

	if data, ok := s.cache.Get(name); ok {
		s.logger.Debug().Str("name", name).Msg("thumbnail from cache")
		return data, nil
	}

	path, err := s.GetOrCreate(ctx, name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Error().Err(err).Str("thumbnail", path).Msg("failed to read thumbnail")
		return nil, fmt.Errorf("%w: %s: %v", ErrThumbnailGeneration, name, err)
	}

	s.cache.Set(name, data)
	return data, nil
}

// Prewarm generates artifacts for every listed asset using at most workers
// concurrent extractions. Individual failures are logged and skipped.
func (s *ThumbnailService) Prewarm(ctx context.Context, workers int) (generated, failed int, err error) {
	names, err := s.assets.List()
	if err != nil {
		return 0, 0, err
	}
	if workers <= 0 {
		workers = 1
	}

	var ok, bad atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, name := range names {
		if gctx.Err() != nil {
			break
		}
		if s.HasThumbnail(name) {
			continue
		}
		name := name
		g.Go(func() error {
			if _, err := s.GetOrCreate(gctx, name); err != nil {
				s.logger.Debug().Err(err).Str("name", name).Msg("prewarm skipped asset")
				bad.Add(1)
				return nil
			}
			ok.Add(1)
			return nil
		})
	}

	_ = g.Wait()
	return int(ok.Load()), int(bad.Load()), ctx.Err()
}

// StartBackgroundPrewarm runs Prewarm in its own goroutine.
func (s *ThumbnailService) StartBackgroundPrewarm(ctx context.Context, workers int) {
	go func() {
		s.logger.Info().Int("workers", workers).Msg("starting background thumbnail prewarm")

		generated, failed, err := s.Prewarm(ctx, workers)
		if err != nil {
			s.logger.Info().Err(err).Int("generated", generated).Msg("background prewarm stopped")
			return
		}

		s.logger.Info().
			Int("generated", generated).
			Int("failed", failed).
			Msg("background prewarm completed")
	}()
}

// CacheStats returns cache statistics
func (s *ThumbnailService) CacheStats() (count int, size int64) {
	return s.cache.Len(), s.cache.Size()
}
