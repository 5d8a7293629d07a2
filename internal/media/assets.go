package media

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

var ErrAssetNotFound = errors.New("asset not found")

// AssetStore is a read-only view over the wallpaper directory. The directory
// is the source of truth, so every call re-reads it.
type AssetStore struct {
	dir    string
	logger zerolog.Logger
}

func NewAssetStore(dir string, logger zerolog.Logger) *AssetStore {
	return &AssetStore{
		dir:    filepath.Clean(dir),
		logger: logger,
	}
}

func (s *AssetStore) Dir() string {
	return s.dir
}

// List returns asset names without extensions, sorted case-insensitively.
// A missing directory is an empty library, not an error.
func (s *AssetStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	seen := make(map[string]bool, len(entries))
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name, ok := s.assetName(entry)
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}

	sort.Slice(names, func(i, j int) bool {
		a, b := strings.ToLower(names[i]), strings.ToLower(names[j])
		if a != b {
			return a < b
		}
		return names[i] < names[j]
	})

	s.logger.Debug().Int("count", len(names)).Msg("listed assets")
	return names, nil
}

func (s *AssetStore) Exists(name string) bool {
	_, err := s.Path(name)
	return err == nil
}

// Path resolves an asset name to its file, trying allowed extensions in
// priority order.
func (s *AssetStore) Path(name string) (string, error) {
	if !validName(name) {
		return "", ErrAssetNotFound
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", ErrAssetNotFound
	}

	best, bestRank := "", len(supportedVideoExtensions)
	for _, entry := range entries {
		if stem, ok := s.assetName(entry); !ok || stem != name {
			continue
		}
		if rank := extensionRank(filepath.Ext(entry.Name())); rank < bestRank {
			best, bestRank = entry.Name(), rank
		}
	}

	if best == "" {
		return "", ErrAssetNotFound
	}
	return filepath.Join(s.dir, best), nil
}

// assetName reports the asset name of a directory entry. List and Path both
// go through here, so every listed name resolves. Symlinks are followed.
func (s *AssetStore) assetName(entry os.DirEntry) (string, bool) {
	file := entry.Name()
	if strings.HasPrefix(file, ".") || !IsSupportedVideo(file) {
		return "", false
	}
	if entry.Type()&os.ModeSymlink != 0 {
		info, err := os.Stat(filepath.Join(s.dir, file))
		if err != nil || !info.Mode().IsRegular() {
			return "", false
		}
	} else if !entry.Type().IsRegular() {
		return "", false
	}
	return strings.TrimSuffix(file, filepath.Ext(file)), true
}

func extensionRank(ext string) int {
	ext = strings.ToLower(ext)
	for i, allowed := range supportedVideoExtensions {
		if ext == allowed {
			return i
		}
	}
	return len(supportedVideoExtensions)
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	return !strings.HasPrefix(name, ".")
}
