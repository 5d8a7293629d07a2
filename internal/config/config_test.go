package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "data/wallpapers", cfg.Paths.Wallpapers)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: 9100
  read_timeout: 5s
paths:
  wallpapers: /srv/walls
thumbnails:
  timeout: 3s
  prewarm: false
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "/srv/walls", cfg.Paths.Wallpapers)
	assert.Equal(t, 3*time.Second, cfg.Thumbnails.Timeout)
	assert.False(t, cfg.Thumbnails.Prewarm)
	// untouched sections keep defaults
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "data/widgets", cfg.Paths.Widgets)
}

func TestLoad_TOMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := []byte(`
[server]
port = 9200
read_timeout = "5s"

[paths]
widgets = "/srv/widgets"

[thumbnails]
timeout = "3s"
max_width = 1280

[desktop]
reapply_min_interval = "250ms"

[logging]
level = "debug"
pretty = false
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, "/srv/widgets", cfg.Paths.Widgets)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Pretty)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 3*time.Second, cfg.Thumbnails.Timeout)
	assert.Equal(t, 1280, cfg.Thumbnails.MaxWidth)
	assert.Equal(t, 250*time.Millisecond, cfg.Desktop.ReapplyMinInterval)
	assert.Equal(t, Default().Server.WriteTimeout, cfg.Server.WriteTimeout)
}

func TestLoad_TOMLBadDurationFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[thumbnails]\ntimeout = \"soon\"\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnsureDirs(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.Paths = PathsConfig{
		Wallpapers: filepath.Join(root, "walls"),
		Widgets:    filepath.Join(root, "widgets"),
		Thumbnails: filepath.Join(root, "cache", "thumbs"),
		Database:   filepath.Join(root, "db", "settings.db"),
		Layout:     filepath.Join(root, "cfg", "widgets.json"),
	}

	require.NoError(t, cfg.EnsureDirs())
	for _, dir := range []string{"walls", "widgets", "cache/thumbs", "db", "cfg"} {
		info, err := os.Stat(filepath.Join(root, dir))
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir(), dir)
	}
}
