package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server" toml:"server"`
	Paths      PathsConfig      `yaml:"paths" toml:"paths"`
	Thumbnails ThumbnailsConfig `yaml:"thumbnails" toml:"thumbnails"`
	Desktop    DesktopConfig    `yaml:"desktop" toml:"desktop"`
	Logging    LoggingConfig    `yaml:"logging" toml:"logging"`
}

type ServerConfig struct {
	Host         string        `yaml:"host" toml:"host"`
	Port         int           `yaml:"port" toml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" toml:"-"`
	WriteTimeout time.Duration `yaml:"write_timeout" toml:"-"`
}

type PathsConfig struct {
	Wallpapers string `yaml:"wallpapers" toml:"wallpapers"`
	Widgets    string `yaml:"widgets" toml:"widgets"`
	Thumbnails string `yaml:"thumbnails" toml:"thumbnails"`
	Database   string `yaml:"database" toml:"database"`
	Layout     string `yaml:"layout" toml:"layout"`
}

type ThumbnailsConfig struct {
	CacheCapacity  int           `yaml:"cache_capacity" toml:"cache_capacity"`
	CacheMaxSize   int64         `yaml:"cache_max_size" toml:"cache_max_size"` // bytes
	MaxWidth       int           `yaml:"max_width" toml:"max_width"`
	Timeout        time.Duration `yaml:"timeout" toml:"-"`
	Prewarm        bool          `yaml:"prewarm" toml:"prewarm"`
	PrewarmWorkers int           `yaml:"prewarm_workers" toml:"prewarm_workers"`
}

type DesktopConfig struct {
	Enabled            bool          `yaml:"enabled" toml:"enabled"`
	ReapplyMinInterval time.Duration `yaml:"reapply_min_interval" toml:"-"`
	Watch              bool          `yaml:"watch" toml:"watch"`
}

type LoggingConfig struct {
	Level      string `yaml:"level" toml:"level"`
	Pretty     bool   `yaml:"pretty" toml:"pretty"`
	File       string `yaml:"file" toml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" toml:"max_age_days"`
	Compress   bool   `yaml:"compress" toml:"compress"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 0,
		},
		Paths: PathsConfig{
			Wallpapers: "data/wallpapers",
			Widgets:    "data/widgets",
			Thumbnails: filepath.Join(os.TempDir(), "livewallpaper_cache"),
			Database:   "data/settings.db",
			Layout:     "data/widgets_config.json",
		},
		Thumbnails: ThumbnailsConfig{
			CacheCapacity:  256,
			CacheMaxSize:   64 * 1024 * 1024, // 64 MB
			MaxWidth:       1920,
			Timeout:        20 * time.Second,
			Prewarm:        true,
			PrewarmWorkers: 2,
		},
		Desktop: DesktopConfig{
			Enabled:            true,
			ReapplyMinInterval: 500 * time.Millisecond,
			Watch:              true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Pretty:     true,
			MaxSizeMB:  10,
			MaxBackups: 2,
			MaxAgeDays: 28,
			Compress:   true,
		},
	}
}

// Load returns the defaults overlaid with the file at path. The decoder is
// picked by extension: .toml uses TOML, everything else YAML.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse toml config: %w", err)
		}
		if err := applyTOMLDurations(data, cfg); err != nil {
			return nil, fmt.Errorf("parse toml config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse yaml config: %w", err)
		}
	}

	return cfg, nil
}

// duration decodes TOML strings such as "3s" or "500ms".
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}

// tomlDurations mirrors the duration keys of Config. TOML has no duration
// type, so these are decoded in a second pass.
type tomlDurations struct {
	Server struct {
		ReadTimeout  *duration `toml:"read_timeout"`
		WriteTimeout *duration `toml:"write_timeout"`
	} `toml:"server"`
	Thumbnails struct {
		Timeout *duration `toml:"timeout"`
	} `toml:"thumbnails"`
	Desktop struct {
		ReapplyMinInterval *duration `toml:"reapply_min_interval"`
	} `toml:"desktop"`
}

func applyTOMLDurations(data []byte, cfg *Config) error {
	var d tomlDurations
	if err := toml.Unmarshal(data, &d); err != nil {
		return err
	}
	set := func(dst *time.Duration, src *duration) {
		if src != nil {
			*dst = time.Duration(*src)
		}
	}
	set(&cfg.Server.ReadTimeout, d.Server.ReadTimeout)
	set(&cfg.Server.WriteTimeout, d.Server.WriteTimeout)
	set(&cfg.Thumbnails.Timeout, d.Thumbnails.Timeout)
	set(&cfg.Desktop.ReapplyMinInterval, d.Desktop.ReapplyMinInterval)
	return nil
}

// EnsureDirs creates every directory the process writes to or scans.
func (c *Config) EnsureDirs() error {
	dirs := []string{
		c.Paths.Wallpapers,
		c.Paths.Widgets,
		c.Paths.Thumbnails,
		filepath.Dir(c.Paths.Database),
		filepath.Dir(c.Paths.Layout),
	}
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
