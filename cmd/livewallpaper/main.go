package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"livewallpaper/internal/api"
	"livewallpaper/internal/config"
	"livewallpaper/internal/desktop"
	"livewallpaper/internal/hub"
	"livewallpaper/internal/media"
	"livewallpaper/internal/selection"
	"livewallpaper/internal/server"
	"livewallpaper/internal/storage"
	"livewallpaper/internal/widget"
)

func main() {
	configPath := flag.String("config", "", "path to config file (.yaml or .toml)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger := setupLogger(cfg.Logging)

	logger.Info().
		Str("version", api.Version).
		Msg("starting livewallpaper")

	if err := cfg.EnsureDirs(); err != nil {
		logger.Fatal().Err(err).Msg("failed to create data directories")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Settings record
	store, err := storage.NewSQLiteStorage(cfg.Paths.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	defer store.Close()

	// Wallpapers and thumbnails
	mediaLog := component(logger, "media")
	extractor := media.NewFFmpegExtractor(mediaLog)
	if extractor.IsAvailable() {
		logger.Info().Msg("ffmpeg available - thumbnail generation enabled")
	} else {
		logger.Warn().Msg("ffmpeg not found - thumbnails will fail until it is installed")
	}

	assets := media.NewAssetStore(cfg.Paths.Wallpapers, mediaLog)
	thumbnails := media.NewThumbnailService(assets, extractor, media.ThumbnailOptions{
		OutputDir:     cfg.Paths.Thumbnails,
		MaxWidth:      cfg.Thumbnails.MaxWidth,
		Timeout:       cfg.Thumbnails.Timeout,
		CacheCapacity: cfg.Thumbnails.CacheCapacity,
		CacheMaxSize:  cfg.Thumbnails.CacheMaxSize,
	}, mediaLog)

	// Widgets
	widgetLog := component(logger, "widget")
	merger := widget.NewMerger(
		widget.NewRegistry(cfg.Paths.Widgets, widgetLog),
		widget.NewLayoutStore(cfg.Paths.Layout, widgetLog),
		widgetLog,
	)

	// Selection and its consumers, in notification order
	desktopLog := component(logger, "desktop")
	sel := selection.NewState(assets, thumbnails, component(logger, "selection"))
	pushHub := hub.New(component(logger, "hub"))
	setter := desktop.NewSetter(desktopLog)

	sel.RegisterConsumer("settings", store.SelectionConsumer())
	if cfg.Desktop.Enabled {
		sel.RegisterConsumer("desktop", desktop.PictureConsumer(setter, desktopLog))
	}
	sel.RegisterConsumer("hub", pushHub.Consumer())

	preferred, err := store.SelectedBackground(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to read saved wallpaper")
	}
	sel.Initialize(ctx, preferred)

	pushHub.SetGreeting(func() (hub.Message, bool) {
		cur := sel.Current()
		if cur.IsEmpty() {
			return hub.Message{}, false
		}
		return hub.WallpaperMessage(cur), true
	})

	// Desktop picture and host events
	reapplier := desktop.NewReapplier(sel.Current, setter, cfg.Desktop.ReapplyMinInterval, desktopLog)
	if cfg.Desktop.Enabled {
		go func() {
			if _, err := reapplier.Reapply(ctx); err != nil {
				logger.Warn().Err(err).Msg("failed to apply initial desktop picture")
			}
		}()
	}

	sources := []desktop.EventSource{
		desktop.NewSignalSource(desktop.EventWorkspaceChanged, desktopLog, syscall.SIGHUP),
	}
	if cfg.Desktop.Watch {
		watcher := desktop.NewDirWatcher(300*time.Millisecond, desktopLog)
		watcher.Watch(cfg.Paths.Wallpapers, desktop.EventAssetsChanged)
		watcher.Watch(cfg.Paths.Widgets, desktop.EventWidgetsChanged)
		sources = append(sources, watcher)
	}
	events := desktop.Multiplex(sources...)
	if cfg.Desktop.Enabled {
		events.OnEvent(reapplier.Handler(ctx))
	}
	events.OnEvent(func(ev desktop.Event) {
		switch ev {
		case desktop.EventWorkspaceChanged, desktop.EventWake:
			pushHub.Broadcast(hub.Message{Type: hub.TypeReload})
		case desktop.EventAssetsChanged:
			pushHub.Broadcast(hub.Message{Type: hub.TypeAssetsChanged})
		case desktop.EventWidgetsChanged:
			pushHub.Broadcast(hub.Message{Type: hub.TypeWidgetsChanged})
		}
	})
	go func() {
		if err := events.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("desktop event sources stopped")
		}
	}()

	if cfg.Thumbnails.Prewarm {
		thumbnails.StartBackgroundPrewarm(ctx, cfg.Thumbnails.PrewarmWorkers)
	}

	// Request surface
	handler := api.NewHandler(assets, thumbnails, sel, merger, component(logger, "api"))
	handler.SetBroadcaster(pushHub)
	handler.SetOpener(desktop.NewOpener(desktopLog))
	handler.SetSettings(store)

	srv := server.New(cfg, logger, handler, pushHub)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info().Msg("received shutdown signal")
		cancel()
		pushHub.Close()

		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("shutdown error")
		}
	}()

	if err := srv.Start(); err != nil {
		logger.Error().Err(err).Msg("server error")
	}

	logger.Info().Msg("server stopped")
}

func component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	var console io.Writer = os.Stdout
	if cfg.Pretty {
		console = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	}

	out := console
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err == nil {
			out = zerolog.MultiLevelWriter(console, &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    cfg.MaxSizeMB,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAgeDays,
				Compress:   cfg.Compress,
			})
		}
	}

	return zerolog.New(out).
		With().
		Timestamp().
		Logger()
}
