package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"livewallpaper/internal/api"
	"livewallpaper/internal/config"
)

type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	httpServer *http.Server
	router     *chi.Mux
	handler    *api.Handler
	push       http.Handler
}

// New wires the request surface. push serves the /ws upgrade and may be nil.
func New(cfg *config.Config, logger zerolog.Logger, handler *api.Handler, push http.Handler) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		handler: handler,
		push:    push,
	}

	s.router = chi.NewRouter()
	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(RecoverMiddleware(s.logger))
	s.router.Use(CORSMiddleware)
	s.router.Use(LoggingMiddleware(s.logger))
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handler.Health)
		r.Get("/settings", s.handler.ListSettings)

		r.Get("/wallpapers", s.handler.ListWallpapers)
		r.Get("/wallpaper", s.handler.CurrentWallpaper)
		r.Post("/select_wallpaper", s.handler.SelectWallpaper)
		r.Get("/wallpaper_thumbnails/{name}", s.handler.WallpaperThumbnail)
		r.Post("/open_wallpaper_folder", s.handler.OpenWallpaperFolder)

		r.Get("/widgets", s.handler.ListWidgets)
		r.Get("/widgets/config", s.handler.GetWidgetLayout)
		r.Post("/widgets/config", s.handler.SaveWidgetLayout)
		r.Post("/open_widgets_folder", s.handler.OpenWidgetsFolder)
	})

	s.router.Get("/widgets/{id}/frame", s.handler.WidgetFrame)

	if s.push != nil {
		s.router.Handle("/ws", s.push)
	}
}

// Handler exposes the router for in-process use and tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.httpServer.Addr).
		Msg("starting server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}
