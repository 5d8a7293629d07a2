package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"livewallpaper/internal/hub"
	"livewallpaper/internal/media"
	"livewallpaper/internal/selection"
	"livewallpaper/internal/storage"
	"livewallpaper/internal/streaming"
	"livewallpaper/internal/widget"
)

const Version = "0.1.0"

const maxBodyBytes = 1 << 20

// Broadcaster pushes a message to every connected companion window.
type Broadcaster interface {
	Broadcast(msg hub.Message)
	ClientCount() int
}

// Settings exposes the persisted settings record.
type Settings interface {
	All(ctx context.Context) ([]storage.Setting, error)
}

// Opener reveals a directory in the platform file manager.
type Opener interface {
	Open(ctx context.Context, dir string) error
}

type Handler struct {
	assets     *media.AssetStore
	thumbnails *media.ThumbnailService
	selection  *selection.State
	merger     *widget.Merger
	streamer   *streaming.Handler
	broadcast  Broadcaster
	opener     Opener
	settings   Settings
	logger     zerolog.Logger
}

func NewHandler(
	assets *media.AssetStore,
	thumbnails *media.ThumbnailService,
	sel *selection.State,
	merger *widget.Merger,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		assets:     assets,
		thumbnails: thumbnails,
		selection:  sel,
		merger:     merger,
		streamer:   streaming.NewHandler(logger),
		logger:     logger,
	}
}

func (h *Handler) SetBroadcaster(b Broadcaster) {
	h.broadcast = b
}

func (h *Handler) SetOpener(o Opener) {
	h.opener = o
}

func (h *Handler) SetSettings(s Settings) {
	h.settings = s
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	entries, size := h.thumbnails.CacheStats()
	resp := HealthResponse{
		Status:         "ok",
		Version:        Version,
		ThumbnailCache: ThumbnailCacheStats{Entries: entries, Bytes: size},
	}
	if h.broadcast != nil {
		resp.PushClients = h.broadcast.ClientCount()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) ListSettings(w http.ResponseWriter, r *http.Request) {
	resp := SettingsResponse{Settings: []storage.Setting{}}
	if h.settings != nil {
		all, err := h.settings.All(r.Context())
		if err != nil {
			h.logger.Error().Err(err).Msg("failed to read settings")
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read settings")
			return
		}
		resp.Settings = all
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) ListWallpapers(w http.ResponseWriter, r *http.Request) {
	names, err := h.assets.List()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list wallpapers")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list wallpapers")
		return
	}

	resp := WallpapersResponse{Wallpapers: names}
	if cur := h.selection.Current(); !cur.IsEmpty() {
		resp.Selected = &cur.Name
	}
	writeJSON(w, http.StatusOK, resp)
}

// CurrentWallpaper streams the selected asset. The name is re-validated on
// every read since the file may have been removed.
func (h *Handler) CurrentWallpaper(w http.ResponseWriter, r *http.Request) {
	cur := h.selection.Current()
	if cur.IsEmpty() {
		writeError(w, http.StatusNotFound, "NO_WALLPAPER", "No wallpaper selected")
		return
	}

	path, err := h.assets.Path(cur.Name)
	if err != nil {
		h.logger.Warn().Err(err).Str("wallpaper", cur.Name).Msg("selected wallpaper is gone")
		writeError(w, http.StatusNotFound, "ASSET_NOT_FOUND", "Wallpaper not found")
		return
	}

	if err := h.streamer.ServeFile(w, r, path); err != nil {
		h.logger.Warn().Err(err).Str("wallpaper", cur.Name).Msg("failed to serve wallpaper")
		writeError(w, http.StatusNotFound, "ASSET_NOT_FOUND", "Wallpaper not found")
	}
}

func (h *Handler) SelectWallpaper(w http.ResponseWriter, r *http.Request) {
	var req SelectWallpaperRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "Invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "Missing wallpaper name")
		return
	}

	snap, err := h.selection.Select(r.Context(), req.Name)
	switch {
	case errors.Is(err, media.ErrAssetNotFound):
		writeError(w, http.StatusNotFound, "ASSET_NOT_FOUND", "Wallpaper not found")
		return
	case err != nil && !errors.Is(err, media.ErrThumbnailGeneration):
		h.logger.Error().Err(err).Str("wallpaper", req.Name).Msg("failed to select wallpaper")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to select wallpaper")
		return
	}

	resp := SelectWallpaperResponse{Selected: snap.Name}
	if snap.ThumbnailPath != "" {
		resp.Thumbnail = thumbnailURL(snap.Name)
	}
	if err != nil {
		// the name committed even though the thumbnail did not
		resp.ThumbnailError = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) WallpaperThumbnail(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	data, err := h.thumbnails.Thumbnail(r.Context(), name)
	switch {
	case errors.Is(err, media.ErrAssetNotFound):
		writeError(w, http.StatusNotFound, "ASSET_NOT_FOUND", "Wallpaper not found")
		return
	case errors.Is(err, media.ErrThumbnailGeneration):
		h.logger.Warn().Err(err).Str("wallpaper", name).Msg("failed to generate thumbnail")
		writeError(w, http.StatusInternalServerError, "THUMBNAIL_FAILED", "Thumbnail generation failed")
		return
	case err != nil:
		h.logger.Error().Err(err).Str("wallpaper", name).Msg("failed to read thumbnail")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read thumbnail")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) OpenWallpaperFolder(w http.ResponseWriter, r *http.Request) {
	h.openFolder(w, r, h.assets.Dir())
}

func (h *Handler) OpenWidgetsFolder(w http.ResponseWriter, r *http.Request) {
	h.openFolder(w, r, h.merger.Registry().Root())
}

func (h *Handler) openFolder(w http.ResponseWriter, r *http.Request, dir string) {
	if h.opener == nil {
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Folder opening not available")
		return
	}
	if err := h.opener.Open(r.Context(), dir); err != nil {
		h.logger.Warn().Err(err).Str("dir", dir).Msg("failed to open folder")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to open folder")
		return
	}
	writeJSON(w, http.StatusOK, OpenFolderResponse{Success: true})
}

func (h *Handler) notify(msg hub.Message) {
	if h.broadcast != nil {
		h.broadcast.Broadcast(msg)
	}
}

func thumbnailURL(name string) string {
	return "/api/wallpaper_thumbnails/" + url.PathEscape(name)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
