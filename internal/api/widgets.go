package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"livewallpaper/internal/hub"
	"livewallpaper/internal/widget"
)

// ListWidgets is the raw discovery view: id to aspect ratio.
func (h *Handler) ListWidgets(w http.ResponseWriter, r *http.Request) {
	ratios, err := h.merger.AspectRatios()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to discover widgets")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to discover widgets")
		return
	}
	writeJSON(w, http.StatusOK, ratios)
}

func (h *Handler) GetWidgetLayout(w http.ResponseWriter, r *http.Request) {
	entries, err := h.merger.MergedLayout()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to merge widget layout")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load widget layout")
		return
	}
	writeJSON(w, http.StatusOK, WidgetLayoutResponse{Widgets: entries})
}

// SaveWidgetLayout replaces the stored layout with the request body, which
// must be a JSON array of entries.
func (h *Handler) SaveWidgetLayout(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "Invalid request body")
		return
	}

	entries, err := h.merger.Store().Replace(body)
	if errors.Is(err, widget.ErrInvalidPayload) {
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to save widget layout")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save widget layout")
		return
	}

	h.notify(hub.Message{Type: hub.TypeWidgetsChanged})
	writeJSON(w, http.StatusOK, SaveWidgetLayoutResponse{Success: true, Count: len(entries)})
}

// WidgetFrame serves one widget as a standalone document for an isolated
// frame.
func (h *Handler) WidgetFrame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	page, err := h.merger.Registry().RenderFrame(id)
	if errors.Is(err, widget.ErrWidgetNotFound) {
		writeError(w, http.StatusNotFound, "WIDGET_NOT_FOUND", "Widget not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("widget", id).Msg("failed to render widget frame")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to render widget")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(page)
}
