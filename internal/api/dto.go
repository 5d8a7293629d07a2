package api

import (
	"livewallpaper/internal/storage"
	"livewallpaper/internal/widget"
)

type HealthResponse struct {
	Status         string              `json:"status"`
	Version        string              `json:"version"`
	ThumbnailCache ThumbnailCacheStats `json:"thumbnail_cache"`
	PushClients    int                 `json:"push_clients"`
}

type ThumbnailCacheStats struct {
	Entries int   `json:"entries"`
	Bytes   int64 `json:"bytes"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SettingsResponse struct {
	Settings []storage.Setting `json:"settings"`
}

// Wallpapers

type WallpapersResponse struct {
	Wallpapers []string `json:"wallpapers"`
	Selected   *string  `json:"selected"`
}

type SelectWallpaperRequest struct {
	Name string `json:"name"`
}

type SelectWallpaperResponse struct {
	Selected       string `json:"selected"`
	Thumbnail      string `json:"thumbnail,omitempty"`
	ThumbnailError string `json:"thumbnail_error,omitempty"`
}

type OpenFolderResponse struct {
	Success bool `json:"success"`
}

// Widgets

type WidgetLayoutResponse struct {
	Widgets []widget.Entry `json:"widgets"`
}

type SaveWidgetLayoutResponse struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
}
