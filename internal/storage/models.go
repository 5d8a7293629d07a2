package storage

import "time"

const (
	// KeySelectedBackground holds the name of the selected wallpaper asset.
	KeySelectedBackground = "selected_background"
)

type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
