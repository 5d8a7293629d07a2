package media

import (
	"path/filepath"
	"strings"
)

// Containers the render surface can play, in lookup priority order.
var supportedVideoExtensions = []string{".mp4", ".m4v", ".mov", ".webm"}

func IsSupportedVideo(filename string) bool {
	return extensionRank(filepath.Ext(filename)) < len(supportedVideoExtensions)
}

func GetContentType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".webm":
		return "video/webm"
	default:
		return "application/octet-stream"
	}
}
