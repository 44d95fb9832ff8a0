package page

import (
	"mime"
	"path"
	"strings"
)

const defaultMediaType = "application/octet-stream"

// Extensions common for git-hosted content that the stdlib table misses
// or resolves differently across platforms. Checked first so responses
// stay deterministic regardless of the host's mime database.
var mediaTypes = map[string]string{
	".html":        "text/html",
	".htm":         "text/html",
	".css":         "text/css",
	".js":          "text/javascript",
	".mjs":         "text/javascript",
	".json":        "application/json",
	".xml":         "application/xml",
	".md":          "text/markdown",
	".txt":         "text/plain",
	".pdf":         "application/pdf",
	".avif":        "image/avif",
	".gif":         "image/gif",
	".ico":         "image/vnd.microsoft.icon",
	".jpeg":        "image/jpeg",
	".jpg":         "image/jpeg",
	".png":         "image/png",
	".svg":         "image/svg+xml",
	".webp":        "image/webp",
	".heif":        "image/heif",
	".heic":        "image/heic",
	".jxl":         "image/jxl",
	".wav":         "audio/wav",
	".weba":        "audio/webm",
	".mp3":         "audio/mpeg",
	".oga":         "audio/ogg",
	".opus":        "audio/ogg",
	".mp4":         "video/mp4",
	".mpeg":        "video/mpeg",
	".ogv":         "video/ogg",
	".webm":        "video/webm",
	".mkv":         "video/x-matroska",
	".ttf":         "font/ttf",
	".woff":        "font/woff",
	".woff2":       "font/woff2",
	".wasm":        "application/wasm",
	".webmanifest": "application/manifest+json",
}

// mediaTypeFromPath infers the response content type from the file
// extension, best effort.
func mediaTypeFromPath(p string) string {
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return defaultMediaType
	}
	if mt, ok := mediaTypes[ext]; ok {
		return mt
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		return mt
	}
	return defaultMediaType
}
