package resolver

import (
	"net/url"
	"path"
	"strings"

	"goals_bot/internal/model"
)

var extKinds = map[string]model.MediaKind{
	".jpg":  model.MediaImage,
	".jpeg": model.MediaImage,
	".png":  model.MediaImage,
	".gif":  model.MediaImage,
	".webp": model.MediaImage,
	".mp4":  model.MediaVideo,
	".webm": model.MediaVideo,
	".mov":  model.MediaVideo,
	".m4v":  model.MediaVideo,
	".mkv":  model.MediaVideo,
}

// Classify decides whether a direct URL is an image or a video. The file
// extension wins; unknown extensions fall back to the content type and
// finally to video.
func Classify(rawURL, contentType string) model.MediaKind {
	if kind, ok := extKinds[extension(rawURL)]; ok {
		return kind
	}
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/") {
		return model.MediaImage
	}
	return model.MediaVideo
}

// IsDirect reports whether the URL already points at a media file.
func IsDirect(rawURL string) bool {
	_, ok := extKinds[extension(rawURL)]
	return ok
}

func extension(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	return strings.ToLower(path.Ext(p))
}
