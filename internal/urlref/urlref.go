// Package urlref validates and parses reference-track URLs before they
// are handed to yt-dlp.
package urlref

import (
	"fmt"
	"net/url"
	"strings"
)

// IsSupported reports whether rawURL looks like a video URL go-ytdlp can
// plausibly handle, rather than a typo or a local path.
func IsSupported(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// ExtractYouTubeID pulls the video ID out of the common YouTube URL shapes
// (youtu.be/<id>, youtube.com/watch?v=<id>, /embed/<id>, /v/<id>).
func ExtractYouTubeID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	host := strings.ToLower(u.Host)

	if strings.Contains(host, "youtu.be") {
		id := strings.TrimPrefix(u.Path, "/")
		if idx := strings.Index(id, "?"); idx != -1 {
			id = id[:idx]
		}
		if id != "" {
			return id, nil
		}
		return "", fmt.Errorf("no video ID found in youtu.be URL")
	}

	if strings.Contains(host, "youtube.com") {
		if strings.HasPrefix(u.Path, "/watch") {
			if id := u.Query().Get("v"); id != "" {
				return id, nil
			}
		}
		if strings.HasPrefix(u.Path, "/embed/") {
			return strings.TrimPrefix(u.Path, "/embed/"), nil
		}
		if strings.HasPrefix(u.Path, "/v/") {
			return strings.TrimPrefix(u.Path, "/v/"), nil
		}
	}

	return "", fmt.Errorf("unable to extract video ID from URL: %s", rawURL)
}
