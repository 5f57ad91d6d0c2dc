package assets

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

var (
	unsafeChars         = regexp.MustCompile(`[^\w\-.]`)
	repeatedUnderscores = regexp.MustCompile(`_+`)
)

// Filename derives the local asset filename from the episode URL path, with
// the extension taken from the audio URL. The episode slug, not the CDN
// filename, names the file so the catalog directory reads like the listing.
func Filename(episodeURL, audioURL string) string {
	slug := "episode"
	if parsed, err := url.Parse(episodeURL); err == nil {
		trimmed := strings.Trim(parsed.Path, "/")
		trimmed = strings.TrimPrefix(trimmed, "episodes/")
		if trimmed != "" {
			slug = trimmed
		}
	}

	safe := unsafeChars.ReplaceAllString(slug, "_")
	safe = repeatedUnderscores.ReplaceAllString(safe, "_")
	safe = strings.Trim(safe, "_")
	if safe == "" {
		safe = "episode"
	}

	ext := audioExtension(audioURL)
	if !strings.HasSuffix(safe, ext) {
		safe += ext
	}
	return safe
}

func audioExtension(audioURL string) string {
	parsed, err := url.Parse(audioURL)
	if err != nil {
		return ".mp3"
	}
	ext := path.Ext(path.Base(parsed.Path))
	if ext == "" {
		return ".mp3"
	}
	return ext
}
