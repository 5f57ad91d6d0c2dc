package assets

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/xeb/voxcatalog/internal/catalog"
	"github.com/xeb/voxcatalog/internal/fetch"
	"github.com/xeb/voxcatalog/internal/pipeline"
	"github.com/xeb/voxcatalog/internal/services"
)

// HasAudioLink is the audio-link stage's completion predicate.
func HasAudioLink(e catalog.Entry) bool {
	return e.AudioLink != ""
}

// AudioLinkStage fetches each entry's episode page and extracts the audio
// URL.
func AudioLinkStage(client *fetch.Client) pipeline.Stage {
	return pipeline.Stage{
		Name: "audiolinks",
		Done: HasAudioLink,
		Process: func(ctx context.Context, entry catalog.Entry) (catalog.FieldUpdate, error) {
			doc, err := client.Page(ctx, entry.URL)
			if err != nil {
				return catalog.FieldUpdate{}, err
			}
			link := ExtractAudioLink(doc)
			if link == "" {
				return catalog.FieldUpdate{}, services.Wrap(services.ErrPermanent, "audiolinks", "extract",
					"no mp3 or m4a source on episode page", nil)
			}
			return catalog.FieldUpdate{AudioLink: catalog.String(link)}, nil
		},
	}
}

// ExtractAudioLink finds the first playable audio URL on an episode page.
// Player embeds commonly label m4a files as audio/mp3, so the match is on the
// URL, not the declared type. Fallbacks widen from typed source tags to any
// source, audio elements, and finally plain anchors.
func ExtractAudioLink(doc *goquery.Document) string {
	for _, selector := range []string{
		`source[type="audio/mp3"]`,
		`source[type="audio/m4a"]`,
		"source",
	} {
		if link := firstAudioAttr(doc, selector, "src"); link != "" {
			return link
		}
	}
	if link := firstAudioAttr(doc, "audio", "src"); link != "" {
		return link
	}
	return firstAudioAttr(doc, "a", "href")
}

func firstAudioAttr(doc *goquery.Document, selector, attr string) string {
	found := ""
	doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		value, ok := sel.Attr(attr)
		if !ok {
			return true
		}
		if isAudioURL(value) {
			found = value
			return false
		}
		return true
	})
	return found
}

func isAudioURL(value string) bool {
	value = strings.TrimSpace(value)
	return value != "" && (strings.Contains(value, ".mp3") || strings.Contains(value, ".m4a"))
}
