package discovery

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/xeb/voxcatalog/internal/catalog"
	"github.com/xeb/voxcatalog/internal/fetch"
	"github.com/xeb/voxcatalog/internal/pipeline"
	"github.com/xeb/voxcatalog/internal/services"
)

var (
	longDateExpr  = regexp.MustCompile(`[A-Z][a-z]+ \d{1,2}, \d{4}`)
	shortDateExpr = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)
)

// HasDate is the discovery completion predicate: an entry is done once it
// carries a publication date. Entries discovered before date extraction
// existed stay pending until backfilled.
func HasDate(e catalog.Entry) bool {
	return e.Date != ""
}

// DateStage backfills publication dates by fetching each dateless entry's
// episode page. The skip-set is synced against HasDate, so a listing page is
// only skipped once every episode on it is dated.
func DateStage(client *fetch.Client) pipeline.Stage {
	return pipeline.Stage{
		Name:      "dates",
		Done:      HasDate,
		SyncPages: true,
		Process: func(ctx context.Context, entry catalog.Entry) (catalog.FieldUpdate, error) {
			doc, err := client.Page(ctx, entry.URL)
			if err != nil {
				return catalog.FieldUpdate{}, err
			}
			date := ExtractDate(doc)
			if date == "" {
				return catalog.FieldUpdate{}, services.Wrap(services.ErrPermanent, "dates", "extract",
					"no publication date on episode page", nil)
			}
			return catalog.FieldUpdate{Date: catalog.String(date)}, nil
		},
	}
}

// ExtractDate pulls a publication date out of an episode page and normalizes
// it to YYYY-MM-DD. Structured sources (time elements, article metadata) win
// over free-text date patterns.
func ExtractDate(doc *goquery.Document) string {
	if value, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
		if date := normalizeDate(value); date != "" {
			return date
		}
	}
	if value, ok := doc.Find(`meta[property="article:published_time"]`).First().Attr("content"); ok {
		if date := normalizeDate(value); date != "" {
			return date
		}
	}

	text := doc.Find("body").Text()
	if match := longDateExpr.FindString(text); match != "" {
		if parsed, err := time.Parse("January 2, 2006", match); err == nil {
			return parsed.Format("2006-01-02")
		}
	}
	if match := shortDateExpr.FindString(text); match != "" {
		if parsed, err := time.Parse("2 Jan 2006", match); err == nil {
			return parsed.Format("2006-01-02")
		}
	}
	return ""
}

func normalizeDate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.Format("2006-01-02")
		}
	}
	if len(value) >= 10 {
		if parsed, err := time.Parse("2006-01-02", value[:10]); err == nil {
			return parsed.Format("2006-01-02")
		}
	}
	return ""
}
