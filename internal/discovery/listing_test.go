package discovery

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const baseURL = "https://www.voxologypodcast.com/episodes/"

func parseHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc
}

func TestParseListingCards(t *testing.T) {
	doc := parseHTML(t, `
<html><body>
  <div class="card-body">
    <h3><a href="/episodes/exile-part-1">Exile Part 1</a></h3>
    <a class="mt-4" href="/episodes/exile-part-1">Listen to the Episode</a>
  </div>
  <div class="card-body">
    <h3>Standalone Title</h3>
    <a class="mt-4" href="https://www.voxologypodcast.com/episodes/standalone">Listen to the Episode</a>
  </div>
  <div class="card-body">
    <p>A card without a listen link</p>
  </div>
</body></html>`)

	entries := ParseListing(doc, 2, baseURL)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].URL != "https://www.voxologypodcast.com/episodes/exile-part-1" {
		t.Fatalf("relative href not absolutized: %q", entries[0].URL)
	}
	if entries[0].Title != "Exile Part 1" {
		t.Fatalf("unexpected title: %q", entries[0].Title)
	}
	if entries[1].Title != "Standalone Title" {
		t.Fatalf("heading without anchor should still give a title, got %q", entries[1].Title)
	}
	for _, entry := range entries {
		if entry.Page != 2 {
			t.Fatalf("unexpected page: %d", entry.Page)
		}
	}
}

func TestParseListingListenTextFallback(t *testing.T) {
	doc := parseHTML(t, `
<html><body>
  <a href="/episodes/fallback-one">Listen to the Episode</a>
  <a href="/about">About</a>
</body></html>`)

	entries := ParseListing(doc, 1, baseURL)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry from fallback, got %d", len(entries))
	}
	if entries[0].URL != "https://www.voxologypodcast.com/episodes/fallback-one" {
		t.Fatalf("unexpected url: %q", entries[0].URL)
	}
	if entries[0].Title != "" {
		t.Fatalf("fallback entries carry no title, got %q", entries[0].Title)
	}
}

func TestParseListingMt4Fallback(t *testing.T) {
	doc := parseHTML(t, `
<html><body>
  <a class="mt-4" href="/episodes/deep-cut">more</a>
  <a class="mt-4" href="/">home</a>
  <a class="mt-4" href="https://elsewhere.example.com/x">offsite</a>
</body></html>`)

	entries := ParseListing(doc, 3, baseURL)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].URL != "https://www.voxologypodcast.com/episodes/deep-cut" {
		t.Fatalf("unexpected url: %q", entries[0].URL)
	}
}

func TestParseListingEmptyPage(t *testing.T) {
	doc := parseHTML(t, `<html><body><p>nothing here</p></body></html>`)
	if entries := ParseListing(doc, 9, baseURL); len(entries) != 0 {
		t.Fatalf("expected no entries, got %v", entries)
	}
}

func TestExtractDate(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "time element",
			html: `<html><body><time datetime="2024-03-11T08:00:00Z">March 11</time></body></html>`,
			want: "2024-03-11",
		},
		{
			name: "meta published time",
			html: `<html><head><meta property="article:published_time" content="2023-07-04"></head><body></body></html>`,
			want: "2023-07-04",
		},
		{
			name: "long form text",
			html: `<html><body><span>Published on February 9, 2022 by the show</span></body></html>`,
			want: "2022-02-09",
		},
		{
			name: "short form text",
			html: `<html><body><span>9 Feb 2022</span></body></html>`,
			want: "2022-02-09",
		},
		{
			name: "no date",
			html: `<html><body><span>no dates here</span></body></html>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractDate(parseHTML(t, tt.html))
			if got != tt.want {
				t.Fatalf("ExtractDate = %q, want %q", got, tt.want)
			}
		})
	}
}
