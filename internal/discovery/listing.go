package discovery

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/xeb/voxcatalog/internal/catalog"
)

// ParseListing extracts episode entries from one listing page. The primary
// selector is the "listen" link inside each episode card; two fallbacks cover
// layout drift (anchor text, then bare mt-4 links anywhere on the page).
func ParseListing(doc *goquery.Document, page int, baseURL string) []catalog.Entry {
	var entries []catalog.Entry

	doc.Find("div.card-body").Each(func(_ int, card *goquery.Selection) {
		link := card.Find("a.mt-4[href]").First()
		href, ok := link.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}

		title := ""
		heading := card.Find("h3").First()
		if anchor := heading.Find("a").First(); anchor.Length() > 0 {
			title = strings.TrimSpace(anchor.Text())
		} else {
			title = strings.TrimSpace(heading.Text())
		}

		entries = append(entries, catalog.Entry{
			URL:   absoluteURL(baseURL, href),
			Page:  page,
			Title: title,
		})
	})
	if len(entries) > 0 {
		return entries
	}

	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		if !strings.Contains(strings.ToLower(link.Text()), "listen to the episode") {
			return
		}
		href, _ := link.Attr("href")
		if strings.TrimSpace(href) == "" {
			return
		}
		entries = append(entries, catalog.Entry{URL: absoluteURL(baseURL, href), Page: page})
	})
	if len(entries) > 0 {
		return entries
	}

	doc.Find("a.mt-4[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || href == "/" || !strings.HasPrefix(href, "/") {
			return
		}
		entries = append(entries, catalog.Entry{URL: absoluteURL(baseURL, href), Page: page})
	})
	return entries
}

func absoluteURL(baseURL, href string) string {
	href = strings.TrimSpace(href)
	if !strings.HasPrefix(href, "/") {
		return href
	}
	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return href
	}
	return base.Scheme + "://" + base.Host + href
}
