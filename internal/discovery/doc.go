// Package discovery scrapes the paginated episode listing into the catalog
// and backfills publication dates from individual episode pages.
//
// The listing scan is page-grained: pages already in the snapshot's skip-set
// are not refetched, every scraped page is persisted before the next fetch,
// and pagination stops on an empty page, a missing page, or three consecutive
// fetch failures. Dates are an entry-grained backfill stage; a page joins the
// skip-set only once every entry discovered from it carries a date.
package discovery
