package catalog

import "sort"

// Predicate reports whether an entry is done for a particular stage. It must
// be pure: all resumability policy lives in the predicate plus the cursor, so
// each stage's skip logic is testable in isolation.
type Predicate func(Entry) bool

// Cursor computes the pending subset of a store's entries for one stage.
type Cursor struct {
	store *Store
	done  Predicate
}

// NewCursor returns a cursor over store using done as the stage's completion
// predicate.
func NewCursor(store *Store, done Predicate) *Cursor {
	return &Cursor{store: store, done: done}
}

// Pending returns the pending entries in discovery order. Skip-set membership
// is advisory only: an entry that fails the predicate is always returned even
// when its page is marked processed, so fields introduced after initial
// discovery get backfilled.
func (c *Cursor) Pending() []Entry {
	var pending []Entry
	for _, entry := range c.store.entries {
		if !c.done(entry) {
			pending = append(pending, entry)
		}
	}
	return pending
}

// PageComplete reports whether every entry discovered from page satisfies the
// predicate. A page with no entries does not count as complete; only the
// discovery stage can vouch for pages it has actually scraped.
func (c *Cursor) PageComplete(page int) bool {
	found := false
	for _, entry := range c.store.entries {
		if entry.Page != page {
			continue
		}
		found = true
		if !c.done(entry) {
			return false
		}
	}
	return found
}

// SyncPages reconciles the skip-set with the predicate after a sweep: pages
// whose entries are all done get marked, marked pages with a pending entry
// get unmarked so the next run revisits them. Returns the pages added to and
// removed from the skip-set, ascending.
func (c *Cursor) SyncPages() (added, removed []int) {
	pages := make(map[int]bool)
	for _, entry := range c.store.entries {
		complete, seen := pages[entry.Page]
		if !seen {
			complete = true
		}
		pages[entry.Page] = complete && c.done(entry)
	}

	for page, complete := range pages {
		marked := c.store.PageProcessed(page)
		switch {
		case complete && !marked:
			c.store.MarkPageProcessed(page)
			added = append(added, page)
		case !complete && marked:
			c.store.UnmarkPageProcessed(page)
			removed = append(removed, page)
		}
	}
	sort.Ints(added)
	sort.Ints(removed)
	return added, removed
}
