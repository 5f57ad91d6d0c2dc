// Package series groups cataloged episodes into named series using an
// LLM-backed classification provider.
//
// The grouping assignment is a tagged variant persisted as series.json: the
// INDEPENDENT bucket is a plain list of entry keys, every named series is a
// position-numbered map. Legacy snapshots that stored INDEPENDENT as a
// numbered map are normalized to the list form once, on load. Each entry key
// lives in exactly one place across the whole assignment; a position conflict
// inside a named series is resolved conservatively by routing the entry to
// INDEPENDENT.
package series
