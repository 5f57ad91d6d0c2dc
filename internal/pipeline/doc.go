// Package pipeline runs one stage sweep over the catalog: it asks the stage's
// cursor for the pending entries, invokes the stage's unit processor on each
// one in discovery order, merges the returned field update, and persists the
// snapshot immediately so an interruption loses at most the in-flight unit.
//
// Unit failures are classified through the services sentinel taxonomy:
// transient failures get a bounded in-run retry with backoff, permanent ones
// are skipped and left pending for a future run. Only configuration errors
// and store corruption abort a sweep.
package pipeline
