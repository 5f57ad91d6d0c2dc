// Package catalog implements the shared catalog snapshot every pipeline
// stage reads and enriches.
//
// The snapshot is a single JSON document holding the ordered entry list, the
// coarse processed-pages skip-set, and an advisory last-updated timestamp.
// Stages merge partial field updates into entries by identity key and persist
// after every successfully processed unit; Persist writes the whole snapshot
// atomically via a temp file so an interruption never leaves a half-written
// snapshot behind.
//
// The cursor half of the package turns a stage's completion predicate into
// the ordered pending subset of entries and keeps the skip-set honest: a page
// belongs in the skip-set only while every entry discovered from it satisfies
// the predicate.
package catalog
