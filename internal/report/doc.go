// Package report aggregates the catalog into summary statistics: counts and
// coverage ratios, audio size and duration totals, transcript text analysis
// with a token estimate, series breakdowns, and a transcription cost estimate
// at a configured hourly rate. It is strictly read-only over the catalog; the
// probe stage owns metadata acquisition.
package report
