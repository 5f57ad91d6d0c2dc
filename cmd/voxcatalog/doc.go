// Command voxcatalog crawls a paginated podcast listing and builds a local
// catalog: episode pages, audio assets, ffprobe metadata, speaker-labeled
// transcripts, LLM series grouping, statistics, and a CSV export. Every stage
// resumes from the shared snapshot, so interrupted runs pick up where they
// stopped.
package main
