package media

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/xeb/voxcatalog/internal/catalog"
)

func TestProbedPredicate(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "ep.mp3")
	if err := os.WriteFile(path, []byte("12345"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if Probed(catalog.Entry{FilePath: path}) {
		t.Fatal("entry without metadata must be pending")
	}
	entry := catalog.Entry{
		FilePath:      path,
		AudioMetadata: &catalog.AudioMetadata{FileSizeBytes: 5, DurationSeconds: 60},
	}
	if !Probed(entry) {
		t.Fatal("matching size should satisfy the predicate")
	}

	// Size drift invalidates the cache.
	if err := os.WriteFile(path, []byte("123456789"), 0o644); err != nil {
		t.Fatalf("rewrite fixture: %v", err)
	}
	if Probed(entry) {
		t.Fatal("stale size must force a re-probe")
	}

	entry.FilePath = filepath.Join(tmpDir, "gone.mp3")
	if Probed(entry) {
		t.Fatal("missing file must be pending")
	}
}

func TestProbeStageWithStubBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub binary is a shell script")
	}
	tmpDir := t.TempDir()

	asset := filepath.Join(tmpDir, "ep.mp3")
	if err := os.WriteFile(asset, []byte("audio-bytes"), 0o644); err != nil {
		t.Fatalf("write asset: %v", err)
	}

	stub := filepath.Join(tmpDir, "ffprobe")
	script := "#!/bin/sh\necho '{\"format\": {\"duration\": \"120.5\", \"size\": \"11\"}}'\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	stage := ProbeStage(stub)
	update, err := stage.Process(context.Background(), catalog.Entry{FilePath: asset})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if update.AudioMetadata == nil {
		t.Fatal("expected metadata update")
	}
	if update.AudioMetadata.DurationSeconds != 120.5 {
		t.Fatalf("unexpected duration: %v", update.AudioMetadata.DurationSeconds)
	}
	if update.AudioMetadata.FileSizeBytes != int64(len("audio-bytes")) {
		t.Fatalf("size must come from the file on disk, got %d", update.AudioMetadata.FileSizeBytes)
	}
	if update.AudioMetadata.AnalyzedDate == "" {
		t.Fatal("expected analyzed date")
	}
}

func TestProbeStageMissingFile(t *testing.T) {
	stage := ProbeStage("ffprobe")
	if _, err := stage.Process(context.Background(), catalog.Entry{FilePath: filepath.Join(t.TempDir(), "gone.mp3")}); err == nil {
		t.Fatal("expected failure for missing file")
	}
	if _, err := stage.Process(context.Background(), catalog.Entry{}); err == nil {
		t.Fatal("expected failure for entry without a file path")
	}
}
