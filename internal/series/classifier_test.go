package series

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"

	"github.com/xeb/voxcatalog/internal/catalog"
	"github.com/xeb/voxcatalog/internal/services"
)

const classifierBase = "https://llm.example.com"

func newMockClassifierClient(t *testing.T) (*Client, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	client := NewClient(Config{
		APIKey:  "key",
		BaseURL: classifierBase,
		Model:   "test-model",
	}, WithHTTPClient(&http.Client{Transport: transport}))
	return client, transport
}

func mockChatResponse(decision Decision) (*http.Response, error) {
	content, _ := json.Marshal(decision)
	return httpmock.NewJsonResponse(200, map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": string(content)}},
		},
	})
}

// newCatalogFixture builds a store with transcribed entries whose transcript
// files exist on disk, returning the store and the assignment keys in order.
func newCatalogFixture(t *testing.T, titles ...string) (*catalog.Store, []string) {
	t.Helper()
	dir := t.TempDir()
	store, err := catalog.Open(filepath.Join(dir, "episodes.json"), nil)
	if err != nil {
		t.Fatalf("catalog.Open() error = %v", err)
	}
	var keys []string
	for i, title := range titles {
		slug := strings.ToLower(strings.ReplaceAll(title, " ", "-"))
		transcript := filepath.Join(dir, slug+"-transcript.txt")
		body := "# Transcription: " + title + "\n[00:00 - 00:10] SPEAKER_A: This is " + title + ".\n"
		if err := os.WriteFile(transcript, []byte(body), 0o644); err != nil {
			t.Fatalf("write transcript: %v", err)
		}
		entry := catalog.Entry{
			URL:                   "https://pod.example.com/episodes/" + slug,
			Page:                  i + 1,
			Title:                 title,
			FilePath:              filepath.Join(dir, slug+".mp3"),
			TranscriptionFilePath: transcript,
		}
		if _, err := store.Insert(entry); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		keys = append(keys, entry.AssignmentKey())
	}
	return store, keys
}

func TestClassifierGroupsAndMarksIndependent(t *testing.T) {
	client, transport := newMockClassifierClient(t)
	store, keys := newCatalogFixture(t, "Dive One", "Standalone Chat")
	path := filepath.Join(t.TempDir(), "series.json")
	assignment, err := LoadAssignment(path, nil)
	if err != nil {
		t.Fatalf("LoadAssignment() error = %v", err)
	}

	calls := 0
	transport.RegisterResponder("POST", classifierBase+"/chat/completions",
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				return mockChatResponse(Decision{SeriesName: "Deep Dive", EpisodeNumber: 1})
			}
			return mockChatResponse(Decision{SeriesName: Ungrouped})
		})

	classifier := NewClassifier(client, store, assignment, nil, Options{})
	summary, err := classifier.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Classified != 2 || summary.Grouped != 1 || summary.Ungrouped != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if assignment.Group("Deep Dive")[1] != keys[0] {
		t.Fatalf("Group(Deep Dive) = %v, want %s at 1", assignment.Group("Deep Dive"), keys[0])
	}
	if got := assignment.UngroupedKeys(); len(got) != 1 || got[0] != keys[1] {
		t.Fatalf("UngroupedKeys() = %v, want [%s]", got, keys[1])
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("assignment not persisted: %v", err)
	}
}

func TestClassifierSkipsAssignedEpisodes(t *testing.T) {
	client, transport := newMockClassifierClient(t)
	store, keys := newCatalogFixture(t, "Dive One", "Dive Two")
	assignment, err := LoadAssignment(filepath.Join(t.TempDir(), "series.json"), nil)
	if err != nil {
		t.Fatalf("LoadAssignment() error = %v", err)
	}
	if err := assignment.AssignGroup("Deep Dive", 1, keys[0]); err != nil {
		t.Fatalf("AssignGroup() error = %v", err)
	}

	transport.RegisterResponder("POST", classifierBase+"/chat/completions",
		func(req *http.Request) (*http.Response, error) {
			return mockChatResponse(Decision{SeriesName: "Deep Dive", EpisodeNumber: 2})
		})

	summary, err := NewClassifier(client, store, assignment, nil, Options{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Skipped != 1 || summary.Classified != 1 {
		t.Fatalf("summary = %+v, want 1 skipped and 1 classified", summary)
	}
	if transport.GetTotalCallCount() != 1 {
		t.Fatalf("provider called %d times, want 1", transport.GetTotalCallCount())
	}
}

func TestClassifierConflictRoutesToUngrouped(t *testing.T) {
	client, transport := newMockClassifierClient(t)
	store, keys := newCatalogFixture(t, "Latecomer")
	assignment, err := LoadAssignment(filepath.Join(t.TempDir(), "series.json"), nil)
	if err != nil {
		t.Fatalf("LoadAssignment() error = %v", err)
	}
	if err := assignment.AssignGroup("Deep Dive", 1, "earlier.mp3"); err != nil {
		t.Fatalf("AssignGroup() error = %v", err)
	}

	transport.RegisterResponder("POST", classifierBase+"/chat/completions",
		func(req *http.Request) (*http.Response, error) {
			return mockChatResponse(Decision{SeriesName: "Deep Dive", EpisodeNumber: 1})
		})

	summary, err := NewClassifier(client, store, assignment, nil, Options{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Ungrouped != 1 || summary.Grouped != 0 {
		t.Fatalf("summary = %+v, want the conflicting episode ungrouped", summary)
	}
	if assignment.Group("Deep Dive")[1] != "earlier.mp3" {
		t.Fatalf("conflict overwrote the original position holder")
	}
	if got := assignment.UngroupedKeys(); len(got) != 1 || got[0] != keys[0] {
		t.Fatalf("UngroupedKeys() = %v, want [%s]", got, keys[0])
	}
}

func TestClassifierPromptCarriesPreviousTranscript(t *testing.T) {
	client, transport := newMockClassifierClient(t)
	store, _ := newCatalogFixture(t, "Opening Act", "Second Show")
	assignment, err := LoadAssignment(filepath.Join(t.TempDir(), "series.json"), nil)
	if err != nil {
		t.Fatalf("LoadAssignment() error = %v", err)
	}

	var prompts []string
	transport.RegisterResponder("POST", classifierBase+"/chat/completions",
		func(req *http.Request) (*http.Response, error) {
			body, _ := io.ReadAll(req.Body)
			var payload struct {
				Messages []struct {
					Role    string `json:"role"`
					Content string `json:"content"`
				} `json:"messages"`
				Temperature    float64           `json:"temperature"`
				ResponseFormat map[string]string `json:"response_format"`
			}
			if err := json.Unmarshal(body, &payload); err != nil {
				t.Errorf("decode request: %v", err)
			}
			if payload.Temperature != 0 {
				t.Errorf("temperature = %v, want 0", payload.Temperature)
			}
			if payload.ResponseFormat["type"] != "json_object" {
				t.Errorf("response_format = %v", payload.ResponseFormat)
			}
			for _, msg := range payload.Messages {
				if msg.Role == "user" {
					prompts = append(prompts, msg.Content)
				}
			}
			return mockChatResponse(Decision{SeriesName: Ungrouped})
		})

	if _, err := NewClassifier(client, store, assignment, nil, Options{}).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(prompts) != 2 {
		t.Fatalf("captured %d prompts, want 2", len(prompts))
	}
	if !strings.Contains(prompts[0], "No previous episode transcription available") {
		t.Fatalf("first prompt should declare no previous transcript:\n%s", prompts[0])
	}
	if !strings.Contains(prompts[1], "This is Opening Act.") {
		t.Fatalf("second prompt missing previous transcript excerpt:\n%s", prompts[1])
	}
	if !strings.Contains(prompts[1], "- Title: Second Show") {
		t.Fatalf("prompt missing episode metadata:\n%s", prompts[1])
	}
}

func TestClassifierMissingKeyAborts(t *testing.T) {
	transport := httpmock.NewMockTransport()
	client := NewClient(Config{BaseURL: classifierBase}, WithHTTPClient(&http.Client{Transport: transport}))
	store, _ := newCatalogFixture(t, "Any Episode")
	assignment, err := LoadAssignment(filepath.Join(t.TempDir(), "series.json"), nil)
	if err != nil {
		t.Fatalf("LoadAssignment() error = %v", err)
	}

	_, err = NewClassifier(client, store, assignment, nil, Options{}).Run(context.Background())
	if err == nil || !services.Fatal(err) {
		t.Fatalf("Run() error = %v, want fatal configuration error", err)
	}
}

func TestClassifierRetriesTransientFailures(t *testing.T) {
	client, transport := newMockClassifierClient(t)
	store, keys := newCatalogFixture(t, "Flaky Episode")
	assignment, err := LoadAssignment(filepath.Join(t.TempDir(), "series.json"), nil)
	if err != nil {
		t.Fatalf("LoadAssignment() error = %v", err)
	}

	calls := 0
	transport.RegisterResponder("POST", classifierBase+"/chat/completions",
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls < 3 {
				return httpmock.NewStringResponse(503, "upstream unavailable"), nil
			}
			return mockChatResponse(Decision{SeriesName: "Deep Dive", EpisodeNumber: 1})
		})

	summary, err := NewClassifier(client, store, assignment, nil, Options{MaxRetries: 3, RetryBackoff: 1}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if calls != 3 {
		t.Fatalf("provider called %d times, want 3", calls)
	}
	if summary.Grouped != 1 || assignment.Group("Deep Dive")[1] != keys[0] {
		t.Fatalf("retried classification not applied: summary = %+v", summary)
	}
}

func TestDecodeDecisionToleratesFences(t *testing.T) {
	content := "```json\n{\"series_name\": \"Deep Dive\", \"episode_number_in_series\": 3}\n```"
	var decision Decision
	if err := decodeDecision(content, &decision); err != nil {
		t.Fatalf("decodeDecision() error = %v", err)
	}
	if decision.SeriesName != "Deep Dive" || decision.EpisodeNumber != 3 {
		t.Fatalf("decodeDecision() = %+v", decision)
	}
}

func TestDecisionIndependent(t *testing.T) {
	cases := []struct {
		decision Decision
		want     bool
	}{
		{Decision{SeriesName: "INDEPENDENT"}, true},
		{Decision{SeriesName: "independent"}, true},
		{Decision{SeriesName: "  "}, true},
		{Decision{SeriesName: "Deep Dive", EpisodeNumber: 1}, false},
	}
	for _, tc := range cases {
		if got := tc.decision.Independent(); got != tc.want {
			t.Errorf("Independent(%q) = %v, want %v", tc.decision.SeriesName, got, tc.want)
		}
	}
}
