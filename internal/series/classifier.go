package series

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/xeb/voxcatalog/internal/catalog"
	"github.com/xeb/voxcatalog/internal/logging"
	"github.com/xeb/voxcatalog/internal/services"
)

// Options tunes one classification sweep.
type Options struct {
	// MaxRetries is the number of extra attempts after a retryable failure.
	MaxRetries int
	// RetryBackoff scales linearly with the attempt number.
	RetryBackoff time.Duration
	// ExcerptBytes caps the transcript excerpt included in each prompt.
	ExcerptBytes int
}

// Summary reports the outcome of one classification sweep.
type Summary struct {
	Candidates int
	Classified int
	Grouped    int
	Ungrouped  int
	Skipped    int
	Failed     int
}

// Classifier walks transcribed episodes in page order and asks the provider
// to place each one. Decisions are saved as they are made, so an interrupted
// sweep resumes where it left off.
type Classifier struct {
	client     *Client
	store      *catalog.Store
	assignment *Assignment
	logger     *slog.Logger
	opts       Options
}

// NewClassifier builds a classifier over the given catalog and assignment.
func NewClassifier(client *Client, store *catalog.Store, assignment *Assignment, logger *slog.Logger, opts Options) *Classifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.ExcerptBytes <= 0 {
		opts.ExcerptBytes = 8000
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = time.Second
	}
	return &Classifier{
		client:     client,
		store:      store,
		assignment: assignment,
		logger:     logging.NewComponentLogger(logger, "series"),
		opts:       opts,
	}
}

// Run classifies every transcribed episode not yet present in the assignment.
// The comparison window for each episode is its predecessor in page order.
// Per-episode failures are logged and counted; only configuration errors
// abort the sweep.
func (c *Classifier) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	candidates := transcribedInPageOrder(c.store.Entries())
	summary.Candidates = len(candidates)
	c.logger.Info("series classification sweep starting",
		logging.Int("candidate_count", len(candidates)),
		logging.Int("assigned_count", c.assignment.Len()))

	for i, entry := range candidates {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		key := entry.AssignmentKey()
		entryCtx := services.WithEntryKey(services.WithStage(ctx, "series"), entry.Key())
		log := logging.WithContext(entryCtx, c.logger)

		if name, _, assigned := c.assignment.Contains(key); assigned {
			log.Debug("episode already assigned", logging.String("series", name))
			summary.Skipped++
			continue
		}

		decision, err := c.classifyWithRetry(entryCtx, entry, previousOf(candidates, i))
		if err != nil {
			if services.Fatal(err) {
				return summary, err
			}
			log.Warn("episode classification failed", logging.Error(err))
			summary.Failed++
			continue
		}

		if err := c.apply(log, key, decision, &summary); err != nil {
			return summary, err
		}
		summary.Classified++
	}

	c.logger.Info("series classification sweep finished",
		logging.Int("classified", summary.Classified),
		logging.Int("grouped", summary.Grouped),
		logging.Int("ungrouped", summary.Ungrouped),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed))
	return summary, nil
}

func (c *Classifier) classifyWithRetry(ctx context.Context, entry catalog.Entry, previous *catalog.Entry) (Decision, error) {
	excerpt, err := ReadExcerpt(entry.TranscriptionFilePath, c.opts.ExcerptBytes)
	if err != nil {
		return Decision{}, services.Wrap(services.ErrPermanent, "series", "classify",
			"transcript file is unreadable", err)
	}
	var previousExcerpt string
	if previous != nil {
		if text, err := ReadExcerpt(previous.TranscriptionFilePath, c.opts.ExcerptBytes); err == nil {
			previousExcerpt = text
		}
	}
	prompt := BuildPrompt(PromptInput{
		Entry:           entry,
		Excerpt:         excerpt,
		PreviousExcerpt: previousExcerpt,
		AssignmentJSON:  c.assignment.JSONSummary(),
	})

	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, time.Duration(attempt)*c.opts.RetryBackoff); err != nil {
				return Decision{}, err
			}
		}
		decision, err := c.client.Classify(ctx, prompt)
		if err == nil {
			return decision, nil
		}
		lastErr = err
		if !services.Retryable(err) {
			break
		}
	}
	return Decision{}, lastErr
}

// apply records one decision and persists the assignment. A position conflict
// inside a named series is resolved by routing the episode to the ungrouped
// bucket; the provider's verdict never overwrites an earlier one.
func (c *Classifier) apply(log *slog.Logger, key string, decision Decision, summary *Summary) error {
	switch {
	case decision.Independent() || decision.EpisodeNumber <= 0:
		c.assignment.AssignUngrouped(key)
		summary.Ungrouped++
		log.Info("episode marked independent")
	default:
		err := c.assignment.AssignGroup(decision.SeriesName, decision.EpisodeNumber, key)
		if err != nil {
			log.Warn("series position conflict, keeping episode independent",
				logging.String("series", decision.SeriesName),
				logging.Int("position", decision.EpisodeNumber),
				logging.Error(err))
			c.assignment.AssignUngrouped(key)
			summary.Ungrouped++
			break
		}
		summary.Grouped++
		log.Info("episode assigned to series",
			logging.String("series", decision.SeriesName),
			logging.Int("position", decision.EpisodeNumber))
	}
	return c.assignment.Save()
}

// transcribedInPageOrder filters entries with a transcript on disk, sorted by
// listing page. The sort is stable so entries on the same page keep their
// discovery order.
func transcribedInPageOrder(entries []catalog.Entry) []catalog.Entry {
	var out []catalog.Entry
	for _, e := range entries {
		if e.TranscriptionFilePath == "" {
			continue
		}
		if _, err := os.Stat(e.TranscriptionFilePath); err != nil {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Page < out[j].Page })
	return out
}

func previousOf(entries []catalog.Entry, i int) *catalog.Entry {
	if i <= 0 {
		return nil
	}
	return &entries[i-1]
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
