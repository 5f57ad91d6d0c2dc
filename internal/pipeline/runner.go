package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/xeb/voxcatalog/internal/catalog"
	"github.com/xeb/voxcatalog/internal/logging"
	"github.com/xeb/voxcatalog/internal/services"
)

// ProcessFunc handles one pending entry: it makes exactly one external
// collaborator call and returns only the fields it computed. Failures are
// classified with the services sentinels.
type ProcessFunc func(ctx context.Context, entry catalog.Entry) (catalog.FieldUpdate, error)

// Stage couples a completion predicate with a unit processor.
type Stage struct {
	Name    string
	Done    catalog.Predicate
	Process ProcessFunc
	// SyncPages keeps the processed-pages skip-set aligned with Done after
	// the sweep. Only the discovery predicate owns the skip-set.
	SyncPages bool
}

// Summary reports the outcome of one stage sweep.
type Summary struct {
	Stage     string
	Pending   int
	Processed int
	Skipped   int
	Failed    int
}

// Options tunes retry and progress behavior for a runner.
type Options struct {
	MaxRetries   int
	RetryBackoff time.Duration
	// Progress enables a terminal progress bar; ignored when stderr is not a
	// TTY.
	Progress bool
}

// Runner executes stage sweeps over a single catalog store.
type Runner struct {
	store  *catalog.Store
	logger *slog.Logger
	opts   Options
}

// NewRunner returns a runner bound to store.
func NewRunner(store *catalog.Store, logger *slog.Logger, opts Options) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Runner{store: store, logger: logger, opts: opts}
}

// Run sweeps one stage: pending entries in discovery order, merge then
// persist after every successful unit, skip and record on failure. A unit's
// failure never aborts the sweep; configuration errors and store-level
// failures do.
func (r *Runner) Run(ctx context.Context, stage Stage) (Summary, error) {
	cursor := catalog.NewCursor(r.store, stage.Done)
	pending := cursor.Pending()

	summary := Summary{
		Stage:   stage.Name,
		Pending: len(pending),
		Skipped: r.store.Len() - len(pending),
	}

	stageLogger := logging.NewComponentLogger(r.logger, stage.Name)
	stageLogger.Info("stage started",
		logging.Int("pending", summary.Pending),
		logging.Int("already_done", summary.Skipped))

	bar := r.newProgressBar(len(pending), stage.Name)

	for _, entry := range pending {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		unitCtx := services.WithStage(ctx, stage.Name)
		unitCtx = services.WithEntryKey(unitCtx, entry.Key())
		unitLogger := logging.WithContext(unitCtx, stageLogger)

		update, err := r.processWithRetry(unitCtx, unitLogger, stage, entry)
		if err != nil {
			if services.Fatal(err) {
				return summary, err
			}
			summary.Failed++
			unitLogger.Warn("unit failed, leaving pending",
				logging.Error(err),
				logging.Bool("retryable_next_run", true))
			advance(bar)
			continue
		}

		if !update.IsZero() {
			if err := r.store.Merge(entry.Key(), update); err != nil {
				return summary, fmt.Errorf("merge %s: %w", entry.Key(), err)
			}
			if err := r.store.Persist(); err != nil {
				return summary, fmt.Errorf("persist after %s: %w", entry.Key(), err)
			}
		}
		summary.Processed++
		advance(bar)
	}
	finish(bar)

	if stage.SyncPages {
		added, removed := cursor.SyncPages()
		if len(added) > 0 || len(removed) > 0 {
			if err := r.store.Persist(); err != nil {
				return summary, fmt.Errorf("persist skip-set: %w", err)
			}
			stageLogger.Debug("skip-set updated",
				logging.Any("marked", added),
				logging.Any("revisit", removed))
		}
	}

	stageLogger.Info("stage finished",
		logging.Int("processed", summary.Processed),
		logging.Int("failed", summary.Failed),
		logging.Int("already_done", summary.Skipped))
	return summary, nil
}

func (r *Runner) processWithRetry(ctx context.Context, logger *slog.Logger, stage Stage, entry catalog.Entry) (catalog.FieldUpdate, error) {
	var lastErr error
	for attempt := 0; attempt <= r.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * r.opts.RetryBackoff
			logger.Debug("retrying unit",
				logging.Int("attempt", attempt+1),
				logging.Duration("backoff", delay))
			if err := sleepCtx(ctx, delay); err != nil {
				return catalog.FieldUpdate{}, err
			}
		}

		update, err := stage.Process(ctx, entry)
		if err == nil {
			return update, nil
		}
		lastErr = err
		if !services.Retryable(err) || services.Fatal(err) {
			return catalog.FieldUpdate{}, err
		}
	}
	return catalog.FieldUpdate{}, lastErr
}

func (r *Runner) newProgressBar(total int, name string) *progressbar.ProgressBar {
	if !r.opts.Progress || total == 0 {
		return nil
	}
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(name),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func advance(bar *progressbar.ProgressBar) {
	if bar != nil {
		_ = bar.Add(1)
	}
}

func finish(bar *progressbar.ProgressBar) {
	if bar != nil {
		_ = bar.Finish()
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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

// RunAll drives stages strictly in sequence, stopping at the first fatal
// error. Unit-level failures inside a stage do not stop the sequence.
func (r *Runner) RunAll(ctx context.Context, stages []Stage) ([]Summary, error) {
	summaries := make([]Summary, 0, len(stages))
	for _, stage := range stages {
		summary, err := r.Run(ctx, stage)
		summaries = append(summaries, summary)
		if err != nil {
			return summaries, err
		}
	}
	return summaries, nil
}
