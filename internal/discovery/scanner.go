package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeb/voxcatalog/internal/catalog"
	"github.com/xeb/voxcatalog/internal/fetch"
	"github.com/xeb/voxcatalog/internal/logging"
	"github.com/xeb/voxcatalog/internal/services"
)

// maxConsecutiveFailures ends pagination once this many pages in a row fail
// or look missing.
const maxConsecutiveFailures = 3

// Scanner sweeps the paginated listing and inserts newly discovered entries.
type Scanner struct {
	client   *fetch.Client
	store    *catalog.Store
	logger   *slog.Logger
	baseURL  string
	maxPages int
}

// ScanResult summarizes one listing sweep.
type ScanResult struct {
	PagesFetched int
	PagesSkipped int
	EntriesAdded int
}

// NewScanner returns a scanner over the listing at baseURL.
func NewScanner(client *fetch.Client, store *catalog.Store, logger *slog.Logger, baseURL string, maxPages int) *Scanner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scanner{
		client:   client,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "discover"),
		baseURL:  baseURL,
		maxPages: maxPages,
	}
}

// Scan fetches listing pages in order, skipping pages already in the
// skip-set, and persists after every scraped page. Scanning stops at an empty
// page, a missing page past the first, or too many consecutive failures.
func (s *Scanner) Scan(ctx context.Context) (ScanResult, error) {
	var result ScanResult
	failures := 0

	for page := 1; page <= s.maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if s.store.PageProcessed(page) {
			result.PagesSkipped++
			continue
		}

		pageURL := s.pageURL(page)
		pageLogger := s.logger.With(logging.Int(logging.FieldPage, page))

		doc, err := s.client.Page(ctx, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			if errors.Is(err, fetch.ErrNotFound) {
				pageLogger.Info("page not found, ending pagination")
				break
			}
			failures++
			pageLogger.Warn("page fetch failed",
				logging.Error(err),
				logging.Int("consecutive_failures", failures))
			if failures >= maxConsecutiveFailures {
				pageLogger.Warn("too many consecutive failures, stopping pagination")
				break
			}
			continue
		}
		result.PagesFetched++

		if fetch.MissingPage(doc) {
			failures++
			pageLogger.Info("page served 404 content",
				logging.Int("consecutive_failures", failures))
			if failures >= maxConsecutiveFailures {
				break
			}
			continue
		}
		failures = 0

		entries := ParseListing(doc, page, s.baseURL)
		if len(entries) == 0 {
			if page == 1 && s.store.Len() == 0 {
				return result, services.Wrap(services.ErrPermanent, "discover", "parse",
					"no episodes found on the first listing page", nil)
			}
			pageLogger.Info("no episodes on page, ending pagination")
			break
		}

		added := 0
		for _, entry := range entries {
			inserted, err := s.store.Insert(entry)
			if err != nil {
				pageLogger.Warn("skipping malformed entry", logging.Error(err))
				continue
			}
			if inserted {
				added++
			}
		}
		result.EntriesAdded += added

		if err := s.store.Persist(); err != nil {
			return result, fmt.Errorf("persist page %d: %w", page, err)
		}
		pageLogger.Info("page scraped",
			logging.Int("found", len(entries)),
			logging.Int("new", added))
	}

	s.logger.Info("listing scan finished",
		logging.Int("pages_fetched", result.PagesFetched),
		logging.Int("pages_skipped", result.PagesSkipped),
		logging.Int("entries_added", result.EntriesAdded))
	return result, nil
}

func (s *Scanner) pageURL(page int) string {
	if page == 1 {
		return s.baseURL
	}
	separator := "?"
	if strings.Contains(s.baseURL, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%spage=%d", s.baseURL, separator, page)
}
