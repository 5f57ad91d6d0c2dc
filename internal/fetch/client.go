package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/xeb/voxcatalog/internal/logging"
	"github.com/xeb/voxcatalog/internal/services"
)

// ErrNotFound marks a 404 response. Pagination uses it to detect the end of
// the listing.
var ErrNotFound = errors.New("resource not found")

// Options configures a client.
type Options struct {
	UserAgent string
	Timeout   time.Duration
	// Delay is the politeness pause inserted before every request after the
	// first.
	Delay  time.Duration
	Logger *slog.Logger
	// HTTPClient overrides the underlying client, used by tests to inject a
	// mock transport.
	HTTPClient *http.Client
}

// Client fetches pages and streams asset downloads.
type Client struct {
	httpClient  *http.Client
	userAgent   string
	delay       time.Duration
	logger      *slog.Logger
	lastRequest time.Time
}

// NewClient returns a client with the given options.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{
		httpClient: httpClient,
		userAgent:  opts.UserAgent,
		delay:      opts.Delay,
		logger:     logging.NewComponentLogger(logger, "fetch"),
	}
}

// Page fetches pageURL and parses it into a document.
func (c *Client) Page(ctx context.Context, pageURL string) (*goquery.Document, error) {
	body, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, services.Wrap(services.ErrPermanent, "fetch", "parse", pageURL, err)
	}
	return doc, nil
}

// Download streams assetURL to destPath. A partial file is removed on any
// failure so a retry starts clean.
func (c *Client) Download(ctx context.Context, assetURL, destPath string) error {
	body, err := c.get(ctx, assetURL)
	if err != nil {
		return err
	}
	defer body.Close()

	if dir := filepath.Dir(destPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return services.Wrap(services.ErrPermanent, "fetch", "download", "create asset directory", err)
		}
	}

	out, err := os.Create(destPath)
	if err != nil {
		return services.Wrap(services.ErrPermanent, "fetch", "download", "create file", err)
	}

	written, err := io.Copy(out, body)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(destPath)
		return services.Wrap(services.ErrTransient, "fetch", "download", "truncated stream", err)
	}

	c.logger.Debug("downloaded asset",
		logging.String("url", assetURL),
		logging.String("path", destPath),
		logging.Int64("bytes", written))
	return nil
}

func (c *Client) get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrPermanent, "fetch", "get", rawURL, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
			return nil, services.Wrap(services.ErrTimeout, "fetch", "get", rawURL, err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.Wrap(services.ErrTransient, "fetch", "get", rawURL, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return resp.Body, nil
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, services.Wrap(services.ErrPermanent, "fetch", "get", rawURL, ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		resp.Body.Close()
		return nil, services.Wrap(services.ErrTransient, "fetch", "get", fmt.Sprintf("%s: status %d", rawURL, resp.StatusCode), nil)
	default:
		resp.Body.Close()
		return nil, services.Wrap(services.ErrPermanent, "fetch", "get", fmt.Sprintf("%s: status %d", rawURL, resp.StatusCode), nil)
	}
}

func (c *Client) throttle(ctx context.Context) error {
	if c.delay <= 0 || c.lastRequest.IsZero() {
		c.lastRequest = time.Now()
		return nil
	}
	wait := c.delay - time.Since(c.lastRequest)
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	c.lastRequest = time.Now()
	return nil
}

// MissingPage reports whether a successfully fetched document is really an
// error page. Some hosts serve their 404 content with a 200 status, so
// pagination cannot rely on status codes alone.
func MissingPage(doc *goquery.Document) bool {
	title := strings.ToLower(doc.Find("title").First().Text())
	if strings.Contains(title, "page not found") || strings.HasPrefix(strings.TrimSpace(title), "404") {
		return true
	}
	body := strings.ToLower(doc.Find("body").Text())
	if strings.Contains(body, "page not found") || strings.Contains(body, "404 error") {
		return true
	}
	return strings.Contains(body, "not found") && strings.Contains(body, "error")
}
