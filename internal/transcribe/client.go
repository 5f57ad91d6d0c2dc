package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/xeb/voxcatalog/internal/services"
)

const (
	defaultHTTPTimeout  = 30 * time.Second
	defaultPollInterval = 5 * time.Second
)

// Config captures the runtime settings required to talk to the transcription
// provider.
type Config struct {
	APIKey         string
	BaseURL        string
	Language       string
	PollInterval   time.Duration
	TimeoutSeconds int
}

// Client wraps the provider's upload/submit/poll REST API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	poll       time.Duration
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a transcription client from the supplied
// configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	client := &Client{
		cfg: Config{
			APIKey:   strings.TrimSpace(cfg.APIKey),
			BaseURL:  strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Language: strings.TrimSpace(cfg.Language),
		},
		httpClient: &http.Client{Timeout: timeout},
		poll:       poll,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Utterance is one speaker-labeled span. Start and End are milliseconds.
type Utterance struct {
	Speaker string `json:"speaker"`
	Start   int64  `json:"start"`
	End     int64  `json:"end"`
	Text    string `json:"text"`
}

// Transcript is the provider's job state plus its results once completed.
type Transcript struct {
	ID         string      `json:"id"`
	Status     string      `json:"status"`
	Error      string      `json:"error"`
	Text       string      `json:"text"`
	Utterances []Utterance `json:"utterances"`
}

// Transcribe uploads the file at path, submits a speaker-labeled
// transcription job, and polls until the provider finishes.
func (c *Client) Transcribe(ctx context.Context, path string) (Transcript, error) {
	if c.cfg.APIKey == "" {
		return Transcript{}, services.Wrap(services.ErrConfiguration, "transcribe", "credentials",
			"transcription api key required", nil)
	}

	uploadURL, err := c.upload(ctx, path)
	if err != nil {
		return Transcript{}, err
	}
	id, err := c.submit(ctx, uploadURL)
	if err != nil {
		return Transcript{}, err
	}
	return c.await(ctx, id)
}

func (c *Client) upload(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", services.Wrap(services.ErrPermanent, "transcribe", "upload", path, err)
	}
	defer file.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v2/upload", file)
	if err != nil {
		return "", services.Wrap(services.ErrPermanent, "transcribe", "upload", "build request", err)
	}
	req.Header.Set("Authorization", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	var payload struct {
		UploadURL string `json:"upload_url"`
	}
	if err := c.do(req, "upload", &payload); err != nil {
		return "", err
	}
	if payload.UploadURL == "" {
		return "", services.Wrap(services.ErrPermanent, "transcribe", "upload", "no upload_url in response", nil)
	}
	return payload.UploadURL, nil
}

func (c *Client) submit(ctx context.Context, audioURL string) (string, error) {
	body := map[string]any{
		"audio_url":      audioURL,
		"speaker_labels": true,
		"punctuate":      true,
		"format_text":    true,
	}
	if c.cfg.Language != "" {
		body["language_code"] = c.cfg.Language
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return "", services.Wrap(services.ErrPermanent, "transcribe", "submit", "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v2/transcript", bytes.NewReader(encoded))
	if err != nil {
		return "", services.Wrap(services.ErrPermanent, "transcribe", "submit", "build request", err)
	}
	req.Header.Set("Authorization", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	var payload Transcript
	if err := c.do(req, "submit", &payload); err != nil {
		return "", err
	}
	if payload.ID == "" {
		return "", services.Wrap(services.ErrPermanent, "transcribe", "submit", "no job id in response", nil)
	}
	return payload.ID, nil
}

func (c *Client) await(ctx context.Context, id string) (Transcript, error) {
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v2/transcript/"+id, nil)
		if err != nil {
			return Transcript{}, services.Wrap(services.ErrPermanent, "transcribe", "poll", "build request", err)
		}
		req.Header.Set("Authorization", c.cfg.APIKey)

		var payload Transcript
		if err := c.do(req, "poll", &payload); err != nil {
			return Transcript{}, err
		}

		switch payload.Status {
		case "completed":
			return payload, nil
		case "error":
			return Transcript{}, services.Wrap(services.ErrPermanent, "transcribe", "poll",
				fmt.Sprintf("job %s failed: %s", id, payload.Error), nil)
		}

		timer := time.NewTimer(c.poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Transcript{}, ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Client) do(req *http.Request, operation string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
			return services.Wrap(services.ErrTimeout, "transcribe", operation, req.URL.Path, err)
		}
		return services.Wrap(services.ErrTransient, "transcribe", operation, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return services.Wrap(services.ErrTransient, "transcribe", operation, "read response", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return services.Wrap(services.ErrTransient, "transcribe", operation,
			fmt.Sprintf("status %d: %s", resp.StatusCode, summarize(body)), nil)
	default:
		return services.Wrap(services.ErrPermanent, "transcribe", operation,
			fmt.Sprintf("status %d: %s", resp.StatusCode, summarize(body)), nil)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return services.Wrap(services.ErrPermanent, "transcribe", operation, "decode response", err)
	}
	return nil
}

func summarize(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	return text
}
