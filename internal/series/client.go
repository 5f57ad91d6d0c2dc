package series

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
	defaultClassifierTimeout = 60 * time.Second
	jsonResponseType         = "json_object"
)

// Config captures the runtime settings for the classification provider. The
// provider speaks the OpenAI chat-completions dialect; BaseURL is the API
// root, without the /chat/completions suffix.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Client issues grouping decisions against a chat-completions endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
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

// NewClient constructs a classification client from the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultClassifierTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = "https://api.deepseek.com"
	}
	if client.cfg.Model == "" {
		client.cfg.Model = "deepseek-chat"
	}
	return client
}

// Decision is the JSON verdict returned by the provider for one episode.
type Decision struct {
	SeriesName    string `json:"series_name"`
	EpisodeNumber int    `json:"episode_number_in_series"`
}

// Independent reports whether the decision places the episode outside every
// named series.
func (d Decision) Independent() bool {
	name := strings.TrimSpace(d.SeriesName)
	return name == "" || strings.EqualFold(name, Ungrouped)
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Classify submits the prompt and decodes the provider's grouping verdict.
func (c *Client) Classify(ctx context.Context, userPrompt string) (Decision, error) {
	var empty Decision
	if c.cfg.APIKey == "" {
		return empty, services.Wrap(services.ErrConfiguration, "series", "classify",
			"classifier API key is not configured", nil)
	}
	if strings.TrimSpace(userPrompt) == "" {
		return empty, services.Wrap(services.ErrPermanent, "series", "classify",
			"empty classification prompt", nil)
	}

	payload := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:    0,
		ResponseFormat: map[string]string{"type": jsonResponseType},
	}
	content, err := c.complete(ctx, payload)
	if err != nil {
		return empty, err
	}

	var decision Decision
	if err := decodeDecision(content, &decision); err != nil {
		return empty, services.Wrap(services.ErrPermanent, "series", "classify",
			"provider returned an unparseable verdict", err)
	}
	decision.SeriesName = strings.TrimSpace(decision.SeriesName)
	return decision, nil
}

func (c *Client) complete(ctx context.Context, payload chatRequest) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", services.Wrap(services.ErrPermanent, "series", "classify", "encode request body", err)
	}
	endpoint := c.cfg.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", services.Wrap(services.ErrPermanent, "series", "classify", "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
			return "", services.Wrap(services.ErrTimeout, "series", "classify",
				fmt.Sprintf("request to %s timed out", endpoint), err)
		}
		return "", services.Wrap(services.ErrTransient, "series", "classify",
			fmt.Sprintf("request to %s failed", endpoint), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "series", "classify", "read response body", err)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return "", services.Wrap(services.ErrTransient, "series", "classify",
			fmt.Sprintf("provider returned HTTP %d", resp.StatusCode), errors.New(summarizeBody(body)))
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		return "", services.Wrap(services.ErrPermanent, "series", "classify",
			fmt.Sprintf("provider returned HTTP %d", resp.StatusCode), errors.New(summarizeBody(body)))
	}

	var completion chatResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", services.Wrap(services.ErrPermanent, "series", "classify", "decode response", err)
	}
	if completion.Error != nil {
		return "", services.Wrap(services.ErrPermanent, "series", "classify",
			"provider reported an error", errors.New(strings.TrimSpace(completion.Error.Message)))
	}
	for _, choice := range completion.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, nil
		}
	}
	return "", services.Wrap(services.ErrTransient, "series", "classify",
		"provider returned no content", nil)
}

// decodeDecision tolerates code fences and prose around the JSON object; some
// providers wrap the verdict even with response_format set.
func decodeDecision(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}
	if err := json.Unmarshal([]byte(trimmed), target); err == nil {
		return nil
	}
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			return json.Unmarshal([]byte(trimmed[start:end+1]), target)
		}
	}
	return fmt.Errorf("no JSON object in payload: %s", summarizeBody([]byte(trimmed)))
}

func summarizeBody(body []byte) string {
	text := strings.Join(strings.Fields(string(body)), " ")
	const limit = 200
	if len(text) > limit {
		return text[:limit] + "..."
	}
	if text == "" {
		return "<empty>"
	}
	return text
}
