package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks configuration invariants that can be verified without
// touching the network or credentials. Missing API keys are reported by the
// stages that need them so read-only commands keep working.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.AssetDir) == "" {
		problems = append(problems, "paths.asset_dir must not be empty")
	}

	if c.Source.BaseURL == "" {
		problems = append(problems, "source.base_url must not be empty")
	} else if parsed, err := url.Parse(c.Source.BaseURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		problems = append(problems, fmt.Sprintf("source.base_url %q is not an absolute URL", c.Source.BaseURL))
	}
	if c.Source.MaxPages <= 0 {
		problems = append(problems, "source.max_pages must be positive")
	}
	if c.Source.RequestTimeout <= 0 {
		problems = append(problems, "source.request_timeout must be positive")
	}
	if c.Source.RequestDelay < 0 || c.Source.DownloadDelay < 0 {
		problems = append(problems, "source delays must not be negative")
	}

	if c.Transcriber.RequestTimeout <= 0 {
		problems = append(problems, "transcriber.request_timeout must be positive")
	}
	if c.Classifier.TimeoutSeconds <= 0 {
		problems = append(problems, "classifier.timeout_seconds must be positive")
	}

	if c.Costs.TranscriptionRatePerHour < 0 {
		problems = append(problems, "costs.transcription_rate_per_hour must not be negative")
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q must be console or json", c.Logging.Format))
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
