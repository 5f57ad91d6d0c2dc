package config

import (
	"fmt"
	"strings"
)

// normalize expands paths and canonicalizes string fields after decoding.
func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("data_dir: %w", err)
	}
	if c.Paths.AssetDir, err = expandPath(c.Paths.AssetDir); err != nil {
		return fmt.Errorf("asset_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("log_dir: %w", err)
	}

	c.Source.BaseURL = strings.TrimSpace(c.Source.BaseURL)
	c.Source.UserAgent = strings.TrimSpace(c.Source.UserAgent)
	if c.Source.UserAgent == "" {
		c.Source.UserAgent = defaultUserAgent
	}

	c.Transcriber.BaseURL = strings.TrimRight(strings.TrimSpace(c.Transcriber.BaseURL), "/")
	c.Transcriber.Language = strings.TrimSpace(c.Transcriber.Language)
	c.Classifier.BaseURL = strings.TrimRight(strings.TrimSpace(c.Classifier.BaseURL), "/")
	c.Classifier.Model = strings.TrimSpace(c.Classifier.Model)

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	if c.Classifier.ExcerptBytes <= 0 {
		c.Classifier.ExcerptBytes = 8000
	}
	if c.Transcriber.PollInterval <= 0 {
		c.Transcriber.PollInterval = 5
	}
	if c.Pipeline.MaxRetries < 0 {
		c.Pipeline.MaxRetries = 0
	}
	if c.Pipeline.RetryBackoff < 0 {
		c.Pipeline.RetryBackoff = 0
	}
	return nil
}
