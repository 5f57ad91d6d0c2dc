package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	AssetDir string `toml:"asset_dir"`
	LogDir   string `toml:"log_dir"`
}

// Source describes the paginated episode listing being cataloged.
type Source struct {
	BaseURL        string `toml:"base_url"`
	MaxPages       int    `toml:"max_pages"`
	RequestTimeout int    `toml:"request_timeout"`
	RequestDelay   int    `toml:"request_delay"`
	DownloadDelay  int    `toml:"download_delay"`
	UserAgent      string `toml:"user_agent"`
}

// Transcriber contains configuration for the external transcription provider.
type Transcriber struct {
	APIKey         string `toml:"api_key"`
	APIKeyFile     string `toml:"api_key_file"`
	BaseURL        string `toml:"base_url"`
	Language       string `toml:"language"`
	PollInterval   int    `toml:"poll_interval"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Classifier contains configuration for the series classification provider.
type Classifier struct {
	APIKey         string `toml:"api_key"`
	APIKeyFile     string `toml:"api_key_file"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	ExcerptBytes   int    `toml:"excerpt_bytes"`
}

// Costs contains externally configured billing rates used by reporting.
type Costs struct {
	TranscriptionRatePerHour float64 `toml:"transcription_rate_per_hour"`
}

// Pipeline contains retry behavior for unit processing.
type Pipeline struct {
	MaxRetries   int `toml:"max_retries"`
	RetryBackoff int `toml:"retry_backoff"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for voxcatalog.
//
// Configuration sections by subsystem:
//   - Paths: data, asset, and log directories
//   - Source: listing base URL, pagination bounds, politeness delays
//   - Transcriber: transcription provider credentials and polling
//   - Classifier: series classification provider credentials and model
//   - Costs: per-hour transcription rate used for estimates
//   - Pipeline: per-unit retry counts and backoff
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Source      Source      `toml:"source"`
	Transcriber Transcriber `toml:"transcriber"`
	Classifier  Classifier  `toml:"classifier"`
	Costs       Costs       `toml:"costs"`
	Pipeline    Pipeline    `toml:"pipeline"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/voxcatalog/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a config file was actually found; running entirely on defaults is
// legal.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("voxcatalog.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories every stage expects to exist.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.AssetDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SnapshotPath returns the catalog snapshot location.
func (c *Config) SnapshotPath() string {
	return filepath.Join(c.Paths.DataDir, "episodes.json")
}

// SeriesPath returns the grouping assignment snapshot location.
func (c *Config) SeriesPath() string {
	return filepath.Join(c.Paths.DataDir, "series.json")
}

// StatsPath returns the statistics artifact location.
func (c *Config) StatsPath() string {
	return filepath.Join(c.Paths.DataDir, "stats.json")
}

// ExportPath returns the CSV export location.
func (c *Config) ExportPath() string {
	return filepath.Join(c.Paths.DataDir, "catalog.csv")
}

// LockPath returns the advisory run-lock location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "voxcatalog.lock")
}

// FFprobeBinary returns the ffprobe executable name used for media probing.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// TranscriberAPIKey resolves the transcription provider credential from the
// config value or the configured key file.
func (c *Config) TranscriberAPIKey() (string, error) {
	return resolveAPIKey(c.Transcriber.APIKey, c.Transcriber.APIKeyFile)
}

// ClassifierAPIKey resolves the classification provider credential from the
// config value or the configured key file.
func (c *Config) ClassifierAPIKey() (string, error) {
	return resolveAPIKey(c.Classifier.APIKey, c.Classifier.APIKeyFile)
}

func resolveAPIKey(value, file string) (string, error) {
	if key := strings.TrimSpace(value); key != "" {
		return key, nil
	}
	if strings.TrimSpace(file) == "" {
		return "", nil
	}
	path, err := expandPath(file)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read api key file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
