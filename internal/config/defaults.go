package config

// Default returns the repository default configuration. Paths are expanded
// during normalize.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  "~/.local/share/voxcatalog",
			AssetDir: "~/.local/share/voxcatalog/catalog",
			LogDir:   "~/.local/share/voxcatalog/logs",
		},
		Source: Source{
			BaseURL:        "https://www.voxologypodcast.com/episodes/",
			MaxPages:       23,
			RequestTimeout: 15,
			RequestDelay:   1,
			DownloadDelay:  2,
			UserAgent:      defaultUserAgent,
		},
		Transcriber: Transcriber{
			APIKeyFile:     "~/.ssh/assemblyai.txt",
			BaseURL:        "https://api.assemblyai.com",
			Language:       "en",
			PollInterval:   5,
			RequestTimeout: 30,
		},
		Classifier: Classifier{
			APIKeyFile:     "~/.ssh/classifier_api_key.txt",
			BaseURL:        "https://api.deepseek.com",
			Model:          "deepseek-chat",
			TimeoutSeconds: 120,
			ExcerptBytes:   8000,
		},
		Costs: Costs{
			TranscriptionRatePerHour: 0.12,
		},
		Pipeline: Pipeline{
			MaxRetries:   2,
			RetryBackoff: 5,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}

// Sites behind CDNs reject requests without a browser user agent.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
