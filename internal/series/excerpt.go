package series

import (
	"fmt"
	"os"
	"strings"
)

// ReadExcerpt loads a transcript file and returns its body truncated to at
// most limit bytes. Header and separator lines are dropped so the excerpt is
// pure dialogue.
func ReadExcerpt(path string, limit int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	return truncate(stripHeader(string(data)), limit), nil
}

func stripHeader(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "=") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func truncate(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	return text[:limit]
}
