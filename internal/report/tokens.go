package report

import "strings"

// TranscriptText extracts the spoken text from a rendered transcript: header
// and separator lines are dropped, and utterance lines lose their
// "[MM:SS - MM:SS] SPEAKER_X: " prefix.
func TranscriptText(content string) string {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "=") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.Contains(line, "]") {
			if idx := strings.Index(line, ": "); idx != -1 {
				lines = append(lines, line[idx+2:])
				continue
			}
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, " ")
}

// EstimateTokens approximates the LLM token count of English text. Roughly
// four characters per token, with the word count as a lower bound since most
// tokenizers split some words.
func EstimateTokens(text string) int {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	byChars := int(float64(len(text)) / 4 * 0.8)
	if words > byChars {
		return words
	}
	return byChars
}
