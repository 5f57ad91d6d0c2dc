package series

import (
	"fmt"
	"strings"

	"github.com/xeb/voxcatalog/internal/catalog"
)

const systemPrompt = `You analyze podcast episode transcriptions to decide whether an episode belongs to a named series or stands alone. Respond with a JSON object containing exactly two fields: "series_name" (string) and "episode_number_in_series" (integer).

Rules:
- Only conclude an episode is part of a series when the transcription makes it EXPLICITLY clear: "Part N" or "Episode N" in the title or content, references to earlier episodes of the same series, or an explicit series name.
- Use "INDEPENDENT" as series_name when there is any doubt or the episode is clearly standalone. Err on the side of INDEPENDENT rather than forcing an episode into a series.
- Series names should be descriptive and grounded in the transcription content.
- Episode numbers are sequential within a series, starting from 1. A newly identified series starts at episode 1.
- For INDEPENDENT episodes, set episode_number_in_series to 0.`

// PromptInput bundles everything the provider sees for one episode: the
// entry's metadata, its transcript excerpt, the previous episode's excerpt as
// the comparison window, and the grouping decided so far.
type PromptInput struct {
	Entry           catalog.Entry
	Excerpt         string
	PreviousExcerpt string
	AssignmentJSON  string
}

// BuildPrompt renders the user prompt for one classification request.
func BuildPrompt(in PromptInput) string {
	previous := in.PreviousExcerpt
	if strings.TrimSpace(previous) == "" {
		previous = "No previous episode transcription available"
	}
	existing := in.AssignmentJSON
	if strings.TrimSpace(existing) == "" {
		existing = "No existing series data"
	}

	var b strings.Builder
	b.WriteString("## CURRENT EPISODE METADATA:\n")
	fmt.Fprintf(&b, "- Title: %s\n", orUnknown(in.Entry.Title))
	fmt.Fprintf(&b, "- URL: %s\n", orUnknown(in.Entry.URL))
	fmt.Fprintf(&b, "- Page: %d\n", in.Entry.Page)
	b.WriteString("\n## CURRENT EPISODE TRANSCRIPTION:\n")
	b.WriteString(in.Excerpt)
	b.WriteString("\n\n## PREVIOUS EPISODE TRANSCRIPTION:\n")
	b.WriteString(previous)
	b.WriteString("\n\n## EXISTING SERIES DATA:\n")
	b.WriteString(existing)
	b.WriteString("\n\nAnalyze the transcription evidence and provide your assessment.")
	return b.String()
}

func orUnknown(value string) string {
	if strings.TrimSpace(value) == "" {
		return "Unknown"
	}
	return value
}
