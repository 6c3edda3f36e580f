package conversation

import (
	"regexp"
	"strings"
)

// TranscriptFormat describes what ParseTranscript accepts. It is meant to be
// shown to the model that writes the transcript.
const TranscriptFormat = `Each turn starts on a new line with a role marker followed by a colon:
  user turns:      User:, Human:, U<n>: or H<n>:  (e.g. "U1:")
  assistant turns: Assistant:, Claude:, A<n>: or C<n>:  (e.g. "A1:")
Markers are case-insensitive. Lines without a marker continue the current turn.
Lines starting with "[Context:" are skipped, as is any "[" line before the first turn.
Turns that end up empty are dropped.`

var (
	userMarker      = regexp.MustCompile(`(?i)^(User|U\d+|Human|H\d*):\s*`)
	assistantMarker = regexp.MustCompile(`(?i)^(Assistant|A\d+|Claude|C\d*):\s*`)
)

// ParseTranscript turns a role-marked plain-text transcript back into
// plain-text messages. See TranscriptFormat.
func ParseTranscript(content string) []Message {
	var (
		out     []Message
		role    Role
		current []string
	)
	flush := func() {
		if role == "" {
			return
		}
		if text := strings.TrimSpace(strings.Join(current, "\n")); text != "" {
			out = append(out, Message{Role: role, Text: text})
		}
	}

	for _, line := range strings.Split(content, "\n") {
		if loc := userMarker.FindStringIndex(line); loc != nil {
			flush()
			role, current = RoleUser, []string{line[loc[1]:]}
			continue
		}
		if loc := assistantMarker.FindStringIndex(line); loc != nil {
			flush()
			role, current = RoleAssistant, []string{line[loc[1]:]}
			continue
		}
		if strings.HasPrefix(line, "[Context:") || (role == "" && strings.HasPrefix(line, "[")) {
			continue
		}
		if role != "" {
			current = append(current, line)
		}
	}
	flush()
	return out
}
