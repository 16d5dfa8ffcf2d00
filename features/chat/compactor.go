package chat

import (
	"fmt"
	"strings"
)

// KeepRecentCount is how many trailing messages survive compaction in
// full; everything older collapses into a topic summary.
const KeepRecentCount = 10

const topicKeyLength = 50

// CompactHistory renders the transcript for prompt inclusion. Short
// transcripts pass through verbatim; longer ones keep the last keepRecent
// messages and compress the rest into one line per distinct user topic,
// where a topic key is the first 50 characters of a user turn and
// adjacent duplicates collapse.
func CompactHistory(messages []Message, keepRecent int) string {
	if len(messages) <= keepRecent {
		return formatMessages(messages)
	}

	old := messages[:len(messages)-keepRecent]
	recent := messages[len(messages)-keepRecent:]

	var summaryParts []string
	currentTopic := ""
	for _, msg := range old {
		if msg.Role != RoleUser {
			continue
		}
		topic := msg.Message
		if runes := []rune(topic); len(runes) > topicKeyLength {
			topic = string(runes[:topicKeyLength])
		}
		if topic != currentTopic {
			currentTopic = topic
			summaryParts = append(summaryParts, fmt.Sprintf("User asked about: %s...", topic))
		}
	}

	header := "Recent conversation:\n"
	if len(summaryParts) > 0 {
		header = fmt.Sprintf("Previous conversation summary:\n%s\n\n---\n\nRecent conversation:\n", strings.Join(summaryParts, "\n"))
	}

	return header + formatMessages(recent)
}

func formatMessages(messages []Message) string {
	lines := make([]string, len(messages))
	for i, msg := range messages {
		lines[i] = fmt.Sprintf("%s: %s", msg.Role, msg.Message)
	}
	return strings.Join(lines, "\n")
}
