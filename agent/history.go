package agent

import (
	"strings"

	"github.com/byerlikaya/SmartRAG-sub013/types"
)

// windowTurns keeps the most recent maxTurns turns.
func windowTurns(turns []types.ConversationTurn, maxTurns int) []types.ConversationTurn {
	if maxTurns <= 0 || len(turns) <= maxTurns {
		return turns
	}
	return turns[len(turns)-maxTurns:]
}

// renderHistory formats past turns for a prompt. Empty history renders as
// the empty string so prompts need no conditional section.
func renderHistory(turns []types.ConversationTurn) string {
	if len(turns) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	for _, turn := range turns {
		b.WriteString("User: ")
		b.WriteString(turn.Question)
		b.WriteString("\nAssistant: ")
		b.WriteString(turn.Answer)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}
