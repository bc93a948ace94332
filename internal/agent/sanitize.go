package agent

import (
	"log/slog"

	"github.com/nextlevelbuilder/openclaw/internal/providers"
)

// SanitizeHistory trims trailing assistant messages whose tool calls were
// never answered. A crash between persisting an assistant-with-tool-calls
// and its tool results would otherwise leave a log most providers reject.
//
// The result is the longest prefix that does not end on an unanswered
// tool-call message; applying it twice is a no-op.
func SanitizeHistory(msgs []providers.Message) []providers.Message {
	for len(msgs) > 0 {
		last := msgs[len(msgs)-1]
		if last.Role != "assistant" || len(last.ToolCalls) == 0 {
			break
		}
		slog.Warn("dropping orphaned assistant tool-call message from session tail",
			"tool_calls", len(last.ToolCalls))
		msgs = msgs[:len(msgs)-1]
	}
	return msgs
}
