package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/openclaw/internal/providers"
)

// DefaultCompactionThreshold is the estimated-token level at which a
// session is summarised in place.
const DefaultCompactionThreshold = 100_000

const summariserSystemPrompt = "You are a precise conversation summarizer."

const compactionPrompt = `Summarize the following conversation concisely. ` +
	`Preserve all important facts, decisions, user preferences, file paths, ` +
	`variable names, and action outcomes. Be specific — do not generalize. ` +
	`Format as a bullet list.

Conversation to summarize:
%s`

// EstimateTokens is a coarse char-to-token proxy: serialized JSON length
// divided by four. Deliberately independent of any tokenizer — good enough
// for deciding when to compact.
func EstimateTokens(msgs []providers.Message) int {
	data, err := json.Marshal(msgs)
	if err != nil {
		return 0
	}
	return len(data) / 4
}

// Compact summarises the older half of a conversation when its token
// estimate reaches threshold. The recent tail is preserved verbatim; the
// old half is replaced by a single user-role summary message. Below the
// threshold the input is returned unchanged.
//
// The summary carries role=user rather than system: the system slot is
// reserved for the per-agent prompt, and some providers reject multiple
// system messages.
func Compact(ctx context.Context, provider providers.Provider, model string, msgs []providers.Message, threshold int) ([]providers.Message, error) {
	if threshold <= 0 {
		threshold = DefaultCompactionThreshold
	}
	if EstimateTokens(msgs) < threshold {
		return msgs, nil
	}

	old, recent := splitMessages(msgs)
	if len(old) == 0 {
		return msgs, nil
	}

	resp, err := provider.Chat(ctx, providers.ChatRequest{
		Model: model,
		Messages: []providers.Message{
			{Role: "system", Content: summariserSystemPrompt},
			{Role: "user", Content: fmt.Sprintf(compactionPrompt, formatForSummary(old))},
		},
		MaxTokens: 2048,
	})
	if err != nil {
		return nil, fmt.Errorf("compaction summarise: %w", err)
	}

	summary := resp.Content
	if summary == "" {
		summary = "(empty summary)"
	}

	out := make([]providers.Message, 0, len(recent)+1)
	out = append(out, providers.Message{
		Role:    "user",
		Content: fmt.Sprintf("[Conversation summary of %d earlier messages]\n\n%s", len(old), summary),
	})
	out = append(out, recent...)
	return out, nil
}

// splitMessages cuts the conversation at a user-message boundary at or
// after the midpoint, so an assistant→tool flow is never broken. Falls
// back to searching backward, then to a bare midpoint split.
func splitMessages(msgs []providers.Message) (old, recent []providers.Message) {
	mid := len(msgs) / 2

	for i := mid; i < len(msgs); i++ {
		if msgs[i].Role == "user" {
			return msgs[:i], msgs[i:]
		}
	}
	for i := mid; i > 0; i-- {
		if msgs[i].Role == "user" {
			return msgs[:i], msgs[i:]
		}
	}
	return msgs[:mid], msgs[mid:]
}

func formatForSummary(msgs []providers.Message) string {
	var lines []string
	for _, msg := range msgs {
		switch {
		case msg.Role == "tool":
			content := msg.Content
			if len(content) > 500 {
				content = content[:500]
			}
			lines = append(lines, fmt.Sprintf("[Tool result %s]: %s", msg.ToolCallID, content))
		case len(msg.ToolCalls) > 0:
			names := make([]string, len(msg.ToolCalls))
			for i, tc := range msg.ToolCalls {
				names[i] = tc.Function.Name
			}
			lines = append(lines, fmt.Sprintf("Assistant: [called tools: %s]", strings.Join(names, ", ")))
			if msg.Content != "" {
				lines = append(lines, "Assistant: "+msg.Content)
			}
		default:
			lines = append(lines, capitalize(msg.Role)+": "+msg.Content)
		}
	}
	return strings.Join(lines, "\n")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
