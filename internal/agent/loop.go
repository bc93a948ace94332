// Package agent — the turn loop, history sanitiser, souls, and the router.
//
// A turn is one user message in, one assistant text out, with zero or more
// tool cycles in between. The loop persists every step to the session log
// so that a crash at any point leaves a replayable history.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nextlevelbuilder/openclaw/internal/providers"
	"github.com/nextlevelbuilder/openclaw/internal/session"
	"github.com/nextlevelbuilder/openclaw/internal/tools"
)

// DefaultMaxTurns bounds LLM calls within a single turn, preventing
// infinite tool loops.
const DefaultMaxTurns = 20

// MaxTurnsSentinel is returned when a turn exhausts its LLM call budget.
const MaxTurnsSentinel = "(max tool turns reached)"

const turnMaxTokens = 4096

// OnToolUse fires once per executed tool: after the tool completes, before
// its result is persisted.
type OnToolUse func(name string, args map[string]any, result string)

// Loop drives the LLM ↔ tool execution cycle for one agent.
type Loop struct {
	provider            providers.Provider
	model               string
	systemPrompt        string
	sessions            *session.Store
	tools               *tools.Registry
	maxTurns            int
	onToolUse           OnToolUse
	compactionThreshold int
}

// LoopConfig configures a new Loop.
type LoopConfig struct {
	Provider     providers.Provider
	Model        string
	SystemPrompt string
	Sessions     *session.Store
	Tools        *tools.Registry

	// MaxTurns bounds LLM calls per turn. 0 means DefaultMaxTurns;
	// negative disables tool cycling entirely (the budget sentinel is
	// returned without calling the LLM).
	MaxTurns int

	OnToolUse OnToolUse

	// CompactionThreshold is the estimated-token level that triggers
	// summarisation. 0 means session.DefaultCompactionThreshold.
	CompactionThreshold int
}

func NewLoop(cfg LoopConfig) *Loop {
	maxTurns := cfg.MaxTurns
	if maxTurns == 0 {
		maxTurns = DefaultMaxTurns
	}
	threshold := cfg.CompactionThreshold
	if threshold <= 0 {
		threshold = session.DefaultCompactionThreshold
	}
	return &Loop{
		provider:            cfg.Provider,
		model:               cfg.Model,
		systemPrompt:        cfg.SystemPrompt,
		sessions:            cfg.Sessions,
		tools:               cfg.Tools,
		maxTurns:            maxTurns,
		onToolUse:           cfg.OnToolUse,
		compactionThreshold: threshold,
	}
}

// Run executes one full agent turn: load session, sanitise, compact if
// needed, then alternate LLM calls with tool execution until the model
// produces a final text or the budget runs out.
//
// Transport errors propagate to the caller; any history persisted before
// the error is a valid prefix, so retrying the turn restarts cleanly. Tool
// failures never propagate — they become the tool's result string.
func (l *Loop) Run(ctx context.Context, sessionKey, userText string) (string, error) {
	loaded, err := l.sessions.Load(sessionKey)
	if err != nil {
		return "", err
	}
	msgs := SanitizeHistory(loaded)

	// Compact before the turn so the new user message lands on a log that
	// fits the context window. The compacted log replaces the old one.
	if session.EstimateTokens(msgs) >= l.compactionThreshold {
		compacted, err := session.Compact(ctx, l.provider, l.model, msgs, l.compactionThreshold)
		if err != nil {
			return "", err
		}
		if err := l.sessions.Overwrite(sessionKey, compacted); err != nil {
			return "", err
		}
		msgs = compacted
		slog.Info("compacted session", "session", sessionKey, "messages", len(msgs))
	}

	userMsg := providers.Message{Role: "user", Content: userText}
	if err := l.sessions.Append(sessionKey, userMsg); err != nil {
		return "", err
	}

	apiMessages := make([]providers.Message, 0, len(msgs)+2)
	apiMessages = append(apiMessages, providers.Message{Role: "system", Content: l.systemPrompt})
	apiMessages = append(apiMessages, msgs...)
	apiMessages = append(apiMessages, userMsg)

	schemas := l.tools.Schemas()

	for turn := 0; turn < l.maxTurns; turn++ {
		resp, err := l.provider.Chat(ctx, providers.ChatRequest{
			Model:     l.model,
			Messages:  apiMessages,
			MaxTokens: turnMaxTokens,
			Tools:     schemas,
		})
		if err != nil {
			return "", fmt.Errorf("LLM call failed (turn %d): %w", turn+1, err)
		}

		assistantMsg := providers.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		}

		if !resp.RequestsTools() {
			assistantMsg.ToolCalls = nil
			if err := l.sessions.Append(sessionKey, assistantMsg); err != nil {
				return "", err
			}
			return resp.Content, nil
		}

		// Execute every tool before persisting anything, so the log never
		// holds an assistant-with-tool-calls without its results.
		toolMsgs := make([]providers.Message, 0, len(resp.ToolCalls))
		for _, tc := range resp.ToolCalls {
			args := parseToolArguments(tc.Function.Arguments)

			result := l.tools.Execute(ctx, tc.Function.Name, args)
			slog.Debug("tool executed",
				"tool", tc.Function.Name, "session", sessionKey, "result_len", len(result))

			if l.onToolUse != nil {
				l.onToolUse(tc.Function.Name, args, result)
			}

			toolMsgs = append(toolMsgs, providers.Message{
				Role:       "tool",
				Content:    result,
				ToolCallID: tc.ID,
			})
		}

		if err := l.sessions.Append(sessionKey, assistantMsg); err != nil {
			return "", err
		}
		apiMessages = append(apiMessages, assistantMsg)
		for _, toolMsg := range toolMsgs {
			if err := l.sessions.Append(sessionKey, toolMsg); err != nil {
				return "", err
			}
			apiMessages = append(apiMessages, toolMsg)
		}
	}

	return MaxTurnsSentinel, nil
}

// parseToolArguments decodes the JSON-text arguments of a tool call.
// Malformed arguments become an empty object — the tool decides how to
// respond, the turn never aborts.
func parseToolArguments(raw string) map[string]any {
	args := map[string]any{}
	if raw == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		slog.Warn("malformed tool arguments, using empty object", "error", err)
		return map[string]any{}
	}
	return args
}
