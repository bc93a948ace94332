package agent

import (
	"os"
	"strings"
	"time"
)

// DefaultSoul is the built-in personality used when an agent has no
// SOUL.md of its own.
const DefaultSoul = `# Who You Are

**Name:** Assistant
**Role:** Personal AI assistant

## Personality
- Be genuinely helpful, not performatively helpful
- Skip the "Great question!" — just help
- Have opinions. You're allowed to disagree
- Be concise when needed, thorough when it matters

## Boundaries
- Private things stay private
- When in doubt, ask before acting externally
- You're not the user's voice — be careful about sending messages on their behalf

## Memory
You have a long-term memory system.
- Use save_memory to store important information (user preferences, key facts, project details)
- Use memory_search at the start of conversations to recall context from previous sessions`

// LoadSoul reads a SOUL.md personality file, falling back to DefaultSoul
// when the path is empty, missing, or blank.
func LoadSoul(path string) string {
	if path == "" {
		return DefaultSoul
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultSoul
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return DefaultSoul
	}
	return content
}

// BuildSystemPrompt combines the soul with a dynamic context block (current
// date, optional workspace path, optional extra context).
func BuildSystemPrompt(soul, workspace, extraContext string) string {
	parts := []string{soul}

	contextLines := []string{
		"\n## Context",
		"- Current date: " + time.Now().Format("2006-01-02 15:04"),
	}
	if workspace != "" {
		contextLines = append(contextLines, "- Workspace: "+workspace)
	}
	parts = append(parts, strings.Join(contextLines, "\n"))

	if extraContext != "" {
		parts = append(parts, extraContext)
	}
	return strings.Join(parts, "\n\n")
}
