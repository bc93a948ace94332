// Package channels holds the adapters that connect external surfaces
// (HTTP, Telegram, Discord) to the agent router. A channel hands the
// router a (user_id, text) pair and delivers the returned text back.
package channels

import "context"

// Dispatcher routes one inbound message to an agent and returns its
// reply. Satisfied by the agent router.
type Dispatcher interface {
	Run(ctx context.Context, channel, userID, text string) (string, error)
}

// Channel is one external message surface.
type Channel interface {
	// Name identifies the channel in session keys ("http", "telegram", ...).
	Name() string

	// Start begins receiving messages. Non-blocking after setup.
	Start(ctx context.Context) error

	// Stop gracefully shuts the channel down.
	Stop(ctx context.Context) error
}

// Truncate shortens a string to maxLen, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
