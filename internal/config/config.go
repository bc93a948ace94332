// Package config loads the single JSON5 config document and applies
// environment overrides.
package config

import (
	"os"
	"path/filepath"
)

// Config is the root configuration.
type Config struct {
	Workspace    string               `json:"workspace"`
	DefaultModel string               `json:"default_model"`
	Provider     ProviderConfig       `json:"provider"`
	Agents       map[string]AgentSpec `json:"agents,omitempty"`
	Channels     ChannelsConfig       `json:"channels"`
	Heartbeats   []HeartbeatSpec      `json:"heartbeats,omitempty"`
	Permissions  PermissionsConfig    `json:"permissions"`
	MaxTurns     int                  `json:"max_turns,omitempty"`
}

// ProviderConfig holds LLM transport settings. The API key comes from the
// environment only and is never persisted.
type ProviderConfig struct {
	APIKey  string `json:"-"`
	APIBase string `json:"api_base,omitempty"`
}

// AgentSpec declares one agent personality.
type AgentSpec struct {
	Name          string `json:"name"`
	Model         string `json:"model,omitempty"`
	SoulPath      string `json:"soul_path,omitempty"`
	Prefix        string `json:"prefix,omitempty"`
	SessionPrefix string `json:"session_prefix,omitempty"`
	Default       bool   `json:"default,omitempty"`
}

// ChannelsConfig groups the channel adapters.
type ChannelsConfig struct {
	HTTP     HTTPChannelConfig     `json:"http"`
	Telegram TelegramChannelConfig `json:"telegram"`
	Discord  DiscordChannelConfig  `json:"discord"`
}

type HTTPChannelConfig struct {
	Enabled      bool   `json:"enabled"`
	Host         string `json:"host,omitempty"`
	Port         int    `json:"port,omitempty"`
	RateLimitRPM int    `json:"rate_limit_rpm,omitempty"`
}

type TelegramChannelConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"-"` // env OPENCLAW_TELEGRAM_TOKEN only
}

type DiscordChannelConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"-"` // env OPENCLAW_DISCORD_TOKEN only
}

// HeartbeatSpec declares one scheduled prompt.
type HeartbeatSpec struct {
	Name     string `json:"name"`
	Schedule string `json:"schedule"`
	Prompt   string `json:"prompt"`
	Agent    string `json:"agent,omitempty"`
}

// PermissionsConfig extends the built-in safe command list.
type PermissionsConfig struct {
	SafeCommands []string `json:"safe_commands,omitempty"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Workspace:    "~/.openclaw",
		DefaultModel: "gpt-4o",
		Provider: ProviderConfig{
			APIBase: "https://api.openai.com/v1",
		},
		Channels: ChannelsConfig{
			HTTP: HTTPChannelConfig{
				Host:         "127.0.0.1",
				Port:         8787,
				RateLimitRPM: 20,
			},
		},
	}
}

// WorkspacePath returns the expanded workspace directory.
func (c *Config) WorkspacePath() string { return ExpandHome(c.Workspace) }

// SessionsDir is where the JSONL session logs live.
func (c *Config) SessionsDir() string { return filepath.Join(c.WorkspacePath(), "sessions") }

// MemoryDir is where long-term memory files live.
func (c *Config) MemoryDir() string { return filepath.Join(c.WorkspacePath(), "memory") }

// ApprovalsFile holds persisted shell command approvals.
func (c *Config) ApprovalsFile() string { return filepath.Join(c.WorkspacePath(), "approvals.json") }

// RunLogPath is the SQLite database of heartbeat run history.
func (c *Config) RunLogPath() string { return filepath.Join(c.WorkspacePath(), "heartbeats.db") }

// DefaultSoulPath is the fallback SOUL.md location for agents that do not
// set their own.
func (c *Config) DefaultSoulPath() string { return filepath.Join(c.WorkspacePath(), "SOUL.md") }

// ExpandHome replaces a leading ~ with the user home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
