package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/titanous/json5"
)

// Load reads config from a JSON5 file, then overlays env vars. A missing
// file yields the defaults; a malformed file is an error. Unknown keys
// are ignored.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	envStr("OPENCLAW_OPENAI_API_KEY", &c.Provider.APIKey)
	if c.Provider.APIKey == "" {
		envStr("OPENAI_API_KEY", &c.Provider.APIKey)
	}
	envStr("OPENCLAW_API_BASE", &c.Provider.APIBase)
	envStr("OPENCLAW_MODEL", &c.DefaultModel)
	envStr("OPENCLAW_WORKSPACE", &c.Workspace)

	envStr("OPENCLAW_HTTP_HOST", &c.Channels.HTTP.Host)
	if v := os.Getenv("OPENCLAW_HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Channels.HTTP.Port = port
		}
	}

	envStr("OPENCLAW_TELEGRAM_TOKEN", &c.Channels.Telegram.Token)
	envStr("OPENCLAW_DISCORD_TOKEN", &c.Channels.Discord.Token)

	// Auto-enable channels if credentials are provided via env
	if c.Channels.Telegram.Token != "" {
		c.Channels.Telegram.Enabled = true
	}
	if c.Channels.Discord.Token != "" {
		c.Channels.Discord.Enabled = true
	}

	if v := os.Getenv("OPENCLAW_MAX_TURNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxTurns = n
		}
	}
}

// Validate reports configuration problems that would break startup.
// Soft issues are logged as warnings and do not fail.
func (c *Config) Validate() error {
	if c.Provider.APIKey == "" {
		slog.Warn("no API key configured, LLM calls will fail",
			"hint", "set OPENCLAW_OPENAI_API_KEY")
	}
	if c.DefaultModel == "" {
		return fmt.Errorf("default_model must not be empty")
	}

	defaults := 0
	for id, spec := range c.Agents {
		if spec.Name == "" {
			return fmt.Errorf("agent %q has no name", id)
		}
		if spec.Default {
			defaults++
		}
	}
	if defaults > 1 {
		return fmt.Errorf("more than one agent marked default")
	}

	for _, hb := range c.Heartbeats {
		if hb.Name == "" || hb.Schedule == "" || hb.Prompt == "" {
			return fmt.Errorf("heartbeat %q needs name, schedule, and prompt", hb.Name)
		}
	}
	return nil
}
