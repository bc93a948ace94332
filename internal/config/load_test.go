package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workspace != "~/.openclaw" {
		t.Errorf("Workspace = %q", cfg.Workspace)
	}
	if cfg.DefaultModel == "" {
		t.Error("DefaultModel empty")
	}
	if cfg.Channels.HTTP.Port != 8787 {
		t.Errorf("HTTP port = %d", cfg.Channels.HTTP.Port)
	}
}

func TestLoadParsesJSON5(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	doc := `{
		// comments are allowed
		workspace: "/tmp/claw",
		default_model: "gpt-4o-mini",
		agents: {
			main: {name: "J", default: true},
			research: {name: "S", prefix: "/research", session_prefix: "agent:research"},
		},
		heartbeats: [
			{name: "brief", schedule: "every day at 09:00", prompt: "morning news", agent: "J"},
		],
		permissions: {safe_commands: ["terraform"]},
		unknown_key: 42,
	}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workspace != "/tmp/claw" || cfg.DefaultModel != "gpt-4o-mini" {
		t.Errorf("top-level fields: %+v", cfg)
	}
	if len(cfg.Agents) != 2 || cfg.Agents["research"].Prefix != "/research" {
		t.Errorf("agents = %+v", cfg.Agents)
	}
	if !cfg.Agents["main"].Default {
		t.Error("main agent not default")
	}
	if len(cfg.Heartbeats) != 1 || cfg.Heartbeats[0].Schedule != "every day at 09:00" {
		t.Errorf("heartbeats = %+v", cfg.Heartbeats)
	}
	if len(cfg.Permissions.SafeCommands) != 1 {
		t.Errorf("safe commands = %v", cfg.Permissions.SafeCommands)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{{{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("malformed config accepted")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OPENCLAW_MODEL", "env-model")
	t.Setenv("OPENCLAW_WORKSPACE", "/env/ws")
	t.Setenv("OPENCLAW_HTTP_PORT", "9999")
	t.Setenv("OPENCLAW_TELEGRAM_TOKEN", "tg-token")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DefaultModel != "env-model" {
		t.Errorf("DefaultModel = %q", cfg.DefaultModel)
	}
	if cfg.Workspace != "/env/ws" {
		t.Errorf("Workspace = %q", cfg.Workspace)
	}
	if cfg.Channels.HTTP.Port != 9999 {
		t.Errorf("HTTP port = %d", cfg.Channels.HTTP.Port)
	}
	// Token via env auto-enables the channel.
	if !cfg.Channels.Telegram.Enabled || cfg.Channels.Telegram.Token != "tg-token" {
		t.Errorf("telegram = %+v", cfg.Channels.Telegram)
	}
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			"empty model",
			func(c *Config) { c.DefaultModel = "" },
			"default_model",
		},
		{
			"agent without name",
			func(c *Config) { c.Agents = map[string]AgentSpec{"x": {}} },
			"no name",
		},
		{
			"two defaults",
			func(c *Config) {
				c.Agents = map[string]AgentSpec{
					"a": {Name: "A", Default: true},
					"b": {Name: "B", Default: true},
				}
			},
			"default",
		},
		{
			"incomplete heartbeat",
			func(c *Config) { c.Heartbeats = []HeartbeatSpec{{Name: "x"}} },
			"heartbeat",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := Default()
	cfg.Workspace = "/ws"

	if got := cfg.SessionsDir(); got != "/ws/sessions" {
		t.Errorf("SessionsDir = %q", got)
	}
	if got := cfg.MemoryDir(); got != "/ws/memory" {
		t.Errorf("MemoryDir = %q", got)
	}
	if got := cfg.ApprovalsFile(); got != "/ws/approvals.json" {
		t.Errorf("ApprovalsFile = %q", got)
	}
	if got := cfg.RunLogPath(); got != "/ws/heartbeats.db" {
		t.Errorf("RunLogPath = %q", got)
	}
}

func TestExpandHome(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		in   string
		want string
	}{
		{"~/.openclaw", home + "/.openclaw"},
		{"/abs/path", "/abs/path"},
		{"relative", "relative"},
		{"", ""},
		{"~", home},
	}
	for _, tt := range tests {
		if got := ExpandHome(tt.in); got != tt.want {
			t.Errorf("ExpandHome(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
