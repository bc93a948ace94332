package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/nextlevelbuilder/openclaw/internal/agent"
	"github.com/nextlevelbuilder/openclaw/internal/config"
	"github.com/nextlevelbuilder/openclaw/internal/memory"
	"github.com/nextlevelbuilder/openclaw/internal/permissions"
	"github.com/nextlevelbuilder/openclaw/internal/providers"
	"github.com/nextlevelbuilder/openclaw/internal/session"
	"github.com/nextlevelbuilder/openclaw/internal/tools"
)

// runtime is the assembled core: everything a channel or CLI command
// needs to serve turns.
type runtime struct {
	cfg      *config.Config
	provider providers.Provider
	sessions *session.Store
	memory   *memory.Store
	perms    *permissions.Manager
	tools    *tools.Registry
	router   *agent.Router
}

// loadConfigQuiet loads config for read-only commands that do not need
// the full runtime.
func loadConfigQuiet() (*config.Config, error) {
	return config.Load(resolveConfigPath())
}

// buildRuntime loads config and wires the core components together.
// The approval callback decides interactive shell command approvals;
// nil denies everything that is not pre-approved.
func buildRuntime(approval permissions.ApprovalCallback) (*runtime, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	workspace := cfg.WorkspacePath()
	if !filepath.IsAbs(workspace) {
		workspace, _ = filepath.Abs(workspace)
	}
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	sessions, err := session.NewStore(cfg.SessionsDir())
	if err != nil {
		return nil, err
	}
	memStore, err := memory.NewStore(cfg.MemoryDir())
	if err != nil {
		return nil, err
	}

	safeCommands := append([]string{}, permissions.DefaultSafeCommands...)
	safeCommands = append(safeCommands, cfg.Permissions.SafeCommands...)
	perms := permissions.NewManager(cfg.ApprovalsFile(), safeCommands, approval)

	registry := tools.NewRegistry()
	registry.MustRegister(tools.NewShellTool(perms, workspace))
	registry.MustRegister(tools.ReadFileTool{})
	registry.MustRegister(tools.WriteFileTool{})
	registry.MustRegister(tools.NewSaveMemoryTool(memStore))
	registry.MustRegister(tools.NewMemorySearchTool(memStore))
	registry.MustRegister(tools.NewWebSearchTool())

	provider := providers.NewOpenAIProvider("openai", cfg.Provider.APIKey, cfg.Provider.APIBase, cfg.DefaultModel)

	router := agent.NewRouter()
	if err := registerAgents(router, cfg, provider, sessions, registry, workspace); err != nil {
		return nil, err
	}

	return &runtime{
		cfg:      cfg,
		provider: provider,
		sessions: sessions,
		memory:   memStore,
		perms:    perms,
		tools:    registry,
		router:   router,
	}, nil
}

// registerAgents builds one Agent per config entry, or a single built-in
// assistant when none are declared. Registration order is the sorted
// config key order, so prefix matching is deterministic.
func registerAgents(router *agent.Router, cfg *config.Config, provider providers.Provider,
	sessions *session.Store, registry *tools.Registry, workspace string) error {

	newLoop := func(model, soulPath string) *agent.Loop {
		soul := agent.LoadSoul(soulPath)
		return agent.NewLoop(agent.LoopConfig{
			Provider:     provider,
			Model:        model,
			SystemPrompt: agent.BuildSystemPrompt(soul, workspace, ""),
			Sessions:     sessions,
			Tools:        registry,
			MaxTurns:     cfg.MaxTurns,
		})
	}

	if len(cfg.Agents) == 0 {
		return router.Register(&agent.Agent{
			Name:      "assistant",
			Namespace: "agent:main",
			Loop:      newLoop(cfg.DefaultModel, cfg.DefaultSoulPath()),
		})
	}

	ids := make([]string, 0, len(cfg.Agents))
	for id := range cfg.Agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	defaultName := ""
	for _, id := range ids {
		spec := cfg.Agents[id]

		model := spec.Model
		if model == "" {
			model = cfg.DefaultModel
		}
		soulPath := config.ExpandHome(spec.SoulPath)
		if soulPath == "" {
			soulPath = cfg.DefaultSoulPath()
		}
		namespace := spec.SessionPrefix
		if namespace == "" {
			namespace = "agent:" + id
		}

		if err := router.Register(&agent.Agent{
			Name:      spec.Name,
			Prefix:    spec.Prefix,
			Namespace: namespace,
			Loop:      newLoop(model, soulPath),
		}); err != nil {
			return err
		}
		if spec.Default {
			defaultName = spec.Name
		}
	}

	if defaultName != "" {
		return router.SetDefault(defaultName)
	}
	return nil
}
