// Package permissions — approval layer for shell command execution.
//
// Known-safe base commands auto-execute; previously approved exact commands
// auto-execute; everything else requires approval. Decisions persist to a
// JSON file so the user is never asked twice. The host process is expected
// to be the sole writer of the approvals file.
package permissions

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Decision classifies a command for execution.
type Decision string

const (
	DecisionSafe          Decision = "safe"
	DecisionApproved      Decision = "approved"
	DecisionNeedsApproval Decision = "needs_approval"
)

// ApprovalCallback asks the user whether a command may run.
type ApprovalCallback func(command string) bool

// DefaultSafeCommands are base commands that always auto-execute.
var DefaultSafeCommands = []string{
	"ls", "cat", "head", "tail", "wc", "grep", "find",
	"echo", "date", "pwd", "whoami", "which", "file",
	"git", "python", "python3", "node", "npm", "npx",
	"uv", "pip", "ruff", "pytest", "go", "cargo", "make",
}

type approvals struct {
	Allowed []string `json:"allowed"`
	Denied  []string `json:"denied"`
}

// Manager persists command approval decisions.
type Manager struct {
	file     string
	safe     map[string]bool
	callback ApprovalCallback
	mu       sync.Mutex
}

// NewManager creates a permission manager. safeCommands nil means
// DefaultSafeCommands; callback nil means unapproved commands are denied.
func NewManager(approvalsFile string, safeCommands []string, callback ApprovalCallback) *Manager {
	if safeCommands == nil {
		safeCommands = DefaultSafeCommands
	}
	safe := make(map[string]bool, len(safeCommands))
	for _, cmd := range safeCommands {
		safe[cmd] = true
	}
	return &Manager{file: approvalsFile, safe: safe, callback: callback}
}

// SetCallback installs the approval prompt. Channels that can ask the user
// interactively set this at startup.
func (m *Manager) SetCallback(cb ApprovalCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callback = cb
}

// Check classifies a command: safe when its first token is in the safe set,
// approved when the exact string was approved before, needs_approval
// otherwise.
func (m *Manager) Check(command string) Decision {
	fields := strings.Fields(command)
	if len(fields) > 0 && m.safe[fields[0]] {
		return DecisionSafe
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if slices.Contains(m.load().Allowed, command) {
		return DecisionApproved
	}
	return DecisionNeedsApproval
}

// RequestApproval asks the user via the callback (denied when absent) and
// persists the outcome to the allow- or deny-set.
func (m *Manager) RequestApproval(command string) bool {
	m.mu.Lock()
	cb := m.callback
	m.mu.Unlock()

	approved := false
	if cb != nil {
		approved = cb(command)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.save(command, approved); err != nil {
		slog.Warn("failed to persist command approval", "command", command, "error", err)
	}
	return approved
}

// load reads the approvals file. Missing or corrupt files are treated as
// empty.
func (m *Manager) load() approvals {
	data, err := os.ReadFile(m.file)
	if err != nil {
		return approvals{}
	}
	var a approvals
	if err := json.Unmarshal(data, &a); err != nil {
		return approvals{}
	}
	return a
}

func (m *Manager) save(command string, approved bool) error {
	a := m.load()
	if approved {
		if !slices.Contains(a.Allowed, command) {
			a.Allowed = append(a.Allowed, command)
		}
	} else {
		if !slices.Contains(a.Denied, command) {
			a.Denied = append(a.Denied, command)
		}
	}

	if dir := filepath.Dir(m.file); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create approvals dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.file, data, 0o644)
}
