package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/nextlevelbuilder/openclaw/internal/permissions"
)

const defaultShellTimeout = 30 * time.Second

// ShellTool runs shell commands behind the permission gate.
type ShellTool struct {
	gate       *permissions.Manager
	workingDir string
	timeout    time.Duration
}

func NewShellTool(gate *permissions.Manager, workingDir string) *ShellTool {
	return &ShellTool{gate: gate, workingDir: workingDir, timeout: defaultShellTimeout}
}

func (t *ShellTool) Name() string { return "run_command" }

func (t *ShellTool) Description() string {
	return "Run a shell command on the user's computer"
}

func (t *ShellTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "The shell command to run",
			},
		},
		"required": []string{"command"},
	}
}

func (t *ShellTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	command := stringArg(args, "command")
	if command == "" {
		return "Error: command is required", nil
	}

	if t.gate.Check(command) == permissions.DecisionNeedsApproval {
		if !t.gate.RequestApproval(command) {
			return "Permission denied. Command requires approval.", nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = t.workingDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Sprintf("Error: Command timed out after %s", t.timeout), nil
	}

	output := strings.TrimSpace(stdout.String() + stderr.String())
	if err != nil && output == "" {
		return fmt.Sprintf("Error: %v", err), nil
	}
	if output == "" {
		return "(no output)", nil
	}
	return output, nil
}
