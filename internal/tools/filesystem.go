package tools

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// maxReadSize caps read_file output so a single file cannot blow the
// context window.
const maxReadSize = 50_000

// ReadFileTool reads a file from the filesystem.
type ReadFileTool struct{}

func (ReadFileTool) Name() string        { return "read_file" }
func (ReadFileTool) Description() string { return "Read a file from the filesystem" }

func (ReadFileTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path to the file to read",
			},
		},
		"required": []string{"path"},
	}
}

func (ReadFileTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	path := stringArg(args, "path")

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Sprintf("Error: File not found: %s", path), nil
		}
		return fmt.Sprintf("Error reading file: %v", err), nil
	}
	if info.IsDir() {
		return fmt.Sprintf("Error: Path is a directory: %s", path), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Sprintf("Error reading file: %v", err), nil
	}
	defer f.Close()

	buf := make([]byte, maxReadSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return fmt.Sprintf("Error reading file: %v", err), nil
	}

	content := string(buf[:n])
	if n == maxReadSize {
		content += "\n... (file truncated)"
	}
	return content, nil
}

// WriteFileTool writes content to a file, creating parent directories.
type WriteFileTool struct{}

func (WriteFileTool) Name() string { return "write_file" }

func (WriteFileTool) Description() string {
	return "Write content to a file (creates parent directories if needed)"
}

func (WriteFileTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path to the file",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Content to write",
			},
		},
		"required": []string{"path", "content"},
	}
}

func (WriteFileTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	path := stringArg(args, "path")
	content := stringArg(args, "content")

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Sprintf("Error writing file: %v", err), nil
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Sprintf("Error writing file: %v", err), nil
	}
	return fmt.Sprintf("Wrote %d characters to %s", len(content), path), nil
}
