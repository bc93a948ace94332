package tools

import (
	"context"
	"fmt"

	"github.com/nextlevelbuilder/openclaw/internal/memory"
)

// SaveMemoryTool stores information in the long-term memory store.
type SaveMemoryTool struct {
	store *memory.Store
}

func NewSaveMemoryTool(store *memory.Store) *SaveMemoryTool {
	return &SaveMemoryTool{store: store}
}

func (t *SaveMemoryTool) Name() string { return "save_memory" }

func (t *SaveMemoryTool) Description() string {
	return "Save important information to long-term memory. " +
		"Use for user preferences, key facts, and anything worth remembering across sessions."
}

func (t *SaveMemoryTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"key": map[string]any{
				"type":        "string",
				"description": "Short label, e.g. 'user-preferences', 'project-notes'",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "The information to remember",
			},
		},
		"required": []string{"key", "content"},
	}
}

func (t *SaveMemoryTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	key := stringArg(args, "key")
	content := stringArg(args, "content")
	if err := t.store.Save(key, content); err != nil {
		return "", err
	}
	return fmt.Sprintf("Saved to memory: %s", key), nil
}

// MemorySearchTool searches the long-term memory store.
type MemorySearchTool struct {
	store *memory.Store
}

func NewMemorySearchTool(store *memory.Store) *MemorySearchTool {
	return &MemorySearchTool{store: store}
}

func (t *MemorySearchTool) Name() string { return "memory_search" }

func (t *MemorySearchTool) Description() string {
	return "Search long-term memory for relevant information"
}

func (t *MemorySearchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "What to search for",
			},
		},
		"required": []string{"query"},
	}
}

func (t *MemorySearchTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	return t.store.Search(stringArg(args, "query"))
}
