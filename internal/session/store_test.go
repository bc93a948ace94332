package session

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/nextlevelbuilder/openclaw/internal/providers"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{"plain", "session1", "session1"},
		{"allowed chars kept", "agent-1_B", "agent-1_B"},
		{"colons replaced", "agent:main:cli:u1", "agent_main_cli_u1"},
		{"path separators replaced", "../etc/passwd", "___etc_passwd"},
		{"spaces and unicode replaced", "a b é", "a_b__"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeKey(tt.key); got != tt.want {
				t.Errorf("SanitizeKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

// Keys that differ only in disallowed bytes collide on the same file.
func TestSanitizeKeyCollision(t *testing.T) {
	if SanitizeKey("a:b") != SanitizeKey("a/b") {
		t.Errorf("expected a:b and a/b to sanitise identically")
	}
}

func TestAppendLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	msgs := []providers.Message{
		{Role: "user", Content: "run ls"},
		{Role: "assistant", ToolCalls: []providers.ToolCall{{
			ID:   "c1",
			Type: "function",
			Function: providers.ToolFunction{
				Name:      "run_command",
				Arguments: `{"command":"ls"}`,
			},
		}}},
		{Role: "tool", Content: "file.txt", ToolCallID: "c1"},
		{Role: "assistant", Content: "done"},
	}

	for _, msg := range msgs {
		if err := store.Append("k", msg); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := store.Load("k")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, msgs) {
		t.Errorf("Load = %+v, want %+v", got, msgs)
	}
}

func TestLoadMissingSession(t *testing.T) {
	store := newTestStore(t)

	msgs, err := store.Load("never-written")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected empty history, got %d messages", len(msgs))
	}
}

// Corrupt and blank lines are skipped on load, preserving the valid rest.
func TestLoadSkipsCorruptLines(t *testing.T) {
	store := newTestStore(t)

	raw := `{"role":"user","content":"hello"}
{not json
` + "\n" + `{"role":"assistant","content":"hi"}
{"role":"user","content":"trunc`
	path := filepath.Join(store.Dir(), SanitizeKey("k")+".jsonl")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	msgs, err := store.Load("k")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 valid messages, got %d", len(msgs))
	}
	if msgs[0].Content != "hello" || msgs[1].Content != "hi" {
		t.Errorf("unexpected messages: %+v", msgs)
	}
}

func TestOverwriteReplacesLog(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 5; i++ {
		if err := store.Append("k", providers.Message{Role: "user", Content: "old"}); err != nil {
			t.Fatal(err)
		}
	}

	replacement := []providers.Message{
		{Role: "user", Content: "summary"},
		{Role: "assistant", Content: "ok"},
	}
	if err := store.Overwrite("k", replacement); err != nil {
		t.Fatalf("Overwrite: %v", err)
	}

	got, err := store.Load("k")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, replacement) {
		t.Errorf("Load after Overwrite = %+v, want %+v", got, replacement)
	}

	// No temp files left behind.
	entries, _ := os.ReadDir(store.Dir())
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("stale temp file %s", e.Name())
		}
	}
}

// Overwrite(Load(k)) leaves the file byte-identical.
func TestOverwriteLoadIsIdempotent(t *testing.T) {
	store := newTestStore(t)

	if err := store.Append("k", providers.Message{Role: "user", Content: "hello"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Append("k", providers.Message{Role: "assistant", Content: "hi"}); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(store.Dir(), "k.jsonl")
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	msgs, err := store.Load("k")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Overwrite("k", msgs); err != nil {
		t.Fatal(err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Errorf("Overwrite(Load(k)) changed the file:\nbefore: %s\nafter: %s", before, after)
	}
}

func TestCountListDelete(t *testing.T) {
	store := newTestStore(t)

	if err := store.Append("a:1", providers.Message{Role: "user", Content: "x"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Append("a:1", providers.Message{Role: "assistant", Content: "y"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Append("b:2", providers.Message{Role: "user", Content: "z"}); err != nil {
		t.Fatal(err)
	}

	count, err := store.Count("a:1")
	if err != nil || count != 2 {
		t.Errorf("Count = %d, %v, want 2", count, err)
	}

	keys, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Fatalf("List = %v, want 2 entries", keys)
	}

	if !store.Exists("a:1") {
		t.Error("Exists(a:1) = false")
	}
	if err := store.Delete("a:1"); err != nil {
		t.Fatal(err)
	}
	if store.Exists("a:1") {
		t.Error("session still exists after Delete")
	}
	// Deleting an absent session is not an error.
	if err := store.Delete("a:1"); err != nil {
		t.Errorf("Delete of missing session: %v", err)
	}
}
