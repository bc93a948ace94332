// Package session — durable conversation history and per-session concurrency.
//
// Each session is one JSONL file (one JSON-encoded message per line) under
// the store directory. Appends are flushed before returning, so a crash
// loses at most the line being written; readers skip blank and malformed
// lines, which makes any surviving log replayable.
package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nextlevelbuilder/openclaw/internal/providers"
)

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9_\-]`)

// SanitizeKey converts a session key to a filesystem-safe filename (without
// extension). Keys differing only in disallowed bytes may collide; the same
// key always resolves to the same file.
func SanitizeKey(key string) string {
	return unsafeKeyChars.ReplaceAllString(key, "_")
}

// Store persists sessions as append-only JSONL files.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sessions dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's backing directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, SanitizeKey(key)+".jsonl")
}

// Load reads all messages from a session. Returns an empty slice when the
// session does not exist. Blank and malformed lines (crash tail) are skipped.
func (s *Store) Load(key string) ([]providers.Message, error) {
	f, err := os.Open(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open session %s: %w", key, err)
	}
	defer f.Close()

	var msgs []providers.Message
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var msg providers.Message
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			// Corrupted line — crash safety, skip.
			continue
		}
		msgs = append(msgs, msg)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read session %s: %w", key, err)
	}
	return msgs, nil
}

// Append adds a single message to a session file, flushing before returning.
// The session file is created on first append.
func (s *Store) Append(key string, msg providers.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	f, err := os.OpenFile(s.path(key), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open session %s: %w", key, err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append to session %s: %w", key, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync session %s: %w", key, err)
	}
	return nil
}

// Overwrite replaces the entire session log. Used after compaction.
// Writes to a temp file and renames so a crash never leaves a torn log.
func (s *Store) Overwrite(key string, msgs []providers.Message) error {
	tmp, err := os.CreateTemp(s.dir, "session-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp session: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			os.Remove(tmpPath)
		}
	}()

	w := bufio.NewWriter(tmp)
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			tmp.Close()
			return fmt.Errorf("encode message: %w", err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			tmp.Close()
			return fmt.Errorf("write session %s: %w", key, err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush session %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync session %s: %w", key, err)
	}
	tmp.Close()

	if err := os.Rename(tmpPath, s.path(key)); err != nil {
		return fmt.Errorf("replace session %s: %w", key, err)
	}
	cleanup = false
	return nil
}

// Exists reports whether a session file exists.
func (s *Store) Exists(key string) bool {
	_, err := os.Stat(s.path(key))
	return err == nil
}

// Delete removes a session file. Deleting an absent session is not an error.
func (s *Store) Delete(key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete session %s: %w", key, err)
	}
	return nil
}

// Count returns the number of messages in a session without decoding them.
func (s *Store) Count(key string) (int, error) {
	f, err := os.Open(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("open session %s: %w", key, err)
	}
	defer f.Close()

	count := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			count++
		}
	}
	return count, sc.Err()
}

// List returns all session filenames (sanitised keys, without extension).
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var keys []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".jsonl") {
			keys = append(keys, strings.TrimSuffix(name, ".jsonl"))
		}
	}
	return keys, nil
}
