// Package memory — long-term agent memory as named markdown blobs.
//
// One file per key under a dedicated directory. Search is substring-based:
// a blob matches when it contains every whitespace-separated query token,
// case-insensitively.
package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// NoMatchResult is returned by Search when nothing matches (or the query
// is empty).
const NoMatchResult = "No matching memories found."

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9_\-]`)

// Store keeps memory blobs on disk.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create memory dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(key string) string {
	safe := unsafeKeyChars.ReplaceAllString(key, "_")
	return filepath.Join(s.dir, safe+".md")
}

// Save writes a memory blob, replacing any existing content for the key.
func (s *Store) Save(key, content string) error {
	if err := os.WriteFile(s.path(key), []byte(content), 0o644); err != nil {
		return fmt.Errorf("save memory %s: %w", key, err)
	}
	return nil
}

// Load returns the blob for key, or "" when absent.
func (s *Store) Load(key string) (string, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("load memory %s: %w", key, err)
	}
	return string(data), nil
}

// Delete removes a memory blob. Absent keys are not an error.
func (s *Store) Delete(key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete memory %s: %w", key, err)
	}
	return nil
}

// List returns all memory keys (sanitised filenames, without extension).
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list memories: %w", err)
	}

	var keys []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(e.Name(), ".md"))
	}
	sort.Strings(keys)
	return keys, nil
}

// Search returns the concatenation of all blobs containing every
// whitespace-separated query token (case-insensitive substring match).
// Empty queries and queries with no matches return NoMatchResult.
func (s *Store) Search(query string) (string, error) {
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return NoMatchResult, nil
	}

	keys, err := s.List()
	if err != nil {
		return "", err
	}

	var sections []string
	for _, key := range keys {
		content, err := s.Load(key)
		if err != nil {
			return "", err
		}
		lower := strings.ToLower(content)
		matched := true
		for _, tok := range tokens {
			if !strings.Contains(lower, tok) {
				matched = false
				break
			}
		}
		if matched {
			sections = append(sections, fmt.Sprintf("## %s\n%s", key, strings.TrimSpace(content)))
		}
	}

	if len(sections) == 0 {
		return NoMatchResult, nil
	}
	return strings.Join(sections, "\n\n"), nil
}
