package cognitive

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/cogsim/internal/models"
)

// MemoryStore is the append-only experiment memory: one RunResult as JSON
// per line. Appends rely on OS append-atomicity for small records.
type MemoryStore struct {
	path string
}

// NewMemoryStore creates a memory store at the given JSONL path.
func NewMemoryStore(path string) *MemoryStore {
	return &MemoryStore{path: path}
}

// Path returns the backing file location.
func (m *MemoryStore) Path() string {
	return m.path
}

// Append writes one result to the tail of the log.
func (m *MemoryStore) Append(result models.RunResult) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("failed to create memory directory: %w", err)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to serialize run result: %w", err)
	}

	f, err := os.OpenFile(m.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open memory file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("failed to append run result: %w", err)
	}
	return nil
}

// LoadAll reads every record. A missing file is an empty history. Rows
// written before the parameters field existed load with an empty map.
func (m *MemoryStore) LoadAll() ([]models.RunResult, error) {
	f, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.RunResult{}, nil
		}
		return nil, fmt.Errorf("failed to open memory file: %w", err)
	}
	defer f.Close()

	out := []models.RunResult{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var result models.RunResult
		if err := json.Unmarshal([]byte(line), &result); err != nil {
			return nil, fmt.Errorf("failed to parse memory line: %w", err)
		}
		if result.Parameters == nil {
			result.Parameters = map[string]float64{}
		}
		out = append(out, result)
	}
	return out, scanner.Err()
}
