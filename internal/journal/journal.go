// Package journal records completed phrases as JSON lines.
package journal

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry is one completed phrase.
type Entry struct {
	Phrase string    `json:"phrase"`
	Index  int       `json:"index"`
	Loop   int       `json:"loop"`
	At     time.Time `json:"at"`
}

// Journal appends entries to a file. It is safe for concurrent use.
type Journal struct {
	path string
	now  func() time.Time

	mu        sync.Mutex
	loop      int
	lastIndex int
	count     int
}

// Open prepares a journal at path. The file is created on the first Record.
// Appending to an existing journal continues its loop numbering.
func Open(path string) (*Journal, error) {
	if path == "" {
		return nil, errors.New("journal: path is required")
	}
	j := &Journal{path: path, now: time.Now, lastIndex: -1}
	entries, err := Load(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if n := len(entries); n > 0 {
		j.loop = entries[n-1].Loop
		j.lastIndex = entries[n-1].Index
	}
	return j, nil
}

// Path returns the file the journal writes to.
func (j *Journal) Path() string {
	return j.path
}

// Count returns how many entries this journal has recorded since Open.
func (j *Journal) Count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.count
}

// Record appends a completion. A phrase index that does not advance past the
// previous one starts a new loop.
func (j *Journal) Record(phrase string, index int) (Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.lastIndex >= 0 && index <= j.lastIndex {
		j.loop++
	}
	j.lastIndex = index
	entry := Entry{Phrase: phrase, Index: index, Loop: j.loop, At: j.now().UTC()}

	raw, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, err
	}
	if err := appendLine(j.path, raw); err != nil {
		return Entry{}, fmt.Errorf("journal: %w", err)
	}
	j.count++
	return entry, nil
}

// Load reads every entry from path.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("journal: line %d: %w", line, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func appendLine(path string, raw []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := file.Write(append(raw, '\n')); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
