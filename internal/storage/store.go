// Package storage keeps the conversation metadata index on disk so past
// turns can be listed, continued, and deleted.
package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

var (
	// ErrNoMatches is returned when no conversation matches the query.
	ErrNoMatches = errors.New("no conversations found")
	// ErrManyMatches is returned when a query is ambiguous.
	ErrManyMatches = errors.New("multiple conversations matched the input")
)

const indexFileName = "index.jsonl"

// Conversation is one stored conversation's metadata. The transcript itself
// lives in the cache, keyed by ID.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	API       string    `json:"api,omitempty"`
	Model     string    `json:"model,omitempty"`
	Processor string    `json:"processor,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is a jsonl-backed conversation index, one record per line, guarded
// by an advisory file lock against concurrent corral processes. Mutations
// rewrite the whole file; at CLI scale that is cheaper than a log.
type Store struct {
	mu      sync.RWMutex
	path    string
	lock    *flock.Flock
	records map[string]Conversation
	tempDir string
}

// Open loads the index from the given directory. The special value
// ":memory:" backs the store with a temporary directory, removed on Close.
func Open(dir string) (*Store, error) {
	tempDir := ""
	if dir == ":memory:" {
		tmp, err := os.MkdirTemp("", "corral-conversations-*")
		if err != nil {
			return nil, fmt.Errorf("create temp store: %w", err)
		}
		dir, tempDir = tmp, tmp
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	s := &Store{
		path:    filepath.Join(dir, indexFileName),
		lock:    flock.New(filepath.Join(dir, "index.lock")),
		records: make(map[string]Conversation),
		tempDir: tempDir,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close removes temporary resources for :memory: stores.
func (s *Store) Close() error {
	if s.tempDir == "" {
		return nil
	}
	return os.RemoveAll(s.tempDir)
}

// Save upserts a conversation record, stamping UpdatedAt.
func (s *Store) Save(convo Conversation) error {
	if strings.TrimSpace(convo.ID) == "" {
		return errors.New("save: empty id")
	}
	if strings.TrimSpace(convo.Title) == "" {
		return errors.New("save: empty title")
	}
	convo.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[convo.ID] = convo
	return s.flushLocked()
}

// Delete removes a conversation record. Deleting an absent ID is a no-op.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return nil
	}
	delete(s.records, id)
	return s.flushLocked()
}

// List returns all records, most recently updated first.
func (s *Store) List() []Conversation {
	s.mu.RLock()
	out := make([]Conversation, 0, len(s.records))
	for _, convo := range s.records {
		out = append(out, convo)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

// ListOlderThan returns the records last updated before now minus d,
// most recently updated first.
func (s *Store) ListOlderThan(d time.Duration) []Conversation {
	cutoff := time.Now().Add(-d)
	out := s.List()
	filtered := out[:0]
	for _, convo := range out {
		if convo.UpdatedAt.Before(cutoff) {
			filtered = append(filtered, convo)
		}
	}
	return filtered
}

// Latest returns the most recently updated conversation.
func (s *Store) Latest() (Conversation, error) {
	list := s.List()
	if len(list) == 0 {
		return Conversation{}, ErrNoMatches
	}
	return list[0], nil
}

// Find resolves a conversation by ID prefix or exact title. Prefixes shorter
// than IDMinPrefix only match titles, so one-letter inputs don't fan out
// over the whole index.
func (s *Store) Find(in string) (Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []Conversation
	for _, convo := range s.records {
		if convo.Title == in || (len(in) >= IDMinPrefix && strings.HasPrefix(convo.ID, in)) {
			matches = append(matches, convo)
		}
	}
	switch len(matches) {
	case 0:
		return Conversation{}, fmt.Errorf("%w: %s", ErrNoMatches, in)
	case 1:
		return matches[0], nil
	default:
		return Conversation{}, fmt.Errorf("%w: %s", ErrManyMatches, in)
	}
}

// Completions returns shell completion candidates for IDs and titles.
func (s *Store) Completions(in string) []string {
	set := make(map[string]struct{})

	s.mu.RLock()
	for _, convo := range s.records {
		if strings.HasPrefix(convo.ID, in) {
			set[fmt.Sprintf("%s\t%s", ShortID(convo.ID), convo.Title)] = struct{}{}
		}
		if strings.HasPrefix(convo.Title, in) {
			set[fmt.Sprintf("%s\t%s", convo.Title, ShortID(convo.ID))] = struct{}{}
		}
	}
	s.mu.RUnlock()

	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (s *Store) load() error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock index: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open index: %w", err)
	}
	defer file.Close() //nolint:errcheck

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var convo Conversation
		if err := json.Unmarshal([]byte(line), &convo); err != nil {
			// skip corrupt lines rather than losing the whole index
			continue
		}
		if convo.ID != "" {
			s.records[convo.ID] = convo
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read index: %w", err)
	}
	return nil
}

// flushLocked rewrites the index atomically. Caller holds s.mu.
func (s *Store) flushLocked() error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock index: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".index-*")
	if err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for _, convo := range s.records {
		if err := enc.Encode(convo); err != nil {
			return fmt.Errorf("write index: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}
