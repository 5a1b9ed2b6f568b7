package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"cs-instructor-backend/models"
)

// SessionPersistence abstracts where session records live so tests can
// substitute an in-memory fake.
type SessionPersistence interface {
	Load(sessionID string) (*models.SessionRecord, error)
	Save(record *models.SessionRecord) error
}

// FileSessionStore keeps one JSON record per session under a directory.
// Every save rewrites the full record; sessions are small and bounded by
// conversational use, so the simple format wins.
type FileSessionStore struct {
	dir string
}

func NewFileSessionStore(dir string) (*FileSessionStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sessions dir: %w", err)
	}
	return &FileSessionStore{dir: dir}, nil
}

func (s *FileSessionStore) path(sessionID string) string {
	return filepath.Join(s.dir, sanitizeID(sessionID)+".json")
}

func (s *FileSessionStore) Load(sessionID string) (*models.SessionRecord, error) {
	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var record models.SessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return &record, nil
}

func (s *FileSessionStore) Save(record *models.SessionRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session %s: %w", record.SessionID, err)
	}
	return os.WriteFile(s.path(record.SessionID), data, 0o644)
}

// ListSessions returns the ids of all persisted sessions.
func (s *FileSessionStore) ListSessions() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) == ".json" {
			ids = append(ids, name[:len(name)-len(".json")])
		}
	}
	return ids, nil
}

// sanitizeID keeps session ids safe to use as file names.
func sanitizeID(id string) string {
	out := make([]rune, 0, len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// MemorySessionStore is the in-memory fake used by tests.
type MemorySessionStore struct {
	mu      sync.Mutex
	records map[string]*models.SessionRecord
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{records: make(map[string]*models.SessionRecord)}
}

func (s *MemorySessionStore) Load(sessionID string) (*models.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[sessionID]
	if !ok {
		return nil, nil
	}
	clone := *record
	clone.Turns = append([]models.ConversationTurn(nil), record.Turns...)
	return &clone, nil
}

func (s *MemorySessionStore) Save(record *models.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *record
	clone.Turns = append([]models.ConversationTurn(nil), record.Turns...)
	s.records[record.SessionID] = &clone
	return nil
}
