package memory

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"cs-instructor-backend/internal/logger"
	"cs-instructor-backend/models"
)

const noHistoryMessage = "No conversation history."

// ConversationStore holds the ordered turn history for one session. Appends
// persist synchronously; persistence failures are logged, never raised, so a
// broken disk degrades to in-memory-only history instead of failing chats.
//
// The per-store mutex serializes read-modify-persist for a session, which the
// original single-threaded design left unguarded.
type ConversationStore struct {
	mu        sync.Mutex
	sessionID string
	turns     []models.ConversationTurn
	persist   SessionPersistence
}

// NewConversationStore loads any persisted history for sessionID.
func NewConversationStore(sessionID string, persist SessionPersistence) *ConversationStore {
	store := &ConversationStore{
		sessionID: sessionID,
		persist:   persist,
	}

	if persist != nil {
		record, err := persist.Load(sessionID)
		if err != nil {
			logger.Warn("could not load session", "session_id", sessionID, "error", err.Error())
		} else if record != nil {
			store.turns = record.Turns
		}
	}

	return store
}

// AddUserMessage appends a user turn and persists the session.
func (s *ConversationStore) AddUserMessage(content string) {
	s.append(models.RoleUser, content)
}

// AddAssistantMessage appends an assistant turn and persists the session.
func (s *ConversationStore) AddAssistantMessage(content string) {
	s.append(models.RoleAssistant, content)
}

func (s *ConversationStore) append(role models.Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = append(s.turns, models.ConversationTurn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
	s.save()
}

// Render returns the last window turns formatted as "<Role>: <content>"
// lines, oldest first, or a fixed message when the session is empty.
func (s *ConversationStore) Render(window int) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.turns) == 0 {
		return noHistoryMessage
	}
	if window <= 0 {
		window = 10
	}

	start := 0
	if len(s.turns) > window {
		start = len(s.turns) - window
	}

	lines := make([]string, 0, len(s.turns)-start)
	for _, turn := range s.turns[start:] {
		lines = append(lines, fmt.Sprintf("%s: %s", turn.Role.Display(), turn.Content))
	}
	return strings.Join(lines, "\n")
}

// Clear empties the turn sequence and persists the empty state. The session
// id stays valid.
func (s *ConversationStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = nil
	s.save()
}

// Summary reports turn counts as a human-readable string.
func (s *ConversationStore) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryLocked()
}

func (s *ConversationStore) summaryLocked() string {
	if len(s.turns) == 0 {
		return "No conversation to summarize."
	}

	var userTurns, assistantTurns int
	for _, turn := range s.turns {
		if turn.Role == models.RoleUser {
			userTurns++
		} else {
			assistantTurns++
		}
	}

	return fmt.Sprintf("Conversation Summary: %d total messages (%d from user, %d from assistant)",
		len(s.turns), userTurns, assistantTurns)
}

// Export returns the full turn sequence plus summary and export timestamp.
func (s *ConversationStore) Export() models.ConversationExport {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append([]models.ConversationTurn(nil), s.turns...)
	return models.ConversationExport{
		SessionID:  s.sessionID,
		Turns:      turns,
		Summary:    s.summaryLocked(),
		ExportedAt: time.Now(),
	}
}

// TurnCount returns the number of stored turns.
func (s *ConversationStore) TurnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// save persists the current record. Callers hold the mutex.
func (s *ConversationStore) save() {
	if s.persist == nil {
		return
	}

	record := &models.SessionRecord{
		SessionID:   s.sessionID,
		Turns:       s.turns,
		LastUpdated: time.Now(),
	}
	if err := s.persist.Save(record); err != nil {
		logger.Warn("could not save session", "session_id", s.sessionID, "error", err.Error())
	}
}
