package agent

import (
	"sync"

	"cs-instructor-backend/internal/ai"
	"cs-instructor-backend/internal/memory"
	"cs-instructor-backend/internal/tools"

	"github.com/google/uuid"
)

// Registry maps session ids to their agents. Tools, the model provider and
// the index are shared; only the conversation store is per session.
type Registry struct {
	mu       sync.Mutex
	agents   map[string]*Instructor
	provider ai.LLMProvider
	toolset  []tools.Tool
	persist  memory.SessionPersistence
	window   int
}

func NewRegistry(provider ai.LLMProvider, toolset []tools.Tool, persist memory.SessionPersistence, window int) *Registry {
	return &Registry{
		agents:   make(map[string]*Instructor),
		provider: provider,
		toolset:  toolset,
		persist:  persist,
		window:   window,
	}
}

// GetOrCreate returns the agent for sessionID, creating it on first use. An
// empty id gets a fresh UUID. The returned id is always the effective one.
func (r *Registry) GetOrCreate(sessionID string) (*Instructor, string) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if instructor, ok := r.agents[sessionID]; ok {
		return instructor, sessionID
	}

	conversation := memory.NewConversationStore(sessionID, r.persist)
	instructor := NewInstructor(r.provider, r.toolset, conversation, r.window)
	r.agents[sessionID] = instructor
	return instructor, sessionID
}

// Get returns the agent for sessionID when it exists in this process.
func (r *Registry) Get(sessionID string) (*Instructor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	instructor, ok := r.agents[sessionID]
	return instructor, ok
}

// ActiveSessions returns the ids of sessions with a live agent.
func (r *Registry) ActiveSessions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	return ids
}
