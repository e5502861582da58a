package conversation

import "sync"

// Registry owns one State per live conversation. States are created on
// first use and destroyed when the conversation ends.
type Registry struct {
	mu     sync.Mutex
	states map[string]*State
}

func NewRegistry() *Registry {
	return &Registry{states: make(map[string]*State)}
}

// Get returns the state for a conversation, creating it if needed.
func (r *Registry) Get(conversationID string) *State {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[conversationID]
	if !ok {
		s = NewState()
		r.states[conversationID] = s
	}
	return s
}

// End removes a conversation's state.
func (r *Registry) End(conversationID string) {
	r.mu.Lock()
	delete(r.states, conversationID)
	r.mu.Unlock()
}

// Count returns the number of live conversations.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}
