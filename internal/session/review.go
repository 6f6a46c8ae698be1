package session

import "sync"

// ReviewMarks is the set of question ids flagged for later review, in the
// order they were first marked.
type ReviewMarks struct {
	mu    sync.RWMutex
	ids   map[string]struct{}
	order []string
}

func NewReviewMarks() *ReviewMarks {
	return &ReviewMarks{ids: make(map[string]struct{})}
}

// Add marks id. Returns false if it was already marked.
func (m *ReviewMarks) Add(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ids[id]; ok {
		return false
	}
	m.ids[id] = struct{}{}
	m.order = append(m.order, id)
	return true
}

func (m *ReviewMarks) Has(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.ids[id]
	return ok
}

func (m *ReviewMarks) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

// IDs returns a copy of the marked ids.
func (m *ReviewMarks) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

func (m *ReviewMarks) Reset() {
	m.mu.Lock()
	m.ids = make(map[string]struct{})
	m.order = nil
	m.mu.Unlock()
}
