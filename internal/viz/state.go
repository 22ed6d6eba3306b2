package viz

// StateMap is a per-strategy arena of simulation state keyed by node id.
// Reconcile inserts state on first sight and deletes it when an id is absent
// from the latest identity set.
type StateMap[T any] struct {
	entries    map[string]*slot[T]
	generation uint64
}

// slot stores one entry with the generation it was last seen in.
type slot[T any] struct {
	value *T
	seen  uint64
}

// NewStateMap constructs an empty state map.
func NewStateMap[T any]() *StateMap[T] {
	return &StateMap[T]{entries: map[string]*slot[T]{}}
}

// Reconcile syncs the map to ids. create is called once for every new id.
func (m *StateMap[T]) Reconcile(ids []string, create func(id string) *T) (added, removed int) {
	if m.entries == nil {
		m.entries = map[string]*slot[T]{}
	}
	m.generation++
	for _, id := range ids {
		if id == "" {
			continue
		}
		if s, ok := m.entries[id]; ok {
			s.seen = m.generation
			continue
		}
		m.entries[id] = &slot[T]{value: create(id), seen: m.generation}
		added++
	}
	for id, s := range m.entries {
		if s.seen != m.generation {
			delete(m.entries, id)
			removed++
		}
	}
	return added, removed
}

// Get returns the state for id.
func (m *StateMap[T]) Get(id string) (*T, bool) {
	if m == nil || m.entries == nil {
		return nil, false
	}
	s, ok := m.entries[id]
	if !ok {
		return nil, false
	}
	return s.value, true
}

// Len returns the number of live entries.
func (m *StateMap[T]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Clear drops every entry.
func (m *StateMap[T]) Clear() {
	if m == nil {
		return
	}
	m.entries = map[string]*slot[T]{}
}
