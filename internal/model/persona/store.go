package persona

// Store exposes persona retrieval for the router and HTTP handlers.
type Store interface {
	List() []Persona
	FindByID(id string) (Persona, bool)
	Default() Persona
}

// MemoryStore implements Store with an in-memory slice.
// The first persona is the default.
type MemoryStore struct {
	items []Persona
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied personas,
// falling back to the built-in persona when none are given.
func NewMemoryStore(items []Persona) *MemoryStore {
	if len(items) == 0 {
		items = Seed()
	}
	return &MemoryStore{items: append([]Persona(nil), items...)}
}

// List returns the configured personas.
func (s *MemoryStore) List() []Persona {
	return append([]Persona(nil), s.items...)
}

// FindByID looks up a persona by identifier.
func (s *MemoryStore) FindByID(id string) (Persona, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Persona{}, false
}

// Default returns the persona used when a session names none.
func (s *MemoryStore) Default() Persona {
	return s.items[0]
}

// Resolve returns the persona for id, or the default when id is unknown.
func Resolve(store Store, id string) Persona {
	if p, ok := store.FindByID(id); ok {
		return p
	}
	return store.Default()
}
