package draft

import "sync"

// MemoryStore implements Store in process memory. Hosts without Redis
// get draft persistence for the lifetime of the process only; tests
// use it as a deterministic cache.
type MemoryStore struct {
	mu     sync.Mutex
	drafts map[string]Payload
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{drafts: make(map[string]Payload)}
}

func (s *MemoryStore) Write(key string, payload Payload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[key] = payload
}

func (s *MemoryStore) Read(key string) (Payload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.drafts[key]
	return payload, ok
}

func (s *MemoryStore) Clear(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, key)
}
