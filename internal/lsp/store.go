package lsp

import "sync"

type document struct {
	text    string
	version int32
}

// Store holds the open documents by URI. It is safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	docs map[string]document
}

func NewStore() *Store {
	return &Store{docs: map[string]document{}}
}

// Set replaces the text of uri. An update older than the stored version
// is ignored and reported as false.
func (s *Store) Set(uri, text string, version int32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.docs[uri]; ok && version != 0 && version < old.version {
		return false
	}
	s.docs[uri] = document{text: text, version: version}
	return true
}

func (s *Store) Get(uri string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[uri]
	return d.text, ok
}

func (s *Store) Version(uri string) int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[uri].version
}

func (s *Store) Delete(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, uri)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
