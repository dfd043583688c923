package store

import (
	"sync"

	"github.com/AstraLink99/backend-video-processing/internal/domain/entity"
)

// MetadataStore holds metadata records keyed by filename. Externally
// supplied keys with no uniqueness enforcement: a re-reported filename
// overwrites the previous record. Lifecycle ends with the process.
type MetadataStore struct {
	mu      sync.RWMutex
	records map[string]entity.MetadataRecord
}

func NewMetadataStore() *MetadataStore {
	return &MetadataStore{records: make(map[string]entity.MetadataRecord)}
}

func (s *MetadataStore) Put(rec entity.MetadataRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Filename] = rec
}

func (s *MetadataStore) Get(filename string) (entity.MetadataRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[filename]
	return rec, ok
}

func (s *MetadataStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
