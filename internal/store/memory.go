package store

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process implementation of the same surface as
// PostgresStore. Tests and local scratch runs use it; it reports
// missing rows with sql.ErrNoRows so error mapping matches postgres.
type MemoryStore struct {
	mu        sync.Mutex
	documents map[string]Document
	comments  map[string][]Comment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents: make(map[string]Document),
		comments:  make(map[string][]Comment),
	}
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) ListDocuments(ctx context.Context) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]Document, 0, len(s.documents))
	for _, doc := range s.documents {
		items = append(items, doc)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].UpdatedAt.After(items[j].UpdatedAt)
	})
	return items, nil
}

func (s *MemoryStore) GetDocument(ctx context.Context, id string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return Document{}, sql.ErrNoRows
	}
	return doc, nil
}

func (s *MemoryStore) InsertDocument(ctx context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc.UpdatedAt = time.Now()
	s.documents[doc.ID] = doc
	return nil
}

func (s *MemoryStore) UpdateDocumentStatus(ctx context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return sql.ErrNoRows
	}
	doc.Status = status
	doc.UpdatedAt = time.Now()
	s.documents[id] = doc
	return nil
}

func (s *MemoryStore) TouchDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return sql.ErrNoRows
	}
	doc.UpdatedAt = time.Now()
	s.documents[id] = doc
	return nil
}

func (s *MemoryStore) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.documents, id)
	delete(s.comments, id)
	return nil
}

func (s *MemoryStore) ListComments(ctx context.Context, documentID string) ([]Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	thread := s.comments[documentID]
	items := make([]Comment, len(thread))
	copy(items, thread)
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *MemoryStore) InsertComment(ctx context.Context, comment Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[comment.DocumentID] = append(s.comments[comment.DocumentID], comment)
	return nil
}
