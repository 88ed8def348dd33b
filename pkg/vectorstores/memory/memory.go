// Package memory provides an in-process vector store, for tests and small corpora.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/effective-security/ragchat/pkg/llms"
	"github.com/effective-security/ragchat/pkg/schema"
	"github.com/effective-security/ragchat/pkg/vectorstores"
)

// Store keeps documents and their vectors in memory.
type Store struct {
	embedder llms.Embedder

	mu    sync.RWMutex
	order []string
	docs  map[string]vectorstores.Candidate
}

var _ vectorstores.VectorStore = (*Store)(nil)

// New returns an empty Store using the embedder.
func New(embedder llms.Embedder) *Store {
	return &Store{
		embedder: embedder,
		docs:     make(map[string]vectorstores.Candidate),
	}
}

// AddDocuments implements vectorstores.VectorStore.
func (s *Store) AddDocuments(ctx context.Context, docs []schema.Document) ([]string, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	ids, vectors, err := vectorstores.EmbedDocuments(ctx, s.embedder, docs)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, doc := range docs {
		if _, ok := s.docs[ids[i]]; !ok {
			s.order = append(s.order, ids[i])
		}
		doc.Metadata = maps.Clone(doc.Metadata)
		doc.Score = 0
		s.docs[ids[i]] = vectorstores.Candidate{Document: doc, Vector: vectors[i]}
	}
	return ids, nil
}

// SimilaritySearch implements vectorstores.VectorStore.
func (s *Store) SimilaritySearch(ctx context.Context, query string, numDocuments int, options ...vectorstores.Option) ([]schema.Document, error) {
	opts, err := vectorstores.NewOptions(options...)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	empty := len(s.docs) == 0
	s.mu.RUnlock()
	if empty {
		return nil, nil
	}

	vector, err := vectorstores.EmbedQuery(ctx, s.embedder, query)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	candidates := make([]vectorstores.Candidate, 0, len(s.order))
	for _, id := range s.order {
		candidates = append(candidates, s.docs[id])
	}
	s.mu.RUnlock()

	return vectorstores.Rank(vector, candidates, numDocuments, opts), nil
}

// Delete removes the documents by ID.
func (s *Store) Delete(_ context.Context, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if _, ok := s.docs[id]; !ok {
			continue
		}
		delete(s.docs, id)
		for i, oid := range s.order {
			if oid == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	return nil
}

// Count returns the number of documents in the store.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
