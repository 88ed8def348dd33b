// Package vectorstores contains the interface of vector stores and the helpers
// shared by the memory, Redis, pgvector and SQLite backends.
package vectorstores

import (
	"context"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/ragchat/pkg/llms"
	"github.com/effective-security/ragchat/pkg/schema"
)

var (
	// ErrInvalidScoreThreshold is returned when the score threshold is not in [0, 1].
	ErrInvalidScoreThreshold = errors.New("score threshold must be between 0 and 1")
	// ErrEmbedderWrongNumberVectors is returned when the embedder returns
	// a number of vectors different from the number of texts.
	ErrEmbedderWrongNumberVectors = errors.New("number of vectors from embedder does not match number of documents")
)

//go:generate mockgen -source=vectorstores.go -destination=../../mocks/mockvectorstores/vectorstores_mock.gen.go -package mockvectorstores

// VectorStore is the interface for saving and querying documents in the
// form of vector embeddings.
type VectorStore interface {
	// AddDocuments embeds and stores the documents, returns their IDs.
	// Adding a document with the same page content replaces it.
	AddDocuments(ctx context.Context, docs []schema.Document) ([]string, error)
	// SimilaritySearch returns up to numDocuments documents most similar to the query,
	// ordered by descending score. A non-positive numDocuments means DefaultNumDocuments.
	SimilaritySearch(ctx context.Context, query string, numDocuments int, options ...Option) ([]schema.Document, error)
}

// DocumentID returns the deterministic ID of the document,
// derived from its page content.
func DocumentID(doc schema.Document) string {
	return strconv.FormatUint(xxhash.Sum64String(doc.PageContent), 16)
}

// EmbedDocuments returns the IDs and the vectors of the documents.
func EmbedDocuments(ctx context.Context, embedder llms.Embedder, docs []schema.Document) ([]string, [][]float32, error) {
	texts := make([]string, len(docs))
	ids := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.PageContent
		ids[i] = DocumentID(doc)
	}

	vectors, err := embedder.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to embed documents")
	}
	if len(vectors) != len(texts) {
		return nil, nil, errors.Wrapf(ErrEmbedderWrongNumberVectors, "expected %d, got %d", len(texts), len(vectors))
	}
	return ids, vectors, nil
}

// EmbedQuery returns the vector of the query.
func EmbedQuery(ctx context.Context, embedder llms.Embedder, query string) ([]float32, error) {
	vectors, err := embedder.CreateEmbedding(ctx, []string{query})
	if err != nil {
		return nil, errors.Wrap(err, "failed to embed query")
	}
	if len(vectors) != 1 {
		return nil, errors.Wrapf(ErrEmbedderWrongNumberVectors, "expected 1, got %d", len(vectors))
	}
	return vectors[0], nil
}
