// Package schema defines the documents exchanged between retrievers,
// vector stores and chains.
package schema

import (
	"context"
	"strings"
)

//go:generate mockgen -source=schema.go -destination=../../mocks/mockschema/schema_mock.gen.go -package mockschema

// Document is a piece of text with its metadata.
type Document struct {
	PageContent string         `json:"page_content" yaml:"page_content"`
	Metadata    map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	// Score is the similarity score reported by a vector store, if any.
	Score float32 `json:"score,omitempty" yaml:"score,omitempty"`
}

// Retriever is an interface that defines the behavior of a retriever.
type Retriever interface {
	// GetRelevantDocuments returns documents relevant to the query,
	// ordered by relevance.
	GetRelevantDocuments(ctx context.Context, query string) ([]Document, error)
}

// RetrieverFunc adapts a function to the Retriever interface.
type RetrieverFunc func(ctx context.Context, query string) ([]Document, error)

// GetRelevantDocuments implements Retriever.
func (f RetrieverFunc) GetRelevantDocuments(ctx context.Context, query string) ([]Document, error) {
	return f(ctx, query)
}

// JoinPageContents returns page contents of the documents joined by separator.
func JoinPageContents(docs []Document, separator string) string {
	texts := make([]string, 0, len(docs))
	for _, doc := range docs {
		texts = append(texts, doc.PageContent)
	}
	return strings.Join(texts, separator)
}
