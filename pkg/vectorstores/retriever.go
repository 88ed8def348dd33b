package vectorstores

import (
	"context"

	"github.com/effective-security/ragchat/pkg/schema"
)

// DefaultNumDocuments is the number of documents returned by a retriever
// created with a non-positive count.
const DefaultNumDocuments = 4

// Retriever is a retriever for vector stores.
type Retriever struct {
	store        VectorStore
	numDocuments int
	options      []Option
}

var _ schema.Retriever = Retriever{}

// GetRelevantDocuments returns documents using the vector store.
func (r Retriever) GetRelevantDocuments(ctx context.Context, query string) ([]schema.Document, error) {
	return r.store.SimilaritySearch(ctx, query, r.numDocuments, r.options...)
}

// ToRetriever takes a vector store and returns a retriever using the
// vector store to retrieve documents.
func ToRetriever(store VectorStore, numDocuments int, options ...Option) Retriever {
	if numDocuments <= 0 {
		numDocuments = DefaultNumDocuments
	}
	return Retriever{
		store:        store,
		numDocuments: numDocuments,
		options:      options,
	}
}
