// Package storetest provides a deterministic embedder and the behavior
// checks shared by the vector store backends.
package storetest

import (
	"context"
	"strings"
	"testing"

	"github.com/effective-security/ragchat/pkg/schema"
	"github.com/effective-security/ragchat/pkg/vectorstores"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Vocabulary of the Embedder, one dimension per word.
var Vocabulary = []string{"cat", "dog", "fish", "bird"}

// Embedder counts the vocabulary words of a text,
// a word prefixed with `-` counts negatively.
type Embedder struct {
	Calls int
}

// CreateEmbedding implements llms.Embedder.
func (e *Embedder) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	e.Calls++
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, len(Vocabulary))
		for _, word := range strings.Fields(strings.ToLower(text)) {
			weight := float32(1)
			if rest, ok := strings.CutPrefix(word, "-"); ok {
				word = rest
				weight = -1
			}
			for j, w := range Vocabulary {
				if w == word {
					v[j] += weight
				}
			}
		}
		vectors[i] = v
	}
	return vectors, nil
}

// Documents used by Run.
func Documents() []schema.Document {
	return []schema.Document{
		{PageContent: "cat cat dog", Metadata: map[string]any{"kind": "pet", "n": 1}},
		{PageContent: "dog", Metadata: map[string]any{"kind": "pet", "n": 2}},
		{PageContent: "fish", Metadata: map[string]any{"kind": "water"}},
		{PageContent: "bird fish", Metadata: map[string]any{"kind": "air"}},
	}
}

// Run checks the behavior common to all vector stores.
// The store must be empty, it has five documents on return.
func Run(t *testing.T, store vectorstores.VectorStore) {
	ctx := context.Background()

	docs, err := store.SimilaritySearch(ctx, "dog", 4)
	require.NoError(t, err)
	assert.Empty(t, docs)

	ids, err := store.AddDocuments(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = store.AddDocuments(ctx, Documents())
	require.NoError(t, err)
	require.Len(t, ids, 4)
	for i, doc := range Documents() {
		assert.Equal(t, vectorstores.DocumentID(doc), ids[i])
	}

	docs, err = store.SimilaritySearch(ctx, "dog", 2)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "dog", docs[0].PageContent)
	assert.InDelta(t, 1.0, docs[0].Score, 0.001)
	assert.Equal(t, "cat cat dog", docs[1].PageContent)
	assert.InDelta(t, 0.447, docs[1].Score, 0.001)
	assert.Equal(t, "pet", docs[0].Metadata["kind"])

	docs, err = store.SimilaritySearch(ctx, "dog", 10)
	require.NoError(t, err)
	assert.Len(t, docs, 4)

	docs, err = store.SimilaritySearch(ctx, "dog", 4, vectorstores.WithScoreThreshold(0.5))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "dog", docs[0].PageContent)

	docs, err = store.SimilaritySearch(ctx, "cat dog", 4, vectorstores.WithFilters(map[string]any{"kind": "pet"}))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "cat cat dog", docs[0].PageContent)
	assert.Equal(t, "dog", docs[1].PageContent)

	docs, err = store.SimilaritySearch(ctx, "cat dog", 4, vectorstores.WithFilters(map[string]any{"kind": "pet", "n": 2}))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "dog", docs[0].PageContent)

	_, err = store.SimilaritySearch(ctx, "dog", 4, vectorstores.WithScoreThreshold(1.5))
	assert.ErrorIs(t, err, vectorstores.ErrInvalidScoreThreshold)

	// same content replaces the document
	updated := schema.Document{PageContent: "dog", Metadata: map[string]any{"kind": "wolf"}}
	ids2, err := store.AddDocuments(ctx, []schema.Document{updated})
	require.NoError(t, err)
	assert.Equal(t, ids[1], ids2[0])

	docs, err = store.SimilaritySearch(ctx, "dog", 10)
	require.NoError(t, err)
	require.Len(t, docs, 4)
	assert.Equal(t, "wolf", docs[0].Metadata["kind"])
	// equal scores keep the insertion order
	assert.Equal(t, "fish", docs[2].PageContent)
	assert.Equal(t, "bird fish", docs[3].PageContent)

	// opposite direction has a negative score, returned when no threshold is set
	_, err = store.AddDocuments(ctx, []schema.Document{
		{PageContent: "-dog -cat", Metadata: map[string]any{"kind": "anti"}},
	})
	require.NoError(t, err)

	docs, err = store.SimilaritySearch(ctx, "dog", 10)
	require.NoError(t, err)
	require.Len(t, docs, 5)
	assert.Equal(t, "-dog -cat", docs[4].PageContent)
	assert.InDelta(t, -0.707, docs[4].Score, 0.001)

	docs, err = store.SimilaritySearch(ctx, "dog", 10, vectorstores.WithScoreThreshold(0.1))
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	// non-positive count is the default count
	docs, err = store.SimilaritySearch(ctx, "dog", 0)
	require.NoError(t, err)
	require.Len(t, docs, vectorstores.DefaultNumDocuments)
	assert.Equal(t, "bird fish", docs[3].PageContent)

	retriever := vectorstores.ToRetriever(store, 1)
	docs, err = retriever.GetRelevantDocuments(ctx, "bird")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "bird fish", docs[0].PageContent)
}
