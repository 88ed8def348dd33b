package vectorstores_test

import (
	"context"
	"testing"

	"github.com/effective-security/ragchat/mocks/mockvectorstores"
	"github.com/effective-security/ragchat/pkg/schema"
	"github.com/effective-security/ragchat/pkg/vectorstores"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestDocumentID(t *testing.T) {
	t.Parallel()
	a := vectorstores.DocumentID(schema.Document{PageContent: "hello"})
	b := vectorstores.DocumentID(schema.Document{PageContent: "hello", Metadata: map[string]any{"x": 1}})
	c := vectorstores.DocumentID(schema.Document{PageContent: "world"})
	assert.NotEmpty(t, a)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 1.0, vectorstores.CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-6)
	assert.InDelta(t, 0.0, vectorstores.CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, vectorstores.CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.Equal(t, float32(0), vectorstores.CosineSimilarity([]float32{1}, []float32{1, 0}))
	assert.Equal(t, float32(0), vectorstores.CosineSimilarity(nil, nil))
	assert.Equal(t, float32(0), vectorstores.CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}

func TestOptions(t *testing.T) {
	t.Parallel()
	opts, err := vectorstores.NewOptions(
		vectorstores.WithScoreThreshold(0.7),
		vectorstores.WithFilters(map[string]any{"a": 1}),
	)
	require.NoError(t, err)
	assert.Equal(t, float32(0.7), opts.ScoreThreshold)
	assert.Equal(t, map[string]any{"a": 1}, opts.Filters)

	_, err = vectorstores.NewOptions(vectorstores.WithScoreThreshold(-0.1))
	assert.ErrorIs(t, err, vectorstores.ErrInvalidScoreThreshold)
}

func TestMatchFilters(t *testing.T) {
	t.Parallel()
	meta := map[string]any{"kind": "pet", "n": float64(2)}
	assert.True(t, vectorstores.MatchFilters(meta, nil))
	assert.True(t, vectorstores.MatchFilters(meta, map[string]any{"kind": "pet"}))
	assert.True(t, vectorstores.MatchFilters(meta, map[string]any{"kind": "pet", "n": 2}))
	assert.False(t, vectorstores.MatchFilters(meta, map[string]any{"kind": "fish"}))
	assert.False(t, vectorstores.MatchFilters(meta, map[string]any{"missing": "x"}))
	assert.False(t, vectorstores.MatchFilters(nil, map[string]any{"kind": "pet"}))
}

func TestRank(t *testing.T) {
	t.Parallel()
	candidates := []vectorstores.Candidate{
		{Document: schema.Document{PageContent: "x"}, Vector: []float32{1, 0}},
		{Document: schema.Document{PageContent: "y", Metadata: map[string]any{"k": "v"}}, Vector: []float32{0, 1}},
		{Document: schema.Document{PageContent: "xy"}, Vector: []float32{1, 1}},
		{Document: schema.Document{PageContent: "x2"}, Vector: []float32{2, 0}},
		{Document: schema.Document{PageContent: "-x"}, Vector: []float32{-1, 0.5}},
		{Document: schema.Document{PageContent: "-y"}, Vector: []float32{0, -1}},
	}

	docs := vectorstores.Rank([]float32{1, 0}, candidates, 3, vectorstores.Options{})
	require.Len(t, docs, 3)
	// equal scores keep the candidates order
	assert.Equal(t, "x", docs[0].PageContent)
	assert.Equal(t, "x2", docs[1].PageContent)
	assert.Equal(t, "xy", docs[2].PageContent)
	assert.InDelta(t, 0.707, docs[2].Score, 0.001)

	docs = vectorstores.Rank([]float32{1, 0}, candidates, 0, vectorstores.Options{ScoreThreshold: 0.8})
	assert.Len(t, docs, 2)

	// non-positive k is the default count
	docs = vectorstores.Rank([]float32{1, 0}, candidates, 0, vectorstores.Options{})
	assert.Len(t, docs, vectorstores.DefaultNumDocuments)
	docs = vectorstores.Rank([]float32{1, 0}, candidates, -1, vectorstores.Options{})
	assert.Len(t, docs, vectorstores.DefaultNumDocuments)

	// negative similarity is kept without a threshold
	docs = vectorstores.Rank([]float32{1, 0}, candidates, 10, vectorstores.Options{})
	require.Len(t, docs, 6)
	assert.Equal(t, "y", docs[3].PageContent)
	assert.Equal(t, "-y", docs[4].PageContent)
	assert.Equal(t, "-x", docs[5].PageContent)
	assert.InDelta(t, -0.894, docs[5].Score, 0.001)

	docs = vectorstores.Rank([]float32{1, 0}, candidates, 4, vectorstores.Options{Filters: map[string]any{"k": "v"}})
	require.Len(t, docs, 1)
	assert.Equal(t, "y", docs[0].PageContent)
	assert.Equal(t, float32(0), docs[0].Score)

	// the candidates are not modified
	assert.Equal(t, float32(0), candidates[0].Document.Score)
}

func TestToRetriever(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	store := mockvectorstores.NewMockVectorStore(ctrl)

	exp := []schema.Document{{PageContent: "D1"}, {PageContent: "D2"}}
	store.EXPECT().SimilaritySearch(ctx, "query", vectorstores.DefaultNumDocuments).Return(exp, nil)

	r := vectorstores.ToRetriever(store, 0)
	docs, err := r.GetRelevantDocuments(ctx, "query")
	require.NoError(t, err)
	assert.Equal(t, exp, docs)

	store.EXPECT().SimilaritySearch(ctx, "query", 2, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, _ int, options ...vectorstores.Option) ([]schema.Document, error) {
			opts, err := vectorstores.NewOptions(options...)
			require.NoError(t, err)
			assert.Equal(t, float32(0.5), opts.ScoreThreshold)
			return exp[:1], nil
		})
	r = vectorstores.ToRetriever(store, 2, vectorstores.WithScoreThreshold(0.5))
	docs, err = r.GetRelevantDocuments(ctx, "query")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}
