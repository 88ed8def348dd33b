package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/ragchat/mocks/mockllms"
	"github.com/effective-security/ragchat/pkg/schema"
	"github.com/effective-security/ragchat/pkg/vectorstores"
	"github.com/effective-security/ragchat/pkg/vectorstores/internal/storetest"
	"github.com/effective-security/ragchat/pkg/vectorstores/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestStore(t *testing.T) {
	t.Parallel()
	st := memory.New(&storetest.Embedder{})
	storetest.Run(t, st)
	assert.Equal(t, 5, st.Count())

	require.NoError(t, st.Delete(context.Background(), vectorstores.DocumentID(schema.Document{PageContent: "dog"}), "unknown"))
	assert.Equal(t, 4, st.Count())

	docs, err := st.SimilaritySearch(context.Background(), "dog", 4)
	require.NoError(t, err)
	require.Len(t, docs, 4)
	assert.Equal(t, "cat cat dog", docs[0].PageContent)
}

func TestStore_EmptySkipsEmbedder(t *testing.T) {
	t.Parallel()
	emb := &storetest.Embedder{}
	st := memory.New(emb)

	docs, err := st.SimilaritySearch(context.Background(), "dog", 4)
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Equal(t, 0, emb.Calls)
}

func TestStore_EmbedderErrors(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	emb := mockllms.NewMockEmbedder(ctrl)
	st := memory.New(emb)

	expErr := errors.New("quota exceeded")
	emb.EXPECT().CreateEmbedding(gomock.Any(), gomock.Any()).Return(nil, expErr)
	_, err := st.AddDocuments(ctx, []schema.Document{{PageContent: "a"}})
	assert.ErrorIs(t, err, expErr)

	emb.EXPECT().CreateEmbedding(gomock.Any(), gomock.Any()).Return([][]float32{{1}}, nil)
	_, err = st.AddDocuments(ctx, []schema.Document{{PageContent: "a"}, {PageContent: "b"}})
	assert.ErrorIs(t, err, vectorstores.ErrEmbedderWrongNumberVectors)

	emb.EXPECT().CreateEmbedding(gomock.Any(), []string{"a"}).Return([][]float32{{1, 0}}, nil)
	_, err = st.AddDocuments(ctx, []schema.Document{{PageContent: "a"}})
	require.NoError(t, err)

	emb.EXPECT().CreateEmbedding(gomock.Any(), []string{"q"}).Return(nil, expErr)
	_, err = st.SimilaritySearch(ctx, "q", 1)
	assert.ErrorIs(t, err, expErr)
}

func TestStore_Concurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := memory.New(&storetest.Embedder{})

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			docs := make([]schema.Document, 0, 5)
			for j := range 5 {
				docs = append(docs, schema.Document{
					PageContent: fmt.Sprintf("%d-%d %s %s", i, j, gofakeit.Animal(), gofakeit.Word()),
					Metadata:    map[string]any{"author": gofakeit.Name()},
				})
			}
			_, err := st.AddDocuments(ctx, docs)
			assert.NoError(t, err)
			_, err = st.SimilaritySearch(ctx, gofakeit.Animal(), 3)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, st.Count())
}
