package tavily_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	tavilyModels "github.com/diverged/tavily-go/models"
	"github.com/effective-security/ragchat/pkg/retrievers/tavily"
	"github.com/effective-security/ragchat/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req tavilyModels.SearchRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		assert.NoError(t, err)
		assert.Equal(t, "What is capital of France", req.Query)
		assert.Equal(t, "testkey", req.APIKey)

		resp := map[string]any{
			"results": []map[string]any{
				{"title": "France", "url": "https://example.com/france", "content": "Paris is the capital of France.", "score": 0.9},
				{"title": "Paris", "url": "https://example.com/paris", "content": "Paris is a city.", "score": 0.5},
			},
		}
		if req.IncludeAnswer {
			resp["answer"] = "Paris"
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func Test_New(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "")
	_, err := tavily.New()
	assert.ErrorIs(t, err, tavily.ErrMissingAPIKey)

	_, err = tavily.New(tavily.WithAPIKey("testkey"))
	require.NoError(t, err)

	t.Setenv("TAVILY_API_KEY", "envkey")
	r, err := tavily.New()
	require.NoError(t, err)

	_, err = r.GetRelevantDocuments(context.Background(), "")
	assert.ErrorIs(t, err, tavily.ErrEmptyQuery)
}

func Test_GetRelevantDocuments(t *testing.T) {
	server := newServer(t)
	ctx := context.Background()

	r, err := tavily.New(
		tavily.WithAPIKey("testkey"),
		tavily.WithBaseURL(server.URL),
		tavily.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)

	docs, err := r.GetRelevantDocuments(ctx, "What is capital of France")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, schema.Document{
		PageContent: "Paris is the capital of France.",
		Metadata: map[string]any{
			tavily.MetadataSource: "https://example.com/france",
			tavily.MetadataTitle:  "France",
		},
		Score: 0.9,
	}, docs[0])
	assert.Equal(t, "https://example.com/paris", docs[1].Metadata[tavily.MetadataSource])

	r, err = tavily.New(
		tavily.WithAPIKey("testkey"),
		tavily.WithBaseURL(server.URL),
		tavily.WithHTTPClient(server.Client()),
		tavily.WithSearchDepth(tavily.SearchDepthAdvanced),
		tavily.WithAnswer(true),
		tavily.WithMaxDocuments(2),
	)
	require.NoError(t, err)

	docs, err = r.GetRelevantDocuments(ctx, "What is capital of France")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "Paris", docs[0].PageContent)
	assert.Equal(t, "Paris is the capital of France.", docs[1].PageContent)
}

func Test_GetRelevantDocuments_Request(t *testing.T) {
	var got tavilyModels.SearchRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
	}))
	t.Cleanup(server.Close)

	r, err := tavily.New(
		tavily.WithAPIKey("testkey"),
		tavily.WithBaseURL(server.URL),
		tavily.WithSearchDepth(tavily.SearchDepthAdvanced),
		tavily.WithMaxDocuments(3),
	)
	require.NoError(t, err)

	docs, err := r.GetRelevantDocuments(context.Background(), "query")
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Equal(t, "query", got.Query)
	assert.Equal(t, tavily.SearchDepthAdvanced, got.SearchDepth)
	assert.Equal(t, 3, got.MaxResults)
	assert.False(t, got.IncludeAnswer)
}

func Test_GetRelevantDocuments_Canceled(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
	}))
	t.Cleanup(server.Close)

	r, err := tavily.New(
		tavily.WithAPIKey("testkey"),
		tavily.WithBaseURL(server.URL),
		tavily.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.GetRelevantDocuments(ctx, "query")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func Test_GetRelevantDocuments_Real(t *testing.T) {
	apikey := os.Getenv("TAVILY_API_KEY")
	if apikey == "" {
		t.Skip("TAVILY_API_KEY is not set")
	}

	r, err := tavily.New(tavily.WithMaxDocuments(3))
	require.NoError(t, err)

	docs, err := r.GetRelevantDocuments(context.Background(), "What is capital of France")
	require.NoError(t, err)
	assert.NotEmpty(t, docs)
}
