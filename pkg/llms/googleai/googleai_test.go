package googleai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/effective-security/ragchat/pkg/llms"
	"github.com/effective-security/ragchat/pkg/llms/googleai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	_, err := googleai.New(context.Background())
	assert.ErrorIs(t, err, googleai.ErrMissingCredentials)
}

func TestGenerateContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		w.Header().Set("Content-Type", "application/json")

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))

		switch {
		case strings.HasSuffix(r.URL.Path, "models/gemini-test:generateContent"):
			contents, ok := body["contents"].([]any)
			require.True(t, ok)
			require.Len(t, contents, 2)
			assert.Equal(t, "user", contents[0].(map[string]any)["role"])
			assert.Equal(t, "model", contents[1].(map[string]any)["role"])
			assert.NotNil(t, body["systemInstruction"])

			cfg, ok := body["generationConfig"].(map[string]any)
			require.True(t, ok)
			assert.InDelta(t, 0.1, cfg["temperature"], 0.0001)

			_, _ = io.WriteString(w, `{
				"candidates": [{
					"content": {"role": "model", "parts": [{"text": "Answer "}, {"text": "text"}]},
					"finishReason": "STOP"
				}],
				"usageMetadata": {"promptTokenCount": 5, "candidatesTokenCount": 2, "totalTokenCount": 7}
			}`)
		case strings.HasSuffix(r.URL.Path, "models/text-embedding-004:batchEmbedContents"):
			_, _ = io.WriteString(w, `{"embeddings": [{"values": [0.1, 0.2]}, {"values": [0.3, 0.4]}]}`)
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey("test-key"),
		googleai.WithBaseURL(srv.URL),
		googleai.WithHTTPClient(srv.Client()),
		googleai.WithDefaultModel("gemini-test"),
	)
	require.NoError(t, err)
	assert.Equal(t, "gemini-test", llm.GetName())
	assert.Equal(t, llms.ProviderGoogleAI, llm.GetProviderType())

	resp, err := llm.GenerateContent(ctx, []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, "be brief"),
		llms.MessageFromTextParts(llms.RoleHuman, "hello"),
		llms.MessageFromTextParts(llms.RoleAI, "hi"),
	}, llms.WithTemperature(0.1))
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "Answer text", resp.Choices[0].Content)
	assert.Equal(t, "STOP", resp.Choices[0].StopReason)
	assert.Equal(t, int64(5), resp.Choices[0].GenerationInfo["InputTokens"])
	assert.Equal(t, int64(7), resp.Choices[0].GenerationInfo["TotalTokens"])

	vecs, err := llm.CreateEmbedding(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.1, 0.2}, {0.3, 0.4}}, vecs)

	_, err = llm.CreateEmbedding(ctx, []string{"a"})
	assert.ErrorIs(t, err, googleai.ErrUnexpectedLength)

	_, err = llm.GenerateContent(ctx, []llms.Message{
		llms.MessageFromTextParts("tool", "x"),
	})
	assert.ErrorIs(t, err, llms.ErrUnexpectedRole)
}
