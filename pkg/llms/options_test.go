package llms_test

import (
	"testing"

	"github.com/effective-security/ragchat/pkg/llms"
	"github.com/stretchr/testify/assert"
)

func TestOptions(t *testing.T) {
	meta := map[string]any{"test": "test"}
	stopWords := []string{"stop"}
	opts := []llms.CallOption{
		llms.WithModel("test"),
		llms.WithMaxTokens(100),
		llms.WithTemperature(0.5),
		llms.WithStopWords(stopWords),
		llms.WithTopP(0.5),
		llms.WithSeed(123),
		llms.WithMetadata(meta),
	}

	cfg := llms.NewCallOptions(opts...)

	expected := llms.CallOptions{
		Model:       "test",
		MaxTokens:   100,
		Temperature: 0.5,
		StopWords:   stopWords,
		TopP:        0.5,
		Seed:        123,
		Metadata:    meta,
	}
	assert.Equal(t, expected, cfg)

	// later options override earlier ones
	cfg = llms.NewCallOptions(llms.WithOptions(expected), llms.WithTemperature(1.5))
	assert.Equal(t, 1.5, cfg.Temperature)
	assert.Equal(t, "test", cfg.Model)
}
