package bedrock

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/ragchat/pkg/llms"
	"github.com/effective-security/ragchat/pkg/llms/bedrock/internal/bedrockclient"
)

const defaultModel = ModelAnthropicClaudeV3Haiku

// LLM is a Bedrock LLM implementation.
type LLM struct {
	modelID          string
	embeddingModelID string
	client           *bedrockclient.Client
}

// New creates a new Bedrock LLM implementation.
func New(ctx context.Context, opts ...Option) (*LLM, error) {
	o := &options{
		modelID:          defaultModel,
		embeddingModelID: ModelAmazonTitanEmbedTextV2,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.client == nil {
		var loadOpts []func(*config.LoadOptions) error
		if o.region != "" {
			loadOpts = append(loadOpts, config.WithRegion(o.region))
		}
		cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, errors.Wrap(err, "bedrock: failed to load AWS config")
		}
		o.client = bedrockruntime.NewFromConfig(cfg)
	}

	return &LLM{
		client:           bedrockclient.NewClient(o.client),
		modelID:          o.modelID,
		embeddingModelID: o.embeddingModelID,
	}, nil
}

// GetName implements the Model interface.
func (l *LLM) GetName() string {
	return l.modelID
}

// GetProviderType implements the Model interface.
func (l *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderBedrock
}

// GenerateContent implements llms.Model.
func (l *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{
		Model: l.modelID,
	}
	for _, opt := range options {
		opt(&opts)
	}

	return l.client.CreateCompletion(ctx, opts.Model, processMessages(messages), opts)
}

// CreateEmbedding creates embeddings for the given input texts.
func (l *LLM) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	return l.client.CreateEmbedding(ctx, l.embeddingModelID, texts)
}

func processMessages(messages []llms.Message) []bedrockclient.Message {
	bedrockMsgs := make([]bedrockclient.Message, 0, len(messages))
	for _, m := range messages {
		bedrockMsgs = append(bedrockMsgs, bedrockclient.Message{
			Role:    m.Role,
			Content: m.GetText(),
		})
	}
	return bedrockMsgs
}

var (
	_ llms.Model    = (*LLM)(nil)
	_ llms.Embedder = (*LLM)(nil)
)
