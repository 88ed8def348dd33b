package bedrock

import "github.com/effective-security/ragchat/pkg/llms/bedrock/internal/bedrockclient"

// Model identifiers supported by this package.
const (
	ModelAnthropicClaudeV3Haiku   = "anthropic.claude-3-haiku-20240307-v1:0"
	ModelAnthropicClaudeV35Sonnet = "anthropic.claude-3-5-sonnet-20240620-v1:0"
	ModelAmazonTitanEmbedTextV2   = "amazon.titan-embed-text-v2:0"
)

// InvokeModelAPI is the subset of *bedrockruntime.Client used by the LLM.
type InvokeModelAPI = bedrockclient.InvokeModelAPI

type options struct {
	modelID          string
	embeddingModelID string
	region           string
	client           InvokeModelAPI
}

// Option is an option for the Bedrock LLM.
type Option func(*options)

// WithModel allows setting a custom modelId.
func WithModel(modelID string) Option {
	return func(o *options) {
		o.modelID = modelID
	}
}

// WithEmbeddingModel allows setting the model used by CreateEmbedding.
func WithEmbeddingModel(modelID string) Option {
	return func(o *options) {
		o.embeddingModelID = modelID
	}
}

// WithClient allows setting a custom bedrockruntime.Client.
// If not set, the client is created from the default AWS configuration.
func WithClient(client InvokeModelAPI) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithRegion sets the AWS region used when the client is created
// from the default AWS configuration.
func WithRegion(region string) Option {
	return func(o *options) {
		o.region = region
	}
}
