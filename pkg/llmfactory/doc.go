// Package llmfactory creates chat and embedding models from a configuration file,
// with per-chain model selection across OpenAI, Anthropic, Google AI and Bedrock providers.
package llmfactory
