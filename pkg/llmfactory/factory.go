package llmfactory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/ragchat/pkg/llms"
	"github.com/effective-security/ragchat/pkg/llms/anthropic"
	"github.com/effective-security/ragchat/pkg/llms/bedrock"
	"github.com/effective-security/ragchat/pkg/llms/googleai"
	"github.com/effective-security/ragchat/pkg/llms/openai"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/ragchat/pkg", "llmfactory")

// DefaultKey is the key of ChainModels used for chains without own mapping.
const DefaultKey = "default"

// NewLLM is a wrapper for CreateLLM to allow for overriding the default implementation.
var NewLLM = CreateLLM

// NewEmbedder is a wrapper for CreateEmbedder to allow for overriding the default implementation.
var NewEmbedder = CreateEmbedder

// Factory is the interface for creating and managing LLM models.
type Factory interface {
	// DefaultModel returns the default LLM model.
	DefaultModel() (llms.Model, error)
	// ModelByType returns an LLM model by its type, e.g.
	// OPENAI, ANTHROPIC, GOOGLEAI, BEDROCK
	ModelByType(providerType string) (llms.Model, error)
	// ModelByName returns an LLM model by its name,
	// if the model is not found, it will return the default model.
	ModelByName(preferredModels ...string) (llms.Model, error)
	// ChainModel returns the model configured for the chain.
	ChainModel(chainName string, preferredModels ...string) (llms.Model, error)
	// Embedder returns the embedding model of the embedding provider.
	Embedder() (llms.Embedder, error)
}

// Load returns factory from configuration file
func Load(location string) (Factory, error) {
	cfg, err := LoadConfig(location)
	if err != nil {
		return nil, err
	}
	return New(cfg), nil
}

type factory struct {
	cfg *Config

	defaultProvider *ProviderConfig
	chainModels     map[string][]string
	byType          map[string]llms.Model
	byName          map[string]llms.Model
	embedder        llms.Embedder
	lock            sync.Mutex
}

// New creates a new LLM factory
func New(cfg *Config) Factory {
	f := &factory{
		cfg:         cfg,
		byType:      make(map[string]llms.Model),
		byName:      make(map[string]llms.Model),
		chainModels: make(map[string][]string),
	}

	for k, v := range cfg.ChainModels {
		f.chainModels[k] = slices.Clone(v)
	}

	if cfg.DefaultProvider != "" {
		f.defaultProvider = cfg.provider(cfg.DefaultProvider)
	}
	if f.defaultProvider == nil && len(f.cfg.Providers) > 0 {
		f.defaultProvider = f.cfg.Providers[0]
	}

	return f
}

func providerType(cfg *ProviderConfig) llms.ProviderType {
	t := strings.ToUpper(cfg.API.APIType)
	if t == "OPEN_AI" {
		return llms.ProviderOpenAI
	}
	return llms.ProviderType(t)
}

// CreateLLM returns a chat model of the provider,
// the first of preferredModels available from the provider is used.
func CreateLLM(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	model := cfg.FindModel(preferredModels...)

	var llm llms.Model
	var err error
	switch providerType(cfg) {
	case llms.ProviderOpenAI:
		llm, err = newOpenAI(cfg, model)
	case llms.ProviderAnthropic:
		llm, err = newAnthropic(cfg, model)
	case llms.ProviderGoogleAI:
		llm, err = newGoogleAI(cfg, model)
	case llms.ProviderBedrock:
		llm, err = newBedrock(cfg, model)
	default:
		return nil, errors.Errorf("unsupported provider type: %s", cfg.API.APIType)
	}
	if err != nil {
		return nil, err
	}
	return llm, nil
}

// CreateEmbedder returns an embedding model of the provider.
func CreateEmbedder(cfg *ProviderConfig) (llms.Embedder, error) {
	var embedder llms.Embedder
	var err error
	switch providerType(cfg) {
	case llms.ProviderOpenAI:
		embedder, err = newOpenAI(cfg, cfg.DefaultModel)
	case llms.ProviderGoogleAI:
		embedder, err = newGoogleAI(cfg, cfg.DefaultModel)
	case llms.ProviderBedrock:
		embedder, err = newBedrock(cfg, cfg.DefaultModel)
	default:
		return nil, errors.Errorf("provider type does not support embeddings: %s", cfg.API.APIType)
	}
	if err != nil {
		return nil, err
	}
	return embedder, nil
}

func newOpenAI(cfg *ProviderConfig, model string) (*openai.LLM, error) {
	opts := []openai.Option{openai.WithModel(model)}
	if cfg.Token != "" {
		opts = append(opts, openai.WithToken(cfg.Token))
	}
	if cfg.API.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.API.BaseURL))
	}
	if cfg.API.OrgID != "" {
		opts = append(opts, openai.WithOrganization(cfg.API.OrgID))
	}
	if cfg.EmbeddingModel != "" {
		opts = append(opts, openai.WithEmbeddingModel(cfg.EmbeddingModel))
	}
	return openai.New(opts...)
}

func newAnthropic(cfg *ProviderConfig, model string) (*anthropic.LLM, error) {
	opts := []anthropic.Option{anthropic.WithModel(model)}
	if cfg.Token != "" {
		opts = append(opts, anthropic.WithToken(cfg.Token))
	}
	if cfg.API.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.API.BaseURL))
	}
	return anthropic.New(opts...)
}

func newGoogleAI(cfg *ProviderConfig, model string) (*googleai.GoogleAI, error) {
	opts := []googleai.Option{googleai.WithDefaultModel(model)}
	if cfg.Token != "" {
		opts = append(opts, googleai.WithAPIKey(cfg.Token))
	}
	if cfg.API.BaseURL != "" {
		opts = append(opts, googleai.WithBaseURL(cfg.API.BaseURL))
	}
	if cfg.EmbeddingModel != "" {
		opts = append(opts, googleai.WithDefaultEmbeddingModel(cfg.EmbeddingModel))
	}
	return googleai.New(context.Background(), opts...)
}

func newBedrock(cfg *ProviderConfig, model string) (*bedrock.LLM, error) {
	opts := []bedrock.Option{bedrock.WithModel(model)}
	if cfg.API.Region != "" {
		opts = append(opts, bedrock.WithRegion(cfg.API.Region))
	}
	if cfg.EmbeddingModel != "" {
		opts = append(opts, bedrock.WithEmbeddingModel(cfg.EmbeddingModel))
	}
	return bedrock.New(context.Background(), opts...)
}

// DefaultModel returns the default model of the default provider
func (f *factory) DefaultModel() (llms.Model, error) {
	if len(f.cfg.Providers) == 0 || f.defaultProvider == nil {
		return nil, errors.New("no providers configured")
	}

	return NewLLM(f.defaultProvider, f.defaultProvider.DefaultModel)
}

func (f *factory) ModelByType(providerType string) (llms.Model, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if client, ok := f.byType[providerType]; ok {
		return client, nil
	}

	for _, cfg := range f.cfg.Providers {
		if strings.EqualFold(cfg.API.APIType, providerType) {
			model, err := NewLLM(cfg)
			if err != nil {
				return nil, err
			}

			logger.KV(xlog.DEBUG,
				"status", "created_llm",
				"type", cfg.API.APIType,
				"name", cfg.Name)

			f.byType[providerType] = model
			return model, nil
		}
	}
	return nil, errors.Errorf("provider not found for type: %s", providerType)
}

func (f *factory) ModelByName(modelNames ...string) (llms.Model, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	for _, modelName := range modelNames {
		if client, ok := f.byName[modelName]; ok {
			return client, nil
		}

		for _, cfg := range f.cfg.Providers {
			if modelName == cfg.DefaultModel || slices.Contains(cfg.AvailableModels, modelName) {
				model, err := NewLLM(cfg, modelName)
				if err != nil {
					logger.KV(xlog.ERROR,
						"reason", "NewLLM",
						"type", cfg.API.APIType,
						"model", modelName,
						"err", err.Error(),
					)
					continue
				}

				logger.KV(xlog.DEBUG,
					"status", "created_llm",
					"type", cfg.API.APIType,
					"model", modelName,
					"name", cfg.Name)

				f.byName[modelName] = model
				return model, nil
			}
		}
	}
	return f.DefaultModel()
}

// ChainModel returns a chain model by its name.
func (f *factory) ChainModel(chainName string, preferredModels ...string) (llms.Model, error) {
	if modelNames, ok := f.chainModels[chainName]; ok {
		return f.ModelByName(modelNames...)
	}

	if modelNames, ok := f.chainModels[DefaultKey]; ok {
		return f.ModelByName(modelNames...)
	}

	return f.ModelByName(preferredModels...)
}

func (f *factory) Embedder() (llms.Embedder, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.embedder != nil {
		return f.embedder, nil
	}

	provider := f.defaultProvider
	if f.cfg.EmbeddingProvider != "" {
		provider = f.cfg.provider(f.cfg.EmbeddingProvider)
	}
	if provider == nil {
		return nil, errors.New("no embedding provider configured")
	}

	embedder, err := NewEmbedder(provider)
	if err != nil {
		return nil, err
	}

	logger.KV(xlog.DEBUG,
		"status", "created_embedder",
		"type", provider.API.APIType,
		"name", provider.Name)

	f.embedder = embedder
	return embedder, nil
}
