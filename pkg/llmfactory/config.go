package llmfactory

import (
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/configloader"
	"github.com/go-playground/validator/v10"
)

// Config specifies the LLM providers and the model selection for chains.
type Config struct {
	// Providers specifies the list of providers to use
	Providers []*ProviderConfig `json:"providers" yaml:"providers" validate:"required,min=1,dive,required"`
	// DefaultProvider specifies the default provider to use,
	// the first provider is used if not set.
	DefaultProvider string `json:"default_provider,omitempty" yaml:"default_provider,omitempty"`
	// ChainModels specifies the mapping of chains to models.
	// key is the chain name, value is the list of preferred model names.
	// Use `default: [<model_name>]` as the default model for chains.
	ChainModels map[string][]string `json:"chain_models,omitempty" yaml:"chain_models,omitempty"`
	// EmbeddingProvider specifies the name of the provider used for embeddings,
	// the default provider is used if not set.
	EmbeddingProvider string `json:"embedding_provider,omitempty" yaml:"embedding_provider,omitempty"`
}

// ProviderConfig specifies a single LLM provider
type ProviderConfig struct {
	Name string `json:"name" yaml:"name" validate:"required"`
	// Token is the API key, if empty the provider reads it from its environment variable.
	Token           string    `json:"token,omitempty" yaml:"token,omitempty"`
	DefaultModel    string    `json:"default_model" yaml:"default_model" validate:"required"`
	AvailableModels []string  `json:"available_models,omitempty" yaml:"available_models,omitempty"`
	EmbeddingModel  string    `json:"embedding_model,omitempty" yaml:"embedding_model,omitempty"`
	API             APIConfig `json:"api" yaml:"api"`
}

// APIConfig specifies the endpoint of a provider
type APIConfig struct {
	// APIType specifies the type of API to use:
	// OPENAI|ANTHROPIC|GOOGLEAI|BEDROCK
	APIType string `json:"api_type" yaml:"api_type" validate:"required,oneof=OPENAI OPEN_AI ANTHROPIC GOOGLEAI BEDROCK"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" validate:"omitempty,url"`
	// OrgID specifies which organization's quota and billing should be used when making API requests.
	OrgID string `json:"org_id,omitempty" yaml:"org_id,omitempty"`
	// Region is the cloud region, used by BEDROCK
	Region string `json:"region,omitempty" yaml:"region,omitempty"`
}

// FindModel returns the first of the models available from the provider,
// or the provider's default model.
func (c *ProviderConfig) FindModel(models ...string) string {
	for _, model := range models {
		if model == c.DefaultModel || slices.Contains(c.AvailableModels, model) {
			return model
		}
	}
	return c.DefaultModel
}

// Validate returns an error if the configuration is incomplete.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid LLM configuration")
	}
	for _, name := range []string{c.DefaultProvider, c.EmbeddingProvider} {
		if name != "" && c.provider(name) == nil {
			return errors.Errorf("invalid LLM configuration: provider not found: %s", name)
		}
	}
	return nil
}

func (c *Config) provider(name string) *ProviderConfig {
	for _, p := range c.Providers {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// LoadConfig from file
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file == "" {
		return cfg, nil
	}

	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
