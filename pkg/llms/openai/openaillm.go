package openai

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/ragchat/pkg/llms"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/ragchat/pkg/llms", "openai")

var (
	// ErrMissingToken is returned when the API key is not provided.
	ErrMissingToken = errors.New("missing the OpenAI API key, set it in the OPENAI_API_KEY environment variable")
	// ErrEmptyResponse is returned when the API returns no choices.
	ErrEmptyResponse = errors.Wrap(llms.ErrEmptyResponse, "openai")
	// ErrUnexpectedResponseLength is returned when the number of embeddings
	// does not match the number of inputs.
	ErrUnexpectedResponseLength = errors.New("unexpected length of response")
)

// LLM is an OpenAI chat model.
type LLM struct {
	client         openai.Client
	model          string
	embeddingModel string
}

var (
	_ llms.Model    = (*LLM)(nil)
	_ llms.Embedder = (*LLM)(nil)
)

// New returns a new OpenAI LLM.
// No network call is made until the model is used.
func New(opts ...Option) (*LLM, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	o.token = values.StringsCoalesce(o.token, os.Getenv(tokenEnvVarName))
	if o.token == "" {
		return nil, ErrMissingToken
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(o.token),
		option.WithMaxRetries(o.maxRetries),
	}
	if baseURL := values.StringsCoalesce(o.baseURL, os.Getenv(baseURLEnvVarName)); baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	if org := values.StringsCoalesce(o.organization, os.Getenv(organizationEnvVarName)); org != "" {
		reqOpts = append(reqOpts, option.WithOrganization(org))
	}
	if o.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(o.httpClient))
	}

	return &LLM{
		client:         openai.NewClient(reqOpts...),
		model:          values.StringsCoalesce(o.model, os.Getenv(modelEnvVarName), DefaultModel),
		embeddingModel: values.StringsCoalesce(o.embeddingModel, DefaultEmbeddingModel),
	}, nil
}

// GetName implements the Model interface.
func (o *LLM) GetName() string {
	return o.model
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderOpenAI
}

// GenerateContent implements the Model interface.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.NewCallOptions(options...)

	chatMsgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, mc := range messages {
		text := mc.GetText()
		switch mc.Role {
		case llms.RoleSystem:
			chatMsgs = append(chatMsgs, openai.SystemMessage(text))
		case llms.RoleAI:
			chatMsgs = append(chatMsgs, openai.AssistantMessage(text))
		case llms.RoleHuman, llms.RoleGeneric:
			chatMsgs = append(chatMsgs, openai.UserMessage(text))
		default:
			return nil, errors.Wrapf(llms.ErrUnexpectedRole, "role %v not supported", mc.Role)
		}
	}

	req := openai.ChatCompletionNewParams{
		Model:       values.StringsCoalesce(opts.Model, o.model),
		Messages:    chatMsgs,
		Temperature: openai.Float(opts.Temperature),
	}
	if opts.MaxTokens > 0 {
		req.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.TopP > 0 {
		req.TopP = openai.Float(opts.TopP)
	}
	if opts.Seed != 0 {
		req.Seed = openai.Int(int64(opts.Seed))
	}
	if len(opts.StopWords) > 0 {
		req.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: opts.StopWords}
	}

	result, err := o.client.Chat.Completions.New(ctx, req)
	if err != nil {
		logger.ContextKV(ctx, xlog.DEBUG, "model", req.Model, "err", err.Error())
		return nil, errors.Wrap(err, "failed to create openai chat completion")
	}
	if len(result.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	choices := make([]*llms.ContentChoice, len(result.Choices))
	for i, c := range result.Choices {
		choices[i] = &llms.ContentChoice{
			Content:    c.Message.Content,
			StopReason: c.FinishReason,
			GenerationInfo: map[string]any{
				"InputTokens":  result.Usage.PromptTokens,
				"OutputTokens": result.Usage.CompletionTokens,
				"TotalTokens":  result.Usage.TotalTokens,
			},
		}
	}
	return &llms.ContentResponse{Choices: choices}, nil
}

// CreateEmbedding creates embeddings for the given input texts.
func (o *LLM) CreateEmbedding(ctx context.Context, inputTexts []string) ([][]float32, error) {
	resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: inputTexts},
		Model: o.embeddingModel,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create openai embeddings")
	}
	if len(resp.Data) == 0 {
		return nil, ErrEmptyResponse
	}
	if len(inputTexts) != len(resp.Data) {
		return nil, errors.Wrapf(ErrUnexpectedResponseLength, "expected %d, got %d", len(inputTexts), len(resp.Data))
	}

	embeddings := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(embeddings) {
			return nil, errors.Errorf("unexpected embedding index: %d", d.Index)
		}
		embeddings[d.Index] = toFloat32(d.Embedding)
	}
	return embeddings, nil
}

func toFloat32(v []float64) []float32 {
	res := make([]float32, len(v))
	for i, f := range v {
		res[i] = float32(f)
	}
	return res
}
