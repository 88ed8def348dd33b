package chains

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/ragchat/pkg/llms/openai"
	"github.com/effective-security/ragchat/pkg/llmfactory"
	"github.com/effective-security/ragchat/pkg/prompts"
	"github.com/effective-security/ragchat/pkg/schema"
)

// DefaultModel is the model used by MakeChain.
const DefaultModel = openai.DefaultModel

// MakeChain returns a conversational retrieval chain backed by the OpenAI
// DefaultModel, configured with the temperature and the API key.
// The key falls back to the OPENAI_API_KEY environment variable when empty.
// No network call is made, the retriever is borrowed and never closed.
func MakeChain(retriever schema.Retriever, returnSourceDocuments bool, temperature float64, apiKey string) (*ConversationalRetrievalQA, error) {
	if retriever == nil {
		return nil, errors.WithStack(ErrNilRetriever)
	}

	model, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithModel(DefaultModel),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create OpenAI model")
	}

	return NewConversationalRetrievalQA(model, retriever,
		WithQATemplate(prompts.QATemplate),
		WithCondenseTemplate(prompts.CondenseQuestionTemplate),
		WithReturnSourceDocuments(returnSourceDocuments),
		WithTemperature(temperature),
	)
}

// CondenseModelSuffix is appended to the chain name to look up the
// condense stage model in llmfactory.Config.ChainModels.
const CondenseModelSuffix = "_condense"

// NewFromFactory returns a chain named name with the model configured for
// the chain in the factory. The condense stage uses the model configured for
// name+CondenseModelSuffix, which falls back to the factory defaults.
func NewFromFactory(f llmfactory.Factory, name string, retriever schema.Retriever, opts ...Option) (*ConversationalRetrievalQA, error) {
	model, err := f.ChainModel(name)
	if err != nil {
		return nil, err
	}
	condense, err := f.ChainModel(name + CondenseModelSuffix)
	if err != nil {
		return nil, err
	}

	all := append([]Option{WithName(name), WithCondenseModel(condense)}, opts...)
	return NewConversationalRetrievalQA(model, retriever, all...)
}
