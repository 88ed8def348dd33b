package chains

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/ragchat/pkg/callbacks"
	"github.com/effective-security/ragchat/pkg/chatmodel"
	"github.com/effective-security/ragchat/pkg/llms"
	"github.com/effective-security/ragchat/pkg/llmutils"
	"github.com/effective-security/ragchat/pkg/metricskey"
	"github.com/effective-security/ragchat/pkg/prompts"
	"github.com/effective-security/ragchat/pkg/schema"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/ragchat/pkg", "chains")

// DefaultChainName is the name of a chain created without WithName.
const DefaultChainName = "conversational_retrieval_qa"

// DocumentSeparator joins the page contents stuffed into {context}.
const DocumentSeparator = "\n\n"

// Keys of the map based Call.
const (
	InputKeyQuestion            = prompts.VarQuestion
	InputKeyChatHistory         = prompts.VarChatHistory
	OutputKeyAnswer             = "text"
	OutputKeyStandaloneQuestion = "standalone_question"
	OutputKeySourceDocuments    = "source_documents"
)

// Stages of a chain run, reported in metrics and errors.
const (
	StageValidate = "validate"
	StageCondense = "condense"
	StageRetrieve = "retrieve"
	StageAnswer   = "answer"
)

var (
	// ErrNilModel is returned when the chain is created without a model.
	ErrNilModel = errors.New("model is required")
	// ErrNilRetriever is returned when the chain is created without a retriever.
	ErrNilRetriever = errors.New("retriever is required")
	// ErrMissingInput is returned by Call when the input has no question,
	// or a value of unsupported type.
	ErrMissingInput = errors.New("missing or invalid chain input")
)

// ChatTurn is one prior exchange of the conversation.
type ChatTurn = prompts.ChatTurn

// Result is the output of a chain run.
type Result struct {
	// Answer is the text of the answer.
	Answer string `json:"answer" yaml:"answer"`
	// StandaloneQuestion is the rephrased question sent to the retriever.
	StandaloneQuestion string `json:"standalone_question,omitempty" yaml:"standalone_question,omitempty"`
	// SourceDocuments are the retrieved documents in retriever order,
	// set only when the chain returns sources.
	SourceDocuments []schema.Document `json:"source_documents,omitempty" yaml:"source_documents,omitempty"`
}

// ConversationalRetrievalQA answers a follow up question using the chat
// history and the documents found by a retriever.
// The chain keeps no state between runs and is safe for concurrent use.
type ConversationalRetrievalQA struct {
	name                  string
	model                 llms.Model
	condenseModel         llms.Model
	retriever             schema.Retriever
	qaPrompt              prompts.PromptTemplate
	condensePrompt        prompts.PromptTemplate
	systemPrompt          *prompts.MessagePromptTemplate
	returnSourceDocuments bool
	temperature           float64
	callOptions           []llms.CallOption
	callback              callbacks.Handler
}

// NewConversationalRetrievalQA returns a chain using the model for both
// stages, the default prompts unless replaced by options.
// No network call is made.
func NewConversationalRetrievalQA(model llms.Model, retriever schema.Retriever, opts ...Option) (*ConversationalRetrievalQA, error) {
	if model == nil {
		return nil, errors.WithStack(ErrNilModel)
	}
	if retriever == nil {
		return nil, errors.WithStack(ErrNilRetriever)
	}

	c := &ConversationalRetrievalQA{
		name:           DefaultChainName,
		model:          model,
		retriever:      retriever,
		qaPrompt:       prompts.DefaultQAPrompt(),
		condensePrompt: prompts.DefaultCondensePrompt(),
		callback:       callbacks.NewNoop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.condenseModel == nil {
		c.condenseModel = c.model
	}
	return c, nil
}

// Name returns the name of the chain.
func (c *ConversationalRetrievalQA) Name() string {
	return c.name
}

// Model returns the model of the answer stage.
func (c *ConversationalRetrievalQA) Model() llms.Model {
	return c.model
}

// CondenseModel returns the model of the condense stage.
func (c *ConversationalRetrievalQA) CondenseModel() llms.Model {
	return c.condenseModel
}

// Retriever returns the retriever.
func (c *ConversationalRetrievalQA) Retriever() schema.Retriever {
	return c.retriever
}

// QAPrompt returns the answer prompt.
func (c *ConversationalRetrievalQA) QAPrompt() prompts.PromptTemplate {
	return c.qaPrompt
}

// CondensePrompt returns the condensation prompt.
func (c *ConversationalRetrievalQA) CondensePrompt() prompts.PromptTemplate {
	return c.condensePrompt
}

// SystemPrompt returns the system message template of the answer stage, nil when not set.
func (c *ConversationalRetrievalQA) SystemPrompt() *prompts.PromptTemplate {
	if c.systemPrompt == nil {
		return nil
	}
	p := c.systemPrompt.Prompt
	return &p
}

// ReturnSourceDocuments reports whether results carry the retrieved documents.
func (c *ConversationalRetrievalQA) ReturnSourceDocuments() bool {
	return c.returnSourceDocuments
}

// CallOptions returns the options applied to every model call.
func (c *ConversationalRetrievalQA) CallOptions() llms.CallOptions {
	return llms.NewCallOptions(c.getCallOptions()...)
}

func (c *ConversationalRetrievalQA) getCallOptions() []llms.CallOption {
	opts := make([]llms.CallOption, 0, len(c.callOptions)+1)
	opts = append(opts, llms.WithTemperature(c.temperature))
	return append(opts, c.callOptions...)
}

// Validate returns prompts.ErrMissingPlaceholder if a prompt does not
// reference the placeholders the chain fills.
// The QA prompt must reference them itself, a system prompt does not count.
func (c *ConversationalRetrievalQA) Validate() error {
	if err := c.condenseChatPrompt().Validate(prompts.VarChatHistory, prompts.VarQuestion); err != nil {
		return errors.Wrap(err, "invalid condense prompt")
	}
	if err := c.qaPrompt.Validate(prompts.VarContext, prompts.VarQuestion); err != nil {
		return errors.Wrap(err, "invalid QA prompt")
	}
	if c.systemPrompt != nil {
		if _, err := c.systemPrompt.Prompt.Placeholders(); err != nil {
			return errors.Wrap(err, "invalid system prompt")
		}
	}
	return nil
}

func (c *ConversationalRetrievalQA) condenseChatPrompt() prompts.ChatPromptTemplate {
	return prompts.NewChatPromptTemplate(prompts.MessagePromptTemplate{Role: llms.RoleHuman, Prompt: c.condensePrompt})
}

func (c *ConversationalRetrievalQA) answerChatPrompt() prompts.ChatPromptTemplate {
	var msgs []prompts.MessagePromptTemplate
	if c.systemPrompt != nil {
		msgs = append(msgs, *c.systemPrompt)
	}
	msgs = append(msgs, prompts.MessagePromptTemplate{Role: llms.RoleHuman, Prompt: c.qaPrompt})
	return prompts.NewChatPromptTemplate(msgs...)
}

// Ask answers the question in the context of the history.
// The history is rendered in order, an empty history is allowed.
func (c *ConversationalRetrievalQA) Ask(ctx context.Context, question string, history []ChatTurn) (*Result, error) {
	return c.run(ctx, question, history, prompts.FormatChatHistory(history))
}

// Call is the map based variant of Ask.
// The input must have a string InputKeyQuestion. InputKeyChatHistory is optional,
// and can be []ChatTurn, [][]string of question and answer pairs, or a preformatted string.
// The output has OutputKeyAnswer, OutputKeyStandaloneQuestion and,
// when the chain returns sources, OutputKeySourceDocuments.
func (c *ConversationalRetrievalQA) Call(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	question, ok := inputs[InputKeyQuestion].(string)
	if !ok {
		return nil, errors.Wrapf(ErrMissingInput, "%q", InputKeyQuestion)
	}

	var history []ChatTurn
	var historyText string
	switch v := inputs[InputKeyChatHistory].(type) {
	case nil:
	case []ChatTurn:
		history = v
		historyText = prompts.FormatChatHistory(v)
	case [][]string:
		for _, pair := range v {
			if len(pair) != 2 {
				return nil, errors.Wrapf(ErrMissingInput, "%q: expected question and answer pairs", InputKeyChatHistory)
			}
			history = append(history, ChatTurn{Question: pair[0], Answer: pair[1]})
		}
		historyText = prompts.FormatChatHistory(history)
	case string:
		historyText = v
	default:
		return nil, errors.Wrapf(ErrMissingInput, "%q: unsupported type %T", InputKeyChatHistory, v)
	}

	res, err := c.run(ctx, question, history, historyText)
	if err != nil {
		return nil, err
	}

	out := map[string]any{
		OutputKeyAnswer:             res.Answer,
		OutputKeyStandaloneQuestion: res.StandaloneQuestion,
	}
	if c.returnSourceDocuments {
		out[OutputKeySourceDocuments] = res.SourceDocuments
	}
	return out, nil
}

func (c *ConversationalRetrievalQA) run(ctx context.Context, question string, history []ChatTurn, historyText string) (*Result, error) {
	started := time.Now()
	defer metricskey.PerfChainCall.MeasureSince(started, c.name)

	if chatmodel.GetChatContext(ctx) == nil {
		ctx = chatmodel.WithChatContext(ctx, chatmodel.NewChatContext("", "", nil))
	}

	c.callback.OnChainStart(ctx, c.name, question, history)

	res, stage, err := c.ask(ctx, question, historyText)
	if err != nil {
		metricskey.StatsChainCallsFailed.IncrCounter(1, c.name, stage)
		logger.ContextKV(ctx, xlog.ERROR,
			"chain", c.name,
			"chat_id", chatmodel.GetChatID(ctx),
			"stage", stage,
			"err", err.Error(),
		)
		c.callback.OnChainError(ctx, c.name, err)
		return nil, err
	}

	metricskey.StatsChainCallsSucceeded.IncrCounter(1, c.name)
	c.callback.OnChainEnd(ctx, c.name, res.Answer, res.SourceDocuments)
	return res, nil
}

func (c *ConversationalRetrievalQA) ask(ctx context.Context, question, historyText string) (*Result, string, error) {
	// prompts are checked before any model call
	if err := c.Validate(); err != nil {
		return nil, StageValidate, err
	}

	condenseMsgs, err := c.condenseChatPrompt().FormatPrompt(map[string]any{
		prompts.VarChatHistory: historyText,
		prompts.VarQuestion:    question,
	})
	if err != nil {
		return nil, StageCondense, errors.Wrap(err, "failed to format condense prompt")
	}

	standalone, err := c.generate(ctx, StageCondense, c.condenseModel, condenseMsgs.Messages())
	if err != nil {
		return nil, StageCondense, errors.Wrap(err, "failed to condense question")
	}
	standalone = llmutils.TrimQuotes(standalone)

	logger.ContextKV(ctx, xlog.DEBUG,
		"chain", c.name,
		"chat_id", chatmodel.GetChatID(ctx),
		"question", slices.StringUpto(question, 64),
		"standalone", slices.StringUpto(standalone, 64),
	)
	c.callback.OnCondenseEnd(ctx, c.name, question, standalone)

	docs, err := c.retrieve(ctx, standalone)
	if err != nil {
		return nil, StageRetrieve, errors.Wrap(err, "failed to retrieve documents")
	}

	qaMsgs, err := c.answerChatPrompt().FormatPrompt(map[string]any{
		prompts.VarContext:  schema.JoinPageContents(docs, DocumentSeparator),
		prompts.VarQuestion: standalone,
	})
	if err != nil {
		return nil, StageAnswer, errors.Wrap(err, "failed to format QA prompt")
	}

	answer, err := c.generate(ctx, StageAnswer, c.model, qaMsgs.Messages())
	if err != nil {
		return nil, StageAnswer, errors.Wrap(err, "failed to generate answer")
	}

	res := &Result{
		Answer:             answer,
		StandaloneQuestion: standalone,
	}
	if c.returnSourceDocuments {
		res.SourceDocuments = docs
	}
	return res, "", nil
}

func (c *ConversationalRetrievalQA) retrieve(ctx context.Context, query string) ([]schema.Document, error) {
	started := time.Now()
	docs, err := c.retriever.GetRelevantDocuments(ctx, query)
	metricskey.PerfRetrieverCall.MeasureSince(started, c.name)
	if err != nil {
		return nil, err
	}
	metricskey.StatsRetrieverDocuments.IncrCounter(float64(len(docs)), c.name)

	logger.ContextKV(ctx, xlog.DEBUG,
		"chain", c.name,
		"chat_id", chatmodel.GetChatID(ctx),
		"documents", len(docs),
	)
	c.callback.OnRetrieverEnd(ctx, c.name, query, docs)
	return docs, nil
}

// generate sends the messages and returns the text of the first choice.
func (c *ConversationalRetrievalQA) generate(ctx context.Context, stage string, model llms.Model, messages []llms.Message) (string, error) {
	modelName := model.GetName()

	c.callback.OnLLMCallStart(ctx, c.name, model, messages)

	bytesSent := llmutils.CountMessagesContentSize(messages)
	metricskey.StatsLLMMessagesSent.IncrCounter(float64(len(messages)), c.name, modelName)
	metricskey.StatsLLMBytesSent.IncrCounter(float64(bytesSent), c.name, modelName)

	started := time.Now()
	resp, err := model.GenerateContent(ctx, messages, c.getCallOptions()...)
	metricskey.PerfLLMCall.MeasureSince(started, c.name, stage)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", errors.WithStack(llms.ErrEmptyResponse)
	}

	c.callback.OnLLMCallEnd(ctx, c.name, model, resp)

	metricskey.StatsLLMBytesReceived.IncrCounter(float64(llmutils.CountResponseContentSize(resp)), c.name, modelName)
	tokensIn, tokensOut, tokensTotal := llmutils.CountTokens(resp)
	metricskey.StatsLLMInputTokens.IncrCounter(float64(tokensIn), c.name, modelName)
	metricskey.StatsLLMOutputTokens.IncrCounter(float64(tokensOut), c.name, modelName)
	metricskey.StatsLLMTotalTokens.IncrCounter(float64(tokensTotal), c.name, modelName)

	if len(resp.Choices) == 0 {
		return "", errors.WithStack(llms.ErrEmptyResponse)
	}
	return resp.Choices[0].Content, nil
}
