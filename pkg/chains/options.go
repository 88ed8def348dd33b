package chains

import (
	"github.com/effective-security/ragchat/pkg/callbacks"
	"github.com/effective-security/ragchat/pkg/llms"
	"github.com/effective-security/ragchat/pkg/prompts"
)

// Option configures a ConversationalRetrievalQA chain.
type Option func(*ConversationalRetrievalQA)

// WithQATemplate sets the answer prompt.
// The template must reference {context} and {question}.
func WithQATemplate(tmpl string) Option {
	return WithQAPrompt(prompts.NewPromptTemplate(tmpl, []string{prompts.VarContext, prompts.VarQuestion}))
}

// WithQAPrompt sets the answer prompt template, for non f-string formats.
func WithQAPrompt(p prompts.PromptTemplate) Option {
	return func(c *ConversationalRetrievalQA) {
		c.qaPrompt = p
	}
}

// WithCondenseTemplate sets the prompt used to rephrase a follow up question.
// The template must reference {chat_history} and {question}.
func WithCondenseTemplate(tmpl string) Option {
	return WithCondensePrompt(prompts.NewPromptTemplate(tmpl, []string{prompts.VarChatHistory, prompts.VarQuestion}))
}

// WithCondensePrompt sets the condensation prompt template.
func WithCondensePrompt(p prompts.PromptTemplate) Option {
	return func(c *ConversationalRetrievalQA) {
		c.condensePrompt = p
	}
}

// WithSystemTemplate sets an f-string system message sent before the answer prompt.
// It can reference {context} and {question}.
func WithSystemTemplate(tmpl string) Option {
	return WithSystemPrompt(prompts.NewPromptTemplate(tmpl, nil))
}

// WithSystemPrompt sets the system message template of the answer stage.
func WithSystemPrompt(p prompts.PromptTemplate) Option {
	return func(c *ConversationalRetrievalQA) {
		c.systemPrompt = &prompts.MessagePromptTemplate{Role: llms.RoleSystem, Prompt: p}
	}
}

// WithReturnSourceDocuments controls whether the retrieved documents
// are returned in the Result.
func WithReturnSourceDocuments(returnSources bool) Option {
	return func(c *ConversationalRetrievalQA) {
		c.returnSourceDocuments = returnSources
	}
}

// WithTemperature sets the sampling temperature of both model calls.
func WithTemperature(temperature float64) Option {
	return func(c *ConversationalRetrievalQA) {
		c.temperature = temperature
	}
}

// WithCallOptions appends options to every model call.
// They are applied after the temperature.
func WithCallOptions(opts ...llms.CallOption) Option {
	return func(c *ConversationalRetrievalQA) {
		c.callOptions = append(c.callOptions, opts...)
	}
}

// WithCallback sets the handler of the chain events.
func WithCallback(handler callbacks.Handler) Option {
	return func(c *ConversationalRetrievalQA) {
		if handler != nil {
			c.callback = handler
		}
	}
}

// WithName sets the name reported in logs, metrics and callbacks.
func WithName(name string) Option {
	return func(c *ConversationalRetrievalQA) {
		if name != "" {
			c.name = name
		}
	}
}

// WithCondenseModel sets a separate model for the condense stage,
// usually a cheaper one.
func WithCondenseModel(model llms.Model) Option {
	return func(c *ConversationalRetrievalQA) {
		c.condenseModel = model
	}
}
