package prompts

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/ragchat/pkg/llms"
)

// ChatPromptValue is a prompt value that is a list of chat messages.
type ChatPromptValue []llms.Message

// Messages returns the Message slice.
func (v ChatPromptValue) Messages() []llms.Message {
	return v
}

// MessagePromptTemplate renders a single message of the given role.
type MessagePromptTemplate struct {
	Role   llms.Role
	Prompt PromptTemplate
}

// NewSystemMessagePromptTemplate returns an f-string system message prompt.
func NewSystemMessagePromptTemplate(template string, inputVariables []string) MessagePromptTemplate {
	return MessagePromptTemplate{Role: llms.RoleSystem, Prompt: NewPromptTemplate(template, inputVariables)}
}

// FormatMessage renders the message.
func (p MessagePromptTemplate) FormatMessage(values map[string]any) (llms.Message, error) {
	text, err := p.Prompt.Format(values)
	if err != nil {
		return llms.Message{}, err
	}
	return llms.MessageFromTextParts(p.Role, text), nil
}

// ChatPromptTemplate is a sequence of message prompts.
type ChatPromptTemplate struct {
	Messages []MessagePromptTemplate
}

// NewChatPromptTemplate returns a chat prompt of the messages.
func NewChatPromptTemplate(messages ...MessagePromptTemplate) ChatPromptTemplate {
	return ChatPromptTemplate{Messages: messages}
}

// Validate returns ErrMissingPlaceholder if none of the messages
// references a required placeholder.
func (p ChatPromptTemplate) Validate(required ...string) error {
	for _, name := range required {
		found := false
		for _, m := range p.Messages {
			err := m.Prompt.Validate(name)
			if err == nil {
				found = true
				break
			}
			if !errors.Is(err, ErrMissingPlaceholder) {
				return errors.Wrapf(err, "%s message", m.Role)
			}
		}
		if !found {
			return errors.Wrapf(ErrMissingPlaceholder, "{%s}", name)
		}
	}
	return nil
}

// FormatPrompt renders all messages.
func (p ChatPromptTemplate) FormatPrompt(values map[string]any) (ChatPromptValue, error) {
	msgs := make([]llms.Message, 0, len(p.Messages))
	for _, m := range p.Messages {
		msg, err := m.FormatMessage(values)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to format %s message", m.Role)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}
