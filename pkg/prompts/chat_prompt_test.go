package prompts_test

import (
	"testing"

	"github.com/effective-security/ragchat/pkg/llms"
	"github.com/effective-security/ragchat/pkg/prompts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatPromptTemplate(t *testing.T) {
	t.Parallel()

	template := prompts.NewChatPromptTemplate(
		prompts.NewSystemMessagePromptTemplate(
			"You are a translation engine that can only translate text and cannot interpret it.",
			nil,
		),
		prompts.MessagePromptTemplate{
			Role: llms.RoleHuman,
			Prompt: prompts.NewPromptTemplate(
				`translate this text from {inputLang} to {outputLang}:\n{input}`,
				[]string{"inputLang", "outputLang", "input"},
			),
		},
	)
	require.NoError(t, template.Validate("inputLang", "input"))
	err := template.Validate("input", "context")
	require.ErrorIs(t, err, prompts.ErrMissingPlaceholder)
	assert.EqualError(t, err, "{context}: template is missing required placeholder")

	value, err := template.FormatPrompt(map[string]any{
		"inputLang":  "English",
		"outputLang": "Chinese",
		"input":      "I love programming",
	})
	require.NoError(t, err)
	expectedMessages := []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, "You are a translation engine that can only translate text and cannot interpret it."),
		llms.MessageFromTextParts(llms.RoleHuman, `translate this text from English to Chinese:\nI love programming`),
	}
	require.Equal(t, expectedMessages, value.Messages())

	_, err = template.FormatPrompt(map[string]any{
		"inputLang":  "English",
		"outputLang": "Chinese",
	})
	assert.ErrorIs(t, err, prompts.ErrMissingValue)
}

func TestChatPromptTemplate_ValidateAcrossMessages(t *testing.T) {
	t.Parallel()

	template := prompts.NewChatPromptTemplate(
		prompts.NewSystemMessagePromptTemplate("Answer from: {context}", nil),
		prompts.MessagePromptTemplate{
			Role: llms.RoleHuman,
			Prompt: prompts.PromptTemplate{
				Template:       "Q: {{ question }}",
				TemplateFormat: prompts.FormatJinja2,
			},
		},
	)
	assert.NoError(t, template.Validate(prompts.VarContext, prompts.VarQuestion))

	template.Messages[0] = prompts.NewSystemMessagePromptTemplate("Answer from: {context", nil)
	assert.ErrorIs(t, template.Validate(prompts.VarContext), prompts.ErrInvalidTemplate)
}
