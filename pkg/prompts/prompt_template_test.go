package prompts_test

import (
	"testing"

	"github.com/effective-security/ragchat/pkg/prompts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptTemplate_FString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		values   map[string]any
		expected string
		err      error
	}{
		{
			name:     "simple",
			template: "Hello {name}!",
			values:   map[string]any{"name": "Bob"},
			expected: "Hello Bob!",
		},
		{
			name:     "repeated",
			template: "{a}-{b}-{a}",
			values:   map[string]any{"a": 1, "b": 2.5},
			expected: "1-2.5-1",
		},
		{
			name:     "escaped braces",
			template: `{{"json": "{value}"}}`,
			values:   map[string]any{"value": "x"},
			expected: `{"json": "x"}`,
		},
		{
			name:     "missing value",
			template: "Hello {name}!",
			values:   map[string]any{},
			err:      prompts.ErrMissingValue,
		},
		{
			name:     "unclosed",
			template: "Hello {name",
			err:      prompts.ErrInvalidTemplate,
		},
		{
			name:     "single close",
			template: "Hello name}",
			err:      prompts.ErrInvalidTemplate,
		},
		{
			name:     "bad name",
			template: "Hello {first name}",
			err:      prompts.ErrInvalidTemplate,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := prompts.PromptTemplate{Template: tc.template}
			res, err := p.Format(tc.values)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, res)
		})
	}
}

func TestPromptTemplate_InputVariables(t *testing.T) {
	p := prompts.NewPromptTemplate("Hello {name}", []string{"name", "extra"})
	_, err := p.Format(map[string]any{"name": "Bob"})
	assert.ErrorIs(t, err, prompts.ErrMissingValue)
	assert.Equal(t, []string{"name", "extra"}, p.GetInputVariables())

	p.PartialVariables = map[string]any{"extra": "x", "name": "Alice"}
	res, err := p.Format(map[string]any{"name": "Bob"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Bob", res)

	p = prompts.PromptTemplate{Template: "{b} {a} {b}"}
	assert.Equal(t, []string{"b", "a"}, p.GetInputVariables())
}

func TestPromptTemplate_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, prompts.DefaultQAPrompt().Validate(prompts.VarContext, prompts.VarQuestion))
	assert.Contains(t, prompts.QATemplate, "Those novels must be of 1500 words or more.")
	assert.NoError(t, prompts.DefaultCondensePrompt().Validate(prompts.VarChatHistory, prompts.VarQuestion))

	p := prompts.NewPromptTemplate("Answer {question}", nil)
	err := p.Validate(prompts.VarContext, prompts.VarQuestion)
	require.ErrorIs(t, err, prompts.ErrMissingPlaceholder)
	assert.Contains(t, err.Error(), "{context}")

	p = prompts.NewPromptTemplate("Answer {question", nil)
	assert.ErrorIs(t, p.Validate(prompts.VarQuestion), prompts.ErrInvalidTemplate)

	p = prompts.PromptTemplate{
		Template:       "{{ .question }}",
		InputVariables: []string{"question"},
		TemplateFormat: prompts.FormatGoTemplate,
	}
	assert.NoError(t, p.Validate("question"))
	assert.ErrorIs(t, p.Validate("context"), prompts.ErrMissingPlaceholder)
}

func TestPromptTemplate_Placeholders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		prompt   prompts.PromptTemplate
		expected []string
		err      error
	}{
		{
			name:     "f-string",
			prompt:   prompts.PromptTemplate{Template: "{context} {question} {context}"},
			expected: []string{"context", "question"},
		},
		{
			name: "go-template declared but unused",
			prompt: prompts.PromptTemplate{
				Template:       "Context: {{ .context }}",
				InputVariables: []string{"context", "question"},
				TemplateFormat: prompts.FormatGoTemplate,
			},
			expected: []string{"context"},
		},
		{
			name: "go-template blocks",
			prompt: prompts.PromptTemplate{
				Template:       `{{ if .history }}{{ .history }}{{ end }}{{ range .docs }}{{ .title }}{{ $.question }}{{ end }}{{ with .context | trim }}{{ . }}{{ end }}`,
				TemplateFormat: prompts.FormatGoTemplate,
			},
			expected: []string{"history", "docs", "question", "context"},
		},
		{
			name: "go-template defined",
			prompt: prompts.PromptTemplate{
				Template:       `{{ define "q" }}Q: {{ .question }}{{ end }}{{ .context }} {{ template "q" . }}`,
				TemplateFormat: prompts.FormatGoTemplate,
			},
			expected: []string{"context", "question"},
		},
		{
			name: "go-template invalid",
			prompt: prompts.PromptTemplate{
				Template:       "{{ .context ",
				TemplateFormat: prompts.FormatGoTemplate,
			},
			err: prompts.ErrInvalidTemplate,
		},
		{
			name: "jinja2 rendered only",
			prompt: prompts.PromptTemplate{
				Template:       "{{ context | upper }}{% if question %}!{% endif %}",
				InputVariables: []string{"context", "question"},
				TemplateFormat: prompts.FormatJinja2,
			},
			expected: []string{"context"},
		},
		{
			name: "jinja2 invalid",
			prompt: prompts.PromptTemplate{
				Template:       "{{ context ",
				TemplateFormat: prompts.FormatJinja2,
			},
			err: prompts.ErrInvalidTemplate,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			names, err := tc.prompt.Placeholders()
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, names)
		})
	}
}

func TestPromptTemplate_ValidateFormats(t *testing.T) {
	t.Parallel()

	p := prompts.PromptTemplate{
		Template:       "Context: {{.context}}",
		InputVariables: []string{"context", "question"},
		TemplateFormat: prompts.FormatGoTemplate,
	}
	err := p.Validate(prompts.VarContext, prompts.VarQuestion)
	require.ErrorIs(t, err, prompts.ErrMissingPlaceholder)
	assert.Contains(t, err.Error(), "{question}")

	p.Template = "Context: {{.context}} Question: {{.question}}"
	assert.NoError(t, p.Validate(prompts.VarContext, prompts.VarQuestion))

	// required names are checked even when not declared
	p = prompts.PromptTemplate{
		Template:       "Context: {{ context }}",
		TemplateFormat: prompts.FormatJinja2,
	}
	err = p.Validate(prompts.VarContext, prompts.VarQuestion)
	require.ErrorIs(t, err, prompts.ErrMissingPlaceholder)
	assert.Contains(t, err.Error(), "{question}")

	p.Template = "Context: {{ context }} Question: {{ question | title }}"
	assert.NoError(t, p.Validate(prompts.VarContext, prompts.VarQuestion))
}

func TestPromptTemplate_GoTemplate(t *testing.T) {
	t.Parallel()

	p := prompts.PromptTemplate{
		Template:       `{{ .question | upper }} {{ join ", " .items }}`,
		InputVariables: []string{"question"},
		TemplateFormat: prompts.FormatGoTemplate,
	}
	res, err := p.Format(map[string]any{
		"question": "why",
		"items":    []string{"a", "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, "WHY a, b", res)

	_, err = p.Format(map[string]any{"question": "why"})
	assert.ErrorIs(t, err, prompts.ErrMissingValue)

	p.Template = "{{ .question "
	_, err = p.Format(map[string]any{"question": "why"})
	assert.ErrorIs(t, err, prompts.ErrInvalidTemplate)
}

func TestPromptTemplate_Jinja2(t *testing.T) {
	t.Parallel()

	p := prompts.PromptTemplate{
		Template:       `Q: {{ question }}{% for d in docs %} [{{ d }}]{% endfor %}`,
		InputVariables: []string{"question", "docs"},
		TemplateFormat: prompts.FormatJinja2,
	}
	res, err := p.Format(map[string]any{
		"question": "why",
		"docs":     []string{"D1", "D2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Q: why [D1] [D2]", res)

	_, err = p.Format(map[string]any{"question": "why"})
	assert.ErrorIs(t, err, prompts.ErrMissingValue)
}

func TestPromptTemplate_UnsupportedFormat(t *testing.T) {
	p := prompts.PromptTemplate{Template: "x", TemplateFormat: "mustache"}
	_, err := p.Format(nil)
	assert.EqualError(t, err, "unsupported template format: mustache")
}
