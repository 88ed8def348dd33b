package prompts

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/cockroachdb/errors"
	"github.com/nikolalohinski/gonja"
)

var (
	// ErrMissingPlaceholder is returned when a template does not reference
	// a placeholder the caller requires.
	ErrMissingPlaceholder = errors.New("template is missing required placeholder")
	// ErrMissingValue is returned when a template references a variable
	// that was not supplied.
	ErrMissingValue = errors.New("missing value for template variable")
	// ErrInvalidTemplate is returned when a template can not be parsed.
	ErrInvalidTemplate = errors.New("invalid template")
)

// TemplateFormat is the syntax of a prompt template.
type TemplateFormat string

const (
	// FormatFString uses `{name}` placeholders, `{{` and `}}` are literal braces.
	FormatFString TemplateFormat = "f-string"
	// FormatGoTemplate uses text/template syntax with sprig functions.
	FormatGoTemplate TemplateFormat = "go-template"
	// FormatJinja2 uses jinja2 syntax.
	FormatJinja2 TemplateFormat = "jinja2"
)

// PromptTemplate is a template with named placeholders.
type PromptTemplate struct {
	// Template is the prompt template.
	Template string
	// InputVariables are the variables the caller must supply.
	// For FormatFString the variables are discovered from the template when empty.
	InputVariables []string
	// PartialVariables are values applied to every Format call,
	// values passed to Format take precedence.
	PartialVariables map[string]any
	// TemplateFormat is the format of the template, FormatFString by default.
	TemplateFormat TemplateFormat
}

// NewPromptTemplate returns an f-string prompt template.
func NewPromptTemplate(tmpl string, inputVars []string) PromptTemplate {
	return PromptTemplate{
		Template:       tmpl,
		InputVariables: inputVars,
		TemplateFormat: FormatFString,
	}
}

// Placeholders returns the names of the variables referenced by the template.
// For FormatJinja2 only the InputVariables whose value is rendered are returned.
func (p PromptTemplate) Placeholders() ([]string, error) {
	switch p.format() {
	case FormatFString:
		nodes, err := parseFString(p.Template)
		if err != nil {
			return nil, err
		}
		var names []string
		for _, n := range nodes {
			if n.variable && !slices.Contains(names, n.text) {
				names = append(names, n.text)
			}
		}
		return names, nil
	case FormatGoTemplate:
		return goTemplatePlaceholders(p.Template)
	case FormatJinja2:
		return jinja2Placeholders(p.Template, p.InputVariables)
	}
	return nil, errors.Errorf("unsupported template format: %s", p.TemplateFormat)
}

// Validate returns ErrMissingPlaceholder if any of the required
// placeholders is not referenced by the template.
func (p PromptTemplate) Validate(required ...string) error {
	var names []string
	var err error
	if p.format() == FormatJinja2 {
		names, err = jinja2Placeholders(p.Template, append(slices.Clone(p.InputVariables), required...))
	} else {
		names, err = p.Placeholders()
	}
	if err != nil {
		return err
	}
	for _, name := range required {
		if !slices.Contains(names, name) {
			return errors.Wrapf(ErrMissingPlaceholder, "{%s}", name)
		}
	}
	return nil
}

// Format renders the template with the values.
func (p PromptTemplate) Format(values map[string]any) (string, error) {
	all := make(map[string]any, len(values)+len(p.PartialVariables))
	maps.Copy(all, p.PartialVariables)
	maps.Copy(all, values)

	for _, name := range p.InputVariables {
		if _, ok := all[name]; !ok {
			return "", errors.Wrapf(ErrMissingValue, "%q", name)
		}
	}

	switch p.format() {
	case FormatFString:
		return renderFString(p.Template, all)
	case FormatGoTemplate:
		return renderGoTemplate(p.Template, all)
	case FormatJinja2:
		return renderJinja2(p.Template, all)
	}
	return "", errors.Errorf("unsupported template format: %s", p.TemplateFormat)
}

// GetInputVariables returns the input variables of the prompt.
func (p PromptTemplate) GetInputVariables() []string {
	if len(p.InputVariables) == 0 && p.format() != FormatJinja2 {
		names, _ := p.Placeholders()
		return names
	}
	return p.InputVariables
}

func (p PromptTemplate) format() TemplateFormat {
	if p.TemplateFormat == "" {
		return FormatFString
	}
	return p.TemplateFormat
}

func renderGoTemplate(tmpl string, values map[string]any) (string, error) {
	t, err := template.New("prompt").
		Option("missingkey=error").
		Funcs(sprig.TxtFuncMap()).
		Parse(tmpl)
	if err != nil {
		return "", errors.Wrapf(ErrInvalidTemplate, "%s", err.Error())
	}
	var buf bytes.Buffer
	if err = t.Execute(&buf, values); err != nil {
		return "", errors.Wrapf(ErrMissingValue, "%s", err.Error())
	}
	return buf.String(), nil
}

func renderJinja2(tmpl string, values map[string]any) (string, error) {
	t, err := gonja.FromString(tmpl)
	if err != nil {
		return "", errors.Wrapf(ErrInvalidTemplate, "%s", err.Error())
	}
	out, err := t.Execute(values)
	if err != nil {
		return "", errors.Wrap(err, "failed to render jinja2 template")
	}
	return out, nil
}

func renderFString(tmpl string, values map[string]any) (string, error) {
	nodes, err := parseFString(tmpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	for _, n := range nodes {
		if !n.variable {
			buf.WriteString(n.text)
			continue
		}
		v, ok := values[n.text]
		if !ok {
			return "", errors.Wrapf(ErrMissingValue, "%q", n.text)
		}
		fmt.Fprint(&buf, v)
	}
	return buf.String(), nil
}
