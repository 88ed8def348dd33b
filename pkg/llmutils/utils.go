// Package llmutils provides helpers to print and measure model payloads.
package llmutils

import (
	"fmt"
	"io"
	"strings"

	"github.com/effective-security/ragchat/pkg/llms"
	"github.com/effective-security/ragchat/pkg/schema"
	"github.com/effective-security/x/values"
	"gopkg.in/yaml.v3"
)

// TrimQuotes removes matching quotes the model may put around
// a rephrased question.
func TrimQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'' || first == '`') {
			return strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}

// ToYAML returns val as YAML, or empty string.
func ToYAML(val any) string {
	js, _ := yaml.Marshal(val)
	return string(js)
}

// BackticksYAML wraps YAML in a markdown code block.
func BackticksYAML(js string) string {
	return "\n```yaml\n" + strings.TrimSpace(js) + "\n```\n"
}

func roleTitle(r llms.Role) string {
	switch r {
	case llms.RoleAI:
		return "AI"
	case "":
		return "Unknown"
	}
	return strings.ToUpper(string(r[:1])) + string(r[1:])
}

// PrintMessages is a debugging helper for Message.
func PrintMessages(w io.Writer, msgs []llms.Message) {
	for _, mc := range msgs {
		fmt.Fprintf(w, "%s: %s", roleTitle(mc.Role), mc.GetContent())
	}
}

// PrintDocuments writes the page content of each document,
// with metadata as YAML when verbose is set.
func PrintDocuments(w io.Writer, docs []schema.Document, verbose bool) {
	for i, doc := range docs {
		fmt.Fprintf(w, "[%d] score=%.4f\n%s\n", i+1, doc.Score, EnsureEndsWithNewline(doc.PageContent))
		if verbose && len(doc.Metadata) > 0 {
			fmt.Fprint(w, BackticksYAML(ToYAML(doc.Metadata)))
		}
	}
}

// CountMessagesContentSize counts the size of the content in the messages
func CountMessagesContentSize(msgs []llms.Message) uint64 {
	var size uint64
	for _, mc := range msgs {
		size += uint64(len(mc.Role))
		for _, p := range mc.Parts {
			if pp, ok := p.(llms.TextContent); ok {
				size += uint64(len(pp.Text))
			}
		}
	}
	return size
}

// CountResponseContentSize counts the size of the content in the content response
func CountResponseContentSize(resp *llms.ContentResponse) uint64 {
	var size uint64
	if resp == nil {
		return 0
	}
	for _, choice := range resp.Choices {
		size += uint64(len(choice.Content))
	}
	return size
}

// CountTokens returns token usage reported by the provider
func CountTokens(resp *llms.ContentResponse) (in, out, total int64) {
	if resp == nil {
		return
	}
	for _, choice := range resp.Choices {
		ma := values.MapAny(choice.GenerationInfo)
		in += ma.Int64("InputTokens")
		out += ma.Int64("OutputTokens")
		total += ma.Int64("TotalTokens")
	}
	return
}

// EnsureEndsWithNewline ensures the message ends with a newline,
// it also removes any extra leading and trailing spaces.
func EnsureEndsWithNewline(s string) string {
	s = strings.TrimSpace(s)
	c := len(s)
	if c == 0 {
		return s
	}
	if s[c-1] != '\n' {
		return s + "\n"
	}
	return s
}
