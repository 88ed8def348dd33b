package prompts

import (
	"strings"

	"github.com/cockroachdb/errors"
)

type fstringNode struct {
	text     string
	variable bool
}

// parseFString splits an f-string template into literal and variable nodes.
// `{{` and `}}` produce literal braces, names are letters, digits and `_`.
func parseFString(tmpl string) ([]fstringNode, error) {
	var nodes []fstringNode
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			nodes = append(nodes, fstringNode{text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch c {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				lit.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return nil, errors.Wrapf(ErrInvalidTemplate, "unclosed '{' at position %d", i)
			}
			name := tmpl[i+1 : i+1+end]
			if !isIdentifier(name) {
				return nil, errors.Wrapf(ErrInvalidTemplate, "invalid placeholder %q at position %d", name, i)
			}
			flush()
			nodes = append(nodes, fstringNode{text: name, variable: true})
			i += end + 1
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				lit.WriteByte('}')
				i++
				continue
			}
			return nil, errors.Wrapf(ErrInvalidTemplate, "single '}' at position %d", i)
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	return nodes, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
