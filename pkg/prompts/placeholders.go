package prompts

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"text/template"
	"text/template/parse"

	"github.com/Masterminds/sprig/v3"
	"github.com/cockroachdb/errors"
	"github.com/nikolalohinski/gonja"
)

// goTemplatePlaceholders returns the top level fields referenced by a go-template,
// either as `.name` outside of range and with blocks, or as `$.name` anywhere.
func goTemplatePlaceholders(tmpl string) ([]string, error) {
	t, err := template.New("prompt").Funcs(sprig.TxtFuncMap()).Parse(tmpl)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidTemplate, "%s", err.Error())
	}

	var names []string
	add := func(name string) {
		if name != "" && !slices.Contains(names, name) {
			names = append(names, name)
		}
	}

	var walk func(node parse.Node, rooted bool)
	walk = func(node parse.Node, rooted bool) {
		switch n := node.(type) {
		case *parse.ListNode:
			if n == nil {
				return
			}
			for _, c := range n.Nodes {
				walk(c, rooted)
			}
		case *parse.ActionNode:
			walk(n.Pipe, rooted)
		case *parse.PipeNode:
			if n == nil {
				return
			}
			for _, c := range n.Cmds {
				walk(c, rooted)
			}
		case *parse.CommandNode:
			for _, a := range n.Args {
				walk(a, rooted)
			}
		case *parse.FieldNode:
			if rooted {
				add(n.Ident[0])
			}
		case *parse.VariableNode:
			if len(n.Ident) > 1 && n.Ident[0] == "$" {
				add(n.Ident[1])
			}
		case *parse.ChainNode:
			walk(n.Node, rooted)
		case *parse.IfNode:
			walk(n.Pipe, rooted)
			walk(n.List, rooted)
			walk(n.ElseList, rooted)
		case *parse.RangeNode:
			// dot is the element inside the body
			walk(n.Pipe, rooted)
			walk(n.List, false)
			walk(n.ElseList, rooted)
		case *parse.WithNode:
			walk(n.Pipe, rooted)
			walk(n.List, false)
			walk(n.ElseList, rooted)
		case *parse.TemplateNode:
			walk(n.Pipe, rooted)
		}
	}

	if t.Tree != nil {
		walk(t.Tree.Root, true)
	}

	defined := t.Templates()
	sort.Slice(defined, func(i, j int) bool { return defined[i].Name() < defined[j].Name() })
	for _, d := range defined {
		if d.Name() != t.Name() && d.Tree != nil {
			walk(d.Tree.Root, true)
		}
	}
	return names, nil
}

// jinja2Placeholders renders the template with a marker value for each of
// the candidates and returns the candidates whose marker reaches the output.
// Values consumed only by statements, such as a loop over a list, are not reported.
func jinja2Placeholders(tmpl string, candidates []string) ([]string, error) {
	t, err := gonja.FromString(tmpl)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidTemplate, "%s", err.Error())
	}

	var unique []string
	for _, name := range candidates {
		if !slices.Contains(unique, name) {
			unique = append(unique, name)
		}
	}

	markers := make(map[string]any, len(unique))
	for i, name := range unique {
		markers[name] = placeholderMarker(i, name)
	}
	out, err := t.Execute(markers)
	if err != nil {
		return nil, errors.Wrap(err, "failed to render jinja2 template")
	}
	out = strings.ToLower(out)

	var names []string
	for i, name := range unique {
		if strings.Contains(out, strings.ToLower(placeholderMarker(i, name))) {
			names = append(names, name)
		}
	}
	return names, nil
}

func placeholderMarker(i int, name string) string {
	return fmt.Sprintf("__placeholder_%d_%s__", i, name)
}
