// Package sttest extracts compiler test cases from Markdown documents.
//
// A test case is a heading of the form "Test: <name>" followed by fenced
// code blocks: an ``st`` fence with the source program, then either a ``c``
// fence with the expected translation unit or an ``errors`` fence with the
// expected diagnostics (one "line:col: Kind" prefix per line). An optional
// ``toml`` fence supplies a per-case compiler config.
package sttest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Case is one extracted compiler test case.
type Case struct {
	Name       string
	Source     string
	Config     string   // TOML config text, "" for defaults
	WantC      string   // expected C output (success cases)
	WantErrors []string // expected diagnostic prefixes (failure cases)
}

// ExtractCases parses a Markdown document and returns its test cases in
// document order.
func ExtractCases(markdownContent []byte) ([]Case, error) {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(markdownContent))

	var cases []Case
	var current *Case

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := node.(type) {
		case *ast.Heading:
			heading := headingText(n, markdownContent)
			if !strings.HasPrefix(heading, "Test: ") {
				return ast.WalkContinue, nil
			}
			if current != nil {
				if err := validate(current); err != nil {
					return ast.WalkStop, err
				}
				cases = append(cases, *current)
			}
			current = &Case{Name: strings.TrimPrefix(heading, "Test: ")}

		case *ast.FencedCodeBlock:
			lang := string(n.Language(markdownContent))
			content := fenceContent(n, markdownContent)
			if current == nil {
				if lang == "st" || lang == "c" || lang == "errors" || lang == "toml" {
					return ast.WalkStop, fmt.Errorf("%s fence found outside of a test case", lang)
				}
				return ast.WalkContinue, nil
			}
			switch lang {
			case "st":
				current.Source = content
			case "c":
				current.WantC = content
			case "toml":
				current.Config = content
			case "errors":
				for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
					if line != "" {
						current.WantErrors = append(current.WantErrors, line)
					}
				}
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	if current != nil {
		if err := validate(current); err != nil {
			return nil, err
		}
		cases = append(cases, *current)
	}
	return cases, nil
}

func validate(c *Case) error {
	if c.Source == "" {
		return fmt.Errorf("test %q: missing st fence", c.Name)
	}
	if c.WantC == "" && len(c.WantErrors) == 0 {
		return fmt.Errorf("test %q: needs a c or errors fence", c.Name)
	}
	if c.WantC != "" && len(c.WantErrors) > 0 {
		return fmt.Errorf("test %q: c and errors fences are mutually exclusive", c.Name)
	}
	return nil
}

func headingText(n *ast.Heading, source []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
		}
	}
	return buf.String()
}

func fenceContent(n *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return buf.String()
}
