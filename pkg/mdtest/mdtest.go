// Package mdtest extracts compiler test cases from Markdown documents.
//
// A test starts at a heading of the form "Test: <name>" and is made of one
// `minic` fence holding the program and one or more assertion fences.
package mdtest

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const InputFence = "minic"

type AssertionType string

const (
	AssertIR       AssertionType = "ir"       // the IR dump of the whole program
	AssertErrors   AssertionType = "errors"   // error diagnostics, one "line: message" per line
	AssertWarnings AssertionType = "warnings" // warning diagnostics, same format
	AssertRun      AssertionType = "run"      // the value returned by main
	AssertAST      AssertionType = "ast"      // the flattened, type-annotated tree
)

var assertionTypes = map[string]AssertionType{
	string(AssertIR):       AssertIR,
	string(AssertErrors):   AssertErrors,
	string(AssertWarnings): AssertWarnings,
	string(AssertRun):      AssertRun,
	string(AssertAST):      AssertAST,
}

type Assertion struct {
	Type    AssertionType
	Content string
	Line    int
}

type TestCase struct {
	Name       string
	Line       int
	Input      string
	Assertions []Assertion
}

// Assertion returns the first assertion of the given type.
func (tc *TestCase) Assertion(typ AssertionType) (Assertion, bool) {
	for _, a := range tc.Assertions {
		if a.Type == typ {
			return a, true
		}
	}
	return Assertion{}, false
}

func LoadFile(path string) ([]TestCase, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cases, err := Extract(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cases, nil
}

// Extract parses a Markdown document and returns its test cases in order.
// Untagged code blocks are ignored; any other fence outside of a test, or a
// fence with an unknown language, is an error.
func Extract(source []byte) ([]TestCase, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var cases []TestCase
	var cur *TestCase
	flush := func() error {
		if cur == nil {
			return nil
		}
		if err := cur.validate(); err != nil {
			return err
		}
		cases = append(cases, *cur)
		return nil
	}

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := node.(type) {
		case *ast.Heading:
			title := headingText(n, source)
			name, ok := strings.CutPrefix(title, "Test: ")
			if !ok {
				return ast.WalkSkipChildren, nil
			}
			if err := flush(); err != nil {
				return ast.WalkStop, err
			}
			cur = &TestCase{Name: strings.TrimSpace(name), Line: lineOf(n, source)}
			return ast.WalkSkipChildren, nil

		case *ast.FencedCodeBlock:
			lang := string(n.Language(source))
			line := lineOf(n, source)
			if lang == "" {
				return ast.WalkContinue, nil
			}
			typ, isAssertion := assertionTypes[lang]
			if lang != InputFence && !isAssertion {
				return ast.WalkStop, fmt.Errorf("line %d: unknown fence language '%s'", line, lang)
			}
			if cur == nil {
				return ast.WalkStop, fmt.Errorf("line %d: %s fence found outside of a test", line, lang)
			}
			content := strings.TrimRight(blockContent(n, source), "\n")
			if lang == InputFence {
				if cur.Input != "" {
					return ast.WalkStop, fmt.Errorf("line %d: multiple input fences in test '%s'", line, cur.Name)
				}
				cur.Input = content
				return ast.WalkContinue, nil
			}
			cur.Assertions = append(cur.Assertions, Assertion{Type: typ, Content: content, Line: line})
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return cases, nil
}

func (tc *TestCase) validate() error {
	if tc.Input == "" {
		return fmt.Errorf("test '%s' has no %s fence", tc.Name, InputFence)
	}
	if len(tc.Assertions) == 0 {
		return fmt.Errorf("test '%s' has no assertion fences", tc.Name)
	}
	return nil
}

func headingText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := c.(*ast.Text); ok && entering {
			buf.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func blockContent(n *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return buf.String()
}

// lineOf returns the 1-based line a block starts on. Headings and fences
// report the position of their first content line.
func lineOf(n ast.Node, source []byte) int {
	if n.Lines().Len() == 0 {
		return 1
	}
	return bytes.Count(source[:n.Lines().At(0).Start], []byte{'\n'}) + 1
}
