package util

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/xplshn/minic/pkg/config"
	"github.com/xplshn/minic/pkg/token"
	"golang.org/x/term"
)

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// Diagnostic is a single problem found while compiling one source file.
type Diagnostic struct {
	Severity Severity
	Tok      token.Token
	Message  string
	Warning  config.Warning
}

// Where renders the diagnostic position: a line number, or EOF.
func (d Diagnostic) Where() string {
	if d.Tok.Type == token.EOF {
		return "EOF"
	}
	return strconv.Itoa(d.Tok.Line)
}

func (d Diagnostic) String() string { return d.Where() + ": " + d.Message }

// SourceFileRecord tracks the name and content of the file being compiled.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

// Reporter accumulates the diagnostics of one compilation. When out is
// non-nil every diagnostic is also printed as it is reported.
type Reporter struct {
	cfg    *config.Config
	out    io.Writer
	color  bool
	source SourceFileRecord
	diags  []Diagnostic
	errors int
}

func NewReporter(cfg *config.Config, out io.Writer) *Reporter {
	r := &Reporter{cfg: cfg, out: out, source: SourceFileRecord{Name: "<input>"}}
	if f, ok := out.(*os.File); ok {
		r.color = term.IsTerminal(int(f.Fd()))
	}
	return r
}

func (r *Reporter) SetSource(rec SourceFileRecord) { r.source = rec }

// Error records an error diagnostic at tok.
func (r *Reporter) Error(tok token.Token, format string, args ...interface{}) {
	d := Diagnostic{Severity: SeverityError, Tok: tok, Message: fmt.Sprintf(format, args...)}
	r.diags = append(r.diags, d)
	r.errors++
	r.print(d)
}

// Warn records a warning diagnostic if the corresponding warning is enabled.
func (r *Reporter) Warn(wt config.Warning, tok token.Token, format string, args ...interface{}) {
	if r.cfg != nil && !r.cfg.IsWarningEnabled(wt) {
		return
	}
	d := Diagnostic{Severity: SeverityWarning, Tok: tok, Message: fmt.Sprintf(format, args...), Warning: wt}
	r.diags = append(r.diags, d)
	r.print(d)
}

func (r *Reporter) ErrorCount() int { return r.errors }

func (r *Reporter) HasErrors() bool { return r.errors > 0 }

func (r *Reporter) Diagnostics() []Diagnostic { return r.diags }

// Errors returns only the error diagnostics, in report order.
func (r *Reporter) Errors() []Diagnostic {
	var errs []Diagnostic
	for _, d := range r.diags {
		if d.Severity == SeverityError {
			errs = append(errs, d)
		}
	}
	return errs
}

func (r *Reporter) paint(code, s string) string {
	if !r.color {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

func (r *Reporter) print(d Diagnostic) {
	if r.out == nil {
		return
	}
	if d.Tok.Type == token.EOF {
		fmt.Fprintf(r.out, "%s:EOF: ", r.source.Name)
	} else {
		fmt.Fprintf(r.out, "%s:%d:%d: ", r.source.Name, d.Tok.Line, d.Tok.Column)
	}
	switch d.Severity {
	case SeverityError:
		fmt.Fprintf(r.out, "%s %s\n", r.paint("31", "error:"), d.Message)
	case SeverityWarning:
		name := ""
		if r.cfg != nil {
			name = r.cfg.Warnings[d.Warning].Name
		}
		fmt.Fprintf(r.out, "%s %s [-W%s]\n", r.paint("33", "warning:"), d.Message, name)
	}
	r.printErrorLine(d.Tok)
}

// printErrorLine prints the source line and a caret indicating the position
func (r *Reporter) printErrorLine(tok token.Token) {
	if tok.Type == token.EOF || tok.Line <= 0 || len(r.source.Content) == 0 {
		return
	}
	content := r.source.Content
	lineNum := tok.Line
	lineStart := 0
	for i, c := range content {
		if lineNum <= 1 {
			break
		}
		if c == '\n' {
			lineNum--
			lineStart = i + 1
		}
	}
	if lineNum > 1 {
		return
	}
	lineEnd := len(content)
	for i := lineStart; i < len(content); i++ {
		if content[i] == '\n' {
			lineEnd = i
			break
		}
	}

	fmt.Fprintf(r.out, "  %s\n", string(content[lineStart:lineEnd]))
	if tok.Column < 1 {
		return
	}
	caret := "^"
	if tok.Len > 1 {
		caret += strings.Repeat("~", tok.Len-1)
	}
	fmt.Fprintf(r.out, "  %s%s\n", strings.Repeat(" ", tok.Column-1), r.paint("32", caret))
}

// Fatal prints a driver-level error and exits, for problems that are not
// tied to a source position.
func Fatal(format string, args ...interface{}) {
	writeFatal(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())), format, args...)
	os.Exit(1)
}

func writeFatal(w io.Writer, color bool, format string, args ...interface{}) {
	label := "error:"
	if color {
		label = "\033[31m" + label + "\033[0m"
	}
	fmt.Fprintf(w, "minic: %s %s\n", label, fmt.Sprintf(format, args...))
}
