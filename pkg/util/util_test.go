package util

import (
	"bytes"
	"testing"

	"github.com/nalgeon/be"
	"github.com/xplshn/minic/pkg/config"
	"github.com/xplshn/minic/pkg/token"
)

func TestReporterCollects(t *testing.T) {
	r := NewReporter(config.NewConfig(), nil)
	be.True(t, !r.HasErrors())

	r.Error(token.Token{Type: token.Ident, Line: 3, Column: 5}, "name '%s' is not defined", "b")
	r.Warn(config.WarnShadow, token.Token{Type: token.Ident, Line: 4}, "shadowed")
	r.Warn(config.WarnDynamicIndex, token.Token{Type: token.Ident, Line: 5}, "disabled by default")
	r.Error(token.Token{Type: token.EOF}, "unexpected end of input")

	be.Equal(t, r.ErrorCount(), 2)
	be.Equal(t, len(r.Diagnostics()), 3)
	errs := r.Errors()
	be.Equal(t, errs[0].String(), "3: name 'b' is not defined")
	be.Equal(t, errs[1].Where(), "EOF")
}

func TestReporterPrintsCaret(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter(config.NewConfig(), &out)
	r.SetSource(SourceFileRecord{Name: "prog.mc", Content: []rune("int x;\nbool b = 1 + 2;\n")})
	r.Error(token.Token{Type: token.Ident, Line: 2, Column: 6, Len: 1}, "bad")

	want := "prog.mc:2:6: error: bad\n  bool b = 1 + 2;\n       ^\n"
	be.Equal(t, out.String(), want)
}

func TestReporterWarningSuffix(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter(config.NewConfig(), &out)
	r.Warn(config.WarnShadow, token.Token{Type: token.EOF}, "x hides a global")
	be.Equal(t, out.String(), "<input>:EOF: warning: x hides a global [-Wshadow]\n")
	be.Equal(t, r.ErrorCount(), 0)
}

func TestFatalColorsOnlyTerminals(t *testing.T) {
	var plain, colored bytes.Buffer
	writeFatal(&plain, false, "could not read file '%s'", "a.mc")
	writeFatal(&colored, true, "could not read file '%s'", "a.mc")
	be.Equal(t, plain.String(), "minic: error: could not read file 'a.mc'\n")
	be.Equal(t, colored.String(), "minic: \033[31merror:\033[0m could not read file 'a.mc'\n")
}
