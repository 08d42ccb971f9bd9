package lexer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nalgeon/be"
	"github.com/xplshn/minic/pkg/config"
	"github.com/xplshn/minic/pkg/token"
	"github.com/xplshn/minic/pkg/util"
)

type lexed struct {
	Type  token.Type
	Value string
	Line  int
}

func scan(t *testing.T, src string, cfg *config.Config) ([]lexed, *util.Reporter) {
	t.Helper()
	if cfg == nil {
		cfg = config.NewConfig()
	}
	rep := util.NewReporter(cfg, nil)
	var out []lexed
	for _, tok := range Tokenize([]rune(src), cfg, rep) {
		out = append(out, lexed{tok.Type, tok.Value, tok.Line})
	}
	return out, rep
}

func TestDeclarationTokens(t *testing.T) {
	got, rep := scan(t, "int x = 1 + y;\nbool b = x <= 2 && !false;", nil)
	be.Equal(t, rep.ErrorCount(), 0)
	want := []lexed{
		{token.Int, "int", 1}, {token.Ident, "x", 1}, {token.Eq, "", 1}, {token.IntLit, "1", 1},
		{token.Plus, "", 1}, {token.Ident, "y", 1}, {token.Semi, "", 1},
		{token.Bool, "bool", 2}, {token.Ident, "b", 2}, {token.Eq, "", 2}, {token.Ident, "x", 2},
		{token.Lte, "", 2}, {token.IntLit, "2", 2}, {token.AndAnd, "", 2}, {token.Not, "", 2},
		{token.False, "false", 2}, {token.Semi, "", 2}, {token.EOF, "", 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestNumberLiterals(t *testing.T) {
	got, rep := scan(t, "42 0x1F 0o17 0b101 007 1.5 .25 3. 2e3", nil)
	be.Equal(t, rep.ErrorCount(), 0)
	want := []lexed{
		{token.IntLit, "42", 1}, {token.IntLit, "31", 1}, {token.IntLit, "15", 1}, {token.IntLit, "5", 1},
		{token.IntLit, "7", 1}, {token.FloatLit, "1.5", 1}, {token.FloatLit, ".25", 1},
		{token.FloatLit, "3.", 1}, {token.FloatLit, "2e3", 1}, {token.EOF, "", 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestRadixLiteralsCanBeDisabled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatRadixLiterals, false)
	got, _ := scan(t, "0x1F", cfg)
	be.Equal(t, got[0], lexed{token.IntLit, "0", 1})
	be.Equal(t, got[1], lexed{token.Ident, "x1F", 1})
}

func TestCharLiterals(t *testing.T) {
	got, rep := scan(t, `'a' "b" '\n' '\''`, nil)
	be.Equal(t, rep.ErrorCount(), 0)
	be.Equal(t, got[0].Value, "a")
	be.Equal(t, got[1].Value, "b")
	be.Equal(t, got[2].Value, "\n")
	be.Equal(t, got[3].Value, "'")
	be.Equal(t, got[3].Type, token.CharLit)
}

func TestComments(t *testing.T) {
	got, rep := scan(t, "/* a\n comment */ x // rest\ny", nil)
	be.Equal(t, rep.ErrorCount(), 0)
	be.Equal(t, got, []lexed{{token.Ident, "x", 2}, {token.Ident, "y", 3}, {token.EOF, "", 3}})

	_, rep = scan(t, "x /* never closed", nil)
	be.Equal(t, rep.ErrorCount(), 1)
	be.Equal(t, rep.Errors()[0].Where(), "EOF")
}

func TestIllegalCharactersAreSkipped(t *testing.T) {
	got, rep := scan(t, "a % b & c", nil)
	be.Equal(t, rep.ErrorCount(), 2)
	be.Equal(t, rep.Errors()[0].Message, "illegal character '%'")
	be.Equal(t, len(got), 4)
}

func TestBadCharLiteral(t *testing.T) {
	_, rep := scan(t, "'ab' 'c", nil)
	be.Equal(t, rep.ErrorCount(), 2)
	be.Equal(t, rep.Errors()[0].Message, "character literal must contain exactly one character, got 2")
	be.Equal(t, rep.Errors()[1].Message, "unterminated character literal")
}
