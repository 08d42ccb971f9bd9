package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nalgeon/be"
	"github.com/xplshn/minic/pkg/ast"
	"github.com/xplshn/minic/pkg/config"
	"github.com/xplshn/minic/pkg/util"
)

func parse(t *testing.T, src string) (*ast.Node, *util.Reporter, error) {
	t.Helper()
	cfg := config.NewConfig()
	rep := util.NewReporter(cfg, nil)
	root, err := ParseSource([]rune(src), cfg, rep)
	return root, rep, err
}

// outline renders the flattened tree as indented node strings.
func outline(root *ast.Node) string {
	var sb strings.Builder
	for _, e := range ast.Flatten(root) {
		fmt.Fprintf(&sb, "%s%s\n", strings.Repeat("  ", e.Depth), e.Node)
	}
	return sb.String()
}

func TestParseProgram(t *testing.T) {
	src := `const N = 3;
int arr[3];
float f(int a, float b) {
    int i = 0;
    while (i < N) {
        arr[i] = a * 2;
        i = i + 1;
    }
    if (!(i == N)) return 0.0; else ;
    return b;
}
void main(void) { f(1, 2.5); break; }
`
	root, rep, err := parse(t, src)
	be.Err(t, err, nil)
	be.Equal(t, rep.ErrorCount(), 0)

	want := `Program()
  ConstDeclaration(name="N")
    IntegerLiteral(value=3)
  ArrayDeclaration(name="arr")
    SimpleType(name="int")
    IntegerLiteral(value=3)
  FuncDeclaration(name="f")
    FuncParameter(name="a")
      SimpleType(name="int")
    FuncParameter(name="b")
      SimpleType(name="float")
    SimpleType(name="float")
    CompoundStatement()
      LocalDeclaration(name="i")
        SimpleType(name="int")
        IntegerLiteral(value=0)
      WhileStatement()
        BinOp(op="<")
          ReadLocation()
            SimpleLocation(name="i")
          ReadLocation()
            SimpleLocation(name="N")
        CompoundStatement()
          WriteLocation()
            ArraySimpleLocation(name="arr")
              ReadLocation()
                SimpleLocation(name="i")
            BinOp(op="*")
              ReadLocation()
                SimpleLocation(name="a")
              IntegerLiteral(value=2)
          WriteLocation()
            SimpleLocation(name="i")
            BinOp(op="+")
              ReadLocation()
                SimpleLocation(name="i")
              IntegerLiteral(value=1)
      IfStatement()
        UnaryOp(op="!")
          BinOp(op="==")
            ReadLocation()
              SimpleLocation(name="i")
            ReadLocation()
              SimpleLocation(name="N")
        ReturnStatement()
          FloatLiteral(value=0)
        NullStatement()
      ReturnStatement()
        ReadLocation()
          SimpleLocation(name="b")
  FuncDeclaration(name="main")
    SimpleType(name="void")
    CompoundStatement()
      ExprStatement()
        FuncCall(name="f")
          IntegerLiteral(value=1)
          FloatLiteral(value=2.5)
      BreakStatement()
`
	if diff := cmp.Diff(want, outline(root)); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestPrecedence(t *testing.T) {
	root, _, err := parse(t, "bool b = 1 + 2 * 3 < 4 || x && !y;")
	be.Err(t, err, nil)
	want := `Program()
  VarDeclaration(name="b")
    SimpleType(name="bool")
    BinOp(op="||")
      BinOp(op="<")
        BinOp(op="+")
          IntegerLiteral(value=1)
          BinOp(op="*")
            IntegerLiteral(value=2)
            IntegerLiteral(value=3)
        IntegerLiteral(value=4)
      BinOp(op="&&")
        ReadLocation()
          SimpleLocation(name="x")
        UnaryOp(op="!")
          ReadLocation()
            SimpleLocation(name="y")
`
	if diff := cmp.Diff(want, outline(root)); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestLinesAreRecorded(t *testing.T) {
	root, _, err := parse(t, "int x;\n\nint y = x;\n")
	be.Err(t, err, nil)
	decls := root.Data.(ast.ProgramNode).Decls
	be.Equal(t, decls[0].Line(), 1)
	be.Equal(t, decls[1].Line(), 3)
}

func TestUnknownTypeNameParses(t *testing.T) {
	root, _, err := parse(t, "string s;")
	be.Err(t, err, nil)
	decl := root.Data.(ast.ProgramNode).Decls[0].Data.(ast.VarDeclarationNode)
	be.Equal(t, decl.DataType.Data.(ast.SimpleTypeNode).Name, "string")
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		src   string
		where string
		msg   string
	}{
		{"int x = ;", "1", "syntax error at ';', expected an expression"},
		{"int f() {", "EOF", "syntax error: unexpected end of input, expected '}'"},
		{"x = 1;", "1", "syntax error at 'x', expected a declaration"},
		{"void f() { 1 = 2; }", "1", "syntax error: invalid target for assignment"},
		{"void f() { int a[2] = 1; }", "1", "syntax error: array 'a' cannot have an initializer"},
		{"void f() { f(); int x; }", "1", "syntax error: declarations must precede statements in a block"},
	}
	for _, tt := range tests {
		root, rep, err := parse(t, tt.src)
		be.Err(t, err, ErrSyntax)
		be.Equal(t, root, (*ast.Node)(nil))
		be.Equal(t, rep.ErrorCount(), 1)
		d := rep.Errors()[0]
		be.Equal(t, d.Where(), tt.where)
		be.Equal(t, d.Message, tt.msg)
	}
}
