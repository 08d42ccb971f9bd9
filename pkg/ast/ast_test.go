package ast

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nalgeon/be"
	"github.com/xplshn/minic/pkg/token"
	"github.com/xplshn/minic/pkg/types"
)

func tok(line int) token.Token { return token.At(line) }

// int x = 1 + y;
func sampleDecl() *Node {
	sum := NewBinOp(tok(1), "+",
		NewIntegerLiteral(tok(1), 1),
		NewReadLocation(tok(1), NewSimpleLocation(tok(1), "y")))
	return NewVarDeclaration(tok(1), "x", NewSimpleType(tok(1), "int"), sum)
}

func mustPanic(t *testing.T, want string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected a panic containing %q", want)
		}
		be.True(t, strings.Contains(r.(string), want))
	}()
	fn()
}

func TestConstructionChecksFieldFamilies(t *testing.T) {
	lit := NewIntegerLiteral(tok(1), 1)
	stmt := NewNullStatement(tok(1))

	mustPanic(t, "BinOp.left must be a Expression, got NullStatement", func() {
		NewBinOp(tok(1), "+", stmt, lit)
	})
	mustPanic(t, "WriteLocation.location must be a Location", func() {
		NewWriteLocation(tok(1), lit, lit)
	})
	mustPanic(t, "IfStatement.true_block is required", func() {
		NewIfStatement(tok(1), lit, nil, nil)
	})
	mustPanic(t, "CompoundStatement.stmt_list[1] must be a Statement", func() {
		NewCompoundStatement(tok(1), nil, []*Node{stmt, lit})
	})
	mustPanic(t, "FuncDeclaration.params[0] must be a FuncParameter", func() {
		NewFuncDeclaration(tok(1), "f", []*Node{lit}, NewSimpleType(tok(1), "int"), NewCompoundStatement(tok(1), nil, nil))
	})

	// optional fields accept nil
	be.Equal(t, NewReturnStatement(tok(1), nil).Type, ReturnStatement)
	be.Equal(t, NewIfStatement(tok(1), lit, stmt, nil).Type, IfStatement)
}

func TestFamilies(t *testing.T) {
	be.True(t, IntegerLiteral.Is(FamilyLiteral))
	be.True(t, IntegerLiteral.Is(FamilyExpression))
	be.True(t, !BinOp.Is(FamilyLiteral))
	be.True(t, WriteLocation.Is(FamilyStatement))
	be.True(t, ArraySimpleLocation.Is(FamilyLocation))
	be.True(t, SimpleType.Is(FamilyDataType))
	be.Equal(t, FuncParameter.Family(), FamilyNone)
	be.Equal(t, Program.Family(), FamilyNone)
	for nt := Program; nt < nodeTypeCount; nt++ {
		be.True(t, !strings.HasPrefix(nt.String(), "NodeType("))
	}
}

func TestFlattenIsPreOrder(t *testing.T) {
	prog := NewProgram(tok(1), []*Node{sampleDecl()})

	type row struct {
		Depth int
		Kind  string
	}
	var got []row
	for _, e := range Flatten(prog) {
		got = append(got, row{e.Depth, e.Node.Type.String()})
	}
	want := []row{
		{0, "Program"},
		{1, "VarDeclaration"},
		{2, "SimpleType"},
		{2, "BinOp"},
		{3, "IntegerLiteral"},
		{3, "ReadLocation"},
		{4, "SimpleLocation"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Flatten mismatch (-want +got):\n%s", diff)
	}
	be.Equal(t, len(Flatten(nil)), 0)
}

func TestWalkChildrenOrder(t *testing.T) {
	ifStmt := NewIfStatement(tok(2),
		NewBoolLiteral(tok(2), true),
		NewBreakStatement(tok(3)),
		NewNullStatement(tok(4)))

	var kinds []NodeType
	WalkChildren(ifStmt, func(n *Node) { kinds = append(kinds, n.Type) })
	be.Equal(t, kinds, []NodeType{BoolLiteral, BreakStatement, NullStatement})
}

func TestString(t *testing.T) {
	be.Equal(t, sampleDecl().String(), `VarDeclaration(name="x")`)
	be.Equal(t, NewBinOp(tok(1), "<", NewIntegerLiteral(tok(1), 1), NewIntegerLiteral(tok(1), 2)).String(), `BinOp(op="<")`)
	be.Equal(t, NewCharLiteral(tok(1), 'a').String(), `CharLiteral(value='a')`)
	be.Equal(t, NewFloatLiteral(tok(1), 2.5).String(), `FloatLiteral(value=2.5)`)
}

func TestIntConstant(t *testing.T) {
	lit := func(v int64) *Node { return NewIntegerLiteral(tok(1), v) }
	expr := NewBinOp(tok(1), "*", lit(3), NewUnaryOp(tok(1), "-", lit(2)))
	v, ok := IntConstant(expr, nil)
	be.True(t, ok)
	be.Equal(t, v, int64(-6))

	_, ok = IntConstant(NewBinOp(tok(1), "/", lit(1), lit(0)), nil)
	be.True(t, !ok)

	read := NewReadLocation(tok(1), NewSimpleLocation(tok(1), "N"))
	_, ok = IntConstant(read, nil)
	be.True(t, !ok)
	v, ok = IntConstant(NewBinOp(tok(1), "-", read, lit(1)), func(name string) (int64, bool) {
		return 10, name == "N"
	})
	be.True(t, ok)
	be.Equal(t, v, int64(9))
}

func TestWriteDot(t *testing.T) {
	var sb strings.Builder
	be.Err(t, WriteDot(&sb, NewProgram(tok(1), []*Node{sampleDecl()})), nil)
	out := sb.String()
	be.True(t, strings.HasPrefix(out, "digraph AST {\n"))
	be.True(t, strings.Contains(out, `n2 [label="VarDeclaration(name=\"x\")"];`))
	be.True(t, strings.Contains(out, "n1 -> n2;"))
	be.True(t, strings.Contains(out, "n4 -> n5;"))
}

func TestWriteTree(t *testing.T) {
	decl := sampleDecl()
	decl.Data.(VarDeclarationNode).Value.Typ = types.Int
	var sb strings.Builder
	be.Err(t, WriteTree(&sb, NewProgram(tok(1), []*Node{decl})), nil)
	want := `Program()
  VarDeclaration(name="x")
    SimpleType(name="int")
    BinOp(op="+") : int
      IntegerLiteral(value=1)
      ReadLocation()
        SimpleLocation(name="y")
`
	if diff := cmp.Diff(want, sb.String()); diff != "" {
		t.Errorf("WriteTree mismatch (-want +got):\n%s", diff)
	}
}
