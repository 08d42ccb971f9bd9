package types

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestResolve(t *testing.T) {
	for _, typ := range Builtins() {
		be.Equal(t, Resolve(typ.Name), typ)
		be.True(t, IsBuiltinName(typ.Name))
	}
	be.Equal(t, Resolve("void"), (*Type)(nil))
	be.Equal(t, Resolve("string"), (*Type)(nil))
	be.True(t, !IsBuiltinName("main"))
}

func contains(ops []string, op string) bool {
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}

// expectedBinOp restates the operator table independently of the catalog.
func expectedBinOp(left *Type, op string, right *Type) *Type {
	if left != right {
		return nil
	}
	switch {
	case contains(ArithOps, op) && left.Numeric:
		return left
	case contains(RelOps, op):
		return Bool
	case contains(BoolOps, op) && left == Bool:
		return Bool
	}
	return nil
}

func TestBinOpTable(t *testing.T) {
	ops := []string{"+", "-", "*", "/", "<", "<=", ">", ">=", "==", "!=", "&&", "||", "%"}
	for _, left := range Builtins() {
		for _, right := range Builtins() {
			for _, op := range ops {
				got := left.BinOpType(op, right)
				want := expectedBinOp(left, op, right)
				if got != want {
					t.Errorf("%s %s %s: got %v, want %v", left, op, right, got, want)
				}
			}
		}
	}
}

func TestMixedArithmeticIsInvalid(t *testing.T) {
	for _, op := range ArithOps {
		be.Equal(t, Int.BinOpType(op, Float), (*Type)(nil))
		be.Equal(t, Float.BinOpType(op, Int), (*Type)(nil))
	}
	be.Equal(t, Char.BinOpType("+", Char), (*Type)(nil))
	be.Equal(t, Int.BinOpType("&&", Int), (*Type)(nil))
	be.Equal(t, Bool.BinOpType("+", Bool), (*Type)(nil))
}

func TestUnaryOps(t *testing.T) {
	be.Equal(t, Int.UnaryOpType("-"), Int)
	be.Equal(t, Float.UnaryOpType("+"), Float)
	be.Equal(t, Bool.UnaryOpType("!"), Bool)
	be.Equal(t, Int.UnaryOpType("!"), (*Type)(nil))
	be.Equal(t, Bool.UnaryOpType("-"), (*Type)(nil))
	be.Equal(t, Char.UnaryOpType("-"), (*Type)(nil))
	be.Equal(t, Void.UnaryOpType("!"), (*Type)(nil))
}

func TestFormatTuple(t *testing.T) {
	be.Equal(t, FormatTuple(nil), "()")
	be.Equal(t, FormatTuple([]*Type{Int}), "('int',)")
	be.Equal(t, FormatTuple([]*Type{Int, Int}), "('int', 'int')")
}
