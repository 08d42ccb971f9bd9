// Package types is the MiniC type catalog: the four nominal scalar types and
// the operators each of them accepts.
package types

import "fmt"

type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindChar
	KindBool
	KindVoid
)

// Type is a nominal scalar type. Types are compared by identity: the catalog
// hands out exactly one *Type per kind.
type Type struct {
	Kind    Kind
	Name    string
	Numeric bool
	binOps  map[string]bool
	relOps  map[string]bool
	unOps   map[string]bool
}

var (
	ArithOps = []string{"+", "-", "*", "/"}
	RelOps   = []string{"<", "<=", ">", ">=", "==", "!="}
	BoolOps  = []string{"&&", "||", "==", "!="}
)

var (
	Int   = newType(KindInt, "int", true, ArithOps, RelOps, []string{"+", "-"})
	Float = newType(KindFloat, "float", true, ArithOps, RelOps, []string{"+", "-"})
	Char  = newType(KindChar, "char", false, nil, RelOps, nil)
	Bool  = newType(KindBool, "bool", false, BoolOps, RelOps, []string{"!"})

	// Void marks the return type of a function that returns nothing. It is
	// not a value type: Resolve does not know it and it accepts no operators.
	Void = newType(KindVoid, "void", false, nil, nil, nil)
)

var builtins = map[string]*Type{
	Int.Name:   Int,
	Float.Name: Float,
	Char.Name:  Char,
	Bool.Name:  Bool,
}

func newType(kind Kind, name string, numeric bool, binOps, relOps, unOps []string) *Type {
	set := func(ops []string) map[string]bool {
		m := make(map[string]bool, len(ops))
		for _, op := range ops {
			m[op] = true
		}
		return m
	}
	return &Type{Kind: kind, Name: name, Numeric: numeric, binOps: set(binOps), relOps: set(relOps), unOps: set(unOps)}
}

// Resolve looks up one of the built-in scalar type names.
func Resolve(name string) *Type { return builtins[name] }

// Builtins returns the four scalar types in declaration order.
func Builtins() []*Type { return []*Type{Int, Float, Char, Bool} }

// IsBuiltinName reports whether name is reserved by a built-in type.
func IsBuiltinName(name string) bool { return builtins[name] != nil }

// BinOpType returns the type of `t op right`, or nil when the operation is
// invalid. Operands must always be of the same type.
func (t *Type) BinOpType(op string, right *Type) *Type {
	if t == nil || right == nil || t != right {
		return nil
	}
	if t.Kind == KindBool && t.binOps[op] {
		return Bool
	}
	if t.binOps[op] {
		return t
	}
	if t.relOps[op] {
		return Bool
	}
	return nil
}

// UnaryOpType returns the type of `op t`, or nil when the operation is invalid.
func (t *Type) UnaryOpType(op string) *Type {
	if t == nil || !t.unOps[op] {
		return nil
	}
	return t
}

func (t *Type) String() string {
	if t == nil {
		return "<untyped>"
	}
	return t.Name
}

// FormatTuple renders a list of types the way signature diagnostics show
// them: ('int',) for one element, ('int', 'float') for more.
func FormatTuple(ts []*Type) string {
	switch len(ts) {
	case 0:
		return "()"
	case 1:
		return fmt.Sprintf("('%s',)", ts[0])
	}
	s := "("
	for i, t := range ts {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("'%s'", t)
	}
	return s + ")"
}
