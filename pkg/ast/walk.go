package ast

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

type FieldKind int

const (
	FieldScalar FieldKind = iota
	FieldNode
	FieldList
)

// Field is one declared field of a node, in declaration order.
type Field struct {
	Name   string
	Kind   FieldKind
	Scalar interface{}
	Node   *Node
	List   []*Node
}

func scalar(name string, v interface{}) Field { return Field{Name: name, Kind: FieldScalar, Scalar: v} }
func child(name string, n *Node) Field        { return Field{Name: name, Kind: FieldNode, Node: n} }
func list(name string, ns []*Node) Field      { return Field{Name: name, Kind: FieldList, List: ns} }

// Fields returns the declared fields of n in declaration order.
func (n *Node) Fields() []Field {
	switch d := n.Data.(type) {
	case ProgramNode:
		return []Field{list("decl_list", d.Decls)}
	case CompoundStatementNode:
		return []Field{list("local_decls", d.LocalDecls), list("stmt_list", d.Stmts)}
	case IfStatementNode:
		return []Field{child("condition", d.Cond), child("true_block", d.Then), child("false_block", d.Else)}
	case WhileStatementNode:
		return []Field{child("condition", d.Cond), child("body", d.Body)}
	case ReturnStatementNode:
		return []Field{child("value", d.Value)}
	case BreakStatementNode, NullStatementNode:
		return nil
	case ExprStatementNode:
		return []Field{child("expr", d.Expr)}
	case WriteLocationNode:
		return []Field{child("location", d.Loc), child("value", d.Value)}
	case VarDeclarationNode:
		return []Field{scalar("name", d.Name), child("datatype", d.DataType), child("value", d.Value)}
	case LocalDeclarationNode:
		return []Field{scalar("name", d.Name), child("datatype", d.DataType), child("value", d.Value)}
	case ArrayDeclarationNode:
		return []Field{scalar("name", d.Name), child("datatype", d.DataType), child("size", d.Size)}
	case ArrayLocalDeclarationNode:
		return []Field{scalar("name", d.Name), child("datatype", d.DataType), child("size", d.Size)}
	case ConstDeclarationNode:
		return []Field{scalar("name", d.Name), child("value", d.Value)}
	case FuncDeclarationNode:
		return []Field{scalar("name", d.Name), list("params", d.Params), child("datatype", d.DataType), child("body", d.Body)}
	case FuncParameterNode:
		return []Field{scalar("name", d.Name), child("datatype", d.DataType)}
	case IntegerLiteralNode:
		return []Field{scalar("value", d.Value)}
	case FloatLiteralNode:
		return []Field{scalar("value", d.Value)}
	case CharLiteralNode:
		return []Field{scalar("value", d.Value)}
	case BoolLiteralNode:
		return []Field{scalar("value", d.Value)}
	case BinOpNode:
		return []Field{scalar("op", d.Op), child("left", d.Left), child("right", d.Right)}
	case UnaryOpNode:
		return []Field{scalar("op", d.Op), child("right", d.Expr)}
	case FuncCallNode:
		return []Field{scalar("name", d.Name), list("arguments", d.Args)}
	case ReadLocationNode:
		return []Field{child("location", d.Loc)}
	case SimpleTypeNode:
		return []Field{scalar("name", d.Name)}
	case SimpleLocationNode:
		return []Field{scalar("name", d.Name)}
	case ArraySimpleLocationNode:
		return []Field{scalar("name", d.Name), child("size", d.Index)}
	}
	panic(fmt.Sprintf("ast: unknown node data %T", n.Data))
}

// WalkChildren calls visit on every child node of n, in field declaration
// order, descending into lists element-wise. Scalar fields are skipped.
func WalkChildren(n *Node, visit func(*Node)) {
	for _, f := range n.Fields() {
		switch f.Kind {
		case FieldNode:
			if f.Node != nil {
				visit(f.Node)
			}
		case FieldList:
			for _, c := range f.List {
				visit(c)
			}
		}
	}
}

// Entry is one node of a flattened tree together with its nesting depth.
type Entry struct {
	Depth int
	Node  *Node
}

// Flatten lists every node of the tree rooted at root in pre-order.
func Flatten(root *Node) []Entry {
	var entries []Entry
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		entries = append(entries, Entry{Depth: depth, Node: n})
		WalkChildren(n, func(c *Node) { walk(c, depth+1) })
	}
	if root != nil {
		walk(root, 0)
	}
	return entries
}

// WriteTree prints the flattened tree, two spaces per level, with the
// resolved type of every annotated node.
func WriteTree(w io.Writer, root *Node) error {
	var sb strings.Builder
	for _, e := range Flatten(root) {
		sb.WriteString(strings.Repeat("  ", e.Depth))
		sb.WriteString(e.Node.String())
		if e.Node.Typ != nil {
			sb.WriteString(" : " + e.Node.Typ.Name)
		}
		sb.WriteByte('\n')
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func formatScalar(v interface{}) string {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x)
	case rune:
		return strconv.QuoteRune(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	return fmt.Sprint(v)
}

// String renders the node kind followed by its scalar fields, e.g.
// `BinOp(op="+")`.
func (n *Node) String() string {
	var parts []string
	for _, f := range n.Fields() {
		if f.Kind == FieldScalar {
			parts = append(parts, f.Name+"="+formatScalar(f.Scalar))
		}
	}
	return n.Type.String() + "(" + strings.Join(parts, ", ") + ")"
}
