// Package ast defines the types used to represent the MiniC Abstract Syntax Tree (AST)
package ast

import (
	"fmt"

	"github.com/xplshn/minic/pkg/token"
	"github.com/xplshn/minic/pkg/types"
)

// NodeType defines the kind of a node in the AST
type NodeType int

// Node types enum
const (
	Program NodeType = iota

	// Statements
	CompoundStatement
	IfStatement
	WhileStatement
	ReturnStatement
	BreakStatement
	NullStatement
	ExprStatement
	WriteLocation
	VarDeclaration
	LocalDeclaration
	ArrayDeclaration
	ArrayLocalDeclaration
	ConstDeclaration
	FuncDeclaration

	FuncParameter

	// Literals
	IntegerLiteral
	FloatLiteral
	CharLiteral
	BoolLiteral

	// Expressions
	BinOp
	UnaryOp
	FuncCall
	ReadLocation

	// Data types
	SimpleType

	// Locations
	SimpleLocation
	ArraySimpleLocation

	nodeTypeCount
)

var nodeTypeNames = [...]string{
	Program: "Program", CompoundStatement: "CompoundStatement", IfStatement: "IfStatement",
	WhileStatement: "WhileStatement", ReturnStatement: "ReturnStatement", BreakStatement: "BreakStatement",
	NullStatement: "NullStatement", ExprStatement: "ExprStatement", WriteLocation: "WriteLocation",
	VarDeclaration: "VarDeclaration", LocalDeclaration: "LocalDeclaration", ArrayDeclaration: "ArrayDeclaration",
	ArrayLocalDeclaration: "ArrayLocalDeclaration", ConstDeclaration: "ConstDeclaration",
	FuncDeclaration: "FuncDeclaration", FuncParameter: "FuncParameter", IntegerLiteral: "IntegerLiteral",
	FloatLiteral: "FloatLiteral", CharLiteral: "CharLiteral", BoolLiteral: "BoolLiteral", BinOp: "BinOp",
	UnaryOp: "UnaryOp", FuncCall: "FuncCall", ReadLocation: "ReadLocation", SimpleType: "SimpleType",
	SimpleLocation: "SimpleLocation", ArraySimpleLocation: "ArraySimpleLocation",
}

func (t NodeType) String() string {
	if t >= 0 && t < nodeTypeCount {
		return nodeTypeNames[t]
	}
	return fmt.Sprintf("NodeType(%d)", int(t))
}

// Family groups node kinds into the abstract categories fields are typed by.
type Family int

const (
	FamilyNone Family = iota
	FamilyStatement
	FamilyExpression
	FamilyLiteral
	FamilyDataType
	FamilyLocation
)

var familyNames = [...]string{"AST", "Statement", "Expression", "Literal", "DataType", "Location"}

func (f Family) String() string { return familyNames[f] }

func (t NodeType) Family() Family {
	switch {
	case t >= CompoundStatement && t <= FuncDeclaration:
		return FamilyStatement
	case t >= IntegerLiteral && t <= BoolLiteral:
		return FamilyLiteral
	case t >= BinOp && t <= ReadLocation:
		return FamilyExpression
	case t == SimpleType:
		return FamilyDataType
	case t == SimpleLocation || t == ArraySimpleLocation:
		return FamilyLocation
	}
	return FamilyNone
}

// Is reports whether t belongs to f. Literals are expressions.
func (t NodeType) Is(f Family) bool {
	fam := t.Family()
	return fam == f || (f == FamilyExpression && fam == FamilyLiteral)
}

// IsDeclaration reports whether nodes of kind t introduce a name into scope.
func (t NodeType) IsDeclaration() bool {
	switch t {
	case VarDeclaration, LocalDeclaration, ArrayDeclaration, ArrayLocalDeclaration, ConstDeclaration, FuncParameter, FuncDeclaration:
		return true
	}
	return false
}

// IsArrayDeclaration reports whether t declares an array.
func (t NodeType) IsArrayDeclaration() bool { return t == ArrayDeclaration || t == ArrayLocalDeclaration }

// Node represents a node in the Abstract Syntax Tree
type Node struct {
	Type NodeType
	Tok  token.Token
	Data interface{}
	Typ  *types.Type // Set by the checker
}

// Line returns the source line the node was produced from, or 0.
func (n *Node) Line() int { return n.Tok.Line }

type ProgramNode struct{ Decls []*Node }
type CompoundStatementNode struct{ LocalDecls, Stmts []*Node }
type IfStatementNode struct{ Cond, Then, Else *Node }
type WhileStatementNode struct{ Cond, Body *Node }
type ReturnStatementNode struct{ Value *Node }
type BreakStatementNode struct{}
type NullStatementNode struct{}
type ExprStatementNode struct{ Expr *Node }
type WriteLocationNode struct{ Loc, Value *Node }

type VarDeclarationNode struct {
	Name     string
	DataType *Node
	Value    *Node
}

type LocalDeclarationNode struct {
	Name     string
	DataType *Node
	Value    *Node
}

type ArrayDeclarationNode struct {
	Name     string
	DataType *Node
	Size     *Node
}

type ArrayLocalDeclarationNode struct {
	Name     string
	DataType *Node
	Size     *Node
}

type ConstDeclarationNode struct {
	Name  string
	Value *Node
}

type FuncDeclarationNode struct {
	Name     string
	Params   []*Node
	DataType *Node
	Body     *Node
}

type FuncParameterNode struct {
	Name     string
	DataType *Node
}

type IntegerLiteralNode struct{ Value int64 }
type FloatLiteralNode struct{ Value float64 }
type CharLiteralNode struct{ Value rune }
type BoolLiteralNode struct{ Value bool }

type BinOpNode struct {
	Op          string
	Left, Right *Node
}

type UnaryOpNode struct {
	Op   string
	Expr *Node
}

type FuncCallNode struct {
	Name string
	Args []*Node
}

type ReadLocationNode struct{ Loc *Node }
type SimpleTypeNode struct{ Name string }
type SimpleLocationNode struct{ Name string }

type ArraySimpleLocationNode struct {
	Name  string
	Index *Node
}

// expect panics unless n is a node of family f. A nil n is accepted only
// for optional fields.
func expect(kind NodeType, field string, n *Node, f Family, optional bool) {
	if n == nil {
		if optional {
			return
		}
		panic(fmt.Sprintf("ast: %s.%s is required", kind, field))
	}
	if !n.Type.Is(f) {
		panic(fmt.Sprintf("ast: %s.%s must be a %s, got %s", kind, field, f, n.Type))
	}
}

func expectList(kind NodeType, field string, ns []*Node, f Family) {
	for i, n := range ns {
		expect(kind, fmt.Sprintf("%s[%d]", field, i), n, f, false)
	}
}

func expectKind(kind NodeType, field string, n *Node, want NodeType) {
	if n == nil || n.Type != want {
		panic(fmt.Sprintf("ast: %s.%s must be a %s", kind, field, want))
	}
}

func newNode(tok token.Token, nodeType NodeType, data interface{}) *Node {
	return &Node{Type: nodeType, Tok: tok, Data: data}
}

func NewProgram(tok token.Token, decls []*Node) *Node {
	expectList(Program, "decls", decls, FamilyStatement)
	return newNode(tok, Program, ProgramNode{Decls: decls})
}
func NewCompoundStatement(tok token.Token, localDecls, stmts []*Node) *Node {
	expectList(CompoundStatement, "local_decls", localDecls, FamilyStatement)
	expectList(CompoundStatement, "stmt_list", stmts, FamilyStatement)
	return newNode(tok, CompoundStatement, CompoundStatementNode{LocalDecls: localDecls, Stmts: stmts})
}
func NewIfStatement(tok token.Token, cond, thenStmt, elseStmt *Node) *Node {
	expect(IfStatement, "condition", cond, FamilyExpression, false)
	expect(IfStatement, "true_block", thenStmt, FamilyStatement, false)
	expect(IfStatement, "false_block", elseStmt, FamilyStatement, true)
	return newNode(tok, IfStatement, IfStatementNode{Cond: cond, Then: thenStmt, Else: elseStmt})
}
func NewWhileStatement(tok token.Token, cond, body *Node) *Node {
	expect(WhileStatement, "condition", cond, FamilyExpression, false)
	expect(WhileStatement, "body", body, FamilyStatement, false)
	return newNode(tok, WhileStatement, WhileStatementNode{Cond: cond, Body: body})
}
func NewReturnStatement(tok token.Token, value *Node) *Node {
	expect(ReturnStatement, "value", value, FamilyExpression, true)
	return newNode(tok, ReturnStatement, ReturnStatementNode{Value: value})
}
func NewBreakStatement(tok token.Token) *Node { return newNode(tok, BreakStatement, BreakStatementNode{}) }
func NewNullStatement(tok token.Token) *Node  { return newNode(tok, NullStatement, NullStatementNode{}) }
func NewExprStatement(tok token.Token, expr *Node) *Node {
	expect(ExprStatement, "expr", expr, FamilyExpression, false)
	return newNode(tok, ExprStatement, ExprStatementNode{Expr: expr})
}
func NewWriteLocation(tok token.Token, loc, value *Node) *Node {
	expect(WriteLocation, "location", loc, FamilyLocation, false)
	expect(WriteLocation, "value", value, FamilyExpression, false)
	return newNode(tok, WriteLocation, WriteLocationNode{Loc: loc, Value: value})
}
func NewVarDeclaration(tok token.Token, name string, dataType, value *Node) *Node {
	expect(VarDeclaration, "datatype", dataType, FamilyDataType, false)
	expect(VarDeclaration, "value", value, FamilyExpression, true)
	return newNode(tok, VarDeclaration, VarDeclarationNode{Name: name, DataType: dataType, Value: value})
}
func NewLocalDeclaration(tok token.Token, name string, dataType, value *Node) *Node {
	expect(LocalDeclaration, "datatype", dataType, FamilyDataType, false)
	expect(LocalDeclaration, "value", value, FamilyExpression, true)
	return newNode(tok, LocalDeclaration, LocalDeclarationNode{Name: name, DataType: dataType, Value: value})
}
func NewArrayDeclaration(tok token.Token, name string, dataType, size *Node) *Node {
	expect(ArrayDeclaration, "datatype", dataType, FamilyDataType, false)
	expect(ArrayDeclaration, "size", size, FamilyExpression, false)
	return newNode(tok, ArrayDeclaration, ArrayDeclarationNode{Name: name, DataType: dataType, Size: size})
}
func NewArrayLocalDeclaration(tok token.Token, name string, dataType, size *Node) *Node {
	expect(ArrayLocalDeclaration, "datatype", dataType, FamilyDataType, false)
	expect(ArrayLocalDeclaration, "size", size, FamilyExpression, false)
	return newNode(tok, ArrayLocalDeclaration, ArrayLocalDeclarationNode{Name: name, DataType: dataType, Size: size})
}
func NewConstDeclaration(tok token.Token, name string, value *Node) *Node {
	expect(ConstDeclaration, "value", value, FamilyExpression, false)
	return newNode(tok, ConstDeclaration, ConstDeclarationNode{Name: name, Value: value})
}
func NewFuncDeclaration(tok token.Token, name string, params []*Node, dataType, body *Node) *Node {
	for i, p := range params {
		expectKind(FuncDeclaration, fmt.Sprintf("params[%d]", i), p, FuncParameter)
	}
	expect(FuncDeclaration, "datatype", dataType, FamilyDataType, false)
	expectKind(FuncDeclaration, "body", body, CompoundStatement)
	return newNode(tok, FuncDeclaration, FuncDeclarationNode{Name: name, Params: params, DataType: dataType, Body: body})
}
func NewFuncParameter(tok token.Token, name string, dataType *Node) *Node {
	expect(FuncParameter, "datatype", dataType, FamilyDataType, false)
	return newNode(tok, FuncParameter, FuncParameterNode{Name: name, DataType: dataType})
}
func NewIntegerLiteral(tok token.Token, value int64) *Node {
	return newNode(tok, IntegerLiteral, IntegerLiteralNode{Value: value})
}
func NewFloatLiteral(tok token.Token, value float64) *Node {
	return newNode(tok, FloatLiteral, FloatLiteralNode{Value: value})
}
func NewCharLiteral(tok token.Token, value rune) *Node {
	return newNode(tok, CharLiteral, CharLiteralNode{Value: value})
}
func NewBoolLiteral(tok token.Token, value bool) *Node {
	return newNode(tok, BoolLiteral, BoolLiteralNode{Value: value})
}
func NewBinOp(tok token.Token, op string, left, right *Node) *Node {
	expect(BinOp, "left", left, FamilyExpression, false)
	expect(BinOp, "right", right, FamilyExpression, false)
	return newNode(tok, BinOp, BinOpNode{Op: op, Left: left, Right: right})
}
func NewUnaryOp(tok token.Token, op string, expr *Node) *Node {
	expect(UnaryOp, "right", expr, FamilyExpression, false)
	return newNode(tok, UnaryOp, UnaryOpNode{Op: op, Expr: expr})
}
func NewFuncCall(tok token.Token, name string, args []*Node) *Node {
	expectList(FuncCall, "arguments", args, FamilyExpression)
	return newNode(tok, FuncCall, FuncCallNode{Name: name, Args: args})
}
func NewReadLocation(tok token.Token, loc *Node) *Node {
	expect(ReadLocation, "location", loc, FamilyLocation, false)
	return newNode(tok, ReadLocation, ReadLocationNode{Loc: loc})
}
func NewSimpleType(tok token.Token, name string) *Node {
	return newNode(tok, SimpleType, SimpleTypeNode{Name: name})
}
func NewSimpleLocation(tok token.Token, name string) *Node {
	return newNode(tok, SimpleLocation, SimpleLocationNode{Name: name})
}
func NewArraySimpleLocation(tok token.Token, name string, index *Node) *Node {
	expect(ArraySimpleLocation, "size", index, FamilyExpression, false)
	return newNode(tok, ArraySimpleLocation, ArraySimpleLocationNode{Name: name, Index: index})
}

// DeclName returns the name introduced by a declaration node, or "".
func DeclName(n *Node) string {
	switch d := n.Data.(type) {
	case VarDeclarationNode:
		return d.Name
	case LocalDeclarationNode:
		return d.Name
	case ArrayDeclarationNode:
		return d.Name
	case ArrayLocalDeclarationNode:
		return d.Name
	case ConstDeclarationNode:
		return d.Name
	case FuncParameterNode:
		return d.Name
	case FuncDeclarationNode:
		return d.Name
	}
	return ""
}

// ArraySize returns the declared element count of an array declaration.
func ArraySize(n *Node) (int64, bool) {
	var size *Node
	switch d := n.Data.(type) {
	case ArrayDeclarationNode:
		size = d.Size
	case ArrayLocalDeclarationNode:
		size = d.Size
	default:
		return 0, false
	}
	return IntConstant(size, nil)
}

// IntConstant evaluates n when it is an integer expression known at compile
// time. lookup, if non-nil, resolves names of integer constants.
func IntConstant(n *Node, lookup func(name string) (int64, bool)) (int64, bool) {
	if n == nil {
		return 0, false
	}
	switch d := n.Data.(type) {
	case IntegerLiteralNode:
		return d.Value, true
	case UnaryOpNode:
		v, ok := IntConstant(d.Expr, lookup)
		if !ok {
			return 0, false
		}
		switch d.Op {
		case "-": return -v, true
		case "+": return v, true
		}
	case BinOpNode:
		l, okL := IntConstant(d.Left, lookup)
		r, okR := IntConstant(d.Right, lookup)
		if !okL || !okR {
			return 0, false
		}
		switch d.Op {
		case "+": return l + r, true
		case "-": return l - r, true
		case "*": return l * r, true
		case "/":
			if r != 0 {
				return l / r, true
			}
		}
	case ReadLocationNode:
		if loc, ok := d.Loc.Data.(SimpleLocationNode); ok && lookup != nil {
			return lookup(loc.Name)
		}
	}
	return 0, false
}
