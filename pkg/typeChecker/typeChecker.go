package typeChecker

import (
	"sort"

	"github.com/xplshn/minic/pkg/ast"
	"github.com/xplshn/minic/pkg/config"
	"github.com/xplshn/minic/pkg/types"
	"github.com/xplshn/minic/pkg/util"
)

// Symbol binds a name to the declaration node that introduced it.
type Symbol struct {
	Name string
	Type *types.Type
	Node *ast.Node
	Next *Symbol
}

type Scope struct {
	Symbols *Symbol
	Parent  *Scope
}

// TypeChecker resolves names, checks types and annotates the tree in place.
// Problems are reported to the Reporter; checking always runs to completion.
type TypeChecker struct {
	currentScope *Scope
	globalScope  *Scope
	functions    map[string]*ast.Node
	currentFunc  *ast.FuncDeclarationNode
	expectedRet  *types.Type
	observedRet  *types.Type
	sawReturn    bool
	retMismatch  bool
	voidFunc     bool
	inLoop       bool
	cfg          *config.Config
	rep          *util.Reporter
}

func NewTypeChecker(cfg *config.Config, rep *util.Reporter) *TypeChecker {
	globalScope := newScope(nil)
	return &TypeChecker{
		currentScope: globalScope,
		globalScope:  globalScope,
		functions:    make(map[string]*ast.Node),
		cfg:          cfg,
		rep:          rep,
	}
}

func newScope(parent *Scope) *Scope { return &Scope{Parent: parent} }

func (s *Scope) lookup(name string) *Symbol {
	for sym := s.Symbols; sym != nil; sym = sym.Next {
		if sym.Name == name {
			return sym
		}
	}
	return nil
}

func (tc *TypeChecker) findSymbol(name string) *Symbol {
	for s := tc.currentScope; s != nil; s = s.Parent {
		if sym := s.lookup(name); sym != nil {
			return sym
		}
	}
	return nil
}

func (tc *TypeChecker) findSymbolInCurrentScope(name string) *Symbol {
	return tc.currentScope.lookup(name)
}

func (tc *TypeChecker) addSymbol(name string, typ *types.Type, node *ast.Node) {
	if tc.currentScope != tc.globalScope {
		if g := tc.globalScope.lookup(name); g != nil {
			tc.rep.Warn(config.WarnShadow, node.Tok, "'%s' hides the global declared on line %d", name, g.Node.Line())
		}
	}
	tc.currentScope.Symbols = &Symbol{Name: name, Type: typ, Node: node, Next: tc.currentScope.Symbols}
}

// Lookup resolves name against the active scope chain.
func (tc *TypeChecker) Lookup(name string) *Symbol { return tc.findSymbol(name) }

// GlobalNames lists the names bound in the global scope, sorted.
func (tc *TypeChecker) GlobalNames() []string {
	var names []string
	for sym := tc.globalScope.Symbols; sym != nil; sym = sym.Next {
		names = append(names, sym.Name)
	}
	sort.Strings(names)
	return names
}

// Function returns the declaration of a successfully checked function.
func (tc *TypeChecker) Function(name string) *ast.Node { return tc.functions[name] }

// Check walks the whole program and reports whether it added no errors.
func (tc *TypeChecker) Check(root *ast.Node) bool {
	before := tc.rep.ErrorCount()
	tc.checkNode(root)
	return tc.rep.ErrorCount() == before
}

func (tc *TypeChecker) checkNode(node *ast.Node) {
	if node == nil {
		return
	}
	switch node.Type {
	case ast.CompoundStatement:
		tc.checkCompound(node)
	case ast.VarDeclaration, ast.LocalDeclaration:
		tc.checkVarDecl(node)
	case ast.ArrayDeclaration, ast.ArrayLocalDeclaration:
		tc.checkArrayDecl(node)
	case ast.ConstDeclaration:
		tc.checkConstDecl(node)
	case ast.FuncDeclaration:
		tc.checkFuncDecl(node)
	case ast.IfStatement:
		d := node.Data.(ast.IfStatementNode)
		if tc.checkCondition(node, d.Cond) {
			tc.checkNode(d.Then)
			tc.checkNode(d.Else)
		}
	case ast.WhileStatement:
		d := node.Data.(ast.WhileStatementNode)
		if tc.checkCondition(node, d.Cond) {
			prevInLoop := tc.inLoop
			tc.inLoop = true
			tc.checkNode(d.Body)
			tc.inLoop = prevInLoop
		}
	case ast.BreakStatement:
		if !tc.inLoop {
			tc.rep.Error(node.Tok, "break outside a loop")
		}
	case ast.ReturnStatement:
		tc.checkReturn(node)
	case ast.WriteLocation:
		tc.checkWrite(node)
	case ast.NullStatement:
	default:
		if node.Type.Is(ast.FamilyExpression) {
			tc.checkExpr(node)
			return
		}
		ast.WalkChildren(node, tc.checkNode)
	}
}

func (tc *TypeChecker) checkCompound(node *ast.Node) {
	d := node.Data.(ast.CompoundStatementNode)
	for _, decl := range d.LocalDecls {
		tc.checkNode(decl)
	}
	warned := false
	for i, stmt := range d.Stmts {
		if !warned && i > 0 {
			if prev := d.Stmts[i-1]; prev.Type == ast.ReturnStatement || prev.Type == ast.BreakStatement {
				tc.rep.Warn(config.WarnUnreachableCode, stmt.Tok, "unreachable code")
				warned = true
			}
		}
		tc.checkNode(stmt)
	}
}

func (tc *TypeChecker) checkCondition(node, cond *ast.Node) bool {
	ct := tc.checkExpr(cond)
	if ct == nil {
		return false
	}
	if ct != types.Bool {
		tc.rep.Error(node.Tok, "condition must be of type 'bool' but has type '%s'", ct)
		return false
	}
	return true
}

// resolveType annotates a SimpleType node with its catalog type.
func (tc *TypeChecker) resolveType(dt *ast.Node) *types.Type {
	name := dt.Data.(ast.SimpleTypeNode).Name
	typ := types.Resolve(name)
	if typ == nil {
		tc.rep.Error(dt.Tok, "unknown type '%s'", name)
		return nil
	}
	dt.Typ = typ
	return typ
}

func (tc *TypeChecker) resolveReturnType(dt *ast.Node) *types.Type {
	if dt.Data.(ast.SimpleTypeNode).Name == types.Void.Name {
		dt.Typ = types.Void
		return types.Void
	}
	return tc.resolveType(dt)
}

// canDeclare checks that name may be introduced in the current scope.
func (tc *TypeChecker) canDeclare(node *ast.Node, name string) bool {
	if types.IsBuiltinName(name) {
		tc.rep.Error(node.Tok, "name '%s' is not a legal variable name", name)
		return false
	}
	if existing := tc.findSymbolInCurrentScope(name); existing != nil {
		tc.rep.Error(node.Tok, "name '%s' already defined on line %d", name, existing.Node.Line())
		return false
	}
	return true
}

func (tc *TypeChecker) checkVarDecl(node *ast.Node) {
	var name string
	var dataType, value *ast.Node
	what := "variable"
	switch d := node.Data.(type) {
	case ast.VarDeclarationNode:
		name, dataType, value = d.Name, d.DataType, d.Value
	case ast.LocalDeclarationNode:
		name, dataType, value, what = d.Name, d.DataType, d.Value, "local variable"
	}
	if !tc.canDeclare(node, name) {
		return
	}
	typ := tc.resolveType(dataType)
	if typ == nil {
		return
	}
	if value != nil {
		vt := tc.checkExpr(value)
		if vt == nil {
			return
		}
		if vt != typ {
			tc.rep.Error(node.Tok, "declaring %s '%s' of type '%s' but assigned expression of type '%s'", what, name, typ, vt)
			return
		}
	}
	node.Typ = typ
	tc.addSymbol(name, typ, node)
}

func (tc *TypeChecker) checkArrayDecl(node *ast.Node) {
	var name string
	var dataType, size *ast.Node
	switch d := node.Data.(type) {
	case ast.ArrayDeclarationNode:
		name, dataType, size = d.Name, d.DataType, d.Size
	case ast.ArrayLocalDeclarationNode:
		name, dataType, size = d.Name, d.DataType, d.Size
	}
	if !tc.canDeclare(node, name) {
		return
	}
	typ := tc.resolveType(dataType)
	if typ == nil {
		return
	}
	st := tc.checkExpr(size)
	n, ok := ast.ArraySize(node)
	if st != types.Int || !ok || n <= 0 {
		tc.rep.Error(node.Tok, "array '%s' size must be a positive integer constant", name)
		return
	}
	node.Typ = typ
	tc.addSymbol(name, typ, node)
}

func (tc *TypeChecker) checkConstDecl(node *ast.Node) {
	d := node.Data.(ast.ConstDeclarationNode)
	if !tc.canDeclare(node, d.Name) {
		return
	}
	vt := tc.checkExpr(d.Value)
	if vt == nil {
		return
	}
	node.Typ = vt
	tc.addSymbol(d.Name, vt, node)
}

// constLookup resolves integer constants for compile-time index evaluation.
func (tc *TypeChecker) constLookup(name string) (int64, bool) {
	sym := tc.findSymbol(name)
	if sym == nil || sym.Node.Type != ast.ConstDeclaration || sym.Type != types.Int {
		return 0, false
	}
	return ast.IntConstant(sym.Node.Data.(ast.ConstDeclarationNode).Value, tc.constLookup)
}

func (tc *TypeChecker) checkFuncDecl(node *ast.Node) {
	d := node.Data.(ast.FuncDeclarationNode)
	valid := true
	if prev, ok := tc.functions[d.Name]; ok {
		tc.rep.Error(node.Tok, "function '%s' already defined on line %d", d.Name, prev.Line())
		valid = false
	} else if sym := tc.globalScope.lookup(d.Name); sym != nil {
		tc.rep.Error(node.Tok, "name '%s' already defined on line %d", d.Name, sym.Node.Line())
		valid = false
	}

	seen := make(map[string]bool)
	duplicate := false
	for _, p := range d.Params {
		pd := p.Data.(ast.FuncParameterNode)
		if t := tc.resolveType(pd.DataType); t != nil {
			p.Typ = t
		} else {
			valid = false
		}
		if seen[pd.Name] {
			duplicate = true
		}
		seen[pd.Name] = true
	}
	if duplicate {
		tc.rep.Error(node.Tok, "duplicate parameter name in definition of function '%s'", d.Name)
		valid = false
	}

	retType := tc.resolveReturnType(d.DataType)
	if retType == nil {
		valid = false
	}

	if tc.currentFunc != nil {
		tc.rep.Error(node.Tok, "illegal nested function declaration '%s'", d.Name)
		return
	}

	if !tc.checkFuncBody(node, &d, retType) {
		valid = false
	}
	if valid {
		node.Typ = retType
		tc.functions[d.Name] = node
		tc.addSymbol(d.Name, retType, node)
	}
}

// checkFuncBody checks the body inside a parameter scope and reports whether
// the returns observed agree with retType. The global scope and the
// function context are restored on every path.
func (tc *TypeChecker) checkFuncBody(node *ast.Node, d *ast.FuncDeclarationNode, retType *types.Type) bool {
	prevInLoop := tc.inLoop
	tc.currentFunc = d
	tc.currentScope = newScope(tc.globalScope)
	tc.expectedRet, tc.observedRet = retType, nil
	tc.sawReturn, tc.retMismatch = false, false
	tc.voidFunc = retType == types.Void
	tc.inLoop = false
	defer func() {
		tc.currentScope = tc.globalScope
		tc.currentFunc = nil
		tc.expectedRet, tc.observedRet = nil, nil
		tc.sawReturn, tc.retMismatch = false, false
		tc.voidFunc = false
		tc.inLoop = prevInLoop
	}()

	for _, p := range d.Params {
		name := p.Data.(ast.FuncParameterNode).Name
		if tc.findSymbolInCurrentScope(name) == nil {
			tc.addSymbol(name, p.Typ, p)
		}
	}
	tc.checkNode(d.Body)

	if retType == nil || tc.voidFunc {
		return true
	}
	if !tc.sawReturn {
		tc.rep.Error(node.Tok, "function '%s' has no return statement", d.Name)
		return false
	}
	return tc.observedRet == retType && !tc.retMismatch
}

func (tc *TypeChecker) checkReturn(node *ast.Node) {
	d := node.Data.(ast.ReturnStatementNode)
	if tc.currentFunc == nil {
		tc.rep.Error(node.Tok, "return statement outside of a function")
		tc.checkExpr(d.Value)
		return
	}
	name := tc.currentFunc.Name
	if tc.voidFunc {
		if d.Value != nil {
			tc.checkExpr(d.Value)
			tc.rep.Error(node.Tok, "void function '%s' cannot return a value", name)
		}
		return
	}
	tc.sawReturn = true
	if d.Value == nil {
		if tc.expectedRet != nil {
			tc.rep.Error(node.Tok, "function '%s' must return a value of type '%s'", name, tc.expectedRet)
		}
		tc.retMismatch = true
		return
	}
	vt := tc.checkExpr(d.Value)
	if vt == nil {
		return
	}
	tc.observedRet = vt
	if tc.expectedRet != nil && vt != tc.expectedRet {
		tc.rep.Error(node.Tok, "function '%s' returns '%s' but its declared return type is '%s'", name, vt, tc.expectedRet)
		tc.retMismatch = true
	}
}

// checkLocation resolves a location and annotates it. access is the read or
// write node the location belongs to.
func (tc *TypeChecker) checkLocation(loc, access *ast.Node) *Symbol {
	switch d := loc.Data.(type) {
	case ast.SimpleLocationNode:
		sym := tc.findSymbol(d.Name)
		switch {
		case sym == nil:
			tc.rep.Error(loc.Tok, "name '%s' is not defined", d.Name)
			return nil
		case sym.Node.Type == ast.FuncDeclaration:
			tc.rep.Error(loc.Tok, "'%s' is a function, not a variable", d.Name)
			return nil
		case sym.Node.Type.IsArrayDeclaration():
			tc.rep.Error(loc.Tok, "array '%s' used without an index", d.Name)
			return nil
		}
		loc.Typ = sym.Type
		return sym
	case ast.ArraySimpleLocationNode:
		sym := tc.findSymbol(d.Name)
		it := tc.checkExpr(d.Index)
		if sym == nil {
			tc.rep.Error(loc.Tok, "name '%s' is not defined", d.Name)
			return nil
		}
		if !sym.Node.Type.IsArrayDeclaration() {
			tc.rep.Error(loc.Tok, "'%s' is not an array", d.Name)
			return nil
		}
		if it == nil {
			return nil
		}
		if it != types.Int {
			tc.rep.Error(d.Index.Tok, "array index must be of type 'int' but has type '%s'", it)
			return nil
		}
		size, _ := ast.ArraySize(sym.Node)
		if idx, ok := ast.IntConstant(d.Index, tc.constLookup); ok {
			if idx < 0 || idx >= size {
				tc.rep.Error(access.Tok, "'%s' index %d out of array bounds (size %d)", d.Name, idx, size)
				return nil
			}
		} else {
			tc.rep.Warn(config.WarnDynamicIndex, d.Index.Tok, "index of array '%s' is not known at compile time", d.Name)
		}
		loc.Typ = sym.Type
		return sym
	}
	return nil
}

func locationName(loc *ast.Node) string {
	switch d := loc.Data.(type) {
	case ast.SimpleLocationNode:
		return d.Name
	case ast.ArraySimpleLocationNode:
		return d.Name
	}
	return ""
}

func (tc *TypeChecker) checkWrite(node *ast.Node) {
	d := node.Data.(ast.WriteLocationNode)
	sym := tc.checkLocation(d.Loc, node)
	vt := tc.checkExpr(d.Value)
	if sym == nil {
		return
	}
	name := locationName(d.Loc)
	if sym.Node.Type == ast.ConstDeclaration {
		tc.rep.Error(node.Tok, "cannot assign to constant '%s'", name)
		return
	}
	lt := d.Loc.Typ
	if lt == nil || vt == nil {
		return
	}
	if lt != vt {
		tc.rep.Error(node.Tok, "cannot assign type '%s' to variable '%s' of type '%s'", vt, name, lt)
		return
	}
	node.Typ = vt
}

// checkExpr annotates an expression and returns its type, or nil when the
// expression is invalid.
func (tc *TypeChecker) checkExpr(node *ast.Node) *types.Type {
	if node == nil {
		return nil
	}
	switch d := node.Data.(type) {
	case ast.IntegerLiteralNode:
		node.Typ = types.Int
	case ast.FloatLiteralNode:
		node.Typ = types.Float
	case ast.CharLiteralNode:
		node.Typ = types.Char
	case ast.BoolLiteralNode:
		node.Typ = types.Bool
	case ast.BinOpNode:
		lt, rt := tc.checkExpr(d.Left), tc.checkExpr(d.Right)
		if lt == nil || rt == nil {
			return nil
		}
		node.Typ = lt.BinOpType(d.Op, rt)
		if node.Typ == nil {
			tc.rep.Error(node.Tok, "binary operation '%s %s %s' not supported", lt, d.Op, rt)
		}
	case ast.UnaryOpNode:
		t := tc.checkExpr(d.Expr)
		if t == nil {
			return nil
		}
		node.Typ = t.UnaryOpType(d.Op)
		if node.Typ == nil {
			tc.rep.Error(node.Tok, "unary operation '%s %s' not supported", d.Op, t)
		}
	case ast.ReadLocationNode:
		if tc.checkLocation(d.Loc, node) != nil {
			node.Typ = d.Loc.Typ
		}
	case ast.FuncCallNode:
		tc.checkCall(node, d)
	}
	return node.Typ
}

func (tc *TypeChecker) checkCall(node *ast.Node, d ast.FuncCallNode) {
	argTypes := make([]*types.Type, len(d.Args))
	argsOK := true
	for i, arg := range d.Args {
		if argTypes[i] = tc.checkExpr(arg); argTypes[i] == nil {
			argsOK = false
		}
	}
	fn, ok := tc.functions[d.Name]
	if !ok {
		tc.rep.Error(node.Tok, "function '%s' is not declared", d.Name)
		return
	}
	if !argsOK {
		return
	}
	fd := fn.Data.(ast.FuncDeclarationNode)
	paramTypes := make([]*types.Type, len(fd.Params))
	match := len(fd.Params) == len(argTypes)
	for i, p := range fd.Params {
		paramTypes[i] = p.Typ
		if match && p.Typ != argTypes[i] {
			match = false
		}
	}
	if !match {
		tc.rep.Error(node.Tok, "function '%s' expects %s, but was called with %s", d.Name, types.FormatTuple(paramTypes), types.FormatTuple(argTypes))
		return
	}
	node.Typ = fn.Typ
}
