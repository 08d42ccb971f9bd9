package codegen

import (
	"errors"
	"fmt"

	"github.com/xplshn/minic/pkg/ast"
	"github.com/xplshn/minic/pkg/config"
	"github.com/xplshn/minic/pkg/ir"
	"github.com/xplshn/minic/pkg/types"
)

// ErrUntyped is returned when the tree reaches the generator without the
// annotations the type checker provides.
var ErrUntyped = errors.New("node has no resolved type")

type untypedNode struct{ node *ast.Node }

// Context lowers one checked program. Register and label counters live for
// the whole program, so every name it hands out is unique.
type Context struct {
	prog        *ir.Program
	regCount    int
	labelCount  int
	currentFunc *ir.Func
	globalScope bool
	breakLabel  *ir.Label
	loopRetest  bool
	bareReturn  bool
	cfg         *config.Config
}

func NewContext(cfg *config.Config) *Context {
	init := &ir.Func{Name: ir.InitFuncName, ReturnType: ir.TypeI}
	return &Context{
		prog:        &ir.Program{Funcs: []*ir.Func{init}},
		currentFunc: init,
		globalScope: true,
		loopRetest:  cfg.IsFeatureEnabled(config.FeatLoopRetest),
		bareReturn:  cfg.IsFeatureEnabled(config.FeatBareReturn),
		cfg:         cfg,
	}
}

func (ctx *Context) newReg() *ir.Register {
	ctx.regCount++
	return &ir.Register{Name: fmt.Sprintf("R%d", ctx.regCount)}
}

func (ctx *Context) newLabel() *ir.Label {
	ctx.labelCount++
	return &ir.Label{Name: fmt.Sprintf("L%d", ctx.labelCount)}
}

func (ctx *Context) emit(op ir.Op, typ ir.Type, args ...ir.Value) {
	ctx.currentFunc.Append(op, typ, args...)
}

func (ctx *Context) typed(node *ast.Node) *types.Type {
	if node.Typ == nil {
		panic(untypedNode{node})
	}
	return node.Typ
}

func (ctx *Context) typeOf(node *ast.Node) ir.Type { return ir.GetType(ctx.typed(node)) }

func (ctx *Context) declOp() ir.Op {
	if ctx.globalScope {
		return ir.OpVar
	}
	return ir.OpAlloc
}

// GenerateIR lowers root into one ir.Func per declared function plus the
// init function, which comes first.
func (ctx *Context) GenerateIR(root *ast.Node) (prog *ir.Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			u, ok := r.(untypedNode)
			if !ok {
				panic(r)
			}
			prog, err = nil, fmt.Errorf("codegen: %s on line %d: %w", u.node.Type, u.node.Line(), ErrUntyped)
		}
	}()
	ctx.codegenStmt(root)
	return ctx.prog, nil
}

func (ctx *Context) codegenStmt(node *ast.Node) {
	if node == nil {
		return
	}
	switch node.Type {
	case ast.VarDeclaration, ast.LocalDeclaration, ast.ConstDeclaration:
		ctx.codegenVarDecl(node)
	case ast.ArrayDeclaration, ast.ArrayLocalDeclaration:
		ctx.codegenArrayDecl(node)
	case ast.FuncDeclaration:
		ctx.codegenFuncDecl(node)
	case ast.IfStatement:
		ctx.codegenIf(node)
	case ast.WhileStatement:
		ctx.codegenWhile(node)
	case ast.BreakStatement:
		if ctx.breakLabel != nil {
			ctx.emit(ir.OpBranch, ir.TypeNone, ctx.breakLabel)
		}
	case ast.ReturnStatement:
		ctx.codegenReturn(node)
	case ast.WriteLocation:
		ctx.codegenWrite(node)
	case ast.ExprStatement:
		ctx.codegenExpr(node.Data.(ast.ExprStatementNode).Expr)
	case ast.NullStatement:
	default:
		if node.Type.Is(ast.FamilyExpression) {
			ctx.codegenExpr(node)
			return
		}
		ast.WalkChildren(node, ctx.codegenStmt)
	}
}

func (ctx *Context) codegenVarDecl(node *ast.Node) {
	var value *ast.Node
	switch d := node.Data.(type) {
	case ast.VarDeclarationNode:
		value = d.Value
	case ast.LocalDeclarationNode:
		value = d.Value
	case ast.ConstDeclarationNode:
		value = d.Value
	}
	typ := ctx.typeOf(node)
	slot := &ir.Var{Name: ast.DeclName(node)}

	var src ir.Value
	if value != nil {
		src = ctx.codegenExpr(value)
	}
	ctx.emit(ctx.declOp(), typ, slot)
	if src != nil {
		ctx.emit(ir.OpStore, typ, src, slot)
	}
}

func (ctx *Context) codegenArrayDecl(node *ast.Node) {
	size, _ := ast.ArraySize(node)
	ctx.emit(ctx.declOp(), ctx.typeOf(node), &ir.Var{Name: ast.DeclName(node), Len: size})
}

// funcName maps a source function name to its emitted name.
func funcName(name string) string {
	if name == "main" {
		return ir.MainFuncName
	}
	return name
}

func (ctx *Context) codegenFuncDecl(node *ast.Node) {
	d := node.Data.(ast.FuncDeclarationNode)
	fn := &ir.Func{
		Name:       funcName(d.Name),
		ReturnType: ctx.typeOf(node),
	}
	for _, p := range d.Params {
		fn.Params = append(fn.Params, &ir.Param{Name: p.Data.(ast.FuncParameterNode).Name, Typ: ctx.typeOf(p)})
	}
	ctx.prog.Funcs = append(ctx.prog.Funcs, fn)

	prevFunc := ctx.currentFunc
	ctx.currentFunc = fn
	ctx.globalScope = false
	ctx.codegenStmt(d.Body)
	ctx.globalScope = true
	ctx.currentFunc = prevFunc
}
