package codegen

import (
	"github.com/xplshn/minic/pkg/ast"
	"github.com/xplshn/minic/pkg/ir"
)

// codegenExpr lowers an expression and returns the register holding its value.
func (ctx *Context) codegenExpr(node *ast.Node) ir.Value {
	switch d := node.Data.(type) {
	case ast.IntegerLiteralNode:
		return ctx.codegenMove(ir.TypeI, &ir.Const{Value: d.Value})
	case ast.FloatLiteralNode:
		return ctx.codegenMove(ir.TypeF, &ir.FloatConst{Value: d.Value})
	case ast.CharLiteralNode:
		return ctx.codegenMove(ir.TypeB, &ir.Const{Value: int64(d.Value)})
	case ast.BoolLiteralNode:
		var v int64
		if d.Value {
			v = 1
		}
		return ctx.codegenMove(ir.TypeI, &ir.Const{Value: v})
	case ast.BinOpNode:
		return ctx.codegenBinaryOp(node, d)
	case ast.UnaryOpNode:
		return ctx.codegenUnaryOp(node, d)
	case ast.ReadLocationNode:
		loc := ctx.codegenLocation(d.Loc)
		target := ctx.newReg()
		ctx.emit(ir.OpLoad, ctx.typeOf(node), loc, target)
		return target
	case ast.FuncCallNode:
		return ctx.codegenFuncCall(node, d)
	}
	panic(untypedNode{node})
}

func (ctx *Context) codegenMove(typ ir.Type, v ir.Value) ir.Value {
	target := ctx.newReg()
	ctx.emit(ir.OpMov, typ, v, target)
	return target
}

func (ctx *Context) codegenBinaryOp(node *ast.Node, d ast.BinOpNode) ir.Value {
	ctx.typed(node)
	left := ctx.codegenExpr(d.Left)
	right := ctx.codegenExpr(d.Right)
	op, ok := ir.BinaryOp(d.Op)
	if !ok {
		panic(untypedNode{node})
	}
	typ := ctx.typeOf(d.Left)
	target := ctx.newReg()
	if op == ir.OpCmp {
		ctx.emit(op, typ, &ir.Sym{Name: d.Op}, left, right, target)
	} else {
		ctx.emit(op, typ, left, right, target)
	}
	return target
}

// codegenUnaryOp lowers -x as 0 - x and !x as 1 ^ x; +x is the operand itself.
func (ctx *Context) codegenUnaryOp(node *ast.Node, d ast.UnaryOpNode) ir.Value {
	typ := ctx.typeOf(node)
	val := ctx.codegenExpr(d.Expr)
	switch d.Op {
	case "-":
		var zero ir.Value = &ir.Const{Value: 0}
		if typ == ir.TypeF {
			zero = &ir.FloatConst{Value: 0}
		}
		z := ctx.codegenMove(typ, zero)
		target := ctx.newReg()
		ctx.emit(ir.OpSub, typ, z, val, target)
		return target
	case "!":
		one := ctx.codegenMove(ir.TypeI, &ir.Const{Value: 1})
		target := ctx.newReg()
		ctx.emit(ir.OpXor, ir.TypeI, one, val, target)
		return target
	}
	return val
}

// codegenLocation builds the variable operand for a location. Indices that
// fold to a constant are written inline; others are lowered to a register.
func (ctx *Context) codegenLocation(loc *ast.Node) *ir.Var {
	switch d := loc.Data.(type) {
	case ast.SimpleLocationNode:
		return &ir.Var{Name: d.Name}
	case ast.ArraySimpleLocationNode:
		if k, ok := ast.IntConstant(d.Index, nil); ok {
			return &ir.Var{Name: d.Name, Index: &ir.Const{Value: k}}
		}
		return &ir.Var{Name: d.Name, Index: ctx.codegenExpr(d.Index)}
	}
	panic(untypedNode{loc})
}

func (ctx *Context) codegenWrite(node *ast.Node) {
	d := node.Data.(ast.WriteLocationNode)
	typ := ctx.typeOf(node)
	val := ctx.codegenExpr(d.Value)
	ctx.emit(ir.OpStore, typ, val, ctx.codegenLocation(d.Loc))
}

func (ctx *Context) codegenFuncCall(node *ast.Node, d ast.FuncCallNode) ir.Value {
	ctx.typed(node)
	args := []ir.Value{&ir.Sym{Name: funcName(d.Name)}}
	for _, arg := range d.Args {
		args = append(args, ctx.codegenExpr(arg))
	}
	target := ctx.newReg()
	ctx.emit(ir.OpCall, ir.TypeNone, append(args, target)...)
	return target
}

// codegenReturn emits RET with the value register. A bare return emits a
// plain RET under bare-return and nothing otherwise.
func (ctx *Context) codegenReturn(node *ast.Node) {
	d := node.Data.(ast.ReturnStatementNode)
	if d.Value == nil {
		if ctx.bareReturn {
			ctx.emit(ir.OpRet, ir.TypeNone)
		}
		return
	}
	ctx.emit(ir.OpRet, ir.TypeNone, ctx.codegenExpr(d.Value))
}

func (ctx *Context) codegenIf(node *ast.Node) {
	d := node.Data.(ast.IfStatementNode)
	cond := ctx.codegenExpr(d.Cond)
	trueL, falseL, mergeL := ctx.newLabel(), ctx.newLabel(), ctx.newLabel()

	ctx.emit(ir.OpCBranch, ir.TypeNone, cond, trueL, falseL)
	ctx.emit(ir.OpLabel, ir.TypeNone, trueL)
	ctx.codegenStmt(d.Then)
	ctx.emit(ir.OpBranch, ir.TypeNone, mergeL)
	ctx.emit(ir.OpLabel, ir.TypeNone, falseL)
	ctx.codegenStmt(d.Else)
	ctx.emit(ir.OpBranch, ir.TypeNone, mergeL)
	ctx.emit(ir.OpLabel, ir.TypeNone, mergeL)
}

// codegenWhile uses the if shape. With loop-retest the condition sits under
// a test label that the end of the body branches back to; without it the
// body runs at most once.
func (ctx *Context) codegenWhile(node *ast.Node) {
	d := node.Data.(ast.WhileStatementNode)
	var testL *ir.Label
	if ctx.loopRetest {
		testL = ctx.newLabel()
		ctx.emit(ir.OpLabel, ir.TypeNone, testL)
	}
	cond := ctx.codegenExpr(d.Cond)
	bodyL, falseL, mergeL := ctx.newLabel(), ctx.newLabel(), ctx.newLabel()

	ctx.emit(ir.OpCBranch, ir.TypeNone, cond, bodyL, falseL)
	ctx.emit(ir.OpLabel, ir.TypeNone, bodyL)

	prevBreak := ctx.breakLabel
	ctx.breakLabel = mergeL
	ctx.codegenStmt(d.Body)
	ctx.breakLabel = prevBreak

	if testL != nil {
		ctx.emit(ir.OpBranch, ir.TypeNone, testL)
	} else {
		ctx.emit(ir.OpBranch, ir.TypeNone, mergeL)
	}
	ctx.emit(ir.OpLabel, ir.TypeNone, falseL)
	ctx.emit(ir.OpBranch, ir.TypeNone, mergeL)
	ctx.emit(ir.OpLabel, ir.TypeNone, mergeL)
}
