package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xplshn/minic/pkg/config"
	"github.com/xplshn/minic/pkg/ir"
)

// slot is the memory backing a named variable: a data symbol for globals,
// a stack allocation for locals and spilled parameters.
type slot struct {
	addr string
	typ  ir.Type
}

type qbeBackend struct {
	out        *strings.Builder
	prog       *ir.Program
	currentFn  *ir.Func
	globals    map[string]*slot
	locals     map[string]*slot
	allocs     map[*ir.Instruction]*slot
	tempCount  int
	terminated bool
}

func NewQBEBackend() Backend { return &qbeBackend{} }

func (b *qbeBackend) GenerateIR(prog *ir.Program, cfg *config.Config) (string, error) {
	var qbeIRBuilder strings.Builder
	b.out = &qbeIRBuilder
	b.prog = prog
	b.globals = make(map[string]*slot)
	b.tempCount = 0

	if prog.Init() == nil {
		return "", fmt.Errorf("qbe: program has no %s function", ir.InitFuncName)
	}
	b.genGlobals()
	for _, fn := range prog.Funcs {
		if err := b.genFunc(fn); err != nil {
			return "", err
		}
	}
	b.genEntry()
	return qbeIRBuilder.String(), nil
}

// elemSize is the storage size of one element of type t.
func elemSize(t ir.Type) int64 {
	if t == ir.TypeB {
		return 4
	}
	return 8
}

// regType is the QBE class of a register holding a value of type t.
func regType(t ir.Type) string {
	if t == ir.TypeF {
		return "d"
	}
	return "l"
}

func retType(t ir.Type) string {
	if t == ir.TypeNone {
		return ""
	}
	return " " + regType(t)
}

func (b *qbeBackend) formatValue(v ir.Value) string {
	switch val := v.(type) {
	case *ir.Const:
		return strconv.FormatInt(val.Value, 10)
	case *ir.FloatConst:
		return "d_" + strconv.FormatFloat(val.Value, 'g', -1, 64)
	case *ir.Register:
		return "%" + val.Name
	case *ir.Label:
		return "@" + val.Name
	}
	return v.String()
}

func (b *qbeBackend) newTemp() string {
	b.tempCount++
	return fmt.Sprintf("%%_t%d", b.tempCount)
}

func (b *qbeBackend) genGlobals() {
	for _, in := range b.prog.Init().Code {
		if in.Op != ir.OpVar {
			continue
		}
		v := in.Args[0].(*ir.Var)
		count := v.Len
		if count == 0 {
			count = 1
		}
		b.globals[v.Name] = &slot{addr: "$" + v.Name, typ: in.Typ}
		fmt.Fprintf(b.out, "data $%s = align 8 { z %d }\n", v.Name, count*elemSize(in.Typ))
	}
}

func (b *qbeBackend) genFunc(fn *ir.Func) error {
	b.currentFn = fn
	b.locals = make(map[string]*slot)
	b.allocs = make(map[*ir.Instruction]*slot)
	b.terminated = false

	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = fmt.Sprintf("%s %%p.%s", regType(p.Typ), p.Name)
	}
	fmt.Fprintf(b.out, "\nfunction%s $%s(%s) {\n@start\n", retType(fn.ReturnType), fn.Name, strings.Join(params, ", "))

	for _, p := range fn.Params {
		s := &slot{addr: "%v." + p.Name, typ: p.Typ}
		fmt.Fprintf(b.out, "\t%s =l alloc8 8\n", s.addr)
		fmt.Fprintf(b.out, "\tstore%s %%p.%s, %s\n", storeSuffix(p.Typ), p.Name, s.addr)
		b.locals[p.Name] = s
	}
	for i, in := range fn.Code {
		if in.Op != ir.OpAlloc {
			continue
		}
		v := in.Args[0].(*ir.Var)
		count := v.Len
		if count == 0 {
			count = 1
		}
		s := &slot{addr: fmt.Sprintf("%%v.%s.%d", v.Name, i), typ: in.Typ}
		fmt.Fprintf(b.out, "\t%s =l alloc8 %d\n", s.addr, count*elemSize(in.Typ))
		b.allocs[in] = s
	}

	for _, in := range fn.Code {
		if err := b.genInstr(in); err != nil {
			return fmt.Errorf("qbe: in function %s: %w", fn.Name, err)
		}
	}
	if !b.terminated {
		b.genDefaultReturn()
	}
	b.out.WriteString("}\n")
	return nil
}

func (b *qbeBackend) genDefaultReturn() {
	switch b.currentFn.ReturnType {
	case ir.TypeNone:
		b.out.WriteString("\tret\n")
	case ir.TypeF:
		b.out.WriteString("\tret d_0\n")
	default:
		b.out.WriteString("\tret 0\n")
	}
}

func storeSuffix(t ir.Type) string {
	switch t {
	case ir.TypeF: return "d"
	case ir.TypeB: return "w"
	}
	return "l"
}

func loadSuffix(t ir.Type) string {
	switch t {
	case ir.TypeF: return "d"
	case ir.TypeB: return "sw"
	}
	return "l"
}

// address emits the arithmetic for an element access and returns the
// operand naming the variable's memory.
func (b *qbeBackend) address(v *ir.Var) (string, error) {
	s, ok := b.locals[v.Name]
	if !ok {
		if s, ok = b.globals[v.Name]; !ok {
			return "", fmt.Errorf("unknown variable '%s'", v.Name)
		}
	}
	if v.Index == nil {
		return s.addr, nil
	}
	size := elemSize(s.typ)
	addr := b.newTemp()
	switch idx := v.Index.(type) {
	case *ir.Const:
		fmt.Fprintf(b.out, "\t%s =l add %s, %d\n", addr, s.addr, idx.Value*size)
	default:
		off := b.newTemp()
		fmt.Fprintf(b.out, "\t%s =l mul %s, %d\n", off, b.formatValue(idx), size)
		fmt.Fprintf(b.out, "\t%s =l add %s, %s\n", addr, s.addr, off)
	}
	return addr, nil
}

var intCmps = map[string]string{"==": "ceql", "!=": "cnel", "<": "csltl", "<=": "cslel", ">": "csgtl", ">=": "csgel"}
var floatCmps = map[string]string{"==": "ceqd", "!=": "cned", "<": "cltd", "<=": "cled", ">": "cgtd", ">=": "cged"}

var arith = map[ir.Op]string{
	ir.OpAdd: "add", ir.OpSub: "sub", ir.OpMul: "mul", ir.OpDiv: "div",
	ir.OpAnd: "and", ir.OpOr: "or", ir.OpXor: "xor",
}

func (b *qbeBackend) genInstr(in *ir.Instruction) error {
	if in.Op == ir.OpLabel {
		fmt.Fprintf(b.out, "%s\n", b.formatValue(in.Args[0]))
		b.terminated = false
		return nil
	}
	if b.terminated {
		// QBE needs a label before any instruction that follows a jump.
		b.tempCount++
		fmt.Fprintf(b.out, "@_dead%d\n", b.tempCount)
		b.terminated = false
	}
	a := in.Args
	switch in.Op {
	case ir.OpMov:
		fmt.Fprintf(b.out, "\t%s =%s copy %s\n", b.formatValue(a[1]), regType(in.Typ), b.formatValue(a[0]))
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpAnd, ir.OpOr, ir.OpXor:
		fmt.Fprintf(b.out, "\t%s =%s %s %s, %s\n", b.formatValue(a[2]), regType(in.Typ), arith[in.Op], b.formatValue(a[0]), b.formatValue(a[1]))
	case ir.OpCmp:
		table := intCmps
		if in.Typ == ir.TypeF {
			table = floatCmps
		}
		op, ok := table[a[0].String()]
		if !ok {
			return fmt.Errorf("unknown comparison '%s'", a[0])
		}
		fmt.Fprintf(b.out, "\t%s =l %s %s, %s\n", b.formatValue(a[3]), op, b.formatValue(a[1]), b.formatValue(a[2]))
	case ir.OpVar:
	case ir.OpAlloc:
		b.locals[a[0].(*ir.Var).Name] = b.allocs[in]
	case ir.OpLoad:
		addr, err := b.address(a[0].(*ir.Var))
		if err != nil {
			return err
		}
		fmt.Fprintf(b.out, "\t%s =%s load%s %s\n", b.formatValue(a[1]), regType(in.Typ), loadSuffix(in.Typ), addr)
	case ir.OpStore:
		addr, err := b.address(a[1].(*ir.Var))
		if err != nil {
			return err
		}
		fmt.Fprintf(b.out, "\tstore%s %s, %s\n", storeSuffix(in.Typ), b.formatValue(a[0]), addr)
	case ir.OpCBranch:
		fmt.Fprintf(b.out, "\tjnz %s, %s, %s\n", b.formatValue(a[0]), b.formatValue(a[1]), b.formatValue(a[2]))
		b.terminated = true
	case ir.OpBranch:
		fmt.Fprintf(b.out, "\tjmp %s\n", b.formatValue(a[0]))
		b.terminated = true
	case ir.OpRet:
		if len(a) == 0 || b.currentFn.ReturnType == ir.TypeNone {
			b.genDefaultReturn()
		} else {
			fmt.Fprintf(b.out, "\tret %s\n", b.formatValue(a[0]))
		}
		b.terminated = true
	case ir.OpCall:
		return b.genCall(in)
	default:
		return fmt.Errorf("unsupported instruction %s", in.Opcode())
	}
	return nil
}

func (b *qbeBackend) genCall(in *ir.Instruction) error {
	name := in.Args[0].String()
	callee := b.prog.FindFunc(name)
	if callee == nil {
		return fmt.Errorf("call to unknown function '%s'", name)
	}
	argVals := in.Args[1 : len(in.Args)-1]
	if len(argVals) != len(callee.Params) {
		return fmt.Errorf("call to '%s' passes %d arguments, want %d", name, len(argVals), len(callee.Params))
	}
	args := make([]string, len(argVals))
	for i, v := range argVals {
		args[i] = regType(callee.Params[i].Typ) + " " + b.formatValue(v)
	}
	call := fmt.Sprintf("call $%s(%s)", name, strings.Join(args, ", "))
	if callee.ReturnType == ir.TypeNone {
		fmt.Fprintf(b.out, "\t%s\n", call)
		return nil
	}
	fmt.Fprintf(b.out, "\t%s =%s %s\n", b.formatValue(in.Args[len(in.Args)-1]), regType(callee.ReturnType), call)
	return nil
}

// genEntry emits the C entry point: run the global initialisers, then the
// program's main function when there is one.
func (b *qbeBackend) genEntry() {
	b.out.WriteString("\nexport function l $main() {\n@start\n")
	fmt.Fprintf(b.out, "\tcall $%s()\n", ir.InitFuncName)
	mainFn := b.prog.FindFunc(ir.MainFuncName)
	switch {
	case mainFn == nil || len(mainFn.Params) > 0:
		b.out.WriteString("\tret 0\n")
	case mainFn.ReturnType == ir.TypeI || mainFn.ReturnType == ir.TypeB:
		fmt.Fprintf(b.out, "\t%%_status =l call $%s()\n\tret %%_status\n", ir.MainFuncName)
	default:
		fmt.Fprintf(b.out, "\tcall $%s()\n\tret 0\n", ir.MainFuncName)
	}
	b.out.WriteString("}\n")
}
