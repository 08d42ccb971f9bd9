// Package interp executes MiniC IR directly.
package interp

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/xplshn/minic/pkg/config"
	"github.com/xplshn/minic/pkg/ir"
)

var (
	ErrDivisionByZero = errors.New("integer division by zero")
	ErrOutOfBounds    = errors.New("array index out of bounds")
	ErrStepLimit      = errors.New("step limit exceeded")
	ErrUnknown        = errors.New("unknown name")
)

// Value is a run-time value tagged with its IR type letter.
type Value struct {
	Typ   ir.Type
	Int   int64
	Float float64
}

func IntValue(v int64) Value     { return Value{Typ: ir.TypeI, Int: v} }
func FloatValue(v float64) Value { return Value{Typ: ir.TypeF, Float: v} }

func (v Value) String() string {
	switch v.Typ {
	case ir.TypeI:
		return strconv.FormatInt(v.Int, 10)
	case ir.TypeF:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case ir.TypeB:
		return strconv.QuoteRune(rune(v.Int))
	}
	return "void"
}

// cell holds one register or memory word; the opcode suffix decides which
// half is meaningful.
type cell struct {
	i int64
	f float64
}

type storage struct {
	typ   ir.Type
	cells []cell
}

func newStorage(typ ir.Type, n int64) *storage {
	if n < 1 {
		n = 1
	}
	return &storage{typ: typ, cells: make([]cell, n)}
}

type frame struct {
	fn     *ir.Func
	regs   map[string]cell
	locals map[string]*storage
}

type Machine struct {
	prog     *ir.Program
	globals  map[string]*storage
	labels   map[*ir.Func]map[string]int
	maxSteps int64
	steps    int64
}

func New(prog *ir.Program, cfg *config.Config) *Machine {
	return &Machine{
		prog:     prog,
		globals:  make(map[string]*storage),
		labels:   make(map[*ir.Func]map[string]int),
		maxSteps: int64(cfg.MaxSteps),
	}
}

// Steps reports how many instructions have been executed so far.
func (m *Machine) Steps() int64 { return m.steps }

// Run executes the init function and then the program's main function, if
// it has one. The returned value is main's result, or a void value.
func (m *Machine) Run(ctx context.Context) (Value, error) {
	init := m.prog.Init()
	if init == nil {
		return Value{}, fmt.Errorf("%w: function %s", ErrUnknown, ir.InitFuncName)
	}
	if _, err := m.call(ctx, init, nil); err != nil {
		return Value{}, err
	}
	if m.prog.FindFunc(ir.MainFuncName) == nil {
		return Value{}, nil
	}
	return m.Call(ctx, ir.MainFuncName)
}

// Call runs a single function with the given arguments.
func (m *Machine) Call(ctx context.Context, name string, args ...Value) (Value, error) {
	fn := m.prog.FindFunc(name)
	if fn == nil {
		return Value{}, fmt.Errorf("%w: function %s", ErrUnknown, name)
	}
	if len(args) != len(fn.Params) {
		return Value{}, fmt.Errorf("%s expects %d arguments, got %d", name, len(fn.Params), len(args))
	}
	cells := make([]cell, len(args))
	for i, a := range args {
		cells[i] = cell{i: a.Int, f: a.Float}
	}
	res, err := m.call(ctx, fn, cells)
	if err != nil {
		return Value{}, err
	}
	return Value{Typ: fn.ReturnType, Int: res.i, Float: res.f}, nil
}

// Global returns the current value of a scalar global, or its first element.
func (m *Machine) Global(name string) (Value, bool) {
	st, ok := m.globals[name]
	if !ok {
		return Value{}, false
	}
	return Value{Typ: st.typ, Int: st.cells[0].i, Float: st.cells[0].f}, true
}

func (m *Machine) labelsOf(fn *ir.Func) map[string]int {
	if l, ok := m.labels[fn]; ok {
		return l
	}
	l := make(map[string]int)
	for pc, in := range fn.Code {
		if in.Op == ir.OpLabel {
			l[in.Args[0].String()] = pc
		}
	}
	m.labels[fn] = l
	return l
}

func (m *Machine) call(ctx context.Context, fn *ir.Func, args []cell) (cell, error) {
	f := &frame{fn: fn, regs: make(map[string]cell), locals: make(map[string]*storage)}
	for i, p := range fn.Params {
		st := newStorage(p.Typ, 1)
		st.cells[0] = args[i]
		f.locals[p.Name] = st
	}
	labels := m.labelsOf(fn)

	for pc := 0; pc < len(fn.Code); pc++ {
		m.steps++
		if m.maxSteps > 0 && m.steps > m.maxSteps {
			return cell{}, fmt.Errorf("%w (%d)", ErrStepLimit, m.maxSteps)
		}
		if m.steps%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return cell{}, err
			}
		}

		in := fn.Code[pc]
		a := in.Args
		var err error
		switch in.Op {
		case ir.OpMov:
			f.regs[a[1].String()] = constant(a[0])
		case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv:
			var res cell
			res, err = arith(in.Op, in.Typ, f.reg(a[0]), f.reg(a[1]))
			f.regs[a[2].String()] = res
		case ir.OpCmp:
			f.regs[a[3].String()] = compare(a[0].String(), in.Typ, f.reg(a[1]), f.reg(a[2]))
		case ir.OpAnd:
			f.regs[a[2].String()] = truth(f.reg(a[0]).i != 0 && f.reg(a[1]).i != 0)
		case ir.OpOr:
			f.regs[a[2].String()] = truth(f.reg(a[0]).i != 0 || f.reg(a[1]).i != 0)
		case ir.OpXor:
			f.regs[a[2].String()] = cell{i: f.reg(a[0]).i ^ f.reg(a[1]).i}
		case ir.OpVar:
			v := a[0].(*ir.Var)
			m.globals[v.Name] = newStorage(in.Typ, v.Len)
		case ir.OpAlloc:
			v := a[0].(*ir.Var)
			f.locals[v.Name] = newStorage(in.Typ, v.Len)
		case ir.OpLoad:
			var c *cell
			if c, err = m.address(f, a[0].(*ir.Var)); err == nil {
				f.regs[a[1].String()] = *c
			}
		case ir.OpStore:
			var c *cell
			if c, err = m.address(f, a[1].(*ir.Var)); err == nil {
				*c = f.reg(a[0])
			}
		case ir.OpLabel:
		case ir.OpCBranch:
			target := a[2]
			if f.reg(a[0]).i != 0 {
				target = a[1]
			}
			pc = labels[target.String()]
		case ir.OpBranch:
			pc = labels[a[0].String()]
		case ir.OpCall:
			err = m.execCall(ctx, f, in)
		case ir.OpRet:
			if len(a) == 0 {
				return cell{}, nil
			}
			return f.reg(a[0]), nil
		default:
			err = fmt.Errorf("unsupported instruction")
		}
		if err != nil {
			if errors.Is(err, ErrStepLimit) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return cell{}, err
			}
			return cell{}, fmt.Errorf("in %s at '%s': %w", fn.Name, in, err)
		}
	}
	return cell{}, nil
}

func (m *Machine) execCall(ctx context.Context, f *frame, in *ir.Instruction) error {
	name := in.Args[0].String()
	callee := m.prog.FindFunc(name)
	if callee == nil {
		return fmt.Errorf("%w: function %s", ErrUnknown, name)
	}
	argVals := in.Args[1 : len(in.Args)-1]
	args := make([]cell, len(argVals))
	for i, v := range argVals {
		args[i] = f.reg(v)
	}
	res, err := m.call(ctx, callee, args)
	if err != nil {
		return err
	}
	f.regs[in.Args[len(in.Args)-1].String()] = res
	return nil
}

func (f *frame) reg(v ir.Value) cell {
	if r, ok := v.(*ir.Register); ok {
		return f.regs[r.Name]
	}
	return constant(v)
}

func constant(v ir.Value) cell {
	switch c := v.(type) {
	case *ir.Const:
		return cell{i: c.Value}
	case *ir.FloatConst:
		return cell{f: c.Value}
	}
	return cell{}
}

func truth(b bool) cell {
	if b {
		return cell{i: 1}
	}
	return cell{}
}

// address resolves a variable operand, locals first.
func (m *Machine) address(f *frame, v *ir.Var) (*cell, error) {
	st, ok := f.locals[v.Name]
	if !ok {
		if st, ok = m.globals[v.Name]; !ok {
			return nil, fmt.Errorf("%w: variable %s", ErrUnknown, v.Name)
		}
	}
	if v.Index == nil {
		return &st.cells[0], nil
	}
	idx := f.reg(v.Index).i
	if idx < 0 || idx >= int64(len(st.cells)) {
		return nil, fmt.Errorf("%w: %s[%d] (size %d)", ErrOutOfBounds, v.Name, idx, len(st.cells))
	}
	return &st.cells[idx], nil
}

func arith(op ir.Op, typ ir.Type, l, r cell) (cell, error) {
	if typ == ir.TypeF {
		switch op {
		case ir.OpAdd: return cell{f: l.f + r.f}, nil
		case ir.OpSub: return cell{f: l.f - r.f}, nil
		case ir.OpMul: return cell{f: l.f * r.f}, nil
		}
		return cell{f: l.f / r.f}, nil
	}
	switch op {
	case ir.OpAdd: return cell{i: l.i + r.i}, nil
	case ir.OpSub: return cell{i: l.i - r.i}, nil
	case ir.OpMul: return cell{i: l.i * r.i}, nil
	}
	if r.i == 0 {
		return cell{}, ErrDivisionByZero
	}
	return cell{i: l.i / r.i}, nil
}

func compare(op string, typ ir.Type, l, r cell) cell {
	var c int
	if typ == ir.TypeF {
		switch {
		case l.f < r.f: c = -1
		case l.f > r.f: c = 1
		case l.f != r.f:
			// NaN compares unequal to everything
			return truth(op == "!=")
		}
	} else {
		switch {
		case l.i < r.i: c = -1
		case l.i > r.i: c = 1
		}
	}
	switch op {
	case "<": return truth(c < 0)
	case "<=": return truth(c <= 0)
	case ">": return truth(c > 0)
	case ">=": return truth(c >= 0)
	case "==": return truth(c == 0)
	case "!=": return truth(c != 0)
	}
	return cell{}
}
