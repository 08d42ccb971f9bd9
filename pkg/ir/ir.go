package ir

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xplshn/minic/pkg/types"
)

const (
	InitFuncName = "__minic_init"
	MainFuncName = "__minic_main"
)

type Op int

const (
	OpMov Op = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpCmp
	OpAnd
	OpOr
	OpXor
	OpVar
	OpAlloc
	OpLoad
	OpStore
	OpLabel
	OpCBranch
	OpBranch
	OpCall
	OpRet
)

var opNames = [...]string{
	OpMov: "MOV", OpAdd: "ADD", OpSub: "SUB", OpMul: "MUL", OpDiv: "DIV",
	OpCmp: "CMP", OpAnd: "AND", OpOr: "OR", OpXor: "XOR",
	OpVar: "VAR", OpAlloc: "ALLOC", OpLoad: "LOAD", OpStore: "STORE",
	OpLabel: "LABEL", OpCBranch: "CBRANCH", OpBranch: "BRANCH", OpCall: "CALL", OpRet: "RET",
}

func (o Op) String() string {
	if o >= 0 && int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Suffixed reports whether the opcode carries a type letter.
func (o Op) Suffixed() bool { return o <= OpStore }

// ParseOp maps a mnemonic back to its opcode.
func ParseOp(name string) (Op, bool) {
	for i, n := range opNames {
		if n == name {
			return Op(i), true
		}
	}
	return 0, false
}

// BinaryOp returns the opcode used to lower the source operator op.
func BinaryOp(op string) (Op, bool) {
	switch op {
	case "+": return OpAdd, true
	case "-": return OpSub, true
	case "*": return OpMul, true
	case "/": return OpDiv, true
	case "&&": return OpAnd, true
	case "||": return OpOr, true
	case "<", "<=", ">", ">=", "==", "!=": return OpCmp, true
	}
	return 0, false
}

type Type int

const (
	TypeNone Type = iota
	TypeI         // int and bool
	TypeF         // float
	TypeB         // char
)

func (t Type) String() string {
	switch t {
	case TypeI: return "I"
	case TypeF: return "F"
	case TypeB: return "B"
	}
	return ""
}

// GetType maps a checked source type to its type letter.
func GetType(typ *types.Type) Type {
	if typ == nil {
		return TypeNone
	}
	switch typ.Kind {
	case types.KindInt, types.KindBool: return TypeI
	case types.KindFloat: return TypeF
	case types.KindChar: return TypeB
	}
	return TypeNone
}

type Value interface {
	isValue()
	String() string
}

type Const struct{ Value int64 }
type FloatConst struct{ Value float64 }
type Register struct{ Name string }
type Label struct{ Name string }

// Var names a variable. Len is set on array declarations, Index on element
// accesses; the index is a Const or a Register.
type Var struct {
	Name  string
	Len   int64
	Index Value
}

// Sym is a bare word operand: a comparison operator or a callee name.
type Sym struct{ Name string }

func (c *Const) isValue()      {}
func (f *FloatConst) isValue() {}
func (r *Register) isValue()   {}
func (l *Label) isValue()      {}
func (v *Var) isValue()        {}
func (s *Sym) isValue()        {}

func (c *Const) String() string { return strconv.FormatInt(c.Value, 10) }
func (f *FloatConst) String() string {
	s := strconv.FormatFloat(f.Value, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
func (r *Register) String() string { return r.Name }
func (l *Label) String() string    { return l.Name }
func (v *Var) String() string {
	switch {
	case v.Index != nil:
		return v.Name + "[" + v.Index.String() + "]"
	case v.Len > 0:
		return v.Name + "[" + strconv.FormatInt(v.Len, 10) + "]"
	}
	return v.Name
}
func (s *Sym) String() string { return s.Name }

type Instruction struct {
	Op   Op
	Typ  Type
	Args []Value
}

// Opcode is the mnemonic followed by the type letter, if any.
func (in *Instruction) Opcode() string {
	if in.Op.Suffixed() {
		return in.Op.String() + in.Typ.String()
	}
	return in.Op.String()
}

// Result returns the register an instruction defines, or nil.
func (in *Instruction) Result() *Register {
	switch in.Op {
	case OpMov, OpAdd, OpSub, OpMul, OpDiv, OpCmp, OpAnd, OpOr, OpXor, OpLoad, OpCall:
		if r, ok := in.Args[len(in.Args)-1].(*Register); ok {
			return r
		}
	}
	return nil
}

func (in *Instruction) String() string {
	var sb strings.Builder
	sb.WriteString(in.Opcode())
	for i, a := range in.Args {
		if i == 0 {
			sb.WriteByte(' ')
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(a.String())
	}
	return sb.String()
}

type Param struct {
	Name string
	Typ  Type
}

type Func struct {
	Name       string
	Params     []*Param
	ReturnType Type
	Code       []*Instruction
}

func (f *Func) Append(op Op, typ Type, args ...Value) *Instruction {
	in := &Instruction{Op: op, Typ: typ, Args: args}
	f.Code = append(f.Code, in)
	return in
}

// Signature renders the function header, e.g. sum(a:I, b:I) -> I.
func (f *Func) Signature() string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Name + ":" + p.Typ.String()
	}
	ret := f.ReturnType.String()
	if ret == "" {
		ret = "void"
	}
	return fmt.Sprintf("%s(%s) -> %s", f.Name, strings.Join(params, ", "), ret)
}

// Lines returns the textual form of every instruction, in order.
func (f *Func) Lines() []string {
	lines := make([]string, len(f.Code))
	for i, in := range f.Code {
		lines[i] = in.String()
	}
	return lines
}

type Program struct {
	Funcs []*Func
}

func (p *Program) FindFunc(name string) *Func {
	for _, f := range p.Funcs {
		if f.Name == name { return f }
	}
	return nil
}

// Init returns the function holding the global-scope code.
func (p *Program) Init() *Func { return p.FindFunc(InitFuncName) }

// WriteTo dumps the program in the textual form used by --dump-ir.
func (p *Program) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder
	for i, f := range p.Funcs {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "function %s\n", f.Signature())
		for _, in := range f.Code {
			if in.Op == OpLabel {
				fmt.Fprintf(&sb, "%s:\n", in.Args[0])
				continue
			}
			fmt.Fprintf(&sb, "    %s\n", in)
		}
	}
	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}

func (p *Program) String() string {
	var sb strings.Builder
	p.WriteTo(&sb)
	return sb.String()
}
