package ir

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func TestProgramStandsAlone(t *testing.T) {
	init := &Func{Name: InitFuncName, ReturnType: TypeI}
	init.Append(OpVar, TypeF, &Var{Name: "v", Len: 2})

	sum := &Func{
		Name:       "sum",
		Params:     []*Param{{Name: "a", Typ: TypeI}, {Name: "b", Typ: TypeI}},
		ReturnType: TypeI,
	}
	a, b, r := &Register{Name: "R1"}, &Register{Name: "R2"}, &Register{Name: "R3"}
	sum.Append(OpLoad, TypeI, &Var{Name: "a"}, a)
	sum.Append(OpLoad, TypeI, &Var{Name: "b"}, b)
	sum.Append(OpAdd, TypeI, a, b, r)
	sum.Append(OpLabel, TypeNone, &Label{Name: "L1"})
	sum.Append(OpRet, TypeNone, r)

	prog := &Program{Funcs: []*Func{init, sum}}
	be.Equal(t, prog.Init(), init)
	be.Equal(t, sum.Signature(), "sum(a:I, b:I) -> I")
	be.Equal(t, sum.Code[2].Result(), r)
	be.Equal(t, strings.Join([]string{
		"function __minic_init() -> I",
		"    VARF v[2]",
		"",
		"function sum(a:I, b:I) -> I",
		"    LOADI a, R1",
		"    LOADI b, R2",
		"    ADDI R1, R2, R3",
		"L1:",
		"    RET R3",
		"",
	}, "\n"), prog.String())
}

func TestOperandText(t *testing.T) {
	be.Equal(t, (&FloatConst{Value: 2}).String(), "2.0")
	be.Equal(t, (&FloatConst{Value: 0.5}).String(), "0.5")
	be.Equal(t, (&Var{Name: "v", Index: &Const{Value: 1}}).String(), "v[1]")
	be.Equal(t, (&Var{Name: "v", Index: &Register{Name: "R4"}}).String(), "v[R4]")

	op, ok := ParseOp("CBRANCH")
	be.True(t, ok)
	be.Equal(t, op, OpCBranch)
	be.True(t, !op.Suffixed())
	be.Equal(t, GetType(nil), TypeNone)
}
