package codegen

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nalgeon/be"
	"github.com/xplshn/minic/pkg/ast"
	"github.com/xplshn/minic/pkg/config"
	"github.com/xplshn/minic/pkg/ir"
	"github.com/xplshn/minic/pkg/parser"
	"github.com/xplshn/minic/pkg/token"
	"github.com/xplshn/minic/pkg/typeChecker"
	"github.com/xplshn/minic/pkg/util"
)

func compile(t *testing.T, src string, cfg *config.Config) *ir.Program {
	t.Helper()
	if cfg == nil {
		cfg = config.NewConfig()
	}
	rep := util.NewReporter(cfg, nil)
	root, err := parser.ParseSource([]rune(src), cfg, rep)
	be.Err(t, err, nil)
	typeChecker.NewTypeChecker(cfg, rep).Check(root)
	if rep.ErrorCount() > 0 {
		t.Fatalf("type checking failed: %v", rep.Errors())
	}
	prog, err := NewContext(cfg).GenerateIR(root)
	be.Err(t, err, nil)
	return prog
}

func expectCode(t *testing.T, fn *ir.Func, want ...string) {
	t.Helper()
	if diff := cmp.Diff(want, fn.Lines()); diff != "" {
		t.Errorf("%s mismatch (-want +got):\n%s", fn.Name, diff)
	}
}

func TestGlobalInitializers(t *testing.T) {
	prog := compile(t, "int x = 1; int y = 2; int z = x + y;", nil)
	be.Equal(t, len(prog.Funcs), 1)
	expectCode(t, prog.Init(),
		"MOVI 1, R1",
		"VARI x",
		"STOREI R1, x",
		"MOVI 2, R2",
		"VARI y",
		"STOREI R2, y",
		"LOADI x, R3",
		"LOADI y, R4",
		"ADDI R3, R4, R5",
		"VARI z",
		"STOREI R5, z",
	)
}

func TestIfLowering(t *testing.T) {
	prog := compile(t, "int x;\nvoid f(int a) { if (a < 1) x = 1; else x = 2; }", nil)
	expectCode(t, prog.Init(), "VARI x")
	f := prog.FindFunc("f")
	be.Equal(t, f.Signature(), "f(a:I) -> void")
	expectCode(t, f,
		"LOADI a, R1",
		"MOVI 1, R2",
		"CMPI <, R1, R2, R3",
		"CBRANCH R3, L1, L2",
		"LABEL L1",
		"MOVI 1, R4",
		"STOREI R4, x",
		"BRANCH L3",
		"LABEL L2",
		"MOVI 2, R5",
		"STOREI R5, x",
		"BRANCH L3",
		"LABEL L3",
	)
}

const countLoop = `int count(int n) {
    int i = 0;
    while (i < n) {
        i = i + 1;
        if (i == 5) break;
    }
    return i;
}`

func TestWhileRetestsCondition(t *testing.T) {
	prog := compile(t, countLoop, nil)
	expectCode(t, prog.FindFunc("count"),
		"MOVI 0, R1",
		"ALLOCI i",
		"STOREI R1, i",
		"LABEL L1",
		"LOADI i, R2",
		"LOADI n, R3",
		"CMPI <, R2, R3, R4",
		"CBRANCH R4, L2, L3",
		"LABEL L2",
		"LOADI i, R5",
		"MOVI 1, R6",
		"ADDI R5, R6, R7",
		"STOREI R7, i",
		"LOADI i, R8",
		"MOVI 5, R9",
		"CMPI ==, R8, R9, R10",
		"CBRANCH R10, L5, L6",
		"LABEL L5",
		"BRANCH L4",
		"BRANCH L7",
		"LABEL L6",
		"BRANCH L7",
		"LABEL L7",
		"BRANCH L1",
		"LABEL L3",
		"BRANCH L4",
		"LABEL L4",
		"LOADI i, R11",
		"RET R11",
	)
}

func TestWhileWithoutRetest(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatLoopRetest, false)
	prog := compile(t, "void g() { bool b = true; while (b) b = false; }", cfg)
	expectCode(t, prog.FindFunc("g"),
		"MOVI 1, R1",
		"ALLOCI b",
		"STOREI R1, b",
		"LOADI b, R2",
		"CBRANCH R2, L1, L2",
		"LABEL L1",
		"MOVI 0, R3",
		"STOREI R3, b",
		"BRANCH L3",
		"LABEL L2",
		"BRANCH L3",
		"LABEL L3",
	)
}

func TestUnaryOperatorsAndArrays(t *testing.T) {
	src := `float neg(float v) { return -v; }
int main() {
    char c = 'a';
    bool n = !true;
    int arr[2];
    arr[1] = 3;
    return +arr[1];
}`
	prog := compile(t, src, nil)
	expectCode(t, prog.FindFunc("neg"),
		"LOADF v, R1",
		"MOVF 0.0, R2",
		"SUBF R2, R1, R3",
		"RET R3",
	)
	expectCode(t, prog.FindFunc(ir.MainFuncName),
		"MOVB 97, R4",
		"ALLOCB c",
		"STOREB R4, c",
		"MOVI 1, R5",
		"MOVI 1, R6",
		"XORI R6, R5, R7",
		"ALLOCI n",
		"STOREI R7, n",
		"ALLOCI arr[2]",
		"MOVI 3, R8",
		"STOREI R8, arr[1]",
		"LOADI arr[1], R9",
		"RET R9",
	)
	be.Equal(t, prog.FindFunc("main"), (*ir.Func)(nil))
}

func TestDynamicIndexUsesRegister(t *testing.T) {
	prog := compile(t, "float v[4];\nfloat at(int i) { return v[i + 1]; }", nil)
	expectCode(t, prog.Init(), "VARF v[4]")
	expectCode(t, prog.FindFunc("at"),
		"LOADI i, R1",
		"MOVI 1, R2",
		"ADDI R1, R2, R3",
		"LOADF v[R3], R4",
		"RET R4",
	)
}

func TestCallsAndFunctionOrder(t *testing.T) {
	prog := compile(t, "int add(int a, int b) { return a + b; }\nint main() { return add(1, 2); }", nil)
	var names []string
	for _, f := range prog.Funcs {
		names = append(names, f.Name)
	}
	be.Equal(t, names, []string{ir.InitFuncName, "add", ir.MainFuncName})
	expectCode(t, prog.FindFunc(ir.MainFuncName),
		"MOVI 1, R4",
		"MOVI 2, R5",
		"CALL add, R4, R5, R6",
		"RET R6",
	)
}

func TestBareReturnInVoidFunction(t *testing.T) {
	const src = "int x;\nvoid f() { if (x > 0) return; x = 1; }"
	head := []string{
		"LOADI x, R1",
		"MOVI 0, R2",
		"CMPI >, R1, R2, R3",
		"CBRANCH R3, L1, L2",
		"LABEL L1",
	}
	tail := []string{
		"BRANCH L3",
		"LABEL L2",
		"BRANCH L3",
		"LABEL L3",
		"MOVI 1, R4",
		"STOREI R4, x",
	}

	prog := compile(t, src, nil)
	expectCode(t, prog.FindFunc("f"), append(append(append([]string{}, head...), "RET"), tail...)...)

	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatBareReturn, false)
	prog = compile(t, src, cfg)
	expectCode(t, prog.FindFunc("f"), append(append([]string{}, head...), tail...)...)
}

func TestUntypedTreeIsRejected(t *testing.T) {
	decl := ast.NewVarDeclaration(token.At(3), "x", ast.NewSimpleType(token.At(3), "int"), nil)
	root := ast.NewProgram(token.At(1), []*ast.Node{decl})
	prog, err := NewContext(config.NewConfig()).GenerateIR(root)
	be.True(t, errors.Is(err, ErrUntyped))
	be.Equal(t, prog, (*ir.Program)(nil))
	be.True(t, strings.Contains(err.Error(), "VarDeclaration on line 3"))
}

func TestDump(t *testing.T) {
	prog := compile(t, "int x = 1;\nbool f(bool b) { if (b) return false; return true; }", nil)
	want := `function __minic_init() -> I
    MOVI 1, R1
    VARI x
    STOREI R1, x

function f(b:I) -> I
    LOADI b, R2
    CBRANCH R2, L1, L2
L1:
    MOVI 0, R3
    RET R3
    BRANCH L3
L2:
    BRANCH L3
L3:
    MOVI 1, R4
    RET R4
`
	if diff := cmp.Diff(want, prog.String()); diff != "" {
		t.Errorf("dump mismatch (-want +got):\n%s", diff)
	}
}

func TestQBEOutput(t *testing.T) {
	src := `int arr[3];
float half(float x) { if (x < 1.0) return x; return x / 2.0; }
int add(int a, int b) { return a + b; }
int main() { arr[2] = add(1, 2); return arr[2]; }`
	prog := compile(t, src, nil)
	cfg := config.NewConfig()
	backend, err := NewBackend(cfg)
	be.Err(t, err, nil)
	qbe, err := backend.GenerateIR(prog, cfg)
	be.Err(t, err, nil)

	for _, want := range []string{
		"data $arr = align 8 { z 24 }",
		"function l $__minic_init() {",
		"function d $half(d %p.x) {",
		"%R3 =l cltd %R1, %R2",
		"jnz %R3, @L1, @L2",
		"function l $add(l %p.a, l %p.b) {",
		"\tstorel %p.a, %v.a",
		"%R10 =l add %R8, %R9",
		"@_dead1",
		"%R13 =l call $add(l %R11, l %R12)",
		"\tstorel %R13, %_t2",
		"export function l $main() {",
		"\tcall $__minic_init()",
		"%_status =l call $__minic_main()",
	} {
		if !strings.Contains(qbe, want) {
			t.Errorf("QBE output lacks %q:\n%s", want, qbe)
		}
	}

	cfg.BackendName = "llvm"
	_, err = NewBackend(cfg)
	be.True(t, err != nil)
}
