package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"runtime"

	"github.com/xplshn/minic/pkg/ast"
	"github.com/xplshn/minic/pkg/cli"
	"github.com/xplshn/minic/pkg/codegen"
	"github.com/xplshn/minic/pkg/config"
	"github.com/xplshn/minic/pkg/interp"
	"github.com/xplshn/minic/pkg/ir"
	"github.com/xplshn/minic/pkg/parser"
	"github.com/xplshn/minic/pkg/typeChecker"
	"github.com/xplshn/minic/pkg/util"
)

const defaultConfigFile = "minic.toml"

type options struct {
	outFile    string
	target     string
	configFile string
	dumpAST    bool
	dot        bool
	dumpIR     bool
	emitQBE    bool
	run        bool
	quiet      bool
}

func main() {
	app := cli.NewApp("minic")
	app.Synopsis = "[options] <input.mc>"
	app.Description = "A compiler for MiniC, a small typed C subset. It checks a program, lowers it to a three-address IR, and then interprets it or compiles it through QBE."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/minic>"

	var opts options
	fs := app.FlagSet
	fs.String(&opts.outFile, "output", "o", "a.out", "Place the output into <file>.", "file")
	fs.String(&opts.target, "target", "t", "", "Set the backend and target ABI (e.g. qbe/arm64).", "backend/target")
	fs.String(&opts.configFile, "config", "", "", "Read settings from a TOML file (default: ./"+defaultConfigFile+" when present).", "file")
	fs.Bool(&opts.dumpAST, "dump-ast", "", false, "Print the type-annotated syntax tree and exit.")
	fs.Bool(&opts.dot, "dot", "", false, "Print the syntax tree as a Graphviz digraph and exit.")
	fs.Bool(&opts.dumpIR, "dump-ir", "d", false, "Print the intermediate representation and exit.")
	fs.Bool(&opts.emitQBE, "emit-qbe", "", false, "Print the QBE intermediate language and exit.")
	fs.Bool(&opts.run, "run", "r", false, "Interpret the program and print the value returned by main.")
	fs.Bool(&opts.quiet, "quiet", "q", false, "Do not print pipeline progress.")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(inputFiles []string) error {
		if len(inputFiles) != 1 {
			util.Fatal("expected exactly one input file, got %d", len(inputFiles))
		}
		if err := loadConfig(cfg, opts.configFile); err != nil {
			util.Fatal("%v", err)
		}
		cfg.ApplyFlagGroups(warningFlags, featureFlags)
		target := opts.target
		if target == "" {
			target = cfg.BackendTarget
		}
		cfg.SetTarget(runtime.GOOS, runtime.GOARCH, target)

		progress := io.Writer(os.Stdout)
		if opts.quiet || opts.dumpAST || opts.dot {
			progress = io.Discard
		}
		if err := compile(inputFiles[0], cfg, &opts, progress); err != nil {
			fmt.Fprintf(os.Stderr, "minic: %v\n", err)
			return err
		}
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

// loadConfig applies path, or the default project file when path is empty
// and the file exists.
func loadConfig(cfg *config.Config, path string) error {
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err != nil {
			return nil
		}
		path = defaultConfigFile
	}
	if err := cfg.LoadFile(path); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func compile(path string, cfg *config.Config, opts *options, progress io.Writer) error {
	content, err := os.ReadFile(path)
	if err != nil {
		util.Fatal("could not read file '%s': %v", path, err)
	}
	src := []rune(string(content))
	rep := util.NewReporter(cfg, os.Stderr)
	rep.SetSource(util.SourceFileRecord{Name: path, Content: src})

	fmt.Fprintln(progress, "----------------------")
	fmt.Fprintf(progress, "Parsing '%s'...\n", path)
	root, err := parser.ParseSource(src, cfg, rep)
	if err != nil || rep.HasErrors() {
		return failed(rep)
	}

	fmt.Fprintln(progress, "Type checking...")
	typeChecker.NewTypeChecker(cfg, rep).Check(root)
	if rep.HasErrors() {
		return failed(rep)
	}

	switch {
	case opts.dumpAST:
		return ast.WriteTree(os.Stdout, root)
	case opts.dot:
		return ast.WriteDot(os.Stdout, root)
	}

	fmt.Fprintln(progress, "Creating intermediate representation...")
	prog, err := codegen.NewContext(cfg).GenerateIR(root)
	if err != nil {
		util.Fatal("%v", err)
	}

	switch {
	case opts.dumpIR:
		fmt.Fprintln(progress, "Dumping IR...")
		_, err := prog.WriteTo(os.Stdout)
		return err
	case opts.run:
		fmt.Fprintln(progress, "Running...")
		return runProgram(prog, cfg)
	}

	backend, err := codegen.NewBackend(cfg)
	if err != nil {
		util.Fatal("%v", err)
	}
	if opts.emitQBE {
		fmt.Fprintf(progress, "Dumping IR for '%s' backend...\n", cfg.BackendName)
		qbeIR, err := backend.GenerateIR(prog, cfg)
		if err != nil {
			util.Fatal("backend IR generation failed: %v", err)
		}
		fmt.Print(qbeIR)
		return nil
	}

	fmt.Fprintf(progress, "Generating code with '%s' backend (%s)...\n", cfg.BackendName, cfg.BackendTarget)
	asm, err := backend.Generate(prog, cfg)
	if err != nil {
		util.Fatal("backend code generation failed: %v", err)
	}

	fmt.Fprintf(progress, "Linking to create '%s'...\n", opts.outFile)
	if err := assembleAndLink(opts.outFile, asm.String()); err != nil {
		util.Fatal("assembler/linker failed: %v", err)
	}
	fmt.Fprintln(progress, "----------------------")
	fmt.Fprintln(progress, "Done!")
	return nil
}

func failed(rep *util.Reporter) error {
	n := rep.ErrorCount()
	plural := "s"
	if n == 1 {
		plural = ""
	}
	return fmt.Errorf("compilation failed with %d error%s", n, plural)
}

func runProgram(prog *ir.Program, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	m := interp.New(prog, cfg)
	result, err := m.Run(ctx)
	if err != nil {
		util.Fatal("runtime error after %d steps: %v", m.Steps(), err)
	}
	fmt.Println(result)
	return nil
}

func assembleAndLink(outFile, asm string) error {
	asmFile, err := os.CreateTemp("", "minic-*.s")
	if err != nil {
		return fmt.Errorf("failed to create temp file for asm: %w", err)
	}
	defer os.Remove(asmFile.Name())
	if _, err := asmFile.WriteString(asm); err != nil {
		asmFile.Close()
		return fmt.Errorf("failed to write asm: %w", err)
	}
	asmFile.Close()

	cmd := exec.Command("cc", "-no-pie", "-o", outFile, asmFile.Name())
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("cc command failed: %w\nOutput:\n%s", err, output)
	}
	return nil
}
