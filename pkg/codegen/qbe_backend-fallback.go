//go:build windows

package codegen

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"

	"github.com/xplshn/minic/pkg/config"
	"github.com/xplshn/minic/pkg/ir"
)

func (b *qbeBackend) Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error) {
	fmt.Println("Self-contained QBE backend is not supported on Windows. Falling back to the system's 'qbe'.")
	if _, err := exec.LookPath("qbe"); err != nil {
		return nil, fmt.Errorf("qbe not found in PATH: %w", err)
	}

	qbeIR, err := b.GenerateIR(prog, cfg)
	if err != nil {
		return nil, err
	}

	inputFile, err := os.CreateTemp("", "minic-qbe-*.ssa")
	if err != nil {
		return nil, err
	}
	defer os.Remove(inputFile.Name())
	_, err = inputFile.WriteString(qbeIR)
	inputFile.Close()
	if err != nil {
		return nil, err
	}

	outputName := inputFile.Name() + ".s"
	defer os.Remove(outputName)
	cmd := exec.Command("qbe", "-o", outputName, "-t", cfg.BackendTarget, inputFile.Name())
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("\n--- QBE Compilation Failed ---\nGenerated IR:\n%s\n\n%s\nError: %w", qbeIR, out, err)
	}

	asm, err := os.ReadFile(outputName)
	if err != nil {
		return nil, err
	}
	return bytes.NewBuffer(asm), nil
}
