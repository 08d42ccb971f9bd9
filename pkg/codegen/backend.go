package codegen

import (
	"bytes"
	"fmt"

	"github.com/xplshn/minic/pkg/config"
	"github.com/xplshn/minic/pkg/ir"
)

// Backend is the interface that all code generation backends must implement.
type Backend interface {
	// GenerateIR renders the program in the backend's own intermediate language.
	GenerateIR(prog *ir.Program, cfg *config.Config) (string, error)
	// Generate takes an IR program and a configuration, and produces the target
	// assembly as a byte buffer.
	Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error)
}

// NewBackend returns the backend named by cfg.BackendName.
func NewBackend(cfg *config.Config) (Backend, error) {
	switch cfg.BackendName {
	case "", "qbe":
		return NewQBEBackend(), nil
	}
	return nil, fmt.Errorf("unsupported backend '%s'", cfg.BackendName)
}
