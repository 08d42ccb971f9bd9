package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nalgeon/be"
)

func TestParse(t *testing.T) {
	fs := NewFlagSet("minic")
	var out, target string
	var run, dump bool
	var libs []string
	fs.String(&out, "output", "o", "a.out", "Output file", "file")
	fs.String(&target, "target", "t", "", "Target", "name")
	fs.Bool(&run, "run", "r", false, "Run")
	fs.Bool(&dump, "dump-ir", "d", false, "Dump IR")
	fs.List(&libs, "include", "I", nil, "Include", "path")

	err := fs.Parse([]string{"-o", "prog", "--target=rv64", "-r", "a.mc", "-Ilib", "--dump-ir=false", "--", "-b.mc"})
	be.Err(t, err, nil)
	be.Equal(t, out, "prog")
	be.Equal(t, target, "rv64")
	be.True(t, run)
	be.True(t, !dump)
	be.Equal(t, libs, []string{"lib"})
	be.Equal(t, fs.Args(), []string{"a.mc", "-b.mc"})
	be.Equal(t, fs.Lookup("output").DefValue, "a.out")
}

func TestParseErrors(t *testing.T) {
	fs := NewFlagSet("minic")
	var out string
	var b bool
	fs.String(&out, "output", "o", "", "Output file", "file")
	fs.Bool(&b, "run", "", false, "Run")

	be.Err(t, fs.Parse([]string{"--nope"}), "unknown flag: --nope")
	be.Err(t, fs.Parse([]string{"-x"}), "unknown shorthand flag: -x")
	be.Err(t, fs.Parse([]string{"--output"}), "flag needs an argument: --output")
	be.Err(t, fs.Parse([]string{"-o"}), "flag needs an argument: -o")
	be.Err(t, fs.Parse([]string{"--run=maybe"}), "invalid boolean value")
}

func TestFlagGroups(t *testing.T) {
	fs := NewFlagSet("minic")
	on := true
	entries := []FlagGroupEntry{
		{Name: "shadow", Prefix: "W", Usage: "Warn about shadowing", Enabled: &on, Disabled: new(bool)},
		{Name: "extra", Prefix: "W", Usage: "Extra warnings", Enabled: new(bool), Disabled: new(bool)},
	}
	fs.AddFlagGroup("Warning Flags", "Enable or disable warnings", "warning", "Available Warnings:", entries)

	be.Err(t, fs.Parse([]string{"-Wno-shadow", "-Wextra", "x.mc"}), nil)
	be.True(t, *entries[0].Disabled)
	be.True(t, *entries[1].Enabled)
	be.Equal(t, fs.Args(), []string{"x.mc"})
}

func TestRedefinitionPanics(t *testing.T) {
	fs := NewFlagSet("minic")
	var a, b bool
	fs.Bool(&a, "run", "r", false, "")
	defer func() { be.True(t, recover() != nil) }()
	fs.Bool(&b, "run", "", false, "")
}

func TestHelpPage(t *testing.T) {
	app := NewApp("minic")
	app.Synopsis = "[options] <input.mc>"
	app.Description = "A MiniC compiler."
	var stdout, stderr bytes.Buffer
	app.Stdout, app.Stderr = &stdout, &stderr
	var out string
	app.FlagSet.String(&out, "output", "o", "a.out", "Place the output into <file>", "file")
	enabled, disabled := true, false
	app.FlagSet.AddFlagGroup("Feature Flags", "", "feature", "Available Features:", []FlagGroupEntry{
		{Name: "loop-retest", Prefix: "F", Usage: "Retest loops", Enabled: &enabled, Disabled: &disabled},
	})
	called := false
	app.Action = func([]string) error { called = true; return nil }

	be.Err(t, app.Run([]string{"--help"}), nil)
	be.True(t, !called)
	help := stdout.String()
	for _, want := range []string{"Synopsis", "minic <options> <input.mc>", "-o <file>, --output <file>", "|a.out|", "Feature Flags", "-Fno-<feature>", "loop-retest", "|x|"} {
		be.True(t, strings.Contains(help, want))
	}
	be.True(t, !strings.Contains(help, "--Floop-retest"))
}

func TestUsageOnError(t *testing.T) {
	app := NewApp("minic")
	var stdout, stderr bytes.Buffer
	app.Stdout, app.Stderr = &stdout, &stderr
	be.Err(t, app.Run([]string{"--bogus"}), "unknown flag")
	be.True(t, strings.HasPrefix(stderr.String(), "unknown flag: --bogus\nUsage: minic"))
}

func TestWrapText(t *testing.T) {
	got := wrapText("the quick brown fox jumps over", 10)
	want := []string{"the quick", "brown fox", "jumps over"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("wrapText mismatch (-want +got):\n%s", diff)
	}
	be.Equal(t, len(wrapText("", 10)), 0)
}
