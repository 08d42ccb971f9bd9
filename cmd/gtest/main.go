// gtest runs the minic driver over tests/*.mc and compares every run against
// the golden file stored next to the source.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

type Execution struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out"`
}

type TestRun struct {
	Name   string    `json:"name"`
	Args   []string  `json:"args"`
	Result Execution `json:"result"`
}

// Golden is the recorded behaviour of the compiler on one source file.
type Golden struct {
	SourceHash string    `json:"source_hash"`
	Runs       []TestRun `json:"runs"`
}

type FileTestResult struct {
	File    string   `json:"file"`
	Status  string   `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message string   `json:"message,omitempty"`
	Diff    string   `json:"diff,omitempty"`
	Runs    []TestRun `json:"runs,omitempty"`
}

// modes are the driver invocations recorded for every file. The source path
// is appended to each argument list.
var modes = []TestRun{
	{Name: "ir", Args: []string{"-q", "--dump-ir"}},
	{Name: "run", Args: []string{"-q", "--run"}},
}

var (
	compiler       = flag.String("compiler", "./minic", "Path to the minic binary to test.")
	testFiles      = flag.String("test-files", "tests/*.mc", "Glob pattern(s) for files to test (space-separated).")
	generateGolden = flag.Bool("generate-golden", false, "Write golden files instead of comparing against them.")
	outputJSON     = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	timeout        = flag.Duration("timeout", 5*time.Second, "Timeout for each command execution.")
	jobs           = flag.Int("j", 4, "Number of parallel test jobs.")
	verbose        = flag.Bool("v", false, "Print durations of passing runs.")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return
	}

	results := runAll(ctx, files)
	if ctx.Err() != nil {
		fmt.Printf("\n%s[INTERRUPT]%s Test run cancelled.\n", cYellow, cNone)
		os.Exit(1)
	}
	printSummary(results)
	writeJSONReport(results)
	for _, r := range results {
		if r.Status == "FAIL" || r.Status == "ERROR" {
			os.Exit(1)
		}
	}
}

func goldenPath(sourceFile string) string { return sourceFile + ".golden.json" }

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum64()), nil
}

func runAll(ctx context.Context, files []string) []*FileTestResult {
	tasks := make(chan string)
	resultsChan := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup
	for i := 0; i < max(*jobs, 1); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				resultsChan <- testFile(ctx, file)
			}
		}()
	}
	for _, file := range files {
		tasks <- file
	}
	close(tasks)
	wg.Wait()
	close(resultsChan)

	var results []*FileTestResult
	for r := range resultsChan {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].File < results[j].File })
	return results
}

func testFile(ctx context.Context, file string) *FileTestResult {
	hash, err := hashFile(file)
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to hash source file: %v", err)}
	}
	runs := runModes(ctx, file)

	if *generateGolden {
		if err := writeGolden(file, Golden{SourceHash: hash, Runs: runs}); err != nil {
			return &FileTestResult{File: file, Status: "ERROR", Message: err.Error()}
		}
		return &FileTestResult{File: file, Status: "PASS", Message: "Golden file written to " + goldenPath(file), Runs: runs}
	}

	golden, err := readGolden(file)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return &FileTestResult{File: file, Status: "SKIP", Message: "No golden file; run with --generate-golden", Runs: runs}
	case err != nil:
		return &FileTestResult{File: file, Status: "ERROR", Message: err.Error()}
	case golden.SourceHash != hash:
		return &FileTestResult{File: file, Status: "FAIL", Message: "Golden file is stale: the source changed since it was generated", Runs: runs}
	}
	return compareRuns(file, golden.Runs, runs)
}

func runModes(ctx context.Context, file string) []TestRun {
	runs := make([]TestRun, len(modes))
	for i, m := range modes {
		args := append(append([]string(nil), m.Args...), file)
		runs[i] = TestRun{Name: m.Name, Args: m.Args, Result: executeCommand(ctx, *compiler, args...)}
	}
	return runs
}

func readGolden(file string) (Golden, error) {
	var g Golden
	data, err := os.ReadFile(goldenPath(file))
	if err != nil {
		return g, err
	}
	if err := json.Unmarshal(data, &g); err != nil {
		return g, fmt.Errorf("could not parse golden file %s: %w", goldenPath(file), err)
	}
	return g, nil
}

func writeGolden(file string, g Golden) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal golden data: %w", err)
	}
	return os.WriteFile(goldenPath(file), append(data, '\n'), 0o644)
}

// compareRuns diffs every recorded run; durations never count.
func compareRuns(file string, want, got []TestRun) *FileTestResult {
	gotByName := make(map[string]TestRun, len(got))
	for _, r := range got {
		gotByName[r.Name] = r
	}
	var diffs strings.Builder
	for _, w := range want {
		g, ok := gotByName[w.Name]
		if !ok {
			fmt.Fprintf(&diffs, "Run '%s' missing from this build.\n", w.Name)
			continue
		}
		if d := cmp.Diff(w.Result, g.Result, cmpopts.IgnoreFields(Execution{}, "Duration")); d != "" {
			fmt.Fprintf(&diffs, "Run '%s' mismatch (-golden +got):\n%s", w.Name, d)
		}
	}
	if diffs.Len() > 0 {
		return &FileTestResult{File: file, Status: "FAIL", Message: "Output or exit code mismatch", Diff: diffs.String(), Runs: got}
	}
	return &FileTestResult{File: file, Status: "PASS", Message: "All runs match the golden file", Runs: got}
}

func executeCommand(ctx context.Context, command string, args ...string) Execution {
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	err := cmd.Run()

	res := Execution{Stdout: stdout.String(), Stderr: stderr.String(), Duration: time.Since(start)}
	var exitErr *exec.ExitError
	switch {
	case ctx.Err() == context.DeadlineExceeded:
		res.TimedOut, res.ExitCode = true, -1
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	case err != nil:
		res.ExitCode = -2
		res.Stderr += "\nExecution error: " + err.Error()
	}
	return res
}

func printSummary(results []*FileTestResult) {
	var passed, failed, skipped, errored int
	for _, r := range results {
		fmt.Println("----------------------------------------------------------------------")
		fmt.Printf("Testing %s%s%s...\n", cCyan, r.File, cNone)
		switch r.Status {
		case "PASS":
			passed++
			fmt.Printf("  [%sPASS%s] %s\n", cGreen, cNone, r.Message)
			if *verbose {
				for _, run := range r.Runs {
					fmt.Printf("         %-4s %s\n", run.Name, formatDuration(run.Result.Duration))
				}
			}
		case "FAIL":
			failed++
			fmt.Printf("  [%sFAIL%s] %s\n", cRed, cNone, r.Message)
			if r.Diff != "" {
				fmt.Println(indentDiff(r.Diff))
			}
		case "SKIP":
			skipped++
			fmt.Printf("  [%sSKIP%s] %s\n", cYellow, cNone, r.Message)
		case "ERROR":
			errored++
			fmt.Printf("  [%sERROR%s] %s\n", cRed, cNone, r.Message)
		}
	}
	fmt.Println("----------------------------------------------------------------------")
	fmt.Printf("%sTest Summary:%s %s%d Passed%s, %s%d Failed%s, %s%d Skipped%s, %s%d Errored%s, %d Total\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, skipped, cNone, cRed, errored, cNone, len(results))
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000)
}

func indentDiff(diff string) string {
	lines := strings.Split(strings.TrimRight(diff, "\n"), "\n")
	for i, l := range lines {
		color := cNone
		switch {
		case strings.HasPrefix(strings.TrimSpace(l), "-"):
			color = cRed
		case strings.HasPrefix(strings.TrimSpace(l), "+"):
			color = cGreen
		}
		lines[i] = "    " + color + l + cNone
	}
	return strings.Join(lines, "\n")
}

func writeJSONReport(results []*FileTestResult) {
	byFile := make(map[string]*FileTestResult, len(results))
	for _, r := range results {
		byFile[r.File] = r
	}
	data, err := json.MarshalIndent(byFile, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to marshal results to JSON: %v\n", cRed, cNone, err)
		return
	}
	if err := os.WriteFile(*outputJSON, data, 0o644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write JSON report to %s: %v\n", cRed, cNone, *outputJSON, err)
		return
	}
	fmt.Printf("Full test report saved to %s\n", *outputJSON)
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, file := range matches {
			if seen[file] {
				continue
			}
			if info, err := os.Stat(file); err == nil && info.Mode().IsRegular() {
				files = append(files, file)
				seen[file] = true
			}
		}
	}
	return files, nil
}
