// gtest compiles every test program, runs it in the emulator once per
// recorded input and compares the diagnostics, output and exit status with
// a golden file stored next to it.
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
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/gwacc/pkg/config"
	"github.com/xplshn/gwacc/pkg/driver"
	"github.com/xplshn/gwacc/pkg/emu"
	"golang.org/x/sync/errgroup"
)

type Execution struct {
	Stdout   string        `json:"stdout"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out,omitempty"`
}

type TestRun struct {
	Name   string    `json:"name"`
	Input  string    `json:"input,omitempty"`
	Result Execution `json:"result"`
}

// TargetResult holds the compiler diagnostics and exit status in Compile
// and one entry per program input in Runs.
type TargetResult struct {
	Hash    string    `json:"hash,omitempty"`
	Compile Execution `json:"compile"`
	Runs    []TestRun `json:"runs"`
}

type FileTestResult struct {
	File    string        `json:"file"`
	Status  string        `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message string        `json:"message,omitempty"`
	Diff    string        `json:"diff,omitempty"`
	Golden  *TargetResult `json:"golden,omitempty"`
	Target  *TargetResult `json:"target,omitempty"`
}

type TestSuiteResults map[string]*FileTestResult

// listFlag collects every occurrence of a repeatable flag.
type listFlag []string

func (l *listFlag) String() string     { return strings.Join(*l, ", ") }
func (l *listFlag) Set(s string) error { *l = append(*l, s); return nil }

var (
	generateGolden = flag.String("generate-golden", "", "Generate a golden file for a given test program.")
	testFiles      = flag.String("test-files", "tests/*.json", "Glob pattern(s) for files to test (space-separated).")
	skipFiles      = flag.String("skip-files", "", "Files to skip (space-separated).")
	outputJSON     = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	maxSteps       = flag.Int("max-steps", emu.DefaultMaxSteps, "Instruction budget for each run.")
	registers      = flag.Int("registers", config.MaxRegisters, "Register budget handed to the code generator.")
	jobs           = flag.Int("j", 4, "Number of parallel test jobs.")
	verbose        = flag.Bool("v", false, "Enable verbose logging.")
	jsonDir        = flag.String("dir", "", "Directory to store/read golden files (defaults to the program's dir).")
	ignoreLines    = flag.String("ignore-lines", "", "Comma-separated substrings to ignore during output comparison.")
	inputs         listFlag
	includeDirs    listFlag
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
	flag.Var(&inputs, "input", "Standard input for one run when generating a golden file (repeatable).")
	flag.Var(&includeDirs, "I", "Add a directory searched for included fragments (repeatable).")
	flag.Parse()
	log.SetFlags(0)

	cfg := config.NewConfig()
	if err := cfg.SetRegisters(*registers); err != nil {
		log.Fatalf("%s[ERROR]%s %v\n", cRed, cNone, err)
	}

	if *generateGolden != "" {
		handleGenerateGolden(*generateGolden, cfg)
		return
	}
	handleRunTestSuite(cfg)
}

func getJSONPath(sourceFile string) string {
	jsonFileName := "." + filepath.Base(sourceFile) + ".golden"
	if *jsonDir != "" {
		return filepath.Join(*jsonDir, jsonFileName)
	}
	return filepath.Join(filepath.Dir(sourceFile), jsonFileName)
}

// hashFile computes the xxhash of a file's content
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

func handleGenerateGolden(sourceFile string, cfg *config.Config) {
	log.Printf("Generating golden file for %s...\n", sourceFile)

	fileHash, err := hashFile(sourceFile)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Could not hash test program %s: %v\n", cRed, cNone, sourceFile, err)
	}

	runs := inputs
	if len(runs) == 0 {
		runs = listFlag{""}
	}
	targetResult, err := compileAndRun(sourceFile, cfg, newRuns(runs))
	if err != nil {
		log.Fatalf("%s[ERROR]%s Could not generate golden file for %s: %v\n", cRed, cNone, sourceFile, err)
	}
	targetResult.Hash = fileHash

	jsonData, err := json.MarshalIndent(targetResult, "", "  ")
	if err != nil {
		log.Fatalf("%s[ERROR]%s Failed to marshal golden data to JSON: %v\n", cRed, cNone, err)
	}

	goldenFileName := getJSONPath(sourceFile)
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0755); err != nil {
			log.Fatalf("%s[ERROR]%s Failed to create directory %s: %v\n", cRed, cNone, *jsonDir, err)
		}
	}
	if err := os.WriteFile(goldenFileName, jsonData, 0644); err != nil {
		log.Fatalf("%s[ERROR]%s Failed to write golden file %s: %v\n", cRed, cNone, goldenFileName, err)
	}

	log.Printf("%s[SUCCESS]%s Golden file created at %s\n", cGreen, cNone, goldenFileName)
}

func newRuns(stdin []string) []TestRun {
	runs := make([]TestRun, len(stdin))
	for i, in := range stdin {
		runs[i] = TestRun{Name: fmt.Sprintf("run_%d", i), Input: in}
	}
	return runs
}

func handleRunTestSuite(cfg *config.Config) {
	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return
	}

	skipList := make(map[string]bool)
	for _, f := range strings.Fields(*skipFiles) {
		skipList[f] = true
	}

	results := make([]*FileTestResult, len(files))
	var g errgroup.Group
	g.SetLimit(max(*jobs, 1))

	// Files with identical content are tested once
	seenHashes := make(map[string]string)
	for i, file := range files {
		if skipList[file] || skipList[filepath.Base(file)] {
			results[i] = &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		fileHash, err := hashFile(file)
		if err != nil {
			results[i] = &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to read file for hashing: %v", err)}
			continue
		}
		if originalFile, seen := seenHashes[fileHash]; seen {
			results[i] = &FileTestResult{File: file, Status: "SKIP", Message: fmt.Sprintf("Content is identical to %s", originalFile)}
			continue
		}
		seenHashes[fileHash] = file
		g.Go(func() error {
			results[i] = testFile(file, fileHash, cfg)
			return nil
		})
	}
	g.Wait()

	sort.Slice(results, func(i, j int) bool {
		return results[i].File < results[j].File
	})

	printSummary(results)
	resultsMap := writeJSONReport(results)

	if hasFailures(resultsMap) {
		os.Exit(1)
	}
}

func testFile(file, fileHash string, cfg *config.Config) *FileTestResult {
	goldenFile := getJSONPath(file)
	goldenData, err := os.ReadFile(goldenFile)
	if errors.Is(err, os.ErrNotExist) {
		return &FileTestResult{File: file, Status: "SKIP", Message: fmt.Sprintf("No golden file; create one with -generate-golden %s", file)}
	}
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not read golden file %s: %v", goldenFile, err)}
	}
	var golden TargetResult
	if err := json.Unmarshal(goldenData, &golden); err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not parse golden file %s: %v", goldenFile, err)}
	}

	// Re-run the recorded inputs only
	runs := make([]TestRun, len(golden.Runs))
	for i, r := range golden.Runs {
		runs[i] = TestRun{Name: r.Name, Input: r.Input}
	}
	target, err := compileAndRun(file, cfg, runs)
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: err.Error(), Golden: &golden}
	}
	target.Hash = fileHash

	result := compareResults(file, &golden, target)
	if golden.Hash != "" && golden.Hash != fileHash && result.Status == "PASS" {
		result.Message += " (program changed since the golden file was generated)"
	}
	return result
}

// compareResults checks the compile status first; the runs only matter
// when both sides compiled.
func compareResults(file string, golden, target *TargetResult) *FileTestResult {
	res := &FileTestResult{File: file, Golden: golden, Target: target}
	ignored := strings.Split(*ignoreLines, ",")

	if golden.Compile.ExitCode != target.Compile.ExitCode {
		res.Status = "FAIL"
		res.Message = fmt.Sprintf("Compiler exited with %d, golden file expects %d", target.Compile.ExitCode, golden.Compile.ExitCode)
		res.Diff = cmp.Diff(golden.Compile.Stdout, target.Compile.Stdout)
		return res
	}
	if diff := cmp.Diff(filterOutput(golden.Compile.Stdout, ignored), filterOutput(target.Compile.Stdout, ignored)); diff != "" {
		res.Status = "FAIL"
		res.Message = "Compiler diagnostics differ"
		res.Diff = diff
		return res
	}
	if golden.Compile.ExitCode != driver.ExitOK {
		res.Status = "PASS"
		res.Message = fmt.Sprintf("Rejected with exit code %d as expected", target.Compile.ExitCode)
		return res
	}

	var failed []string
	var diffs strings.Builder
	for i, want := range golden.Runs {
		got := target.Runs[i].Result
		if got.TimedOut {
			failed = append(failed, want.Name)
			fmt.Fprintf(&diffs, "%s: exceeded %d steps\n", want.Name, *maxSteps)
			continue
		}
		if want.Result.ExitCode != got.ExitCode {
			failed = append(failed, want.Name)
			fmt.Fprintf(&diffs, "%s: exit code %d, want %d\n", want.Name, got.ExitCode, want.Result.ExitCode)
		}
		if diff := cmp.Diff(filterOutput(want.Result.Stdout, ignored), filterOutput(got.Stdout, ignored)); diff != "" {
			if len(failed) == 0 || failed[len(failed)-1] != want.Name {
				failed = append(failed, want.Name)
			}
			fmt.Fprintf(&diffs, "%s stdout:\n%s", want.Name, diff)
		}
	}

	if len(failed) > 0 {
		res.Status = "FAIL"
		res.Message = fmt.Sprintf("Mismatch in %d of %d run(s): %s", len(failed), len(golden.Runs), strings.Join(failed, ", "))
		res.Diff = diffs.String()
		return res
	}
	res.Status = "PASS"
	res.Message = fmt.Sprintf("All %d run(s) match", len(golden.Runs))
	return res
}

// compileAndRun compiles file, recording the diagnostics as the compile
// output, then executes each run. A program that fails to compile has no
// runs.
func compileAndRun(file string, cfg *config.Config, runs []TestRun) (*TargetResult, error) {
	start := time.Now()
	u, err := driver.Compile(context.Background(), file, driver.Options{Config: cfg, IncludeDirs: []string(includeDirs)})
	if err != nil {
		return nil, err
	}
	// Diagnostics name the file without its directory so golden files
	// stay valid wherever the suite is checked out.
	u.Path = filepath.Base(file)
	var diags bytes.Buffer
	driver.Report(&diags, u, cfg)
	result := &TargetResult{Compile: Execution{Stdout: diags.String(), ExitCode: u.ExitCode(), Duration: time.Since(start)}}
	if u.ExitCode() != driver.ExitOK {
		return result, nil
	}

	for _, run := range runs {
		exec, err := execute(u, run.Input)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", run.Name, err)
		}
		run.Result = exec
		result.Runs = append(result.Runs, run)
		if *verbose {
			log.Printf("[%s] %s: exit %d in %s", file, run.Name, exec.ExitCode, formatDuration(exec.Duration))
		}
	}
	return result, nil
}

func execute(u *driver.Unit, input string) (Execution, error) {
	var out bytes.Buffer
	cpu, err := emu.NewCPU(u.Program, strings.NewReader(input), &out)
	if err != nil {
		return Execution{}, err
	}
	cpu.MaxSteps = *maxSteps

	start := time.Now()
	err = cpu.Run()
	exec := Execution{Stdout: out.String(), ExitCode: cpu.ExitCode, Duration: time.Since(start)}
	switch {
	case errors.Is(err, emu.ErrStepLimit):
		exec.TimedOut = true
	case err != nil:
		return Execution{}, err
	}
	return exec, nil
}

// filterOutput removes lines containing any of the given substrings
func filterOutput(output string, ignoredSubstrings []string) string {
	if len(ignoredSubstrings) == 0 || output == "" {
		return output
	}
	lines := strings.Split(output, "\n")
	filteredLines := make([]string, 0, len(lines))
	for _, line := range lines {
		ignore := false
		for _, sub := range ignoredSubstrings {
			if sub != "" && strings.Contains(line, sub) {
				ignore = true
				break
			}
		}
		if !ignore {
			filteredLines = append(filteredLines, line)
		}
	}
	return strings.Join(filteredLines, "\n")
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%6dµs", d.Microseconds())
	}
	return fmt.Sprintf("%6dms", d.Milliseconds())
}

func printSummary(results []*FileTestResult) {
	var passed, failed, skipped, errored int
	var totalCompile, totalRuntime time.Duration

	for _, result := range results {
		fmt.Println("----------------------------------------------------------------------")
		fmt.Printf("Testing %s%s%s...\n", cCyan, result.File, cNone)

		switch result.Status {
		case "PASS":
			passed++
			fmt.Printf("  [%sPASS%s] %s\n", cGreen, cNone, result.Message)
		case "FAIL":
			failed++
			fmt.Printf("  [%sFAIL%s] %s\n", cRed, cNone, result.Message)
			fmt.Println(formatDiff(result.Diff))
		case "SKIP":
			skipped++
			fmt.Printf("  [%sSKIP%s] %s\n", cYellow, cNone, result.Message)
		case "ERROR":
			errored++
			fmt.Printf("  [%sERROR%s] %s\n", cRed, cNone, result.Message)
		}

		if result.Target == nil {
			continue
		}
		totalCompile += result.Target.Compile.Duration
		var runtime time.Duration
		for _, run := range result.Target.Runs {
			runtime += run.Result.Duration
		}
		totalRuntime += runtime
		if *verbose {
			fmt.Printf("  [comp: %s | runt: %s]\n", formatDuration(result.Target.Compile.Duration), formatDuration(runtime))
		}
	}

	fmt.Println("----------------------------------------------------------------------")
	fmt.Printf("%sTest Summary:%s %s%d Passed%s, %s%d Failed%s, %s%d Skipped%s, %s%d Errored%s, %d Total\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, skipped, cNone, cRed, errored, cNone, len(results))
	fmt.Printf("Spent %s compiling and %s running.\n", strings.TrimSpace(formatDuration(totalCompile)), strings.TrimSpace(formatDuration(totalRuntime)))
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var builder strings.Builder
	builder.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		trimmedLine := strings.TrimSpace(line)
		if strings.HasPrefix(trimmedLine, "-") {
			builder.WriteString(cRed)
		} else if strings.HasPrefix(trimmedLine, "+") {
			builder.WriteString(cGreen)
		}
		builder.WriteString("    " + line)
		builder.WriteString(cNone)
		builder.WriteString("\n")
	}
	return builder.String()
}

func writeJSONReport(results []*FileTestResult) TestSuiteResults {
	resultsMap := make(TestSuiteResults, len(results))
	for _, r := range results {
		resultsMap[r.File] = r
	}

	jsonData, err := json.MarshalIndent(resultsMap, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to marshal results to JSON: %v\n", cRed, cNone, err)
		return resultsMap
	}

	outputFile := *outputJSON
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0755); err != nil {
			log.Printf("%s[ERROR]%s Failed to create dir %s: %v\n", cRed, cNone, *jsonDir, err)
		}
		outputFile = filepath.Join(*jsonDir, *outputJSON)
	}

	if err := os.WriteFile(outputFile, jsonData, 0644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write JSON report to %s: %v\n", cRed, cNone, outputFile, err)
	} else {
		fmt.Printf("Full test report saved to %s\n", outputFile)
	}
	return resultsMap
}

func hasFailures(results TestSuiteResults) bool {
	for _, result := range results {
		if result.Status == "FAIL" || result.Status == "ERROR" {
			return true
		}
	}
	return false
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, file := range files {
			absFile, err := filepath.Abs(file)
			if err != nil {
				continue
			}
			if !seen[absFile] {
				if info, err := os.Stat(absFile); err == nil && info.Mode().IsRegular() {
					allFiles = append(allFiles, absFile)
					seen[absFile] = true
				}
			}
		}
	}
	return allFiles, nil
}
