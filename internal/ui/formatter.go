package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"

	"shardrun/internal/domain"
	"shardrun/internal/pipeline"
)

const tableRule = "├─────────────────────────────────┼─────────────────────────────┤"

// Formatter prints run plans and summaries
type Formatter struct {
	out io.Writer
}

// NewFormatter creates a Formatter writing to stdout
func NewFormatter() *Formatter {
	return NewFormatterTo(os.Stdout)
}

// NewFormatterTo creates a Formatter writing to out
func NewFormatterTo(out io.Writer) *Formatter {
	return &Formatter{out: out}
}

var (
	cyan   = color.New(color.FgCyan)
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	white  = color.New(color.FgWhite)
	gray   = color.New(color.FgHiBlack)
)

// BeforeRun prints what is about to be submitted
func (f *Formatter) BeforeRun(plan pipeline.Plan) {
	matrices := len(plan.Contexts) * plan.RunCount
	tests := 0
	for _, c := range plan.Contexts {
		tests += len(c.Chunk)
	}

	fmt.Fprintln(f.out)
	cyan.Fprintf(f.out, "Run %s\n", plan.RunID)
	fmt.Fprintf(f.out, "  %d test case(s) in %d context(s)", tests, len(plan.Contexts))
	if plan.RunCount > 1 {
		fmt.Fprintf(f.out, ", each repeated %d times", plan.RunCount)
	}
	fmt.Fprintf(f.out, "\n  %d matrice(s) on %d device(s)\n", matrices, len(plan.Devices))
	for _, d := range plan.Devices {
		gray.Fprintf(f.out, "    %s, API %s, %s, %s\n", d.Model, d.Version, d.Locale, d.Orientation)
	}
	fmt.Fprintf(f.out, "  results: %s\n", plan.RunPath)
	if plan.DryRun {
		yellow.Fprintln(f.out, "  dry run: matrices are simulated")
	}
	fmt.Fprintln(f.out)
}

// Summary prints the statistics table and matrix tree of a finished run
func (f *Formatter) Summary(output domain.ResultsOutput) {
	meta := output.Meta

	fmt.Fprint(f.out, "\n")
	cyan.Fprintln(f.out, "╔═══════════════════════════════════════════════════════════════╗")
	cyan.Fprintln(f.out, "║                        Run Statistics                         ║")
	cyan.Fprintln(f.out, "╚═══════════════════════════════════════════════════════════════╝")

	fmt.Fprintln(f.out, "┌─────────────────────────────────┬─────────────────────────────┐")
	f.row("Matrices", white, meta.Matrices)
	fmt.Fprintln(f.out, tableRule)
	f.row("Shards", white, meta.Shards)
	fmt.Fprintln(f.out, tableRule)
	f.row("Test Cases", white, meta.TestCases)
	fmt.Fprintln(f.out, tableRule)
	f.row("Ignored Tests", yellow, meta.IgnoredTests)
	fmt.Fprintln(f.out, tableRule)
	f.row("Repeats", white, meta.RepeatTests)
	fmt.Fprintln(f.out, tableRule)
	f.row("Duration", white, fmt.Sprintf("%.2fs", meta.DurationSeconds))
	fmt.Fprintln(f.out, tableRule)
	f.row("Timestamp", white, meta.Timestamp)
	fmt.Fprintln(f.out, "└─────────────────────────────────┴─────────────────────────────┘")

	fmt.Fprintln(f.out)
	switch domain.MatrixOutcome(meta.Outcome) {
	case domain.OutcomeSuccess:
		green.Fprintln(f.out, "✓ All matrices passed!")
	case domain.OutcomeFailure:
		red.Fprintln(f.out, "✗ Some matrices failed")
	case domain.OutcomeInconclusive:
		yellow.Fprintln(f.out, "? Some matrices were inconclusive")
	default:
		yellow.Fprintln(f.out, "… Matrices are still running")
	}
	fmt.Fprintln(f.out)
	f.printMatrixTree(output.Result)
}

func (f *Formatter) row(label string, c *color.Color, value interface{}) {
	fmt.Fprintf(f.out, "│ %-31s │ ", label)
	c.Fprintf(f.out, "%-27v", value)
	fmt.Fprintln(f.out, " │")
}

// printMatrixTree prints every matrix under the context it was submitted for
func (f *Formatter) printMatrixTree(result domain.RunResult) {
	indexes := result.ContextIndexes()
	for i, index := range indexes {
		isLast := i == len(indexes)-1
		branch, indent := "├── ", "│   "
		if isLast {
			branch, indent = "└── ", "    "
		}
		cyan.Fprintf(f.out, "%s%s\n", branch, pipeline.ResultsDir(index))

		handles := result.MatrixMap[index]
		for j, h := range handles {
			leaf := "├── "
			if j == len(handles)-1 {
				leaf = "└── "
			}
			fmt.Fprintf(f.out, "%s%s", indent, leaf)
			stateColor(h).Fprintf(f.out, "%s %s", h.ID, formatState(h))
			fmt.Fprintln(f.out)
		}
	}
}

func formatState(h domain.MatrixHandle) string {
	if h.Outcome == domain.OutcomeUnknown {
		return strings.ToLower(string(h.State))
	}
	return fmt.Sprintf("%s (%s)", strings.ToLower(string(h.State)), h.Outcome)
}

func stateColor(h domain.MatrixHandle) *color.Color {
	switch {
	case h.State == domain.MatrixError || h.State == domain.MatrixInvalid || h.Outcome == domain.OutcomeFailure:
		return red
	case h.State == domain.MatrixFinished && h.Outcome == domain.OutcomeSuccess:
		return green
	}
	return yellow
}

// PrintShards prints the contexts of a run as a tree of shards and their test cases.
// showTestCases lists the tests of each shard.
func (f *Formatter) PrintShards(contexts []domain.TestContext, showTestCases bool) {
	tests := 0
	for _, c := range contexts {
		tests += len(c.Chunk)
	}
	green.Fprintf(f.out, "Found %d test case(s) in %d context(s):\n\n", tests, len(contexts))

	byTarget := make(map[string][]domain.TestContext)
	for _, c := range contexts {
		byTarget[c.Target.Name] = append(byTarget[c.Target.Name], c)
	}
	targets := make([]string, 0, len(byTarget))
	for name := range byTarget {
		targets = append(targets, name)
	}
	sort.Strings(targets)

	for _, name := range targets {
		cyan.Fprintln(f.out, name)
		group := byTarget[name]
		for i, c := range group {
			isLast := i == len(group)-1
			branch, indent := "├── ", "│   "
			if isLast {
				branch, indent = "└── ", "    "
			}
			label := fmt.Sprintf("%s shard %d: %d test(s)", pipeline.ResultsDir(c.Index), c.ShardIndex, len(c.Chunk))
			if c.Kind == domain.RoboContext {
				label = pipeline.ResultsDir(c.Index) + " robo"
			}
			if len(c.IgnoredTests) > 0 {
				label += yellow.Sprintf(", %d ignored", len(c.IgnoredTests))
			}
			fmt.Fprintf(f.out, "%s%s\n", branch, label)
			if !showTestCases {
				continue
			}
			for j, id := range c.Chunk {
				leaf := "├── "
				if j == len(c.Chunk)-1 {
					leaf = "└── "
				}
				fmt.Fprintf(f.out, "%s%s%s\n", indent, leaf, yellow.Sprint(id))
			}
		}
		fmt.Fprintln(f.out)
	}
}
