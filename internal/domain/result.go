package domain

import "sort"

// RunResult aggregates every matrix of a run together with the tests it covered
type RunResult struct {
	MatrixMap    map[int][]MatrixHandle `json:"matrix_map"`
	TestCases    []string               `json:"test_cases"`
	IgnoredTests []string               `json:"ignored_tests"`
}

// Handles returns the total number of matrices in the result
func (r *RunResult) Handles() int {
	n := 0
	for _, handles := range r.MatrixMap {
		n += len(handles)
	}
	return n
}

// ContextIndexes returns the origin context indexes in ascending order
func (r *RunResult) ContextIndexes() []int {
	indexes := make([]int, 0, len(r.MatrixMap))
	for i := range r.MatrixMap {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	return indexes
}

// Outcome folds all matrix outcomes into one.
// Any failed or errored matrix fails the run; the run only succeeds when every
// matrix finished successfully.
func (r *RunResult) Outcome() MatrixOutcome {
	if r.Handles() == 0 {
		return OutcomeUnknown
	}
	outcome := OutcomeSuccess
	for _, handles := range r.MatrixMap {
		for _, h := range handles {
			switch {
			case h.State == MatrixError || h.State == MatrixInvalid || h.Outcome == OutcomeFailure:
				return OutcomeFailure
			case h.State != MatrixFinished:
				outcome = OutcomeUnknown
			case h.Outcome == OutcomeInconclusive && outcome == OutcomeSuccess:
				outcome = OutcomeInconclusive
			}
		}
	}
	return outcome
}

// ResultsMeta contains metadata about a run
type ResultsMeta struct {
	RunID           string  `json:"run_id"`
	RunPath         string  `json:"run_path"`
	Matrices        int     `json:"matrices"`
	Shards          int     `json:"shards"`
	TestCases       int     `json:"test_cases"`
	IgnoredTests    int     `json:"ignored_tests"`
	Outcome         string  `json:"outcome"`
	Duration        string  `json:"duration"`
	DurationSeconds float64 `json:"duration_seconds"`
	RepeatTests     int     `json:"repeat_tests"`
	Timestamp       string  `json:"timestamp"`
}

// ResultsOutput is the complete structure stored after a run
type ResultsOutput struct {
	Meta   ResultsMeta `json:"meta"`
	Result RunResult   `json:"result"`
}
