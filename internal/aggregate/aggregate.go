// Package aggregate folds submitted matrices back onto the contexts they came from.
package aggregate

import (
	"sort"

	"github.com/pkg/errors"

	"shardrun/internal/domain"
	"shardrun/internal/runerrors"
)

// Aggregate builds the run result from every submission of a run.
//
// Handles are grouped by the context index the submission carries, never by completion
// order, and each group is ordered by repeat. TestCases and IgnoredTests concatenate the
// contexts' chunks and ignored lists in context order.
func Aggregate(submissions []domain.Submission, contexts []domain.TestContext) (*domain.RunResult, error) {
	known := make(map[int]bool, len(contexts))
	for _, c := range contexts {
		known[c.Index] = true
	}

	matrixMap := make(map[int][]domain.MatrixHandle)
	for _, s := range submissions {
		if !known[s.ContextIndex] {
			return nil, errors.WithStack(&runerrors.ErrInvalidArgument{
				Name:    "contextIndex",
				Value:   s.ContextIndex,
				Message: "submission references a context that is not part of the run",
			})
		}
		handle := s.Handle
		handle.ContextIndex = s.ContextIndex
		handle.Repeat = s.Repeat
		matrixMap[s.ContextIndex] = append(matrixMap[s.ContextIndex], handle)
	}
	for _, handles := range matrixMap {
		sort.SliceStable(handles, func(i, j int) bool { return handles[i].Repeat < handles[j].Repeat })
	}

	ordered := make([]domain.TestContext, len(contexts))
	copy(ordered, contexts)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	result := &domain.RunResult{
		MatrixMap:    matrixMap,
		TestCases:    []string{},
		IgnoredTests: []string{},
	}
	for _, c := range ordered {
		if c.IsInstrumentation() {
			result.TestCases = append(result.TestCases, c.Chunk...)
		}
		result.IgnoredTests = append(result.IgnoredTests, c.IgnoredTests...)
	}
	return result, nil
}
