package shard

import (
	"math"

	"github.com/pkg/errors"

	"shardrun/internal/discovery"
	"shardrun/internal/domain"
	"shardrun/internal/runerrors"
)

// Policy controls how test cases are grouped into chunks
type Policy struct {
	// ShardCount is the target number of chunks. When positive it overrides the
	// size-based policy.
	ShardCount int
	// MaxTestsPerShard bounds the number of tests in a chunk when ShardCount is not set.
	MaxTestsPerShard int
	// UseHistoricalTiming balances chunks by summed weight instead of test count.
	UseHistoricalTiming bool
	// FilterExpression selects eligible tests, see discovery.CompileFilter.
	FilterExpression string
}

// Partitioner groups test cases into shards
type Partitioner interface {
	Partition(cases []domain.TestCase, policy Policy) (domain.ShardSet, error)
}

// Default is the deterministic count/weight partitioner
type Default struct{}

// New creates a new Default partitioner
func New() *Default {
	return &Default{}
}

// Partition implements Partitioner
func (p *Default) Partition(cases []domain.TestCase, policy Policy) (domain.ShardSet, error) {
	return Partition(cases, policy)
}

// Partition splits cases into chunks according to policy.
//
// Ignored cases and cases rejected by the filter go to ShardSet.Ignored in discovery
// order. The result is deterministic; no chunk is empty and trailing chunks are left out
// when there are fewer eligible tests than requested chunks.
func Partition(cases []domain.TestCase, policy Policy) (domain.ShardSet, error) {
	if err := validate(cases, policy); err != nil {
		return domain.ShardSet{}, err
	}

	filter, err := discovery.CompileFilter(policy.FilterExpression)
	if err != nil {
		return domain.ShardSet{}, err
	}

	set := domain.ShardSet{Ignored: []string{}}
	var eligible []domain.TestCase
	for _, tc := range cases {
		if tc.Ignored || !filter.Match(tc.ID) {
			set.Ignored = append(set.Ignored, tc.ID)
			continue
		}
		eligible = append(eligible, tc)
	}

	if len(eligible) == 0 {
		if policy.ShardCount > 0 {
			return domain.ShardSet{}, errors.WithStack(&runerrors.ErrInvalidArgument{
				Name:    "shardCount",
				Value:   policy.ShardCount,
				Message: "no eligible test cases to shard",
			})
		}
		set.Chunks = []domain.Chunk{}
		return set, nil
	}

	count, capacity := chunkCount(len(eligible), policy)
	if policy.UseHistoricalTiming {
		set.Chunks = balanceByWeight(eligible, count, capacity)
	} else {
		set.Chunks = splitByCount(eligible, count)
	}
	return set, nil
}

func validate(cases []domain.TestCase, policy Policy) error {
	if policy.ShardCount < 0 {
		return errors.WithStack(&runerrors.ErrInvalidArgument{
			Name:    "shardCount",
			Value:   policy.ShardCount,
			Message: "must not be negative",
		})
	}
	if policy.ShardCount == 0 && policy.MaxTestsPerShard < 1 {
		return errors.WithStack(&runerrors.ErrInvalidArgument{
			Name:    "maxTestsPerShard",
			Value:   policy.MaxTestsPerShard,
			Message: "must be at least 1 when shardCount is not set",
		})
	}
	seen := make(map[string]bool, len(cases))
	for _, tc := range cases {
		if tc.Weight < 0 || math.IsNaN(tc.Weight) || math.IsInf(tc.Weight, 0) {
			return errors.WithStack(&runerrors.ErrInvalidArgument{
				Name:    "weight",
				Value:   tc.Weight,
				Message: "weight of " + tc.ID + " must be a finite non-negative number",
			})
		}
		if seen[tc.ID] {
			return errors.WithStack(&runerrors.ErrInvalidArgument{
				Name:    "testCase",
				Value:   tc.ID,
				Message: "test id is not unique",
			})
		}
		seen[tc.ID] = true
	}
	return nil
}

// chunkCount returns the number of chunks and the per-chunk capacity (0 = unbounded).
func chunkCount(eligible int, policy Policy) (count, capacity int) {
	if policy.ShardCount > 0 {
		if policy.ShardCount < eligible {
			return policy.ShardCount, 0
		}
		return eligible, 0
	}
	count = (eligible + policy.MaxTestsPerShard - 1) / policy.MaxTestsPerShard
	return count, policy.MaxTestsPerShard
}

// splitByCount cuts cases into count contiguous chunks whose sizes differ by at most one.
// Earlier chunks take the extra tests.
func splitByCount(cases []domain.TestCase, count int) []domain.Chunk {
	chunks := make([]domain.Chunk, 0, count)
	perChunk := len(cases) / count
	extra := len(cases) % count

	start := 0
	for i := 0; i < count; i++ {
		size := perChunk
		if i < extra {
			size++
		}
		chunk := make(domain.Chunk, 0, size)
		for _, tc := range cases[start : start+size] {
			chunk = append(chunk, tc.ID)
		}
		chunks = append(chunks, chunk)
		start += size
	}
	return chunks
}
