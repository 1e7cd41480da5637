package shard

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shardrun/internal/domain"
	"shardrun/internal/runerrors"
)

func testCases(ids ...string) []domain.TestCase {
	cases := make([]domain.TestCase, len(ids))
	for i, id := range ids {
		cases[i] = domain.TestCase{ID: id}
	}
	return cases
}

func weightedCases(weights ...float64) []domain.TestCase {
	cases := make([]domain.TestCase, len(weights))
	for i, w := range weights {
		cases[i] = domain.TestCase{ID: fmt.Sprintf("com.example.Test#t%02d", i), Weight: w}
	}
	return cases
}

func TestPartition_TwoShardsOfTwo(t *testing.T) {
	set, err := Partition(testCases("a#1", "a#2", "b#1", "b#2"), Policy{ShardCount: 2})
	require.NoError(t, err)

	assert.Equal(t, []domain.Chunk{{"a#1", "a#2"}, {"b#1", "b#2"}}, set.Chunks)
	assert.Empty(t, set.Ignored)
}

func TestPartition_FilterExcludesOne(t *testing.T) {
	cases := testCases("a#1", "a#2", "b#1", "b#2", "c#flaky")
	set, err := Partition(cases, Policy{ShardCount: 2, FilterExpression: "!*flaky"})
	require.NoError(t, err)

	assert.Equal(t, []domain.Chunk{{"a#1", "a#2"}, {"b#1", "b#2"}}, set.Chunks)
	assert.Equal(t, []string{"c#flaky"}, set.Ignored)
}

func TestPartition_IgnoredCasesNeverSharded(t *testing.T) {
	cases := testCases("a#1", "a#2", "a#3")
	cases[1].Ignored = true

	set, err := Partition(cases, Policy{ShardCount: 3})
	require.NoError(t, err)
	assert.Equal(t, []domain.Chunk{{"a#1"}, {"a#3"}}, set.Chunks)
	assert.Equal(t, []string{"a#2"}, set.Ignored)
}

func TestPartition_CountSplit(t *testing.T) {
	tests := map[string]struct {
		cases    int
		policy   Policy
		expected []int
	}{
		"uneven shard count":         {cases: 7, policy: Policy{ShardCount: 3}, expected: []int{3, 2, 2}},
		"fewer tests than shards":    {cases: 2, policy: Policy{ShardCount: 5}, expected: []int{1, 1}},
		"single shard":               {cases: 4, policy: Policy{ShardCount: 1}, expected: []int{4}},
		"max tests per shard":        {cases: 7, policy: Policy{MaxTestsPerShard: 3}, expected: []int{3, 2, 2}},
		"max tests divides evenly":   {cases: 6, policy: Policy{MaxTestsPerShard: 2}, expected: []int{2, 2, 2}},
		"shard count overrides size": {cases: 6, policy: Policy{ShardCount: 2, MaxTestsPerShard: 1}, expected: []int{3, 3}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			set, err := Partition(weightedCases(make([]float64, tc.cases)...), tc.policy)
			require.NoError(t, err)
			sizes := make([]int, 0, set.Size())
			for _, chunk := range set.Chunks {
				sizes = append(sizes, len(chunk))
			}
			assert.Equal(t, tc.expected, sizes)
		})
	}
}

func TestPartition_HistoricalTiming(t *testing.T) {
	cases := weightedCases(1, 8, 3, 5, 2, 7)

	set, err := Partition(cases, Policy{ShardCount: 3, UseHistoricalTiming: true})
	require.NoError(t, err)

	// 8 -> 0, 7 -> 1, 5 -> 2, 3 -> 2, 2 -> 1, 1 -> 0
	assert.Equal(t, []domain.Chunk{
		{"com.example.Test#t01", "com.example.Test#t00"},
		{"com.example.Test#t05", "com.example.Test#t04"},
		{"com.example.Test#t03", "com.example.Test#t02"},
	}, set.Chunks)
}

func TestPartition_HistoricalTimingRespectsCapacity(t *testing.T) {
	cases := weightedCases(10, 1, 1, 1, 1, 1)

	set, err := Partition(cases, Policy{MaxTestsPerShard: 3, UseHistoricalTiming: true})
	require.NoError(t, err)
	require.Equal(t, 2, set.Size())
	for _, chunk := range set.Chunks {
		assert.LessOrEqual(t, len(chunk), 3)
	}
}

func TestPartition_ZeroWeightsAreDealtOut(t *testing.T) {
	set, err := Partition(weightedCases(0, 0, 0, 0, 0), Policy{ShardCount: 3, UseHistoricalTiming: true})
	require.NoError(t, err)
	require.Equal(t, 3, set.Size())
	for _, chunk := range set.Chunks {
		assert.NotEmpty(t, chunk)
	}
}

func TestPartition_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	weights := make([]float64, 200)
	for i := range weights {
		weights[i] = math.Round(rng.Float64()*100) / 10
	}
	cases := weightedCases(weights...)

	for _, policy := range []Policy{
		{ShardCount: 7},
		{ShardCount: 7, UseHistoricalTiming: true},
		{MaxTestsPerShard: 13, UseHistoricalTiming: true},
		{MaxTestsPerShard: 13, FilterExpression: "!*t1*"},
	} {
		first, err := Partition(cases, policy)
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			again, err := Partition(cases, policy)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	}
}

func TestPartition_EveryCaseExactlyOnce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		n := 1 + rng.Intn(60)
		weights := make([]float64, n)
		for i := range weights {
			weights[i] = rng.Float64() * 30
		}
		cases := weightedCases(weights...)
		for i := range cases {
			cases[i].Ignored = rng.Intn(10) == 0
		}
		policy := Policy{
			ShardCount:          rng.Intn(8),
			MaxTestsPerShard:    1 + rng.Intn(10),
			UseHistoricalTiming: rng.Intn(2) == 0,
			FilterExpression:    "!*t0*",
		}

		set, err := Partition(cases, policy)
		if err != nil {
			// Only legal failure: everything filtered away with a requested shard count.
			var invalid *runerrors.ErrInvalidArgument
			require.True(t, errors.As(err, &invalid))
			continue
		}

		seen := make(map[string]int)
		for _, chunk := range set.Chunks {
			assert.NotEmpty(t, chunk)
			for _, id := range chunk {
				seen[id]++
			}
		}
		for _, id := range set.Ignored {
			seen[id]++
		}
		require.Len(t, seen, n)
		for id, count := range seen {
			assert.Equal(t, 1, count, "test %s placed %d times", id, count)
		}
		if policy.ShardCount > 0 {
			assert.LessOrEqual(t, set.Size(), policy.ShardCount)
		} else {
			for _, chunk := range set.Chunks {
				assert.LessOrEqual(t, len(chunk), policy.MaxTestsPerShard)
			}
		}
	}
}

func TestPartition_GreedyBalanceBound(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for round := 0; round < 100; round++ {
		n := 1 + rng.Intn(80)
		weights := make([]float64, n)
		maxWeight := 0.0
		for i := range weights {
			weights[i] = rng.Float64() * 120
			maxWeight = math.Max(maxWeight, weights[i])
		}
		lookup := make(map[string]float64)
		cases := weightedCases(weights...)
		for _, tc := range cases {
			lookup[tc.ID] = tc.Weight
		}

		set, err := Partition(cases, Policy{ShardCount: 1 + rng.Intn(12), UseHistoricalTiming: true})
		require.NoError(t, err)

		lightest, heaviest := math.Inf(1), math.Inf(-1)
		for _, chunk := range set.Chunks {
			sum := 0.0
			for _, id := range chunk {
				sum += lookup[id]
			}
			lightest = math.Min(lightest, sum)
			heaviest = math.Max(heaviest, sum)
		}
		assert.LessOrEqual(t, heaviest-lightest, maxWeight+1e-9)
	}
}

func TestPartition_Errors(t *testing.T) {
	tests := map[string]struct {
		cases  []domain.TestCase
		policy Policy
		field  string
	}{
		"max tests per shard below one": {
			cases: testCases("a"), policy: Policy{MaxTestsPerShard: 0}, field: "maxTestsPerShard",
		},
		"negative shard count": {
			cases: testCases("a"), policy: Policy{ShardCount: -1}, field: "shardCount",
		},
		"negative weight": {
			cases: weightedCases(1, -2), policy: Policy{ShardCount: 1}, field: "weight",
		},
		"duplicate id": {
			cases: testCases("a", "a"), policy: Policy{ShardCount: 1}, field: "testCase",
		},
		"malformed filter": {
			cases: testCases("a"), policy: Policy{ShardCount: 1, FilterExpression: "[a"}, field: "filterExpression",
		},
		"nothing eligible with shard count": {
			cases: testCases("a"), policy: Policy{ShardCount: 2, FilterExpression: "!a"}, field: "shardCount",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Partition(tc.cases, tc.policy)
			var invalid *runerrors.ErrInvalidArgument
			require.True(t, errors.As(err, &invalid), "expected ErrInvalidArgument, got %v", err)
			assert.Equal(t, tc.field, invalid.Name)
		})
	}
}

func TestPartition_NothingEligibleSizeMode(t *testing.T) {
	set, err := New().Partition(testCases("a", "b"), Policy{MaxTestsPerShard: 5, FilterExpression: "!*"})
	require.NoError(t, err)
	assert.Equal(t, 0, set.Size())
	assert.Equal(t, []string{"a", "b"}, set.Ignored)
}
