package shard

import (
	"container/heap"
	"sort"

	"shardrun/internal/domain"
)

// chunkHeapItem is a chunk being filled by the balancer
type chunkHeapItem struct {
	index  int
	weight float64
	tests  domain.Chunk
}

// chunkHeap orders chunks by summed weight; ties go to the chunk with fewer tests, then
// to the lower index, so zero-weight tests are dealt out round robin
type chunkHeap []*chunkHeapItem

func (h chunkHeap) Len() int { return len(h) }

func (h chunkHeap) Less(i, j int) bool {
	if h[i].weight != h[j].weight {
		return h[i].weight < h[j].weight
	}
	if len(h[i].tests) != len(h[j].tests) {
		return len(h[i].tests) < len(h[j].tests)
	}
	return h[i].index < h[j].index
}

func (h chunkHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *chunkHeap) Push(x any) { *h = append(*h, x.(*chunkHeapItem)) }

func (h *chunkHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// balanceByWeight is greedy longest-processing-time-first packing: tests sorted by
// descending weight each go to the currently lightest chunk. With capacity > 0 a chunk
// leaves the heap once it holds capacity tests.
//
// Without a capacity, the summed weights of any two chunks differ by at most the
// largest single weight.
func balanceByWeight(cases []domain.TestCase, count, capacity int) []domain.Chunk {
	sorted := make([]domain.TestCase, len(cases))
	copy(sorted, cases)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Weight > sorted[j].Weight
	})

	items := make([]*chunkHeapItem, count)
	h := make(chunkHeap, count)
	for i := range items {
		items[i] = &chunkHeapItem{index: i}
		h[i] = items[i]
	}
	heap.Init(&h)

	for _, tc := range sorted {
		lightest := h[0]
		lightest.tests = append(lightest.tests, tc.ID)
		lightest.weight += tc.Weight
		if capacity > 0 && len(lightest.tests) >= capacity {
			heap.Pop(&h)
		} else {
			heap.Fix(&h, 0)
		}
	}

	chunks := make([]domain.Chunk, 0, count)
	for _, item := range items {
		if len(item.tests) > 0 {
			chunks = append(chunks, item.tests)
		}
	}
	return chunks
}
