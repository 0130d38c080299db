package tree

import (
	"container/heap"
	"math"
)

// Neighbor describes a candidate returned by a search.
type Neighbor struct {
	Point    *Point
	Distance float32
}

// Neighbors implements heap.Interface sorted by descending distance (max-heap).
type Neighbors []Neighbor

func (h Neighbors) Len() int           { return len(h) }
func (h Neighbors) Less(i, j int) bool { return h[i].Distance > h[j].Distance }
func (h Neighbors) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *Neighbors) Push(x interface{}) {
	*h = append(*h, x.(Neighbor))
}

func (h *Neighbors) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// worst returns the largest retained distance, or +Inf when empty.
func (h Neighbors) worst() float32 {
	if len(h) == 0 {
		return float32(math.Inf(1))
	}
	return h[0].Distance
}

// offer keeps at most k candidates, replacing the worst one only by a strictly
// closer candidate.
func (h Neighbors) offer(candidate Neighbor, k int) Neighbors {
	switch {
	case k <= 0:
	case len(h) < k:
		heap.Push(&h, candidate)
	case candidate.Distance < h[0].Distance:
		h[0] = candidate
		heap.Fix(&h, 0)
	}
	return h
}

// sorted drains the heap into a slice ordered by ascending distance.
func (h Neighbors) sorted() []Neighbor {
	result := make([]Neighbor, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(&h).(Neighbor)
	}
	return result
}
