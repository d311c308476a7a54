// Package dag orders a batch of call requests so that every call runs after
// the calls it depends on, and rejects batches whose dependencies form a
// cycle.
//
// Only dependencies between calls of the same batch create edges; a
// dependency on a call outside the batch is left for the task queue to
// honor. Among calls that are ready at the same time, the one submitted
// first comes first, so the order is deterministic.
package dag

import (
	"container/heap"
	"fmt"
	"strings"

	"github.com/xraph/conductor"
	"github.com/xraph/conductor/call"
)

// CycleError reports a dependency cycle. CallIDs lists the calls along one
// cycle in traversal order.
type CycleError struct {
	CallIDs []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %s", conductor.ErrCycleDetected, strings.Join(e.CallIDs, " → "))
}

// Unwrap lets errors.Is match conductor.ErrCycleDetected.
func (e *CycleError) Unwrap() error { return conductor.ErrCycleDetected }

// Sort returns reqs in topological order. Ties are broken by submission
// order. The input slice is not modified.
func Sort(reqs []*call.Request) ([]*call.Request, error) {
	n := len(reqs)
	if n == 0 {
		return nil, nil
	}

	index := make(map[string]int, n)
	for i, r := range reqs {
		k := r.ID.String()
		if _, dup := index[k]; dup {
			return nil, fmt.Errorf("%w: %s appears twice in batch", conductor.ErrCallAlreadyExists, k)
		}
		index[k] = i
	}

	next := make([][]int, n)
	indegree := make([]int, n)
	for j, r := range reqs {
		for _, dep := range r.Dependencies.IDs() {
			i, ok := index[dep]
			if !ok {
				continue
			}
			next[i] = append(next[i], j)
			indegree[j]++
		}
	}

	ready := &minHeap{}
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			heap.Push(ready, i)
		}
	}

	sorted := make([]*call.Request, 0, n)
	for ready.Len() > 0 {
		i := heap.Pop(ready).(int)
		sorted = append(sorted, reqs[i])
		for _, j := range next[i] {
			indegree[j]--
			if indegree[j] == 0 {
				heap.Push(ready, j)
			}
		}
	}

	if len(sorted) < n {
		return nil, &CycleError{CallIDs: findCycle(reqs, next, indegree)}
	}
	return sorted, nil
}

const (
	white = iota
	gray
	black
)

// findCycle walks the nodes Kahn's algorithm could not release and returns
// the ids along the first back edge found.
func findCycle(reqs []*call.Request, next [][]int, indegree []int) []string {
	colors := make([]int, len(reqs))
	var stack []int

	var visit func(i int) []int
	visit = func(i int) []int {
		colors[i] = gray
		stack = append(stack, i)
		for _, j := range next[i] {
			if indegree[j] == 0 {
				continue
			}
			switch colors[j] {
			case gray:
				for k := len(stack) - 1; k >= 0; k-- {
					if stack[k] == j {
						return append([]int(nil), stack[k:]...)
					}
				}
			case white:
				if c := visit(j); c != nil {
					return c
				}
			}
		}
		stack = stack[:len(stack)-1]
		colors[i] = black
		return nil
	}

	for i := range reqs {
		if indegree[i] == 0 || colors[i] != white {
			continue
		}
		if c := visit(i); c != nil {
			ids := make([]string, len(c))
			for k, idx := range c {
				ids[k] = reqs[idx].ID.String()
			}
			return ids
		}
	}

	// Unreachable for a graph Kahn failed on; report every stuck node.
	var ids []string
	for i, r := range reqs {
		if indegree[i] > 0 {
			ids = append(ids, r.ID.String())
		}
	}
	return ids
}

type minHeap []int

func (h minHeap) Len() int           { return len(h) }
func (h minHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h minHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *minHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}
