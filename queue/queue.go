// Package queue implements the weighted heap that schedules sketching
// work largest-first.
package queue

import "container/heap"

// Compile time check to ensure PriorityQueue satisfies the heap interface.
var _ heap.Interface = (*PriorityQueue[int])(nil)

// Item is one queued value with its scheduling weight. For sketching
// units the weight is the input size in bytes.
type Item[T any] struct {
	Value  T
	Weight int64
	Index  int // maintained by the heap.Interface methods
}

// PriorityQueue implements heap.Interface over weighted items. With
// Descending set, heavier items pop first: dispatching the largest
// inputs early keeps a bounded worker pool from idling on one long
// tail unit.
type PriorityQueue[T any] struct {
	Descending bool
	Items      []*Item[T]
}

// Len returns the number of queued items.
func (pq *PriorityQueue[T]) Len() int { return len(pq.Items) }

// Less reports whether the element with index i should sort before the element with index j.
func (pq *PriorityQueue[T]) Less(i, j int) bool {
	if pq.Descending {
		return pq.Items[i].Weight > pq.Items[j].Weight
	}
	return pq.Items[i].Weight < pq.Items[j].Weight
}

// Swap swaps the elements with indexes i and j.
func (pq *PriorityQueue[T]) Swap(i, j int) {
	pq.Items[i], pq.Items[j] = pq.Items[j], pq.Items[i]
	pq.Items[i].Index, pq.Items[j].Index = i, j
}

// Push adds x to the priority queue.
func (pq *PriorityQueue[T]) Push(x any) {
	item, _ := x.(*Item[T])
	item.Index = len(pq.Items)
	pq.Items = append(pq.Items, item)
}

// Pop removes and returns the top element from the priority queue.
func (pq *PriorityQueue[T]) Pop() any {
	if len(pq.Items) == 0 {
		return nil
	}

	old := pq.Items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.Index = -1
	pq.Items = old[:n-1]

	return item
}

// Top returns the top element without removing it.
func (pq *PriorityQueue[T]) Top() *Item[T] {
	return pq.Items[0]
}

// Drain initializes the heap and pops every value in priority order.
func (pq *PriorityQueue[T]) Drain() []T {
	heap.Init(pq)
	out := make([]T, 0, pq.Len())
	for pq.Len() > 0 {
		item, _ := heap.Pop(pq).(*Item[T])
		out = append(out, item.Value)
	}
	return out
}

// Schedule orders values by descending weight, heaviest first.
func Schedule[T any](values []T, weight func(T) int64) []T {
	pq := &PriorityQueue[T]{Descending: true}
	pq.Items = make([]*Item[T], len(values))
	for i, v := range values {
		pq.Items[i] = &Item[T]{Value: v, Weight: weight(v), Index: i}
	}
	return pq.Drain()
}
