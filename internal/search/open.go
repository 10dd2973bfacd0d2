package search

import "container/heap"

// entry orders open nodes by estimate, then by insertion sequence so equal
// estimates pop in generation order.
type entry struct {
	h    int
	seq  int
	node int
}

type openHeap []entry

func (o openHeap) Len() int { return len(o) }

func (o openHeap) Less(i, j int) bool {
	if o[i].h != o[j].h {
		return o[i].h < o[j].h
	}
	return o[i].seq < o[j].seq
}

func (o openHeap) Swap(i, j int) { o[i], o[j] = o[j], o[i] }

func (o *openHeap) Push(x interface{}) { *o = append(*o, x.(entry)) }

func (o *openHeap) Pop() interface{} {
	old := *o
	n := len(old)
	e := old[n-1]
	*o = old[:n-1]
	return e
}

func (o *openHeap) push(e entry) { heap.Push(o, e) }

func (o *openHeap) pop() int { return heap.Pop(o).(entry).node }
