package relaxed

import "container/heap"

// maxBucketCost bounds the bucket array; offers above it degrade the queue
// to a binary heap. Typical unit-cost and small-cost tasks never leave
// bucket mode.
const maxBucketCost = 1 << 14

// adaptiveQueue is a monotonically-popped priority queue of propositions
// keyed by candidate cost. It starts as a bucket queue (FIFO within each
// bucket, so ties resolve in push order) and switches to a heap when costs
// exceed maxBucketCost. Both modes pop in a deterministic total order.
type adaptiveQueue struct {
	buckets [][]PropID
	pos     []int // read cursor per bucket
	current int   // lowest bucket that may be non-empty
	size    int

	useHeap bool
	heap    entryHeap
	seq     int
}

type heapEntry struct {
	cost int
	seq  int
	prop PropID
}

type entryHeap []heapEntry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].cost != h[j].cost {
		return h[i].cost < h[j].cost
	}
	return h[i].seq < h[j].seq
}
func (h entryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x interface{}) { *h = append(*h, x.(heapEntry)) }
func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

func (q *adaptiveQueue) clear() {
	for i := range q.buckets {
		q.buckets[i] = q.buckets[i][:0]
		q.pos[i] = 0
	}
	q.current = 0
	q.size = 0
	q.useHeap = false
	q.heap = q.heap[:0]
	q.seq = 0
}

func (q *adaptiveQueue) empty() bool { return q.size == 0 }

func (q *adaptiveQueue) push(cost int, p PropID) {
	q.size++
	if q.useHeap {
		q.seq++
		heap.Push(&q.heap, heapEntry{cost: cost, seq: q.seq, prop: p})
		return
	}
	if cost > maxBucketCost {
		q.degradeToHeap()
		q.seq++
		heap.Push(&q.heap, heapEntry{cost: cost, seq: q.seq, prop: p})
		return
	}
	for len(q.buckets) <= cost {
		q.buckets = append(q.buckets, nil)
		q.pos = append(q.pos, 0)
	}
	q.buckets[cost] = append(q.buckets[cost], p)
	if cost < q.current {
		q.current = cost
	}
}

func (q *adaptiveQueue) pop() (cost int, p PropID) {
	q.size--
	if q.useHeap {
		e := heap.Pop(&q.heap).(heapEntry)
		return e.cost, e.prop
	}
	for q.current < len(q.buckets) {
		b := q.buckets[q.current]
		if q.pos[q.current] < len(b) {
			p = b[q.pos[q.current]]
			q.pos[q.current]++
			return q.current, p
		}
		// Bucket drained; release it for reuse.
		q.buckets[q.current] = b[:0]
		q.pos[q.current] = 0
		q.current++
	}
	panic("adaptiveQueue: pop on empty queue")
}

// degradeToHeap moves all pending bucket entries into the heap, preserving
// the bucket pop order as the heap tie-break.
func (q *adaptiveQueue) degradeToHeap() {
	q.useHeap = true
	for c := q.current; c < len(q.buckets); c++ {
		for i := q.pos[c]; i < len(q.buckets[c]); i++ {
			q.seq++
			q.heap = append(q.heap, heapEntry{cost: c, seq: q.seq, prop: q.buckets[c][i]})
		}
		q.buckets[c] = q.buckets[c][:0]
		q.pos[c] = 0
	}
	heap.Init(&q.heap)
}
