// Package engine schedules analyzer jobs onto a pool of worker child
// processes. The queue orders work by how close it is to what the user is
// looking at; the pool handles timeouts, crashes, and preemption.
package engine

import (
	"container/heap"

	"vantage/pkg/types"
)

// Tier groups pending jobs by urgency. Within a tier, jobs closer to the
// cursor run first; ties break toward the earlier enqueue.
const (
	// TierFocus is the cell under the cursor.
	TierFocus = 0
	// TierColumn is the cursor's tool column on other files.
	TierColumn = 1
	// TierRest is everything else, ordered by grid distance.
	TierRest = 2
)

type item struct {
	job      types.JobSpec
	tier     int
	distance int
	seq      uint64
	index    int
}

type jobHeap []*item

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.tier != b.tier {
		return a.tier < b.tier
	}
	if a.distance != b.distance {
		return a.distance < b.distance
	}
	return a.seq < b.seq
}

func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *jobHeap) Push(x any) {
	it := x.(*item)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// Queue is a priority queue of pending jobs. It is not safe for
// concurrent use; the engine serializes access.
type Queue struct {
	heap jobHeap
	byID map[uint64]*item
	seq  uint64
}

func NewQueue() *Queue {
	return &Queue{byID: map[uint64]*item{}}
}

func (q *Queue) Len() int { return len(q.heap) }

// Push enqueues a job at the given tier and distance.
func (q *Queue) Push(job types.JobSpec, tier, distance int) {
	q.seq++
	it := &item{job: job, tier: tier, distance: distance, seq: q.seq}
	heap.Push(&q.heap, it)
	q.byID[job.ID] = it
}

// Pop removes and returns the most urgent job along with its tier.
func (q *Queue) Pop() (types.JobSpec, int, bool) {
	if len(q.heap) == 0 {
		return types.JobSpec{}, 0, false
	}
	it := heap.Pop(&q.heap).(*item)
	delete(q.byID, it.job.ID)
	return it.job, it.tier, true
}

// Peek returns the most urgent job without removing it.
func (q *Queue) Peek() (types.JobSpec, bool) {
	if len(q.heap) == 0 {
		return types.JobSpec{}, false
	}
	return q.heap[0].job, true
}

// Remove drops a pending job by ID, if still queued.
func (q *Queue) Remove(id uint64) bool {
	it, ok := q.byID[id]
	if !ok {
		return false
	}
	heap.Remove(&q.heap, it.index)
	delete(q.byID, id)
	return true
}

// RemoveWhere drops every pending job the predicate matches, preserving
// the placement of the rest, and returns how many were removed.
func (q *Queue) RemoveWhere(pred func(types.JobSpec) bool) int {
	removed := 0
	for i := 0; i < len(q.heap); {
		if pred(q.heap[i].job) {
			delete(q.byID, q.heap[i].job.ID)
			heap.Remove(&q.heap, i)
			removed++
			continue
		}
		i++
	}
	return removed
}

// Rescore recomputes every pending job's tier and distance, after the
// cursor moved or the grid was re-sorted. score returns the new placement
// for a job; enqueue order is preserved as the tiebreak.
func (q *Queue) Rescore(score func(types.JobSpec) (tier, distance int)) {
	for _, it := range q.heap {
		it.tier, it.distance = score(it.job)
	}
	heap.Init(&q.heap)
}

// Drain empties the queue and returns the abandoned jobs.
func (q *Queue) Drain() []types.JobSpec {
	out := make([]types.JobSpec, 0, len(q.heap))
	for _, it := range q.heap {
		out = append(out, it.job)
	}
	q.heap = nil
	q.byID = map[uint64]*item{}
	return out
}
