package waketimer

import (
	"container/heap"
	"time"
)

// entry is one armed registration.
type entry struct {
	handle  Handle
	alarmID int64
	at      time.Time
}

// entryHeap implements container/heap.Interface sorted by due instant,
// earliest first, with handle order breaking ties.
type entryHeap []entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].handle < h[j].handle
	}

	return h[i].at.Before(h[j].at)
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) {
	*h = append(*h, x.(entry)) //nolint:forcetypeassert // Only entries are pushed.
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]

	return x
}

// heapPush adds an entry, maintaining the heap invariant.
func heapPush(h *entryHeap, e entry) {
	heap.Push(h, e)
}

// heapPop removes and returns the earliest entry. Panics if the heap is empty.
func heapPop(h *entryHeap) entry {
	return heap.Pop(h).(entry) //nolint:forcetypeassert // Only entries are pushed.
}

// heapRemove removes the entry with the handle and reports whether it existed.
func heapRemove(h *entryHeap, handle Handle) bool {
	for i, e := range *h {
		if e.handle == handle {
			heap.Remove(h, i)

			return true
		}
	}

	return false
}
