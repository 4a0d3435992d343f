package buffer

import (
	"heapdb/disk/pages"
)

const (
	activeRing = 0
	freeRing   = 1
	firstSlot  = 2
)

type slot struct {
	page       pages.Page
	prev, next int
}

// lruList is a fixed arena of slots threaded into two index based rings. Slots 0 and 1 are the sentinels of the
// active ring and the free ring. Head of the active ring is the most recently used page, its tail the least
// recently used one. A slot that is in neither ring is claimed by an in flight page load.
type lruList struct {
	slots []slot
	sizes [2]int
}

func newLruList(poolSize int) *lruList {
	l := &lruList{slots: make([]slot, poolSize+firstSlot)}
	for _, ring := range []int{activeRing, freeRing} {
		l.slots[ring].prev = ring
		l.slots[ring].next = ring
	}
	for i := firstSlot; i < len(l.slots); i++ {
		l.pushFront(freeRing, i)
	}
	return l
}

func (l *lruList) pushFront(ring, i int) {
	head := &l.slots[ring]
	s := &l.slots[i]
	s.prev = ring
	s.next = head.next
	l.slots[head.next].prev = i
	head.next = i
	l.sizes[ring]++
}

func (l *lruList) unlink(ring, i int) {
	if l.sizes[ring] == 0 {
		panic("removing a slot from an empty ring")
	}

	s := &l.slots[i]
	l.slots[s.prev].next = s.next
	l.slots[s.next].prev = s.prev
	s.prev, s.next = -1, -1
	l.sizes[ring]--
}

func (l *lruList) moveToFront(ring, i int) {
	l.unlink(ring, i)
	l.pushFront(ring, i)
}

// back returns the tail slot of the ring, or the ring's sentinel when the ring is empty.
func (l *lruList) back(ring int) int {
	return l.slots[ring].prev
}

func (l *lruList) len(ring int) int {
	return l.sizes[ring]
}

// order returns active slots from most to least recently used.
func (l *lruList) order() []int {
	res := make([]int, 0, l.sizes[activeRing])
	for i := l.slots[activeRing].next; i != activeRing; i = l.slots[i].next {
		res = append(res, i)
	}
	return res
}
