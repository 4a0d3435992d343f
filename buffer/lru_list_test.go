package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLruList_Should_Start_With_All_Slots_Free(t *testing.T) {
	l := newLruList(4)
	assert.Equal(t, 4, l.len(freeRing))
	assert.Equal(t, 0, l.len(activeRing))
	assert.Equal(t, activeRing, l.back(activeRing))
	assert.Empty(t, l.order())
}

func TestLruList_Should_Keep_Most_Recent_At_Head(t *testing.T) {
	l := newLruList(3)
	var claimed []int
	for l.len(freeRing) > 0 {
		i := l.back(freeRing)
		l.unlink(freeRing, i)
		claimed = append(claimed, i)
	}

	for _, i := range claimed {
		l.pushFront(activeRing, i)
	}
	assert.Equal(t, []int{claimed[2], claimed[1], claimed[0]}, l.order())
	assert.Equal(t, claimed[0], l.back(activeRing))

	l.moveToFront(activeRing, claimed[0])
	assert.Equal(t, []int{claimed[0], claimed[2], claimed[1]}, l.order())
	assert.Equal(t, claimed[1], l.back(activeRing))

	l.unlink(activeRing, claimed[2])
	l.pushFront(freeRing, claimed[2])
	assert.Equal(t, []int{claimed[0], claimed[1]}, l.order())
	assert.Equal(t, 1, l.len(freeRing))
}

func TestLruList_Should_Panic_When_Removing_From_Empty_Ring(t *testing.T) {
	l := newLruList(1)
	assert.Panics(t, func() {
		l.unlink(activeRing, firstSlot)
	})
}
