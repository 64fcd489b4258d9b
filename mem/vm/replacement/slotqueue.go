package replacement

// slotQueue is an ordered list of frame slots. The front is the next eviction
// candidate for the queue-based policies.
type slotQueue struct {
	slots []int
}

func (q *slotQueue) Len() int {
	return len(q.slots)
}

func (q *slotQueue) pushBack(slot int) {
	q.remove(slot)
	q.slots = append(q.slots, slot)
}

func (q *slotQueue) popFront() (int, bool) {
	if len(q.slots) == 0 {
		return 0, false
	}

	slot := q.slots[0]
	q.slots = q.slots[1:]

	return slot, true
}

func (q *slotQueue) popBack() (int, bool) {
	if len(q.slots) == 0 {
		return 0, false
	}

	last := len(q.slots) - 1
	slot := q.slots[last]
	q.slots = q.slots[:last]

	return slot, true
}

// moveToBack moves the slot to the back, like visiting a block in an LRU
// queue. Slots not in the queue are appended.
func (q *slotQueue) moveToBack(slot int) {
	q.pushBack(slot)
}

func (q *slotQueue) remove(slot int) bool {
	for i, s := range q.slots {
		if s == slot {
			q.slots = append(q.slots[:i], q.slots[i+1:]...)
			return true
		}
	}

	return false
}

func (q *slotQueue) order() []int {
	out := make([]int, len(q.slots))
	copy(out, q.slots)

	return out
}
