// Package regwrite implements the per-chip register-write queue: an
// ordered list of (address, value, delay-before) entries appended
// during a driver tick and drained by the chip's run loop.
package regwrite

import "github.com/exotracker/audio/internal/eventqueue"

type Address = uint16
type Byte = uint8

// Write is a single hardware register write.
type Write struct {
	Address Address
	Value   Byte
}

type relativeWrite struct {
	write      Write
	timeBefore eventqueue.CycleT
}

// Queue is owned exclusively by one ChipInstance; never shared across
// goroutines. The driver appends writes via AddTime/PushWrite during a
// tick; the chip's run loop drains them via PeekMut/Pop while
// advancing the synth.
type Queue struct {
	vec []relativeWrite

	accumDtime eventqueue.CycleT // input-side: pending delay not yet attached to a write

	readIndex int // output-side: cursor into vec
}

// New preallocates a queue with headroom for a typical tick's writes.
func New() *Queue {
	return &Queue{vec: make([]relativeWrite, 0, 64)}
}

// Clear drops all queued writes and resets both cursors; called once
// per tick, before the driver runs, by convention of the owning
// ChipInstance (see chipinstance.FlushRegisterWrites).
func (q *Queue) Clear() {
	q.vec = q.vec[:0]
	q.accumDtime = 0
	q.readIndex = 0
}

// AddTime accumulates dtime clocks to attach to the next pushed write.
func (q *Queue) AddTime(dtime eventqueue.CycleT) {
	q.accumDtime += dtime
}

// PushWrite appends a write, tagged with however much time has
// accumulated via AddTime since the last push. Must not be called
// while the read side still holds unread writes from a previous tick
// (the owning ChipInstance is responsible for draining before the
// next driver tick runs).
func (q *Queue) PushWrite(w Write) {
	q.vec = append(q.vec, relativeWrite{write: w, timeBefore: q.accumDtime})
	q.accumDtime = 0
}

// PeekMut returns a pointer to the next unread entry's time-before
// field, letting the caller clamp it in place (Chip Instance's run
// loop does this to cap a write's delay at the clocks remaining in
// the tick), or nil if the queue is fully drained.
func (q *Queue) PeekMut() *eventqueue.CycleT {
	if q.readIndex >= len(q.vec) {
		return nil
	}
	return &q.vec[q.readIndex].timeBefore
}

// PeekWrite returns the register write at the read cursor, valid only
// when PeekMut returned non-nil.
func (q *Queue) PeekWrite() Write {
	return q.vec[q.readIndex].write
}

// Pop consumes the entry at the read cursor. Its TimeBefore must
// already have been reduced to 0 (the caller has advanced the synth
// past it) — Pop panics otherwise, since that would mean a write was
// applied before its scheduled clock.
func (q *Queue) Pop() Write {
	if q.readIndex >= len(q.vec) {
		panic("regwrite: Pop on empty queue")
	}
	entry := q.vec[q.readIndex]
	if entry.timeBefore != 0 {
		panic("regwrite: Pop before write's delay elapsed")
	}
	q.readIndex++
	return entry.write
}

// NumUnread reports how many writes remain undrained.
func (q *Queue) NumUnread() int {
	return len(q.vec) - q.readIndex
}
