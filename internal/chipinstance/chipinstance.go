// Package chipinstance implements the 1-tick execute loop shared by
// every chip family: interleave applying queued register writes with
// advancing the hardware synth, never re-winding time, always
// consuming exactly the requested number of clocks.
package chipinstance

import (
	"github.com/exotracker/audio/internal/doc"
	"github.com/exotracker/audio/internal/eventqueue"
	"github.com/exotracker/audio/internal/regwrite"
)

// Synth is the hardware emulator half of a chip: consumes register
// writes and produces samples. WriteMemory must not advance time;
// RunClocks must not cross a register-write boundary (the caller
// guarantees it won't be asked to).
type Synth interface {
	WriteMemory(w regwrite.Write)
	RunClocks(nclk eventqueue.CycleT, writeTo []int16) (samplesWritten uint32)
}

// Instance is the polymorphic capability set OverallSynth drives:
// seek/mutation hooks, driver ticking, and the run loop. Variants:
// spc700.Instance, nes2a03.Instance.
type Instance interface {
	Seek(d *doc.Document, frameIdx int, beatWithinFrame float64)
	TempoChanged(d *doc.Document)
	DocEdited(d *doc.Document)
	TimelineModified(d *doc.Document)

	// ResetState reprograms the synth to its known-good startup
	// register state; called whenever playback begins. The caller must
	// run a DriverTick on the same tick.
	ResetState(d *doc.Document)
	ReloadSamples(d *doc.Document)
	StopPlayback()

	// SequencerDriverTick ticks every channel sequencer, then runs the
	// driver on the resulting events. Returns nothing: the core never
	// needs the intermediate per-channel event lists outside the driver.
	SequencerDriverTick(d *doc.Document)
	// DriverTick runs the driver with no sequencer input (song stopped;
	// notes still decay/release naturally).
	DriverTick(d *doc.Document)

	FlushRegisterWrites()
	ClocksPerTick(d *doc.Document) eventqueue.CycleT
	RunChipFor(clocksThisTick eventqueue.CycleT, writeTo []int16) (samplesWritten uint32)
}

const (
	idEndOfTick = 0
	idRegWrite  = 1
)

// FlushRegisterWrites must be called once per tick, before the driver
// runs. A non-empty queue here means the previous tick's driver wrote
// more than ClocksPerTick worth of delay, which is a driver bug, not
// a recoverable runtime condition.
func FlushRegisterWrites(q *regwrite.Queue) {
	if q.NumUnread() != 0 {
		panic("chipinstance: register queue not empty at tick boundary")
	}
	q.Clear()
}

// RunChipFor runs the chip for exactly clocksThisTick clocks, applying
// register writes and generating audio, possibly crossing several
// register-write boundaries, never crossing the EndOfTick boundary.
// eq is the instance's own two-slot queue, reset here on entry; owning
// it in the instance keeps this hot path allocation-free.
func RunChipFor(eq *eventqueue.Queue, q *regwrite.Queue, synth Synth, clocksThisTick eventqueue.CycleT, writeTo []int16) uint32 {
	eq.Reset()
	eq.SetTimeout(idEndOfTick, clocksThisTick)

	scheduleNextWrite := func() {
		delay := q.PeekMut()
		if delay == nil {
			return
		}
		if remaining := eq.GetTimeUntil(idEndOfTick); *delay > remaining {
			*delay = remaining
		}
		eq.SetTimeout(idRegWrite, *delay)
	}
	scheduleNextWrite()

	var written uint32
	for {
		id, dclk := eq.NextEvent()
		if dclk > 0 {
			// Keep the pending write's stored delay in sync with time
			// passing, so a write clamped to the tick boundary carries a
			// zero delay into the next tick instead of being re-delayed.
			if delay := q.PeekMut(); delay != nil {
				*delay -= dclk
			}
			if int(written) < len(writeTo) {
				written += synth.RunClocks(dclk, writeTo[written:])
			} else {
				synth.RunClocks(dclk, nil)
			}
		}

		switch id {
		case idRegWrite:
			synth.WriteMemory(q.Pop())
			scheduleNextWrite()
		case idEndOfTick:
			return written
		}
	}
}
