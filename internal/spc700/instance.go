package spc700

import (
	"github.com/exotracker/audio/internal/chipinstance"
	"github.com/exotracker/audio/internal/doc"
	"github.com/exotracker/audio/internal/eventqueue"
	"github.com/exotracker/audio/internal/regwrite"
	"github.com/exotracker/audio/internal/sequencer"
	"github.com/exotracker/audio/internal/warning"
)

// Instance bundles one SPC-700's sequencers, driver, synth, and
// register queue behind the chipinstance.Instance capability set.
type Instance struct {
	chipIdx    int
	sequencers [numVoices]*sequencer.ChannelSequencer
	driver     *Driver
	synth      *Synth
	regs       *regwrite.Queue
	runEvents  *eventqueue.Queue

	// Scratch reused every tick: per-channel event slices handed to the
	// driver. Element i aliases sequencer i's output for this tick only.
	eventScratch [numVoices][]doc.RowEvent
}

var _ chipinstance.Instance = (*Instance)(nil)

// NewInstance builds a powered-on SPC-700 for chip index chipIdx of d.
// The caller is expected to ResetState + DriverTick before the first
// RunChipFor, same as at the start of playback.
func NewInstance(d *doc.Document, chipIdx int, warnings *warning.Sink) *Instance {
	inst := &Instance{
		chipIdx:   chipIdx,
		driver:    NewDriver(d),
		synth:     NewSynth(),
		regs:      regwrite.New(),
		runEvents: eventqueue.New(2),
	}
	inst.driver.Warnings = warnings
	inst.driver.ChipIdx = chipIdx
	for i := range inst.sequencers {
		inst.sequencers[i] = sequencer.NewChannelSequencer()
		inst.sequencers[i].Warnings = warnings
	}
	return inst
}

func (inst *Instance) Seek(d *doc.Document, frameIdx int, beatWithinFrame float64) {
	for _, s := range inst.sequencers {
		s.Seek(d, frameIdx, beatWithinFrame)
	}
}

func (inst *Instance) TempoChanged(d *doc.Document) {
	for _, s := range inst.sequencers {
		s.TempoChanged(d)
	}
}

func (inst *Instance) DocEdited(d *doc.Document) {
	for _, s := range inst.sequencers {
		s.DocEdited(d)
	}
}

func (inst *Instance) TimelineModified(d *doc.Document) {
	for _, s := range inst.sequencers {
		s.TimelineModified(d)
	}
}

func (inst *Instance) ResetState(d *doc.Document) {
	inst.synth.Reset()
	inst.driver.Reset(d, inst.synth.RAM(), inst.regs)
}

// ReloadSamples stops every voice outright, since repacking ARAM may
// move the samples they were reading, then repacks sample memory.
func (inst *Instance) ReloadSamples(d *doc.Document) {
	inst.synth.voices = [numVoices]voice{}
	inst.driver.ReloadSamples(d, inst.synth.RAM(), inst.regs)
}

func (inst *Instance) StopPlayback() {
	inst.driver.StopPlayback(inst.regs)
}

// SequencerDriverTick runs every channel's sequencer for one tick and
// feeds the resulting events to the driver.
func (inst *Instance) SequencerDriverTick(d *doc.Document) {
	nchan := numVoices
	if inst.chipIdx < len(d.Chips) {
		if n := d.ChipNumChannels(inst.chipIdx); n < nchan {
			nchan = n
		}
	}
	for i := 0; i < numVoices; i++ {
		if i < nchan {
			inst.eventScratch[i] = inst.sequencers[i].NextTick(d, inst.chipIdx, i)
		} else {
			inst.eventScratch[i] = nil
		}
	}
	inst.driver.Tick(d, inst.eventScratch[:], inst.regs)
}

// DriverTick runs the driver with no sequencer input: notes keep
// decaying under their envelopes, but no new events fire.
func (inst *Instance) DriverTick(d *doc.Document) {
	for i := range inst.eventScratch {
		inst.eventScratch[i] = nil
	}
	inst.driver.Tick(d, inst.eventScratch[:], inst.regs)
}

func (inst *Instance) FlushRegisterWrites() {
	chipinstance.FlushRegisterWrites(inst.regs)
}

func (inst *Instance) ClocksPerTick(d *doc.Document) eventqueue.CycleT {
	return inst.driver.ClocksPerTick(d)
}

func (inst *Instance) RunChipFor(clocksThisTick eventqueue.CycleT, writeTo []int16) uint32 {
	return chipinstance.RunChipFor(inst.runEvents, inst.regs, inst.synth, clocksThisTick, writeTo)
}
