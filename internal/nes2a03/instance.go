package nes2a03

import (
	"github.com/exotracker/audio/internal/chipinstance"
	"github.com/exotracker/audio/internal/doc"
	"github.com/exotracker/audio/internal/eventqueue"
	"github.com/exotracker/audio/internal/regwrite"
	"github.com/exotracker/audio/internal/sequencer"
	"github.com/exotracker/audio/internal/warning"
)

// Instance bundles one 2A03's sequencers, driver, synth and register
// queue behind the chipinstance.Instance capability set.
type Instance struct {
	chipIdx    int
	sequencers [numPulse]*sequencer.ChannelSequencer
	driver     *Driver
	synth      *Synth
	regs       *regwrite.Queue
	runEvents  *eventqueue.Queue

	eventScratch [numPulse][]doc.RowEvent
}

var _ chipinstance.Instance = (*Instance)(nil)

func NewInstance(d *doc.Document, chipIdx int, warnings *warning.Sink) *Instance {
	inst := &Instance{
		chipIdx:   chipIdx,
		driver:    NewDriver(d),
		synth:     NewSynth(),
		regs:      regwrite.New(),
		runEvents: eventqueue.New(2),
	}
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
	inst.driver.Reset(d, inst.regs)
}

// ReloadSamples is a no-op: the 2A03 has no sample memory.
func (inst *Instance) ReloadSamples(d *doc.Document) {}

func (inst *Instance) StopPlayback() {
	inst.driver.StopPlayback(inst.regs)
}

func (inst *Instance) SequencerDriverTick(d *doc.Document) {
	nchan := numPulse
	if inst.chipIdx < len(d.Chips) {
		if n := d.ChipNumChannels(inst.chipIdx); n < nchan {
			nchan = n
		}
	}
	for i := 0; i < numPulse; i++ {
		if i < nchan {
			inst.eventScratch[i] = inst.sequencers[i].NextTick(d, inst.chipIdx, i)
		} else {
			inst.eventScratch[i] = nil
		}
	}
	inst.driver.Tick(d, inst.eventScratch[:], inst.regs)
}

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
