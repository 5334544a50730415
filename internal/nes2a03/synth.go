// Package nes2a03 is the legacy NES path: a software driver plus a
// hand-written 2A03 pulse-channel synth, covering the two pulse voices
// only (triangle, noise and DPCM are out of scope).
package nes2a03

import (
	"github.com/exotracker/audio/internal/eventqueue"
	"github.com/exotracker/audio/internal/regwrite"
	"github.com/exotracker/audio/internal/tempo"
)

// cpuClockHz is the NTSC NES CPU clock; APU pulse timers count down at
// half this rate.
const cpuClockHz = 1789773

// numPulse is how many 2A03 channels this path models.
const numPulse = 2

var dutyTable = [4][8]uint8{
	{0, 1, 0, 0, 0, 0, 0, 0}, // 12.5%
	{0, 1, 1, 0, 0, 0, 0, 0}, // 25%
	{0, 1, 1, 1, 1, 0, 0, 0}, // 50%
	{1, 0, 0, 1, 1, 1, 1, 1}, // 25% negated
}

// pulse is one square-wave voice: an 11-bit timer clocking an 8-step
// duty sequencer at CPU/2, with a 4-bit constant volume. The length
// counter, hardware envelope and sweep unit are not modeled; the
// driver holds notes open and cuts them itself.
type pulse struct {
	enabled bool
	duty    uint8
	volume  uint8
	period  uint16 // 11-bit timer reload

	seqPos     uint8
	timerAccum uint32 // CPU cycles owed to the timer, 16 fractional bits
}

func (p *pulse) writeReg(offset regwrite.Address, v byte) {
	switch offset {
	case 0x0: // DDLC VVVV
		p.duty = v >> 6
		p.volume = v & 0x0F
	case 0x2:
		p.period = p.period&0x0700 | uint16(v)
	case 0x3: // LLLL LTTT; write restarts the sequencer, as on hardware
		p.period = p.period&0x00FF | uint16(v&0x07)<<8
		p.seqPos = 0
	}
}

// sample advances the voice by cpuCycles (16.16 fixed point) and
// returns its current output level.
func (p *pulse) sample(cpuCycles uint32) int16 {
	if !p.enabled {
		return 0
	}

	// Timer clocks every 2 CPU cycles; a full duty step takes
	// (period+1) timer clocks.
	p.timerAccum += cpuCycles
	stepLen := uint32(p.period+1) * 2 << 16
	for p.timerAccum >= stepLen {
		p.timerAccum -= stepLen
		p.seqPos = (p.seqPos + 1) & 7
	}

	// Periods below 8 are inaudibly high on hardware and silenced.
	if p.period < 8 {
		return 0
	}
	if dutyTable[p.duty][p.seqPos] == 0 {
		return -int16(p.volume) * 256
	}
	return int16(p.volume) * 256
}

// Synth is the 2A03 pulse pair behind the chipinstance.Synth contract.
// It runs in the same virtual clock domain as the rest of the core (32
// clocks per 32040 Hz output sample); register writes speak the real
// $4000-$4015 APU map, and the pulse timers count real CPU cycles, so
// period math matches hardware even though the sampling grid doesn't.
type Synth struct {
	pulses [numPulse]pulse

	clockRemainder eventqueue.CycleT
}

// cpuCyclesPerSample is how many CPU cycles elapse per output sample,
// in 16.16 fixed point.
const cpuCyclesPerSample = uint32((cpuClockHz << 16) / tempo.SamplesPerSIdeal)

func NewSynth() *Synth {
	return &Synth{}
}

func (s *Synth) Reset() {
	*s = Synth{}
}

func (s *Synth) WriteMemory(w regwrite.Write) {
	switch {
	case w.Address >= 0x4000 && w.Address <= 0x4003:
		s.pulses[0].writeReg(w.Address-0x4000, w.Value)
	case w.Address >= 0x4004 && w.Address <= 0x4007:
		s.pulses[1].writeReg(w.Address-0x4004, w.Value)
	case w.Address == 0x4015:
		s.pulses[0].enabled = w.Value&0x01 != 0
		s.pulses[1].enabled = w.Value&0x02 != 0
	}
}

func (s *Synth) RunClocks(nclk eventqueue.CycleT, writeTo []int16) uint32 {
	total := s.clockRemainder + nclk
	nsamp := total / tempo.ClocksPerSample
	s.clockRemainder = total % tempo.ClocksPerSample

	var written uint32
	for i := eventqueue.CycleT(0); i < nsamp; i++ {
		var mix int32
		for p := range s.pulses {
			mix += int32(s.pulses[p].sample(cpuCyclesPerSample))
		}
		if mix > 0x7FFF {
			mix = 0x7FFF
		}
		if mix < -0x8000 {
			mix = -0x8000
		}
		if int(written) < len(writeTo) {
			writeTo[written] = int16(mix)
			written++
		}
	}
	return written
}
