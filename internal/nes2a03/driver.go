package nes2a03

import (
	"math"

	"github.com/exotracker/audio/internal/doc"
	"github.com/exotracker/audio/internal/eventqueue"
	"github.com/exotracker/audio/internal/regwrite"
	"github.com/exotracker/audio/internal/tempo"
)

// APU register addresses. Per-pulse registers are base + 4*channel.
const (
	rPulseCtrl regwrite.Address = 0x4000
	rPulseLow  regwrite.Address = 0x4002
	rPulseHigh regwrite.Address = 0x4003
	rApuStatus regwrite.Address = 0x4015
)

// calcPeriod converts a note frequency to the pulse channel's 11-bit
// timer period: f = cpu / (16 * (period + 1)).
func calcPeriod(freqHz float64) uint16 {
	if freqHz <= 0 {
		return 0x7FF
	}
	period := math.Round(cpuClockHz/(16*freqHz)) - 1
	if period < 0 {
		period = 0
	}
	if period > 0x7FF {
		period = 0x7FF
	}
	return uint16(period)
}

// channelDriver holds one pulse channel's sticky state across ticks.
type channelDriver struct {
	channelID int
	volume    uint8 // 4-bit, sticky across rows
	playing   bool
}

func (c *channelDriver) pulseReg(q *regwrite.Queue, reg regwrite.Address, value byte) {
	q.PushWrite(regwrite.Write{Address: reg + regwrite.Address(4*c.channelID), Value: value})
}

// tick applies one tick's row events for this pulse channel. There is
// no keysplit on the 2A03 path: instruments carry no meaning here
// beyond selecting "a pulse wave," so instrument changes only matter
// for their side effect of retriggering nothing.
func (c *channelDriver) tick(freqTable *[128]float64, events []doc.RowEvent, q *regwrite.Queue, enabled *uint8) {
	channelBit := uint8(1) << uint(c.channelID)

	for _, ev := range events {
		if ev.Volume != nil {
			v := *ev.Volume
			if v < 0 {
				v = 0
			}
			if v > 15 {
				v = 15
			}
			c.volume = uint8(v)
			if c.playing {
				// Duty 50%, length counter halted, constant volume.
				c.pulseReg(q, rPulseCtrl, 0x80|0x30|c.volume)
			}
		}
		if ev.Note != nil {
			switch note := *ev.Note; {
			case note >= 0 && note < 128:
				period := calcPeriod(freqTable[note])
				c.pulseReg(q, rPulseCtrl, 0x80|0x30|c.volume)
				c.pulseReg(q, rPulseLow, byte(period))
				c.pulseReg(q, rPulseHigh, byte(period>>8))
				*enabled |= channelBit
				c.playing = true
			default: // cut and release collapse together without envelopes
				*enabled &^= channelBit
				c.playing = false
			}
		}
	}
}

// Driver converts row events into APU register writes for the two
// pulse channels. Structured like the S-DSP driver, minus everything
// the 2A03 doesn't have: no sample memory, no ADSR, no key-on latch —
// just the $4015 enable byte standing in for KON/KOFF.
type Driver struct {
	channels  [numPulse]channelDriver
	freqTable [128]float64

	enabledBits     uint8
	lastEnabledBits uint8
}

func NewDriver(d *doc.Document) *Driver {
	dr := &Driver{}
	for i := range dr.channels {
		dr.channels[i] = channelDriver{channelID: i, volume: 15}
	}
	dr.freqTable = d.FrequencyTable
	return dr
}

// Reset silences both channels and restores default volumes.
func (dr *Driver) Reset(d *doc.Document, q *regwrite.Queue) {
	dr.enabledBits = 0
	dr.lastEnabledBits = 0
	for i := range dr.channels {
		dr.channels[i].volume = 15
		dr.channels[i].playing = false
	}
	q.PushWrite(regwrite.Write{Address: rApuStatus, Value: 0x00})
}

// StopPlayback cuts both pulse channels.
func (dr *Driver) StopPlayback(q *regwrite.Queue) {
	dr.enabledBits = 0
	for i := range dr.channels {
		dr.channels[i].playing = false
	}
	q.PushWrite(regwrite.Write{Address: rApuStatus, Value: 0x00})
	dr.lastEnabledBits = 0
}

// Tick runs one driver tick across both channels, then writes the
// enable byte if any channel started or stopped.
func (dr *Driver) Tick(d *doc.Document, eventsPerChannel [][]doc.RowEvent, q *regwrite.Queue) {
	for i := range dr.channels {
		var events []doc.RowEvent
		if i < len(eventsPerChannel) {
			events = eventsPerChannel[i]
		}
		dr.channels[i].tick(&dr.freqTable, events, q, &dr.enabledBits)
	}

	if dr.enabledBits != dr.lastEnabledBits {
		q.PushWrite(regwrite.Write{Address: rApuStatus, Value: dr.enabledBits})
		dr.lastEnabledBits = dr.enabledBits
	}
}

// ClocksPerTick keeps the 2A03 path on the same shared timer as the
// S-DSP path, so all chips tick in lockstep off one tempo source.
func (dr *Driver) ClocksPerTick(d *doc.Document) eventqueue.CycleT {
	return eventqueue.CycleT(tempo.CalcClocksPerTimer(d.SequencerOpts.SpcTimerPeriod))
}
