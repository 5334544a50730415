package spc700

import (
	"math"

	"github.com/exotracker/audio/internal/doc"
	"github.com/exotracker/audio/internal/eventqueue"
	"github.com/exotracker/audio/internal/regwrite"
	"github.com/exotracker/audio/internal/tempo"
	"github.com/exotracker/audio/internal/warning"
)

const centsPerOctave = 1200.0

// calcTuning computes the 14-bit S-DSP pitch register for playing note
// on a sample tuned per tuning, against the document's frequency table.
// Mirrors spc700_driver.cpp's calc_tuning exactly, including the clamp
// to [0, 0x3FFF] rather than letting an out-of-range pitch wrap.
func calcTuning(freqTable *[128]float64, sample *doc.Sample, note int) uint16 {
	tuningRegF := sample.SampleRate / tempo.SamplesPerSIdeal * 0x1000
	tuningRegF *= math.Exp2(sample.DetuneCents / centsPerOctave)
	tuningRegF *= freqTable[note] / freqTable[sample.RootKey]

	if tuningRegF < 0 {
		tuningRegF = 0
	}
	if tuningRegF > 0x3FFF {
		tuningRegF = 0x3FFF
	}
	return uint16(math.Round(tuningRegF))
}

// ChannelDriver owns one S-DSP voice's sticky note/instrument state
// across ticks (a row event only appears on the tick it lands on; the
// driver must remember the last instrument/note in force).
type ChannelDriver struct {
	channelID   int
	prevInstr   *int
	prevNote    int
	notePlaying bool
}

func newChannelDriver(channelID int) ChannelDriver {
	return ChannelDriver{channelID: channelID}
}

// chipFlags accumulates the key-on/key-off bitmasks across all 8
// channels within a single driver tick, matching Spc700ChipFlags.
type chipFlags struct {
	kon, koff uint8
}

func (c *ChannelDriver) voiceReg8(q *regwrite.Queue, vReg regwrite.Address, value byte) {
	q.PushWrite(regwrite.Write{Address: calcVoiceReg(c.channelID, vReg), Value: value})
}

func (c *ChannelDriver) voiceReg16(q *regwrite.Queue, vReg regwrite.Address, value uint16) {
	addr := calcVoiceReg(c.channelID, vReg)
	q.PushWrite(regwrite.Write{Address: addr, Value: byte(value)})
	q.PushWrite(regwrite.Write{Address: addr + 1, Value: byte(value >> 8)})
}

// Tick applies one tick's worth of row events for this channel,
// queuing register writes and OR-ing this channel's key-on/key-off
// bit into flags. Mirrors Spc700ChannelDriver::tick.
func (c *ChannelDriver) Tick(d *doc.Document, dr *Driver, events []doc.RowEvent, q *regwrite.Queue, flags *chipFlags) {
	channelBit := uint8(1) << uint(c.channelID)

	cannotPlay := func(detail string) bool {
		dr.Warnings.Push(warning.Warning{
			Kind:    warning.MissingSample,
			ChipIdx: dr.ChipIdx,
			Chan:    c.channelID,
			Detail:  detail,
		})
		return false
	}

	playNote := func(note int) bool {
		if c.prevInstr == nil {
			return false
		}
		if *c.prevInstr < 0 || *c.prevInstr >= doc.MaxInstruments {
			return cannotPlay("instrument index out of range")
		}
		instr := d.Instruments[*c.prevInstr]
		if instr == nil {
			return cannotPlay("instrument does not exist")
		}
		patch := instr.FindPatch(note)
		if patch == nil {
			return cannotPlay("no keysplit patch covers note")
		}
		if patch.Sample < 0 || patch.Sample >= doc.MaxSamples || !dr.samplesValid[patch.Sample] {
			return cannotPlay("sample not loaded into ARAM")
		}
		smp := d.Samples[patch.Sample]
		if smp == nil {
			return cannotPlay("sample loaded but missing from document")
		}

		c.voiceReg8(q, vSRCN, byte(patch.Sample))
		c.voiceReg8(q, vADSR0, adsrByte0(patch.Adsr))
		c.voiceReg8(q, vADSR1, adsrByte1(patch.Adsr))
		c.voiceReg16(q, vPITCHL, calcTuning(&dr.freqTable, smp, note))
		return true
	}

	noteCut := func() {
		flags.koff |= channelBit
		c.notePlaying = false
	}

	for _, ev := range events {
		if ev.Instrument != nil {
			c.prevInstr = ev.Instrument
			if c.notePlaying && ev.Note == nil {
				if !playNote(c.prevNote) {
					noteCut()
				}
			}
		}
		if ev.Note != nil {
			switch note := *ev.Note; {
			case note >= 0:
				c.prevNote = note
				if playNote(note) {
					flags.kon |= channelBit
					c.notePlaying = true
				} else {
					noteCut()
				}
			case note == doc.NoteRelease:
				noteCut()
			case note == doc.NoteCut:
				noteCut()
			}
		}
		if ev.Volume != nil {
			c.voiceReg8(q, vVOLL, byte(*ev.Volume))
			c.voiceReg8(q, vVOLR, byte(*ev.Volume))
		}
	}
}

// adsrByte0/adsrByte1 pack doc.Adsr into the S-DSP's two ADSR
// registers: byte0 = 0x80 | decay<<4 | attack, byte1 = sustainLvl<<5 | decay2.
func adsrByte0(a doc.Adsr) byte {
	return 0x80 | (a.Decay&0x7)<<4 | (a.Attack & 0xF)
}

func adsrByte1(a doc.Adsr) byte {
	return (a.SustainLvl&0x7)<<5 | (a.Decay2 & 0x1F)
}

// sampleDir is the fixed ARAM page the sample directory table lives
// at; sampleDirEntrySize is each entry's byte width (start addr lo/hi,
// loop addr lo/hi). Placeholder fixed layout, per reload_samples.
const (
	sampleDir          = 0x100
	sampleDirEntrySize = 4
)

// Driver is the S-DSP software driver: holds per-channel sticky state
// and the sample directory's loaded/valid bitmap, and turns document
// content into queued register writes every tick.
type Driver struct {
	channels     [8]ChannelDriver
	freqTable    [128]float64
	samplesValid [doc.MaxSamples]bool

	// Warnings receives live data-shape problems (missing samples,
	// ARAM overflow). A nil sink silently discards them. ChipIdx tags
	// each warning with the owning chip's document index.
	Warnings *warning.Sink
	ChipIdx  int
}

// NewDriver constructs a driver bound to d's frequency table. The
// frequency table is copied once at construction, mirroring the
// original engine's _freq_table member (tunings never depend on the
// live document after that point, only on notes/instruments).
func NewDriver(d *doc.Document) *Driver {
	dr := &Driver{}
	for i := range dr.channels {
		dr.channels[i] = newChannelDriver(i)
	}
	dr.freqTable = d.FrequencyTable
	return dr
}

// Reset reprograms every S-DSP register to a known-good startup
// state, plus reloads the sample directory. Mirrors Spc700Driver::reset_state
// (minus resetting the synth's internal chip state, which the caller
// does directly on the Synth before calling Reset).
func (dr *Driver) Reset(d *doc.Document, ram *[spcMemorySize]byte, q *regwrite.Queue) {
	dr.ReloadSamples(d, ram, q)

	q.PushWrite(regwrite.Write{Address: rMVOLL, Value: 0x7F})
	q.PushWrite(regwrite.Write{Address: rMVOLR, Value: 0x7F})

	q.PushWrite(regwrite.Write{Address: rFLG, Value: 0b0010_0000})

	q.PushWrite(regwrite.Write{Address: rEVOLL, Value: 0})
	q.PushWrite(regwrite.Write{Address: rEVOLR, Value: 0})

	q.PushWrite(regwrite.Write{Address: rPMON, Value: 0x00})
	q.PushWrite(regwrite.Write{Address: rNON, Value: 0x00})
	q.PushWrite(regwrite.Write{Address: rEON, Value: 0x00})

	q.PushWrite(regwrite.Write{Address: rKON, Value: 0x00})

	for i := range dr.channels {
		q.PushWrite(regwrite.Write{Address: calcVoiceReg(i, vVOLL), Value: 0x20})
		q.PushWrite(regwrite.Write{Address: calcVoiceReg(i, vVOLR), Value: 0x20})
	}
}

// ReloadSamples packs every document sample into ARAM starting at
// sampleDir's first unused directory slot, skipping samples that
// don't fit or are corrupt, and writes the directory page register.
// Mirrors Spc700Driver::reload_samples, including its "overflow or
// corruption: skip this sample, keep trying later ones" recovery
// strategy — a malformed sample must never abort loading the rest.
func (dr *Driver) ReloadSamples(d *doc.Document, ram *[spcMemorySize]byte, q *regwrite.Queue) {
	for i := range dr.samplesValid {
		dr.samplesValid[i] = false
	}

	lastSampleIdx := -1
	for i := doc.MaxSamples - 1; i >= 0; i-- {
		if d.Samples[i] != nil {
			lastSampleIdx = i
			break
		}
	}

	if lastSampleIdx >= 0 {
		firstUnusedSlot := lastSampleIdx + 1
		sampleStartAddr := sampleDir + firstUnusedSlot*sampleDirEntrySize

		for i := 0; i < firstUnusedSlot; i++ {
			if sampleStartAddr >= spcMemorySize {
				break
			}
			smp := d.Samples[i]
			if smp == nil || len(smp.BRR) == 0 {
				continue
			}

			brrSizeClamped := len(smp.BRR)
			if brrSizeClamped > spcMemorySize {
				brrSizeClamped = spcMemorySize
			}
			sampleEndAddr := sampleStartAddr + brrSizeClamped
			if sampleEndAddr > spcMemorySize {
				dr.Warnings.Push(warning.Warning{
					Kind:    warning.SampleOverflow,
					ChipIdx: dr.ChipIdx,
					Chan:    -1,
					Detail:  "sample does not fit in remaining ARAM",
				})
				continue
			}

			sampleLoopAddr := sampleStartAddr + int(smp.LoopByte)
			if sampleLoopAddr >= spcMemorySize {
				dr.Warnings.Push(warning.Warning{
					Kind:    warning.CorruptBRR,
					ChipIdx: dr.ChipIdx,
					Chan:    -1,
					Detail:  "loop point past end of ARAM",
				})
				continue
			}

			sampleEntryAddr := sampleDir + i*sampleDirEntrySize
			ram[sampleEntryAddr+0] = byte(sampleStartAddr)
			ram[sampleEntryAddr+1] = byte(sampleStartAddr >> 8)
			ram[sampleEntryAddr+2] = byte(sampleLoopAddr)
			ram[sampleEntryAddr+3] = byte(sampleLoopAddr >> 8)
			copy(ram[sampleStartAddr:sampleEndAddr], smp.BRR[:brrSizeClamped])

			sampleStartAddr = sampleEndAddr
			dr.samplesValid[i] = true
		}
	}

	q.PushWrite(regwrite.Write{Address: rDIR, Value: byte(sampleDir >> 8)})
}

// StopPlayback releases every voice and waits the customary two
// samples before further register writes are allowed to land, mirroring
// Spc700Driver::stop_playback.
func (dr *Driver) StopPlayback(q *regwrite.Queue) {
	q.PushWrite(regwrite.Write{Address: rKOFF, Value: 0xFF})
	q.AddTime(eventqueue.CycleT(tempo.ClocksPerTwoSamples))
}

// Tick runs one driver tick: clears key-off, ticks every channel
// sequentially gathering kon/koff bits, then writes accumulated
// koff/kon register writes. Mirrors Spc700Driver::driver_tick's write
// ordering exactly (koff cleared first, then per-channel ticks, then
// koff-if-nonzero, then kon-if-nonzero) since the S-DSP only clears
// koff's bits that a write actually sets, never all of them implicitly.
func (dr *Driver) Tick(d *doc.Document, eventsPerChannel [][]doc.RowEvent, q *regwrite.Queue) {
	var flags chipFlags

	q.PushWrite(regwrite.Write{Address: rKOFF, Value: 0x00})

	for i := range dr.channels {
		var events []doc.RowEvent
		if i < len(eventsPerChannel) {
			events = eventsPerChannel[i]
		}
		dr.channels[i].Tick(d, dr, events, q, &flags)
	}

	if flags.koff != 0 {
		q.PushWrite(regwrite.Write{Address: rKOFF, Value: flags.koff})
	}
	if flags.kon != 0 {
		q.PushWrite(regwrite.Write{Address: rKON, Value: flags.kon})
	}
}

// ClocksPerTick is the driver's timer period in chip clocks
// (tempo.CalcClocksPerTimer of the document's SpcTimerPeriod). Whether
// a timer tick also advances the sequencer is decided by OverallSynth
// from the rate byte tempo.CalcSequencerRate computes.
func (dr *Driver) ClocksPerTick(d *doc.Document) eventqueue.CycleT {
	return eventqueue.CycleT(tempo.CalcClocksPerTimer(d.SequencerOpts.SpcTimerPeriod))
}
