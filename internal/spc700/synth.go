package spc700

import (
	"github.com/exotracker/audio/internal/adsr"
	"github.com/exotracker/audio/internal/eventqueue"
	"github.com/exotracker/audio/internal/regwrite"
	"github.com/exotracker/audio/internal/tempo"
)

// spcMemorySize is the full 64 KiB ARAM address space.
const spcMemorySize = 0x10000

// numVoices is the S-DSP's hardware voice count.
const numVoices = 8

// envMode tracks which half of the envelope logic drives a voice: the
// ADSR state machine while keyed on, or the fixed-slope release ramp
// the hardware switches to on key-off.
type envMode int

const (
	envOff envMode = iota
	envAdsr
	envRelease
)

// voice is the per-voice playback state: a streaming BRR decoder, a
// 4.12 fixed-point pitch counter, and the envelope.
type voice struct {
	brrAddr   int // ARAM address of the block currently decoding
	loopAddr  int
	decoded   [16]int32
	decodePos int
	hist      [2]int32

	// Pitch counter: 12 fractional bits; 0x1000 steps one source
	// sample per output sample.
	pitchCounter uint32
	prevSample   int32
	currSample   int32

	mode    envMode
	adsrEnv *adsr.Runner
	level   int32 // release-mode level, frozen from the ADSR on key-off
}

// Synth is a hand-written S-DSP model: a 64 KiB ARAM, a 128-byte
// register file, and 8 BRR-decoding voices with ADSR envelopes. It
// omits the echo unit, noise generator, pitch modulation, and the
// gaussian interpolation filter (linear interpolation instead); the
// driver never programs those features. Implements chipinstance.Synth.
//
// The ARAM array lives inside the struct and voices hold plain integer
// addresses into it, so unlike an emulator holding raw pointers, the
// value is safe to move before RunClocks is first called.
type Synth struct {
	ram  [spcMemorySize]byte
	regs [128]byte

	voices [numVoices]voice

	// Clocks accumulated toward the next output sample; output advances
	// one sample per tempo.ClocksPerSample clocks.
	clockRemainder eventqueue.CycleT
}

// NewSynth returns a powered-on S-DSP with cleared ARAM and registers.
func NewSynth() *Synth {
	return &Synth{}
}

// RAM exposes the ARAM array for the driver's sample loading. Writing
// sample data bypasses the register interface, same as the real
// hardware where the S-SMP fills ARAM directly.
func (s *Synth) RAM() *[spcMemorySize]byte {
	return &s.ram
}

// Reset clears registers and stops all voices; ARAM contents survive,
// as on the real chip, where reset does not clear memory.
func (s *Synth) Reset() {
	s.regs = [128]byte{}
	s.voices = [numVoices]voice{}
	s.clockRemainder = 0
}

// WriteMemory applies one register write. Time does not pass; the run
// loop interleaves these between RunClocks calls at exact clock
// positions.
func (s *Synth) WriteMemory(w regwrite.Write) {
	addr := w.Address & 0x7F
	s.regs[addr] = w.Value

	switch addr {
	case rKON:
		for v := 0; v < numVoices; v++ {
			if w.Value&(1<<uint(v)) != 0 {
				s.keyOn(v)
			}
		}
	case rKOFF:
		for v := 0; v < numVoices; v++ {
			if w.Value&(1<<uint(v)) != 0 {
				s.keyOff(v)
			}
		}
	}
}

func (s *Synth) voiceReg(v int, offset regwrite.Address) byte {
	return s.regs[regwrite.Address(v<<4)+offset]
}

// dirEntry reads voice v's sample directory entry: the BRR start and
// loop addresses, little-endian, at DIR<<8 + SRCN*4.
func (s *Synth) dirEntry(v int) (start, loop int) {
	base := int(s.regs[rDIR])<<8 + int(s.voiceReg(v, vSRCN))*4
	start = int(s.ram[base&0xFFFF]) | int(s.ram[(base+1)&0xFFFF])<<8
	loop = int(s.ram[(base+2)&0xFFFF]) | int(s.ram[(base+3)&0xFFFF])<<8
	return start, loop
}

func (s *Synth) keyOn(v int) {
	vc := &s.voices[v]
	start, loop := s.dirEntry(v)
	*vc = voice{
		brrAddr:  start,
		loopAddr: loop,
		mode:     envAdsr,
		adsrEnv: adsr.NewRunner(adsr.Params{
			Attack:     s.voiceReg(v, vADSR0) & 0xF,
			Decay:      (s.voiceReg(v, vADSR0) >> 4) & 0x7,
			SustainLvl: s.voiceReg(v, vADSR1) >> 5,
			Decay2:     s.voiceReg(v, vADSR1) & 0x1F,
		}),
	}
	vc.decodeNextBlock(s)
}

func (s *Synth) keyOff(v int) {
	vc := &s.voices[v]
	if vc.mode != envAdsr {
		return
	}
	vc.level = int32(vc.adsrEnv.Level())
	vc.mode = envRelease
}

// decodeNextBlock decodes the BRR block at brrAddr into the voice's
// sample window and advances brrAddr, handling the end/loop header
// flags of the block just finished.
func (vc *voice) decodeNextBlock(s *Synth) {
	hdr := decodeBRRHeader(s.ram[vc.brrAddr&0xFFFF])

	var block [9]byte
	for i := range block {
		block[i] = s.ram[(vc.brrAddr+i)&0xFFFF]
	}
	vc.decoded, vc.hist = decodeBRRBlock(block, vc.hist)
	vc.decodePos = 0

	if hdr.end {
		if hdr.loop {
			vc.brrAddr = vc.loopAddr
		} else {
			// End without loop: hardware enters release at max rate;
			// modeled as an immediate stop after this block drains.
			vc.brrAddr = -1
		}
	} else {
		vc.brrAddr += 9
	}
}

// nextSourceSample pulls one decoded sample, refilling from the next
// BRR block as needed. Returns false once a non-looping sample ends.
func (vc *voice) nextSourceSample(s *Synth) (int32, bool) {
	if vc.decodePos >= len(vc.decoded) {
		if vc.brrAddr < 0 {
			return 0, false
		}
		vc.decodeNextBlock(s)
	}
	out := vc.decoded[vc.decodePos]
	vc.decodePos++
	return out, true
}

// envelopeStep advances the voice's envelope by one output sample and
// returns the current amplitude in [0, adsr.MaxLevel], or false once
// the voice has fully released.
func (vc *voice) envelopeStep() (int32, bool) {
	switch vc.mode {
	case envAdsr:
		return int32(vc.adsrEnv.Advance()), true
	case envRelease:
		// Fixed hardware release slope: -8 per sample, linear.
		vc.level -= 8
		if vc.level <= 0 {
			vc.mode = envOff
			return 0, false
		}
		return vc.level, true
	default:
		return 0, false
	}
}

// sampleVoice produces one enveloped, volume-scaled output sample for
// voice v, or 0 if the voice is idle.
func (s *Synth) sampleVoice(v int) int32 {
	vc := &s.voices[v]
	if vc.mode == envOff {
		return 0
	}

	pitch := uint32(s.voiceReg(v, vPITCHL)) | uint32(s.voiceReg(v, vPITCHL+1))<<8
	pitch &= 0x3FFF

	vc.pitchCounter += pitch
	for vc.pitchCounter >= 0x1000 {
		vc.pitchCounter -= 0x1000
		src, ok := vc.nextSourceSample(s)
		if !ok {
			vc.mode = envOff
			return 0
		}
		vc.prevSample = vc.currSample
		vc.currSample = src
	}

	// Linear interpolation between the two most recent source samples,
	// in place of the hardware's 4-tap gaussian filter.
	frac := int32(vc.pitchCounter & 0xFFF)
	sample := vc.prevSample + (vc.currSample-vc.prevSample)*frac/0x1000

	env, alive := vc.envelopeStep()
	if !alive {
		return 0
	}
	sample = sample * env / (adsr.MaxLevel + 1)

	voll := int32(int8(s.voiceReg(v, vVOLL)))
	volr := int32(int8(s.voiceReg(v, vVOLR)))
	return sample * (voll + volr) / 2 / 128
}

// RunClocks advances the chip by nclk clocks, emitting one mono sample
// per 32 clocks into writeTo. Returns how many samples were written.
// The caller sizes writeTo generously; samples past its end are
// dropped (the run loop only passes a short buffer when it knows the
// mixing buffer is already satisfied).
func (s *Synth) RunClocks(nclk eventqueue.CycleT, writeTo []int16) uint32 {
	total := s.clockRemainder + nclk
	nsamp := total / tempo.ClocksPerSample
	s.clockRemainder = total % tempo.ClocksPerSample

	muted := s.regs[rFLG]&0x40 != 0
	mvoll := int32(int8(s.regs[rMVOLL]))
	mvolr := int32(int8(s.regs[rMVOLR]))

	var written uint32
	for i := eventqueue.CycleT(0); i < nsamp; i++ {
		var mix int32
		for v := 0; v < numVoices; v++ {
			mix += s.sampleVoice(v)
		}
		mix = mix * (mvoll + mvolr) / 2 / 128
		mix = clamp16(mix)
		if muted {
			mix = 0
		}
		if int(written) < len(writeTo) {
			writeTo[written] = int16(mix)
			written++
		}
	}
	return written
}
