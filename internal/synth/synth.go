// Package synth implements the overall synth: the top-level "render N
// samples" loop that owns every chip instance, coordinates ticks, and
// fills the host's output buffer to exactly the requested length.
package synth

import (
	"fmt"
	"log"

	"github.com/exotracker/audio/internal/chipinstance"
	"github.com/exotracker/audio/internal/doc"
	"github.com/exotracker/audio/internal/eventqueue"
	"github.com/exotracker/audio/internal/mixer"
	"github.com/exotracker/audio/internal/nes2a03"
	"github.com/exotracker/audio/internal/spc700"
	"github.com/exotracker/audio/internal/tempo"
	"github.com/exotracker/audio/internal/warning"
)

// Event ids for the outer loop's queue. EndOfCallback deliberately
// gets id 0: when a tick lands on the exact end of the output span,
// the tie resolves toward returning rather than re-ticking.
const (
	idEndOfCallback = 0
	idTick          = 1
)

// Options configures an OverallSynth beyond its constructor's
// positional arguments.
type Options struct {
	// Warnings receives live data-shape problems discovered while
	// driving chips. Nil discards them.
	Warnings *warning.Sink

	// Logger receives control-path diagnostics (degenerate tempo
	// configurations and the like). Defaults to log.Default(); hosts
	// and tests inject their own to capture or silence it. Render
	// itself never logs — it runs under a realtime deadline and
	// performs no I/O.
	Logger *log.Logger
}

// OverallSynth owns all chip instances and the mixing buffer, and runs
// the render loop. Render is called from the audio thread; every other
// method is a control call the host must make from its own thread only
// between renders (the document itself is snapshotted through a
// doc.Source, so document edits never need to wait for the audio
// thread — only these playback-control calls do).
type OverallSynth struct {
	stereoNchan int
	sampleRate  int
	source      doc.Source

	chips  []chipinstance.Instance
	events *eventqueue.Queue
	mix    *mixer.Buffer
	logger *log.Logger

	playing    bool
	tempoAccum uint32

	needReset     bool
	stopRequested bool
	reloadSamples bool

	// Scratch buffers reused across renders; grown on demand, never
	// shrunk, so the steady-state render path stays allocation-free.
	chipScratch []int16
	sumScratch  []int32
	pushScratch []int16
	monoScratch []int16
}

// New builds an OverallSynth over the document source's current chip
// list. stereoChannels is 1 or 2; Render fills interleaved frames.
func New(stereoChannels, sampleRate int, source doc.Source, options Options) *OverallSynth {
	d := source.CurrentDocument()

	s := &OverallSynth{
		stereoNchan: stereoChannels,
		sampleRate:  sampleRate,
		source:      source,
		events:      eventqueue.New(2),
		mix:         mixer.New(tempo.SamplesPerSIdeal, sampleRate),
		logger:      options.Logger,
		needReset:   true,
	}
	if s.logger == nil {
		s.logger = log.Default()
	}

	for i, kind := range d.Chips {
		switch kind {
		case doc.Spc700:
			s.chips = append(s.chips, spc700.NewInstance(d, i, options.Warnings))
		case doc.Nes2A03:
			s.chips = append(s.chips, nes2a03.NewInstance(d, i, options.Warnings))
		}
	}

	const typicalCallbackFrames = 1024
	s.chipScratch = make([]int16, typicalCallbackFrames*2)
	s.sumScratch = make([]int32, typicalCallbackFrames*2)
	s.pushScratch = make([]int16, typicalCallbackFrames*2)
	s.monoScratch = make([]int16, typicalCallbackFrames)

	s.events.SetTimeout(idTick, 0)
	return s
}

// Seek starts (or restarts) playback at the given timeline frame and
// beat. The chips are re-reset on the next tick so stale voice state
// never carries across a seek.
func (s *OverallSynth) Seek(frameIdx int, beatWithinFrame float64) {
	d := s.source.CurrentDocument()

	switch tempo.CalcSequencerRate(tempo.Options{
		TargetTempo:    d.SequencerOpts.TargetTempo,
		SpcTimerPeriod: d.SequencerOpts.SpcTimerPeriod,
		TicksPerBeat:   d.SequencerOpts.TicksPerBeat,
	}) {
	case 0:
		s.logger.Printf("synth: sequencer rate byte is 0; the sequencer will not advance")
	case 255:
		s.logger.Printf("synth: sequencer rate byte at ceiling; song may play slower than the target tempo")
	}

	for _, chip := range s.chips {
		chip.Seek(d, frameIdx, beatWithinFrame)
	}
	s.playing = true
	s.needReset = true
	// Force the first timer tick after the seek to also be a sequencer
	// tick, so beat-anchored events land at the seek point itself.
	s.tempoAccum = 256
}

// StopPlayback halts the sequencers; the drivers keep ticking so
// playing notes release naturally. The actual key-off writes are
// queued on the next tick, which is the only safe point to touch the
// register queues.
func (s *OverallSynth) StopPlayback() {
	s.playing = false
	s.stopRequested = true
}

// TempoChanged, DocEdited and TimelineModified forward the document
// mutation hooks to every chip's sequencers. All bounded-time.
func (s *OverallSynth) TempoChanged() {
	d := s.source.CurrentDocument()
	for _, chip := range s.chips {
		chip.TempoChanged(d)
	}
}

func (s *OverallSynth) DocEdited() {
	d := s.source.CurrentDocument()
	for _, chip := range s.chips {
		chip.DocEdited(d)
	}
}

func (s *OverallSynth) TimelineModified() {
	d := s.source.CurrentDocument()
	for _, chip := range s.chips {
		chip.TimelineModified(d)
	}
}

// ReloadSamples repacks sample memory on the next tick. Running voices
// are hard-stopped by the reload (addresses may have moved).
func (s *OverallSynth) ReloadSamples() {
	s.reloadSamples = true
}

// Render fills the whole output span with interleaved PCM and returns
// only when it is full. It never blocks, performs no I/O, and returns
// no error; internal invariant violations panic, since they indicate
// bugs rather than runtime conditions the caller could handle.
func (s *OverallSynth) Render(output []int16) {
	nFrames := len(output) / s.stereoNchan
	if nFrames == 0 {
		return
	}

	if len(s.chips) == 0 {
		for i := range output {
			output[i] = 0
		}
		return
	}

	d := s.source.CurrentDocument()
	written := 0

	for {
		written += s.drain(output, written, nFrames)

		needed := nFrames - written
		clocksNeeded := eventqueue.CycleT(s.mix.InputNeeded(needed)) * tempo.ClocksPerSample
		s.events.SetTimeout(idEndOfCallback, clocksNeeded)

		id, dclk := s.events.NextEvent()

		if dclk > 0 {
			s.runChips(dclk)
		}

		switch id {
		case idEndOfCallback:
			written += s.drain(output, written, nFrames)
			if written != nFrames {
				panic(fmt.Sprintf("synth: render underfilled: %d of %d frames", written, nFrames))
			}
			return

		case idTick:
			s.tick(d)
			clocksPerTick := s.chips[0].ClocksPerTick(d)
			if clocksPerTick == 0 {
				clocksPerTick = 1
			}
			s.events.SetTimeout(idTick, clocksPerTick)
		}
	}
}

// tick runs one timer tick across all chips: flush queues, apply any
// deferred control requests, then run either a sequencer+driver tick
// or a driver-only tick. The sequencer rate byte is accumulated in
// 256ths per timer fire, exactly like the hardware driver's tempo
// counter, so the ratio of sequencer ticks to timer ticks matches what
// the exported song would play at.
func (s *OverallSynth) tick(d *doc.Document) {
	seqTick := false
	if s.playing {
		s.tempoAccum += uint32(tempo.CalcSequencerRate(tempo.Options{
			TargetTempo:    d.SequencerOpts.TargetTempo,
			SpcTimerPeriod: d.SequencerOpts.SpcTimerPeriod,
			TicksPerBeat:   d.SequencerOpts.TicksPerBeat,
		}))
		if s.tempoAccum >= 256 {
			s.tempoAccum -= 256
			seqTick = true
		}
	}

	for _, chip := range s.chips {
		chip.FlushRegisterWrites()

		if s.needReset {
			chip.ResetState(d)
		}
		if s.reloadSamples && !s.needReset {
			chip.ReloadSamples(d)
		}
		if s.stopRequested {
			chip.StopPlayback()
		}

		if seqTick {
			chip.SequencerDriverTick(d)
		} else {
			chip.DriverTick(d)
		}
	}

	s.needReset = false
	s.reloadSamples = false
	s.stopRequested = false
}

// runChips advances every chip by dclk clocks, sums their output, and
// pushes the mixed nominal-rate samples into the resampling buffer.
func (s *OverallSynth) runChips(dclk eventqueue.CycleT) {
	maxSamples := int(dclk/tempo.ClocksPerSample) + 2
	if len(s.chipScratch) < maxSamples {
		s.chipScratch = make([]int16, maxSamples)
		s.sumScratch = make([]int32, maxSamples)
		s.pushScratch = make([]int16, maxSamples)
	}

	var nsamp uint32
	for i, chip := range s.chips {
		n := chip.RunChipFor(dclk, s.chipScratch[:maxSamples])
		if i == 0 {
			nsamp = n
			for j := uint32(0); j < n; j++ {
				s.sumScratch[j] = int32(s.chipScratch[j])
			}
		} else {
			if n != nsamp {
				panic("synth: chips produced mismatched sample counts")
			}
			for j := uint32(0); j < n; j++ {
				s.sumScratch[j] += int32(s.chipScratch[j])
			}
		}
	}

	for j := uint32(0); j < nsamp; j++ {
		v := s.sumScratch[j]
		if v > 0x7FFF {
			v = 0x7FFF
		}
		if v < -0x8000 {
			v = -0x8000
		}
		s.pushScratch[j] = int16(v)
	}
	s.mix.Push(s.pushScratch[:nsamp])
}

// drain moves as many resampled frames as possible from the mixing
// buffer into output starting at frame writtenFrames, duplicating the
// mono mix across stereo channels, and returns the frame count moved.
func (s *OverallSynth) drain(output []int16, writtenFrames, nFrames int) int {
	want := nFrames - writtenFrames
	if want <= 0 {
		return 0
	}

	if len(s.monoScratch) < want {
		s.monoScratch = make([]int16, want)
	}
	got := s.mix.Resample(s.monoScratch[:want])

	base := writtenFrames * s.stereoNchan
	for i := 0; i < got; i++ {
		for c := 0; c < s.stereoNchan; c++ {
			output[base+i*s.stereoNchan+c] = s.monoScratch[i]
		}
	}
	return got
}
