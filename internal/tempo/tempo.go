// Package tempo translates musical tempo/ticks-per-beat/timer-period
// triples into the hardware timer-rate byte the S-DSP driver actually
// programs, and fixes the nominal clock rates the whole core measures
// time against.
package tempo

// SamplesPerSIdeal is the nominal sampling rate used for tuning tables
// and tempo math. Changing the emulated output sample rate must never
// change how the driver computes pitches and timers, so this constant
// stays fixed regardless of what rate OverallSynth.Render targets.
const SamplesPerSIdeal = 32040

// ClocksPerSample: S-DSP output runs at ~32 kHz, the internal clock at
// ~1024 kHz — 32 clocks per sample.
const ClocksPerSample = 32

// ClocksPerSIdeal is the nominal clock rate the whole core's timing is
// derived from.
const ClocksPerSIdeal = ClocksPerSample * SamplesPerSIdeal

// ClocksPerTwoSamples is two nominal samples' worth of clocks; the
// S-DSP driver waits this long after keying off every voice on stop.
const ClocksPerTwoSamples = 64

// clocksPerPhase: S-SMP timers 0 and 1 run at ~8 kHz, 1/128th the SPC
// clock.
const clocksPerPhase = 128

// CalcClocksPerTimer converts an S-SMP timer period (a byte the
// driver programs into hardware) into chip clocks per timer tick.
func CalcClocksPerTimer(spcTimerPeriod uint32) uint32 {
	return clocksPerPhase * spcTimerPeriod
}

// timerBaseFreq is slightly above 8000 Hz: at the nominal 32040 Hz
// sample rate this works out to 8010 Hz.
const timerBaseFreq = float64(ClocksPerSIdeal) / clocksPerPhase

// Options mirrors doc.SequencerOptions' three tempo-relevant fields,
// kept here rather than importing doc to avoid a dependency cycle
// (doc does not need to know how tempo math works).
type Options struct {
	TargetTempo    float64
	SpcTimerPeriod uint32
	TicksPerBeat   float64
}

// CalcSequencerRate computes the S-SMP timer-rate byte that drives the
// sequencer at the requested tempo. A rate of 0 means the sequencer
// never advances (the driver still ticks normally); rates are clamped
// to [0, 255], since overly aggressive tempo/ticks-per-beat
// combinations can demand a rate above what the byte can hold — there
// is no better fallback than clamping and accepting the song plays
// too slowly.
func CalcSequencerRate(opts Options) uint8 {
	return calcSequencerRate(opts.TargetTempo, float64(opts.SpcTimerPeriod), opts.TicksPerBeat)
}

func calcSequencerRate(targetTempo, spcTimerPeriod, ticksPerBeat float64) uint8 {
	rate := spcTimerPeriod * ticksPerBeat * 256. / 60. / timerBaseFreq * targetTempo
	if rate < 0 {
		rate = 0
	}
	if rate > 255 {
		rate = 255
	}
	return uint8(rate + 0.5)
}
