// Package mixer resamples the chips' raw, unfiltered audio (produced
// at the nominal 32040 Hz S-DSP rate, per tempo.SamplesPerSIdeal) into
// PCM at the host's requested output rate.
//
// A full Blargg-style band-limited synthesis buffer (referenced by
// the original project's blip_buffer_gui demo) reconstructs a
// continuous band-limited waveform from sparse amplitude-change
// events and resamples it with zero aliasing. This module instead
// resamples with linear interpolation between nominal-rate samples —
// simpler, allocation-free, and sufficient for a tracker's monitoring
// output; true band-limited synthesis is left as a documented
// simplification (see DESIGN.md).
package mixer

// Buffer accumulates raw nominal-rate samples pushed by the chips and
// lets the host drain resampled output at an arbitrary target rate.
// Not safe for concurrent use; owned exclusively by OverallSynth.
type Buffer struct {
	nominalRate int
	outputRate  int

	pending []int32 // raw nominal-rate samples not yet resampled (mono sum across chips)

	// Resampling state: position within pending, in nominal-rate sample
	// units, as a fixed-point value with fracBits fractional bits.
	pos uint64
}

const fracBits = 16
const fracOne = 1 << fracBits

// New creates a buffer resampling from nominalRate to outputRate.
func New(nominalRate, outputRate int) *Buffer {
	return &Buffer{nominalRate: nominalRate, outputRate: outputRate}
}

// Push appends nominal-rate samples (already mixed across chips) to
// the pending queue, to be drained by Resample.
func (b *Buffer) Push(samples []int16) {
	for _, s := range samples {
		b.pending = append(b.pending, int32(s))
	}
}

// step is how far b.pos advances (in fixed-point nominal-rate sample
// units) per output sample.
func (b *Buffer) step() uint64 {
	return uint64(b.nominalRate) * fracOne / uint64(b.outputRate)
}

// Available reports how many output samples can currently be drained
// without running past the end of the pending nominal-rate samples.
func (b *Buffer) Available() int {
	step := b.step()
	if step == 0 {
		return 0
	}
	lastIdx := uint64(len(b.pending)-1) << fracBits
	if len(b.pending) == 0 || b.pos+step > lastIdx {
		return 0
	}
	return int((lastIdx - b.pos) / step)
}

// InputNeeded reports how many more nominal-rate input samples must be
// pushed before nOut output samples can be drained. Zero means the
// pending queue already covers the request. The top-level render loop
// converts this to a clock count and schedules its end-of-callback
// event from it, recomputing after every tick (the conversion is exact
// only for the remaining span, mirroring how blip-buffer clients must
// re-count clocks for large sample counts).
func (b *Buffer) InputNeeded(nOut int) int {
	if nOut <= 0 {
		return 0
	}
	lastPos := b.pos + uint64(nOut-1)*b.step()
	needLen := int(lastPos>>fracBits) + 2
	if n := needLen - len(b.pending); n > 0 {
		return n
	}
	return 0
}

// Resample drains up to len(out) linearly-interpolated output samples
// into out, returning how many were written. It stops early (never
// blocks) when the pending input runs out; after pushing the
// InputNeeded count for len(out), it always fills out completely.
func (b *Buffer) Resample(out []int16) int {
	step := b.step()
	n := 0
	for n < len(out) {
		idx := b.pos >> fracBits
		frac := b.pos & (fracOne - 1)
		if int(idx)+1 >= len(b.pending) {
			break
		}
		a := b.pending[idx]
		c := b.pending[idx+1]
		interp := a + (c-a)*int32(frac)/fracOne
		out[n] = int16(interp)
		n++
		b.pos += step
	}
	b.compact()
	return n
}

// compact drops fully-consumed nominal-rate samples from the front of
// pending, to keep the slice from growing without bound across a long
// render.
func (b *Buffer) compact() {
	consumed := int(b.pos >> fracBits)
	if consumed == 0 {
		return
	}
	if consumed > len(b.pending) {
		consumed = len(b.pending)
	}
	b.pending = append(b.pending[:0], b.pending[consumed:]...)
	b.pos -= uint64(consumed) << fracBits
}

// Reset drops all pending samples and resets the resampling phase;
// used when the host seeks or reloads samples mid-playback.
func (b *Buffer) Reset() {
	b.pending = b.pending[:0]
	b.pos = 0
}
