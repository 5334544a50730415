// Package sequencer walks one channel's timeline across frame
// boundaries, producing the list of row-events anchored to "now" on
// each tick.
//
// The flattened event cache is rebuilt from scratch on every tick
// rather than incrementally maintained (see Design Notes: "Rebuilding
// event lists on edits" — acceptable given how small a timeline frame
// actually is, at the cost of O(events-per-frame) work per tick).
// Because of that, the tempo/doc/timeline mutation hooks below are
// much simpler than the scheme they are modeled on: there is no
// incremental cache to invalidate, only the position counters.
package sequencer

import (
	"math"
	"sort"

	"github.com/exotracker/audio/internal/doc"
	"github.com/exotracker/audio/internal/warning"
)

// TickT is a tick count, signed so intermediate "tick minus now"
// arithmetic can go negative (an event anchored before the previous
// frame's boundary, viewed relative to the current frame).
type TickT int64

type tickAnchor int

const (
	anchorBegin tickAnchor = iota
	anchorEnd
)

type relativeTick struct {
	anchor        tickAnchor
	nowMinusAnchor TickT
}

func (r relativeTick) nowMinusBegin(endMinusBegin TickT) TickT {
	if r.anchor == anchorEnd {
		return r.nowMinusAnchor + endMinusBegin
	}
	return r.nowMinusAnchor
}

type timedEvent struct {
	beat float64
	ev   doc.RowEvent
}

type relativePattern struct {
	events        []timedEvent
	patternNTick  TickT
	nowMinusBegin TickT
}

type delayEvent struct {
	tickOrDelay TickT
	event       doc.RowEvent
}

// flattenCellEvents collects a channel's events for one timeline
// frame into beat-sorted order. Each Block's events are offset by the
// block's BeginBeat, since a Block positions a (possibly shared,
// looped) Pattern within the frame.
func flattenCellEvents(cell doc.Cell) []timedEvent {
	var out []timedEvent
	for _, block := range cell.Blocks {
		for _, ev := range block.Pattern.Events {
			out = append(out, timedEvent{beat: block.BeginBeat + ev.AnchorBeat, ev: ev})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].beat < out[j].beat })
	return out
}

func timeToTicks(te timedEvent, ticksPerBeat float64) TickT {
	return TickT(math.Round(te.beat*ticksPerBeat)) + TickT(te.ev.TickOffset)
}

func frameNTicks(frame doc.TimelineFrame, ticksPerBeat float64) TickT {
	return TickT(math.Round(frame.NBeats * ticksPerBeat))
}

func calcNextIndex(nFrames, frameIdx int) int {
	next := frameIdx + 1
	if next >= nFrames {
		return 0
	}
	return next
}

// makeTickTimesMonotonic enforces "no event occurs later than events
// following it": walking in reverse, each tick is clamped down to the
// minimum of itself and everything after it. Events pushed past a
// later event pile up at that later event's time. Returns whether any
// tick was actually moved (used to surface a MisorderedEvent warning).
func makeTickTimesMonotonic(events []delayEvent) bool {
	moved := false
	latest := TickT(math.MaxInt64)
	for i := len(events) - 1; i >= 0; i-- {
		t := events[i].tickOrDelay
		if t > latest {
			t = latest
			moved = true
		}
		events[i].tickOrDelay = t
		latest = t
	}
	return moved
}

// convertTickToDelay turns an absolute-tick list (weakly increasing)
// into "delay from previous" form in place, returning the index of
// the first element whose original tick was >= now — everything
// before that index is considered already past and its output value
// is unspecified (the caller never reads those slots again).
func convertTickToDelay(now TickT, events []delayEvent) int {
	const unset = -1
	retI := unset
	var prev TickT

	for i := range events {
		input := events[i].tickOrDelay
		switch {
		case retI == unset && input < now:
			// leave unspecified
		case retI == unset && input >= now:
			retI = i
			events[i].tickOrDelay = input - now
			prev = input
		default:
			events[i].tickOrDelay = input - prev
			prev = input
		}
	}

	if retI == unset {
		return len(events)
	}
	return retI
}

// ChannelSequencer walks one chip/channel's timeline, tick by tick.
type ChannelSequencer struct {
	prevFrame int // -1 if none
	currFrame int
	nowTick   TickT // ticks elapsed since the start of currFrame

	lastTicksPerBeat float64 // cached for TempoChanged's "keep position" math

	cache struct {
		events       []delayEvent
		nextEventIdx int
	}

	Warnings *warning.Sink
}

// NewChannelSequencer starts playback at the first timeline frame.
func NewChannelSequencer() *ChannelSequencer {
	return &ChannelSequencer{prevFrame: -1, currFrame: 0}
}

func (s *ChannelSequencer) parsePattern(
	d *doc.Document, chipIdx, chanIdx, frameIdx int, ticksPerBeat float64, tickRel relativeTick,
) relativePattern {
	frame := d.Timeline[frameIdx]
	cell := frame.Channels[chipIdx][chanIdx]
	nTick := frameNTicks(frame, ticksPerBeat)
	return relativePattern{
		events:        flattenCellEvents(cell),
		patternNTick:  nTick,
		nowMinusBegin: tickRel.nowMinusBegin(nTick),
	}
}

// NextTick advances the sequencer by one tick and returns the events
// (usually 0 or 1, occasionally more for a malformed document) whose
// anchor falls on this tick.
func (s *ChannelSequencer) NextTick(d *doc.Document, chipIdx, chanIdx int) []doc.RowEvent {
	nFrames := len(d.Timeline)
	ticksPerBeat := d.SequencerOpts.TicksPerBeat
	s.lastTicksPerBeat = ticksPerBeat
	nextFrame := calcNextIndex(nFrames, s.currFrame)

	var patterns []relativePattern
	if s.prevFrame >= 0 {
		patterns = append(patterns, s.parsePattern(
			d, chipIdx, chanIdx, s.prevFrame, ticksPerBeat,
			relativeTick{anchor: anchorEnd, nowMinusAnchor: s.nowTick},
		))
	}
	curr := s.parsePattern(
		d, chipIdx, chanIdx, s.currFrame, ticksPerBeat,
		relativeTick{anchor: anchorBegin, nowMinusAnchor: s.nowTick},
	)
	patterns = append(patterns, curr)
	patternNTick := curr.patternNTick

	patterns = append(patterns, s.parsePattern(
		d, chipIdx, chanIdx, nextFrame, ticksPerBeat,
		relativeTick{anchor: anchorBegin, nowMinusAnchor: s.nowTick - patternNTick},
	))

	// Flatten all patterns into one absolute-tick list (relative to "now" = 0).
	s.cache.events = s.cache.events[:0]
	for _, p := range patterns {
		for _, te := range p.events {
			tick := timeToTicks(te, ticksPerBeat) - p.nowMinusBegin
			s.cache.events = append(s.cache.events, delayEvent{tickOrDelay: tick, event: te.ev})
		}
	}

	if makeTickTimesMonotonic(s.cache.events) {
		s.Warnings.Push(warning.Warning{
			Kind:    warning.MisorderedEvent,
			ChipIdx: chipIdx,
			Chan:    chanIdx,
			Detail:  "events pile up at a later event's time",
		})
	}
	s.cache.nextEventIdx = convertTickToDelay(0, s.cache.events)

	pending := s.cache.events[s.cache.nextEventIdx:]

	var eventsThisTick []doc.RowEvent
	for i := range pending {
		if pending[i].tickOrDelay == 0 {
			eventsThisTick = append(eventsThisTick, pending[i].event)
			s.cache.nextEventIdx++
		} else {
			pending[i].tickOrDelay--
			break
		}
	}

	s.nowTick++
	if s.nowTick >= patternNTick {
		s.nowTick = 0
		s.prevFrame = s.currFrame
		s.currFrame = nextFrame
	}

	return eventsThisTick
}

// Seek jumps to an arbitrary frame/beat position, clearing cached
// "previous frame" context (there is no well-defined previous frame
// to reference after an arbitrary jump).
func (s *ChannelSequencer) Seek(d *doc.Document, frameIdx int, beatWithinFrame float64) {
	if frameIdx < 0 {
		frameIdx = 0
	}
	if frameIdx >= len(d.Timeline) {
		frameIdx = len(d.Timeline) - 1
	}
	s.prevFrame = -1
	s.currFrame = frameIdx
	s.nowTick = TickT(math.Round(beatWithinFrame * d.SequencerOpts.TicksPerBeat))
	s.lastTicksPerBeat = d.SequencerOpts.TicksPerBeat
}

// TempoChanged keeps the sequencer's position in the event list (the
// current frame) but recomputes nowTick's tick count, since ticks per
// beat changed meaning: the beat position is preserved, not the raw
// tick count.
func (s *ChannelSequencer) TempoChanged(d *doc.Document) {
	if s.lastTicksPerBeat == 0 {
		s.lastTicksPerBeat = d.SequencerOpts.TicksPerBeat
		return
	}
	beat := float64(s.nowTick) / s.lastTicksPerBeat
	s.nowTick = TickT(math.Round(beat * d.SequencerOpts.TicksPerBeat))
	s.lastTicksPerBeat = d.SequencerOpts.TicksPerBeat
}

// DocEdited assumes tempo is unchanged but event content may have;
// since events are reloaded from the document on every tick, there is
// nothing here to invalidate beyond what NextTick already redoes.
func (s *ChannelSequencer) DocEdited(d *doc.Document) {}

// TimelineModified clamps the cursor in-bounds (frames may have been
// removed) and drops both the previous-frame reference and tick
// position, since row durations may have changed under us.
func (s *ChannelSequencer) TimelineModified(d *doc.Document) {
	if len(d.Timeline) == 0 {
		s.currFrame = 0
	} else if s.currFrame >= len(d.Timeline) {
		s.currFrame = len(d.Timeline) - 1
	}
	s.prevFrame = -1
	s.nowTick = 0
}
