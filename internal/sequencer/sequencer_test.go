package sequencer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exotracker/audio/internal/doc"
	"github.com/exotracker/audio/internal/sequencer"
)

func noteEvent(beat float64, note int) doc.RowEvent {
	n := note
	return doc.RowEvent{AnchorBeat: beat, Note: &n}
}

func singleChannelDoc(ticksPerBeat float64, frames ...doc.TimelineFrame) *doc.Document {
	return &doc.Document{
		Chips:         []doc.ChipKind{doc.Spc700},
		Timeline:      frames,
		SequencerOpts: doc.SequencerOptions{TicksPerBeat: ticksPerBeat, TargetTempo: 120, SpcTimerPeriod: 68},
	}
}

func cellWithEvents(events ...doc.RowEvent) doc.Cell {
	return doc.Cell{Blocks: []doc.Block{{BeginBeat: 0, EndBeat: 4, Pattern: doc.Pattern{Events: events}}}}
}

func TestNextTick_EmitsEventOnItsTick(t *testing.T) {
	frame := doc.TimelineFrame{
		NBeats:   4,
		Channels: [][]doc.Cell{{cellWithEvents(noteEvent(0, 60), noteEvent(2, 64))}},
	}
	d := singleChannelDoc(4, frame)
	seq := sequencer.NewChannelSequencer()

	var allEvents [][]doc.RowEvent
	for i := 0; i < 16; i++ {
		allEvents = append(allEvents, seq.NextTick(d, 0, 0))
	}

	require.Len(t, allEvents[0], 1)
	assert.Equal(t, 60, *allEvents[0][0].Note)

	require.Len(t, allEvents[8], 1)
	assert.Equal(t, 64, *allEvents[8][0].Note)

	for i, evs := range allEvents {
		if i != 0 && i != 8 {
			assert.Empty(t, evs, "tick %d should be empty", i)
		}
	}
}

func TestNextTick_WrapsAroundToFirstFrame(t *testing.T) {
	frameA := doc.TimelineFrame{
		NBeats:   1,
		Channels: [][]doc.Cell{{cellWithEvents(noteEvent(0, 60))}},
	}
	frameB := doc.TimelineFrame{
		NBeats:   1,
		Channels: [][]doc.Cell{{cellWithEvents(noteEvent(0, 67))}},
	}
	d := singleChannelDoc(2, frameA, frameB)
	seq := sequencer.NewChannelSequencer()

	var notes []int
	for i := 0; i < 8; i++ {
		evs := seq.NextTick(d, 0, 0)
		for _, e := range evs {
			notes = append(notes, *e.Note)
		}
	}

	assert.Equal(t, []int{60, 67, 60, 67}, notes)
}

func TestSeek_ClampsOutOfRangeFrame(t *testing.T) {
	frame := doc.TimelineFrame{NBeats: 4, Channels: [][]doc.Cell{{cellWithEvents()}}}
	d := singleChannelDoc(4, frame)
	seq := sequencer.NewChannelSequencer()

	assert.NotPanics(t, func() {
		seq.Seek(d, 99, 0)
	})
}
