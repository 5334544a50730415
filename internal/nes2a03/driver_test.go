package nes2a03

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exotracker/audio/internal/doc"
	"github.com/exotracker/audio/internal/regwrite"
)

func pulseTestDoc() *doc.Document {
	return &doc.Document{
		Chips: []doc.ChipKind{doc.Nes2A03},
		SequencerOpts: doc.SequencerOptions{
			TargetTempo:    120,
			SpcTimerPeriod: 68,
			TicksPerBeat:   48,
		},
		FrequencyTable: doc.EqualTemperament(440),
	}
}

func drainWrites(q *regwrite.Queue) []regwrite.Write {
	var out []regwrite.Write
	for {
		delay := q.PeekMut()
		if delay == nil {
			return out
		}
		*delay = 0
		out = append(out, q.Pop())
	}
}

func TestCalcPeriod(t *testing.T) {
	// A440: period = round(1789773 / (16 * 440)) - 1 = 253.
	assert.EqualValues(t, 253, calcPeriod(440))

	// Out-of-range frequencies clamp to the 11-bit timer.
	assert.EqualValues(t, 0x7FF, calcPeriod(1))
	assert.EqualValues(t, 0, calcPeriod(1e9))
}

func TestDriverTick_NoteOnProgramsTimerAndEnables(t *testing.T) {
	d := pulseTestDoc()
	dr := NewDriver(d)
	q := regwrite.New()

	note := 69 // A4
	events := [][]doc.RowEvent{{{Note: &note}}}
	dr.Tick(d, events, q)

	writes := drainWrites(q)
	require.Len(t, writes, 4)
	assert.Equal(t, regwrite.Write{Address: rPulseCtrl, Value: 0x80 | 0x30 | 15}, writes[0])
	assert.Equal(t, regwrite.Write{Address: rPulseLow, Value: 253}, writes[1])
	assert.Equal(t, regwrite.Write{Address: rPulseHigh, Value: 0}, writes[2])
	assert.Equal(t, regwrite.Write{Address: rApuStatus, Value: 0x01}, writes[3])
}

func TestDriverTick_SecondChannelUsesOffsetRegisters(t *testing.T) {
	d := pulseTestDoc()
	dr := NewDriver(d)
	q := regwrite.New()

	note := 69
	events := [][]doc.RowEvent{nil, {{Note: &note}}}
	dr.Tick(d, events, q)

	writes := drainWrites(q)
	require.Len(t, writes, 4)
	assert.EqualValues(t, 0x4004, writes[0].Address)
	assert.Equal(t, regwrite.Write{Address: rApuStatus, Value: 0x02}, writes[3])
}

func TestDriverTick_NoteCutDisablesChannel(t *testing.T) {
	d := pulseTestDoc()
	dr := NewDriver(d)
	q := regwrite.New()

	note := 69
	dr.Tick(d, [][]doc.RowEvent{{{Note: &note}}}, q)
	drainWrites(q)

	cut := doc.NoteCut
	dr.Tick(d, [][]doc.RowEvent{{{Note: &cut}}}, q)

	writes := drainWrites(q)
	require.Len(t, writes, 1)
	assert.Equal(t, regwrite.Write{Address: rApuStatus, Value: 0x00}, writes[0])
}

func TestDriverTick_EnableByteOnlyWrittenOnChange(t *testing.T) {
	d := pulseTestDoc()
	dr := NewDriver(d)
	q := regwrite.New()

	note := 69
	dr.Tick(d, [][]doc.RowEvent{{{Note: &note}}}, q)
	drainWrites(q)

	// An empty tick leaves the enable byte alone.
	dr.Tick(d, nil, q)
	assert.Empty(t, drainWrites(q))
}

func TestSynth_PulseProducesSquareWave(t *testing.T) {
	s := NewSynth()
	s.WriteMemory(regwrite.Write{Address: rApuStatus, Value: 0x01})
	s.WriteMemory(regwrite.Write{Address: rPulseCtrl, Value: 0x80 | 0x30 | 15})
	s.WriteMemory(regwrite.Write{Address: rPulseLow, Value: 253})
	s.WriteMemory(regwrite.Write{Address: rPulseHigh, Value: 0})

	buf := make([]int16, 400)
	written := s.RunClocks(400*32, buf)
	require.EqualValues(t, 400, written)

	var high, low bool
	for _, v := range buf {
		if v > 0 {
			high = true
		}
		if v < 0 {
			low = true
		}
	}
	assert.True(t, high, "square wave has a positive half")
	assert.True(t, low, "square wave has a negative half")
}

func TestSynth_DisabledChannelIsSilent(t *testing.T) {
	s := NewSynth()
	s.WriteMemory(regwrite.Write{Address: rPulseCtrl, Value: 0x80 | 0x30 | 15})
	s.WriteMemory(regwrite.Write{Address: rPulseLow, Value: 253})

	buf := make([]int16, 100)
	s.RunClocks(100*32, buf)
	for _, v := range buf {
		assert.EqualValues(t, 0, v)
	}
}
