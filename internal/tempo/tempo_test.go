package tempo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/exotracker/audio/internal/tempo"
)

func TestCalcClocksPerTimer(t *testing.T) {
	assert.EqualValues(t, 128*68, tempo.CalcClocksPerTimer(68))
}

func TestCalcSequencerRate_Clamped(t *testing.T) {
	rate := tempo.CalcSequencerRate(tempo.Options{
		TargetTempo:    999,
		SpcTimerPeriod: 68,
		TicksPerBeat:   48,
	})
	assert.EqualValues(t, 255, rate)
}

func TestCalcSequencerRate_ZeroTempoYieldsZeroRate(t *testing.T) {
	rate := tempo.CalcSequencerRate(tempo.Options{
		TargetTempo:    0,
		SpcTimerPeriod: 68,
		TicksPerBeat:   4,
	})
	assert.EqualValues(t, 0, rate)
}

func TestCalcSequencerRate_TypicalValueInRange(t *testing.T) {
	rate := tempo.CalcSequencerRate(tempo.Options{
		TargetTempo:    150,
		SpcTimerPeriod: 68,
		TicksPerBeat:   48,
	})
	assert.Greater(t, rate, uint8(0))
	assert.LessOrEqual(t, rate, uint8(255))
}
