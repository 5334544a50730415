package adsr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exotracker/audio/internal/adsr"
)

func TestSimulate_FirstPointIsZero(t *testing.T) {
	pts := adsr.Simulate(adsr.Params{Attack: 0xF, Decay: 0, SustainLvl: 7, Decay2: 0}, 1000)
	require.NotEmpty(t, pts)
	assert.EqualValues(t, 0, pts[0].Time)
	assert.EqualValues(t, 0, pts[0].Level)
}

func TestSimulate_FastAttackInfiniteSustainSettlesNearMax(t *testing.T) {
	pts := adsr.Simulate(adsr.Params{Attack: 0xF, Decay: 0, SustainLvl: 7, Decay2: 0}, 2000)
	require.NotEmpty(t, pts)
	last := pts[len(pts)-1]
	assert.GreaterOrEqual(t, last.Level, uint32(0x7F0))
	assert.LessOrEqual(t, last.Level, uint32(adsr.MaxLevel))
}

func TestSimulate_FastReleaseReachesZero(t *testing.T) {
	pts := adsr.Simulate(adsr.Params{Attack: 0, Decay: 0, SustainLvl: 0, Decay2: 1}, 1_000_000)
	require.NotEmpty(t, pts)
	last := pts[len(pts)-1]
	assert.EqualValues(t, 0, last.Level)
}

func TestSimulate_NonIncreasingAfterAttackPeak(t *testing.T) {
	pts := adsr.Simulate(adsr.Params{Attack: 5, Decay: 2, SustainLvl: 3, Decay2: 5}, 5000)
	peakIdx := 0
	for i, p := range pts {
		if p.Level > pts[peakIdx].Level {
			peakIdx = i
		}
	}
	for i := peakIdx + 1; i < len(pts); i++ {
		assert.LessOrEqual(t, pts[i].Level, pts[peakIdx].Level)
	}
}

func TestSimulate_LastPointAtOrPastEndTime(t *testing.T) {
	const end = 4000
	pts := adsr.Simulate(adsr.Params{Attack: 8, Decay: 4, SustainLvl: 5, Decay2: 10}, end)
	last := pts[len(pts)-1]
	assert.GreaterOrEqual(t, last.Time, uint32(end))
}

func TestRunner_AdvanceClimbsThenReleases(t *testing.T) {
	r := adsr.NewRunner(adsr.Params{Attack: 0xF, Decay: 0, SustainLvl: 7, Decay2: 0})
	var last uint32
	for i := 0; i < 2000; i++ {
		last = r.Advance()
	}
	assert.GreaterOrEqual(t, last, uint32(0x7F0))

	r.Release()
	for i := 0; i < 200; i++ {
		r.Advance()
	}
	assert.LessOrEqual(t, r.Level(), last)
}
