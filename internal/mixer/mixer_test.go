package mixer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/exotracker/audio/internal/mixer"
)

func TestResample_IdentityRateIsPassthrough(t *testing.T) {
	b := mixer.New(32040, 32040)
	in := []int16{100, 200, 300, 400, 500}
	b.Push(in)

	out := make([]int16, 4)
	n := b.Resample(out)
	assert.Equal(t, 4, n)
	assert.Equal(t, []int16{100, 200, 300, 400}, out)
}

func TestResample_Downsampling(t *testing.T) {
	b := mixer.New(64000, 32000)
	in := make([]int16, 100)
	for i := range in {
		in[i] = int16(i)
	}
	b.Push(in)

	out := make([]int16, 10)
	n := b.Resample(out)
	assert.Equal(t, 10, n)
	for i := 1; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i], out[i-1])
	}
}

func TestAvailable_ZeroWhenNoInput(t *testing.T) {
	b := mixer.New(32040, 44100)
	assert.Equal(t, 0, b.Available())
}

func TestInputNeeded_CoversInterpolationLookahead(t *testing.T) {
	b := mixer.New(32040, 32040)

	// One extra input sample is always needed for interpolation.
	need := b.InputNeeded(10)
	assert.Equal(t, 11, need)

	in := make([]int16, need)
	b.Push(in)
	assert.Equal(t, 0, b.InputNeeded(10))

	out := make([]int16, 10)
	assert.Equal(t, 10, b.Resample(out), "after pushing InputNeeded samples, the full request drains")
}

func TestInputNeeded_ZeroForEmptyRequest(t *testing.T) {
	b := mixer.New(32040, 48000)
	assert.Equal(t, 0, b.InputNeeded(0))
}

func TestReset_ClearsState(t *testing.T) {
	b := mixer.New(32040, 32040)
	b.Push([]int16{1, 2, 3})
	b.Reset()
	assert.Equal(t, 0, b.Available())
}
