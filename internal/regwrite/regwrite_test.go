package regwrite_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exotracker/audio/internal/regwrite"
)

func TestPushAndPop_PreservesOrderAndDelay(t *testing.T) {
	q := regwrite.New()
	q.AddTime(5)
	q.PushWrite(regwrite.Write{Address: 0x10, Value: 1})
	q.AddTime(3)
	q.PushWrite(regwrite.Write{Address: 0x11, Value: 2})

	require.Equal(t, 2, q.NumUnread())

	delay := q.PeekMut()
	require.NotNil(t, delay)
	assert.EqualValues(t, 5, *delay)
	*delay = 0
	w := q.Pop()
	assert.Equal(t, regwrite.Write{Address: 0x10, Value: 1}, w)

	delay = q.PeekMut()
	require.NotNil(t, delay)
	assert.EqualValues(t, 3, *delay)
	*delay = 0
	w = q.Pop()
	assert.Equal(t, regwrite.Write{Address: 0x11, Value: 2}, w)

	assert.Equal(t, 0, q.NumUnread())
	assert.Nil(t, q.PeekMut())
}

func TestPop_PanicsIfDelayNotElapsed(t *testing.T) {
	q := regwrite.New()
	q.AddTime(5)
	q.PushWrite(regwrite.Write{Address: 0x10, Value: 1})

	assert.Panics(t, func() {
		q.Pop()
	})
}

func TestClear_ResetsQueue(t *testing.T) {
	q := regwrite.New()
	q.PushWrite(regwrite.Write{Address: 0x10, Value: 1})
	q.Clear()

	assert.Equal(t, 0, q.NumUnread())
	assert.Nil(t, q.PeekMut())
}
