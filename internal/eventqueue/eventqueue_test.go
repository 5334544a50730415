package eventqueue_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exotracker/audio/internal/eventqueue"
)

func TestNextEvent_PicksMinimum(t *testing.T) {
	q := eventqueue.New(4)
	q.SetTimeout(0, 100)
	q.SetTimeout(1, 50)
	q.SetTimeout(2, 75)

	id, elapsed := q.NextEvent()
	require.Equal(t, 1, id)
	require.EqualValues(t, 50, elapsed)
}

func TestNextEvent_TieBreaksOnSmallestID(t *testing.T) {
	q := eventqueue.New(3)
	q.SetTimeout(2, 10)
	q.SetTimeout(0, 10)
	q.SetTimeout(1, 10)

	id, elapsed := q.NextEvent()
	assert.Equal(t, 0, id)
	assert.EqualValues(t, 10, elapsed)
}

func TestNextEvent_DeschedulesAndAdvancesOthers(t *testing.T) {
	q := eventqueue.New(3)
	q.SetTimeout(0, 30)
	q.SetTimeout(1, 10)
	q.SetTimeout(2, 20)

	id, _ := q.NextEvent()
	require.Equal(t, 1, id)

	assert.EqualValues(t, eventqueue.Never, q.GetTimeUntil(1))
	assert.EqualValues(t, 20, q.GetTimeUntil(0))
	assert.EqualValues(t, 10, q.GetTimeUntil(2))
}

func TestNextEvent_UnscheduledSlotsStayNever(t *testing.T) {
	q := eventqueue.New(2)
	q.SetTimeout(0, 5)

	id, elapsed := q.NextEvent()
	assert.Equal(t, 0, id)
	assert.EqualValues(t, 5, elapsed)
	assert.EqualValues(t, eventqueue.Never, q.GetTimeUntil(1))
}

func TestSetTimeout_OverwritesPendingSchedule(t *testing.T) {
	q := eventqueue.New(2)
	q.SetTimeout(0, 100)
	q.SetTimeout(0, 5)

	id, elapsed := q.NextEvent()
	assert.Equal(t, 0, id)
	assert.EqualValues(t, 5, elapsed)
}

func TestReset_ClearsAllSlots(t *testing.T) {
	q := eventqueue.New(3)
	q.SetTimeout(0, 5)
	q.SetTimeout(1, 10)
	q.Reset()

	for i := 0; i < 3; i++ {
		assert.EqualValues(t, eventqueue.Never, q.GetTimeUntil(i))
	}
}
