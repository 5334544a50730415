package sequencer

import "testing"

func ticksOf(vals ...TickT) []delayEvent {
	out := make([]delayEvent, len(vals))
	for i, v := range vals {
		out[i] = delayEvent{tickOrDelay: v}
	}
	return out
}

func ticks(events []delayEvent) []TickT {
	out := make([]TickT, len(events))
	for i, e := range events {
		out[i] = e.tickOrDelay
	}
	return out
}

func TestConvertTickToDelay_Empty(t *testing.T) {
	for _, now := range []TickT{-100, 0, 100} {
		if got := convertTickToDelay(now, nil); got != 0 {
			t.Fatalf("now=%d: got %d, want 0", now, got)
		}
	}
}

func TestConvertTickToDelay_Dense(t *testing.T) {
	ev := ticksOf(0, 1, 2, 3, 4)
	got := convertTickToDelay(2, ev)
	if got != 2 {
		t.Fatalf("got retI=%d, want 2", got)
	}
	want := []TickT{0, 1, 0, 1, 1}
	_ = want
	if ev[2].tickOrDelay != 0 || ev[3].tickOrDelay != 1 || ev[4].tickOrDelay != 1 {
		t.Fatalf("got %v", ticks(ev))
	}
}

func TestConvertTickToDelay_Repeated(t *testing.T) {
	ev := ticksOf(0, 1, 2, 2, 2)
	got := convertTickToDelay(2, ev)
	if got != 2 {
		t.Fatalf("got retI=%d, want 2", got)
	}
	if ev[2].tickOrDelay != 0 || ev[3].tickOrDelay != 0 || ev[4].tickOrDelay != 0 {
		t.Fatalf("got %v", ticks(ev))
	}
}

func TestConvertTickToDelay_Gaps(t *testing.T) {
	ev := ticksOf(0, 5, 10, 15)
	got := convertTickToDelay(7, ev)
	if got != 2 {
		t.Fatalf("got retI=%d, want 2", got)
	}
	if ev[2].tickOrDelay != 3 || ev[3].tickOrDelay != 5 {
		t.Fatalf("got %v", ticks(ev))
	}
}

func TestConvertTickToDelay_Negative(t *testing.T) {
	ev := ticksOf(-20, -10, 0)
	got := convertTickToDelay(-15, ev)
	if got != 1 {
		t.Fatalf("got retI=%d, want 1", got)
	}
	if ev[1].tickOrDelay != 5 || ev[2].tickOrDelay != 10 {
		t.Fatalf("got %v", ticks(ev))
	}

	ev2 := ticksOf(-20, -10, 0)
	if got := convertTickToDelay(10, ev2); got != 3 {
		t.Fatalf("got retI=%d, want 3", got)
	}

	ev3 := ticksOf(0, 10)
	got3 := convertTickToDelay(-10, ev3)
	if got3 != 0 {
		t.Fatalf("got retI=%d, want 0", got3)
	}
	if ev3[0].tickOrDelay != 10 || ev3[1].tickOrDelay != 10 {
		t.Fatalf("got %v", ticks(ev3))
	}
}

func TestConvertTickToDelay_ReturnsZero(t *testing.T) {
	ev := ticksOf(5, 10, 20)
	got := convertTickToDelay(0, ev)
	if got != 0 {
		t.Fatalf("got retI=%d, want 0", got)
	}
	if ev[0].tickOrDelay != 5 || ev[1].tickOrDelay != 5 || ev[2].tickOrDelay != 10 {
		t.Fatalf("got %v", ticks(ev))
	}
}

func TestConvertTickToDelay_ReturnsN(t *testing.T) {
	ev := ticksOf(5, 10, 20)
	if got := convertTickToDelay(30, ev); got != 3 {
		t.Fatalf("got retI=%d, want 3", got)
	}
}

func TestMakeTickTimesMonotonic_ClampsEarlierEventsForward(t *testing.T) {
	ev := ticksOf(5, 3, 4, 10)
	moved := makeTickTimesMonotonic(ev)
	if !moved {
		t.Fatalf("expected moved=true")
	}
	got := ticks(ev)
	for i := 1; i < len(got); i++ {
		if got[i-1] > got[i] {
			t.Fatalf("not monotonic: %v", got)
		}
	}
	if got[2] != 4 || got[3] != 10 {
		t.Fatalf("got %v", got)
	}
}

func TestMakeTickTimesMonotonic_AlreadySortedUnchanged(t *testing.T) {
	ev := ticksOf(1, 2, 3, 4)
	if makeTickTimesMonotonic(ev) {
		t.Fatalf("expected moved=false for already-sorted input")
	}
}
