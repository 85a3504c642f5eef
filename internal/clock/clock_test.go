package clock

import (
	"testing"
	"time"
)

func TestFakeClockAdvance(t *testing.T) {
	start := time.Date(2024, 6, 7, 23, 30, 0, 0, time.UTC)
	c := NewFakeClock(start)

	c.Advance(time.Hour)

	want := time.Date(2024, 6, 8, 0, 30, 0, 0, time.UTC)
	if !c.Now().Equal(want) {
		t.Fatalf("expected %s, got %s", want, c.Now())
	}
}

func TestSystemClockReturnsUTC(t *testing.T) {
	if loc := NewSystemClock().Now().Location(); loc != time.UTC {
		t.Fatalf("expected UTC, got %s", loc)
	}
}
