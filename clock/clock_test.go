package clock

import (
	"testing"
	"time"
)

func TestStepping(t *testing.T) {
	t1 := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Second)
	c := NewStepping(t1, t2)

	for i, want := range []time.Time{t1, t2, t2, t2} {
		if got := c.Now(); !got.Equal(want) {
			t.Errorf("call %d: want %v got %v", i, want, got)
		}
	}

	empty := NewStepping()
	if got := empty.Now(); got.Unix() != 0 {
		t.Errorf("want the epoch got %v", got)
	}
}

func TestStopped(t *testing.T) {
	start := time.Date(2024, time.March, 1, 23, 59, 59, 0, time.UTC)
	c := NewStopped(start)
	if !c.Now().Equal(start) {
		t.Errorf("want %v got %v", start, c.Now())
	}

	c.Advance(2 * time.Second)
	want := time.Date(2024, time.March, 2, 0, 0, 1, 0, time.UTC)
	if !c.Now().Equal(want) {
		t.Errorf("want %v got %v", want, c.Now())
	}

	c.Set(start)
	if !c.Now().Equal(start) {
		t.Errorf("want %v got %v", start, c.Now())
	}
}

func TestSystem(t *testing.T) {
	before := time.Now()
	got := System().Now()
	if got.Before(before) {
		t.Errorf("system clock went backwards: %v before %v", got, before)
	}
}
