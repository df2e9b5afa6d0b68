package engine

import (
	"reflect"
	"testing"
)

func TestCoachingScheduleExactlyOnceInOrder(t *testing.T) {
	s := NewCoachingSchedule([]Cue{
		{AfterSeconds: 10, Text: "a"},
		{AfterSeconds: 30, Text: "b"},
		{AfterSeconds: 60, Text: "c"},
	})

	var fired []string
	for elapsed := 0; elapsed <= 90; elapsed++ {
		for _, c := range s.Due(elapsed) {
			fired = append(fired, c.Text)
		}
	}

	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(fired, want) {
		t.Errorf("fired = %v, want %v", fired, want)
	}
	if s.Remaining() != 0 {
		t.Errorf("Remaining = %d, want 0", s.Remaining())
	}
}

func TestCoachingScheduleNoRepeatOnSameTick(t *testing.T) {
	s := NewCoachingSchedule([]Cue{{AfterSeconds: 10, Text: "a"}})

	if got := s.Due(10); len(got) != 1 {
		t.Fatalf("first Due(10) = %v, want one cue", got)
	}
	// repeated render of the same tick
	if got := s.Due(10); len(got) != 0 {
		t.Errorf("second Due(10) = %v, want none", got)
	}
}

func TestCoachingScheduleNeverSkipsOnJump(t *testing.T) {
	s := NewCoachingSchedule([]Cue{
		{AfterSeconds: 10, Text: "a"},
		{AfterSeconds: 30, Text: "b"},
		{AfterSeconds: 60, Text: "c"},
	})

	// a coarse tick jumps straight past two thresholds
	got := s.Due(45)
	if len(got) != 2 || got[0].Text != "a" || got[1].Text != "b" {
		t.Fatalf("Due(45) = %v, want [a b]", got)
	}
	if got := s.Due(60); len(got) != 1 || got[0].Text != "c" {
		t.Errorf("Due(60) = %v, want [c]", got)
	}
}

func TestCoachingScheduleUnsortedInput(t *testing.T) {
	s := NewCoachingSchedule([]Cue{
		{AfterSeconds: 60, Text: "late"},
		{AfterSeconds: 5, Text: "early"},
	})

	got := s.Due(100)
	if len(got) != 2 || got[0].Text != "early" || got[1].Text != "late" {
		t.Errorf("Due(100) = %v, want thresholds in increasing order", got)
	}
}

func TestCoachingScheduleNothingBeforeFirstThreshold(t *testing.T) {
	s := NewCoachingSchedule(DefaultCoachingSchedule())
	if got := s.Due(0); len(got) != 0 {
		t.Errorf("Due(0) = %v, want none", got)
	}
	if s.Remaining() != len(DefaultCoachingSchedule()) {
		t.Errorf("Remaining = %d", s.Remaining())
	}
}
