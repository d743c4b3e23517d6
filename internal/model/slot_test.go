package model

import (
	"testing"
	"time"
)

func TestOverlapsHalfOpen(t *testing.T) {
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	s := TimeSlot{StartTime: base, EndTime: base.Add(time.Hour)}

	cases := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"identical", base, base.Add(time.Hour), true},
		{"contained", base.Add(10 * time.Minute), base.Add(20 * time.Minute), true},
		{"straddles start", base.Add(-10 * time.Minute), base.Add(10 * time.Minute), true},
		{"straddles end", base.Add(50 * time.Minute), base.Add(70 * time.Minute), true},
		{"touches end", base.Add(time.Hour), base.Add(2 * time.Hour), false},
		{"touches start", base.Add(-time.Hour), base, false},
		{"disjoint", base.Add(2 * time.Hour), base.Add(3 * time.Hour), false},
	}
	for _, tc := range cases {
		if got := s.Overlaps(tc.start, tc.end); got != tc.want {
			t.Errorf("%s: Overlaps = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestHoldExpired(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	later := now.Add(time.Minute)
	earlier := now.Add(-time.Minute)

	open := TimeSlot{Status: SlotOpen}
	if open.HoldExpired(now) {
		t.Error("OPEN slot reported expired")
	}
	live := TimeSlot{Status: SlotHeld, HeldUntil: &later}
	if live.HoldExpired(now) {
		t.Error("live hold reported expired")
	}
	lapsed := TimeSlot{Status: SlotHeld, HeldUntil: &earlier}
	if !lapsed.HoldExpired(now) {
		t.Error("lapsed hold not reported expired")
	}
	atDeadline := TimeSlot{Status: SlotHeld, HeldUntil: &now}
	if !atDeadline.HoldExpired(now) {
		t.Error("hold at its deadline must count as expired")
	}
}
