package org

import (
	"testing"
	"time"
)

func TestDaysEmployed(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	hired := time.Date(2026, 8, 18, 0, 0, 0, 0, time.UTC)
	if got := DaysEmployed(&hired, now); got != 10 {
		t.Fatalf("got %d, want 10", got)
	}

	if got := DaysEmployed(nil, now); got != 0 {
		t.Fatalf("nil hire date: got %d, want 0", got)
	}

	future := now.Add(48 * time.Hour)
	if got := DaysEmployed(&future, now); got != 0 {
		t.Fatalf("future hire date: got %d, want 0", got)
	}

	sameDay := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	if got := DaysEmployed(&sameDay, now); got != 0 {
		t.Fatalf("same day: got %d, want 0", got)
	}
}
