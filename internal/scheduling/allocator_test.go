package scheduling_test

import (
	"testing"
	"time"

	"shortcast/internal/scheduling"
	"shortcast/internal/uploadqueue"
)

const interval = 150 * time.Minute

func TestAllocateEmptyQueue(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	slots := scheduling.Allocate(nil, 2, interval, nil, now)
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if !slots[0].Equal(now.Add(interval)) {
		t.Fatalf("first slot = %v, want %v", slots[0], now.Add(interval))
	}
	if !slots[1].Equal(now.Add(2 * interval)) {
		t.Fatalf("second slot = %v, want %v", slots[1], now.Add(2*interval))
	}
}

func TestAllocateContinuesFromLastCommitment(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	snapshot := []uploadqueue.Item{
		{Status: uploadqueue.StatusScheduled, ScheduledAt: now.Add(interval)},
		{Status: uploadqueue.StatusPending, ScheduledAt: now.Add(2 * interval)},
	}

	slots := scheduling.Allocate(snapshot, 1, interval, nil, now)
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
	if !slots[0].Equal(now.Add(3 * interval)) {
		t.Fatalf("slot = %v, want %v (7.5h past now)", slots[0], now.Add(3*interval))
	}
}

func TestAllocateWithAnchor(t *testing.T) {
	anchor := time.Date(2026, 3, 2, 18, 30, 0, 0, time.UTC)
	now := anchor.Add(-24 * time.Hour)

	slots := scheduling.Allocate(nil, 3, interval, &anchor, now)
	if len(slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(slots))
	}
	for i, slot := range slots {
		want := anchor.Add(time.Duration(i) * interval)
		if !slot.Equal(want) {
			t.Fatalf("slot %d = %v, want %v", i, slot, want)
		}
	}
}

func TestAllocateIgnoresPastAndTerminalItems(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	snapshot := []uploadqueue.Item{
		// Past commitment: does not push the anchor forward.
		{Status: uploadqueue.StatusScheduled, ScheduledAt: now.Add(-time.Hour)},
		// Published and failed items hold no future slot.
		{Status: uploadqueue.StatusPublished, ScheduledAt: now.Add(10 * time.Hour)},
		{Status: uploadqueue.StatusFailed, ScheduledAt: now.Add(12 * time.Hour)},
	}

	slots := scheduling.Allocate(snapshot, 1, interval, nil, now)
	if !slots[0].Equal(now.Add(interval)) {
		t.Fatalf("slot = %v, want %v", slots[0], now.Add(interval))
	}
}

func TestAllocateZeroCount(t *testing.T) {
	if slots := scheduling.Allocate(nil, 0, interval, nil, time.Now()); slots != nil {
		t.Fatalf("expected nil for n=0, got %v", slots)
	}
}
