package scheduling

import (
	"time"

	"shortcast/internal/uploadqueue"
)

// Allocate computes n non-overlapping future publish timestamps against the
// given queue snapshot.
//
// With an explicit anchor the first slot lands exactly on the anchor and the
// rest follow at interval spacing. Without one, the anchor is the latest
// still-future commitment among pending and scheduled items (falling back to
// now), and every slot lands strictly beyond it: anchor+interval,
// anchor+2*interval, and so on. Sequential calls therefore never double-book
// a slot as long as the snapshot is read immediately before allocation and a
// single writer owns the queue.
func Allocate(snapshot []uploadqueue.Item, n int, interval time.Duration, anchor *time.Time, now time.Time) []time.Time {
	if n <= 0 {
		return nil
	}

	slots := make([]time.Time, 0, n)
	if anchor != nil {
		for i := 0; i < n; i++ {
			slots = append(slots, anchor.Add(time.Duration(i)*interval))
		}
		return slots
	}

	base := lastCommitment(snapshot, now)
	for i := 1; i <= n; i++ {
		slots = append(slots, base.Add(time.Duration(i)*interval))
	}
	return slots
}

// lastCommitment returns the latest future scheduled time among items that
// still hold a slot, or now when no future commitments exist.
func lastCommitment(snapshot []uploadqueue.Item, now time.Time) time.Time {
	latest := now
	for _, item := range snapshot {
		if item.Status != uploadqueue.StatusPending && item.Status != uploadqueue.StatusScheduled {
			continue
		}
		if item.ScheduledAt.After(now) && item.ScheduledAt.After(latest) {
			latest = item.ScheduledAt
		}
	}
	return latest
}
