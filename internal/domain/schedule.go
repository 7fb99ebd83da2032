package domain

import (
	"time"
)

// NextMoneyReleaseDate computes when funds for an order completed at the
// given time become releasable: the next strictly-future Wednesday. An order
// completed on a Wednesday releases the following Wednesday, never same day.
func NextMoneyReleaseDate(completed time.Time) time.Time {
	completed = completed.UTC()
	daysUntil := (int(time.Wednesday) - int(completed.Weekday()) + 7) % 7
	if daysUntil == 0 {
		daysUntil = 7
	}
	release := completed.AddDate(0, 0, daysUntil)
	return time.Date(release.Year(), release.Month(), release.Day(), 0, 0, 0, 0, time.UTC)
}

// StartOfDay truncates the time to UTC midnight. Job sentinels and settlement
// windows key off this value.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the last instant of the UTC day containing t.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// StartOfWeek returns UTC midnight of the Monday of the week containing t.
// Release processing allows at most one payout per business per such week.
func StartOfWeek(t time.Time) time.Time {
	day := StartOfDay(t)
	offset := (int(day.Weekday()) - int(time.Monday) + 7) % 7
	return day.AddDate(0, 0, -offset)
}

// ApplyStatus moves the order to the given status, refreshes the cached
// category and appends exactly one history entry. Transition legality is the
// caller's responsibility; this only performs the bookkeeping every change
// shares.
func (o *Order) ApplyStatus(status OrderStatus, now time.Time) {
	now = now.UTC()
	o.Status = string(status)
	o.StatusCategory = OrderStatusCategory(status)
	o.StatusHistory = append(o.StatusHistory, StatusHistoryEntry{
		Status:     string(status),
		Category:   o.StatusCategory,
		OccurredAt: now,
	})
	o.UpdatedAt = now
}

// ApplyStatus moves the pickup to the given status with the same bookkeeping
// contract as orders.
func (p *Pickup) ApplyStatus(status PickupStatus, now time.Time) {
	now = now.UTC()
	p.Status = string(status)
	p.StatusCategory = PickupStatusCategory(status)
	p.StatusHistory = append(p.StatusHistory, StatusHistoryEntry{
		Status:     string(status),
		Category:   p.StatusCategory,
		OccurredAt: now,
	})
	p.UpdatedAt = now
}
