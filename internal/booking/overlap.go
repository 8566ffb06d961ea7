// Package booking holds the pure admission logic for the reservation ledger.
// The SQL check in the store must agree with Overlaps exactly.
package booking

import (
	"time"

	"car-rental-api/internal/model"
)

// Overlaps reports whether [aStart, aEnd] and [bStart, bEnd] share at least
// one instant. Boundaries are inclusive: back-to-back ranges that meet at a
// single timestamp conflict.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}

// FirstConflict scans existing ledger entries for one that overlaps the
// proposed range. The scan is linear; the ledger per car is small.
func FirstConflict(existing []model.Booking, start, end time.Time) (*model.Booking, bool) {
	for i := range existing {
		if Overlaps(existing[i].StartDate, existing[i].EndDate, start, end) {
			return &existing[i], true
		}
	}
	return nil, false
}
