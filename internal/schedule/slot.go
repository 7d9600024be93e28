// Package schedule owns round planning: slot-key idempotency partitions,
// the pending-subject roster for a scheduled hour, and delayed retry
// dispatch for patients who could not be reached.
package schedule

import (
	"fmt"
	"time"
)

// Rounds run three times a day by default.
var DefaultHours = []int{8, 12, 20}

// SlotKey returns the idempotency partition key for one round,
// "YYYY-MM-DD_HH" in UTC. The key follows the wall clock: every timestamp
// inside the same UTC calendar hour maps to the same key, and a retry that
// slips past the hour boundary opens a fresh partition instead of writing
// into the finished round's.
func SlotKey(now time.Time) string {
	now = now.UTC()
	return fmt.Sprintf("%s_%02d", now.Format("2006-01-02"), now.Hour())
}
