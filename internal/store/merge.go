package store

import (
	"fmt"
	"time"
)

// PriorityRank orders alert priorities for monotonic escalation. Unknown
// values rank lowest.
func PriorityRank(priority string) int {
	switch priority {
	case PriorityCritical:
		return 2
	case PriorityWarning:
		return 1
	case PrioritySafe:
		return 0
	default:
		return -1
	}
}

// MergeAlert folds a new observation into an existing open alert: priority
// never decreases, and trigger/brief text is appended behind a timestamped
// delimiter so the full audit trail survives. All adapters share this rule.
func MergeAlert(existing Alert, priority, trigger, brief string, now time.Time) Alert {
	merged := existing
	if PriorityRank(priority) > PriorityRank(existing.Priority) {
		merged.Priority = priority
	}
	delim := fmt.Sprintf("\n--- %s ---\n", now.UTC().Format(time.RFC3339))
	if trigger != "" {
		merged.Trigger = existing.Trigger + delim + trigger
	}
	if brief != "" {
		merged.Brief = existing.Brief + delim + brief
	}
	merged.UpdatedAt = now.UTC()
	return merged
}
