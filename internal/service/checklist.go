package service

import (
	"sort"

	"tillpoint/internal/model"
)

// RequiredChecklistKeys is the fixed set of gates that must all be true
// before a business day may close.
var RequiredChecklistKeys = []string{
	"all_sessions_closed",
	"all_settlements_completed",
	"reports_generated",
	"backup_completed",
	"cash_counted",
	"inventory_verified",
}

// MissingChecklistKeys returns the required keys that are absent or false,
// sorted for stable output. Absent keys count as unmet — the gate fails
// closed, never satisfied-by-absence.
func MissingChecklistKeys(checklist model.Checklist) []string {
	var missing []string
	for _, key := range RequiredChecklistKeys {
		if !checklist[key] {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}

// AllChecksCompleted is the day-close gate predicate. Pure — no side
// effects, evaluated immediately before the close commit.
func AllChecksCompleted(checklist model.Checklist) bool {
	return len(MissingChecklistKeys(checklist)) == 0
}
