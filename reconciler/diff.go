package reconciler

import (
	"github.com/crmarques/liveops/resource"
)

// Diff classifies source entries against target entries. Entries only present
// in target are scheduled for deletion when reconcile is set and ignored
// otherwise. When target holds the same key more than once the first
// occurrence is the counterpart and later ones count as target-only.
func Diff(source []resource.Entry, target []resource.Entry, reconcile bool, cmp Comparer) Plan {
	cmp = cmp.withDefaults()

	counterpart := make(map[string]int, len(target))
	for idx, entry := range target {
		key := cmp.Key(entry)
		if _, found := counterpart[key]; !found {
			counterpart[key] = idx
		}
	}

	matched := make([]bool, len(target))
	plan := Plan{Counterparts: make(map[string]resource.Entry)}

	for _, entry := range source {
		key := cmp.Key(entry)
		idx, found := counterpart[key]
		if !found {
			plan.Create = append(plan.Create, entry)
			continue
		}

		matched[idx] = true
		plan.Counterparts[key] = target[idx]
		if cmp.Equal(entry.Payload, target[idx].Payload) {
			plan.Unchanged = append(plan.Unchanged, entry)
		} else {
			plan.Update = append(plan.Update, entry)
		}
	}

	if !reconcile {
		return plan
	}

	for idx, entry := range target {
		if !matched[idx] {
			plan.Delete = append(plan.Delete, entry)
		}
	}

	return plan
}

// DuplicateKeys returns the set of keys that appear more than once.
func DuplicateKeys(entries []resource.Entry, cmp Comparer) map[string]bool {
	cmp = cmp.withDefaults()

	seen := make(map[string]bool, len(entries))
	duplicates := make(map[string]bool)
	for _, entry := range entries {
		key := cmp.Key(entry)
		if seen[key] {
			duplicates[key] = true
			continue
		}
		seen[key] = true
	}
	return duplicates
}
