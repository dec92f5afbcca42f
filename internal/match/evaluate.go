// Package match evaluates persona criteria against a signal set and
// resolves the single assigned persona from the full match list.
package match

import (
	"persona-engine/internal/catalog"
	"persona-engine/internal/signal"
)

// EvidenceEntry records one condition's consultation of a signal: the
// value actually used, whether it was valid, and whether the condition
// individually passed. Every condition in a criteria leaves an entry,
// matched or not, so a reviewer sees the full picture.
type EvidenceEntry struct {
	Value     signal.Value `json:"value"`
	Valid     bool         `json:"valid"`
	Satisfied bool         `json:"satisfied"`
}

// Evidence maps signal names to their consultation records.
type Evidence map[string]EvidenceEntry

// Evaluate runs a flat AND/OR criteria against the signal set. A missing
// or invalid signal makes its condition false, never an error: conditions
// only fire on concretely valid values.
func Evaluate(criteria catalog.Criteria, set *signal.Set) (bool, Evidence) {
	evidence := make(Evidence, len(criteria.Conditions))

	anyTrue := false
	allTrue := len(criteria.Conditions) > 0

	for _, cond := range criteria.Conditions {
		value, valid, present := set.Lookup(cond.Signal)

		satisfied := present && valid && compare(value, cond.Comparator, cond.Threshold)
		evidence[cond.Signal] = EvidenceEntry{
			Value:     value,
			Valid:     present && valid,
			Satisfied: satisfied,
		}

		if satisfied {
			anyTrue = true
		} else {
			allTrue = false
		}
	}

	if criteria.Combinator == catalog.CombinatorOr {
		return anyTrue, evidence
	}
	return allTrue, evidence
}

// compare applies the declared comparator with no implicit tolerance.
// Tolerance, where needed, belongs inside the detector that produced the
// value.
func compare(value signal.Value, cmp catalog.Comparator, threshold signal.Value) bool {
	if cmp == catalog.CmpEQ {
		return value.Equal(threshold)
	}

	if value.Kind != signal.KindNumber || threshold.Kind != signal.KindNumber {
		return false
	}

	c := value.Number.Cmp(threshold.Number)
	switch cmp {
	case catalog.CmpGTE:
		return c >= 0
	case catalog.CmpLTE:
		return c <= 0
	case catalog.CmpGT:
		return c > 0
	case catalog.CmpLT:
		return c < 0
	default:
		return false
	}
}
