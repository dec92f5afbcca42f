package signal

import "time"

// DetectorOutput carries one detector invocation's result into
// aggregation. Failed marks a hard detector failure (as opposed to
// individual invalid metrics); the aggregator replaces the whole block
// with defaults and flags the detector/window incomplete.
type DetectorOutput struct {
	Detector     string
	LengthDays   int
	Record       Record
	DataComplete bool
	Failed       bool
}

// Aggregate merges detector outputs for both windows into one immutable
// signal set. It is a pure merge: no metric is recomputed here. Missing or
// failed blocks are fully defaulted rather than aborting the user's
// evaluation, and every metric left invalid has its documented fallback
// substituted and its qualified name appended to FallbacksApplied in
// canonical order.
func Aggregate(userID string, refDate, generatedAt time.Time, outputs []DetectorOutput) *Set {
	byKey := make(map[string]DetectorOutput, len(outputs))
	for _, out := range outputs {
		byKey[WindowKey(out.Detector, out.LengthDays)] = out
	}

	set := &Set{
		UserID:        userID,
		ReferenceDate: refDate,
		GeneratedAt:   generatedAt,
		Records:       make(map[string]Record, len(DetectorNames)*len(WindowLengths)),
		Completeness:  make(map[string]bool, len(DetectorNames)*len(WindowLengths)),
		index:         make(map[string]indexEntry),
	}

	for _, length := range WindowLengths {
		for _, det := range DetectorNames {
			key := WindowKey(det, length)

			out, ok := byKey[key]
			if !ok || out.Failed {
				out = DetectorOutput{
					Detector:   det,
					LengthDays: length,
					Record:     NewRecord(det, length),
				}
			}

			rec := out.Record
			for _, metric := range declaredMetrics[det] {
				if !rec.Valid[metric] {
					def, _ := DefaultValue(metric)
					rec.Values[metric] = def
					set.FallbacksApplied = append(set.FallbacksApplied, QualifiedName(metric, length))
				}
				set.index[QualifiedName(metric, length)] = indexEntry{
					value: rec.Values[metric],
					valid: rec.Valid[metric],
				}
			}

			set.Records[key] = rec
			set.Completeness[key] = out.DataComplete && !out.Failed
		}
	}

	return set
}
