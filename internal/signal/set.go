package signal

import "time"

// WindowLengths enumerates the two look-back horizons every detector runs
// over, in canonical order.
var WindowLengths = []int{30, 180}

type indexEntry struct {
	value Value
	valid bool
}

// Set is the merged per-user signal set: one record per detector per
// window, completeness metadata, and the ordered list of metrics that fell
// back to their documented default. Immutable after aggregation.
type Set struct {
	UserID           string            `json:"user_id"`
	ReferenceDate    time.Time         `json:"reference_date"`
	GeneratedAt      time.Time         `json:"generated_at"`
	Records          map[string]Record `json:"-"`
	Completeness     map[string]bool   `json:"completeness"`
	FallbacksApplied []string          `json:"fallbacks_applied"`

	index map[string]indexEntry
}

// Lookup resolves a qualified signal name ("credit_max_utilization_pct",
// "savings_net_inflow_180d", ...) to its value. The second result reports
// validity, the third whether the name exists at all.
func (s *Set) Lookup(name string) (Value, bool, bool) {
	e, ok := s.index[name]
	if !ok {
		return Value{}, false, false
	}
	return e.value, e.valid, true
}

// SignalNames returns every qualified signal name in the set, in canonical
// detector/window/declaration order.
func (s *Set) SignalNames() []string {
	var out []string
	for _, length := range WindowLengths {
		for _, det := range DetectorNames {
			for _, metric := range declaredMetrics[det] {
				out = append(out, QualifiedName(metric, length))
			}
		}
	}
	return out
}

// Flatten renders every qualified signal with its value and validity,
// for transparency/debugging surfaces.
func (s *Set) Flatten() map[string]FlatSignal {
	out := make(map[string]FlatSignal, len(s.index))
	for name, e := range s.index {
		out[name] = FlatSignal{Value: e.value, Valid: e.valid}
	}
	return out
}

// FlatSignal pairs a signal value with its validity flag.
type FlatSignal struct {
	Value Value `json:"value"`
	Valid bool  `json:"valid"`
}
