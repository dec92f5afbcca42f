package signal

// Record is the fixed-shape output of one detector over one window. Every
// metric the detector declares is present from construction onward; a
// detector marks the subset it could actually compute by overwriting the
// prefilled fallback with Set.
type Record struct {
	Detector   string
	LengthDays int
	Values     map[string]Value
	Valid      map[string]bool
}

// NewRecord builds a record prefilled with the canonical fallback for
// every declared metric, all flagged invalid.
func NewRecord(detector string, lengthDays int) Record {
	names := declaredMetrics[detector]
	rec := Record{
		Detector:   detector,
		LengthDays: lengthDays,
		Values:     make(map[string]Value, len(names)),
		Valid:      make(map[string]bool, len(names)),
	}
	for _, name := range names {
		def, ok := defaults[name]
		if !ok {
			panic("signal: metric missing from defaults table: " + name)
		}
		rec.Values[name] = def
		rec.Valid[name] = false
	}
	return rec
}

// Set records a validly computed metric value.
func (r Record) Set(metric string, v Value) {
	if _, declared := r.Values[metric]; !declared {
		panic("signal: undeclared metric for detector " + r.Detector + ": " + metric)
	}
	r.Values[metric] = v
	r.Valid[metric] = true
}

// InvalidMetrics returns the declared metrics still flagged invalid, in
// declaration order.
func (r Record) InvalidMetrics() []string {
	var out []string
	for _, name := range declaredMetrics[r.Detector] {
		if !r.Valid[name] {
			out = append(out, name)
		}
	}
	return out
}
