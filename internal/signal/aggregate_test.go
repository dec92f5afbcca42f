package signal

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestEveryDeclaredMetricHasADefault(t *testing.T) {
	for _, det := range DetectorNames {
		for _, metric := range DeclaredMetrics(det) {
			_, ok := DefaultValue(metric)
			require.True(t, ok, "metric %s has no canonical default", metric)
		}
	}
}

func TestNewRecordPrefillsDefaults(t *testing.T) {
	rec := NewRecord(DetectorCredit, 30)

	for _, metric := range DeclaredMetrics(DetectorCredit) {
		require.Contains(t, rec.Values, metric)
		require.False(t, rec.Valid[metric])
	}
}

func TestRecordSetRejectsUndeclaredMetric(t *testing.T) {
	rec := NewRecord(DetectorCredit, 30)
	require.Panics(t, func() {
		rec.Set("savings_net_inflow", NumberFromInt(1))
	})
}

func refTime() (time.Time, time.Time) {
	ref := time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC)
	gen := time.Date(2025, time.July, 1, 12, 0, 0, 0, time.UTC)
	return ref, gen
}

func fullOutputs() []DetectorOutput {
	var outputs []DetectorOutput
	for _, length := range WindowLengths {
		for _, det := range DetectorNames {
			outputs = append(outputs, DetectorOutput{
				Detector:     det,
				LengthDays:   length,
				Record:       NewRecord(det, length),
				DataComplete: true,
			})
		}
	}
	return outputs
}

func TestAggregateBuildsEveryBlock(t *testing.T) {
	ref, gen := refTime()
	outputs := fullOutputs()
	outputs[0].Record.Set(MetricSubscriptionSharePct, Number(decimal.NewFromInt(25)))

	set := Aggregate("u1", ref, gen, outputs)

	require.Len(t, set.Records, len(DetectorNames)*len(WindowLengths))

	v, valid, ok := set.Lookup(MetricSubscriptionSharePct)
	require.True(t, ok)
	require.True(t, valid)
	require.True(t, v.Number.Equal(decimal.NewFromInt(25)))

	// The 180d variant was left invalid and carries the fallback.
	v, valid, ok = set.Lookup(MetricSubscriptionSharePct + "_180d")
	require.True(t, ok)
	require.False(t, valid)
	require.True(t, v.Number.IsZero())
}

func TestAggregateRecordsFallbacksInCanonicalOrder(t *testing.T) {
	ref, gen := refTime()
	set := Aggregate("u1", ref, gen, fullOutputs())

	// Nothing was computed, so every qualified metric fell back.
	require.Equal(t, set.SignalNames(), set.FallbacksApplied)
}

func TestAggregateDefaultsFailedDetectorBlock(t *testing.T) {
	ref, gen := refTime()
	outputs := fullOutputs()

	// Credit 30d hard-failed after setting a value.
	for i := range outputs {
		if outputs[i].Detector == DetectorCredit && outputs[i].LengthDays == 30 {
			outputs[i].Record.Set(MetricCreditCardCount, NumberFromInt(4))
			outputs[i].Failed = true
		}
	}

	set := Aggregate("u1", ref, gen, outputs)

	require.False(t, set.Completeness[WindowKey(DetectorCredit, 30)])

	v, valid, ok := set.Lookup(MetricCreditCardCount)
	require.True(t, ok)
	require.False(t, valid, "failed block must be fully defaulted")
	require.True(t, v.Number.IsZero())
}

func TestAggregateMissingBlockIsDefaulted(t *testing.T) {
	ref, gen := refTime()

	set := Aggregate("u1", ref, gen, nil)

	for _, length := range WindowLengths {
		for _, det := range DetectorNames {
			require.False(t, set.Completeness[WindowKey(det, length)])
		}
	}

	_, valid, ok := set.Lookup(MetricIncomePayCadence)
	require.True(t, ok)
	require.False(t, valid)
}

func TestAggregatePropagatesCompleteness(t *testing.T) {
	ref, gen := refTime()
	outputs := fullOutputs()
	for i := range outputs {
		if outputs[i].Detector == DetectorSavings && outputs[i].LengthDays == 180 {
			outputs[i].DataComplete = false
		}
	}

	set := Aggregate("u1", ref, gen, outputs)

	require.True(t, set.Completeness[WindowKey(DetectorSavings, 30)])
	require.False(t, set.Completeness[WindowKey(DetectorSavings, 180)])
}

func TestQualifiedName(t *testing.T) {
	require.Equal(t, "credit_max_utilization_pct", QualifiedName(MetricCreditMaxUtilizationPct, 30))
	require.Equal(t, "credit_max_utilization_pct_180d", QualifiedName(MetricCreditMaxUtilizationPct, 180))
}
