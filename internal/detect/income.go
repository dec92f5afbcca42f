package detect

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"persona-engine/internal/signal"
	"persona-engine/internal/storage"
	"persona-engine/internal/window"
)

// Income computes payroll cadence and pay-gap statistics over
// payroll-tagged inflows.
type Income struct{}

// NewIncome constructs the income detector.
func NewIncome() *Income { return &Income{} }

// Name implements Detector.
func (d *Income) Name() string { return signal.DetectorIncome }

// Detect implements Detector.
func (d *Income) Detect(ds window.Dataset) signal.Record {
	rec := signal.NewRecord(signal.DetectorIncome, ds.Window.LengthDays)

	if len(ds.Transactions) == 0 {
		return rec
	}

	var payroll []storage.Transaction
	total := decimal.Zero
	for _, txn := range ds.Transactions {
		if txn.Category != storage.CategoryPayroll || txn.Amount.Sign() <= 0 {
			continue
		}
		payroll = append(payroll, txn)
		total = total.Add(txn.Amount)
	}

	rec.Set(signal.MetricIncomePayrollCount, signal.NumberFromInt(int64(len(payroll))))

	if len(payroll) == 0 {
		return rec
	}

	mean := total.Div(decimal.NewFromInt(int64(len(payroll))))
	rec.Set(signal.MetricIncomeMeanPayrollAmount, signal.Number(mean))

	// Gap statistics need at least two payroll events; with fewer the
	// metrics stay at their insufficient-data fallback.
	if len(payroll) < 2 {
		return rec
	}

	dates := make([]time.Time, len(payroll))
	for i, txn := range payroll {
		dates[i] = txn.Date
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	gaps := make([]int, 0, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		gaps = append(gaps, daysBetween(dates[i-1], dates[i]))
	}

	median := medianDays(gaps)
	rec.Set(signal.MetricIncomeMedianPayGapDays, signal.Number(median))
	rec.Set(signal.MetricIncomePayCadence, signal.Categorical(classifyCadence(median)))

	return rec
}

func medianDays(gaps []int) decimal.Decimal {
	sort.Ints(gaps)
	n := len(gaps)
	if n%2 == 1 {
		return decimal.NewFromInt(int64(gaps[n/2]))
	}
	sum := decimal.NewFromInt(int64(gaps[n/2-1] + gaps[n/2]))
	return sum.Div(decimal.NewFromInt(2))
}

func classifyCadence(medianGap decimal.Decimal) string {
	gap := medianGap.InexactFloat64()
	switch {
	case gap >= 6 && gap <= 8:
		return signal.CadenceWeekly
	case gap >= 13 && gap < 15:
		return signal.CadenceBiweekly
	case gap >= 15 && gap <= 16:
		return signal.CadenceSemimonthly
	case gap >= 27 && gap <= 32:
		return signal.CadenceMonthly
	default:
		return signal.CadenceIrregular
	}
}
