package detect

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"persona-engine/internal/signal"
	"persona-engine/internal/storage"
	"persona-engine/internal/window"
)

// Subscription detects recurring-merchant spend. A merchant is recurring
// when it charged at least MinRecurrences times inside the window at a
// steady cadence: the spread between its shortest and longest charge gap
// stays within CadenceToleranceDays.
type Subscription struct {
	minRecurrences int
	cadenceTolDays int
}

// NewSubscription constructs the subscription detector.
func NewSubscription(opts SubscriptionOptions) *Subscription {
	min := opts.MinRecurrences
	if min <= 0 {
		min = 3
	}
	tol := opts.CadenceToleranceDays
	if tol <= 0 {
		tol = 4
	}
	return &Subscription{minRecurrences: min, cadenceTolDays: tol}
}

// Name implements Detector.
func (d *Subscription) Name() string { return signal.DetectorSubscription }

// Detect implements Detector.
func (d *Subscription) Detect(ds window.Dataset) signal.Record {
	rec := signal.NewRecord(signal.DetectorSubscription, ds.Window.LengthDays)

	byMerchant := make(map[string][]storage.Transaction)
	totalSpend := decimal.Zero
	outflows := 0
	for _, txn := range ds.Transactions {
		if txn.Amount.Sign() >= 0 {
			continue
		}
		outflows++
		totalSpend = totalSpend.Add(txn.Amount.Neg())
		if txn.Merchant != "" {
			byMerchant[txn.Merchant] = append(byMerchant[txn.Merchant], txn)
		}
	}

	if outflows == 0 {
		return rec
	}

	recurringSpend := decimal.Zero
	recurringCount := 0
	for _, txns := range byMerchant {
		if !d.isRecurring(txns) {
			continue
		}
		recurringCount++
		for _, txn := range txns {
			recurringSpend = recurringSpend.Add(txn.Amount.Neg())
		}
	}

	rec.Set(signal.MetricSubscriptionRecurringMerchants, signal.NumberFromInt(int64(recurringCount)))
	rec.Set(signal.MetricSubscriptionRecurringSpend, signal.Number(recurringSpend))
	rec.Set(signal.MetricSubscriptionTotalSpend, signal.Number(totalSpend))

	if totalSpend.IsPositive() {
		share := recurringSpend.Div(totalSpend).Mul(decimal.NewFromInt(100))
		rec.Set(signal.MetricSubscriptionSharePct, signal.Number(share))
	}

	return rec
}

func (d *Subscription) isRecurring(txns []storage.Transaction) bool {
	if len(txns) < d.minRecurrences {
		return false
	}

	dates := make([]time.Time, len(txns))
	for i, txn := range txns {
		dates[i] = txn.Date
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	minGap, maxGap := 0, 0
	for i := 1; i < len(dates); i++ {
		gap := daysBetween(dates[i-1], dates[i])
		if gap == 0 {
			// Same-day repeat charges are not a cadence.
			return false
		}
		if i == 1 || gap < minGap {
			minGap = gap
		}
		if gap > maxGap {
			maxGap = gap
		}
	}

	return maxGap-minGap <= d.cadenceTolDays
}

func daysBetween(a, b time.Time) int {
	return int(b.UTC().Truncate(24*time.Hour).Sub(a.UTC().Truncate(24*time.Hour)).Hours() / 24)
}
