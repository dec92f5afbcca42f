package detect

import (
	"github.com/shopspring/decimal"

	"persona-engine/internal/signal"
	"persona-engine/internal/storage"
	"persona-engine/internal/window"
)

// Utilization tier thresholds, percent. Tier flags are inclusive (">=").
var (
	tier30 = decimal.NewFromInt(30)
	tier50 = decimal.NewFromInt(50)
	tier80 = decimal.NewFromInt(80)

	// minPaymentTolerance absorbs rounding on minimum-payment matching:
	// last payment <= 1.05 x minimum due counts as minimum-only.
	minPaymentTolerance = decimal.NewFromFloat(1.05)
)

// Credit computes per-card and aggregate utilization plus repayment
// behaviour flags from account snapshots.
type Credit struct{}

// NewCredit constructs the credit detector.
func NewCredit() *Credit { return &Credit{} }

// Name implements Detector.
func (d *Credit) Name() string { return signal.DetectorCredit }

// Detect implements Detector.
func (d *Credit) Detect(ds window.Dataset) signal.Record {
	rec := signal.NewRecord(signal.DetectorCredit, ds.Window.LengthDays)

	if len(ds.Accounts) == 0 {
		return rec
	}

	var (
		cards      int
		sumBalance = decimal.Zero
		sumLimit   = decimal.Zero
		maxUtil    decimal.Decimal
		haveUtil   bool
		minPayOnly bool
		anyOverdue bool
	)

	for _, acct := range ds.Accounts {
		if acct.Type != storage.AccountTypeCredit {
			continue
		}
		cards++

		if acct.Overdue {
			anyOverdue = true
		}

		if acct.MinimumPayment != nil && acct.LastPayment != nil && acct.MinimumPayment.IsPositive() {
			ceiling := acct.MinimumPayment.Mul(minPaymentTolerance)
			if acct.LastPayment.LessThanOrEqual(ceiling) {
				minPayOnly = true
			}
		}

		// Cards without a defined positive limit are skipped, not
		// treated as zero: they enter neither the per-card max nor the
		// aggregate sums, so the aggregate never divides by zero.
		if acct.CreditLimit == nil || !acct.CreditLimit.IsPositive() {
			continue
		}

		util := acct.Balance.Div(*acct.CreditLimit).Mul(hundred)
		if !haveUtil || util.GreaterThan(maxUtil) {
			maxUtil = util
		}
		haveUtil = true

		sumBalance = sumBalance.Add(acct.Balance)
		sumLimit = sumLimit.Add(*acct.CreditLimit)
	}

	rec.Set(signal.MetricCreditCardCount, signal.NumberFromInt(int64(cards)))
	if cards == 0 {
		return rec
	}

	rec.Set(signal.MetricCreditMinPaymentOnly, signal.Boolean(minPayOnly))
	rec.Set(signal.MetricCreditAnyOverdue, signal.Boolean(anyOverdue))

	if !haveUtil || !sumLimit.IsPositive() {
		return rec
	}

	agg := sumBalance.Div(sumLimit).Mul(hundred)

	rec.Set(signal.MetricCreditMaxUtilizationPct, signal.Number(maxUtil))
	rec.Set(signal.MetricCreditAggUtilizationPct, signal.Number(agg))
	rec.Set(signal.MetricCreditUtilTier30, signal.Boolean(agg.GreaterThanOrEqual(tier30)))
	rec.Set(signal.MetricCreditUtilTier50, signal.Boolean(agg.GreaterThanOrEqual(tier50)))
	rec.Set(signal.MetricCreditUtilTier80, signal.Boolean(agg.GreaterThanOrEqual(tier80)))

	return rec
}
