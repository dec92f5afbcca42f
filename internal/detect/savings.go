package detect

import (
	"strings"

	"github.com/shopspring/decimal"

	"persona-engine/internal/signal"
	"persona-engine/internal/storage"
	"persona-engine/internal/window"
)

var hundred = decimal.NewFromInt(100)

// Savings computes net inflow, an annualized growth estimate, and
// emergency-fund coverage over the user's liquid savings accounts.
type Savings struct {
	essential map[string]struct{}
}

// NewSavings constructs the savings detector.
func NewSavings(opts SavingsOptions) *Savings {
	cats := opts.EssentialCategories
	if len(cats) == 0 {
		cats = DefaultEssentialCategories
	}
	essential := make(map[string]struct{}, len(cats))
	for _, c := range cats {
		essential[strings.ToLower(c)] = struct{}{}
	}
	return &Savings{essential: essential}
}

// Name implements Detector.
func (d *Savings) Name() string { return signal.DetectorSavings }

// Detect implements Detector.
func (d *Savings) Detect(ds window.Dataset) signal.Record {
	rec := signal.NewRecord(signal.DetectorSavings, ds.Window.LengthDays)

	savingsAccounts := make(map[string]struct{})
	liquid := decimal.Zero
	haveSavings := false
	for _, acct := range ds.Accounts {
		if acct.Type != storage.AccountTypeDepository || acct.Subtype != storage.AccountSubtypeSavings {
			continue
		}
		haveSavings = true
		savingsAccounts[acct.AccountID] = struct{}{}
		liquid = liquid.Add(acct.Balance)
	}

	if !haveSavings {
		return rec
	}

	netInflow := decimal.Zero
	essentialSpend := decimal.Zero
	for _, txn := range ds.Transactions {
		if _, ok := savingsAccounts[txn.AccountID]; ok {
			netInflow = netInflow.Add(txn.Amount)
		}
		if txn.Amount.Sign() < 0 {
			if _, ok := d.essential[strings.ToLower(txn.Category)]; ok {
				essentialSpend = essentialSpend.Add(txn.Amount.Neg())
			}
		}
	}

	rec.Set(signal.MetricSavingsLiquidBalance, signal.Number(liquid))
	rec.Set(signal.MetricSavingsNetInflow, signal.Number(netInflow))

	// Growth is measured against the balance at the start of the window,
	// reconstructed as current balance minus the window's net inflow.
	opening := liquid.Sub(netInflow)
	if opening.IsPositive() {
		days := decimal.NewFromInt(int64(ds.Window.LengthDays))
		growth := netInflow.Div(opening).
			Mul(decimal.NewFromInt(365)).
			Div(days).
			Mul(hundred)
		rec.Set(signal.MetricSavingsAnnualizedGrowthPct, signal.Number(growth))
	}

	// The denominator is a monthly essential-spend estimate scaled from
	// the window. Zero or unknown essential spend leaves the metric
	// invalid; it is never divided.
	if essentialSpend.IsPositive() {
		monthly := essentialSpend.
			Mul(decimal.NewFromInt(30)).
			Div(decimal.NewFromInt(int64(ds.Window.LengthDays)))
		months := liquid.Div(monthly)
		rec.Set(signal.MetricSavingsEmergencyFundMonths, signal.Number(months))
	}

	return rec
}
