package signal

import (
	"fmt"

	"persona-engine/internal/window"
)

// Detector names, in canonical dispatch and aggregation order.
const (
	DetectorSubscription = "subscription"
	DetectorSavings      = "savings"
	DetectorCredit       = "credit"
	DetectorIncome       = "income"
)

// DetectorNames fixes the iteration order everywhere detectors are
// enumerated, which keeps fallback lists and logs reproducible.
var DetectorNames = []string{
	DetectorSubscription,
	DetectorSavings,
	DetectorCredit,
	DetectorIncome,
}

// Metric names. The bare name refers to the 30-day window; the 180-day
// variant carries the "_180d" suffix (see QualifiedName).
const (
	MetricSubscriptionRecurringMerchants = "subscription_recurring_merchant_count"
	MetricSubscriptionRecurringSpend     = "subscription_recurring_spend"
	MetricSubscriptionTotalSpend         = "subscription_total_spend"
	MetricSubscriptionSharePct           = "subscription_share_pct"

	MetricSavingsNetInflow           = "savings_net_inflow"
	MetricSavingsAnnualizedGrowthPct = "savings_annualized_growth_pct"
	MetricSavingsLiquidBalance       = "savings_liquid_balance"
	MetricSavingsEmergencyFundMonths = "savings_emergency_fund_months"

	MetricCreditCardCount          = "credit_card_count"
	MetricCreditMaxUtilizationPct  = "credit_max_utilization_pct"
	MetricCreditAggUtilizationPct  = "credit_aggregate_utilization_pct"
	MetricCreditUtilTier30         = "credit_util_tier_30"
	MetricCreditUtilTier50         = "credit_util_tier_50"
	MetricCreditUtilTier80         = "credit_util_tier_80"
	MetricCreditMinPaymentOnly     = "credit_min_payment_only"
	MetricCreditAnyOverdue         = "credit_any_overdue"

	MetricIncomePayrollCount      = "income_payroll_count"
	MetricIncomeMedianPayGapDays  = "income_median_pay_gap_days"
	MetricIncomeMeanPayrollAmount = "income_mean_payroll_amount"
	MetricIncomePayCadence        = "income_pay_cadence"
)

// Pay cadence categories emitted by the income detector.
const (
	CadenceWeekly      = "weekly"
	CadenceBiweekly    = "biweekly"
	CadenceSemimonthly = "semimonthly"
	CadenceMonthly     = "monthly"
	CadenceIrregular   = "irregular"
	CadenceUnknown     = "unknown"
)

// declaredMetrics lists, per detector, every metric the detector emits, in
// declaration order. Every record carries all of them, valid or not.
var declaredMetrics = map[string][]string{
	DetectorSubscription: {
		MetricSubscriptionRecurringMerchants,
		MetricSubscriptionRecurringSpend,
		MetricSubscriptionTotalSpend,
		MetricSubscriptionSharePct,
	},
	DetectorSavings: {
		MetricSavingsNetInflow,
		MetricSavingsAnnualizedGrowthPct,
		MetricSavingsLiquidBalance,
		MetricSavingsEmergencyFundMonths,
	},
	DetectorCredit: {
		MetricCreditCardCount,
		MetricCreditMaxUtilizationPct,
		MetricCreditAggUtilizationPct,
		MetricCreditUtilTier30,
		MetricCreditUtilTier50,
		MetricCreditUtilTier80,
		MetricCreditMinPaymentOnly,
		MetricCreditAnyOverdue,
	},
	DetectorIncome: {
		MetricIncomePayrollCount,
		MetricIncomeMedianPayGapDays,
		MetricIncomeMeanPayrollAmount,
		MetricIncomePayCadence,
	},
}

// defaults is the single canonical fallback table: the value a metric takes
// when its detector cannot compute it validly. Numeric metrics default to
// zero, tier and payment flags to false, and the cadence label to
// "unknown". A metric absent from this table is a programming error.
var defaults = map[string]Value{
	MetricSubscriptionRecurringMerchants: NumberFromInt(0),
	MetricSubscriptionRecurringSpend:     NumberFromInt(0),
	MetricSubscriptionTotalSpend:         NumberFromInt(0),
	MetricSubscriptionSharePct:           NumberFromInt(0),

	MetricSavingsNetInflow:           NumberFromInt(0),
	MetricSavingsAnnualizedGrowthPct: NumberFromInt(0),
	MetricSavingsLiquidBalance:       NumberFromInt(0),
	MetricSavingsEmergencyFundMonths: NumberFromInt(0),

	MetricCreditCardCount:         NumberFromInt(0),
	MetricCreditMaxUtilizationPct: NumberFromInt(0),
	MetricCreditAggUtilizationPct: NumberFromInt(0),
	MetricCreditUtilTier30:        Boolean(false),
	MetricCreditUtilTier50:        Boolean(false),
	MetricCreditUtilTier80:        Boolean(false),
	MetricCreditMinPaymentOnly:    Boolean(false),
	MetricCreditAnyOverdue:        Boolean(false),

	MetricIncomePayrollCount:      NumberFromInt(0),
	MetricIncomeMedianPayGapDays:  NumberFromInt(0),
	MetricIncomeMeanPayrollAmount: NumberFromInt(0),
	MetricIncomePayCadence:        Categorical(CadenceUnknown),
}

// DeclaredMetrics returns the metric names a detector emits, in order.
func DeclaredMetrics(detector string) []string {
	names := declaredMetrics[detector]
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// DefaultValue returns the canonical fallback for a metric.
func DefaultValue(metric string) (Value, bool) {
	v, ok := defaults[metric]
	return v, ok
}

// QualifiedName maps a base metric name and window length to the name the
// rule catalog addresses it by: bare for 30 days, "_180d" suffixed for the
// long window.
func QualifiedName(metric string, lengthDays int) string {
	if lengthDays == window.LengthLong {
		return metric + "_180d"
	}
	return metric
}

// WindowKey names a detector/window pair for completeness maps.
func WindowKey(detector string, lengthDays int) string {
	return fmt.Sprintf("%s_%dd", detector, lengthDays)
}
