// Package detect implements the four behavioral signal detectors. Each
// detector is total over its input: it never fails on an empty or partial
// dataset, and leaves metrics it cannot compute flagged invalid so the
// aggregator substitutes the documented fallback.
package detect

import (
	"persona-engine/internal/signal"
	"persona-engine/internal/window"
)

// Detector computes one family of behavioral metrics over a windowed
// dataset. Detectors are independent of each other and safe to run
// concurrently; no detector's output feeds another.
type Detector interface {
	Name() string
	Detect(ds window.Dataset) signal.Record
}

// SubscriptionOptions tune recurring-merchant detection.
type SubscriptionOptions struct {
	// MinRecurrences is the minimum number of charges from one merchant
	// inside the window before it can count as recurring.
	MinRecurrences int
	// CadenceToleranceDays bounds the spread between the shortest and
	// longest gap in a merchant's charge sequence. Wider spreads are
	// one-off repeat purchases, not subscriptions.
	CadenceToleranceDays int
}

// SavingsOptions tune the savings detector.
type SavingsOptions struct {
	// EssentialCategories are the spend categories treated as essential
	// when estimating the emergency-fund denominator.
	EssentialCategories []string
}

// DefaultEssentialCategories is the stock essential-spend category set.
var DefaultEssentialCategories = []string{
	"groceries", "utilities", "rent", "mortgage", "insurance", "transport",
}

// All constructs the full detector set in canonical order.
func All(sub SubscriptionOptions, sav SavingsOptions) []Detector {
	return []Detector{
		NewSubscription(sub),
		NewSavings(sav),
		NewCredit(),
		NewIncome(),
	}
}
