// Package window turns a reference date and a fixed look-back length into
// the slice of a user's financial records the detectors operate on.
package window

import (
	"errors"
	"fmt"
	"time"

	"persona-engine/internal/storage"
)

// Supported look-back lengths in days.
const (
	LengthShort = 30
	LengthLong  = 180
)

var (
	// ErrInvalidReferenceDate indicates the reference date lies in the future.
	ErrInvalidReferenceDate = errors.New("window: reference date is in the future")

	// ErrUnsupportedLength indicates a look-back length outside {30, 180}.
	ErrUnsupportedLength = errors.New("window: unsupported look-back length")
)

// TimeWindow is an immutable trailing period ending at the reference date.
// StartDate is computed by exact day-count subtraction, never by calendar
// months, so windows are identical in length regardless of month boundaries.
type TimeWindow struct {
	ReferenceDate time.Time
	LengthDays    int
	StartDate     time.Time
	EndDate       time.Time
}

// NewTimeWindow builds a window of lengthDays ending at ref (inclusive).
func NewTimeWindow(ref time.Time, lengthDays int) (TimeWindow, error) {
	if lengthDays != LengthShort && lengthDays != LengthLong {
		return TimeWindow{}, fmt.Errorf("%w: %d days", ErrUnsupportedLength, lengthDays)
	}

	day := truncateToDay(ref)
	return TimeWindow{
		ReferenceDate: day,
		LengthDays:    lengthDays,
		StartDate:     day.AddDate(0, 0, -lengthDays),
		EndDate:       day,
	}, nil
}

// Contains reports whether t falls inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	day := truncateToDay(t)
	return !day.Before(w.StartDate) && !day.After(w.EndDate)
}

// Dataset is the windowed view handed to a single detector call.
// DataComplete distinguishes "nothing happened this period" (the user's
// history predates the window) from "the user is too new to know".
type Dataset struct {
	UserID       string
	Window       TimeWindow
	Transactions []storage.Transaction
	Accounts     []storage.AccountSnapshot
	DataComplete bool
	RecordCount  int
}

func truncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
