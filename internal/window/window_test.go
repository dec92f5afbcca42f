package window

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"persona-engine/internal/storage"
)

type fakeSource struct {
	txns     []storage.Transaction
	accounts []storage.AccountSnapshot
	earliest time.Time
	hasAny   bool
	err      error
}

func (f *fakeSource) GetTransactions(_ context.Context, _ string, from, to time.Time) ([]storage.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []storage.Transaction
	for _, txn := range f.txns {
		if !txn.Date.Before(from) && !txn.Date.After(to) {
			out = append(out, txn)
		}
	}
	return out, nil
}

func (f *fakeSource) GetAccountsSnapshot(_ context.Context, _ string, _ time.Time) ([]storage.AccountSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.accounts, nil
}

func (f *fakeSource) EarliestRecordDate(_ context.Context, _ string) (time.Time, bool, error) {
	if f.err != nil {
		return time.Time{}, false, f.err
	}
	return f.earliest, f.hasAny, nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewTimeWindowStartDate(t *testing.T) {
	cases := []struct {
		ref    time.Time
		length int
		start  time.Time
	}{
		{date(2025, time.March, 31), 30, date(2025, time.March, 1)},
		{date(2025, time.March, 1), 30, date(2025, time.January, 30)},
		{date(2025, time.July, 15), 180, date(2025, time.January, 16)},
		// Exact day counts across a leap day, no calendar-month semantics.
		{date(2024, time.March, 15), 30, date(2024, time.February, 14)},
	}

	for _, tc := range cases {
		win, err := NewTimeWindow(tc.ref, tc.length)
		require.NoError(t, err)
		require.Equal(t, tc.start, win.StartDate, "ref %s length %d", tc.ref, tc.length)
		require.Equal(t, tc.ref, win.EndDate)
	}
}

func TestNewTimeWindowRejectsUnsupportedLength(t *testing.T) {
	_, err := NewTimeWindow(date(2025, time.March, 31), 90)
	require.ErrorIs(t, err, ErrUnsupportedLength)
}

func TestTimeWindowContainsIsInclusive(t *testing.T) {
	win, err := NewTimeWindow(date(2025, time.June, 30), 30)
	require.NoError(t, err)

	require.True(t, win.Contains(win.StartDate))
	require.True(t, win.Contains(win.EndDate))
	require.False(t, win.Contains(win.StartDate.AddDate(0, 0, -1)))
	require.False(t, win.Contains(win.EndDate.AddDate(0, 0, 1)))
}

func TestResolveRejectsFutureReferenceDate(t *testing.T) {
	src := &fakeSource{}
	r := NewResolver(src, ResolverOptions{Now: func() time.Time { return date(2025, time.June, 1) }}, zerolog.Nop())

	_, err := r.Resolve(context.Background(), "u1", date(2025, time.June, 2), 30)
	require.ErrorIs(t, err, ErrInvalidReferenceDate)
}

func TestResolveEmptyRangeIsNotAnError(t *testing.T) {
	src := &fakeSource{hasAny: false}
	r := NewResolver(src, ResolverOptions{Now: func() time.Time { return date(2025, time.June, 1) }}, zerolog.Nop())

	ds, err := r.Resolve(context.Background(), "u1", date(2025, time.June, 1), 30)
	require.NoError(t, err)
	require.Empty(t, ds.Transactions)
	require.Zero(t, ds.RecordCount)
	require.False(t, ds.DataComplete, "new user must not look complete")
}

func TestResolveDataCompleteDistinguishesQuietFromNew(t *testing.T) {
	ref := date(2025, time.June, 1)

	// History predates the window: quiet period, but complete.
	quiet := &fakeSource{earliest: date(2024, time.January, 1), hasAny: true}
	r := NewResolver(quiet, ResolverOptions{Now: func() time.Time { return ref }}, zerolog.Nop())
	ds, err := r.Resolve(context.Background(), "u1", ref, 30)
	require.NoError(t, err)
	require.True(t, ds.DataComplete)

	// History starts inside the window: partial.
	fresh := &fakeSource{earliest: ref.AddDate(0, 0, -10), hasAny: true}
	r = NewResolver(fresh, ResolverOptions{Now: func() time.Time { return ref }}, zerolog.Nop())
	ds, err = r.Resolve(context.Background(), "u1", ref, 30)
	require.NoError(t, err)
	require.False(t, ds.DataComplete)
}

func TestResolveFiltersWindowedTransactions(t *testing.T) {
	ref := date(2025, time.June, 30)
	src := &fakeSource{
		earliest: date(2024, time.June, 1),
		hasAny:   true,
		txns: []storage.Transaction{
			{UserID: "u1", Date: date(2025, time.June, 15), Amount: decimal.NewFromInt(-20)},
			{UserID: "u1", Date: date(2025, time.April, 1), Amount: decimal.NewFromInt(-30)},
		},
	}
	r := NewResolver(src, ResolverOptions{Now: func() time.Time { return ref }}, zerolog.Nop())

	ds, err := r.Resolve(context.Background(), "u1", ref, 30)
	require.NoError(t, err)
	require.Len(t, ds.Transactions, 1)
	require.Equal(t, 1, ds.RecordCount)
	require.True(t, ds.DataComplete)
}
