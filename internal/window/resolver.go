package window

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"persona-engine/internal/storage"
)

// DataSource is the slice of the financial store the resolver reads from.
type DataSource interface {
	GetTransactions(ctx context.Context, userID string, from, to time.Time) ([]storage.Transaction, error)
	GetAccountsSnapshot(ctx context.Context, userID string, asOf time.Time) ([]storage.AccountSnapshot, error)
	EarliestRecordDate(ctx context.Context, userID string) (time.Time, bool, error)
}

// ResolverOptions tune resolver behaviour.
type ResolverOptions struct {
	// Now supplies the data source's notion of "now" for future-date
	// checks. Defaults to time.Now.
	Now func() time.Time
}

// Resolver materialises windowed datasets from a data source. It is the
// only component in the evaluation pipeline that performs I/O.
type Resolver struct {
	source DataSource
	now    func() time.Time
	logger zerolog.Logger
}

// NewResolver constructs a Resolver over the given data source.
func NewResolver(source DataSource, opts ResolverOptions, logger zerolog.Logger) *Resolver {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Resolver{
		source: source,
		now:    now,
		logger: logger.With().Str("component", "window_resolver").Logger(),
	}
}

// Resolve fetches the user's records falling inside the window ending at
// refDate. An empty range is not an error: the dataset comes back with the
// correct schema, zero records, and DataComplete reflecting whether the
// user's history actually covers the window.
func (r *Resolver) Resolve(ctx context.Context, userID string, refDate time.Time, lengthDays int) (Dataset, error) {
	if truncateToDay(refDate).After(truncateToDay(r.now())) {
		return Dataset{}, fmt.Errorf("%w: %s", ErrInvalidReferenceDate, refDate.Format("2006-01-02"))
	}

	win, err := NewTimeWindow(refDate, lengthDays)
	if err != nil {
		return Dataset{}, err
	}

	txns, err := r.source.GetTransactions(ctx, userID, win.StartDate, win.EndDate)
	if err != nil {
		return Dataset{}, fmt.Errorf("get transactions: %w", err)
	}

	accounts, err := r.source.GetAccountsSnapshot(ctx, userID, win.EndDate)
	if err != nil {
		return Dataset{}, fmt.Errorf("get accounts snapshot: %w", err)
	}

	earliest, hasHistory, err := r.source.EarliestRecordDate(ctx, userID)
	if err != nil {
		return Dataset{}, fmt.Errorf("earliest record date: %w", err)
	}

	complete := hasHistory && !truncateToDay(earliest).After(win.StartDate)

	ds := Dataset{
		UserID:       userID,
		Window:       win,
		Transactions: txns,
		Accounts:     accounts,
		DataComplete: complete,
		RecordCount:  len(txns) + len(accounts),
	}

	r.logger.Debug().
		Str("user_id", userID).
		Int("length_days", lengthDays).
		Int("records", ds.RecordCount).
		Bool("complete", complete).
		Msg("window resolved")

	return ds, nil
}
