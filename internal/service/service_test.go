package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"persona-engine/internal/catalog"
	"persona-engine/internal/detect"
	"persona-engine/internal/pipeline"
	"persona-engine/internal/publish"
	"persona-engine/internal/storage"
	"persona-engine/internal/window"
)

var refDate = time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC)

// fakeStore backs both window resolution and user listing from in-memory
// per-user fixtures.
type fakeStore struct {
	users    []string
	accounts map[string][]storage.AccountSnapshot
	listErr  error
}

func (f *fakeStore) GetTransactions(context.Context, string, time.Time, time.Time) ([]storage.Transaction, error) {
	return nil, nil
}

func (f *fakeStore) GetAccountsSnapshot(_ context.Context, userID string, _ time.Time) ([]storage.AccountSnapshot, error) {
	return f.accounts[userID], nil
}

func (f *fakeStore) EarliestRecordDate(context.Context, string) (time.Time, bool, error) {
	return refDate.AddDate(-1, 0, 0), true, nil
}

func (f *fakeStore) ListUserIDs(context.Context) ([]string, error) {
	return f.users, f.listErr
}

type fakeAudit struct {
	mu      sync.Mutex
	records []storage.AssignmentRecord
	err     error
}

func (f *fakeAudit) UpsertAssignment(_ context.Context, rec storage.AssignmentRecord) (storage.AssignmentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return storage.AssignmentRecord{}, f.err
	}
	rec.ID = int64(len(f.records) + 1)
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeAudit) ListRecentAssignments(context.Context, int) ([]storage.AssignmentRecord, error) {
	return nil, nil
}

func (f *fakeAudit) ListAssignmentsBetween(context.Context, time.Time, time.Time) ([]storage.AssignmentRecord, error) {
	return nil, nil
}

func (f *fakeAudit) CountAssignments(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.records)), nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publish.AssignmentEvent
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, event publish.AssignmentEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeLocker struct {
	acquired bool
	held     bool
	err      error
}

func (f *fakeLocker) TryAdvisoryLock(context.Context, int64) (func(), bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	if f.held {
		return nil, false, nil
	}
	f.acquired = true
	return func() { f.acquired = false }, true, nil
}

const serviceCatalogYAML = `
personas:
  - id: debt_pressure
    priority: 1
    description: Revolving balances dominate.
    focus_areas: [debt_paydown]
    criteria:
      combinator: AND
      conditions:
        - signal: credit_aggregate_utilization_pct
          comparator: ">="
          threshold: 50
fallback:
  id: no_strong_signal
  description: Nothing decisive.
  focus_areas: [general]
`

// indebtedCard puts a user at 90% utilization on a single card.
func indebtedCard(userID string) []storage.AccountSnapshot {
	balance := decimal.NewFromInt(4500)
	limit := decimal.NewFromInt(5000)
	return []storage.AccountSnapshot{{
		UserID:      userID,
		AccountID:   "card-1",
		Type:        storage.AccountTypeCredit,
		Subtype:     storage.AccountSubtypeCreditCard,
		Balance:     balance,
		CreditLimit: &limit,
	}}
}

func newTestService(t *testing.T, store *fakeStore, audit storage.AssignmentStore, pub publish.Publisher, locker storage.AdvisoryLocker, opts Options) *Service {
	t.Helper()

	cat, err := catalog.Parse([]byte(serviceCatalogYAML))
	require.NoError(t, err)

	logger := zerolog.Nop()
	clock := func() time.Time { return refDate.Add(6 * time.Hour) }
	resolver := window.NewResolver(store, window.ResolverOptions{Now: clock}, logger)
	detectors := detect.All(detect.SubscriptionOptions{}, detect.SavingsOptions{})
	engine := pipeline.New(resolver, detectors, cat, pipeline.Options{Now: clock}, logger)

	return New(engine, store, audit, pub, locker, nil, opts, logger)
}

func TestEvaluateUserRecordsAndPublishes(t *testing.T) {
	store := &fakeStore{
		users:    []string{"u1"},
		accounts: map[string][]storage.AccountSnapshot{"u1": indebtedCard("u1")},
	}
	audit := &fakeAudit{}
	pub := &fakePublisher{}
	svc := newTestService(t, store, audit, pub, nil, Options{})

	res, err := svc.EvaluateUser(context.Background(), "u1", refDate)
	require.NoError(t, err)
	require.Equal(t, "debt_pressure", res.Assigned.PersonaID)

	require.Len(t, audit.records, 1)
	rec := audit.records[0]
	require.Equal(t, "u1", rec.UserID)
	require.Equal(t, refDate, rec.ReferenceDate)
	require.Equal(t, "debt_pressure", rec.PersonaID)
	require.Equal(t, 1, rec.MatchedCount)

	var matches []struct {
		PersonaID string `json:"persona_id"`
		Matched   bool   `json:"matched"`
	}
	require.NoError(t, json.Unmarshal(rec.Evidence, &matches))
	require.Len(t, matches, 1)
	require.True(t, matches[0].Matched)

	require.Len(t, pub.events, 1)
	require.Equal(t, "u1", pub.events[0].UserID)
	require.Equal(t, "debt_pressure", pub.events[0].PersonaID)
}

func TestEvaluateUserSurvivesAuditAndPublishFailures(t *testing.T) {
	store := &fakeStore{
		users:    []string{"u1"},
		accounts: map[string][]storage.AccountSnapshot{"u1": indebtedCard("u1")},
	}
	audit := &fakeAudit{err: errors.New("db down")}
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := newTestService(t, store, audit, pub, nil, Options{})

	res, err := svc.EvaluateUser(context.Background(), "u1", refDate)
	require.NoError(t, err, "audit and publish are best-effort")
	require.Equal(t, "debt_pressure", res.Assigned.PersonaID)
}

func TestRunBatchIsolatesPerUserFailures(t *testing.T) {
	store := &fakeStore{
		users: []string{"u1", "u2", "u3"},
		accounts: map[string][]storage.AccountSnapshot{
			"u1": indebtedCard("u1"),
			"u3": indebtedCard("u3"),
		},
	}
	audit := &fakeAudit{}
	svc := newTestService(t, store, audit, nil, nil, Options{Workers: 2})

	summary, err := svc.RunBatch(context.Background(), refDate)
	require.NoError(t, err)

	// u2 has no accounts: every signal falls back and the user lands on
	// the fallback persona. That is a successful evaluation, not a
	// failure.
	require.Equal(t, 3, summary.Users)
	require.Equal(t, 3, summary.Evaluated)
	require.Equal(t, 0, summary.Failed)
	require.Equal(t, 2, summary.ByPersona["debt_pressure"])
	require.Equal(t, 1, summary.ByPersona["no_strong_signal"])

	count, err := audit.CountAssignments(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 3, count)
}

func TestRunBatchCountsHardFailures(t *testing.T) {
	store := &fakeStore{
		users:    []string{"u1"},
		accounts: map[string][]storage.AccountSnapshot{"u1": indebtedCard("u1")},
	}
	svc := newTestService(t, store, nil, nil, nil, Options{})

	// A reference date in the future fails window resolution for every
	// user, but the batch itself still completes.
	summary, err := svc.RunBatch(context.Background(), refDate.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Equal(t, 1, summary.Users)
	require.Equal(t, 0, summary.Evaluated)
	require.Equal(t, 1, summary.Failed)
}

func TestRunBatchSkipsWhenLockHeld(t *testing.T) {
	store := &fakeStore{
		users:    []string{"u1"},
		accounts: map[string][]storage.AccountSnapshot{"u1": indebtedCard("u1")},
	}
	audit := &fakeAudit{}
	locker := &fakeLocker{held: true}
	svc := newTestService(t, store, audit, nil, locker, Options{LockKey: 42})

	summary, err := svc.RunBatch(context.Background(), refDate)
	require.NoError(t, err)
	require.Equal(t, 0, summary.Users)
	require.Empty(t, audit.records)
}

func TestRunBatchReleasesLock(t *testing.T) {
	store := &fakeStore{
		users:    []string{"u1"},
		accounts: map[string][]storage.AccountSnapshot{"u1": indebtedCard("u1")},
	}
	locker := &fakeLocker{}
	svc := newTestService(t, store, &fakeAudit{}, nil, locker, Options{LockKey: 42})

	_, err := svc.RunBatch(context.Background(), refDate)
	require.NoError(t, err)
	require.False(t, locker.acquired, "lock must be released after the batch")
}

func TestRunBatchPropagatesListError(t *testing.T) {
	store := &fakeStore{listErr: errors.New("db down")}
	svc := newTestService(t, store, nil, nil, nil, Options{})

	_, err := svc.RunBatch(context.Background(), refDate)
	require.Error(t, err)
	require.Contains(t, err.Error(), "list users")
}
